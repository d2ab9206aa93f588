package services

import (
	"context"
	"fmt"
	"log/slog"

	"billflow/internal/core"
	"billflow/internal/storage"
)

// PaymentService edits individual payment records and keeps the monthly
// summaries of the affected months current.
type PaymentService struct {
	storage    *storage.SQLiteRepository
	aggregates *CategoryAggregator
}

func NewPaymentService(storage *storage.SQLiteRepository, aggregates *CategoryAggregator) *PaymentService {
	return &PaymentService{storage: storage, aggregates: aggregates}
}

// Create records a payment for an existing subscription.
func (s *PaymentService) Create(ctx context.Context, p core.PaymentRecord) (core.PaymentRecord, error) {
	if p.Status == "" {
		p.Status = core.PaymentSucceeded
	}
	if err := p.Validate(); err != nil {
		return core.PaymentRecord{}, fmt.Errorf("invalid payment: %w", err)
	}
	if _, err := s.storage.GetSubscription(ctx, p.SubscriptionID); err != nil {
		return core.PaymentRecord{}, err
	}

	id, err := s.storage.CreatePayment(ctx, p)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	if err := s.aggregates.OnPaymentCreated(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to update monthly summary for new payment",
			"payment_id", id,
			"error", err)
	}
	return s.storage.GetPayment(ctx, id)
}

// BulkCreate records each payment through Create. A failed item does not stop
// the rest.
func (s *PaymentService) BulkCreate(ctx context.Context, payments []core.PaymentRecord) BulkResult {
	var result BulkResult
	for i, p := range payments {
		created, err := s.Create(ctx, p)
		if err != nil {
			slog.WarnContext(ctx, "Failed to import payment",
				"index", i,
				"subscription_id", p.SubscriptionID,
				"error", err)
			result.Failed = append(result.Failed, BulkFailure{Index: i, Err: err})
			continue
		}
		result.Created = append(result.Created, created.ID)
	}
	slog.InfoContext(ctx, "Payment import complete",
		"created", len(result.Created),
		"failed", len(result.Failed))
	return result
}

// Update applies the fields present in u. When the payment date moves to
// another month both months are recomputed.
func (s *PaymentService) Update(ctx context.Context, id int64, u core.PaymentUpdate) (core.PaymentRecord, error) {
	existing, err := s.storage.GetPayment(ctx, id)
	if err != nil {
		return core.PaymentRecord{}, err
	}

	updated := u.Apply(existing)
	if err := updated.Validate(); err != nil {
		return core.PaymentRecord{}, fmt.Errorf("invalid payment: %w", err)
	}
	if err := s.storage.UpdatePayment(ctx, updated); err != nil {
		return core.PaymentRecord{}, err
	}

	if u.AffectsSummary() {
		if err := s.aggregates.OnPaymentUpdated(ctx, existing.PaymentDate, updated.PaymentDate); err != nil {
			slog.ErrorContext(ctx, "Failed to update monthly summary for edited payment",
				"payment_id", id,
				"error", err)
		}
	}
	return updated, nil
}

// Delete removes a payment and recomputes the month it was dated in.
func (s *PaymentService) Delete(ctx context.Context, id int64) error {
	existing, err := s.storage.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeletePayment(ctx, id); err != nil {
		return err
	}
	if err := s.aggregates.OnPaymentDeleted(ctx, existing.PaymentDate.YearMonth()); err != nil {
		slog.ErrorContext(ctx, "Failed to update monthly summary for deleted payment",
			"payment_id", id,
			"error", err)
	}
	return nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (core.PaymentRecord, error) {
	return s.storage.GetPayment(ctx, id)
}

func (s *PaymentService) List(ctx context.Context, f core.PaymentFilter) ([]core.PaymentRecord, error) {
	return s.storage.ListPayments(ctx, f)
}

// RecalculateSummaries rebuilds every monthly summary from the ledger.
func (s *PaymentService) RecalculateSummaries(ctx context.Context) (int, error) {
	return s.aggregates.RecomputeAll(ctx)
}
