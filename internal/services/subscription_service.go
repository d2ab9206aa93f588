package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billflow/internal/core"
	"billflow/internal/storage"
)

// SubscriptionService orchestrates subscription writes and keeps the payment
// ledger and monthly summaries in step with them.
type SubscriptionService struct {
	storage    *storage.SQLiteRepository
	ledger     *LedgerGenerator
	aggregates *CategoryAggregator
	notifier   Notifier
	now        func() time.Time
}

func NewSubscriptionService(storage *storage.SQLiteRepository, ledger *LedgerGenerator, aggregates *CategoryAggregator, notifier Notifier) *SubscriptionService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &SubscriptionService{
		storage:    storage,
		ledger:     ledger,
		aggregates: aggregates,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *SubscriptionService) today() core.Date {
	return core.DateOf(s.now())
}

// Create saves a subscription and generates its payment history. Missing
// status and renewal type default to active and manual; a missing next billing
// date is derived from the start date.
func (s *SubscriptionService) Create(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if sub.Status == "" {
		sub.Status = core.StatusActive
	}
	if sub.RenewalType == "" {
		sub.RenewalType = core.RenewalManual
	}

	if sub.NextBillingDate.IsZero() && !sub.StartDate.IsZero() {
		next, err := AdvanceFromStart(sub.StartDate, s.today(), sub.BillingCycle)
		if err != nil {
			return core.Subscription{}, err
		}
		sub.NextBillingDate = next
	}
	if !sub.StartDate.IsZero() && !sub.NextBillingDate.IsZero() {
		last, err := Backdate(sub.NextBillingDate, sub.StartDate, sub.BillingCycle)
		if err != nil {
			return core.Subscription{}, err
		}
		sub.LastBillingDate = last
	}

	if err := sub.Validate(); err != nil {
		return core.Subscription{}, fmt.Errorf("invalid subscription: %w", err)
	}

	id, err := s.storage.CreateSubscription(ctx, sub)
	if err != nil {
		return core.Subscription{}, err
	}

	if _, err := s.ledger.Generate(ctx, id); err != nil {
		return core.Subscription{}, fmt.Errorf("generate payment history: %w", err)
	}

	return s.storage.GetSubscription(ctx, id)
}

// BulkResult reports a bulk import. Items are created independently; a failed
// item is recorded by its input index and the rest still go through.
type BulkResult struct {
	Created []int64
	Failed  []BulkFailure
}

type BulkFailure struct {
	Index int
	Err   error
}

// BulkCreate creates each subscription through Create, generating its ledger.
func (s *SubscriptionService) BulkCreate(ctx context.Context, subs []core.Subscription) BulkResult {
	var result BulkResult
	for i, sub := range subs {
		created, err := s.Create(ctx, sub)
		if err != nil {
			slog.WarnContext(ctx, "Failed to import subscription",
				"index", i,
				"name", sub.Name,
				"error", err)
			result.Failed = append(result.Failed, BulkFailure{Index: i, Err: err})
			continue
		}
		result.Created = append(result.Created, created.ID)
	}
	slog.InfoContext(ctx, "Subscription import complete",
		"created", len(result.Created),
		"failed", len(result.Failed))
	return result
}

// Update applies the fields present in u. Changing the start date or the
// cycle re-anchors the billing dates unless an explicit next billing date is
// given; changing amount, cycle, start date or status rebuilds the ledger.
func (s *SubscriptionService) Update(ctx context.Context, id int64, u core.SubscriptionUpdate) (core.Subscription, error) {
	existing, err := s.storage.GetSubscription(ctx, id)
	if err != nil {
		return core.Subscription{}, err
	}
	if u.IsEmpty() {
		return existing, nil
	}

	if u.BillingCycle != nil || u.StartDate != nil || u.NextBillingDate != nil {
		merged := u.Apply(existing)
		next := merged.NextBillingDate
		if u.NextBillingDate == nil {
			next, err = AdvanceFromStart(merged.StartDate, s.today(), merged.BillingCycle)
			if err != nil {
				return core.Subscription{}, err
			}
			u.NextBillingDate = &next
		}
		last, err := Backdate(next, merged.StartDate, merged.BillingCycle)
		if err != nil {
			return core.Subscription{}, err
		}
		u.LastBillingDate = &last
	}

	updated := u.Apply(existing)
	if err := updated.Validate(); err != nil {
		return core.Subscription{}, fmt.Errorf("invalid subscription: %w", err)
	}

	if err := s.storage.UpdateSubscription(ctx, id, u); err != nil {
		return core.Subscription{}, err
	}

	switch {
	case u.InvalidatesLedger(existing):
		if _, err := s.ledger.Regenerate(ctx, id); err != nil {
			return core.Subscription{}, fmt.Errorf("regenerate payment history: %w", err)
		}
	case u.CategoryID != nil && *u.CategoryID != existing.CategoryID:
		months, err := s.storage.PaymentMonthsBySubscription(ctx, id)
		if err != nil {
			return core.Subscription{}, err
		}
		if err := s.aggregates.RecomputeMonths(ctx, months...); err != nil {
			slog.ErrorContext(ctx, "Failed to recompute months after category change",
				"subscription_id", id,
				"error", err)
		}
	}

	s.notifier.Fire(ctx, id, core.NotifySubscriptionChange)

	return s.storage.GetSubscription(ctx, id)
}

// Delete removes the subscription with its payments and repairs the
// summaries of every month its ledger touched.
func (s *SubscriptionService) Delete(ctx context.Context, id int64) error {
	if _, err := s.storage.GetSubscription(ctx, id); err != nil {
		return err
	}

	months, err := s.storage.PaymentMonthsBySubscription(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteSubscription(ctx, id); err != nil {
		return err
	}

	if err := s.aggregates.RecomputeMonths(ctx, months...); err != nil {
		slog.ErrorContext(ctx, "Failed to recompute months after subscription delete",
			"subscription_id", id,
			"months", len(months),
			"error", err)
	}
	return nil
}

func (s *SubscriptionService) Get(ctx context.Context, id int64) (core.SubscriptionDetails, error) {
	return s.storage.GetSubscriptionDetails(ctx, id)
}

func (s *SubscriptionService) List(ctx context.Context) ([]core.Subscription, error) {
	return s.storage.ListSubscriptions(ctx)
}

func (s *SubscriptionService) Search(ctx context.Context, term string) ([]core.Subscription, error) {
	return s.storage.SearchSubscriptions(ctx, term)
}

// ResetAll deletes every subscription together with its payments and summaries.
func (s *SubscriptionService) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.storage.ResetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset subscriptions: %w", err)
	}
	slog.InfoContext(ctx, "All subscription data reset", "subscriptions", n)
	return n, nil
}
