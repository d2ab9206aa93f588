package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billflow/internal/core"
	"billflow/internal/storage"
)

const (
	autoRenewalNote   = "Auto renewal payment"
	manualRenewalNote = "Manual renewal payment"
	reactivationNote  = "Subscription reactivation payment"

	upcomingWindowDays = 7
)

// Notifier delivers a notification about a subscription without blocking the caller.
type Notifier interface {
	Fire(ctx context.Context, subscriptionID int64, t core.NotificationType)
}

type noopNotifier struct{}

func (noopNotifier) Fire(context.Context, int64, core.NotificationType) {}

// RenewalOutcome describes what happened to one subscription.
type RenewalOutcome struct {
	ID             int64
	Name           string
	OldNextBilling core.Date
	NewLastBilling core.Date
	NewNextBilling core.Date
	RenewedEarly   bool
	PaymentID      int64
}

// BatchResult summarises a scheduled run. Per-subscription failures are counted
// in Errors and never abort the run.
type BatchResult struct {
	Processed     int
	Errors        int
	Subscriptions []RenewalOutcome
}

// RenewalStats is a snapshot of the subscription book.
type RenewalStats struct {
	ActiveAuto       int
	ActiveManual     int
	Cancelled        int
	Trial            int
	Total            int
	UpcomingRenewals int
	Overdue          int
	AutoRenewalRate  int // percent of active subscriptions on auto renewal
	ActiveRate       int // percent of all subscriptions that are active
}

// UpcomingPreview lists active subscriptions due within a window.
type UpcomingPreview struct {
	From   core.Date
	To     core.Date
	Days   int
	Auto   []core.Subscription
	Manual []core.Subscription
}

// RenewalProcessor moves subscriptions through renewal, expiration and
// reactivation, writing one payment per billing event.
type RenewalProcessor struct {
	storage    *storage.SQLiteRepository
	aggregates *CategoryAggregator
	notifier   Notifier
	now        func() time.Time
}

// NewRenewalProcessor creates a processor. A nil notifier disables notifications.
func NewRenewalProcessor(storage *storage.SQLiteRepository, aggregates *CategoryAggregator, notifier Notifier) *RenewalProcessor {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &RenewalProcessor{
		storage:    storage,
		aggregates: aggregates,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (p *RenewalProcessor) today() core.Date {
	return core.DateOf(p.now())
}

// ProcessAutoRenewals renews every active auto-renewing subscription whose
// next billing date is today or earlier.
func (p *RenewalProcessor) ProcessAutoRenewals(ctx context.Context) (BatchResult, error) {
	subs, err := p.storage.ListSubscriptionsBy(ctx, core.StatusActive, core.RenewalAuto)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to list auto renewing subscriptions: %w", err)
	}

	today := p.today()
	slog.InfoContext(ctx, "Processing auto renewals",
		"total_active", len(subs),
		"processing_date", today.String())

	var result BatchResult
	for _, sub := range subs {
		if !IsDueOrOverdue(sub.NextBillingDate, today) {
			continue
		}

		outcome, err := p.renew(ctx, sub, sub.NextBillingDate, autoRenewalNote)
		if err != nil {
			result.Errors++
			slog.ErrorContext(ctx, "Failed to auto renew subscription",
				"subscription_id", sub.ID,
				"name", sub.Name,
				"error", err)
			p.notifier.Fire(ctx, sub.ID, core.NotifyRenewalFailure)
			continue
		}

		result.Processed++
		result.Subscriptions = append(result.Subscriptions, outcome)
	}

	slog.InfoContext(ctx, "Auto renewal complete",
		"processed", result.Processed,
		"errors", result.Errors,
		"total_checked", len(subs))
	return result, nil
}

// ProcessExpiredSubscriptions cancels active manual subscriptions whose next
// billing date has passed. No payment is written.
func (p *RenewalProcessor) ProcessExpiredSubscriptions(ctx context.Context) (BatchResult, error) {
	subs, err := p.storage.ListSubscriptionsBy(ctx, core.StatusActive, core.RenewalManual)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to list manual subscriptions: %w", err)
	}

	today := p.today()
	var result BatchResult
	for _, sub := range subs {
		if !sub.NextBillingDate.Before(today) {
			continue
		}

		if err := p.storage.UpdateSubscriptionStatus(ctx, sub.ID, core.StatusCancelled); err != nil {
			result.Errors++
			slog.ErrorContext(ctx, "Failed to expire subscription",
				"subscription_id", sub.ID,
				"error", err)
			continue
		}

		result.Processed++
		result.Subscriptions = append(result.Subscriptions, RenewalOutcome{
			ID:             sub.ID,
			Name:           sub.Name,
			OldNextBilling: sub.NextBillingDate,
		})
		slog.InfoContext(ctx, "Subscription expired",
			"subscription_id", sub.ID,
			"name", sub.Name,
			"expired_date", sub.NextBillingDate.String())
		p.notifier.Fire(ctx, sub.ID, core.NotifyExpirationWarning)
	}

	slog.InfoContext(ctx, "Expired subscriptions processed",
		"processed", result.Processed,
		"errors", result.Errors,
		"total_checked", len(subs))
	return result, nil
}

// ManualRenew renews a manual subscription. Renewing before the next billing
// date extends from that date; renewing late extends from today.
func (p *RenewalProcessor) ManualRenew(ctx context.Context, id int64) (RenewalOutcome, error) {
	sub, err := p.storage.GetSubscription(ctx, id)
	if err != nil {
		return RenewalOutcome{}, err
	}
	if sub.RenewalType != core.RenewalManual {
		return RenewalOutcome{}, fmt.Errorf("%w: subscription %d renews automatically", core.ErrInvalidOperation, id)
	}
	if sub.Status == core.StatusCancelled {
		return RenewalOutcome{}, fmt.Errorf("%w: subscription %d is cancelled, reactivate it instead", core.ErrInvalidTransition, id)
	}

	today := p.today()
	anchor := today
	if !sub.NextBillingDate.Before(today) {
		anchor = sub.NextBillingDate
	}

	outcome, err := p.renew(ctx, sub, anchor, manualRenewalNote)
	if err != nil {
		p.notifier.Fire(ctx, sub.ID, core.NotifyRenewalFailure)
		return RenewalOutcome{}, err
	}
	outcome.RenewedEarly = sub.NextBillingDate.After(today)
	return outcome, nil
}

// Reactivate restarts a cancelled subscription from today.
func (p *RenewalProcessor) Reactivate(ctx context.Context, id int64) (RenewalOutcome, error) {
	sub, err := p.storage.GetSubscription(ctx, id)
	if err != nil {
		return RenewalOutcome{}, err
	}
	if sub.Status != core.StatusCancelled {
		return RenewalOutcome{}, fmt.Errorf("%w: subscription %d is %s, only cancelled subscriptions can be reactivated", core.ErrInvalidTransition, id, sub.Status)
	}

	today := p.today()
	next, err := Advance(today, sub.BillingCycle)
	if err != nil {
		return RenewalOutcome{}, err
	}

	paymentID, err := p.commitBilling(ctx, sub, today, next, core.PaymentRecord{
		SubscriptionID:     sub.ID,
		PaymentDate:        today,
		AmountPaid:         sub.Amount,
		Currency:           sub.Currency,
		BillingPeriodStart: today,
		BillingPeriodEnd:   next,
		Status:             core.PaymentSucceeded,
		Notes:              reactivationNote,
	})
	if err != nil {
		return RenewalOutcome{}, fmt.Errorf("reactivate subscription %d: %w", id, err)
	}

	p.afterPayment(ctx, sub.ID, paymentID)
	p.notifier.Fire(ctx, sub.ID, core.NotifySubscriptionChange)

	slog.InfoContext(ctx, "Subscription reactivated",
		"subscription_id", sub.ID,
		"next_billing_date", next.String())

	return RenewalOutcome{
		ID:             sub.ID,
		Name:           sub.Name,
		OldNextBilling: sub.NextBillingDate,
		NewLastBilling: today,
		NewNextBilling: next,
		PaymentID:      paymentID,
	}, nil
}

// renew extends sub by one cycle from anchor and records the payment for the
// period [old next, new next).
func (p *RenewalProcessor) renew(ctx context.Context, sub core.Subscription, anchor core.Date, note string) (RenewalOutcome, error) {
	today := p.today()
	next, err := Advance(anchor, sub.BillingCycle)
	if err != nil {
		return RenewalOutcome{}, err
	}

	paymentID, err := p.commitBilling(ctx, sub, today, next, core.PaymentRecord{
		SubscriptionID:     sub.ID,
		PaymentDate:        today,
		AmountPaid:         sub.Amount,
		Currency:           sub.Currency,
		BillingPeriodStart: sub.NextBillingDate,
		BillingPeriodEnd:   next,
		Status:             core.PaymentSucceeded,
		Notes:              note,
	})
	if err != nil {
		return RenewalOutcome{}, fmt.Errorf("renew subscription %d: %w", sub.ID, err)
	}

	p.afterPayment(ctx, sub.ID, paymentID)
	p.notifier.Fire(ctx, sub.ID, core.NotifyRenewalSuccess)

	slog.InfoContext(ctx, "Subscription renewed",
		"subscription_id", sub.ID,
		"name", sub.Name,
		"old_next_billing_date", sub.NextBillingDate.String(),
		"next_billing_date", next.String(),
		"amount", sub.Amount.String(),
		"currency", sub.Currency)

	return RenewalOutcome{
		ID:             sub.ID,
		Name:           sub.Name,
		OldNextBilling: sub.NextBillingDate,
		NewLastBilling: today,
		NewNextBilling: next,
		PaymentID:      paymentID,
	}, nil
}

// commitBilling moves the billing dates, activates the subscription and
// inserts the payment in one transaction.
func (p *RenewalProcessor) commitBilling(ctx context.Context, sub core.Subscription, last, next core.Date, payment core.PaymentRecord) (int64, error) {
	var paymentID int64
	err := p.storage.WithinTx(ctx, func(tx *storage.SQLiteRepository) error {
		if err := tx.UpdateSubscriptionBilling(ctx, sub.ID, last, next, core.StatusActive); err != nil {
			return err
		}
		id, err := tx.CreatePayment(ctx, payment)
		if err != nil {
			return err
		}
		paymentID = id
		return nil
	})
	return paymentID, err
}

// afterPayment runs once the payment is committed. Summary failures are
// logged; RecomputeAll repairs them.
func (p *RenewalProcessor) afterPayment(ctx context.Context, subscriptionID, paymentID int64) {
	if p.aggregates == nil {
		return
	}
	if err := p.aggregates.OnPaymentCreated(ctx, paymentID); err != nil {
		slog.ErrorContext(ctx, "Failed to update monthly summary after renewal",
			"subscription_id", subscriptionID,
			"payment_id", paymentID,
			"error", err)
	}
}

// Stats counts subscriptions by state and looks one week ahead.
func (p *RenewalProcessor) Stats(ctx context.Context) (RenewalStats, error) {
	subs, err := p.storage.ListSubscriptions(ctx)
	if err != nil {
		return RenewalStats{}, err
	}

	today := p.today()
	weekAhead := today.AddDays(upcomingWindowDays)

	var s RenewalStats
	for _, sub := range subs {
		switch sub.Status {
		case core.StatusActive:
			if sub.RenewalType == core.RenewalAuto {
				s.ActiveAuto++
			} else {
				s.ActiveManual++
			}
			if !sub.NextBillingDate.Before(today) && !sub.NextBillingDate.After(weekAhead) {
				s.UpcomingRenewals++
			}
			if sub.RenewalType == core.RenewalManual && sub.NextBillingDate.Before(today) {
				s.Overdue++
			}
		case core.StatusCancelled:
			s.Cancelled++
		case core.StatusTrial:
			s.Trial++
		}
	}

	s.Total = s.ActiveAuto + s.ActiveManual + s.Cancelled + s.Trial
	active := s.ActiveAuto + s.ActiveManual
	s.AutoRenewalRate = percent(s.ActiveAuto, active)
	s.ActiveRate = percent(active, s.Total)
	return s, nil
}

// PreviewUpcoming lists active subscriptions due in the next days days,
// split by renewal type.
func (p *RenewalProcessor) PreviewUpcoming(ctx context.Context, days int) (UpcomingPreview, error) {
	if days <= 0 {
		days = upcomingWindowDays
	}
	from := p.today()
	to := from.AddDays(days)

	subs, err := p.storage.ListSubscriptionsDueBetween(ctx, from, to)
	if err != nil {
		return UpcomingPreview{}, err
	}

	preview := UpcomingPreview{From: from, To: to, Days: days}
	for _, sub := range subs {
		if sub.RenewalType == core.RenewalAuto {
			preview.Auto = append(preview.Auto, sub)
		} else {
			preview.Manual = append(preview.Manual, sub)
		}
	}
	return preview, nil
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return (part*100 + whole/2) / whole
}
