package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billflow/internal/core"
)

const generatedPaymentNote = "Auto-generated from subscription data"

// LedgerStore is the storage surface the ledger generator needs.
type LedgerStore interface {
	GetSubscription(ctx context.Context, id int64) (core.Subscription, error)
	CreatePayment(ctx context.Context, p core.PaymentRecord) (int64, error)
	DeletePaymentsBySubscription(ctx context.Context, subscriptionID int64) (int64, error)
	PaymentMonthsBySubscription(ctx context.Context, subscriptionID int64) ([]core.YearMonth, error)
}

// PaymentAggregates receives ledger changes so summaries follow them.
type PaymentAggregates interface {
	OnPaymentCreated(ctx context.Context, paymentID int64) error
	RecomputeMonths(ctx context.Context, months ...core.YearMonth) error
}

// LedgerResult describes one generation run.
type LedgerResult struct {
	SubscriptionID int64
	Payments       int
	Months         []core.YearMonth
}

// LedgerGenerator derives a subscription's payment history from its start
// date, cycle and last billing date.
type LedgerGenerator struct {
	store      LedgerStore
	aggregates PaymentAggregates
	now        func() time.Time
}

func NewLedgerGenerator(store LedgerStore, aggregates PaymentAggregates) *LedgerGenerator {
	return &LedgerGenerator{store: store, aggregates: aggregates, now: time.Now}
}

func (g *LedgerGenerator) today() core.Date {
	return core.DateOf(g.now())
}

// Generate writes one succeeded payment per cycle boundary from the start date
// through the last billing date, or today when the subscription was never
// billed. Boundaries are inclusive on both ends.
func (g *LedgerGenerator) Generate(ctx context.Context, subscriptionID int64) (LedgerResult, error) {
	sub, err := g.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return LedgerResult{}, fmt.Errorf("load subscription for ledger: %w", err)
	}

	end := sub.LastBillingDate
	if end.IsZero() {
		end = g.today()
	}

	result := LedgerResult{SubscriptionID: subscriptionID}
	months := core.MonthSet{}

	for k := 0; ; k++ {
		periodStart, err := CycleBoundary(sub.StartDate, sub.BillingCycle, k)
		if err != nil {
			return result, err
		}
		if periodStart.After(end) {
			break
		}
		periodEnd, err := CycleBoundary(sub.StartDate, sub.BillingCycle, k+1)
		if err != nil {
			return result, err
		}

		id, err := g.store.CreatePayment(ctx, core.PaymentRecord{
			SubscriptionID:     subscriptionID,
			PaymentDate:        periodStart,
			AmountPaid:         sub.Amount,
			Currency:           sub.Currency,
			BillingPeriodStart: periodStart,
			BillingPeriodEnd:   periodEnd,
			Status:             core.PaymentSucceeded,
			Notes:              generatedPaymentNote,
		})
		if err != nil {
			result.Months = months.Sorted()
			return result, fmt.Errorf("write ledger payment %d: %w", k, err)
		}
		result.Payments++
		months.Add(periodStart.YearMonth())

		if err := g.aggregates.OnPaymentCreated(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to update monthly summary for generated payment",
				"subscription_id", subscriptionID,
				"payment_id", id,
				"error", err)
		}
	}

	result.Months = months.Sorted()
	slog.InfoContext(ctx, "Payment history generated",
		"subscription_id", subscriptionID,
		"payments", result.Payments,
		"start_date", sub.StartDate.String(),
		"end_date", end.String())
	return result, nil
}

// Regenerate replaces the subscription's whole ledger. Months that only the
// old ledger touched are recomputed afterwards so their summaries drop the
// removed payments.
func (g *LedgerGenerator) Regenerate(ctx context.Context, subscriptionID int64) (LedgerResult, error) {
	if _, err := g.store.GetSubscription(ctx, subscriptionID); err != nil {
		return LedgerResult{}, fmt.Errorf("load subscription for ledger: %w", err)
	}

	oldMonths, err := g.store.PaymentMonthsBySubscription(ctx, subscriptionID)
	if err != nil {
		return LedgerResult{}, err
	}

	deleted, err := g.store.DeletePaymentsBySubscription(ctx, subscriptionID)
	if err != nil {
		return LedgerResult{}, err
	}

	result, err := g.Generate(ctx, subscriptionID)
	if err != nil {
		return result, err
	}

	touched := core.MonthSet{}
	for _, ym := range result.Months {
		touched.Add(ym)
	}
	var stale []core.YearMonth
	for _, ym := range oldMonths {
		if _, ok := touched[ym]; !ok {
			stale = append(stale, ym)
		}
	}
	if err := g.aggregates.RecomputeMonths(ctx, stale...); err != nil {
		slog.ErrorContext(ctx, "Failed to recompute months left by old ledger",
			"subscription_id", subscriptionID,
			"months", len(stale),
			"error", err)
	}

	slog.InfoContext(ctx, "Payment history regenerated",
		"subscription_id", subscriptionID,
		"deleted", deleted,
		"created", result.Payments,
		"stale_months", len(stale))
	return result, nil
}
