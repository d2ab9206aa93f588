package storage

import (
	"context"
	"fmt"

	"billflow/internal/core"
)

// PaymentFacts returns the ledger rows matching f in payment date order.
func (r *SQLiteRepository) PaymentFacts(ctx context.Context, f core.FactFilter) ([]core.PaymentFact, error) {
	var w whereBuilder
	if !f.From.IsZero() {
		w.add("payment_date >= ?", f.From.String())
	}
	if !f.To.IsZero() {
		w.add("payment_date <= ?", f.To.String())
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Currency != "" {
		w.add("currency = ?", f.Currency)
	}

	rows, err := r.queries.queryPaymentFacts(ctx, listPaymentFacts+w.clause()+" ORDER BY payment_date, id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("list payment facts: %w", err)
	}

	facts := make([]core.PaymentFact, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.PaymentDate)
		if err != nil {
			return nil, fmt.Errorf("payment date: %w", err)
		}
		facts = append(facts, core.PaymentFact{
			Date:     date,
			Amount:   row.AmountPaid,
			Currency: row.Currency,
			Status:   core.PaymentStatus(row.Status),
		})
	}
	return facts, nil
}

// PaymentsOverlapping returns succeeded payments whose billing period touches
// any day of ym, ordered by subscription name.
func (r *SQLiteRepository) PaymentsOverlapping(ctx context.Context, ym core.YearMonth) ([]core.PeriodPayment, error) {
	rows, err := r.queries.ListPeriodPayments(ctx, ym.First().String(), ym.Last().String())
	if err != nil {
		return nil, fmt.Errorf("list payments overlapping %s: %w", ym, err)
	}

	out := make([]core.PeriodPayment, 0, len(rows))
	for _, row := range rows {
		start, err := parseNullDate(row.BillingPeriodStart)
		if err != nil {
			return nil, fmt.Errorf("billing period start: %w", err)
		}
		end, err := parseNullDate(row.BillingPeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("billing period end: %w", err)
		}
		out = append(out, core.PeriodPayment{
			Subscription: core.Subscription{
				ID:           row.SubscriptionID,
				Name:         row.Name,
				Plan:         row.Plan,
				BillingCycle: core.BillingCycle(row.BillingCycle),
				Amount:       row.Amount,
				Currency:     row.SubscriptionCurrency,
				Status:       core.SubscriptionStatus(row.Status),
			},
			CategoryValue: row.CategoryValue,
			Amount:        row.AmountPaid,
			Currency:      row.Currency,
			PeriodStart:   start,
			PeriodEnd:     end,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SubscriptionFacts(ctx context.Context) ([]core.SubscriptionFact, error) {
	rows, err := r.queries.ListSubscriptionFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscription facts: %w", err)
	}
	out := make([]core.SubscriptionFact, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.SubscriptionFact{
			Status:        core.SubscriptionStatus(row.Status),
			BillingCycle:  core.BillingCycle(row.BillingCycle),
			Amount:        row.Amount,
			Currency:      row.Currency,
			CategoryValue: row.CategoryValue,
			CategoryLabel: row.CategoryLabel,
		})
	}
	return out, nil
}
