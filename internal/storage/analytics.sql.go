package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const listPaymentFacts = `-- name: ListPaymentFacts :many
SELECT payment_date, amount_paid, currency, status
FROM payment_history`

type PaymentFactRow struct {
	PaymentDate string
	AmountPaid  decimal.Decimal
	Currency    string
	Status      string
}

func (q *Queries) queryPaymentFacts(ctx context.Context, query string, args ...any) ([]PaymentFactRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentFactRow
	for rows.Next() {
		var i PaymentFactRow
		if err := rows.Scan(&i.PaymentDate, &i.AmountPaid, &i.Currency, &i.Status); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listPeriodPayments = `-- name: ListPeriodPayments :many
SELECT s.id, s.name, s.plan, s.amount, s.currency, s.billing_cycle, s.status,
    COALESCE(c.value, 'other'), ph.amount_paid, ph.currency,
    ph.billing_period_start, ph.billing_period_end
FROM payment_history ph
JOIN subscriptions s ON s.id = ph.subscription_id
LEFT JOIN categories c ON c.id = s.category_id
WHERE ph.status = 'succeeded'
  AND ph.billing_period_start IS NOT NULL
  AND ph.billing_period_start <= ?
  AND COALESCE(ph.billing_period_end, ph.billing_period_start) >= ?
ORDER BY s.name, s.id, ph.billing_period_start`

type PeriodPaymentRow struct {
	SubscriptionID       int64
	Name                 string
	Plan                 string
	Amount               decimal.Decimal
	SubscriptionCurrency string
	BillingCycle         string
	Status               string
	CategoryValue        string
	AmountPaid           decimal.Decimal
	Currency             string
	BillingPeriodStart   sql.NullString
	BillingPeriodEnd     sql.NullString
}

// ListPeriodPayments returns succeeded payments whose billing period overlaps
// [firstDay, lastDay], both ends inclusive.
func (q *Queries) ListPeriodPayments(ctx context.Context, firstDay, lastDay string) ([]PeriodPaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listPeriodPayments, lastDay, firstDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PeriodPaymentRow
	for rows.Next() {
		var i PeriodPaymentRow
		if err := rows.Scan(
			&i.SubscriptionID,
			&i.Name,
			&i.Plan,
			&i.Amount,
			&i.SubscriptionCurrency,
			&i.BillingCycle,
			&i.Status,
			&i.CategoryValue,
			&i.AmountPaid,
			&i.Currency,
			&i.BillingPeriodStart,
			&i.BillingPeriodEnd,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listSubscriptionFacts = `-- name: ListSubscriptionFacts :many
SELECT s.status, s.billing_cycle, s.amount, s.currency,
    COALESCE(c.value, 'other'), COALESCE(c.label, 'Other')
FROM subscriptions s
LEFT JOIN categories c ON c.id = s.category_id
ORDER BY s.id`

type SubscriptionFactRow struct {
	Status        string
	BillingCycle  string
	Amount        decimal.Decimal
	Currency      string
	CategoryValue string
	CategoryLabel string
}

func (q *Queries) ListSubscriptionFacts(ctx context.Context) ([]SubscriptionFactRow, error) {
	rows, err := q.db.QueryContext(ctx, listSubscriptionFacts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SubscriptionFactRow
	for rows.Next() {
		var i SubscriptionFactRow
		if err := rows.Scan(&i.Status, &i.BillingCycle, &i.Amount, &i.Currency, &i.CategoryValue, &i.CategoryLabel); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
