package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const paymentColumns = `id, subscription_id, payment_date, amount_paid, currency,
    billing_period_start, billing_period_end, status, notes, created_at`

func scanPayment(row interface{ Scan(...any) error }) (PaymentHistory, error) {
	var i PaymentHistory
	err := row.Scan(
		&i.ID,
		&i.SubscriptionID,
		&i.PaymentDate,
		&i.AmountPaid,
		&i.Currency,
		&i.BillingPeriodStart,
		&i.BillingPeriodEnd,
		&i.Status,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payment_history (
    subscription_id, payment_date, amount_paid, currency,
    billing_period_start, billing_period_end, status, notes, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreatePaymentParams struct {
	SubscriptionID     int64
	PaymentDate        string
	AmountPaid         decimal.Decimal
	Currency           string
	BillingPeriodStart sql.NullString
	BillingPeriodEnd   sql.NullString
	Status             string
	Notes              string
	CreatedAt          string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createPayment,
		arg.SubscriptionID,
		arg.PaymentDate,
		arg.AmountPaid,
		arg.Currency,
		arg.BillingPeriodStart,
		arg.BillingPeriodEnd,
		arg.Status,
		arg.Notes,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + `
FROM payment_history
WHERE id = ?`

func (q *Queries) GetPayment(ctx context.Context, id int64) (PaymentHistory, error) {
	row := q.db.QueryRowContext(ctx, getPayment, id)
	return scanPayment(row)
}

const listPaymentsBySubscription = `-- name: ListPaymentsBySubscription :many
SELECT ` + paymentColumns + `
FROM payment_history
WHERE subscription_id = ?
ORDER BY payment_date, id`

func (q *Queries) ListPaymentsBySubscription(ctx context.Context, subscriptionID int64) ([]PaymentHistory, error) {
	return q.queryPayments(ctx, listPaymentsBySubscription, subscriptionID)
}

func (q *Queries) queryPayments(ctx context.Context, query string, args ...any) ([]PaymentHistory, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentHistory
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPaymentMonthsBySubscription = `-- name: ListPaymentMonthsBySubscription :many
SELECT DISTINCT CAST(strftime('%Y', payment_date) AS INTEGER), CAST(strftime('%m', payment_date) AS INTEGER)
FROM payment_history
WHERE subscription_id = ?`

func (q *Queries) ListPaymentMonthsBySubscription(ctx context.Context, subscriptionID int64) ([][2]int64, error) {
	return q.queryMonths(ctx, listPaymentMonthsBySubscription, subscriptionID)
}

const listSucceededPaymentMonths = `-- name: ListSucceededPaymentMonths :many
SELECT DISTINCT CAST(strftime('%Y', payment_date) AS INTEGER), CAST(strftime('%m', payment_date) AS INTEGER)
FROM payment_history
WHERE status = 'succeeded'`

func (q *Queries) ListSucceededPaymentMonths(ctx context.Context) ([][2]int64, error) {
	return q.queryMonths(ctx, listSucceededPaymentMonths)
}

func (q *Queries) queryMonths(ctx context.Context, query string, args ...any) ([][2]int64, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items [][2]int64
	for rows.Next() {
		var ym [2]int64
		if err := rows.Scan(&ym[0], &ym[1]); err != nil {
			return nil, err
		}
		items = append(items, ym)
	}
	return items, rows.Err()
}

const listSucceededPaymentsForMonth = `-- name: ListSucceededPaymentsForMonth :many
SELECT ph.id, ph.amount_paid, ph.currency,
    COALESCE(c.id, (SELECT id FROM categories WHERE value = 'other'), 0)
FROM payment_history ph
JOIN subscriptions s ON s.id = ph.subscription_id
LEFT JOIN categories c ON c.id = s.category_id
WHERE ph.status = 'succeeded'
  AND ph.payment_date BETWEEN ? AND ?
ORDER BY ph.id`

func (q *Queries) ListSucceededPaymentsForMonth(ctx context.Context, firstDay, lastDay string) ([]MonthPaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listSucceededPaymentsForMonth, firstDay, lastDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthPaymentRow
	for rows.Next() {
		var i MonthPaymentRow
		if err := rows.Scan(&i.PaymentID, &i.AmountPaid, &i.Currency, &i.CategoryID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updatePayment = `-- name: UpdatePayment :execrows
UPDATE payment_history
SET payment_date = ?, amount_paid = ?, currency = ?, billing_period_start = ?,
    billing_period_end = ?, status = ?, notes = ?
WHERE id = ?`

type UpdatePaymentParams struct {
	PaymentDate        string
	AmountPaid         decimal.Decimal
	Currency           string
	BillingPeriodStart sql.NullString
	BillingPeriodEnd   sql.NullString
	Status             string
	Notes              string
	ID                 int64
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePayment,
		arg.PaymentDate,
		arg.AmountPaid,
		arg.Currency,
		arg.BillingPeriodStart,
		arg.BillingPeriodEnd,
		arg.Status,
		arg.Notes,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePayment = `-- name: DeletePayment :execrows
DELETE FROM payment_history
WHERE id = ?`

func (q *Queries) DeletePayment(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePayment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePaymentsBySubscription = `-- name: DeletePaymentsBySubscription :execrows
DELETE FROM payment_history
WHERE subscription_id = ?`

func (q *Queries) DeletePaymentsBySubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePaymentsBySubscription, subscriptionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
