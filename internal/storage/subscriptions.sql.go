package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const subscriptionColumns = `id, name, plan, billing_cycle, amount, currency, payment_method_id, category_id,
    start_date, last_billing_date, next_billing_date, status, renewal_type, notes, website, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }, extra ...any) (Subscription, error) {
	var i Subscription
	dest := []any{
		&i.ID,
		&i.Name,
		&i.Plan,
		&i.BillingCycle,
		&i.Amount,
		&i.Currency,
		&i.PaymentMethodID,
		&i.CategoryID,
		&i.StartDate,
		&i.LastBillingDate,
		&i.NextBillingDate,
		&i.Status,
		&i.RenewalType,
		&i.Notes,
		&i.Website,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return i, err
}

const createSubscription = `-- name: CreateSubscription :one
INSERT INTO subscriptions (
    name, plan, billing_cycle, amount, currency, payment_method_id, category_id,
    start_date, last_billing_date, next_billing_date, status, renewal_type, notes, website,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateSubscriptionParams struct {
	Name            string
	Plan            string
	BillingCycle    string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID sql.NullInt64
	CategoryID      sql.NullInt64
	StartDate       string
	LastBillingDate sql.NullString
	NextBillingDate string
	Status          string
	RenewalType     string
	Notes           string
	Website         string
	CreatedAt       string
	UpdatedAt       string
}

func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSubscription,
		arg.Name,
		arg.Plan,
		arg.BillingCycle,
		arg.Amount,
		arg.Currency,
		arg.PaymentMethodID,
		arg.CategoryID,
		arg.StartDate,
		arg.LastBillingDate,
		arg.NextBillingDate,
		arg.Status,
		arg.RenewalType,
		arg.Notes,
		arg.Website,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getSubscription = `-- name: GetSubscription :one
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE id = ?`

func (q *Queries) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscription, id)
	return scanSubscription(row)
}

const getSubscriptionDetails = `-- name: GetSubscriptionDetails :one
SELECT s.id, s.name, s.plan, s.billing_cycle, s.amount, s.currency, s.payment_method_id, s.category_id,
    s.start_date, s.last_billing_date, s.next_billing_date, s.status, s.renewal_type, s.notes, s.website,
    s.created_at, s.updated_at,
    c.value, c.label, pm.value, pm.label
FROM subscriptions s
LEFT JOIN categories c ON c.id = s.category_id
LEFT JOIN payment_methods pm ON pm.id = s.payment_method_id
WHERE s.id = ?`

func (q *Queries) GetSubscriptionDetails(ctx context.Context, id int64) (SubscriptionDetailsRow, error) {
	row := q.db.QueryRowContext(ctx, getSubscriptionDetails, id)
	var i SubscriptionDetailsRow
	sub, err := scanSubscription(row,
		&i.CategoryValue,
		&i.CategoryLabel,
		&i.PaymentMethodValue,
		&i.PaymentMethodLabel,
	)
	i.Subscription = sub
	return i, err
}

const listSubscriptions = `-- name: ListSubscriptions :many
SELECT ` + subscriptionColumns + `
FROM subscriptions
ORDER BY id`

func (q *Queries) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	return q.querySubscriptions(ctx, listSubscriptions)
}

const listSubscriptionsByStatusAndRenewal = `-- name: ListSubscriptionsByStatusAndRenewal :many
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE status = ? AND renewal_type = ?
ORDER BY next_billing_date, id`

type ListSubscriptionsByStatusAndRenewalParams struct {
	Status      string
	RenewalType string
}

func (q *Queries) ListSubscriptionsByStatusAndRenewal(ctx context.Context, arg ListSubscriptionsByStatusAndRenewalParams) ([]Subscription, error) {
	return q.querySubscriptions(ctx, listSubscriptionsByStatusAndRenewal, arg.Status, arg.RenewalType)
}

const listSubscriptionsDueBetween = `-- name: ListSubscriptionsDueBetween :many
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE status = 'active' AND next_billing_date BETWEEN ? AND ?
ORDER BY next_billing_date, id`

func (q *Queries) ListSubscriptionsDueBetween(ctx context.Context, from, to string) ([]Subscription, error) {
	return q.querySubscriptions(ctx, listSubscriptionsDueBetween, from, to)
}

const searchSubscriptions = `-- name: SearchSubscriptions :many
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE name LIKE '%' || ? || '%' OR plan LIKE '%' || ? || '%'
ORDER BY id`

func (q *Queries) SearchSubscriptions(ctx context.Context, term string) ([]Subscription, error) {
	return q.querySubscriptions(ctx, searchSubscriptions, term, term)
}

func (q *Queries) querySubscriptions(ctx context.Context, query string, args ...any) ([]Subscription, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Subscription
	for rows.Next() {
		i, err := scanSubscription(rows)
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

const updateSubscriptionBilling = `-- name: UpdateSubscriptionBilling :execrows
UPDATE subscriptions
SET last_billing_date = ?, next_billing_date = ?, status = ?, updated_at = ?
WHERE id = ?`

type UpdateSubscriptionBillingParams struct {
	LastBillingDate sql.NullString
	NextBillingDate string
	Status          string
	UpdatedAt       string
	ID              int64
}

func (q *Queries) UpdateSubscriptionBilling(ctx context.Context, arg UpdateSubscriptionBillingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSubscriptionBilling,
		arg.LastBillingDate,
		arg.NextBillingDate,
		arg.Status,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateSubscriptionStatus = `-- name: UpdateSubscriptionStatus :execrows
UPDATE subscriptions
SET status = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateSubscriptionStatus(ctx context.Context, id int64, status, updatedAt string) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSubscriptionStatus, status, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteSubscription = `-- name: DeleteSubscription :execrows
DELETE FROM subscriptions
WHERE id = ?`

func (q *Queries) DeleteSubscription(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSubscription, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllSubscriptions = `-- name: DeleteAllSubscriptions :execrows
DELETE FROM subscriptions`

func (q *Queries) DeleteAllSubscriptions(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllSubscriptions)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getCategoryByValue = `-- name: GetCategoryByValue :one
SELECT id, value, label FROM categories
WHERE value = ?`

func (q *Queries) GetCategoryByValue(ctx context.Context, value string) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategoryByValue, value)
	var i Category
	err := row.Scan(&i.ID, &i.Value, &i.Label)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT id, value, label FROM categories
ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Value, &i.Label); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (value, label) VALUES (?, ?)
RETURNING id`

func (q *Queries) CreateCategory(ctx context.Context, value, label string) (int64, error) {
	row := q.db.QueryRowContext(ctx, createCategory, value, label)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getPaymentMethodByValue = `-- name: GetPaymentMethodByValue :one
SELECT id, value, label FROM payment_methods
WHERE value = ?`

func (q *Queries) GetPaymentMethodByValue(ctx context.Context, value string) (PaymentMethod, error) {
	row := q.db.QueryRowContext(ctx, getPaymentMethodByValue, value)
	var i PaymentMethod
	err := row.Scan(&i.ID, &i.Value, &i.Label)
	return i, err
}
