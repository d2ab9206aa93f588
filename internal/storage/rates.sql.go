package storage

import (
	"context"

	"github.com/shopspring/decimal"
)

const getExchangeRate = `-- name: GetExchangeRate :one
SELECT from_currency, to_currency, rate, updated_at
FROM exchange_rates
WHERE from_currency = ? AND to_currency = ?`

func (q *Queries) GetExchangeRate(ctx context.Context, from, to string) (ExchangeRate, error) {
	row := q.db.QueryRowContext(ctx, getExchangeRate, from, to)
	var i ExchangeRate
	err := row.Scan(&i.FromCurrency, &i.ToCurrency, &i.Rate, &i.UpdatedAt)
	return i, err
}

const listExchangeRates = `-- name: ListExchangeRates :many
SELECT from_currency, to_currency, rate, updated_at
FROM exchange_rates
ORDER BY from_currency, to_currency`

func (q *Queries) ListExchangeRates(ctx context.Context) ([]ExchangeRate, error) {
	rows, err := q.db.QueryContext(ctx, listExchangeRates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExchangeRate
	for rows.Next() {
		var i ExchangeRate
		if err := rows.Scan(&i.FromCurrency, &i.ToCurrency, &i.Rate, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertExchangeRate = `-- name: UpsertExchangeRate :exec
INSERT INTO exchange_rates (from_currency, to_currency, rate, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (from_currency, to_currency) DO UPDATE SET
    rate = excluded.rate,
    updated_at = excluded.updated_at`

type UpsertExchangeRateParams struct {
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	UpdatedAt    string
}

func (q *Queries) UpsertExchangeRate(ctx context.Context, arg UpsertExchangeRateParams) error {
	_, err := q.db.ExecContext(ctx, upsertExchangeRate, arg.FromCurrency, arg.ToCurrency, arg.Rate, arg.UpdatedAt)
	return err
}

const countExchangeRates = `-- name: CountExchangeRates :one
SELECT COUNT(*) FROM exchange_rates`

func (q *Queries) CountExchangeRates(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExchangeRates)
	var count int64
	err := row.Scan(&count)
	return count, err
}
