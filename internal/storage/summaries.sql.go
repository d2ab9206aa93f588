package storage

import (
	"context"

	"github.com/shopspring/decimal"
)

const deleteMonthSummaries = `-- name: DeleteMonthSummaries :execrows
DELETE FROM monthly_category_summary
WHERE year = ? AND month = ?`

func (q *Queries) DeleteMonthSummaries(ctx context.Context, year, month int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMonthSummaries, year, month)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllSummaries = `-- name: DeleteAllSummaries :execrows
DELETE FROM monthly_category_summary`

func (q *Queries) DeleteAllSummaries(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllSummaries)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertSummary = `-- name: InsertSummary :exec
INSERT INTO monthly_category_summary (
    year, month, category_id, total_amount_in_base_currency, base_currency, transactions_count, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertSummaryParams struct {
	Year                      int64
	Month                     int64
	CategoryID                int64
	TotalAmountInBaseCurrency decimal.Decimal
	BaseCurrency              string
	TransactionsCount         int64
	UpdatedAt                 string
}

func (q *Queries) InsertSummary(ctx context.Context, arg InsertSummaryParams) error {
	_, err := q.db.ExecContext(ctx, insertSummary,
		arg.Year,
		arg.Month,
		arg.CategoryID,
		arg.TotalAmountInBaseCurrency,
		arg.BaseCurrency,
		arg.TransactionsCount,
		arg.UpdatedAt,
	)
	return err
}

const listSummariesBetween = `-- name: ListSummariesBetween :many
SELECT m.year, m.month, m.category_id, m.total_amount_in_base_currency, m.base_currency,
    m.transactions_count, m.updated_at, c.value, c.label
FROM monthly_category_summary m
LEFT JOIN categories c ON c.id = m.category_id
WHERE (m.year * 100 + m.month) BETWEEN ? AND ?
ORDER BY m.year, m.month, m.category_id`

// ListSummariesBetween takes inclusive bounds encoded as year*100+month.
func (q *Queries) ListSummariesBetween(ctx context.Context, from, to int64) ([]CategorySummaryRow, error) {
	rows, err := q.db.QueryContext(ctx, listSummariesBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySummaryRow
	for rows.Next() {
		var i CategorySummaryRow
		if err := rows.Scan(
			&i.Year,
			&i.Month,
			&i.CategoryID,
			&i.TotalAmountInBaseCurrency,
			&i.BaseCurrency,
			&i.TransactionsCount,
			&i.UpdatedAt,
			&i.CategoryValue,
			&i.CategoryLabel,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
