package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
)

// SummaryStore is the storage surface the aggregator needs.
type SummaryStore interface {
	GetPayment(ctx context.Context, id int64) (core.PaymentRecord, error)
	SucceededPaymentsInMonth(ctx context.Context, ym core.YearMonth) ([]core.CategorizedPayment, error)
	SucceededPaymentMonths(ctx context.Context) ([]core.YearMonth, error)
	ReplaceMonthSummaries(ctx context.Context, ym core.YearMonth, rows []core.MonthlyCategorySummary) error
	DeleteAllSummaries(ctx context.Context) error
	ListSummaries(ctx context.Context, from, to core.YearMonth) ([]core.CategorySummary, error)
}

// Converter turns an amount into the base currency.
type Converter interface {
	Base() string
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal
}

// CategoryAggregator keeps monthly_category_summary consistent with the
// payment ledger. Every write rebuilds whole months, so any month can be
// recomputed at any time without drift.
type CategoryAggregator struct {
	store SummaryStore
	rates Converter
}

func NewCategoryAggregator(store SummaryStore, rates Converter) *CategoryAggregator {
	return &CategoryAggregator{store: store, rates: rates}
}

// RecomputeMonth rebuilds every category row of one month from its succeeded
// payments. A month without payments ends up with no rows.
func (a *CategoryAggregator) RecomputeMonth(ctx context.Context, ym core.YearMonth) error {
	payments, err := a.store.SucceededPaymentsInMonth(ctx, ym)
	if err != nil {
		return fmt.Errorf("load payments for %s: %w", ym, err)
	}

	base := a.rates.Base()
	type bucket struct {
		total decimal.Decimal
		count int
	}
	buckets := make(map[int64]*bucket)
	for _, p := range payments {
		b, ok := buckets[p.CategoryID]
		if !ok {
			b = &bucket{total: decimal.Zero}
			buckets[p.CategoryID] = b
		}
		b.total = b.total.Add(a.rates.Convert(ctx, p.Amount, p.Currency, base))
		b.count++
	}

	categoryIDs := make([]int64, 0, len(buckets))
	for id := range buckets {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Slice(categoryIDs, func(i, j int) bool { return categoryIDs[i] < categoryIDs[j] })

	rows := make([]core.MonthlyCategorySummary, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		b := buckets[id]
		rows = append(rows, core.MonthlyCategorySummary{
			Year:              ym.Year,
			Month:             ym.Month,
			CategoryID:        id,
			TotalInBase:       core.RoundMoney(b.total),
			BaseCurrency:      base,
			TransactionsCount: b.count,
		})
	}

	if err := a.store.ReplaceMonthSummaries(ctx, ym, rows); err != nil {
		return fmt.Errorf("write summaries for %s: %w", ym, err)
	}

	slog.DebugContext(ctx, "Monthly category summary recomputed",
		"year", ym.Year,
		"month", ym.Month,
		"categories", len(rows),
		"payments", len(payments))
	return nil
}

// RecomputeMonths recomputes each month on its own; one failing month does not
// stop the others.
func (a *CategoryAggregator) RecomputeMonths(ctx context.Context, months ...core.YearMonth) error {
	set := core.MonthSet{}
	for _, ym := range months {
		set.Add(ym)
	}
	var errs []error
	for _, ym := range set.Sorted() {
		if err := a.RecomputeMonth(ctx, ym); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecomputeAll clears the summary table and rebuilds every month that has a
// succeeded payment. Safe to re-run to repair drift.
func (a *CategoryAggregator) RecomputeAll(ctx context.Context) (int, error) {
	months, err := a.store.SucceededPaymentMonths(ctx)
	if err != nil {
		return 0, fmt.Errorf("list payment months: %w", err)
	}
	if err := a.store.DeleteAllSummaries(ctx); err != nil {
		return 0, err
	}

	rebuilt := 0
	var errs []error
	for _, ym := range months {
		if err := a.RecomputeMonth(ctx, ym); err != nil {
			slog.ErrorContext(ctx, "Failed to recompute month", "month", ym.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		rebuilt++
	}

	slog.InfoContext(ctx, "Monthly category summaries rebuilt",
		"months", rebuilt,
		"errors", len(errs))
	return rebuilt, errors.Join(errs...)
}

// OnPaymentCreated recomputes the month of a newly inserted payment.
func (a *CategoryAggregator) OnPaymentCreated(ctx context.Context, paymentID int64) error {
	p, err := a.store.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	return a.RecomputeMonth(ctx, p.PaymentDate.YearMonth())
}

// OnPaymentUpdated recomputes the old month and, if the payment moved, the new one.
func (a *CategoryAggregator) OnPaymentUpdated(ctx context.Context, oldDate, newDate core.Date) error {
	oldMonth, newMonth := oldDate.YearMonth(), newDate.YearMonth()
	if oldMonth == newMonth {
		return a.RecomputeMonth(ctx, oldMonth)
	}
	return errors.Join(
		a.RecomputeMonth(ctx, oldMonth),
		a.RecomputeMonth(ctx, newMonth),
	)
}

// OnPaymentDeleted recomputes the month the deleted payment was dated in.
func (a *CategoryAggregator) OnPaymentDeleted(ctx context.Context, ym core.YearMonth) error {
	return a.RecomputeMonth(ctx, ym)
}

// MonthSummary returns the category rows of one month.
func (a *CategoryAggregator) MonthSummary(ctx context.Context, ym core.YearMonth) ([]core.CategorySummary, error) {
	return a.store.ListSummaries(ctx, ym, ym)
}

// RangeSummary returns every category row in [from, to].
func (a *CategoryAggregator) RangeSummary(ctx context.Context, from, to core.YearMonth) ([]core.CategorySummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s before start %s", core.ErrValidation, to, from)
	}
	return a.store.ListSummaries(ctx, from, to)
}

// TotalSummary folds the rows in [from, to] into per-category totals.
func (a *CategoryAggregator) TotalSummary(ctx context.Context, from, to core.YearMonth) (core.TotalSummary, error) {
	rows, err := a.RangeSummary(ctx, from, to)
	if err != nil {
		return core.TotalSummary{}, err
	}

	out := core.TotalSummary{From: from, To: to, BaseCurrency: a.rates.Base(), Total: decimal.Zero}
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.CategoryID]
		if !ok {
			i = len(out.Categories)
			index[row.CategoryID] = i
			out.Categories = append(out.Categories, core.CategoryTotal{
				CategoryID:    row.CategoryID,
				CategoryValue: row.CategoryValue,
				CategoryLabel: row.CategoryLabel,
				Total:         decimal.Zero,
			})
		}
		out.Categories[i].Total = out.Categories[i].Total.Add(row.TotalInBase)
		out.Categories[i].TransactionsCount += row.TransactionsCount
		out.Total = out.Total.Add(row.TotalInBase)
		out.TransactionsCount += row.TransactionsCount
	}
	sort.SliceStable(out.Categories, func(i, j int) bool {
		return out.Categories[i].Total.GreaterThan(out.Categories[j].Total)
	})
	return out, nil
}
