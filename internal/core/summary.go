package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// First returns the first day of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// Last returns the last day of the month.
func (ym YearMonth) Last() Date {
	return NewDate(ym.Year, ym.Month, DaysIn(ym.Year, ym.Month))
}

func (ym YearMonth) Before(o YearMonth) bool {
	return ym.Year < o.Year || (ym.Year == o.Year && ym.Month < o.Month)
}

// MonthSet collects distinct months.
type MonthSet map[YearMonth]struct{}

func (s MonthSet) Add(ym YearMonth) { s[ym] = struct{}{} }

// Sorted returns the months in chronological order.
func (s MonthSet) Sorted() []YearMonth {
	out := make([]YearMonth, 0, len(s))
	for ym := range s {
		out = append(out, ym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// MonthlyCategorySummary is the derived spend of one category in one month,
// expressed in the base currency.
type MonthlyCategorySummary struct {
	Year              int
	Month             int
	CategoryID        int64
	TotalInBase       decimal.Decimal
	BaseCurrency      string
	TransactionsCount int
	UpdatedAt         time.Time
}

// CategorySummary is a summary row joined with category labels.
type CategorySummary struct {
	MonthlyCategorySummary
	CategoryValue string
	CategoryLabel string
}

// CategoryTotal aggregates one category over a range of months.
type CategoryTotal struct {
	CategoryID        int64
	CategoryValue     string
	CategoryLabel     string
	Total             decimal.Decimal
	TransactionsCount int
}

// TotalSummary aggregates all categories over a range of months.
type TotalSummary struct {
	From              YearMonth
	To                YearMonth
	BaseCurrency      string
	Total             decimal.Decimal
	TransactionsCount int
	Categories        []CategoryTotal
}

// SummaryExport is one year of category spend laid out month by month.
type SummaryExport struct {
	Year         int
	BaseCurrency string
	Rows         []SummaryExportRow
	Total        decimal.Decimal
}

// SummaryExportRow holds one category's spend for each month of the year.
type SummaryExportRow struct {
	CategoryValue string
	CategoryLabel string
	Months        [12]decimal.Decimal
	Total         decimal.Decimal
}
