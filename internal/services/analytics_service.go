package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
)

// AnalyticsStore is the read-only ledger surface behind the statistics.
type AnalyticsStore interface {
	PaymentFacts(ctx context.Context, f core.FactFilter) ([]core.PaymentFact, error)
	PaymentsOverlapping(ctx context.Context, ym core.YearMonth) ([]core.PeriodPayment, error)
	SubscriptionFacts(ctx context.Context) ([]core.SubscriptionFact, error)
}

// PaymentTally counts the payments of one currency. Total and Average cover
// succeeded payments only.
type PaymentTally struct {
	Currency  string
	Payments  int
	Succeeded int
	Failed    int
	Total     decimal.Decimal
	Average   decimal.Decimal
}

func (t *PaymentTally) add(f core.PaymentFact) {
	t.Payments++
	switch f.Status {
	case core.PaymentSucceeded:
		t.Succeeded++
		t.Total = t.Total.Add(f.Amount)
	case core.PaymentFailed:
		t.Failed++
	}
}

func (t *PaymentTally) finish() {
	if t.Succeeded > 0 {
		t.Average = core.RoundMoney(t.Total.Div(decimal.NewFromInt(int64(t.Succeeded))))
	}
	t.Total = core.RoundMoney(t.Total)
}

// MonthTally is a PaymentTally restricted to one month.
type MonthTally struct {
	Month core.YearMonth
	PaymentTally
}

// PaymentStats breaks the ledger of a date range down by currency and by
// month and currency.
type PaymentStats struct {
	From       core.Date
	To         core.Date
	ByCurrency []PaymentTally
	ByMonth    []MonthTally
}

// RevenueFilter narrows MonthlyRevenue. Zero values match everything.
type RevenueFilter struct {
	From     core.Date
	To       core.Date
	Currency string
}

// MonthlyRevenue is the succeeded revenue of one currency in one month.
type MonthlyRevenue struct {
	Month    core.YearMonth
	Currency string
	Total    decimal.Decimal
	Payments int
	Average  decimal.Decimal
}

// RevenueReport lists revenue newest month first. Totals are per currency;
// TotalInBase converts every month into the base currency.
type RevenueReport struct {
	Filter       RevenueFilter
	Months       []MonthlyRevenue
	MonthCount   int
	Payments     int
	Totals       map[string]decimal.Decimal
	Currencies   []string
	TotalInBase  decimal.Decimal
	BaseCurrency string
}

// ActiveSubscription is a subscription with at least one succeeded billing
// period overlapping the reported month. Paid is in the base currency.
type ActiveSubscription struct {
	ID           int64
	Name         string
	Plan         string
	Amount       decimal.Decimal
	Currency     string
	BillingCycle core.BillingCycle
	Status       core.SubscriptionStatus
	Category     string
	Payments     int
	Paid         decimal.Decimal
	PeriodStart  core.Date
	PeriodEnd    core.Date
}

// Bucket counts subscriptions and their base currency revenue.
type Bucket struct {
	Count   int
	Revenue decimal.Decimal
}

// ActiveSubscriptionsReport describes the subscriptions billed for a month.
type ActiveSubscriptionsReport struct {
	Month         core.YearMonth
	From          core.Date
	To            core.Date
	BaseCurrency  string
	Subscriptions []ActiveSubscription
	Payments      int
	Revenue       decimal.Decimal
	ByCategory    map[string]Bucket
	ByCurrency    map[string]Bucket
	ByCycle       map[core.BillingCycle]Bucket
}

// StatsBucket groups subscriptions. ActiveAmount sums the per-cycle amounts of
// active subscriptions in the base currency.
type StatsBucket struct {
	Key          string
	Label        string
	Count        int
	ActiveAmount decimal.Decimal
}

// SubscriptionStats summarises the subscription book.
type SubscriptionStats struct {
	Total         int
	Active        int
	Trial         int
	Cancelled     int
	BaseCurrency  string
	ActiveAmount  decimal.Decimal
	ActiveAverage decimal.Decimal
	ByCategory    []StatsBucket
	ByCycle       []StatsBucket
}

// AnalyticsService derives read-only statistics from the ledger and the
// subscription book. Nothing it computes is stored.
type AnalyticsService struct {
	store AnalyticsStore
	rates Converter
}

func NewAnalyticsService(store AnalyticsStore, rates Converter) *AnalyticsService {
	return &AnalyticsService{store: store, rates: rates}
}

// PaymentStats tallies every payment dated between from and to inclusive.
func (s *AnalyticsService) PaymentStats(ctx context.Context, from, to core.Date) (PaymentStats, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return PaymentStats{}, fmt.Errorf("%w: payment stats range %s..%s", core.ErrValidation, from, to)
	}
	facts, err := s.store.PaymentFacts(ctx, core.FactFilter{From: from, To: to})
	if err != nil {
		return PaymentStats{}, err
	}

	type monthKey struct {
		ym       core.YearMonth
		currency string
	}
	byCurrency := map[string]*PaymentTally{}
	byMonth := map[monthKey]*PaymentTally{}
	for _, f := range facts {
		t, ok := byCurrency[f.Currency]
		if !ok {
			t = &PaymentTally{Currency: f.Currency}
			byCurrency[f.Currency] = t
		}
		t.add(f)

		k := monthKey{f.Date.YearMonth(), f.Currency}
		mt, ok := byMonth[k]
		if !ok {
			mt = &PaymentTally{Currency: f.Currency}
			byMonth[k] = mt
		}
		mt.add(f)
	}

	stats := PaymentStats{From: from, To: to}
	for _, t := range byCurrency {
		t.finish()
		stats.ByCurrency = append(stats.ByCurrency, *t)
	}
	sort.Slice(stats.ByCurrency, func(i, j int) bool {
		a, b := stats.ByCurrency[i], stats.ByCurrency[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Currency < b.Currency
	})

	for k, t := range byMonth {
		t.finish()
		stats.ByMonth = append(stats.ByMonth, MonthTally{Month: k.ym, PaymentTally: *t})
	}
	sort.Slice(stats.ByMonth, func(i, j int) bool {
		a, b := stats.ByMonth[i], stats.ByMonth[j]
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		return a.Currency < b.Currency
	})
	return stats, nil
}

func (s *AnalyticsService) MonthlyPaymentStats(ctx context.Context, year, month int) (PaymentStats, error) {
	if month < 1 || month > 12 {
		return PaymentStats{}, fmt.Errorf("%w: month %d", core.ErrValidation, month)
	}
	ym := core.YearMonth{Year: year, Month: month}
	return s.PaymentStats(ctx, ym.First(), ym.Last())
}

func (s *AnalyticsService) QuarterlyPaymentStats(ctx context.Context, year, quarter int) (PaymentStats, error) {
	first, last, ok := core.Quarter(year, quarter)
	if !ok {
		return PaymentStats{}, fmt.Errorf("%w: quarter %d", core.ErrValidation, quarter)
	}
	return s.PaymentStats(ctx, first.First(), last.Last())
}

func (s *AnalyticsService) YearlyPaymentStats(ctx context.Context, year int) (PaymentStats, error) {
	return s.PaymentStats(ctx, core.NewDate(year, 1, 1), core.NewDate(year, 12, 31))
}

// MonthlyRevenue groups succeeded payments by month and currency.
func (s *AnalyticsService) MonthlyRevenue(ctx context.Context, f RevenueFilter) (RevenueReport, error) {
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	if f.Currency != "" && !core.IsCurrencyCode(f.Currency) {
		return RevenueReport{}, fmt.Errorf("%w: %q", core.ErrInvalidCurrency, f.Currency)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return RevenueReport{}, fmt.Errorf("%w: revenue range %s..%s", core.ErrValidation, f.From, f.To)
	}

	facts, err := s.store.PaymentFacts(ctx, core.FactFilter{
		From:     f.From,
		To:       f.To,
		Status:   core.PaymentSucceeded,
		Currency: f.Currency,
	})
	if err != nil {
		return RevenueReport{}, err
	}

	type key struct {
		ym       core.YearMonth
		currency string
	}
	groups := map[key]*MonthlyRevenue{}
	months := core.MonthSet{}
	report := RevenueReport{
		Filter:       f,
		Totals:       map[string]decimal.Decimal{},
		TotalInBase:  decimal.Zero,
		BaseCurrency: s.rates.Base(),
	}
	for _, fact := range facts {
		k := key{fact.Date.YearMonth(), fact.Currency}
		g, ok := groups[k]
		if !ok {
			g = &MonthlyRevenue{Month: k.ym, Currency: k.currency}
			groups[k] = g
		}
		g.Total = g.Total.Add(fact.Amount)
		g.Payments++
		months.Add(k.ym)
		report.Payments++
		report.Totals[fact.Currency] = report.Totals[fact.Currency].Add(fact.Amount)
	}

	for _, g := range groups {
		g.Average = core.RoundMoney(g.Total.Div(decimal.NewFromInt(int64(g.Payments))))
		report.TotalInBase = report.TotalInBase.Add(s.rates.Convert(ctx, g.Total, g.Currency, report.BaseCurrency))
		g.Total = core.RoundMoney(g.Total)
		report.Months = append(report.Months, *g)
	}
	sort.Slice(report.Months, func(i, j int) bool {
		a, b := report.Months[i], report.Months[j]
		if a.Month != b.Month {
			return b.Month.Before(a.Month)
		}
		return a.Currency < b.Currency
	})

	for c, total := range report.Totals {
		report.Totals[c] = core.RoundMoney(total)
		report.Currencies = append(report.Currencies, c)
	}
	sort.Strings(report.Currencies)
	report.MonthCount = len(months)
	report.TotalInBase = core.RoundMoney(report.TotalInBase)
	return report, nil
}

// ActiveSubscriptions lists the subscriptions with a succeeded billing period
// touching ym. A period that ends on the first of the month still counts.
func (s *AnalyticsService) ActiveSubscriptions(ctx context.Context, ym core.YearMonth) (ActiveSubscriptionsReport, error) {
	if ym.Month < 1 || ym.Month > 12 {
		return ActiveSubscriptionsReport{}, fmt.Errorf("%w: month %d", core.ErrValidation, ym.Month)
	}
	payments, err := s.store.PaymentsOverlapping(ctx, ym)
	if err != nil {
		return ActiveSubscriptionsReport{}, err
	}

	base := s.rates.Base()
	report := ActiveSubscriptionsReport{
		Month:        ym,
		From:         ym.First(),
		To:           ym.Last(),
		BaseCurrency: base,
		Revenue:      decimal.Zero,
		ByCategory:   map[string]Bucket{},
		ByCurrency:   map[string]Bucket{},
		ByCycle:      map[core.BillingCycle]Bucket{},
	}

	index := map[int64]int{}
	for _, p := range payments {
		i, ok := index[p.Subscription.ID]
		if !ok {
			i = len(report.Subscriptions)
			index[p.Subscription.ID] = i
			report.Subscriptions = append(report.Subscriptions, ActiveSubscription{
				ID:           p.Subscription.ID,
				Name:         p.Subscription.Name,
				Plan:         p.Subscription.Plan,
				Amount:       p.Subscription.Amount,
				Currency:     p.Subscription.Currency,
				BillingCycle: p.Subscription.BillingCycle,
				Status:       p.Subscription.Status,
				Category:     p.CategoryValue,
				Paid:         decimal.Zero,
				PeriodStart:  p.PeriodStart,
				PeriodEnd:    p.PeriodEnd,
			})
		}
		sub := &report.Subscriptions[i]
		sub.Payments++
		sub.Paid = sub.Paid.Add(s.rates.Convert(ctx, p.Amount, p.Currency, base))
		if p.PeriodStart.Before(sub.PeriodStart) {
			sub.PeriodStart = p.PeriodStart
		}
		if p.PeriodEnd.After(sub.PeriodEnd) {
			sub.PeriodEnd = p.PeriodEnd
		}
	}

	for i := range report.Subscriptions {
		sub := &report.Subscriptions[i]
		sub.Paid = core.RoundMoney(sub.Paid)
		report.Payments += sub.Payments
		report.Revenue = report.Revenue.Add(sub.Paid)
		report.ByCategory[sub.Category] = report.ByCategory[sub.Category].plus(sub.Paid)
		report.ByCurrency[sub.Currency] = report.ByCurrency[sub.Currency].plus(sub.Paid)
		report.ByCycle[sub.BillingCycle] = report.ByCycle[sub.BillingCycle].plus(sub.Paid)
	}
	return report, nil
}

func (b Bucket) plus(revenue decimal.Decimal) Bucket {
	return Bucket{Count: b.Count + 1, Revenue: b.Revenue.Add(revenue)}
}

// SubscriptionStats counts subscriptions by status, category and cycle.
// Amounts are converted to the base currency and are not normalised across
// cycles.
func (s *AnalyticsService) SubscriptionStats(ctx context.Context) (SubscriptionStats, error) {
	facts, err := s.store.SubscriptionFacts(ctx)
	if err != nil {
		return SubscriptionStats{}, err
	}

	base := s.rates.Base()
	stats := SubscriptionStats{BaseCurrency: base, ActiveAmount: decimal.Zero, ActiveAverage: decimal.Zero}
	categories := map[string]*StatsBucket{}
	cycles := map[string]*StatsBucket{}
	bucket := func(m map[string]*StatsBucket, key, label string) *StatsBucket {
		b, ok := m[key]
		if !ok {
			b = &StatsBucket{Key: key, Label: label, ActiveAmount: decimal.Zero}
			m[key] = b
		}
		return b
	}

	for _, f := range facts {
		stats.Total++
		category := bucket(categories, f.CategoryValue, f.CategoryLabel)
		cycle := bucket(cycles, string(f.BillingCycle), string(f.BillingCycle))
		category.Count++
		cycle.Count++

		switch f.Status {
		case core.StatusActive:
			stats.Active++
			amount := s.rates.Convert(ctx, f.Amount, f.Currency, base)
			stats.ActiveAmount = stats.ActiveAmount.Add(amount)
			category.ActiveAmount = category.ActiveAmount.Add(amount)
			cycle.ActiveAmount = cycle.ActiveAmount.Add(amount)
		case core.StatusTrial:
			stats.Trial++
		case core.StatusCancelled:
			stats.Cancelled++
		}
	}

	if stats.Active > 0 {
		stats.ActiveAverage = core.RoundMoney(stats.ActiveAmount.Div(decimal.NewFromInt(int64(stats.Active))))
	}
	stats.ActiveAmount = core.RoundMoney(stats.ActiveAmount)
	stats.ByCategory = sortedBuckets(categories)
	stats.ByCycle = sortedBuckets(cycles)
	return stats, nil
}

func sortedBuckets(m map[string]*StatsBucket) []StatsBucket {
	out := make([]StatsBucket, 0, len(m))
	for _, b := range m {
		b.ActiveAmount = core.RoundMoney(b.ActiveAmount)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
