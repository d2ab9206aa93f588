package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"billflow/internal/core"
	"billflow/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type firedNotification struct {
	SubscriptionID int64
	Type           core.NotificationType
}

type recordingNotifier struct {
	mu    sync.Mutex
	fired []firedNotification
}

func (n *recordingNotifier) Fire(_ context.Context, id int64, t core.NotificationType) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, firedNotification{id, t})
}

func (n *recordingNotifier) Fired() []firedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]firedNotification(nil), n.fired...)
}

type testEnv struct {
	repo       *storage.SQLiteRepository
	resolver   *CurrencyResolver
	aggregates *CategoryAggregator
	ledger     *LedgerGenerator
	subs       *SubscriptionService
	payments   *PaymentService
	renewals   *RenewalProcessor
	analytics  *AnalyticsService
	notifier   *recordingNotifier
	today      core.Date
}

// newTestEnv wires every service against a fresh database with CNY as the
// base currency, USD->CNY 7 and CNY->EUR 0.125 stored, and the clock fixed
// at today.
func newTestEnv(t *testing.T, today core.Date) *testEnv {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "billflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.UpsertExchangeRates(ctx, []core.ExchangeRate{
		{From: "USD", To: "CNY", Rate: decimal.RequireFromString("7")},
		{From: "CNY", To: "EUR", Rate: decimal.RequireFromString("0.125")},
	}))

	clock := func() time.Time { return today.Time.Add(10 * time.Hour) }

	env := &testEnv{repo: repo, notifier: &recordingNotifier{}, today: today}
	env.resolver = NewCurrencyResolver(repo, "CNY", 0)
	env.aggregates = NewCategoryAggregator(repo, env.resolver)
	env.ledger = NewLedgerGenerator(repo, env.aggregates)
	env.ledger.now = clock
	env.subs = NewSubscriptionService(repo, env.ledger, env.aggregates, env.notifier)
	env.subs.now = clock
	env.payments = NewPaymentService(repo, env.aggregates)
	env.renewals = NewRenewalProcessor(repo, env.aggregates, env.notifier)
	env.renewals.now = clock
	env.analytics = NewAnalyticsService(repo, env.resolver)
	return env
}

// insert stores a subscription as is, without generating its ledger.
func (e *testEnv) insert(t *testing.T, sub core.Subscription) core.Subscription {
	t.Helper()
	id, err := e.repo.CreateSubscription(context.Background(), sub)
	require.NoError(t, err)
	got, err := e.repo.GetSubscription(context.Background(), id)
	require.NoError(t, err)
	return got
}

func (e *testEnv) ledgerOf(t *testing.T, subscriptionID int64) []core.PaymentRecord {
	t.Helper()
	ps, err := e.repo.ListPaymentsBySubscription(context.Background(), subscriptionID)
	require.NoError(t, err)
	return ps
}

// monthTotals maps category value to the stored base-currency total of ym.
func (e *testEnv) monthTotals(t *testing.T, ym core.YearMonth) map[string]string {
	t.Helper()
	rows, err := e.aggregates.MonthSummary(context.Background(), ym)
	require.NoError(t, err)
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.CategoryValue] = row.TotalInBase.StringFixed(core.MoneyPlaces)
	}
	return out
}

func (e *testEnv) category(t *testing.T, value string) int64 {
	t.Helper()
	c, err := e.repo.CategoryByValue(context.Background(), value)
	require.NoError(t, err)
	return c.ID
}

func monthlyUSD(name string, start, next core.Date, amount string) core.Subscription {
	return core.Subscription{
		Name:            name,
		BillingCycle:    core.Monthly,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		StartDate:       start,
		NextBillingDate: next,
	}
}

func ym(y, m int) core.YearMonth { return core.YearMonth{Year: y, Month: m} }
