package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	rates []core.ExchangeRate
	err   error
	bases []string
}

func (f *fakeProvider) Latest(_ context.Context, base string) ([]core.ExchangeRate, error) {
	f.bases = append(f.bases, base)
	return f.rates, f.err
}

func TestExchangeRateService_Refresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, d(2024, 6, 1))
	resolver := NewCurrencyResolver(env.repo, "CNY", time.Hour)

	// Warm the cache: CNY->USD is only known as the reciprocal of USD->CNY.
	require.True(t, resolver.Rate(ctx, "CNY", "USD").Equal(decimal.NewFromInt(1).Div(decimal.NewFromInt(7))))

	provider := &fakeProvider{rates: []core.ExchangeRate{
		{From: "CNY", To: "CNY", Rate: decimal.NewFromInt(1)},
		{From: "CNY", To: "USD", Rate: decimal.RequireFromString("0.125")},
	}}
	svc := NewExchangeRateService(env.repo, provider, resolver)

	n, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"CNY"}, provider.bases)

	// The refreshed direct row replaces the cached reciprocal.
	assert.True(t, resolver.Rate(ctx, "CNY", "USD").Equal(decimal.RequireFromString("0.125")))

	stored, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestExchangeRateService_RefreshFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, d(2024, 6, 1))

	n, err := NewExchangeRateService(env.repo, nil, env.resolver).Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = NewExchangeRateService(env.repo, &fakeProvider{}, env.resolver).Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	boom := errors.New("quota exceeded")
	_, err = NewExchangeRateService(env.repo, &fakeProvider{err: boom}, env.resolver).Refresh(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestExchangeRateService_SeedDefaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, d(2024, 6, 1))
	svc := NewExchangeRateService(env.repo, nil, env.resolver)

	// Rates already stored: nothing to seed.
	n, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.repo.DB().Exec("DELETE FROM exchange_rates")
	require.NoError(t, err)

	n, err = svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(core.DefaultExchangeRates("CNY")), n)
	assert.True(t, env.resolver.Rate(ctx, "CNY", "USD").Equal(decimal.RequireFromString("0.1538")))
}
