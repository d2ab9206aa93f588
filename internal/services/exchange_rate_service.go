package services

import (
	"context"
	"fmt"
	"log/slog"

	"billflow/internal/core"
)

// RateProvider fetches base-anchored rates from an external source.
type RateProvider interface {
	Latest(ctx context.Context, base string) ([]core.ExchangeRate, error)
}

// RateStore persists exchange rates.
type RateStore interface {
	UpsertExchangeRates(ctx context.Context, rates []core.ExchangeRate) error
	CountExchangeRates(ctx context.Context) (int64, error)
	ListExchangeRates(ctx context.Context) ([]core.ExchangeRate, error)
}

// ExchangeRateService keeps the stored rate table current.
type ExchangeRateService struct {
	store    RateStore
	provider RateProvider
	resolver *CurrencyResolver
}

// NewExchangeRateService wires a refresh path. provider may be nil when no
// API key is configured; Refresh then only reports that nothing was fetched.
func NewExchangeRateService(store RateStore, provider RateProvider, resolver *CurrencyResolver) *ExchangeRateService {
	return &ExchangeRateService{store: store, provider: provider, resolver: resolver}
}

// Refresh fetches the latest rates and applies them in one batch.
func (s *ExchangeRateService) Refresh(ctx context.Context) (int, error) {
	if s.provider == nil {
		slog.WarnContext(ctx, "Exchange rate provider not configured, skipping refresh")
		return 0, nil
	}

	base := s.resolver.Base()
	rates, err := s.provider.Latest(ctx, base)
	if err != nil {
		return 0, fmt.Errorf("fetch exchange rates: %w", err)
	}
	if len(rates) == 0 {
		slog.WarnContext(ctx, "No exchange rates received", "base", base)
		return 0, nil
	}

	if err := s.store.UpsertExchangeRates(ctx, rates); err != nil {
		return 0, fmt.Errorf("store exchange rates: %w", err)
	}
	codes := make([]string, 0, 2*len(rates))
	for _, rate := range rates {
		codes = append(codes, rate.From, rate.To)
	}
	s.resolver.InvalidateCurrencies(codes...)

	slog.InfoContext(ctx, "Exchange rates updated", "base", base, "count", len(rates))
	return len(rates), nil
}

// SeedDefaults writes the static fallback table when no rates are stored yet.
func (s *ExchangeRateService) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.store.CountExchangeRates(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	rates := core.DefaultExchangeRates(s.resolver.Base())
	if err := s.store.UpsertExchangeRates(ctx, rates); err != nil {
		return 0, fmt.Errorf("seed exchange rates: %w", err)
	}
	s.resolver.Invalidate()

	slog.InfoContext(ctx, "Default exchange rates seeded", "base", s.resolver.Base(), "count", len(rates))
	return len(rates), nil
}

func (s *ExchangeRateService) List(ctx context.Context) ([]core.ExchangeRate, error) {
	return s.store.ListExchangeRates(ctx)
}
