package services

import (
	"context"
	"log/slog"
	"time"

	"billflow/internal/cache"

	"github.com/shopspring/decimal"
)

// maxRateDepth bounds the bridge-through-base recursion.
const maxRateDepth = 2

var one = decimal.NewFromInt(1)

// RateLookup reads a single stored exchange rate.
type RateLookup interface {
	ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, bool, error)
}

type ratePair struct {
	from, to string
}

type storedRate struct {
	rate decimal.Decimal
	ok   bool
}

// CurrencyResolver converts between currencies using stored rates, the
// reciprocal of the reverse rate, or a bridge through the base currency.
// An unresolvable pair degrades to the identity rate.
type CurrencyResolver struct {
	rates RateLookup
	base  string
	cache *cache.LRUCache[ratePair, storedRate]
}

// NewCurrencyResolver builds a resolver. A positive cacheTTL keeps stored
// lookups in memory for that long.
func NewCurrencyResolver(rates RateLookup, base string, cacheTTL time.Duration) *CurrencyResolver {
	r := &CurrencyResolver{rates: rates, base: base}
	if cacheTTL > 0 {
		r.cache = cache.NewLRUCache[ratePair, storedRate](256, cacheTTL)
	}
	return r
}

// Base returns the currency summaries are expressed in.
func (r *CurrencyResolver) Base() string {
	return r.base
}

// Invalidate drops cached lookups, typically after a rate refresh.
func (r *CurrencyResolver) Invalidate() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// InvalidateCurrencies drops cached lookups that involve any of codes.
func (r *CurrencyResolver) InvalidateCurrencies(codes ...string) int {
	if r.cache == nil || len(codes) == 0 {
		return 0
	}
	changed := make(map[string]bool, len(codes))
	for _, c := range codes {
		changed[c] = true
	}
	return r.cache.DeleteFunc(func(p ratePair) bool {
		return changed[p.from] || changed[p.to]
	})
}

// CleanExpired drops expired lookups so a cache.Manager can sweep the resolver.
func (r *CurrencyResolver) CleanExpired() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.CleanExpired()
}

// Rate returns how many units of to one unit of from buys.
func (r *CurrencyResolver) Rate(ctx context.Context, from, to string) decimal.Decimal {
	if rate, ok := r.resolve(ctx, from, to, 0); ok {
		return rate
	}
	slog.WarnContext(ctx, "Exchange rate unresolved, falling back to identity",
		"from", from,
		"to", to,
		"base", r.base)
	return one
}

// Convert expresses amount (in from) in to. No rounding is applied.
func (r *CurrencyResolver) Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	return amount.Mul(r.Rate(ctx, from, to))
}

func (r *CurrencyResolver) resolve(ctx context.Context, from, to string, depth int) (decimal.Decimal, bool) {
	if from == to {
		return one, true
	}
	if rate, ok := r.stored(ctx, from, to); ok {
		return rate, true
	}
	if rate, ok := r.stored(ctx, to, from); ok {
		return one.Div(rate), true
	}
	if depth+1 < maxRateDepth && from != r.base && to != r.base {
		toBase, ok := r.resolve(ctx, from, r.base, depth+1)
		if !ok {
			return decimal.Zero, false
		}
		fromBase, ok := r.resolve(ctx, r.base, to, depth+1)
		if !ok {
			return decimal.Zero, false
		}
		return toBase.Mul(fromBase), true
	}
	return decimal.Zero, false
}

// stored returns a positive stored rate. Zero or negative rows count as missing.
func (r *CurrencyResolver) stored(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	key := ratePair{from: from, to: to}
	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			return hit.rate, hit.ok
		}
	}

	rate, ok, err := r.rates.ExchangeRate(ctx, from, to)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read exchange rate", "from", from, "to", to, "error", err)
		return decimal.Zero, false
	}
	ok = ok && rate.IsPositive()

	if r.cache != nil {
		r.cache.Set(key, storedRate{rate: rate, ok: ok})
	}
	return rate, ok
}
