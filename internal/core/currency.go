package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBaseCurrency is used when no (or an unsupported) base currency is configured.
const DefaultBaseCurrency = "CNY"

// SupportedCurrencies lists the currencies the rate refresh keeps track of.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY", "CNY", "TRY", "HKD"}

// defaultRates holds fallback base-anchored rates: 1 unit of the outer key
// buys rate units of the inner key.
var defaultRates = map[string]map[string]string{
	"CNY": {"CNY": "1", "USD": "0.1538", "EUR": "0.1308", "GBP": "0.1154", "CAD": "0.1923", "AUD": "0.2077", "JPY": "16.9231", "TRY": "4.2", "HKD": "1.1923"},
	"USD": {"USD": "1", "CNY": "6.5", "EUR": "0.85", "GBP": "0.75", "CAD": "1.25", "AUD": "1.35", "JPY": "110", "TRY": "27", "HKD": "7.8"},
	"EUR": {"EUR": "1", "USD": "1.1765", "CNY": "7.6471", "GBP": "0.8824", "CAD": "1.4706", "AUD": "1.5882", "JPY": "129.4118", "TRY": "31.7647", "HKD": "9.1765"},
	"GBP": {"GBP": "1", "USD": "1.3333", "CNY": "8.6667", "EUR": "1.1333", "CAD": "1.6667", "AUD": "1.8", "JPY": "146.6667", "TRY": "36", "HKD": "10.3333"},
	"CAD": {"CAD": "1", "USD": "0.8", "CNY": "5.2", "EUR": "0.68", "GBP": "0.6", "AUD": "1.08", "JPY": "88", "TRY": "21.6", "HKD": "6.24"},
	"AUD": {"AUD": "1", "USD": "0.7407", "CNY": "4.8148", "EUR": "0.6296", "GBP": "0.5556", "CAD": "0.9259", "JPY": "81.4815", "TRY": "20", "HKD": "5.7778"},
	"JPY": {"JPY": "1", "USD": "0.0091", "CNY": "0.0591", "EUR": "0.0077", "GBP": "0.0068", "CAD": "0.0114", "AUD": "0.0123", "TRY": "0.2455", "HKD": "0.0667"},
	"TRY": {"TRY": "1", "USD": "0.037", "CNY": "0.2381", "EUR": "0.0315", "GBP": "0.0278", "CAD": "0.0463", "AUD": "0.05", "JPY": "4.0741", "HKD": "0.2889"},
	"HKD": {"HKD": "1", "USD": "0.1282", "CNY": "0.8387", "EUR": "0.1089", "GBP": "0.0965", "CAD": "0.1603", "AUD": "0.1731", "JPY": "14.1026", "TRY": "3.4615"},
}

// IsSupportedCurrency reports whether code is one of SupportedCurrencies.
func IsSupportedCurrency(code string) bool {
	code = strings.ToUpper(code)
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// NormalizeBaseCurrency upper-cases code and falls back to DefaultBaseCurrency
// when it is empty or unsupported.
func NormalizeBaseCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !IsSupportedCurrency(code) {
		return DefaultBaseCurrency
	}
	return code
}

// CurrencyCodes returns base first, followed by the other supported codes sorted.
func CurrencyCodes(base string) []string {
	base = NormalizeBaseCurrency(base)
	rest := make([]string, 0, len(SupportedCurrencies)-1)
	for _, c := range SupportedCurrencies {
		if c != base {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append([]string{base}, rest...)
}

// DefaultExchangeRates returns the static base-anchored fallback table.
func DefaultExchangeRates(base string) []ExchangeRate {
	base = NormalizeBaseCurrency(base)
	table := defaultRates[base]
	out := make([]ExchangeRate, 0, len(table))
	for _, to := range CurrencyCodes(base) {
		raw, ok := table[to]
		if !ok {
			continue
		}
		out = append(out, ExchangeRate{From: base, To: to, Rate: decimal.RequireFromString(raw)})
	}
	return out
}
