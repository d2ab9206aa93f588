package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundMoney(t *testing.T) {
	if got := RoundMoney(decimal.RequireFromString("70.005")); got.String() != "70.01" {
		t.Fatalf("RoundMoney = %s", got)
	}
}

func TestDefaultExchangeRates(t *testing.T) {
	rates := DefaultExchangeRates("usd")
	if len(rates) != len(SupportedCurrencies) {
		t.Fatalf("expected %d rates, got %d", len(SupportedCurrencies), len(rates))
	}
	if rates[0].From != "USD" || rates[0].To != "USD" || !rates[0].Rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("first rate should be USD identity, got %+v", rates[0])
	}
	if NormalizeBaseCurrency("XYZ") != DefaultBaseCurrency {
		t.Fatal("unsupported base should fall back to default")
	}
}
