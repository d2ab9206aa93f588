package memory

import (
	"context"
	"testing"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
)

func TestStoreWriteReplacesYear(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := core.SummaryExport{Year: 2024, BaseCurrency: "CNY", Rows: []core.SummaryExportRow{{CategoryValue: "video"}}}
	ref, err := s.WriteYearSummary(ctx, first)
	if err != nil || ref != "mem:2024" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}

	second := core.SummaryExport{Year: 2024, BaseCurrency: "CNY", Total: decimal.NewFromInt(3)}
	if _, err := s.WriteYearSummary(ctx, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, ok := s.Year(2024)
	if !ok {
		t.Fatal("expected year 2024 to be stored")
	}
	if len(got.Rows) != 0 || !got.Total.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected the second write to replace the first, got %+v", got)
	}
	if s.Writes() != 2 {
		t.Errorf("expected 2 writes, got %d", s.Writes())
	}
	if _, ok := s.Year(2023); ok {
		t.Error("unexpected table for 2023")
	}
}

func TestStoreRejectsInvalidYear(t *testing.T) {
	if _, err := New().WriteYearSummary(context.Background(), core.SummaryExport{}); err == nil {
		t.Fatal("expected error for zero year")
	}
}
