package services

import (
	"context"
	"testing"

	"billflow/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryExporter_ExportYear(t *testing.T) {
	ctx := context.Background()
	env, _ := aggregatorFixture(t)
	_, err := env.subs.Create(ctx, monthlyUSD("Dropbox", d(2023, 11, 5), d(2024, 3, 5), "2"))
	require.NoError(t, err)

	writer := memory.New()
	exporter := NewSummaryExporter(env.aggregates, writer)

	ref, err := exporter.ExportYear(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, "mem:2024", ref)

	export, ok := writer.Year(2024)
	require.True(t, ok)
	assert.Equal(t, "CNY", export.BaseCurrency)
	assert.Equal(t, "178.00", export.Total.StringFixed(2))

	byValue := make(map[string]int)
	for i, row := range export.Rows {
		byValue[row.CategoryValue] = i
	}
	require.Len(t, byValue, 3)

	other := export.Rows[byValue["other"]]
	assert.Equal(t, "14.00", other.Months[0].StringFixed(2))
	assert.Equal(t, "14.00", other.Months[1].StringFixed(2))
	assert.True(t, other.Months[2].IsZero())
	assert.Equal(t, "28.00", other.Total.StringFixed(2))
	assert.Equal(t, "70.00", export.Rows[byValue["music"]].Months[0].StringFixed(2))
}

func TestSummaryExporter_NoWriter(t *testing.T) {
	env := newTestEnv(t, d(2024, 6, 1))
	_, err := NewSummaryExporter(env.aggregates, nil).ExportYear(context.Background(), 2024)
	assert.Error(t, err)
}
