package services

import (
	"context"
	"fmt"
	"log/slog"

	"billflow/internal/core"
	"billflow/internal/sheets"

	"github.com/shopspring/decimal"
)

// SummaryExporter publishes a year of monthly category summaries.
type SummaryExporter struct {
	aggregates *CategoryAggregator
	writer     sheets.SummaryWriter
}

func NewSummaryExporter(aggregates *CategoryAggregator, writer sheets.SummaryWriter) *SummaryExporter {
	return &SummaryExporter{aggregates: aggregates, writer: writer}
}

// BuildYear folds the stored summaries of year into one row per category.
// Rows keep the order in which categories first appear.
func (e *SummaryExporter) BuildYear(ctx context.Context, year int) (core.SummaryExport, error) {
	from := core.YearMonth{Year: year, Month: 1}
	to := core.YearMonth{Year: year, Month: 12}
	rows, err := e.aggregates.RangeSummary(ctx, from, to)
	if err != nil {
		return core.SummaryExport{}, err
	}

	export := core.SummaryExport{Year: year, BaseCurrency: e.aggregates.rates.Base(), Total: decimal.Zero}
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.CategoryID]
		if !ok {
			i = len(export.Rows)
			index[row.CategoryID] = i
			export.Rows = append(export.Rows, core.SummaryExportRow{
				CategoryValue: row.CategoryValue,
				CategoryLabel: row.CategoryLabel,
				Total:         decimal.Zero,
			})
		}
		r := &export.Rows[i]
		r.Months[row.Month-1] = r.Months[row.Month-1].Add(row.TotalInBase)
		r.Total = r.Total.Add(row.TotalInBase)
		export.Total = export.Total.Add(row.TotalInBase)
	}
	return export, nil
}

// ExportYear builds the year's table and hands it to the writer.
func (e *SummaryExporter) ExportYear(ctx context.Context, year int) (string, error) {
	if e.writer == nil {
		return "", fmt.Errorf("summary writer not configured")
	}
	export, err := e.BuildYear(ctx, year)
	if err != nil {
		return "", fmt.Errorf("build %d summary: %w", year, err)
	}
	ref, err := e.writer.WriteYearSummary(ctx, export)
	if err != nil {
		return "", fmt.Errorf("write %d summary: %w", year, err)
	}
	slog.InfoContext(ctx, "Yearly summary exported",
		"year", year,
		"categories", len(export.Rows),
		"ref", ref)
	return ref, nil
}
