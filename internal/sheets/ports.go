package sheets

import (
	"context"

	"billflow/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter publishes a year of monthly category summaries.
	SummaryWriter interface {
		// WriteYearSummary replaces the year's table and returns a reference to
		// the written range.
		WriteYearSummary(ctx context.Context, export core.SummaryExport) (ref string, err error)
	}
)
