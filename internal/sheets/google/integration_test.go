//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteYearSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" &&
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("no service account credentials set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, spreadsheetID, os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	require.NoError(t, err)

	export := core.SummaryExport{
		Year:         1999,
		BaseCurrency: "CNY",
		Total:        decimal.RequireFromString("140"),
		Rows: []core.SummaryExportRow{{
			CategoryValue: "integration",
			CategoryLabel: "Integration test",
			Total:         decimal.RequireFromString("140"),
		}},
	}
	export.Rows[0].Months[0] = decimal.RequireFromString("70")
	export.Rows[0].Months[1] = decimal.RequireFromString("70")

	ref, err := client.WriteYearSummary(ctx, export)
	require.NoError(t, err)
	assert.Contains(t, ref, "1999 ")
	assert.Contains(t, ref, "!A1:O3")
}
