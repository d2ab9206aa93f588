package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"billflow/internal/core"
	ports "billflow/internal/sheets"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSummarySheet is the base sheet name; the year is prefixed to it.
const DefaultSummarySheet = "Subscriptions Summary"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summaryBase   string
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client for spreadsheetID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, summarySheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	summarySheet = strings.TrimSpace(summarySheet)
	if summarySheet == "" {
		summarySheet = DefaultSummarySheet
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		summaryBase:   summarySheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

// WriteYearSummary clears the year's sheet and writes one row per category.
func (c *Client) WriteYearSummary(ctx context.Context, export core.SummaryExport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := yearPrefixedName(c.summaryBase, export.Year)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheetName+"!A:O", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", sheetName, err)
	}

	values := summaryValues(export)
	rng := fmt.Sprintf("%s!A1:O%d", sheetName, len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Summary exported to Google Sheets",
		"sheet", sheetName,
		"year", export.Year,
		"categories", len(export.Rows))
	return rng, nil
}

// summaryValues lays out the export as a header, one row per category and a
// totals row. Amounts are fixed to two places so the sheet parses them as numbers.
func summaryValues(export core.SummaryExport) [][]any {
	header := []any{"Category"}
	for m := 1; m <= 12; m++ {
		header = append(header, fmt.Sprintf("%04d-%02d", export.Year, m))
	}
	header = append(header, "Total", export.BaseCurrency)

	values := [][]any{header}
	var monthTotals [12]decimal.Decimal
	for _, row := range export.Rows {
		label := row.CategoryLabel
		if label == "" {
			label = row.CategoryValue
		}
		line := []any{label}
		for i, amount := range row.Months {
			line = append(line, amount.StringFixed(core.MoneyPlaces))
			monthTotals[i] = monthTotals[i].Add(amount)
		}
		line = append(line, row.Total.StringFixed(core.MoneyPlaces))
		values = append(values, line)
	}

	footer := []any{"Total"}
	for _, total := range monthTotals {
		footer = append(footer, total.StringFixed(core.MoneyPlaces))
	}
	footer = append(footer, export.Total.StringFixed(core.MoneyPlaces))
	return append(values, footer)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
