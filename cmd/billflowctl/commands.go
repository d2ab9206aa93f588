package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"billflow/internal/cli"
	"billflow/internal/core"
	"billflow/internal/services"
	"billflow/internal/storage"
)

var errUsage = errors.New("invalid usage")

type command func(ctx context.Context, app *cli.App, out io.Writer, args []string) error

// run dispatches args[0] to its command. dbPath is only read by migrate.
func run(ctx context.Context, app *cli.App, dbPath string, out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	commands := map[string]command{
		"migrate": func(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
			return migrateCmd(ctx, app, dbPath, out)
		},
		"process-renewals":  processRenewalsCmd,
		"process-expired":   processExpiredCmd,
		"renew":             renewCmd,
		"reactivate":        reactivateCmd,
		"rebuild-summaries": rebuildSummariesCmd,
		"refresh-rates":     refreshRatesCmd,
		"notify-check":      notifyCheckCmd,
		"export-summaries":  exportSummariesCmd,
		"stats":             statsCmd,

		"payment-stats":        paymentStatsCmd,
		"revenue":              revenueCmd,
		"active-subscriptions": activeSubscriptionsCmd,
		"subscription-stats":   subscriptionStatsCmd,
		"import-subscriptions": importSubscriptionsCmd,
		"import-payments":      importPaymentsCmd,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(ctx, app, out, args[1:])
}

func migrateCmd(ctx context.Context, app *cli.App, dbPath string, out io.Writer) error {
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	seeded, err := app.Rates.SeedDefaults(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d (dirty=%t), %d default rates seeded\n", version, dirty, seeded)
	return nil
}

func processRenewalsCmd(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
	result, err := app.Renewals.ProcessAutoRenewals(ctx)
	printBatch(out, "renewed", result)
	return err
}

func processExpiredCmd(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
	result, err := app.Renewals.ProcessExpiredSubscriptions(ctx)
	printBatch(out, "expired", result)
	return err
}

func printBatch(out io.Writer, verb string, result services.BatchResult) {
	fmt.Fprintf(out, "%s %d, errors %d\n", verb, result.Processed, result.Errors)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range result.Subscriptions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Name, s.OldNextBilling, s.NewNextBilling)
	}
	w.Flush()
}

func renewCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	outcome, err := app.Renewals.ManualRenew(ctx, id)
	if err != nil {
		return err
	}
	printOutcome(out, "renewed", outcome)
	return nil
}

func reactivateCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	outcome, err := app.Renewals.Reactivate(ctx, id)
	if err != nil {
		return err
	}
	printOutcome(out, "reactivated", outcome)
	return nil
}

func printOutcome(out io.Writer, verb string, o services.RenewalOutcome) {
	fmt.Fprintf(out, "%s %q: next billing %s -> %s (payment %d)\n",
		verb, o.Name, o.OldNextBilling, o.NewNextBilling, o.PaymentID)
}

func rebuildSummariesCmd(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
	n, err := app.Payments.RecalculateSummaries(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "recomputed %d months\n", n)
	return nil
}

func refreshRatesCmd(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
	n, err := app.Rates.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "updated %d rates\n", n)
	return nil
}

func notifyCheckCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("notify-check", flag.ContinueOnError)
	fs.SetOutput(out)
	force := fs.Bool("force", false, "run even outside the configured check hour")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	now := time.Now()
	if !*force {
		due, err := app.Dispatcher.ShouldRun(ctx, now)
		if err != nil {
			return err
		}
		if !due {
			fmt.Fprintln(out, "notification check not due (use -force)")
			return nil
		}
	}
	result, err := app.Dispatcher.CheckAndSend(ctx, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reminders %d, warnings %d, errors %d\n", result.Reminders, result.Warnings, result.Errors)
	return nil
}

// exportSummariesCmd writes to Google Sheets when configured and prints the
// table otherwise.
func exportSummariesCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: export-summaries <year>", errUsage)
	}
	year, err := parseYear(args[0])
	if err != nil {
		return err
	}

	if app.SheetsWriter != nil {
		ref, err := app.Summaries.ExportYear(ctx, year)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %d to %s\n", year, ref)
		return nil
	}

	export, err := app.Summaries.BuildYear(ctx, year)
	if err != nil {
		return err
	}
	printExport(out, export)
	return nil
}

func printExport(out io.Writer, export core.SummaryExport) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "category\t")
	for m := 1; m <= 12; m++ {
		fmt.Fprintf(w, "%02d\t", m)
	}
	fmt.Fprintf(w, "total %s\t\n", export.BaseCurrency)
	for _, row := range export.Rows {
		fmt.Fprintf(w, "%s\t", row.CategoryValue)
		for _, amount := range row.Months {
			fmt.Fprintf(w, "%s\t", amount.StringFixed(core.MoneyPlaces))
		}
		fmt.Fprintf(w, "%s\t\n", row.Total.StringFixed(core.MoneyPlaces))
	}
	w.Flush()
	fmt.Fprintf(out, "%d total: %s %s\n", export.Year, export.Total.StringFixed(core.MoneyPlaces), export.BaseCurrency)
}

func statsCmd(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
	stats, err := app.Renewals.Stats(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "total\t%d\n", stats.Total)
	fmt.Fprintf(w, "active auto\t%d\n", stats.ActiveAuto)
	fmt.Fprintf(w, "active manual\t%d\n", stats.ActiveManual)
	fmt.Fprintf(w, "trial\t%d\n", stats.Trial)
	fmt.Fprintf(w, "cancelled\t%d\n", stats.Cancelled)
	fmt.Fprintf(w, "upcoming renewals\t%d\n", stats.UpcomingRenewals)
	fmt.Fprintf(w, "overdue\t%d\n", stats.Overdue)
	fmt.Fprintf(w, "auto renewal rate\t%d%%\n", stats.AutoRenewalRate)
	fmt.Fprintf(w, "active rate\t%d%%\n", stats.ActiveRate)
	return w.Flush()
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected a subscription id", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid subscription id %q", errUsage, args[0])
	}
	return id, nil
}
