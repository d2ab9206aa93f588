// Command billflowctl runs one-shot ledger operations against the billflow database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"billflow/internal/cli"
	applog "billflow/internal/log"
)

const usage = `Usage: billflowctl <command> [arguments]

Commands:
  migrate                  apply schema migrations and seed default exchange rates
  process-renewals         renew due auto-renewing subscriptions
  process-expired          cancel lapsed manual subscriptions
  renew <id>               renew a manual subscription
  reactivate <id>          reactivate a cancelled subscription
  rebuild-summaries        recompute every monthly category summary
  refresh-rates            fetch the latest exchange rates
  notify-check [-force]    send due renewal reminders and expiration warnings
  export-summaries <year>  export a year of summaries to Google Sheets
  stats                    print renewal statistics

  payment-stats <year> [<month>|Q<n>]
                           payment counts and totals per currency
  revenue [-from D] [-to D] [-currency C]
                           succeeded revenue per month and currency
  active-subscriptions <YYYY-MM>
                           subscriptions with a billing period in the month
  subscription-stats       subscription counts and amounts by category and cycle
  import-subscriptions <file.json>
                           create subscriptions and their payment history
  import-payments <file.json>
                           record payments
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentCLI, slog.LevelInfo)
	cfg, logger := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx = applog.WithLogger(ctx, logger)

	app := cli.BuildApp(ctx, logger, cfg, repo)
	err := run(ctx, app, cfg.SQLiteDBPath, os.Stdout, flag.Args())
	app.Close()
	stop()

	if err != nil {
		logger.Error("Command failed", "command", flag.Arg(0), applog.FieldError, err)
		os.Exit(1)
	}
}
