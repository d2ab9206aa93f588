package main

import (
	"log/slog"
	"time"
	_ "time/tzdata"

	"billflow/internal/cache"
	"billflow/internal/cli"
	applog "billflow/internal/log"
	"billflow/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentScheduler, slog.LevelInfo)
	cfg, logger := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting billflow-worker",
		"sqlite_db", cfg.SQLiteDBPath,
		"base_currency", cfg.BaseCurrency)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)
	ctx = applog.WithLogger(ctx, logger)

	app := cli.BuildApp(ctx, logger, cfg, repo)

	if n, err := app.Rates.SeedDefaults(ctx); err != nil {
		logger.Error("Failed to seed default exchange rates", applog.FieldError, err)
	} else if n > 0 {
		logger.Info("Seeded default exchange rates", "count", n)
	}

	caches := cache.NewManager()
	if cfg.RateCacheTTL > 0 {
		caches.Register(app.Resolver)
		caches.StartCleanup(cfg.RateCacheTTL)
	}

	jobs := worker.Jobs{
		Renewals:      app.Renewals,
		Rates:         app.Rates,
		Notifications: app.Dispatcher,
	}
	if app.SheetsWriter != nil {
		jobs.Exporter = app.Summaries
	} else {
		logger.Info("Google Sheets disabled - summaries will not be exported")
	}

	scheduler := worker.NewScheduler(jobs, cfg.DailyInterval, cfg.HourlyInterval)
	scheduler.Run(ctx)

	logger.Info("Shutting down billflow-worker...")
	if cfg.RateCacheTTL > 0 {
		caches.Stop()
	}
	app.Close()

	cli.WaitForShutdown(ctx, done)
	logger.Info("billflow-worker shutdown complete")
}
