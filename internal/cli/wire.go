package cli

import (
	"context"

	"billflow/internal/amqp"
	"billflow/internal/config"
	"billflow/internal/core"
	applog "billflow/internal/log"
	"billflow/internal/notify"
	"billflow/internal/rates"
	"billflow/internal/services"
	"billflow/internal/sheets"
	gsheet "billflow/internal/sheets/google"
	"billflow/internal/storage"
)

const amqpDialAttempts = 5

// App holds the wired services shared by the binaries.
type App struct {
	Repo          *storage.SQLiteRepository
	Resolver      *services.CurrencyResolver
	Aggregates    *services.CategoryAggregator
	Ledger        *services.LedgerGenerator
	Subscriptions *services.SubscriptionService
	Payments      *services.PaymentService
	Renewals      *services.RenewalProcessor
	Rates         *services.ExchangeRateService
	Summaries     *services.SummaryExporter
	Analytics     *services.AnalyticsService
	Dispatcher    *notify.Dispatcher
	Trigger       *notify.Trigger

	// SheetsWriter is nil when no spreadsheet is configured.
	SheetsWriter sheets.SummaryWriter

	broker *amqp.Client
}

// BuildApp wires storage, currency conversion, the ledger services and the
// notification sinks from cfg. Optional integrations that fail to start are
// logged and left out.
func BuildApp(ctx context.Context, logger *applog.Logger, cfg *config.Config, repo *storage.SQLiteRepository) *App {
	app := &App{Repo: repo}

	app.Resolver = services.NewCurrencyResolver(repo, cfg.BaseCurrency, cfg.RateCacheTTL)
	app.Aggregates = services.NewCategoryAggregator(repo, app.Resolver)
	app.Ledger = services.NewLedgerGenerator(repo, app.Aggregates)

	var provider services.RateProvider
	if cfg.RatesEnabled() {
		provider = rates.NewClient(cfg.ExchangeRateAPIURL, cfg.ExchangeRateAPIKey)
	} else {
		logger.Info("Exchange rate API disabled - no EXCHANGE_RATE_API_KEY provided")
	}
	app.Rates = services.NewExchangeRateService(repo, provider, app.Resolver)

	sinks := map[core.ChannelType]notify.Sink{
		core.ChannelTelegram: notify.NewTelegramSink(cfg.TelegramAPIURL, cfg.TelegramBotToken),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpDialAttempts)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without the amqp channel", applog.FieldError, err)
		} else {
			app.broker = client
			sinks[core.ChannelAMQP] = notify.NewAMQPSink(client)
			logger.Info("AMQP notification channel enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	app.Dispatcher = notify.NewDispatcher(repo, sinks, cfg.NotificationLanguage)
	app.Trigger = notify.NewTrigger(app.Dispatcher, cfg.NotificationTimeout)

	app.Subscriptions = services.NewSubscriptionService(repo, app.Ledger, app.Aggregates, app.Trigger)
	app.Payments = services.NewPaymentService(repo, app.Aggregates)
	app.Renewals = services.NewRenewalProcessor(repo, app.Aggregates, app.Trigger)
	app.Analytics = services.NewAnalyticsService(repo, app.Resolver)

	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSummarySheetName)
		if err != nil {
			logger.Warn("Failed to initialize Google Sheets client, summary export disabled", applog.FieldError, err)
		} else {
			app.SheetsWriter = client
			logger.Info("Google Sheets summary export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}
	app.Summaries = services.NewSummaryExporter(app.Aggregates, app.SheetsWriter)

	return app
}

// Close waits for in-flight notifications, then releases the broker and the database.
func (a *App) Close() {
	a.Trigger.Wait()
	if a.broker != nil {
		a.broker.Close()
	}
	a.Repo.Close()
}
