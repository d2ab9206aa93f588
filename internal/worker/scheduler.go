// Package worker runs the periodic billing jobs: a daily pass for renewals,
// expirations, rate refresh and summary export, and an hourly notification scan.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "billflow/internal/log"
	"billflow/internal/notify"
	"billflow/internal/services"

	"github.com/google/uuid"
)

const (
	DefaultDailyInterval  = 24 * time.Hour
	DefaultHourlyInterval = time.Hour
)

// Renewals processes the subscription book.
type Renewals interface {
	ProcessAutoRenewals(ctx context.Context) (services.BatchResult, error)
	ProcessExpiredSubscriptions(ctx context.Context) (services.BatchResult, error)
}

// RateRefresher updates the stored exchange rates.
type RateRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// SummaryExporter publishes a year of category summaries.
type SummaryExporter interface {
	ExportYear(ctx context.Context, year int) (string, error)
}

// NotificationScanner gates and runs the reminder/warning scan.
type NotificationScanner interface {
	ShouldRun(ctx context.Context, now time.Time) (bool, error)
	CheckAndSend(ctx context.Context, now time.Time) (notify.CheckResult, error)
}

// Jobs collects the collaborators of a Scheduler. Rates, Exporter and
// Notifications are optional.
type Jobs struct {
	Renewals      Renewals
	Rates         RateRefresher
	Exporter      SummaryExporter
	Notifications NotificationScanner
}

// DailyReport summarises one daily pass.
type DailyReport struct {
	RunID     string
	Renewed   services.BatchResult
	Expired   services.BatchResult
	Rates     int
	ExportRef string
	// Failures counts jobs that returned an error.
	Failures int
}

// HourlyReport summarises one hourly pass.
type HourlyReport struct {
	RunID   string
	Skipped bool
	Result  notify.CheckResult
}

type Scheduler struct {
	jobs   Jobs
	daily  time.Duration
	hourly time.Duration
	now    func() time.Time
}

// NewScheduler creates a scheduler. Non-positive intervals fall back to the defaults.
func NewScheduler(jobs Jobs, daily, hourly time.Duration) *Scheduler {
	if daily <= 0 {
		daily = DefaultDailyInterval
	}
	if hourly <= 0 {
		hourly = DefaultHourlyInterval
	}
	return &Scheduler{
		jobs:   jobs,
		daily:  daily,
		hourly: hourly,
		now:    time.Now,
	}
}

// Run executes both passes once, then on their tickers until ctx is cancelled.
// Passes run sequentially on the calling goroutine, so no pass is in flight
// when Run returns. Job failures are logged by the passes and never stop the
// scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentScheduler)
	logger.InfoContext(ctx, "Scheduler started",
		"daily_interval", s.daily,
		"hourly_interval", s.hourly)

	s.RunDaily(ctx)
	s.RunHourly(ctx)

	dailyTicker := time.NewTicker(s.daily)
	defer dailyTicker.Stop()
	hourlyTicker := time.NewTicker(s.hourly)
	defer hourlyTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Scheduler stopped")
			return
		case <-dailyTicker.C:
			s.RunDaily(ctx)
		case <-hourlyTicker.C:
			s.RunHourly(ctx)
		}
	}
}

// RunDaily renews due auto subscriptions, expires lapsed manual ones, refreshes
// rates and exports the current year's summaries. Each job's failure is logged
// and counted without skipping the remaining jobs.
func (s *Scheduler) RunDaily(ctx context.Context) (DailyReport, error) {
	report := DailyReport{RunID: uuid.NewString()}
	ctx = applog.WithRun(ctx, applog.ComponentScheduler, report.RunID)
	logger := applog.FromContext(ctx)
	start := time.Now()

	var errs []error
	fail := func(job string, err error) {
		report.Failures++
		errs = append(errs, fmt.Errorf("%s: %w", job, err))
		logger.ErrorContext(ctx, "Daily job failed", applog.FieldJob, job, applog.FieldError, err)
	}

	renewed, err := s.jobs.Renewals.ProcessAutoRenewals(ctx)
	report.Renewed = renewed
	if err != nil {
		fail("auto_renewals", err)
	}

	expired, err := s.jobs.Renewals.ProcessExpiredSubscriptions(ctx)
	report.Expired = expired
	if err != nil {
		fail("expirations", err)
	}

	if s.jobs.Rates != nil {
		n, err := s.jobs.Rates.Refresh(ctx)
		if err != nil {
			fail("rate_refresh", err)
		}
		report.Rates = n
	}

	if s.jobs.Exporter != nil {
		ref, err := s.jobs.Exporter.ExportYear(ctx, s.now().Year())
		if err != nil {
			fail("summary_export", err)
		}
		report.ExportRef = ref
	}

	logger.InfoContext(ctx, "Daily run complete",
		"renewed", report.Renewed.Processed,
		"renewal_errors", report.Renewed.Errors,
		"expired", report.Expired.Processed,
		"rates", report.Rates,
		"failures", report.Failures,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return report, errors.Join(errs...)
}

// RunHourly runs the notification scan when the configured check hour has come.
func (s *Scheduler) RunHourly(ctx context.Context) HourlyReport {
	report := HourlyReport{RunID: uuid.NewString(), Skipped: true}
	if s.jobs.Notifications == nil {
		return report
	}
	ctx = applog.WithRun(ctx, applog.ComponentScheduler, report.RunID)
	logger := applog.FromContext(ctx)

	now := s.now()
	due, err := s.jobs.Notifications.ShouldRun(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to evaluate notification schedule", applog.FieldError, err)
		return report
	}
	if !due {
		logger.DebugContext(ctx, "Notification check not due")
		return report
	}

	report.Skipped = false
	result, err := s.jobs.Notifications.CheckAndSend(ctx, now)
	report.Result = result
	if err != nil {
		logger.ErrorContext(ctx, "Notification check failed", applog.FieldError, err)
	}
	return report
}
