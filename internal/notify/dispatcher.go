package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"billflow/internal/core"

	"golang.org/x/sync/errgroup"
)

var (
	ErrUnsupportedType = errors.New("unsupported notification type")
	ErrDisabled        = errors.New("notification type disabled")
	ErrNoChannels      = errors.New("no deliverable notification channel")
)

// Store is the persistence the dispatcher reads settings from and writes
// history to.
type Store interface {
	GetSubscriptionDetails(ctx context.Context, id int64) (core.SubscriptionDetails, error)
	ListSubscriptionsDueBetween(ctx context.Context, from, to core.Date) ([]core.Subscription, error)
	NotificationSetting(ctx context.Context, t core.NotificationType) (core.NotificationSetting, error)
	NotificationChannel(ctx context.Context, t core.ChannelType) (core.NotificationChannel, error)
	TouchNotificationChannel(ctx context.Context, t core.ChannelType, at time.Time) error
	RecordNotification(ctx context.Context, rec core.NotificationRecord) (int64, error)
	HasSentNotification(ctx context.Context, subscriptionID int64, t core.NotificationType, since core.Date) (bool, error)
	SchedulerSettings(ctx context.Context) (core.SchedulerSettings, error)
	Language(ctx context.Context) (string, error)
}

// Delivery is the outcome of sending one notification on one channel.
type Delivery struct {
	Channel   core.ChannelType
	Recipient string
	Err       error
}

// CheckResult counts the notifications sent by one scan.
type CheckResult struct {
	Reminders int
	Warnings  int
	Errors    int
}

// Dispatcher renders notifications and fans them out to the configured sinks.
type Dispatcher struct {
	store    Store
	sinks    map[core.ChannelType]Sink
	language string
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. language overrides the stored language
// preference when set.
func NewDispatcher(store Store, sinks map[core.ChannelType]Sink, language string) *Dispatcher {
	return &Dispatcher{
		store:    store,
		sinks:    sinks,
		language: language,
		now:      time.Now,
	}
}

// Notify sends a notification of type t about the subscription to channels,
// or to the type's configured channels when none are given. One history row
// is written per attempted channel.
func (d *Dispatcher) Notify(ctx context.Context, subscriptionID int64, t core.NotificationType, channels ...core.ChannelType) ([]Delivery, error) {
	return d.notify(ctx, subscriptionID, t, d.now(), channels)
}

func (d *Dispatcher) notify(ctx context.Context, subscriptionID int64, t core.NotificationType, at time.Time, channels []core.ChannelType) ([]Delivery, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}

	setting, err := d.store.NotificationSetting(ctx, t)
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, t)
	}
	if len(channels) == 0 {
		channels = setting.Channels
	}

	sub, err := d.store.GetSubscriptionDetails(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("load subscription %d: %w", subscriptionID, err)
	}

	content, err := Render(t, d.preferredLanguage(ctx), sub)
	if err != nil {
		return nil, err
	}

	deliveries, sinks := d.targets(ctx, channels)
	if len(deliveries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChannels, t)
	}

	var g errgroup.Group
	for i := range deliveries {
		g.Go(func() error {
			err := sinks[i].Send(ctx, deliveries[i].Recipient, content)
			deliveries[i].Err = err
			if err != nil {
				return fmt.Errorf("send via %s: %w", deliveries[i].Channel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "Notification fan-out incomplete",
			"subscription_id", subscriptionID,
			"type", t,
			"first_error", err)
	}

	var errs []error
	for _, dl := range deliveries {
		rec := core.NotificationRecord{
			SubscriptionID: subscriptionID,
			Type:           t,
			Channel:        dl.Channel,
			Status:         core.NotificationSent,
			Recipient:      dl.Recipient,
			Content:        content,
			SentAt:         at,
		}
		if dl.Err != nil {
			rec.Status = core.NotificationFailed
			rec.Error = dl.Err.Error()
			errs = append(errs, fmt.Errorf("send %s via %s: %w", t, dl.Channel, dl.Err))
			slog.WarnContext(ctx, "Notification delivery failed",
				"subscription_id", subscriptionID,
				"type", t,
				"channel", dl.Channel,
				"error", dl.Err)
		} else {
			if err := d.store.TouchNotificationChannel(ctx, dl.Channel, at); err != nil {
				slog.WarnContext(ctx, "Failed to stamp notification channel", "channel", dl.Channel, "error", err)
			}
			slog.InfoContext(ctx, "Notification sent",
				"subscription_id", subscriptionID,
				"type", t,
				"channel", dl.Channel)
		}
		if _, err := d.store.RecordNotification(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return deliveries, errors.Join(errs...)
}

// targets resolves channel types to active, configured sinks. Channels that
// cannot deliver are skipped.
func (d *Dispatcher) targets(ctx context.Context, channels []core.ChannelType) ([]Delivery, []Sink) {
	var (
		deliveries []Delivery
		sinks      []Sink
		seen       = make(map[core.ChannelType]bool, len(channels))
	)
	for _, ct := range channels {
		if seen[ct] {
			continue
		}
		seen[ct] = true

		sink, ok := d.sinks[ct]
		if !ok || sink == nil {
			slog.DebugContext(ctx, "No sink for notification channel", "channel", ct)
			continue
		}
		if c, ok := sink.(interface{ Configured() bool }); ok && !c.Configured() {
			slog.DebugContext(ctx, "Notification sink not configured", "channel", ct)
			continue
		}
		ch, err := d.store.NotificationChannel(ctx, ct)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				slog.WarnContext(ctx, "Failed to load notification channel", "channel", ct, "error", err)
			}
			continue
		}
		if !ch.Active || ch.Recipient == "" {
			continue
		}
		deliveries = append(deliveries, Delivery{Channel: ct, Recipient: ch.Recipient})
		sinks = append(sinks, sink)
	}
	return deliveries, sinks
}

func (d *Dispatcher) preferredLanguage(ctx context.Context) string {
	if d.language != "" {
		return d.language
	}
	lang, err := d.store.Language(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load language preference", "error", err)
		return ""
	}
	return lang
}

// CheckAndSend sends renewal reminders for subscriptions due within the
// reminder window and expiration warnings for subscriptions that lapsed
// yesterday.
func (d *Dispatcher) CheckAndSend(ctx context.Context, now time.Time) (CheckResult, error) {
	var result CheckResult
	today := core.DateOf(now)

	reminder, err := d.store.NotificationSetting(ctx, core.NotifyRenewalReminder)
	if err != nil {
		return result, err
	}
	if reminder.Enabled && reminder.AdvanceDays > 0 {
		subs, err := d.store.ListSubscriptionsDueBetween(ctx, today.AddDays(1), today.AddDays(reminder.AdvanceDays))
		if err != nil {
			return result, fmt.Errorf("list upcoming subscriptions: %w", err)
		}
		since := today.AddDays(-reminder.AdvanceDays)
		for _, sub := range subs {
			if !reminder.RepeatNotification && d.alreadySent(ctx, sub.ID, core.NotifyRenewalReminder, since) {
				continue
			}
			if _, err := d.notify(ctx, sub.ID, core.NotifyRenewalReminder, now, reminder.Channels); err != nil {
				result.Errors++
				continue
			}
			result.Reminders++
		}
	}

	warning, err := d.store.NotificationSetting(ctx, core.NotifyExpirationWarning)
	if err != nil {
		return result, err
	}
	if warning.Enabled {
		yesterday := today.AddDays(-1)
		subs, err := d.store.ListSubscriptionsDueBetween(ctx, yesterday, yesterday)
		if err != nil {
			return result, fmt.Errorf("list lapsed subscriptions: %w", err)
		}
		for _, sub := range subs {
			if d.alreadySent(ctx, sub.ID, core.NotifyExpirationWarning, today) {
				continue
			}
			if _, err := d.notify(ctx, sub.ID, core.NotifyExpirationWarning, now, warning.Channels); err != nil {
				result.Errors++
				continue
			}
			result.Warnings++
		}
	}

	slog.InfoContext(ctx, "Notification check completed",
		"reminders", result.Reminders,
		"warnings", result.Warnings,
		"errors", result.Errors)
	return result, nil
}

func (d *Dispatcher) alreadySent(ctx context.Context, subscriptionID int64, t core.NotificationType, since core.Date) bool {
	sent, err := d.store.HasSentNotification(ctx, subscriptionID, t, since)
	if err != nil {
		slog.WarnContext(ctx, "Failed to check notification history",
			"subscription_id", subscriptionID,
			"type", t,
			"error", err)
		return false
	}
	return sent
}

// ShouldRun reports whether the hourly scan is due: the scheduler is enabled
// and now falls in the configured check hour of the configured timezone.
func (d *Dispatcher) ShouldRun(ctx context.Context, now time.Time) (bool, error) {
	settings, err := d.store.SchedulerSettings(ctx)
	if err != nil {
		return false, err
	}
	if !settings.Enabled {
		return false, nil
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		slog.WarnContext(ctx, "Unknown scheduler timezone, using UTC", "timezone", settings.Timezone, "error", err)
		loc = time.UTC
	}
	hour, err := checkHour(settings.CheckTime)
	if err != nil {
		return false, err
	}
	return now.In(loc).Hour() == hour, nil
}

// checkHour extracts the hour from an HH:MM check time.
func checkHour(s string) (int, error) {
	h, _, ok := strings.Cut(strings.TrimSpace(s), ":")
	hour, err := strconv.Atoi(h)
	if !ok || err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: notification check time %q", core.ErrValidation, s)
	}
	return hour, nil
}
