package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"billflow/internal/core"
)

const languageKey = "language"

// DefaultLanguage is used until a language preference is stored.
const DefaultLanguage = "zh-CN"

func (r *SQLiteRepository) NotificationSetting(ctx context.Context, t core.NotificationType) (core.NotificationSetting, error) {
	row, err := r.queries.GetNotificationSetting(ctx, string(t))
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotificationSetting{}, fmt.Errorf("notification setting %q: %w", t, core.ErrNotFound)
	}
	if err != nil {
		return core.NotificationSetting{}, fmt.Errorf("get notification setting %q: %w", t, err)
	}
	return core.NotificationSetting{
		Type:               core.NotificationType(row.NotificationType),
		Enabled:            row.IsEnabled,
		AdvanceDays:        int(row.AdvanceDays),
		RepeatNotification: row.RepeatNotification,
		Channels:           decodeChannels(row.NotificationChannels),
	}, nil
}

func (r *SQLiteRepository) SaveNotificationSetting(ctx context.Context, s core.NotificationSetting) error {
	channels, err := encodeChannels(s.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}
	if err := r.queries.UpsertNotificationSetting(ctx, NotificationSetting{
		NotificationType:     string(s.Type),
		IsEnabled:            s.Enabled,
		AdvanceDays:          int64(s.AdvanceDays),
		RepeatNotification:   s.RepeatNotification,
		NotificationChannels: channels,
	}); err != nil {
		return fmt.Errorf("save notification setting %q: %w", s.Type, err)
	}
	return nil
}

func (r *SQLiteRepository) NotificationChannel(ctx context.Context, t core.ChannelType) (core.NotificationChannel, error) {
	row, err := r.queries.GetNotificationChannel(ctx, string(t))
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotificationChannel{}, fmt.Errorf("notification channel %q: %w", t, core.ErrNotFound)
	}
	if err != nil {
		return core.NotificationChannel{}, fmt.Errorf("get notification channel %q: %w", t, err)
	}
	ch := core.NotificationChannel{
		Type:      core.ChannelType(row.ChannelType),
		Recipient: row.Recipient,
		Active:    row.IsActive,
	}
	if row.LastUsedAt.Valid {
		ch.LastUsedAt = parseTime(row.LastUsedAt.String)
	}
	return ch, nil
}

func (r *SQLiteRepository) SaveNotificationChannel(ctx context.Context, ch core.NotificationChannel) error {
	if err := r.queries.UpsertNotificationChannel(ctx, string(ch.Type), ch.Recipient, ch.Active); err != nil {
		return fmt.Errorf("save notification channel %q: %w", ch.Type, err)
	}
	return nil
}

func (r *SQLiteRepository) TouchNotificationChannel(ctx context.Context, t core.ChannelType, at time.Time) error {
	if err := r.queries.TouchNotificationChannel(ctx, string(t), formatTime(at)); err != nil {
		return fmt.Errorf("touch notification channel %q: %w", t, err)
	}
	return nil
}

func (r *SQLiteRepository) RecordNotification(ctx context.Context, rec core.NotificationRecord) (int64, error) {
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = r.now()
	}
	id, err := r.queries.CreateNotificationHistory(ctx, NotificationHistory{
		SubscriptionID:   rec.SubscriptionID,
		NotificationType: string(rec.Type),
		ChannelType:      string(rec.Channel),
		Status:           string(rec.Status),
		Recipient:        rec.Recipient,
		MessageContent:   rec.Content,
		ErrorMessage:     rec.Error,
		SentAt:           formatTime(sentAt),
		SentOn:           core.DateOf(sentAt.UTC()).String(),
	})
	if err != nil {
		return 0, fmt.Errorf("record notification: %w", err)
	}
	return id, nil
}

// HasSentNotification reports whether a successful notification of type t was
// recorded for the subscription on or after since, or on any day when since is zero.
func (r *SQLiteRepository) HasSentNotification(ctx context.Context, subscriptionID int64, t core.NotificationType, since core.Date) (bool, error) {
	n, err := r.queries.CountSentNotifications(ctx, subscriptionID, string(t), since.String())
	if err != nil {
		return false, fmt.Errorf("count sent notifications: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListNotificationHistory(ctx context.Context, subscriptionID int64, limit int) ([]core.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListNotificationHistory(ctx, subscriptionID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list notification history: %w", err)
	}
	out := make([]core.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.NotificationRecord{
			ID:             row.ID,
			SubscriptionID: row.SubscriptionID,
			Type:           core.NotificationType(row.NotificationType),
			Channel:        core.ChannelType(row.ChannelType),
			Status:         core.NotificationStatus(row.Status),
			Recipient:      row.Recipient,
			Content:        row.MessageContent,
			Error:          row.ErrorMessage,
			SentAt:         parseTime(row.SentAt),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SchedulerSettings(ctx context.Context) (core.SchedulerSettings, error) {
	row, err := r.queries.GetSchedulerSettings(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SchedulerSettings{Enabled: true, CheckTime: "09:00", Timezone: "Asia/Shanghai"}, nil
	}
	if err != nil {
		return core.SchedulerSettings{}, fmt.Errorf("get scheduler settings: %w", err)
	}
	return core.SchedulerSettings{
		Enabled:   row.IsEnabled,
		CheckTime: row.NotificationCheckTime,
		Timezone:  row.Timezone,
	}, nil
}

func (r *SQLiteRepository) SaveSchedulerSettings(ctx context.Context, s core.SchedulerSettings) error {
	if err := r.queries.UpdateSchedulerSettings(ctx, SchedulerSetting{
		IsEnabled:             s.Enabled,
		NotificationCheckTime: s.CheckTime,
		Timezone:              s.Timezone,
	}); err != nil {
		return fmt.Errorf("save scheduler settings: %w", err)
	}
	return nil
}

// Language returns the stored notification language, DefaultLanguage when unset.
func (r *SQLiteRepository) Language(ctx context.Context) (string, error) {
	lang, err := r.queries.GetSetting(ctx, languageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultLanguage, nil
	}
	if err != nil {
		return "", fmt.Errorf("get language: %w", err)
	}
	return lang, nil
}

func (r *SQLiteRepository) SetLanguage(ctx context.Context, lang string) error {
	if err := r.queries.SetSetting(ctx, languageKey, lang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}
