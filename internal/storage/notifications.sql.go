package storage

import (
	"context"
)

const getNotificationSetting = `-- name: GetNotificationSetting :one
SELECT notification_type, is_enabled, advance_days, repeat_notification, notification_channels
FROM notification_settings
WHERE notification_type = ?`

func (q *Queries) GetNotificationSetting(ctx context.Context, notificationType string) (NotificationSetting, error) {
	row := q.db.QueryRowContext(ctx, getNotificationSetting, notificationType)
	var i NotificationSetting
	err := row.Scan(
		&i.NotificationType,
		&i.IsEnabled,
		&i.AdvanceDays,
		&i.RepeatNotification,
		&i.NotificationChannels,
	)
	return i, err
}

const upsertNotificationSetting = `-- name: UpsertNotificationSetting :exec
INSERT INTO notification_settings (notification_type, is_enabled, advance_days, repeat_notification, notification_channels)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (notification_type) DO UPDATE SET
    is_enabled = excluded.is_enabled,
    advance_days = excluded.advance_days,
    repeat_notification = excluded.repeat_notification,
    notification_channels = excluded.notification_channels`

func (q *Queries) UpsertNotificationSetting(ctx context.Context, arg NotificationSetting) error {
	_, err := q.db.ExecContext(ctx, upsertNotificationSetting,
		arg.NotificationType,
		arg.IsEnabled,
		arg.AdvanceDays,
		arg.RepeatNotification,
		arg.NotificationChannels,
	)
	return err
}

const getNotificationChannel = `-- name: GetNotificationChannel :one
SELECT channel_type, recipient, is_active, last_used_at
FROM notification_channels
WHERE channel_type = ?`

func (q *Queries) GetNotificationChannel(ctx context.Context, channelType string) (NotificationChannel, error) {
	row := q.db.QueryRowContext(ctx, getNotificationChannel, channelType)
	var i NotificationChannel
	err := row.Scan(&i.ChannelType, &i.Recipient, &i.IsActive, &i.LastUsedAt)
	return i, err
}

const upsertNotificationChannel = `-- name: UpsertNotificationChannel :exec
INSERT INTO notification_channels (channel_type, recipient, is_active)
VALUES (?, ?, ?)
ON CONFLICT (channel_type) DO UPDATE SET
    recipient = excluded.recipient,
    is_active = excluded.is_active`

func (q *Queries) UpsertNotificationChannel(ctx context.Context, channelType, recipient string, active bool) error {
	_, err := q.db.ExecContext(ctx, upsertNotificationChannel, channelType, recipient, active)
	return err
}

const touchNotificationChannel = `-- name: TouchNotificationChannel :exec
UPDATE notification_channels
SET last_used_at = ?
WHERE channel_type = ?`

func (q *Queries) TouchNotificationChannel(ctx context.Context, channelType, usedAt string) error {
	_, err := q.db.ExecContext(ctx, touchNotificationChannel, usedAt, channelType)
	return err
}

const createNotificationHistory = `-- name: CreateNotificationHistory :one
INSERT INTO notification_history (
    subscription_id, notification_type, channel_type, status, recipient,
    message_content, error_message, sent_at, sent_on
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateNotificationHistory(ctx context.Context, arg NotificationHistory) (int64, error) {
	row := q.db.QueryRowContext(ctx, createNotificationHistory,
		arg.SubscriptionID,
		arg.NotificationType,
		arg.ChannelType,
		arg.Status,
		arg.Recipient,
		arg.MessageContent,
		arg.ErrorMessage,
		arg.SentAt,
		arg.SentOn,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const countSentNotifications = `-- name: CountSentNotifications :one
SELECT COUNT(*)
FROM notification_history
WHERE subscription_id = ? AND notification_type = ? AND status = 'sent'
  AND (? = '' OR sent_on >= ?)`

// CountSentNotifications counts successful sends on or after since; an empty
// since matches any day.
func (q *Queries) CountSentNotifications(ctx context.Context, subscriptionID int64, notificationType, since string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSentNotifications, subscriptionID, notificationType, since, since)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listNotificationHistory = `-- name: ListNotificationHistory :many
SELECT id, subscription_id, notification_type, channel_type, status, recipient,
    message_content, error_message, sent_at, sent_on
FROM notification_history
WHERE (? = 0 OR subscription_id = ?)
ORDER BY id DESC
LIMIT ?`

func (q *Queries) ListNotificationHistory(ctx context.Context, subscriptionID int64, limit int64) ([]NotificationHistory, error) {
	rows, err := q.db.QueryContext(ctx, listNotificationHistory, subscriptionID, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NotificationHistory
	for rows.Next() {
		var i NotificationHistory
		if err := rows.Scan(
			&i.ID,
			&i.SubscriptionID,
			&i.NotificationType,
			&i.ChannelType,
			&i.Status,
			&i.Recipient,
			&i.MessageContent,
			&i.ErrorMessage,
			&i.SentAt,
			&i.SentOn,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSchedulerSettings = `-- name: GetSchedulerSettings :one
SELECT is_enabled, notification_check_time, timezone
FROM scheduler_settings
WHERE id = 1`

func (q *Queries) GetSchedulerSettings(ctx context.Context) (SchedulerSetting, error) {
	row := q.db.QueryRowContext(ctx, getSchedulerSettings)
	var i SchedulerSetting
	err := row.Scan(&i.IsEnabled, &i.NotificationCheckTime, &i.Timezone)
	return i, err
}

const updateSchedulerSettings = `-- name: UpdateSchedulerSettings :exec
INSERT INTO scheduler_settings (id, is_enabled, notification_check_time, timezone)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    is_enabled = excluded.is_enabled,
    notification_check_time = excluded.notification_check_time,
    timezone = excluded.timezone`

func (q *Queries) UpdateSchedulerSettings(ctx context.Context, arg SchedulerSetting) error {
	_, err := q.db.ExecContext(ctx, updateSchedulerSettings, arg.IsEnabled, arg.NotificationCheckTime, arg.Timezone)
	return err
}

const getSetting = `-- name: GetSetting :one
SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getSetting, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const setSetting = `-- name: SetSetting :exec
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`

func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, setSetting, key, value)
	return err
}
