package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"billflow/internal/core"
	"billflow/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createSubscription(t *testing.T, repo *storage.SQLiteRepository, name string, next core.Date) int64 {
	t.Helper()
	ctx := context.Background()
	paypal, err := repo.PaymentMethodByValue(ctx, "paypal")
	require.NoError(t, err)

	id, err := repo.CreateSubscription(ctx, core.Subscription{
		Name:            name,
		Plan:            "Basic",
		BillingCycle:    core.Monthly,
		Amount:          decimal.RequireFromString("12"),
		Currency:        "USD",
		PaymentMethodID: paypal.ID,
		StartDate:       next.AddMonths(-2),
		LastBillingDate: next.AddMonths(-1),
		NextBillingDate: next,
		Status:          core.StatusActive,
		RenewalType:     core.RenewalManual,
	})
	require.NoError(t, err)
	return id
}

func newTestDispatcher(t *testing.T, repo *storage.SQLiteRepository, sink Sink) *Dispatcher {
	t.Helper()
	require.NoError(t, repo.SaveNotificationChannel(context.Background(), core.NotificationChannel{
		Type:      core.ChannelTelegram,
		Recipient: "42",
		Active:    true,
	}))
	d := NewDispatcher(repo, map[core.ChannelType]Sink{core.ChannelTelegram: sink}, "en")
	d.now = func() time.Time { return testNow }
	return d
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	sink := NewMockSink(ctrl)
	d := newTestDispatcher(t, repo, sink)
	id := createSubscription(t, repo, "Netflix", core.NewDate(2024, 6, 1))

	sink.EXPECT().
		Send(gomock.Any(), "42", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, msg string) error {
			assert.Contains(t, msg, "<b>Netflix</b> renewed successfully")
			assert.Contains(t, msg, "Payment method: PayPal")
			return nil
		})

	deliveries, err := d.Notify(ctx, id, core.NotifyRenewalSuccess)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, core.ChannelTelegram, deliveries[0].Channel)
	assert.NoError(t, deliveries[0].Err)

	history, err := repo.ListNotificationHistory(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.NotificationSent, history[0].Status)
	assert.Equal(t, "42", history[0].Recipient)

	ch, err := repo.NotificationChannel(ctx, core.ChannelTelegram)
	require.NoError(t, err)
	assert.False(t, ch.LastUsedAt.IsZero())
}

func TestDispatcher_Notify_SendFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	sink := NewMockSink(ctrl)
	d := newTestDispatcher(t, repo, sink)
	id := createSubscription(t, repo, "Netflix", core.NewDate(2024, 6, 1))

	sink.EXPECT().Send(gomock.Any(), "42", gomock.Any()).Return(errors.New("chat not found"))

	deliveries, err := d.Notify(ctx, id, core.NotifyRenewalFailure)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	require.Len(t, deliveries, 1)

	history, err := repo.ListNotificationHistory(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.NotificationFailed, history[0].Status)
	assert.Equal(t, "chat not found", history[0].Error)
}

func TestDispatcher_Notify_OneSinkFailsOthersDeliver(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	telegram := NewMockSink(ctrl)
	broker := NewMockSink(ctrl)
	require.NoError(t, repo.SaveNotificationChannel(ctx, core.NotificationChannel{
		Type:      core.ChannelTelegram,
		Recipient: "42",
		Active:    true,
	}))
	require.NoError(t, repo.SaveNotificationChannel(ctx, core.NotificationChannel{
		Type:      core.ChannelAMQP,
		Recipient: "billing.events",
		Active:    true,
	}))
	d := NewDispatcher(repo, map[core.ChannelType]Sink{
		core.ChannelTelegram: telegram,
		core.ChannelAMQP:     broker,
	}, "en")
	d.now = func() time.Time { return testNow }
	id := createSubscription(t, repo, "Netflix", core.NewDate(2024, 6, 1))

	telegram.EXPECT().Send(gomock.Any(), "42", gomock.Any()).Return(errors.New("chat not found"))
	broker.EXPECT().Send(gomock.Any(), "billing.events", gomock.Any()).Return(nil)

	deliveries, err := d.Notify(ctx, id, core.NotifyRenewalSuccess, core.ChannelTelegram, core.ChannelAMQP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	require.Len(t, deliveries, 2)
	assert.EqualError(t, deliveries[0].Err, "chat not found")
	assert.NoError(t, deliveries[1].Err)

	history, err := repo.ListNotificationHistory(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	statuses := map[core.ChannelType]core.NotificationStatus{}
	for _, rec := range history {
		statuses[rec.Channel] = rec.Status
	}
	assert.Equal(t, map[core.ChannelType]core.NotificationStatus{
		core.ChannelTelegram: core.NotificationFailed,
		core.ChannelAMQP:     core.NotificationSent,
	}, statuses)
}

func TestDispatcher_Notify_Skipped(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	sink := NewMockSink(ctrl)
	id := createSubscription(t, repo, "Netflix", core.NewDate(2024, 6, 1))

	t.Run("unsupported type", func(t *testing.T) {
		d := NewDispatcher(repo, map[core.ChannelType]Sink{core.ChannelTelegram: sink}, "en")
		_, err := d.Notify(ctx, id, "weekly_digest")
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("no channel configured", func(t *testing.T) {
		d := NewDispatcher(repo, map[core.ChannelType]Sink{core.ChannelTelegram: sink}, "en")
		_, err := d.Notify(ctx, id, core.NotifyRenewalSuccess)
		assert.ErrorIs(t, err, ErrNoChannels)
	})

	t.Run("no sink for channel", func(t *testing.T) {
		d := newTestDispatcher(t, repo, sink)
		_, err := d.Notify(ctx, id, core.NotifyRenewalSuccess, core.ChannelAMQP)
		assert.ErrorIs(t, err, ErrNoChannels)
	})

	t.Run("disabled", func(t *testing.T) {
		d := newTestDispatcher(t, repo, sink)
		require.NoError(t, repo.SaveNotificationSetting(ctx, core.NotificationSetting{
			Type:     core.NotifySubscriptionChange,
			Enabled:  false,
			Channels: []core.ChannelType{core.ChannelTelegram},
		}))
		_, err := d.Notify(ctx, id, core.NotifySubscriptionChange)
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("missing subscription", func(t *testing.T) {
		d := newTestDispatcher(t, repo, sink)
		_, err := d.Notify(ctx, 404, core.NotifyRenewalSuccess)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestDispatcher_CheckAndSend(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	sink := NewMockSink(ctrl)
	d := newTestDispatcher(t, repo, sink)

	createSubscription(t, repo, "Due soon", core.NewDate(2024, 5, 13))
	createSubscription(t, repo, "Due later", core.NewDate(2024, 5, 30))
	createSubscription(t, repo, "Lapsed", core.NewDate(2024, 5, 9))
	createSubscription(t, repo, "Due today", core.NewDate(2024, 5, 10))

	var messages []string
	sink.EXPECT().
		Send(gomock.Any(), "42", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, msg string) error {
			messages = append(messages, msg)
			return nil
		}).
		Times(2)

	result, err := d.CheckAndSend(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, CheckResult{Reminders: 1, Warnings: 1}, result)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "<b>Due soon</b> is about to expire")
	assert.Contains(t, messages[1], "<b>Lapsed</b> has expired")

	// Same day again: both were already sent.
	result, err = d.CheckAndSend(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, CheckResult{}, result)
}

func TestDispatcher_CheckAndSend_RepeatReminder(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	sink := NewMockSink(ctrl)
	d := newTestDispatcher(t, repo, sink)
	createSubscription(t, repo, "Due soon", core.NewDate(2024, 5, 13))

	require.NoError(t, repo.SaveNotificationSetting(ctx, core.NotificationSetting{
		Type:               core.NotifyRenewalReminder,
		Enabled:            true,
		AdvanceDays:        3,
		RepeatNotification: true,
		Channels:           []core.ChannelType{core.ChannelTelegram},
	}))
	sink.EXPECT().Send(gomock.Any(), "42", gomock.Any()).Return(nil).Times(2)

	for range 2 {
		result, err := d.CheckAndSend(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Reminders)
	}
}

func TestDispatcher_ShouldRun(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	d := NewDispatcher(repo, nil, "")

	tests := []struct {
		name     string
		settings core.SchedulerSettings
		now      time.Time
		want     bool
		wantErr  bool
	}{
		{
			name:     "check hour in timezone",
			settings: core.SchedulerSettings{Enabled: true, CheckTime: "09:00", Timezone: "Asia/Shanghai"},
			now:      time.Date(2024, 5, 10, 1, 30, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "other hour",
			settings: core.SchedulerSettings{Enabled: true, CheckTime: "09:00", Timezone: "Asia/Shanghai"},
			now:      time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "unknown timezone uses UTC",
			settings: core.SchedulerSettings{Enabled: true, CheckTime: "09:15", Timezone: "Mars/Olympus"},
			now:      time.Date(2024, 5, 10, 9, 59, 0, 0, time.UTC),
			want:     true,
		},
		{
			name:     "disabled",
			settings: core.SchedulerSettings{Enabled: false, CheckTime: "09:00", Timezone: "UTC"},
			now:      time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
			want:     false,
		},
		{
			name:     "bad check time",
			settings: core.SchedulerSettings{Enabled: true, CheckTime: "nine", Timezone: "UTC"},
			now:      time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, repo.SaveSchedulerSettings(ctx, tt.settings))
			got, err := d.ShouldRun(ctx, tt.now)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
