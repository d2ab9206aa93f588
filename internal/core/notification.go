package core

import "time"

const (
	NotifyRenewalReminder    NotificationType = "renewal_reminder"
	NotifyExpirationWarning  NotificationType = "expiration_warning"
	NotifyRenewalSuccess     NotificationType = "renewal_success"
	NotifyRenewalFailure     NotificationType = "renewal_failure"
	NotifySubscriptionChange NotificationType = "subscription_change"
)

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelAMQP     ChannelType = "amqp"
)

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

type (
	NotificationType   string
	ChannelType        string
	NotificationStatus string

	// NotificationSetting controls one notification type.
	NotificationSetting struct {
		Type               NotificationType
		Enabled            bool
		AdvanceDays        int
		RepeatNotification bool
		Channels           []ChannelType
	}

	// NotificationChannel holds the delivery target for one channel type.
	NotificationChannel struct {
		Type       ChannelType
		Recipient  string
		Active     bool
		LastUsedAt time.Time
	}

	NotificationRecord struct {
		ID             int64
		SubscriptionID int64
		Type           NotificationType
		Channel        ChannelType
		Status         NotificationStatus
		Recipient      string
		Content        string
		Error          string
		SentAt         time.Time
	}

	// SchedulerSettings gates the hourly notification scan.
	SchedulerSettings struct {
		Enabled   bool
		CheckTime string // HH:MM
		Timezone  string
	}
)

// NotificationTypes lists every supported notification type.
var NotificationTypes = []NotificationType{
	NotifyRenewalReminder,
	NotifyExpirationWarning,
	NotifyRenewalSuccess,
	NotifyRenewalFailure,
	NotifySubscriptionChange,
}

func (t NotificationType) Valid() bool {
	for _, v := range NotificationTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (c ChannelType) Valid() bool {
	return c == ChannelTelegram || c == ChannelAMQP
}
