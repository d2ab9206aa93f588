package storage

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Subscription struct {
	ID              int64
	Name            string
	Plan            string
	BillingCycle    string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID sql.NullInt64
	CategoryID      sql.NullInt64
	StartDate       string
	LastBillingDate sql.NullString
	NextBillingDate string
	Status          string
	RenewalType     string
	Notes           string
	Website         string
	CreatedAt       string
	UpdatedAt       string
}

type SubscriptionDetailsRow struct {
	Subscription
	CategoryValue      sql.NullString
	CategoryLabel      sql.NullString
	PaymentMethodValue sql.NullString
	PaymentMethodLabel sql.NullString
}

type PaymentHistory struct {
	ID                 int64
	SubscriptionID     int64
	PaymentDate        string
	AmountPaid         decimal.Decimal
	Currency           string
	BillingPeriodStart sql.NullString
	BillingPeriodEnd   sql.NullString
	Status             string
	Notes              string
	CreatedAt          string
}

// MonthPaymentRow is a succeeded payment joined with the category that its
// month summary should be attributed to.
type MonthPaymentRow struct {
	PaymentID  int64
	AmountPaid decimal.Decimal
	Currency   string
	CategoryID int64
}

type MonthlyCategorySummary struct {
	Year                      int64
	Month                     int64
	CategoryID                int64
	TotalAmountInBaseCurrency decimal.Decimal
	BaseCurrency              string
	TransactionsCount         int64
	UpdatedAt                 string
}

type CategorySummaryRow struct {
	MonthlyCategorySummary
	CategoryValue sql.NullString
	CategoryLabel sql.NullString
}

type ExchangeRate struct {
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	UpdatedAt    string
}

type Category struct {
	ID    int64
	Value string
	Label string
}

type PaymentMethod struct {
	ID    int64
	Value string
	Label string
}

type NotificationSetting struct {
	NotificationType     string
	IsEnabled            bool
	AdvanceDays          int64
	RepeatNotification   bool
	NotificationChannels string
}

type NotificationChannel struct {
	ChannelType string
	Recipient   string
	IsActive    bool
	LastUsedAt  sql.NullString
}

type NotificationHistory struct {
	ID               int64
	SubscriptionID   int64
	NotificationType string
	ChannelType      string
	Status           string
	Recipient        string
	MessageContent   string
	ErrorMessage     string
	SentAt           string
	SentOn           string
}

type SchedulerSetting struct {
	IsEnabled             bool
	NotificationCheckTime string
	Timezone              string
}
