package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"billflow/internal/core"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func toCoreSubscription(row Subscription) (core.Subscription, error) {
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("subscription %d start_date: %w", row.ID, err)
	}
	next, err := core.ParseDate(row.NextBillingDate)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("subscription %d next_billing_date: %w", row.ID, err)
	}
	last, err := parseNullDate(row.LastBillingDate)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("subscription %d last_billing_date: %w", row.ID, err)
	}
	return core.Subscription{
		ID:              row.ID,
		Name:            row.Name,
		Plan:            row.Plan,
		BillingCycle:    core.BillingCycle(row.BillingCycle),
		Amount:          row.Amount,
		Currency:        row.Currency,
		PaymentMethodID: row.PaymentMethodID.Int64,
		CategoryID:      row.CategoryID.Int64,
		StartDate:       start,
		LastBillingDate: last,
		NextBillingDate: next,
		Status:          core.SubscriptionStatus(row.Status),
		RenewalType:     core.RenewalType(row.RenewalType),
		Notes:           row.Notes,
		Website:         row.Website,
		CreatedAt:       parseTime(row.CreatedAt),
		UpdatedAt:       parseTime(row.UpdatedAt),
	}, nil
}

func toCoreSubscriptions(rows []Subscription) ([]core.Subscription, error) {
	out := make([]core.Subscription, 0, len(rows))
	for _, row := range rows {
		s, err := toCoreSubscription(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toCorePayment(row PaymentHistory) (core.PaymentRecord, error) {
	paid, err := core.ParseDate(row.PaymentDate)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("payment %d payment_date: %w", row.ID, err)
	}
	start, err := parseNullDate(row.BillingPeriodStart)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("payment %d billing_period_start: %w", row.ID, err)
	}
	end, err := parseNullDate(row.BillingPeriodEnd)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("payment %d billing_period_end: %w", row.ID, err)
	}
	return core.PaymentRecord{
		ID:                 row.ID,
		SubscriptionID:     row.SubscriptionID,
		PaymentDate:        paid,
		AmountPaid:         row.AmountPaid,
		Currency:           row.Currency,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
		Status:             core.PaymentStatus(row.Status),
		Notes:              row.Notes,
		CreatedAt:          parseTime(row.CreatedAt),
	}, nil
}

func toCorePayments(rows []PaymentHistory) ([]core.PaymentRecord, error) {
	out := make([]core.PaymentRecord, 0, len(rows))
	for _, row := range rows {
		p, err := toCorePayment(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func toYearMonths(rows [][2]int64) []core.YearMonth {
	out := make([]core.YearMonth, 0, len(rows))
	for _, ym := range rows {
		out = append(out, core.YearMonth{Year: int(ym[0]), Month: int(ym[1])})
	}
	return out
}

func encodeChannels(channels []core.ChannelType) (string, error) {
	if channels == nil {
		channels = []core.ChannelType{}
	}
	b, err := json.Marshal(channels)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeChannels(raw string) []core.ChannelType {
	var channels []core.ChannelType
	if err := json.Unmarshal([]byte(raw), &channels); err != nil {
		return []core.ChannelType{core.ChannelTelegram}
	}
	return channels
}
