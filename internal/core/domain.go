package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly    BillingCycle = "monthly"
	Quarterly  BillingCycle = "quarterly"
	Semiannual BillingCycle = "semiannual"
	Yearly     BillingCycle = "yearly"
)

const (
	StatusTrial     SubscriptionStatus = "trial"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
)

const (
	RenewalAuto   RenewalType = "auto"
	RenewalManual RenewalType = "manual"
)

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPending   PaymentStatus = "pending"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

// OtherCategory is the sentinel category for payments whose subscription has
// no category or points at a category that no longer exists.
const OtherCategory = "other"

type (
	BillingCycle       string
	SubscriptionStatus string
	RenewalType        string
	PaymentStatus      string

	Subscription struct {
		ID              int64
		Name            string
		Plan            string
		BillingCycle    BillingCycle
		Amount          decimal.Decimal
		Currency        string
		PaymentMethodID int64 // 0 when unset
		CategoryID      int64 // 0 when unset
		StartDate       Date
		LastBillingDate Date // zero when the subscription was never billed
		NextBillingDate Date
		Status          SubscriptionStatus
		RenewalType     RenewalType
		Notes           string
		Website         string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// SubscriptionDetails is a subscription joined with its display labels.
	SubscriptionDetails struct {
		Subscription
		CategoryValue      string
		CategoryLabel      string
		PaymentMethodValue string
		PaymentMethodLabel string
	}

	PaymentRecord struct {
		ID                 int64
		SubscriptionID     int64
		PaymentDate        Date
		AmountPaid         decimal.Decimal
		Currency           string
		BillingPeriodStart Date
		BillingPeriodEnd   Date
		Status             PaymentStatus
		Notes              string
		CreatedAt          time.Time
	}

	ExchangeRate struct {
		From      string
		To        string
		Rate      decimal.Decimal
		UpdatedAt time.Time
	}

	Category struct {
		ID    int64
		Value string
		Label string
	}

	PaymentMethod struct {
		ID    int64
		Value string
		Label string
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedCycle  = errors.New("unsupported billing cycle")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrValidation         = errors.New("validation failed")
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidCurrency    = fmt.Errorf("%w: invalid currency", ErrValidation)
	ErrEmptyName          = fmt.Errorf("%w: empty name", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrDateOrder          = fmt.Errorf("%w: start_date <= last_billing_date <= next_billing_date violated", ErrValidation)
	ErrInvalidStatus      = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidRenewalType = fmt.Errorf("%w: invalid renewal type", ErrValidation)
)

func (c BillingCycle) Valid() bool {
	switch c {
	case Monthly, Quarterly, Semiannual, Yearly:
		return true
	}
	return false
}

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusCancelled:
		return true
	}
	return false
}

func (r RenewalType) Valid() bool {
	return r == RenewalAuto || r == RenewalManual
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentSucceeded, PaymentFailed, PaymentPending, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return fmt.Errorf("%w: name too long (max 200 characters)", ErrValidation)
	}
	if !s.BillingCycle.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedCycle, s.BillingCycle)
	}
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !IsCurrencyCode(s.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, s.Currency)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	if !s.RenewalType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRenewalType, s.RenewalType)
	}
	if err := s.StartDate.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	if err := s.NextBillingDate.Validate(); err != nil {
		return fmt.Errorf("next billing date: %w", err)
	}
	if s.NextBillingDate.Before(s.StartDate) {
		return ErrDateOrder
	}
	if !s.LastBillingDate.IsZero() {
		if s.LastBillingDate.Before(s.StartDate) || s.LastBillingDate.After(s.NextBillingDate) {
			return ErrDateOrder
		}
	}
	return nil
}

func (p PaymentRecord) Validate() error {
	if p.SubscriptionID <= 0 {
		return fmt.Errorf("%w: missing subscription id", ErrValidation)
	}
	if err := p.PaymentDate.Validate(); err != nil {
		return fmt.Errorf("payment date: %w", err)
	}
	if p.AmountPaid.IsNegative() {
		return ErrInvalidAmount
	}
	if !IsCurrencyCode(p.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, p.Currency)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: payment status %q", ErrInvalidStatus, p.Status)
	}
	if !p.BillingPeriodStart.IsZero() && !p.BillingPeriodEnd.IsZero() &&
		p.BillingPeriodEnd.Before(p.BillingPeriodStart) {
		return fmt.Errorf("%w: billing period ends before it starts", ErrValidation)
	}
	return nil
}

// IsCurrencyCode reports whether code looks like an ISO 4217 code.
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
