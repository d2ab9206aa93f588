package core

import "github.com/shopspring/decimal"

// SubscriptionUpdate lists the subscription fields to change. Nil fields are
// left untouched. A zero PaymentMethodID or CategoryID clears the reference.
type SubscriptionUpdate struct {
	Name            *string
	Plan            *string
	BillingCycle    *BillingCycle
	Amount          *decimal.Decimal
	Currency        *string
	PaymentMethodID *int64
	CategoryID      *int64
	StartDate       *Date
	LastBillingDate *Date
	NextBillingDate *Date
	Status          *SubscriptionStatus
	RenewalType     *RenewalType
	Notes           *string
	Website         *string
}

func (u SubscriptionUpdate) IsEmpty() bool {
	return u == SubscriptionUpdate{}
}

// Apply returns s with every present field overwritten.
func (u SubscriptionUpdate) Apply(s Subscription) Subscription {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Plan != nil {
		s.Plan = *u.Plan
	}
	if u.BillingCycle != nil {
		s.BillingCycle = *u.BillingCycle
	}
	if u.Amount != nil {
		s.Amount = *u.Amount
	}
	if u.Currency != nil {
		s.Currency = *u.Currency
	}
	if u.PaymentMethodID != nil {
		s.PaymentMethodID = *u.PaymentMethodID
	}
	if u.CategoryID != nil {
		s.CategoryID = *u.CategoryID
	}
	if u.StartDate != nil {
		s.StartDate = *u.StartDate
	}
	if u.LastBillingDate != nil {
		s.LastBillingDate = *u.LastBillingDate
	}
	if u.NextBillingDate != nil {
		s.NextBillingDate = *u.NextBillingDate
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.RenewalType != nil {
		s.RenewalType = *u.RenewalType
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	if u.Website != nil {
		s.Website = *u.Website
	}
	return s
}

// InvalidatesLedger reports whether applying u to old changes a field that the
// whole payment history is derived from.
func (u SubscriptionUpdate) InvalidatesLedger(old Subscription) bool {
	return (u.Amount != nil && !u.Amount.Equal(old.Amount)) ||
		(u.BillingCycle != nil && *u.BillingCycle != old.BillingCycle) ||
		(u.StartDate != nil && !u.StartDate.Equal(old.StartDate)) ||
		(u.Status != nil && *u.Status != old.Status)
}

// PaymentUpdate lists the payment fields to change. Nil fields are left untouched.
type PaymentUpdate struct {
	PaymentDate        *Date
	AmountPaid         *decimal.Decimal
	Currency           *string
	BillingPeriodStart *Date
	BillingPeriodEnd   *Date
	Status             *PaymentStatus
	Notes              *string
}

func (u PaymentUpdate) Apply(p PaymentRecord) PaymentRecord {
	if u.PaymentDate != nil {
		p.PaymentDate = *u.PaymentDate
	}
	if u.AmountPaid != nil {
		p.AmountPaid = *u.AmountPaid
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.BillingPeriodStart != nil {
		p.BillingPeriodStart = *u.BillingPeriodStart
	}
	if u.BillingPeriodEnd != nil {
		p.BillingPeriodEnd = *u.BillingPeriodEnd
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	return p
}

// AffectsSummary reports whether the update touches a field that feeds the
// monthly category summary.
func (u PaymentUpdate) AffectsSummary() bool {
	return u.PaymentDate != nil || u.AmountPaid != nil || u.Currency != nil ||
		u.Status != nil || u.BillingPeriodStart != nil || u.BillingPeriodEnd != nil
}

// PaymentFilter narrows a payment listing. Zero values match everything.
type PaymentFilter struct {
	SubscriptionID int64
	Status         PaymentStatus
	From           Date
	To             Date
	Limit          int
	Offset         int
}

// CategorizedPayment is a succeeded payment attributed to a summary category.
type CategorizedPayment struct {
	PaymentID  int64
	Amount     decimal.Decimal
	Currency   string
	CategoryID int64
}
