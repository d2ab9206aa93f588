package core

import "github.com/shopspring/decimal"

// PaymentFact is the part of a ledger row that the statistics read.
type PaymentFact struct {
	Date     Date
	Amount   decimal.Decimal
	Currency string
	Status   PaymentStatus
}

// FactFilter narrows the ledger rows read for statistics. Zero values match
// everything.
type FactFilter struct {
	From     Date
	To       Date
	Status   PaymentStatus
	Currency string
}

// PeriodPayment is a succeeded payment whose billing period overlaps a
// queried month, joined with its subscription.
type PeriodPayment struct {
	Subscription  Subscription
	CategoryValue string
	Amount        decimal.Decimal
	Currency      string
	PeriodStart   Date
	PeriodEnd     Date
}

// SubscriptionFact is one subscription reduced to what the book statistics
// group by.
type SubscriptionFact struct {
	Status        SubscriptionStatus
	BillingCycle  BillingCycle
	Amount        decimal.Decimal
	Currency      string
	CategoryValue string
	CategoryLabel string
}

// Quarter returns the first and last month of quarter q (1-4) of year.
func Quarter(year, q int) (YearMonth, YearMonth, bool) {
	if q < 1 || q > 4 {
		return YearMonth{}, YearMonth{}, false
	}
	first := (q-1)*3 + 1
	return YearMonth{Year: year, Month: first}, YearMonth{Year: year, Month: first + 2}, true
}
