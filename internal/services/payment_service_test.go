package services

import (
	"context"
	"testing"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_BulkCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, d(2024, 6, 1))
	sub := env.insert(t, activeSub("iCloud", core.RenewalManual, d(2024, 4, 1), d(2024, 5, 1), d(2024, 6, 1)))

	payment := func(subID int64, date core.Date, amount string) core.PaymentRecord {
		return core.PaymentRecord{
			SubscriptionID: subID,
			PaymentDate:    date,
			AmountPaid:     decimal.RequireFromString(amount),
			Currency:       "USD",
		}
	}
	result := env.payments.BulkCreate(ctx, []core.PaymentRecord{
		payment(sub.ID, d(2024, 4, 1), "10"),
		payment(sub.ID+100, d(2024, 4, 2), "10"),
		payment(sub.ID, d(2024, 5, 1), "-1"),
		payment(sub.ID, d(2024, 5, 1), "10"),
	})

	require.Len(t, result.Created, 2)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.ErrorIs(t, result.Failed[0].Err, core.ErrNotFound)
	assert.Equal(t, 2, result.Failed[1].Index)
	assert.ErrorIs(t, result.Failed[1].Err, core.ErrValidation)

	ps := env.ledgerOf(t, sub.ID)
	require.Len(t, ps, 2)
	assert.Equal(t, core.PaymentSucceeded, ps[0].Status, "status defaults to succeeded")
	assert.Equal(t, map[string]string{core.OtherCategory: "70.00"}, env.monthTotals(t, ym(2024, 4)))
	assert.Equal(t, map[string]string{core.OtherCategory: "70.00"}, env.monthTotals(t, ym(2024, 5)))
}
