package notify

import (
	"testing"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		pref string
		want language.Tag
	}{
		{"en", English},
		{"en-US", English},
		{"zh-CN", Chinese},
		{"zh", Chinese},
		{"fr", English},
		{"", English},
		{"not a tag!", English},
	}
	for _, tt := range tests {
		t.Run(tt.pref, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchLanguage(tt.pref))
		})
	}
}

func TestFormatDate(t *testing.T) {
	d := core.NewDate(2024, 3, 5)
	assert.Equal(t, "3/5/2024", FormatDate(d, English))
	assert.Equal(t, "2024/3/5", FormatDate(d, Chinese))
	assert.Equal(t, "Unknown date", FormatDate(core.Date{}, English))
	assert.Equal(t, "未知日期", FormatDate(core.Date{}, Chinese))
}

func testDetails() core.SubscriptionDetails {
	return core.SubscriptionDetails{
		Subscription: core.Subscription{
			ID:              7,
			Name:            "Tom & Jerry <Plus>",
			Plan:            "Premium",
			BillingCycle:    core.Monthly,
			Amount:          decimal.RequireFromString("9.5"),
			Currency:        "USD",
			NextBillingDate: core.NewDate(2024, 6, 1),
			Status:          core.StatusActive,
		},
		PaymentMethodLabel: "PayPal",
	}
}

func TestRender_English(t *testing.T) {
	msg, err := Render(core.NotifyRenewalSuccess, "en", testDetails())
	require.NoError(t, err)

	assert.Contains(t, msg, "<b>✅ Renewal Successful</b>")
	assert.Contains(t, msg, "<b>Tom &amp; Jerry &lt;Plus&gt;</b> renewed successfully")
	assert.Contains(t, msg, "📅 Next renewal: 6/1/2024")
	assert.Contains(t, msg, "💰 Amount: 9.50 USD")
	assert.Contains(t, msg, "💳 Payment method: PayPal")
	assert.Contains(t, msg, "📋 Plan: Premium")
	assert.Contains(t, msg, "Thank you for your renewal!")
}

func TestRender_Chinese(t *testing.T) {
	msg, err := Render(core.NotifyRenewalReminder, "zh-CN", testDetails())
	require.NoError(t, err)

	assert.Contains(t, msg, "<b>续订提醒</b>")
	assert.Contains(t, msg, "到期时间: 2024/6/1")
	assert.Contains(t, msg, "支付方式: PayPal")
}

func TestRender_EveryType(t *testing.T) {
	for _, typ := range core.NotificationTypes {
		for _, pref := range []string{"en", "zh-CN"} {
			msg, err := Render(typ, pref, testDetails())
			require.NoError(t, err, "%s/%s", typ, pref)
			assert.NotEmpty(t, msg)
		}
	}
}

func TestRender_UnsupportedType(t *testing.T) {
	_, err := Render("weekly_digest", "en", testDetails())
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestRender_PaymentMethodFallsBackToID(t *testing.T) {
	d := testDetails()
	d.PaymentMethodLabel = ""
	d.PaymentMethodID = 3

	msg, err := Render(core.NotifySubscriptionChange, "en", d)
	require.NoError(t, err)
	assert.Contains(t, msg, "Payment method: 3")
}
