package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"billflow/internal/core"

	"golang.org/x/text/language"
)

// Supported template languages. The first entry is the fallback.
var (
	English    = language.English
	Chinese    = language.MustParse("zh-CN")
	languages  = []language.Tag{English, Chinese}
	langMatch  = language.NewMatcher(languages)
	dateLayout = map[language.Tag]string{
		English: "1/2/2006",
		Chinese: "2006/1/2",
	}
	unknownDate = map[language.Tag]string{
		English: "Unknown date",
		Chinese: "未知日期",
	}
)

const detailsBlock = `
📅 {{.DateLabel}}: {{.NextBillingDate}}
💰 {{.AmountLabel}}: {{.Amount}} {{.Currency}}
💳 {{.MethodLabel}}: {{.PaymentMethod}}
📋 {{.PlanLabel}}: {{.Plan}}
`

type templateKey struct {
	typ  core.NotificationType
	lang language.Tag
}

type templateText struct {
	head      string
	dateLabel string
	footer    string
}

var templateTexts = map[templateKey]templateText{
	{core.NotifyRenewalReminder, English}: {
		head:      "<b>Renewal Reminder</b>\n\n📢 <b>{{.Name}}</b> is about to expire\n",
		dateLabel: "Expiration date",
		footer:    "Please renew in time to avoid service interruption.",
	},
	{core.NotifyRenewalReminder, Chinese}: {
		head:      "<b>续订提醒</b>\n\n📢 <b>{{.Name}}</b> 即将到期\n",
		dateLabel: "到期时间",
		footer:    "请及时续订以避免服务中断。",
	},
	{core.NotifyExpirationWarning, English}: {
		head:      "<b>⚠️ Subscription Expiration Warning</b>\n\n🚨 <b>{{.Name}}</b> has expired\n",
		dateLabel: "Expiration date",
		footer:    "Please renew immediately to restore service.",
	},
	{core.NotifyExpirationWarning, Chinese}: {
		head:      "<b>⚠️ 订阅过期警告</b>\n\n🚨 <b>{{.Name}}</b> 已过期\n",
		dateLabel: "过期时间",
		footer:    "请立即续订以恢复服务。",
	},
	{core.NotifyRenewalSuccess, English}: {
		head:      "<b>✅ Renewal Successful</b>\n\n🎉 <b>{{.Name}}</b> renewed successfully\n",
		dateLabel: "Next renewal",
		footer:    "Thank you for your renewal!",
	},
	{core.NotifyRenewalSuccess, Chinese}: {
		head:      "<b>✅ 续订成功</b>\n\n🎉 <b>{{.Name}}</b> 续订成功\n",
		dateLabel: "下次续订",
		footer:    "感谢您的续订！",
	},
	{core.NotifyRenewalFailure, English}: {
		head:      "<b>❌ Renewal Failed</b>\n\n⚠️ <b>{{.Name}}</b> renewal failed\n",
		dateLabel: "Expiration date",
		footer:    "Please check your payment method and try again.",
	},
	{core.NotifyRenewalFailure, Chinese}: {
		head:      "<b>❌ 续订失败</b>\n\n⚠️ <b>{{.Name}}</b> 续订失败\n",
		dateLabel: "到期时间",
		footer:    "请检查支付方式并重试。",
	},
	{core.NotifySubscriptionChange, English}: {
		head:      "<b>📝 Subscription Change Notification</b>\n\n🔄 <b>{{.Name}}</b> information updated\n",
		dateLabel: "Next renewal",
		footer:    "Changes have taken effect.",
	},
	{core.NotifySubscriptionChange, Chinese}: {
		head:      "<b>📝 订阅变更通知</b>\n\n🔄 <b>{{.Name}}</b> 信息已更新\n",
		dateLabel: "下次续订",
		footer:    "变更已生效。",
	},
}

var fieldLabels = map[language.Tag][3]string{
	English: {"Amount", "Payment method", "Plan"},
	Chinese: {"金额", "支付方式", "计划"},
}

type templateEntry struct {
	tmpl      *template.Template
	dateLabel string
}

var templates = parseTemplates()

func parseTemplates() map[templateKey]templateEntry {
	out := make(map[templateKey]templateEntry, len(templateTexts))
	for key, text := range templateTexts {
		src := text.head + detailsBlock + "\n" + text.footer
		name := fmt.Sprintf("%s.%s", key.typ, key.lang)
		out[key] = templateEntry{
			tmpl:      template.Must(template.New(name).Parse(src)),
			dateLabel: text.dateLabel,
		}
	}
	return out
}

type templateData struct {
	Name            string
	Plan            string
	Amount          string
	Currency        string
	NextBillingDate string
	PaymentMethod   string
	Status          string
	BillingCycle    string

	DateLabel   string
	AmountLabel string
	MethodLabel string
	PlanLabel   string
}

// MatchLanguage maps a stored or configured language preference onto a
// supported template language. Unknown preferences fall back to English.
func MatchLanguage(pref string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(pref))
	if err != nil {
		return English
	}
	_, i, conf := langMatch.Match(tag)
	if conf == language.No {
		return English
	}
	return languages[i]
}

// FormatDate renders d the way messages in lang display dates.
func FormatDate(d core.Date, lang language.Tag) string {
	if d.IsZero() {
		return unknownDate[lang]
	}
	return d.Format(dateLayout[lang])
}

// Render produces the HTML message for a notification of type t about sub.
func Render(t core.NotificationType, pref string, sub core.SubscriptionDetails) (string, error) {
	lang := MatchLanguage(pref)
	entry, ok := templates[templateKey{t, lang}]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}

	labels := fieldLabels[lang]
	method := sub.PaymentMethodLabel
	if method == "" && sub.PaymentMethodID != 0 {
		method = fmt.Sprint(sub.PaymentMethodID)
	}
	data := templateData{
		Name:            sub.Name,
		Plan:            sub.Plan,
		Amount:          sub.Amount.StringFixed(core.MoneyPlaces),
		Currency:        sub.Currency,
		NextBillingDate: FormatDate(sub.NextBillingDate, lang),
		PaymentMethod:   method,
		Status:          string(sub.Status),
		BillingCycle:    string(sub.BillingCycle),
		DateLabel:       entry.dateLabel,
		AmountLabel:     labels[0],
		MethodLabel:     labels[1],
		PlanLabel:       labels[2],
	}

	var buf bytes.Buffer
	if err := entry.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t, err)
	}
	return buf.String(), nil
}
