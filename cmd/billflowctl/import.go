package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"billflow/internal/cli"
	"billflow/internal/core"
	"billflow/internal/services"
	"billflow/internal/storage"

	"github.com/shopspring/decimal"
)

var errImportIncomplete = errors.New("import incomplete")

type subscriptionImport struct {
	Name            string `json:"name"`
	Plan            string `json:"plan"`
	BillingCycle    string `json:"billing_cycle"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	PaymentMethod   string `json:"payment_method"`
	Category        string `json:"category"`
	StartDate       string `json:"start_date"`
	NextBillingDate string `json:"next_billing_date"`
	Status          string `json:"status"`
	RenewalType     string `json:"renewal_type"`
	Notes           string `json:"notes"`
	Website         string `json:"website"`
}

func (in subscriptionImport) toSubscription(ctx context.Context, repo *storage.SQLiteRepository) (core.Subscription, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Subscription{}, err
	}
	start, err := core.ParseDate(in.StartDate)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("start date: %w", err)
	}
	next, err := optionalDate(in.NextBillingDate)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("next billing date: %w", err)
	}

	sub := core.Subscription{
		Name:            in.Name,
		Plan:            in.Plan,
		BillingCycle:    core.BillingCycle(in.BillingCycle),
		Amount:          amount,
		Currency:        in.Currency,
		StartDate:       start,
		NextBillingDate: next,
		Status:          core.SubscriptionStatus(in.Status),
		RenewalType:     core.RenewalType(in.RenewalType),
		Notes:           in.Notes,
		Website:         in.Website,
	}
	if in.Category != "" {
		c, err := repo.CategoryByValue(ctx, in.Category)
		if err != nil {
			return core.Subscription{}, err
		}
		sub.CategoryID = c.ID
	}
	if in.PaymentMethod != "" {
		m, err := repo.PaymentMethodByValue(ctx, in.PaymentMethod)
		if err != nil {
			return core.Subscription{}, err
		}
		sub.PaymentMethodID = m.ID
	}
	return sub, nil
}

type paymentImport struct {
	SubscriptionID     int64  `json:"subscription_id"`
	PaymentDate        string `json:"payment_date"`
	AmountPaid         string `json:"amount_paid"`
	Currency           string `json:"currency"`
	BillingPeriodStart string `json:"billing_period_start"`
	BillingPeriodEnd   string `json:"billing_period_end"`
	Status             string `json:"status"`
	Notes              string `json:"notes"`
}

func (in paymentImport) toPayment() (core.PaymentRecord, error) {
	amount, err := decimal.NewFromString(in.AmountPaid)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, in.AmountPaid)
	}
	date, err := core.ParseDate(in.PaymentDate)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("payment date: %w", err)
	}
	start, err := optionalDate(in.BillingPeriodStart)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("billing period start: %w", err)
	}
	end, err := optionalDate(in.BillingPeriodEnd)
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("billing period end: %w", err)
	}
	return core.PaymentRecord{
		SubscriptionID:     in.SubscriptionID,
		PaymentDate:        date,
		AmountPaid:         amount,
		Currency:           in.Currency,
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
		Status:             core.PaymentStatus(in.Status),
		Notes:              in.Notes,
	}, nil
}

// importSubscriptionsCmd reads a JSON array of subscriptions. Items that fail
// are listed by their position and do not stop the others.
func importSubscriptionsCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: import-subscriptions <file.json>", errUsage)
	}
	var items []subscriptionImport
	if err := readJSON(args[0], &items); err != nil {
		return err
	}

	var (
		subs    []core.Subscription
		indexes []int
		failed  []services.BulkFailure
	)
	for i, item := range items {
		sub, err := item.toSubscription(ctx, app.Repo)
		if err != nil {
			failed = append(failed, services.BulkFailure{Index: i, Err: err})
			continue
		}
		subs = append(subs, sub)
		indexes = append(indexes, i)
	}
	result := app.Subscriptions.BulkCreate(ctx, subs)
	return reportImport(out, "subscriptions", len(items), result, indexes, failed)
}

func importPaymentsCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: import-payments <file.json>", errUsage)
	}
	var items []paymentImport
	if err := readJSON(args[0], &items); err != nil {
		return err
	}

	var (
		payments []core.PaymentRecord
		indexes  []int
		failed   []services.BulkFailure
	)
	for i, item := range items {
		p, err := item.toPayment()
		if err != nil {
			failed = append(failed, services.BulkFailure{Index: i, Err: err})
			continue
		}
		payments = append(payments, p)
		indexes = append(indexes, i)
	}
	result := app.Payments.BulkCreate(ctx, payments)
	return reportImport(out, "payments", len(items), result, indexes, failed)
}

// reportImport maps bulk failures back to file positions and prints them.
func reportImport(out io.Writer, what string, total int, result services.BulkResult, indexes []int, failed []services.BulkFailure) error {
	for _, f := range result.Failed {
		failed = append(failed, services.BulkFailure{Index: indexes[f.Index], Err: f.Err})
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })

	fmt.Fprintf(out, "imported %d of %d %s\n", len(result.Created), total, what)
	for _, f := range failed {
		fmt.Fprintf(out, "  item %d: %v\n", f.Index, f.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d %s failed", errImportIncomplete, len(failed), total, what)
	}
	return nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
