package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"billflow/internal/cli"
	"billflow/internal/core"
	"billflow/internal/services"
)

// paymentStatsCmd takes a year and optionally a month (1-12) or a quarter (Q1-Q4).
func paymentStatsCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: payment-stats <year> [<month>|Q<n>]", errUsage)
	}
	year, err := parseYear(args[0])
	if err != nil {
		return err
	}

	var stats services.PaymentStats
	switch {
	case len(args) == 1:
		stats, err = app.Analytics.YearlyPaymentStats(ctx, year)
	case strings.HasPrefix(strings.ToUpper(args[1]), "Q"):
		q, convErr := strconv.Atoi(args[1][1:])
		if convErr != nil || q < 1 || q > 4 {
			return fmt.Errorf("%w: invalid quarter %q", errUsage, args[1])
		}
		stats, err = app.Analytics.QuarterlyPaymentStats(ctx, year, q)
	default:
		m, convErr := strconv.Atoi(args[1])
		if convErr != nil || m < 1 || m > 12 {
			return fmt.Errorf("%w: invalid month %q", errUsage, args[1])
		}
		stats, err = app.Analytics.MonthlyPaymentStats(ctx, year, m)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "payments %s..%s\n", stats.From, stats.To)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "currency\tpayments\tsucceeded\tfailed\ttotal\taverage")
	for _, t := range stats.ByCurrency {
		printTally(w, t.Currency, t)
	}
	if len(stats.ByMonth) > 1 {
		fmt.Fprintln(w, "\t\t\t\t\t")
		fmt.Fprintln(w, "month\tpayments\tsucceeded\tfailed\ttotal\taverage")
		for _, t := range stats.ByMonth {
			printTally(w, t.Month.String()+" "+t.Currency, t.PaymentTally)
		}
	}
	return w.Flush()
}

func printTally(w io.Writer, label string, t services.PaymentTally) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n", label, t.Payments, t.Succeeded, t.Failed,
		t.Total.StringFixed(core.MoneyPlaces), t.Average.StringFixed(core.MoneyPlaces))
}

func revenueCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("revenue", flag.ContinueOnError)
	fs.SetOutput(out)
	from := fs.String("from", "", "first payment date, YYYY-MM-DD")
	to := fs.String("to", "", "last payment date, YYYY-MM-DD")
	currency := fs.String("currency", "", "only this currency")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	filter := services.RevenueFilter{Currency: *currency}
	var err error
	if filter.From, err = optionalDate(*from); err != nil {
		return err
	}
	if filter.To, err = optionalDate(*to); err != nil {
		return err
	}

	report, err := app.Analytics.MonthlyRevenue(ctx, filter)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "month\tcurrency\tpayments\ttotal\taverage")
	for _, m := range report.Months {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", m.Month, m.Currency, m.Payments,
			m.Total.StringFixed(core.MoneyPlaces), m.Average.StringFixed(core.MoneyPlaces))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d months, %d payments, %s %s\n", report.MonthCount, report.Payments,
		report.TotalInBase.StringFixed(core.MoneyPlaces), report.BaseCurrency)
	return nil
}

func activeSubscriptionsCmd(ctx context.Context, app *cli.App, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: active-subscriptions <YYYY-MM>", errUsage)
	}
	d, err := core.ParseDate(args[0] + "-01")
	if err != nil || len(args[0]) != len("2006-01") {
		return fmt.Errorf("%w: invalid month %q", errUsage, args[0])
	}

	report, err := app.Analytics.ActiveSubscriptions(ctx, d.YearMonth())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range report.Subscriptions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s..%s\n", s.ID, s.Name, s.BillingCycle, s.Category,
			s.Payments, s.Paid.StringFixed(core.MoneyPlaces), s.PeriodStart, s.PeriodEnd)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d active, %d payments, %s %s\n", report.Month, len(report.Subscriptions),
		report.Payments, report.Revenue.StringFixed(core.MoneyPlaces), report.BaseCurrency)
	return nil
}

func subscriptionStatsCmd(ctx context.Context, app *cli.App, out io.Writer, _ []string) error {
	stats, err := app.Analytics.SubscriptionStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "total %d, active %d, trial %d, cancelled %d\n", stats.Total, stats.Active, stats.Trial, stats.Cancelled)
	fmt.Fprintf(out, "active amount %s %s, average %s\n", stats.ActiveAmount.StringFixed(core.MoneyPlaces),
		stats.BaseCurrency, stats.ActiveAverage.StringFixed(core.MoneyPlaces))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, b := range stats.ByCategory {
		fmt.Fprintf(w, "category\t%s\t%d\t%s\n", b.Label, b.Count, b.ActiveAmount.StringFixed(core.MoneyPlaces))
	}
	for _, b := range stats.ByCycle {
		fmt.Fprintf(w, "cycle\t%s\t%d\t%s\n", b.Label, b.Count, b.ActiveAmount.StringFixed(core.MoneyPlaces))
	}
	return w.Flush()
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", errUsage, s)
	}
	return year, nil
}

func optionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return d, nil
}
