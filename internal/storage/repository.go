package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	exec    DBTX
	queries *Queries
	now     func() time.Time
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// NewSQLiteRepository opens the database at dbPath and makes sure the schema
// is migrated through DefaultSchemaGuard.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	return NewSQLiteRepositoryWithGuard(dbPath, DefaultSchemaGuard)
}

func NewSQLiteRepositoryWithGuard(dbPath string, guard *SchemaGuard) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := guard.Ensure(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		exec:    db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the underlying pool for callers that need raw access.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// WithinTx runs fn against a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(tx *SQLiteRepository) error) error {
	if _, nested := r.exec.(*sql.Tx); nested {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &SQLiteRepository{
		db:      r.db,
		exec:    tx,
		queries: r.queries.WithTx(tx),
		now:     r.now,
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

// Subscriptions

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) (int64, error) {
	now := formatTime(r.now())
	id, err := r.queries.CreateSubscription(ctx, CreateSubscriptionParams{
		Name:            s.Name,
		Plan:            s.Plan,
		BillingCycle:    string(s.BillingCycle),
		Amount:          s.Amount,
		Currency:        s.Currency,
		PaymentMethodID: nullID(s.PaymentMethodID),
		CategoryID:      nullID(s.CategoryID),
		StartDate:       s.StartDate.String(),
		LastBillingDate: nullDate(s.LastBillingDate),
		NextBillingDate: s.NextBillingDate.String(),
		Status:          string(s.Status),
		RenewalType:     string(s.RenewalType),
		Notes:           s.Notes,
		Website:         s.Website,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved to SQLite",
		"id", id,
		"name", s.Name,
		"billing_cycle", s.BillingCycle,
		"amount", s.Amount.String(),
		"currency", s.Currency)

	return id, nil
}

func (r *SQLiteRepository) GetSubscription(ctx context.Context, id int64) (core.Subscription, error) {
	row, err := r.queries.GetSubscription(ctx, id)
	if err != nil {
		return core.Subscription{}, notFound(err, "subscription", id)
	}
	return toCoreSubscription(row)
}

func (r *SQLiteRepository) GetSubscriptionDetails(ctx context.Context, id int64) (core.SubscriptionDetails, error) {
	row, err := r.queries.GetSubscriptionDetails(ctx, id)
	if err != nil {
		return core.SubscriptionDetails{}, notFound(err, "subscription", id)
	}
	sub, err := toCoreSubscription(row.Subscription)
	if err != nil {
		return core.SubscriptionDetails{}, err
	}
	return core.SubscriptionDetails{
		Subscription:       sub,
		CategoryValue:      row.CategoryValue.String,
		CategoryLabel:      row.CategoryLabel.String,
		PaymentMethodValue: row.PaymentMethodValue.String,
		PaymentMethodLabel: row.PaymentMethodLabel.String,
	}, nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.queries.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return toCoreSubscriptions(rows)
}

// ListSubscriptionsBy returns subscriptions with the given status and renewal type.
func (r *SQLiteRepository) ListSubscriptionsBy(ctx context.Context, status core.SubscriptionStatus, renewal core.RenewalType) ([]core.Subscription, error) {
	rows, err := r.queries.ListSubscriptionsByStatusAndRenewal(ctx, ListSubscriptionsByStatusAndRenewalParams{
		Status:      string(status),
		RenewalType: string(renewal),
	})
	if err != nil {
		return nil, fmt.Errorf("list %s %s subscriptions: %w", status, renewal, err)
	}
	return toCoreSubscriptions(rows)
}

// ListSubscriptionsDueBetween returns active subscriptions whose next billing
// date falls in [from, to].
func (r *SQLiteRepository) ListSubscriptionsDueBetween(ctx context.Context, from, to core.Date) ([]core.Subscription, error) {
	rows, err := r.queries.ListSubscriptionsDueBetween(ctx, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list subscriptions due between %s and %s: %w", from, to, err)
	}
	return toCoreSubscriptions(rows)
}

func (r *SQLiteRepository) SearchSubscriptions(ctx context.Context, term string) ([]core.Subscription, error) {
	rows, err := r.queries.SearchSubscriptions(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search subscriptions: %w", err)
	}
	return toCoreSubscriptions(rows)
}

// UpdateSubscription writes only the fields present in u.
func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, id int64, u core.SubscriptionUpdate) error {
	var b setBuilder
	if u.Name != nil {
		b.set("name", *u.Name)
	}
	if u.Plan != nil {
		b.set("plan", *u.Plan)
	}
	if u.BillingCycle != nil {
		b.set("billing_cycle", string(*u.BillingCycle))
	}
	if u.Amount != nil {
		b.set("amount", *u.Amount)
	}
	if u.Currency != nil {
		b.set("currency", *u.Currency)
	}
	if u.PaymentMethodID != nil {
		b.set("payment_method_id", nullID(*u.PaymentMethodID))
	}
	if u.CategoryID != nil {
		b.set("category_id", nullID(*u.CategoryID))
	}
	if u.StartDate != nil {
		b.set("start_date", u.StartDate.String())
	}
	if u.LastBillingDate != nil {
		b.set("last_billing_date", nullDate(*u.LastBillingDate))
	}
	if u.NextBillingDate != nil {
		b.set("next_billing_date", u.NextBillingDate.String())
	}
	if u.Status != nil {
		b.set("status", string(*u.Status))
	}
	if u.RenewalType != nil {
		b.set("renewal_type", string(*u.RenewalType))
	}
	if u.Notes != nil {
		b.set("notes", *u.Notes)
	}
	if u.Website != nil {
		b.set("website", *u.Website)
	}
	if b.empty() {
		return nil
	}
	b.set("updated_at", formatTime(r.now()))

	query := "UPDATE subscriptions SET " + b.clause() + " WHERE id = ?"
	result, err := r.exec.ExecContext(ctx, query, append(b.args, id)...)
	if err != nil {
		return fmt.Errorf("update subscription %d: %w", id, err)
	}
	return requireAffected(result, "subscription", id)
}

// UpdateSubscriptionBilling moves the billing dates and status in one statement.
func (r *SQLiteRepository) UpdateSubscriptionBilling(ctx context.Context, id int64, last, next core.Date, status core.SubscriptionStatus) error {
	n, err := r.queries.UpdateSubscriptionBilling(ctx, UpdateSubscriptionBillingParams{
		LastBillingDate: nullDate(last),
		NextBillingDate: next.String(),
		Status:          string(status),
		UpdatedAt:       formatTime(r.now()),
		ID:              id,
	})
	if err != nil {
		return fmt.Errorf("update subscription %d billing: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) UpdateSubscriptionStatus(ctx context.Context, id int64, status core.SubscriptionStatus) error {
	n, err := r.queries.UpdateSubscriptionStatus(ctx, id, string(status), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("update subscription %d status: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeleteSubscription removes the subscription; its payments go with it.
func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("delete subscription %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Subscription deleted", "id", id)
	return nil
}

// ResetAll deletes every subscription, payment and summary row.
func (r *SQLiteRepository) ResetAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.WithinTx(ctx, func(tx *SQLiteRepository) error {
		if _, err := tx.exec.ExecContext(ctx, "DELETE FROM payment_history"); err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		n, err := tx.queries.DeleteAllSubscriptions(ctx)
		if err != nil {
			return fmt.Errorf("delete subscriptions: %w", err)
		}
		deleted = n
		if _, err := tx.queries.DeleteAllSummaries(ctx); err != nil {
			return fmt.Errorf("delete summaries: %w", err)
		}
		return nil
	})
	return deleted, err
}

// Categories and payment methods

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, core.Category{ID: c.ID, Value: c.Value, Label: c.Label})
	}
	return out, nil
}

func (r *SQLiteRepository) CategoryByValue(ctx context.Context, value string) (core.Category, error) {
	c, err := r.queries.GetCategoryByValue(ctx, value)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", value, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %q: %w", value, err)
	}
	return core.Category{ID: c.ID, Value: c.Value, Label: c.Label}, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, value, label string) (int64, error) {
	id, err := r.queries.CreateCategory(ctx, value, label)
	if err != nil {
		return 0, fmt.Errorf("create category %q: %w", value, err)
	}
	return id, nil
}

// DeleteCategory removes a category; subscriptions pointing at it lose the reference.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) PaymentMethodByValue(ctx context.Context, value string) (core.PaymentMethod, error) {
	pm, err := r.queries.GetPaymentMethodByValue(ctx, value)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentMethod{}, fmt.Errorf("payment method %q: %w", value, core.ErrNotFound)
	}
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method %q: %w", value, err)
	}
	return core.PaymentMethod{ID: pm.ID, Value: pm.Value, Label: pm.Label}, nil
}

// Payments

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.PaymentRecord) (int64, error) {
	id, err := r.queries.CreatePayment(ctx, CreatePaymentParams{
		SubscriptionID:     p.SubscriptionID,
		PaymentDate:        p.PaymentDate.String(),
		AmountPaid:         p.AmountPaid,
		Currency:           p.Currency,
		BillingPeriodStart: nullDate(p.BillingPeriodStart),
		BillingPeriodEnd:   nullDate(p.BillingPeriodEnd),
		Status:             string(p.Status),
		Notes:              p.Notes,
		CreatedAt:          formatTime(r.now()),
	})
	if err != nil {
		return 0, fmt.Errorf("create payment for subscription %d: %w", p.SubscriptionID, err)
	}

	slog.DebugContext(ctx, "Payment saved to SQLite",
		"id", id,
		"subscription_id", p.SubscriptionID,
		"payment_date", p.PaymentDate.String(),
		"amount", p.AmountPaid.String(),
		"currency", p.Currency)

	return id, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.PaymentRecord, error) {
	row, err := r.queries.GetPayment(ctx, id)
	if err != nil {
		return core.PaymentRecord{}, notFound(err, "payment", id)
	}
	return toCorePayment(row)
}

func (r *SQLiteRepository) ListPaymentsBySubscription(ctx context.Context, subscriptionID int64) ([]core.PaymentRecord, error) {
	rows, err := r.queries.ListPaymentsBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list payments for subscription %d: %w", subscriptionID, err)
	}
	return toCorePayments(rows)
}

// ListPayments returns payments matching f, newest first.
func (r *SQLiteRepository) ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.PaymentRecord, error) {
	var w whereBuilder
	if f.SubscriptionID != 0 {
		w.add("subscription_id = ?", f.SubscriptionID)
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		w.add("payment_date >= ?", f.From.String())
	}
	if !f.To.IsZero() {
		w.add("payment_date <= ?", f.To.String())
	}

	query := "SELECT " + paymentColumns + " FROM payment_history" + w.clause() + " ORDER BY payment_date DESC, id DESC"
	args := w.args
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.queries.queryPayments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return toCorePayments(rows)
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.PaymentRecord) error {
	n, err := r.queries.UpdatePayment(ctx, UpdatePaymentParams{
		PaymentDate:        p.PaymentDate.String(),
		AmountPaid:         p.AmountPaid,
		Currency:           p.Currency,
		BillingPeriodStart: nullDate(p.BillingPeriodStart),
		BillingPeriodEnd:   nullDate(p.BillingPeriodEnd),
		Status:             string(p.Status),
		Notes:              p.Notes,
		ID:                 p.ID,
	})
	if err != nil {
		return fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("payment %d: %w", p.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	n, err := r.queries.DeletePayment(ctx, id)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("payment %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeletePaymentsBySubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	n, err := r.queries.DeletePaymentsBySubscription(ctx, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("delete payments for subscription %d: %w", subscriptionID, err)
	}
	return n, nil
}

// PaymentMonthsBySubscription returns every month touched by the
// subscription's payments, whatever their status.
func (r *SQLiteRepository) PaymentMonthsBySubscription(ctx context.Context, subscriptionID int64) ([]core.YearMonth, error) {
	rows, err := r.queries.ListPaymentMonthsBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list payment months for subscription %d: %w", subscriptionID, err)
	}
	return toYearMonths(rows), nil
}

func (r *SQLiteRepository) SucceededPaymentMonths(ctx context.Context) ([]core.YearMonth, error) {
	rows, err := r.queries.ListSucceededPaymentMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list succeeded payment months: %w", err)
	}
	return toYearMonths(rows), nil
}

// SucceededPaymentsInMonth returns succeeded payments dated inside ym, each
// attributed to its subscription's category or to the "other" category.
func (r *SQLiteRepository) SucceededPaymentsInMonth(ctx context.Context, ym core.YearMonth) ([]core.CategorizedPayment, error) {
	rows, err := r.queries.ListSucceededPaymentsForMonth(ctx, ym.First().String(), ym.Last().String())
	if err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", ym, err)
	}
	out := make([]core.CategorizedPayment, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategorizedPayment{
			PaymentID:  row.PaymentID,
			Amount:     row.AmountPaid,
			Currency:   row.Currency,
			CategoryID: row.CategoryID,
		})
	}
	return out, nil
}

// Monthly category summaries

// ReplaceMonthSummaries deletes the month's rows and inserts rows in one
// transaction, so categories absent from rows disappear from the month.
func (r *SQLiteRepository) ReplaceMonthSummaries(ctx context.Context, ym core.YearMonth, rows []core.MonthlyCategorySummary) error {
	return r.WithinTx(ctx, func(tx *SQLiteRepository) error {
		if _, err := tx.queries.DeleteMonthSummaries(ctx, int64(ym.Year), int64(ym.Month)); err != nil {
			return fmt.Errorf("delete summaries for %s: %w", ym, err)
		}
		updatedAt := formatTime(tx.now())
		for _, row := range rows {
			if err := tx.queries.InsertSummary(ctx, InsertSummaryParams{
				Year:                      int64(ym.Year),
				Month:                     int64(ym.Month),
				CategoryID:                row.CategoryID,
				TotalAmountInBaseCurrency: row.TotalInBase,
				BaseCurrency:              row.BaseCurrency,
				TransactionsCount:         int64(row.TransactionsCount),
				UpdatedAt:                 updatedAt,
			}); err != nil {
				return fmt.Errorf("insert summary %s category %d: %w", ym, row.CategoryID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteAllSummaries(ctx context.Context) error {
	if _, err := r.queries.DeleteAllSummaries(ctx); err != nil {
		return fmt.Errorf("delete all summaries: %w", err)
	}
	return nil
}

// ListSummaries returns summary rows for every month in [from, to].
func (r *SQLiteRepository) ListSummaries(ctx context.Context, from, to core.YearMonth) ([]core.CategorySummary, error) {
	rows, err := r.queries.ListSummariesBetween(ctx,
		int64(from.Year*100+from.Month),
		int64(to.Year*100+to.Month))
	if err != nil {
		return nil, fmt.Errorf("list summaries %s..%s: %w", from, to, err)
	}
	out := make([]core.CategorySummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategorySummary{
			MonthlyCategorySummary: core.MonthlyCategorySummary{
				Year:              int(row.Year),
				Month:             int(row.Month),
				CategoryID:        row.CategoryID,
				TotalInBase:       row.TotalAmountInBaseCurrency,
				BaseCurrency:      row.BaseCurrency,
				TransactionsCount: int(row.TransactionsCount),
				UpdatedAt:         parseTime(row.UpdatedAt),
			},
			CategoryValue: row.CategoryValue.String,
			CategoryLabel: row.CategoryLabel.String,
		})
	}
	return out, nil
}

// Exchange rates

// ExchangeRate returns the stored from->to rate. ok is false when no row exists.
func (r *SQLiteRepository) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, bool, error) {
	row, err := r.queries.GetExchangeRate(ctx, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get exchange rate %s->%s: %w", from, to, err)
	}
	return row.Rate, true, nil
}

func (r *SQLiteRepository) ListExchangeRates(ctx context.Context) ([]core.ExchangeRate, error) {
	rows, err := r.queries.ListExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	out := make([]core.ExchangeRate, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.ExchangeRate{
			From:      row.FromCurrency,
			To:        row.ToCurrency,
			Rate:      row.Rate,
			UpdatedAt: parseTime(row.UpdatedAt),
		})
	}
	return out, nil
}

// UpsertExchangeRates applies all rates atomically.
func (r *SQLiteRepository) UpsertExchangeRates(ctx context.Context, rates []core.ExchangeRate) error {
	return r.WithinTx(ctx, func(tx *SQLiteRepository) error {
		updatedAt := formatTime(tx.now())
		for _, rate := range rates {
			if err := tx.queries.UpsertExchangeRate(ctx, UpsertExchangeRateParams{
				FromCurrency: rate.From,
				ToCurrency:   rate.To,
				Rate:         rate.Rate,
				UpdatedAt:    updatedAt,
			}); err != nil {
				return fmt.Errorf("upsert exchange rate %s->%s: %w", rate.From, rate.To, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) CountExchangeRates(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExchangeRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("count exchange rates: %w", err)
	}
	return n, nil
}

func requireAffected(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}
