package log

// Common field names for structured logging
const (
	FieldComponent        = "component"
	FieldRunID            = "run_id"
	FieldJob              = "job"
	FieldDuration         = "duration_ms"
	FieldSuccess          = "success"
	FieldError            = "error"
	FieldOperation        = "operation"
	FieldSubscriptionID   = "subscription_id"
	FieldPaymentID        = "payment_id"
	FieldYear             = "year"
	FieldMonth            = "month"
	FieldCurrency         = "currency"
	FieldNotificationType = "notification_type"
	FieldChannel          = "channel"
	FieldProcessed        = "processed"
	FieldErrors           = "errors"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentRenewal   = "renewal"
	ComponentNotify    = "notify"
	ComponentRates     = "rates"
	ComponentScheduler = "scheduler"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpRenew      = "renew"
	OpExpire     = "expire"
	OpReactivate = "reactivate"
	OpRegenerate = "regenerate"
	OpRecompute  = "recompute"
	OpRefresh    = "refresh"
	OpNotify     = "notify"
	OpExport     = "export"
	OpMigrate    = "migrate"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRunID(runID string) LogFields {
	f[FieldRunID] = runID
	return f
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithSubscription(id int64) LogFields {
	f[FieldSubscriptionID] = id
	return f
}

// WithPeriod adds the year and month of a summary bucket.
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

func (f LogFields) WithNotification(notificationType, channel string) LogFields {
	f[FieldNotificationType] = notificationType
	if channel != "" {
		f[FieldChannel] = channel
	}
	return f
}

// WithBatch adds the outcome counters of a batch job.
func (f LogFields) WithBatch(processed, errors int, durationMs int64) LogFields {
	f[FieldProcessed] = processed
	f[FieldErrors] = errors
	f[FieldDuration] = durationMs
	f[FieldSuccess] = errors == 0
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
