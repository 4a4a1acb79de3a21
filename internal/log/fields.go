package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldAccountID    = "account_id"
	FieldChildID      = "child_id"
	FieldExpenseID    = "expense_id"
	FieldTemplateID   = "template_id"
	FieldCycleStart   = "cycle_start"
	FieldCycleEnd     = "cycle_end"
	FieldPlanSlug     = "plan_slug"
	FieldPeriod       = "billing_period"
	FieldCouponCode   = "coupon_code"
	FieldAmount       = "amount"
	FieldCount        = "count"
	FieldRoutingKey   = "routing_key"
	FieldSpreadsheet  = "spreadsheet_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentPricing   = "pricing"
	ComponentRecurring = "recurring"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpRead        = "read"
	OpDelete      = "delete"
	OpSummarize   = "summarize"
	OpQuote       = "quote"
	OpRedeem      = "redeem"
	OpMaterialize = "materialize"
	OpPublish     = "publish"
	OpExport      = "export"
	OpMigrate     = "migrate"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
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

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithAccount(accountID string) LogFields {
	f[FieldAccountID] = accountID
	return f
}

// WithCycle adds the window bounds as YYYY-MM-DD strings.
func (f LogFields) WithCycle(start, end string) LogFields {
	f[FieldCycleStart] = start
	f[FieldCycleEnd] = end
	return f
}

func (f LogFields) WithPlan(slug, period string) LogFields {
	f[FieldPlanSlug] = slug
	f[FieldPeriod] = period
	return f
}

// WithHTTP adds request and response fields.
func (f LogFields) WithHTTP(method, path string, status int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	f[FieldSuccess] = status < 400
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
