package log

import (
	"time"

	"github.com/shopspring/decimal"
)

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldPaymentID       = "payment_id"
	FieldPaymentName     = "payment_name"
	FieldPaymentType     = "payment_type"
	FieldDayOfMonth      = "day_of_month"
	FieldAmount          = "amount"
	FieldFrequency       = "frequency"
	FieldCategory        = "category"
	FieldNextPaymentDate = "next_payment_date"
	FieldVersion         = "version"
	FieldClientIP        = "client_ip"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentPayment = "payment"
	ComponentOutlook = "outlook"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPublish  = "publish"
	OpSync     = "sync"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds the error text; nil errors are skipped.
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

// WithPayment adds the identifying and scheduling fields of a payment.
func (f LogFields) WithPayment(id int64, name, paymentType string, amount decimal.Decimal, next time.Time) LogFields {
	f[FieldPaymentID] = id
	f[FieldPaymentName] = name
	f[FieldPaymentType] = paymentType
	f[FieldAmount] = amount.StringFixed(2)
	f[FieldNextPaymentDate] = next.Format("2006-01-02")
	return f
}

func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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
