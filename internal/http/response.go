package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budgetpal/internal/core"
	applog "budgetpal/internal/log"
	"budgetpal/internal/middleware/trace"
	"budgetpal/internal/services"
	"budgetpal/internal/storage"
)

type paymentResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Category          string    `json:"category"`
	Frequency         string    `json:"frequency"`
	FrequencyCode     string    `json:"frequency_code"`
	DayOfMonth        int       `json:"day_of_month"`
	Amount            string    `json:"amount"`
	Version           int64     `json:"version"`
	NextPaymentDate   string    `json:"next_payment_date,omitempty"`
	NextPaymentAmount string    `json:"next_payment_amount,omitempty"`
	IsQuarterly       bool      `json:"is_quarterly"`
	ScheduleError     string    `json:"schedule_error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type outlookItemResponse struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	Category        string `json:"category"`
	Frequency       string `json:"frequency"`
	NextPaymentDate string `json:"next_payment_date"`
	Amount          string `json:"amount"`
	DueThisMonth    string `json:"due_this_month"`
}

type outlookResponse struct {
	Year     int                   `json:"year"`
	Month    int                   `json:"month"`
	Income   string                `json:"income"`
	Expenses string                `json:"expenses"`
	Net      string                `json:"net"`
	Items    []outlookItemResponse `json:"items"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newPaymentResponse(sp services.ScheduledPayment) paymentResponse {
	rec := sp.Record
	resp := paymentResponse{
		ID:            rec.ID,
		Name:          rec.Name,
		Type:          rec.Type.String(),
		Category:      rec.Category.String(),
		Frequency:     rec.Frequency.String(),
		FrequencyCode: rec.Frequency.Code(),
		DayOfMonth:    rec.DayOfMonth,
		Amount:        core.FormatAmount(rec.Amount),
		Version:       rec.Version,
		IsQuarterly:   rec.Frequency == core.Quarterly,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if sp.Payment != nil {
		resp.NextPaymentDate = sp.Payment.NextPaymentDate().Format(time.DateOnly)
		resp.NextPaymentAmount = core.FormatAmount(sp.Payment.NextPaymentAmount())
		resp.IsQuarterly = sp.Payment.IsQuarterly()
	}
	if sp.ScheduleErr != nil {
		resp.ScheduleError = sp.ScheduleErr.Error()
	}
	return resp
}

func newOutlookResponse(o core.MonthOutlook) outlookResponse {
	resp := outlookResponse{
		Year:     o.Year,
		Month:    o.Month,
		Income:   core.FormatAmount(o.Income),
		Expenses: core.FormatAmount(o.Expenses),
		Net:      core.FormatAmount(o.Net),
		Items:    make([]outlookItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, outlookItemResponse{
			Name:            it.Name,
			Type:            it.Type.String(),
			Category:        it.Category.String(),
			Frequency:       it.Frequency.String(),
			NextPaymentDate: it.NextPaymentDate.Format(time.DateOnly),
			Amount:          core.FormatAmount(it.Amount),
			DueThisMonth:    core.FormatAmount(it.DueThisMonth),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// validationErrors are client mistakes in an otherwise well-formed request.
var validationErrors = []error{
	core.ErrInvalidDayOfMonth,
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrInvalidAmount,
	core.ErrUnrecognizedFrequency,
	core.ErrUnrecognizedCategory,
	core.ErrUnrecognizedType,
	errImmutableField,
}

// writeServiceError maps domain errors onto status codes. Anything
// unrecognized is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "payment not found")
		return
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), "Payment request failed", err, applog.ComponentHTTP, op, nil)
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
