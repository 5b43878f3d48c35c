package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budgetpal/internal/cache"
	"budgetpal/internal/core"
	applog "budgetpal/internal/log"
	"budgetpal/internal/middleware/ratelimit"
	"budgetpal/internal/services"
	"budgetpal/internal/storage/memory"
)

// March 5th 2024 is a Tuesday.
var testNow = time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, limit int) *Server {
	t.Helper()
	payments := services.NewPaymentService(memory.New(), nil, core.FixedClock(testNow))
	outlook := services.NewOutlookService(payments, cache.NewLRUCache[core.MonthOutlook](4, time.Minute))
	return NewServer(":0", payments, outlook, Options{
		Logger:  applog.New(applog.Config{Component: applog.ComponentHTTP, Output: io.Discard}),
		Limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: limit}),
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, 60)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	s.ready = func(context.Context) error { return errors.New("broker down") }
	rec = do(t, s, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d", rec.Code)
	}
	if body := decode[errorResponse](t, rec); body.RequestID == "" || body.Error != "not ready" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestCreatePayment(t *testing.T) {
	s := newTestServer(t, 60)

	rec := do(t, s, http.MethodPost, "/api/payments",
		`{"name":"Rent","day_of_month":1,"amount":"1500","type":"Expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/payments/1" {
		t.Errorf("Location = %q", loc)
	}
	got := decode[paymentResponse](t, rec)
	if got.NextPaymentDate != "2024-04-01" || got.NextPaymentAmount != "0.00" {
		t.Errorf("schedule = %s / %s", got.NextPaymentDate, got.NextPaymentAmount)
	}
	if got.Frequency != "Monthly" || got.FrequencyCode != "M" || got.Category != "Fixed" || got.IsQuarterly {
		t.Errorf("defaults not applied: %+v", got)
	}

	rec = do(t, s, http.MethodPost, "/api/payments",
		`{"name":"Gym","day_of_month":15,"amount":29.99,"frequency_code":"q","category":"Discretionary","type":"Expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	got = decode[paymentResponse](t, rec)
	if got.NextPaymentDate != "2024-03-15" || got.NextPaymentAmount != "29.99" || !got.IsQuarterly {
		t.Errorf("unexpected gym response %+v", got)
	}
}

func TestCreatePayment_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"name":"Rent","colour":"red"}`, http.StatusBadRequest},
		{"trailing data", `{"name":"Rent"} {}`, http.StatusBadRequest},
		{"day out of range", `{"name":"Rent","day_of_month":32,"amount":"10","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"missing day", `{"name":"Rent","amount":"10","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"empty name", `{"name":"  ","day_of_month":1,"amount":"10","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"name":"Rent","day_of_month":1,"amount":"-10","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"missing amount", `{"name":"Rent","day_of_month":1,"type":"Expense"}`, http.StatusUnprocessableEntity},
		{"unknown frequency", `{"name":"Rent","day_of_month":1,"amount":"10","frequency":"Daily","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"frequency mismatch", `{"name":"Rent","day_of_month":1,"amount":"10","frequency":"Weekly","frequency_code":"A","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"unknown category", `{"name":"Rent","day_of_month":1,"amount":"10","category":"Luxury","type":"Expense"}`, http.StatusUnprocessableEntity},
		{"unknown type", `{"name":"Rent","day_of_month":1,"amount":"10","type":"Transfer"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 60)
			rec := do(t, s, http.MethodPost, "/api/payments", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if body := decode[errorResponse](t, rec); body.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestPaymentLifecycle(t *testing.T) {
	s := newTestServer(t, 60)
	do(t, s, http.MethodPost, "/api/payments", `{"name":"Rent","day_of_month":1,"amount":"1500","type":"Expense"}`)

	rec := do(t, s, http.MethodGet, "/api/payments/1", "")
	if rec.Code != http.StatusOK || decode[paymentResponse](t, rec).Name != "Rent" {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPut, "/api/payments/1", `{"name":"Rent","amount":"1550.50","frequency":"Monthly"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[paymentResponse](t, rec); got.Amount != "1550.50" || got.Version != 2 {
		t.Errorf("unexpected update response %+v", got)
	}

	rec = do(t, s, http.MethodPut, "/api/payments/1", `{"name":"Rent","day_of_month":5,"amount":"10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("day change status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodPut, "/api/payments/1", `{"name":"Rent","type":"Income","amount":"10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("type change status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/payments", "")
	if list := decode[[]paymentResponse](t, rec); len(list) != 1 || list[0].Amount != "1550.50" {
		t.Errorf("unexpected list %+v", list)
	}

	if rec := do(t, s, http.MethodDelete, "/api/payments/1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/payments/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/payments/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/payments/9", `{"name":"X","amount":"1"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/payments/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestUpdatePayment_KeepsOmittedFields(t *testing.T) {
	s := newTestServer(t, 60)
	rec := do(t, s, http.MethodPost, "/api/payments",
		`{"name":"Tax","day_of_month":20,"amount":"300","frequency":"Quarterly","category":"Mandatory","type":"Expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPut, "/api/payments/1", `{"name":"Tax","amount":"310"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[paymentResponse](t, rec)
	if got.Frequency != "Quarterly" || got.Category != "Mandatory" || !got.IsQuarterly || got.Amount != "310.00" {
		t.Errorf("omitted fields were not kept: %+v", got)
	}

	rec = do(t, s, http.MethodPut, "/api/payments/1", `{"name":"Tax","amount":"310","frequency_code":"M","category":"Fixed"}`)
	if got := decode[paymentResponse](t, rec); got.Frequency != "Monthly" || got.Category != "Fixed" || got.IsQuarterly {
		t.Errorf("explicit fields were not applied: %+v", got)
	}
}

func TestOutlook(t *testing.T) {
	s := newTestServer(t, 60)
	for _, body := range []string{
		`{"name":"Rent","day_of_month":1,"amount":"1500","type":"Expense"}`,
		`{"name":"Gym","day_of_month":15,"amount":"29.99","type":"Expense"}`,
		`{"name":"Salary","day_of_month":25,"amount":"3000","type":"Income"}`,
	} {
		if rec := do(t, s, http.MethodPost, "/api/payments", body); rec.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := do(t, s, http.MethodGet, "/api/outlook", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[outlookResponse](t, rec)
	if got.Year != 2024 || got.Month != 3 {
		t.Errorf("period = %d-%d", got.Year, got.Month)
	}
	if got.Income != "3000.00" || got.Expenses != "29.99" || got.Net != "2970.01" {
		t.Errorf("totals = %s / %s / %s", got.Income, got.Expenses, got.Net)
	}
	var names []string
	for _, it := range got.Items {
		names = append(names, it.Name)
	}
	if strings.Join(names, ",") != "Gym,Salary,Rent" {
		t.Errorf("item order = %v", names)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	body := `{"name":"Rent","day_of_month":1,"amount":"1500","type":"Expense"}`

	if rec := do(t, s, http.MethodPost, "/api/payments", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/payments", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second create status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if decode[errorResponse](t, rec).Error != "rate limit exceeded" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	if rec := do(t, s, http.MethodGet, "/api/payments", ""); rec.Code != http.StatusOK {
		t.Errorf("reads must not be limited, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, 60)
	do(t, s, http.MethodGet, "/healthz", "")
	do(t, s, http.MethodGet, "/nope", "")
	if m := s.Metrics(); m.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d", m.TotalRequests)
	}
}

func TestServer_ShutdownIdempotent(t *testing.T) {
	s := newTestServer(t, 60)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
