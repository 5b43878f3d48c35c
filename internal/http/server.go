package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "budgetpal/internal/log"
	"budgetpal/internal/middleware/ratelimit"
	"budgetpal/internal/middleware/security"
	"budgetpal/internal/middleware/trace"
	"budgetpal/internal/services"
)

const maxBodyBytes = 64 << 10

type Server struct {
	http.Server
	payments *services.PaymentService
	outlook  *services.OutlookService
	limiter  *ratelimit.Limiter
	trace    *trace.Middleware
	ready    func(context.Context) error

	shutdownOnce sync.Once
}

// Options holds the optional collaborators of a Server.
type Options struct {
	Logger   *applog.Logger
	Limiter  *ratelimit.Limiter
	ClientIP *security.ClientIPResolver
	Headers  security.HeadersConfig
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready func(context.Context) error
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, payments *services.PaymentService, outlook *services.OutlookService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if opts.ClientIP == nil {
		opts.ClientIP, _ = security.NewClientIPResolver()
	}
	if opts.Headers == (security.HeadersConfig{}) {
		opts.Headers = security.DefaultHeadersConfig()
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		payments: payments,
		outlook:  outlook,
		limiter:  opts.Limiter,
		trace:    trace.NewMiddleware(opts.Logger, opts.ClientIP.ClientIP),
		ready:    opts.Ready,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/payments", s.handleListPayments)
	api.HandleFunc("POST /api/payments", s.handleCreatePayment)
	api.HandleFunc("GET /api/payments/{id}", s.handleGetPayment)
	api.HandleFunc("PUT /api/payments/{id}", s.handleUpdatePayment)
	api.HandleFunc("DELETE /api/payments/{id}", s.handleDeletePayment)
	api.HandleFunc("GET /api/outlook", s.handleOutlook)

	limited := s.limiter.Middleware(opts.ClientIP.ClientIP, handleRateLimited)(api)
	mux.Handle("/api/", applog.ComponentMiddleware(applog.ComponentPayment)(limited))

	headers := security.NewHeadersMiddleware(opts.Headers)
	s.Handler = s.trace.Middleware(headers.Middleware(mux))
	return s
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

// Shutdown gracefully shuts down the server. Subsequent calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}
