package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "spendwatch/internal/log"
	"spendwatch/internal/metrics"
	"spendwatch/internal/middleware/ratelimit"
	"spendwatch/internal/middleware/security"
	"spendwatch/internal/middleware/trace"
	"spendwatch/internal/services"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the API needs.
type Deps struct {
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	Watchdog   *services.Watchdog
	Logger     *applog.Logger
	// RateLimitPerMinute caps POST, PUT and DELETE requests per client IP.
	RateLimitPerMinute int
	Readiness          []ReadinessCheck
}

// Server is the JSON API server.
type Server struct {
	http.Server
	categories *services.CategoryService
	expenses   *services.ExpenseService
	watchdog   *services.Watchdog
	readiness  []ReadinessCheck

	logger   *applog.Logger
	slogger  *applog.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// Shutdown stops the rate limiter cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		categories: deps.Categories,
		expenses:   deps.Expenses,
		watchdog:   deps.Watchdog,
		readiness:  deps.Readiness,
		logger:     logger,
		slogger:    applog.NewStructuredLogger(logger),
		detector:   security.NewDetector(),
	}

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RequestsPerMinute = deps.RateLimitPerMinute
	s.limiter = ratelimit.NewLimiter(limiterCfg)

	mux := http.NewServeMux()
	s.routes(mux)
	s.Handler = s.middleware(mux)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	handle("GET /api/category", s.handleListCategories)
	handle("POST /api/category", s.handleCreateCategory)
	handle("GET /api/category/{id}", s.handleGetCategory)
	handle("PUT /api/category/{id}", s.handleUpdateCategory)
	handle("DELETE /api/category/{id}", s.handleDeleteCategory)

	handle("GET /api/expenses", s.handleListExpenses)
	handle("POST /api/expenses", s.handleCreateExpense)
	handle("GET /api/expenses/{id}", s.handleGetExpense)
	handle("PUT /api/expenses/{id}", s.handleUpdateExpense)
	handle("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	handle("GET /api/summary/month", s.handleMonthSummary)
	handle("POST /api/watchdog/check", s.handleWatchdogCheck)

	handle("GET /healthz", handleHealth)
	handle("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// middleware wraps the mux, outermost first: CORS, tracing, probe detection,
// security headers, request-scoped logger, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
	withReqID := applog.RequestIDMiddleware(trace.RequestIDFromRequest)(limited)
	withLogger := applog.Middleware(s.logger)(withReqID)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(withLogger)
	detected := s.detector.Middleware(headers)
	traced := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(detected)
	return security.CORSMiddleware(security.DefaultCORSConfig())(traced)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimitedTotal.Inc()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// instrument records request count and latency under the route pattern.
func instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(
		metrics.HTTPRequestDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(metrics.HTTPRequestsTotal.MustCurryWith(labels), h),
	)
}
