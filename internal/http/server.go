package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"glow/internal/aggregate"
	"glow/internal/cache"
	"glow/internal/ledger"
	"glow/internal/log"
	"glow/internal/metrics"
	"glow/internal/middleware/ratelimit"
	"glow/internal/middleware/security"
	"glow/internal/middleware/trace"
	"glow/internal/present"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	maxChartMonths        = 120
	maxListLimit          = 1000
	requestTimeout        = 30 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	idempotencyEntries    = 1024
)

// Deps collects what the server needs to run.
type Deps struct {
	Ledger    *ledger.Store
	Presenter *present.Presenter

	// PDFCurrencySymbol replaces the display symbol in the PDF export
	PDFCurrencySymbol string
	ChartMonths       int
	IdempotencyTTL    time.Duration
	RateLimit         ratelimit.Config

	Metrics *metrics.Metrics
	Logger  *log.Logger

	// Ready backs /readyz; nil means always ready
	Ready func(context.Context) error
	// Clock defaults to time.Now
	Clock func() time.Time
}

type Server struct {
	http.Server

	store        *ledger.Store
	presenter    *present.Presenter
	pdfPresenter *present.Presenter
	chartMonths  int

	logger  *log.Logger
	metrics *metrics.Metrics
	ready   func(context.Context) error
	now     func() time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	idemMu      sync.Mutex
	idempotency *cache.LRUCache[*idempotentEntry]
	caches      *cache.Manager

	shutdownOnce sync.Once
}

type idempotentEntry struct {
	fingerprint string
	response    *renderedResponse
}

// NewServer configures routes, returning a ready-to-run server. Shutdown
// must be called to stop its background goroutines.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.ChartMonths <= 0 {
		deps.ChartMonths = aggregate.DefaultTrailingMonths
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = defaultIdempotencyTTL
	}
	if deps.RateLimit.Clock == nil {
		deps.RateLimit.Clock = deps.Clock
	}

	s := &Server{
		store:        deps.Ledger,
		presenter:    deps.Presenter,
		pdfPresenter: deps.Presenter.WithCurrency(deps.PDFCurrencySymbol),
		chartMonths:  deps.ChartMonths,
		logger:       deps.Logger.WithComponent(log.ComponentHTTP),
		metrics:      deps.Metrics,
		ready:        deps.Ready,
		now:          deps.Clock,
		rateLimiter:  ratelimit.NewLimiter(deps.RateLimit),
		detector:     security.NewDetector(deps.Metrics),
		idempotency:  cache.NewLRUCache[*idempotentEntry](idempotencyEntries, deps.IdempotencyTTL).WithClock(deps.Clock),
		caches:       cache.NewManager(deps.Logger),
	}
	s.caches.Register(s.idempotency)
	s.caches.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics).Handler)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("No such endpoint").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost))

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.handleCreateTransaction)
			r.Get("/", s.handleListTransactions)
			r.Get("/recent", s.handleRecentTransactions)
			r.Get("/{id}", s.handleGetTransaction)
		})
		r.Get("/summary", s.handleSummary)
		r.Get("/chart", s.handleChart)
		r.Get("/export", s.handleExport)
		r.Get("/export.pdf", s.handleExportPDF)
	})
	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops background cleanup and then the HTTP server; only the
// first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
