// Package api exposes the service over HTTP: health probes, Prometheus
// metrics, manual scrape/cron triggers, run history, and recipient
// management.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
	"github.com/opennotify/autonotifier/internal/metrics"
)

// Pipeline runs one scrape-and-save pass without notification fan-out.
type Pipeline interface {
	Run(ctx context.Context) announce.RunOutcome
}

// Trigger runs the full cron path (scrape plus fan-out) unless a run is
// already active.
type Trigger interface {
	TryTrigger(ctx context.Context) (announce.RunOutcome, bool)
}

// ReadyChecker reports whether backing services are reachable.
type ReadyChecker func(ctx context.Context) error

// Config controls Server behavior.
type Config struct {
	// Development exposes error detail in API payloads.
	Development bool
	// RunTimeout bounds a manually triggered run.
	RunTimeout time.Duration
}

// Server wires handlers into a chi router.
type Server struct {
	pipeline   Pipeline
	trigger    Trigger
	recipients announce.RecipientStore
	runs       announce.RunStore // optional
	ready      ReadyChecker      // optional
	cfg        Config
	logger     *zap.Logger
}

// New builds a Server. runs and ready may be nil.
func New(
	pipeline Pipeline,
	trigger Trigger,
	recipients announce.RecipientStore,
	runs announce.RunStore,
	ready ReadyChecker,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &Server{
		pipeline:   pipeline,
		trigger:    trigger,
		recipients: recipients,
		runs:       runs,
		ready:      ready,
		cfg:        cfg,
		logger:     logger,
	}
}

// Router assembles the HTTP routes with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RunTimeout + 30*time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Post("/cron/run", s.handleCronRun)
		r.Get("/runs", s.handleListRuns)
		r.Route("/recipients", func(r chi.Router) {
			r.Get("/", s.handleListRecipients)
			r.Post("/", s.handleAddRecipient)
			r.Delete("/{email}", s.handleRemoveRecipient)
		})
	})

	return r
}

// requestLogger logs one line per request with latency and status.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("cost", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
