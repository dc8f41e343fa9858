// Package http serves the dividend pivot pages.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"divs/internal/cache"
	applog "divs/internal/log"
	"divs/internal/metric"
	"divs/internal/middleware/ratelimit"
	"divs/internal/middleware/security"
	"divs/internal/middleware/trace"
	"divs/internal/source"
	appweb "divs/web"
)

// Options configures a Server.
type Options struct {
	Addr     string
	Reader   source.EventReader
	Logger   *applog.Logger
	Currency string

	// Scale is the per-unit rounding scale; nil selects metric.DefaultScale.
	Scale *int32

	CacheSize int
	CacheTTL  time.Duration

	// RateLimitRPS of 0 disables rate limiting.
	RateLimitRPS   int
	RateLimitBurst int

	// ActiveWindow separates active from inactive payers in the sidebar.
	ActiveWindow time.Duration
	Now          func() time.Time
}

const (
	defaultActiveWindow = 365 * 24 * time.Hour
	snapshotTimeout     = 10 * time.Second
	staticMaxAge        = 3600
)

type Server struct {
	http.Server
	reader    source.EventReader
	templates *template.Template

	reports      *cache.Reports
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	trace        *trace.Middleware

	logger   *applog.Logger
	events   *applog.StructuredLogger
	currency string
	scale    int32
	window   time.Duration
	now      func() time.Time

	started      time.Time
	lastVersion  atomic.Value
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Reader == nil {
		return nil, fmt.Errorf("no event reader configured")
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Currency == "" {
		opts.Currency = "GBP"
	}
	scale := metric.DefaultScale
	if opts.Scale != nil {
		scale = *opts.Scale
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.ActiveWindow <= 0 {
		opts.ActiveWindow = defaultActiveWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		reader:    opts.Reader,
		templates: t,
		reports:   cache.NewReports(opts.CacheSize, opts.CacheTTL),
		detector:  security.NewDetector(),
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		currency:  opts.Currency,
		scale:     scale,
		window:    opts.ActiveWindow,
		now:       opts.Now,
		started:   time.Now(),
	}
	s.trace = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	cacheLog := opts.Logger.WithComponent(applog.ComponentCache)
	s.cacheManager = cache.NewManager(func(removed int) {
		cacheLog.Debug("Cache cleanup completed", "entries_removed", removed)
	})
	s.cacheManager.Register(s.reports)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	if opts.RateLimitRPS > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		})
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.trace.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(s.detector.Middleware(logger, true))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(staticMaxAge)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
		if s.rateLimiter != nil {
			r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
		}
		r.Get("/", s.handlePivot)
		r.Get("/div-events", s.handleEvents)
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// snapshot reads the current record and logs when its version changes.
func (s *Server) snapshot(ctx context.Context) (*source.Snapshot, error) {
	cctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	snap, err := s.reader.Snapshot(cctx)
	if err != nil {
		return nil, err
	}
	if prev, _ := s.lastVersion.Load().(string); prev != snap.Version {
		s.lastVersion.Store(snap.Version)
		s.events.LogSnapshotLoaded(ctx, snap.Origin, snap.Version, len(snap.Events))
	}
	return snap, nil
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
