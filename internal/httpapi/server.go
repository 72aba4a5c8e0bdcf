// Package httpapi exposes paycheck calculation and the garnishment ledger over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/paycore/payroll-engine/internal/payrun"
)

const defaultMaxBody = 4 << 20

// Config aggregates the server dependencies. JWTSecret enables bearer-token auth on the
// /v1 routes; a zero RateLimitPerMinute disables rate limiting.
type Config struct {
	Logger             *slog.Logger
	Runner             *payrun.Runner
	Enqueuer           payrun.Enqueuer
	Metrics            *Metrics
	JWTSecret          []byte
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	MaxBodyBytes       int64
}

// Server handles the payroll API.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New validates the config and returns a server.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil || cfg.Runner.Engine == nil {
		return nil, errors.New("httpapi: runner with an engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	return &Server{cfg: cfg, logger: logger}, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; style-src 'unsafe-inline'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(s.cfg.RequestTimeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					s.logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	)
	if s.cfg.Metrics != nil {
		r.Use(s.cfg.Metrics.Middleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			v1.Use(httprate.Limit(s.cfg.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, errors.New(http.StatusText(http.StatusTooManyRequests)))
				}),
			))
		}
		if len(s.cfg.JWTSecret) > 0 {
			v1.Use(s.requireToken)
		}
		v1.Post("/paychecks/calculate", s.handleCalculate)
		v1.Post("/ledger/events", s.handleApplyEvents)
		v1.Get("/employers/{employerID}/employees/{employeeID}/ledger", s.handleListLedger)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
