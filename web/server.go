// Package web serves the home and movie screens as HTML pages, per-section
// HTML fragments and JSON.
//
// Every request mounts its own screen on the shared coordinator, waits up to
// the render timeout for the sections to settle and unmounts before
// returning. Sections that are still loading render as skeletons that poll
// their fragment endpoint until they settle.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/theme"
	"github.com/s0up4200/marquee/tmdb"
	"github.com/s0up4200/marquee/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	defaultAddress         = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// Options configures the HTTP surface
type Options struct {
	Address string
	// RenderTimeout bounds how long a request waits for its sections. Zero
	// renders immediately with whatever the cache holds.
	RenderTimeout   time.Duration
	ShutdownTimeout time.Duration
	// MetricsEndpoint exposes Prometheus metrics when not empty
	MetricsEndpoint string
	// DefaultFilter applies to listing pages that name no filter or preset
	DefaultFilter string
}

// Deps are the shared components the server renders from
type Deps struct {
	Coordinator *view.Coordinator
	Filters     *filter.Manager
	Themes      *theme.Store
	Images      tmdb.ImageHost
	Logger      zerolog.Logger
	// Sentry receives recovered handler panics when set
	Sentry *sentry.Hub
}

// Server is the web front end
type Server struct {
	opts   Options
	deps   Deps
	logger zerolog.Logger

	base  *template.Template
	pages map[string]*template.Template

	router chi.Router
}

// New creates a server. Coordinator and Themes are required.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if deps.Themes == nil {
		return nil, errors.New("theme store is required")
	}
	if deps.Filters == nil {
		deps.Filters = filter.NewManager(deps.Logger)
	}
	if deps.Images == (tmdb.ImageHost{}) {
		deps.Images = tmdb.DefaultImageHost
	}

	if opts.Address == "" {
		opts.Address = defaultAddress
	}
	if opts.RenderTimeout < 0 {
		opts.RenderTimeout = 0
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		opts:   opts,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "web").Logger(),
	}

	if err := s.parseTemplates(); err != nil {
		return nil, err
	}

	s.router = s.routes()

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if s.deps.Sentry != nil {
		r.Use(s.sentryHub)
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(instrument)

	r.Get("/healthz", handleHealth)
	if s.opts.MetricsEndpoint != "" {
		r.Handle(s.opts.MetricsEndpoint, promhttp.Handler())
	}

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Get("/", s.handleHome)
	r.Get("/movie/{id}", s.handleMovie)

	r.Route("/fragments", func(r chi.Router) {
		r.Get("/home/{section}", s.handleHomeFragment)
		r.Get("/movie/{id}/{section}", s.handleMovieFragment)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/screens/home", s.handleHomeAPI)
		r.Get("/screens/movie/{id}", s.handleMovieAPI)
		r.Get("/theme", s.handleThemeAPI)
	})

	r.Post("/theme/toggle", s.handleThemeToggle)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("address", s.opts.Address).Msg("Starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		s.logger.Info().Msg("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down web server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// accessLog attaches a request-scoped logger carrying the request id and
// logs every completed request
func (s *Server) accessLog(next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Handled request")
	})(next)

	withID := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		access.ServeHTTP(w, r)
	})

	return hlog.NewHandler(s.logger)(withID)
}

// sentryHub gives each request its own clone of the configured hub, tagged
// with the request id
func (s *Server) sentryHub(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := s.deps.Sentry.Clone()
		if id := middleware.GetReqID(r.Context()); id != "" {
			hub.Scope().SetTag("request_id", id)
		}
		next.ServeHTTP(w, r.WithContext(sentry.SetHubOnContext(r.Context(), hub)))
	})
}

// instrument records request counts and latency by route pattern
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(route, fmt.Sprint(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
