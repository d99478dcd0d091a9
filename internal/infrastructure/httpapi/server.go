// Package httpapi exposes the listing handlers over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
)

// CallerHeader carries the caller's agent identity or agent hash.
const CallerHeader = "X-Agent-Key"

// IdempotencyHeader carries a client-chosen key that makes a retried write
// resolve to the action its first attempt created.
const IdempotencyHeader = "Idempotency-Key"

const shutdownTimeout = 5 * time.Second

// Deps holds everything the API serves.
type Deps struct {
	Listings *handlers.ListingHandler
	Queries  *handlers.QueryHandler
	Admins   *handlers.AdminHandler
	Catalog  *handlers.CatalogHandler
	Logger   *slog.Logger

	// Registerer and Gatherer back the request metrics and /metrics.
	// Both default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server holds the HTTP server dependencies.
type Server struct {
	listings *handlers.ListingHandler
	queries  *handlers.QueryHandler
	admins   *handlers.AdminHandler
	catalog  *handlers.CatalogHandler
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
}

// New creates a new API server.
func New(deps Deps) *Server {
	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		listings: deps.Listings,
		queries:  deps.Queries,
		admins:   deps.Admins,
		catalog:  deps.Catalog,
		logger:   logger,
		gatherer: gatherer,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "market_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(idempotencyKey)

	// Routes
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/listings", func(r chi.Router) {
		r.Get("/", s.ListListings)
		r.Post("/{kind}", s.CreateListing)
		r.Get("/{id}", s.GetListing)
		r.Put("/{id}", s.UpdateListing)
		r.Delete("/{id}", s.DeleteListing)
		r.Get("/{id}/history", s.GetHistory)
		r.Post("/{id}/archive", s.ArchiveListing)
		r.Post("/{id}/unarchive", s.UnarchiveListing)
		r.Post("/{id}/repair", s.RepairListing)
	})

	r.Get("/kinds/{kind}/{status}", s.ListBucket)
	r.Get("/owners/{agent}/{kind}", s.ListByOwner)
	r.Get("/tags/{tag}", s.ListByTag)

	r.Route("/admins", func(r chi.Router) {
		r.Get("/", s.ListAdmins)
		r.Post("/", s.AddAdmin)
		r.Post("/register", s.RegisterAdmin)
		r.Delete("/{agent}", s.RemoveAdmin)
	})

	if s.catalog != nil {
		s.mountCatalog(r)
	}

	return r
}

// idempotencyKey moves the Idempotency-Key header into the request context.
func idempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(IdempotencyHeader); key != "" {
			r = r.WithContext(services.WithIdempotencyKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests logs each request and counts it by route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting market server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
