package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/api/handlers"
	"github.com/marmos91/animbridge/pkg/metrics"
)

// NewRouter creates the chi router with all middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (503 until the socket is bound)
//   - GET /api/v1/status - Host status snapshot
//   - GET /api/v1/catalog - Catalog listing, ?kind=animation|pose
//   - GET /api/v1/catalog/{id} - One catalog entry
//   - POST /api/v1/catalog/scan - Index the library into the catalog
//   - GET /metrics - Prometheus metrics, when enabled
func NewRouter(h handlers.Host) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(h)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if h != nil {
		statusHandler := handlers.NewStatusHandler(h)
		catalogHandler := handlers.NewCatalogHandler(h)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/status", statusHandler.Get)
			r.Route("/catalog", func(r chi.Router) {
				r.Get("/", catalogHandler.List)
				r.Post("/scan", catalogHandler.Scan)
				r.Get("/{id}", catalogHandler.Get)
			})
		})
	}

	if reg := metrics.GetRegistry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request through the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		)
	})
}
