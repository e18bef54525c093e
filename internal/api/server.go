package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/groundside/pointgo/internal/auth"
	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/health"
	"github.com/groundside/pointgo/internal/httputil"
	"github.com/groundside/pointgo/internal/metrics"
	"github.com/groundside/pointgo/internal/track"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr            string
	Auth            auth.Config
	TrustProxy      bool
	SnapshotWorkers int
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger, store *catalog.Store, tracker *track.Handler) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return store.Len() > 0 }))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/transform/altaz", transformAltAzHandler(logger))
	mux.HandleFunc("POST /api/v1/transform/hadec", transformHADecHandler(logger))
	mux.HandleFunc("POST /api/v1/transform/itrs", transformITRSHandler(logger))

	mux.HandleFunc("GET /api/v1/catalog", catalogMetadataHandler(store))
	mux.HandleFunc("GET /api/v1/sky", skyHandler(logger, store, cfg.SnapshotWorkers))
	mux.HandleFunc("GET /api/v1/point/{catalog_number}", pointHandler(logger, store))
	mux.HandleFunc("GET /api/v1/passes/{catalog_number}", passesHandler(logger, store))
	mux.HandleFunc("GET /api/v1/track/{catalog_number}", tracker.HandleTrack)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// The track endpoint clears the write deadline and manages
			// its own per-message deadlines via ResponseController.
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
