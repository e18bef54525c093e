package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointgo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pointgo_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	transformsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointgo_transforms_total",
			Help: "Coordinate transforms performed, by kind.",
		},
		[]string{"kind"},
	)

	transformErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointgo_transform_errors_total",
			Help: "Coordinate transform failures, by kind and reason.",
		},
		[]string{"kind", "reason"},
	)

	catalogObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointgo_catalog_objects",
			Help: "Number of objects in the loaded catalog.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointgo_catalog_age_seconds",
			Help: "Age of the loaded catalog in seconds.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointgo_streams_active",
			Help: "Currently connected tracking streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pointgo_stream_messages_total",
			Help: "Tracking stream messages sent.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointgo_stream_errors_total",
			Help: "Tracking stream failures, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		transformsTotal,
		transformErrorsTotal,
		catalogObjects,
		catalogAgeSeconds,
		streamsActive,
		streamMessagesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncTransform records a successful transform of the given kind
// (e.g. "itrs_to_altaz").
func IncTransform(kind string) {
	transformsTotal.WithLabelValues(kind).Inc()
}

// IncTransformError records a failed transform.
func IncTransformError(kind, reason string) {
	transformErrorsTotal.WithLabelValues(kind, reason).Inc()
}

// SetCatalogObjects updates the loaded-catalog size gauge.
func SetCatalogObjects(n int) {
	catalogObjects.Set(float64(n))
}

// SetCatalogAge updates the catalog age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// IncStreamsActive increments the active tracking stream gauge.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive decrements the active tracking stream gauge.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamMessages counts one tracking stream message.
func IncStreamMessages() {
	streamMessagesTotal.Inc()
}

// IncStreamErrors counts a tracking stream failure.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// knownRoutes are the exact paths exported as metric labels.
var knownRoutes = map[string]bool{
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/":                       true,
	"/api/v1/catalog":         true,
	"/api/v1/sky":             true,
	"/api/v1/transform/altaz": true,
	"/api/v1/transform/hadec": true,
	"/api/v1/transform/itrs":  true,
}

// parameterizedPrefixes map route prefixes with an object id to a single
// label so per-object paths cannot blow up metric cardinality.
var parameterizedPrefixes = []struct {
	prefix string
	label  string
}{
	{"/api/v1/point/", "/api/v1/point/{catalog_number}"},
	{"/api/v1/passes/", "/api/v1/passes/{catalog_number}"},
	{"/api/v1/track/", "/api/v1/track/{catalog_number}"},
}

// normalizeRoute collapses request paths into a bounded label set.
// Unknown paths (bots, scanners) all share the "other" label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	for _, p := range parameterizedPrefixes {
		if strings.HasPrefix(path, p.prefix) {
			return p.label
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
