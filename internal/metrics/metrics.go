// Package metrics exposes Prometheus collectors for issuance and rendering.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imprimecheque/internal/cache"
	"imprimecheque/internal/core"
)

const namespace = "imprimecheque"

// Failure reasons used as the reason label of issuance_failures_total.
const (
	ReasonConflict   = "conflict"
	ReasonExhausted  = "exhausted"
	ReasonValidation = "validation"
	ReasonStorage    = "storage"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	checksIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_issued_total",
			Help:      "Checks successfully issued.",
		},
	)

	issuanceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuance_failures_total",
			Help:      "Rejected or failed issuances by reason.",
		},
		[]string{"reason"},
	)

	documentsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_rendered_total",
			Help:      "Documents rendered by output format.",
		},
		[]string{"format"},
	)

	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent compositing one document.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	suspiciousRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "suspicious_requests_total",
			Help:      "Requests matching a known attack pattern.",
		},
	)
)

func init() {
	Registry.MustRegister(
		checksIssued,
		issuanceFailures,
		documentsRendered,
		renderDuration,
		httpRequests,
		httpDuration,
		rateLimited,
		suspiciousRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordIssued() {
	checksIssued.Inc()
}

func RecordIssuanceFailure(reason string) {
	if reason == "" {
		reason = ReasonStorage
	}
	issuanceFailures.WithLabelValues(reason).Inc()
}

func RecordRender(format string, d time.Duration) {
	documentsRendered.WithLabelValues(format).Inc()
	renderDuration.Observe(d.Seconds())
}

func RecordRateLimited() {
	rateLimited.Inc()
}

func RecordSuspicious() {
	suspiciousRequests.Inc()
}

// RegisterCaches exports hit, miss and size figures of the manager's caches.
// Calling it twice returns the registration error.
func RegisterCaches(m *cache.Manager) error {
	return Registry.Register(&cacheCollector{manager: m})
}

var (
	cacheHitsDesc   = prometheus.NewDesc(namespace+"_cache_hits_total", "Cache lookups served from memory.", []string{"cache"}, nil)
	cacheMissesDesc = prometheus.NewDesc(namespace+"_cache_misses_total", "Cache lookups that went to storage.", []string{"cache"}, nil)
	cacheSizeDesc   = prometheus.NewDesc(namespace+"_cache_entries", "Entries currently cached.", []string{"cache"}, nil)
)

type cacheCollector struct {
	manager *cache.Manager
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheSizeDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.manager.Stats() {
		ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(s.Hits), s.Name)
		ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(s.Misses), s.Name)
		ch <- prometheus.MustNewConstMetric(cacheSizeDesc, prometheus.GaugeValue, float64(s.Size), s.Name)
	}
}

// InstrumentHandler records request counts and durations.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses ids and check references so label cardinality
// stays bounded: /api/checkbooks/12/next becomes /api/checkbooks/:id/next.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		} else if _, _, err := core.ParseReference(p); err == nil {
			parts[i] = ":ref"
		}
	}
	return "/" + strings.Join(parts, "/")
}
