// ABOUTME: Prometheus metrics for HTTP traffic, store operations and logins
// ABOUTME: Uses a private registry so servers and tests never share collectors

package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	storeOpsTotal   *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec

	loginsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors. version is exported as
// deflink_build_info.
func NewMetrics(version string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deflink_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deflink_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deflink_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		storeOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deflink_store_operations_total",
				Help: "Key-value store operations by result.",
			},
			[]string{"op", "result"},
		),
		storeOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deflink_store_operation_duration_seconds",
				Help:    "Key-value store operation latencies in seconds.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),
		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deflink_logins_total",
				Help: "OEM login attempts by result.",
			},
			[]string{"result"},
		),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "deflink_build_info",
		Help: "DefLink build information.",
	}, []string{"version"})
	buildInfo.WithLabelValues(version).Set(1)

	m.registry.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.storeOpsTotal, m.storeOpDuration, m.loginsTotal, buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count, latency and in-flight gauge.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		// The mux fills in r.Pattern while routing.
		path := routeLabel(r)
		method := methodLabel(r.Method)
		m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(sw.code)).Inc()
	})
}

// ObserveLogin counts a login attempt. result is "success", "failure",
// "limited" or "error".
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeStore(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOpsTotal.WithLabelValues(op, result).Inc()
	m.storeOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// knownPaths are the fixed routes that keep their own label when no mux
// pattern is available.
var knownPaths = map[string]bool{
	"/":                       true,
	"/api/test":               true,
	"/api/auth/oem-login":     true,
	"/api/auth/logout":        true,
	"/api/auth/session":       true,
	"/api/oem/requests":       true,
	"/api/providers":          true,
	"/api/admin/oem-requests": true,
	"/api/admin/providers":    true,
	"/api/admin/settings":     true,
	"/health":                 true,
	"/health/ready":           true,
	"/metrics":                true,
}

// CanonicalPath maps a request path onto a bounded set of labels: record ids
// in admin paths become ":id" and anything unrecognized becomes "other".
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	for _, prefix := range []string{"/api/admin/oem-requests/", "/api/admin/providers/"} {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return prefix + ":id"
		}
	}
	if knownPaths[p] {
		return p
	}
	return "other"
}

// routeLabel prefers the pattern the mux matched, so the label set is
// exactly the registered routes.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return CanonicalPath(r.URL.Path)
	}
	_, path, found := strings.Cut(r.Pattern, " ")
	if !found {
		path = r.Pattern
	}
	return strings.ReplaceAll(path, "{id}", ":id")
}

func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	}
	return "OTHER"
}

// statusWriter records the response code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
