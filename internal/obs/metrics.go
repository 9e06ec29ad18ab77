package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by role and outcome.",
		},
		[]string{"role", "outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Inbound payment webhook events by reconciliation outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		loginsTotal,
		webhookEventsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin records a login attempt outcome (e.g. "success", "EMAIL_NOT_VERIFIED").
func ObserveLogin(role, outcome string) {
	loginsTotal.WithLabelValues(role, outcome).Inc()
}

// ObserveWebhook records a webhook reconciliation outcome.
func ObserveWebhook(outcome string) {
	webhookEventsTotal.WithLabelValues(outcome).Inc()
}

// CanonicalPath collapses identifier path segments so metric label
// cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(p, "/")
	if len(parts) == 4 && parts[1] == "v1" && parts[2] == "users" && parts[3] != "" {
		return "/v1/users/:id"
	}
	if len(parts) == 4 && parts[1] == "v1" && parts[2] == "payments" && parts[3] != "" {
		switch parts[3] {
		case "registration", "webhook", "fees":
			return p
		}
		return "/v1/payments/:id"
	}
	return p
}

// Instrument wraps a handler with request count/latency/in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
