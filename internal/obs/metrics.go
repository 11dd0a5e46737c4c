package obs

import (
	"net/http"
	"strconv"
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

	tokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total number of access tokens issued.",
	})

	tokenVerifyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verify_failures_total",
			Help: "Token verifications rejected, by stage.",
		},
		[]string{"stage"},
	)

	tokensRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_revoked_total",
		Help: "Tokens written to the revocation ledger.",
	})

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service reports ready, 0 otherwise.",
	})
)

// Init registers all service metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		tokensIssuedTotal,
		tokenVerifyFailuresTotal,
		tokensRevokedTotal,
		ready,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// TokenIssued increments the issuance counter.
func TokenIssued() { tokensIssuedTotal.Inc() }

// TokenVerifyFailed records a rejected verification. Stage is one of
// "signature", "expired", "revoked".
func TokenVerifyFailed(stage string) {
	tokenVerifyFailuresTotal.WithLabelValues(stage).Inc()
}

// TokenRevoked increments the revocation counter.
func TokenRevoked() { tokensRevokedTotal.Inc() }

// Instrument wraps an HTTP handler with request count/latency/in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
