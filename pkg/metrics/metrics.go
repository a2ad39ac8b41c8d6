package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SecurityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Security events by category and outcome.",
		},
		[]string{"category", "outcome"},
	)

	RateLimitStoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_store_errors_total",
		Help: "Rate limit store failures; the request was allowed.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Register adds the collectors to reg, normally prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{SecurityEvents, RateLimitStoreErrors, httpRequestsTotal, httpRequestDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and latency. route names the matched
// route pattern so label cardinality stays bounded.
func Instrument(route func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			labels := []string{r.Method, route(r), strconv.Itoa(sw.code)}
			httpRequestsTotal.WithLabelValues(labels...).Inc()
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
