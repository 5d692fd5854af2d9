package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kocmoc_sessions_issued_total",
		Help: "Total number of bearer sessions issued",
	})
	CodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kocmoc_verification_codes_issued_total",
		Help: "Total number of verification codes issued",
	})
	MessagesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kocmoc_messages_appended_total",
		Help: "Total number of messages appended to chat ledgers",
	})
	StoriesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kocmoc_stories_published_total",
		Help: "Total number of stories published",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration,
		SessionsIssued, CodesIssued, MessagesAppended, StoriesPublished,
	)
}

// Middleware records request counts and latency, labelled by the chi route
// pattern rather than the raw path to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"path":   path,
			"status": strconv.Itoa(ww.Status()),
		}
		HTTPRequestsTotal.With(labels).Inc()
		HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}
