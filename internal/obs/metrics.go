package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
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

	TimelineAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_events_appended_total",
			Help: "Timeline events persisted, by event type.",
		},
		[]string{"event_type"},
	)

	TimelineDuplicates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timeline_events_duplicate_total",
		Help: "Timeline appends skipped because the idempotency key was already recorded.",
	})

	TimelineWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timeline_write_errors_total",
		Help: "Timeline appends that failed to persist.",
	})

	NotificationsPushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_pushed_total",
		Help: "Notifications handed to the real-time channel.",
	})

	NotificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the user had no open channel or a slow client.",
	})

	DispatchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_dispatch_errors_total",
		Help: "Notification dispatches that failed.",
	})
)

// Init registers all metrics with the default registry. Call once per process.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		TimelineAppended, TimelineDuplicates, TimelineWriteErrors,
		NotificationsPushed, NotificationsDropped, DispatchErrors,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests per route template.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpInFlight.Dec()
	}
}
