package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	mergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_merges_total",
			Help: "Total number of message merges applied to the store, by origin.",
		},
		[]string{"origin"},
	)
	duplicatesSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_duplicates_suppressed_total",
			Help: "Total number of merges resolved by the update-in-place branch.",
		},
	)
	unreadTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsync_unread_total",
			Help: "Current total unread message count across conversations.",
		},
	)
	integrityMismatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_integrity_mismatches_total",
			Help: "Total number of dropped events referencing unknown ids.",
		},
		[]string{"kind"},
	)
	channelEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_channel_events_total",
			Help: "Total number of events received on the real-time channel.",
		},
		[]string{"kind"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_http_requests_total",
			Help: "Total number of HTTP requests processed by the local gateway.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_http_request_duration_seconds",
			Help:    "Gateway request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mergesTotal,
		duplicatesSuppressedTotal,
		unreadTotal,
		integrityMismatchesTotal,
		channelEventsTotal,
		httpRequestsTotal,
		httpRequestDuration,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncMerge(origin string) {
	mergesTotal.WithLabelValues(origin).Inc()
}

func IncDuplicateSuppressed() {
	duplicatesSuppressedTotal.Inc()
}

func SetUnreadTotal(n int) {
	unreadTotal.Set(float64(n))
}

func IncIntegrityMismatch(kind string) {
	integrityMismatchesTotal.WithLabelValues(kind).Inc()
}

func IncChannelEvent(kind string) {
	channelEventsTotal.WithLabelValues(kind).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
