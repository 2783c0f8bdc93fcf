package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enclave_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enclave_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enclave_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enclave_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enclave_messages_sent_total",
			Help: "Messages persisted and broadcast, by kind.",
		},
		[]string{"kind"},
	)
	loginFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enclave_login_failures_total",
			Help: "Failed login attempts.",
		},
	)
	loginBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enclave_login_blocked_total",
			Help: "Logins refused by the rate limiter.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enclave_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	expiredPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enclave_expired_messages_purged_total",
			Help: "Expired message rows removed by the sweeper.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		messagesSentTotal,
		loginFailuresTotal,
		loginBlockedTotal,
		amqpPublishErrorsTotal,
		expiredPurgedTotal,
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

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncMessageSent(kind string) {
	messagesSentTotal.WithLabelValues(kind).Inc()
}

func IncLoginFailure() {
	loginFailuresTotal.Inc()
}

func IncLoginBlocked() {
	loginBlockedTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func AddExpiredPurged(n int64) {
	expiredPurgedTotal.Add(float64(n))
}
