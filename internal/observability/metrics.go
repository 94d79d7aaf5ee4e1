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
			Name: "tutorhub_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorhub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tutorhub_ws_active_connections",
			Help: "Number of active websocket subscriptions by scope kind.",
		},
		[]string{"scope"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"scope", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorhub_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	invoicesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorhub_invoices_generated_total",
			Help: "Total number of invoice generations.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		invoicesGeneratedTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
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

func IncWSActive(scope string) {
	wsActiveConnections.WithLabelValues(scope).Inc()
}

func DecWSActive(scope string) {
	wsActiveConnections.WithLabelValues(scope).Dec()
}

func IncWSEvent(scope, event string) {
	wsEventsTotal.WithLabelValues(scope, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncInvoiceGenerated() {
	invoicesGeneratedTotal.Inc()
}
