package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lobsterstock",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobsterstock",
		Name:      "dashboard_refresh_total",
		Help:      "Dashboard refresh cycles by outcome.",
	}, []string{"outcome"})

	ChangeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobsterstock",
		Name:      "change_events_total",
		Help:      "Change-feed events received, by table and action.",
	}, []string{"table", "action"})

	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobsterstock",
		Name:      "inventory_transactions_total",
		Help:      "Committed inventory transactions by type.",
	}, []string{"type"})

	OutboxPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobsterstock",
		Name:      "outbox_publish_total",
		Help:      "Outbox publish attempts by outcome.",
	}, []string{"outcome"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records per-request latency using the route template, not
// the raw path, to keep cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(started).Seconds())
	}
}
