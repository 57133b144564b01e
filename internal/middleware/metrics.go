package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DBQueryDuration records the latency of every GORM statement.
	DBQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inkwell_db_query_duration_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequestDuration records handler latency by route template and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// RateLimitRejections counts requests refused by the Redis rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"resource"})

	// AuthEvents counts account lifecycle events (register, activate, login, refresh, reset).
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_events_total",
		Help: "Account lifecycle events by type and outcome",
	}, []string{"event", "outcome"})

	// EmailsSent counts dispatched emails by kind and outcome.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_emails_total",
		Help: "Emails dispatched by kind and outcome",
	}, []string{"kind", "outcome"})

	// CommentsModerated counts comment approvals.
	CommentsModerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_comments_approved_total",
		Help: "Comments approved by staff",
	})

	// WebSocketConnections is the number of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_websocket_connections",
		Help: "Active notification WebSocket connections",
	})

	// WebSocketDrops counts notifications not delivered to a slow or closed client.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_dropped_messages_total",
		Help: "Notifications dropped by reason",
	}, []string{"reason"})
)

var (
	promOnce sync.Once
	promInst *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide fiberprometheus collector.
// The collectors register with the default registry, so only the first serviceName is used.
// The caller mounts it with RegisterAt and MetricsMiddleware.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInst = fiberprometheus.New(serviceName)
	})
	return promInst
}

// MetricsMiddleware feeds both the fiberprometheus collector and the route latency histogram.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		var err error
		if prom != nil {
			err = prom.Middleware(c)
		} else {
			err = c.Next()
		}

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		HTTPRequestDuration.
			WithLabelValues(c.Method(), route, strconv.Itoa(c.Response().StatusCode())).
			Observe(time.Since(start).Seconds())
		return err
	}
}
