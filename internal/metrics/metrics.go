package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DBConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_db_connect_attempts_total",
			Help: "Database connection attempts made during startup.",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordDBConnectAttempt(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DBConnectAttempts.WithLabelValues(result).Inc()
}

// Middleware records every request. The error handler runs after the chain
// unwinds, so the status of a failed request is taken from the returned error.
// Labels are copied: fiber strings alias the reused request buffer.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		RecordHTTPRequest(
			utils.CopyString(c.Method()),
			utils.CopyString(c.Route().Path),
			StatusOf(c, err),
			time.Since(start),
		)
		return err
	}
}

// StatusOf returns the status code a request will be answered with.
func StatusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
