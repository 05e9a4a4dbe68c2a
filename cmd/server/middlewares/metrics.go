package middlewares

import (
	"errors"
	"strconv"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// normalizeRoutePath returns the route template to prevent high cardinality
// in metrics labels. Returns the actual path for unmatched routes (404s).
func normalizeRoutePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil {
		return route.Path // already the template (e.g., "/notes/:id")
	}
	return c.Path()
}

// normalizeStatus returns the status code as a string for Prometheus metrics
// 2xx -> "2xx", 4xx -> "4xx", 5xx -> "5xx"
func normalizeStatus(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return strconv.Itoa(status)
}

// errorStatus mirrors the status httperr.Handler will write for err.
func errorStatus(err error) int {
	var e httperr.E
	if errors.As(err, &e) {
		return e.Status
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// NewRegistry returns the per-app Prometheus registry with the Go runtime and
// process collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// AttachMetrics serves reg on /metrics and, when routeMetrics is set, adds
// request-timing middleware recording into it.
func AttachMetrics(app *fiber.App, reg *prometheus.Registry, routeMetrics bool) {
	if routeMetrics {
		reqDuration := prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		)
		reqTotal := prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		)
		reg.MustRegister(reqDuration, reqTotal)

		app.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			dur := time.Since(start).Seconds()

			status := c.Response().StatusCode()
			if err != nil {
				// the global error handler has not written the response yet
				status = errorStatus(err)
			}

			method := c.Method()
			path := normalizeRoutePath(c)
			label := normalizeStatus(status)

			reqDuration.WithLabelValues(method, path, label).Observe(dur)
			reqTotal.WithLabelValues(method, path, label).Inc()
			return err
		})
	}

	app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
}
