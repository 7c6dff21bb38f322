// Package metrics exposes prometheus instrumentation for the coordination
// facade. Operations are labeled with the machine-readable error kind so
// contention and stock rejections are visible without log scraping.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/labops/labops/internal/platform/apperr"
)

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labops",
		Name:      "operations_total",
		Help:      "Facade operations by outcome. outcome is \"ok\" or the error kind.",
	}, []string{"operation", "outcome"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "labops",
		Name:      "operation_duration_seconds",
		Help:      "Facade operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	reg.MustRegister(operations, latency)

	return &Metrics{registry: reg, operations: operations, latency: latency}
}

// Observe records one facade operation outcome.
func (m *Metrics) Observe(operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind := apperr.KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Middleware counts requests per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			m.Observe(c.Request().Method+" "+c.Path(), err, time.Since(start))
			return err
		}
	}
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}
