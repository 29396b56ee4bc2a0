package middlewares

import (
	"fmt"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where AttachMetrics serves the registry.
const MetricsPath = "/metrics"

// normalizeRoutePath labels requests by route template so page URLs in the
// path do not become label values. Unmatched requests keep their raw path.
func normalizeRoutePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil {
		return route.Path
	}
	return c.Path()
}

// statusClass folds a status code into "2xx", "4xx" and so on.
func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

// AttachMetrics registers the HTTP collectors, the Go runtime collectors
// and extra on a registry private to app, times every request except the
// scrape itself and serves the registry on MetricsPath.
func AttachMetrics(app *fiber.App, extra ...prometheus.Collector) {
	reg := prometheus.NewRegistry()

	labels := []string{"method", "route", "status"}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "postit",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests by route template.",
		Buckets:   prometheus.DefBuckets,
	}, labels)
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postit",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route template and status class.",
	}, labels)
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "postit",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	reg.MustRegister(
		duration, total, inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)

	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == MetricsPath {
			return c.Next()
		}
		inflight.Inc()
		defer inflight.Dec()

		start := time.Now()
		err := c.Next()

		lv := []string{c.Method(), normalizeRoutePath(c), statusClass(c.Response().StatusCode())}
		duration.WithLabelValues(lv...).Observe(time.Since(start).Seconds())
		total.WithLabelValues(lv...).Inc()
		return err
	})

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
