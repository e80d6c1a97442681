package metrics

import (
	"strconv"
	"time"

	"experts-geo/core/cache"
	"experts-geo/core/errs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "experts_geo"

// Metrics groups the collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	CacheRecords  *prometheus.CounterVec
	CacheFailures *prometheus.CounterVec
	ETLRuns       *prometheus.CounterVec
	ETLItems      *prometheus.CounterVec
	Geocodes      *prometheus.CounterVec
	Requests      *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CacheRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_records_total",
			Help:      "Records processed by cache writes, by entity type and outcome.",
		}, []string{"type", "outcome"}),
		CacheFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_failures_total",
			Help:      "Failed cache calls, by entity type and error kind.",
		}, []string{"type", "kind"}),
		ETLRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "etl_runs_total",
			Help:      "Pipeline runs, by status.",
		}, []string{"status"}),
		ETLItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "etl_items_total",
			Help:      "Items handled by the pipeline, by stage and result.",
		}, []string{"stage", "result"}),
		Geocodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoder lookups, by result.",
		}, []string{"result"}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CacheRecords,
		m.CacheFailures,
		m.ETLRuns,
		m.ETLItems,
		m.Geocodes,
		m.Requests,
	)
	return m
}

// ObserveWrite records the outcome of a cache write.
func (m *Metrics) ObserveWrite(typ string, res cache.WriteResult, err error) {
	if m == nil {
		return
	}
	m.CacheRecords.WithLabelValues(typ, "new").Add(float64(res.New))
	m.CacheRecords.WithLabelValues(typ, "updated").Add(float64(res.Updated))
	m.CacheRecords.WithLabelValues(typ, "unchanged").Add(float64(res.Unchanged))
	m.CacheRecords.WithLabelValues(typ, "dropped").Add(float64(res.Dropped))
	m.ObserveFailure(typ, err)
}

// ObserveFailure counts err under its error kind. Nil errors are ignored.
func (m *Metrics) ObserveFailure(typ string, err error) {
	if m == nil || err == nil {
		return
	}
	m.CacheFailures.WithLabelValues(typ, errs.KindOf(err).String()).Inc()
}

// ObserveRun records a finished pipeline run.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ETLRuns.WithLabelValues(status).Inc()
}

// AddItems counts pipeline items for a stage.
func (m *Metrics) AddItems(stage, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ETLItems.WithLabelValues(stage, result).Add(float64(n))
}

// ObserveGeocode counts a geocoder lookup (hit, miss, error).
func (m *Metrics) ObserveGeocode(result string) {
	if m == nil {
		return
	}
	m.Geocodes.WithLabelValues(result).Inc()
}

// Middleware records request latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		m.Requests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
