package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry           *prometheus.Registry
	validationsTotal   *prometheus.CounterVec
	validationDuration prometheus.Histogram
	validatedProxies   prometheus.Gauge
	downloadsTotal     *prometheus.CounterVec
}

// NewCollector registers all series on a private registry so that several
// collectors can coexist in one process
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		validationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxycrawl_validations_total",
				Help: "Total number of proxy validations performed",
			},
			[]string{"outcome"},
		),
		validationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proxycrawl_validation_duration_seconds",
				Help:    "Duration of proxy validations",
				Buckets: prometheus.DefBuckets,
			},
		),
		validatedProxies: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "proxycrawl_validated_proxies",
				Help: "Number of working proxies persisted by the latest harvest",
			},
		),
		downloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxycrawl_downloads_total",
				Help: "Total number of dataset archive downloads",
			},
			[]string{"result"},
		),
	}
}

// RecordValidation counts one probe. outcome is "working" or "failed".
func (c *Collector) RecordValidation(outcome string, duration time.Duration) {
	c.validationsTotal.WithLabelValues(outcome).Inc()
	c.validationDuration.Observe(duration.Seconds())
}

func (c *Collector) SetValidatedProxies(n int) {
	c.validatedProxies.Set(float64(n))
}

// RecordDownload counts one archive download. result is "success" or "failure".
func (c *Collector) RecordDownload(result string) {
	c.downloadsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collector in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
