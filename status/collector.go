package status

import (
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dynecs"

var (
	worldDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "world", "objects"),
		"Number of live world objects by kind",
		[]string{"kind"}, nil,
	)
	queryDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "query", "value"),
		"Per-query counters and gauges",
		[]string{"query", "metric"}, nil,
	)
	otherDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "metric"),
		"Metrics outside the world and query families",
		[]string{"key"}, nil,
	)
)

// Collector exports a Registry as prometheus metrics
// Values are read at scrape time so producers never touch prometheus types
type Collector struct {
	registry *Registry
}

// NewCollector wraps r; register the result with a prometheus.Registerer
func NewCollector(r *Registry) *Collector {
	return &Collector{registry: r}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- worldDesc
	ch <- queryDesc
	ch <- otherDesc
}

// Collect implements prometheus.Collector; a nil registry exports nothing
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.registry == nil {
		return
	}
	c.registry.Ints.Range(func(key string, v *atomic.Int64) {
		ch <- c.metric(key, float64(v.Load()))
	})
	c.registry.Floats.Range(func(key string, v *AtomicFloat) {
		ch <- c.metric(key, v.Get())
	})
}

func (c *Collector) metric(key string, value float64) prometheus.Metric {
	if kind, ok := strings.CutPrefix(key, "world."); ok {
		return prometheus.MustNewConstMetric(worldDesc, prometheus.GaugeValue, value, kind)
	}
	if query, metric, ok := SplitQueryKey(key); ok {
		return prometheus.MustNewConstMetric(queryDesc, prometheus.GaugeValue, value, query, metric)
	}
	return prometheus.MustNewConstMetric(otherDesc, prometheus.GaugeValue, value, key)
}
