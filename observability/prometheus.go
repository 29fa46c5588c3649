package observability

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sasha-s/go-deadlock"
)

var _ MetricFactory = (*PrometheusFactory)(nil)

// DefaultBuckets spans single token units up to 1e24, which covers 18
// decimal tokens at up to a million whole tokens.
var DefaultBuckets = prometheus.ExponentialBuckets(1, 1000, 9)

// PrometheusFactory creates Prometheus collectors on its own registry.
// Dotted names are rewritten to underscores. Asking for a name twice
// returns the same collector.
type PrometheusFactory struct {
	registry *prometheus.Registry
	buckets  []float64

	mu         deadlock.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusFactory creates a factory on a fresh registry.
func NewPrometheusFactory() *PrometheusFactory {
	return NewPrometheusFactoryWithRegistry(prometheus.NewRegistry())
}

// NewPrometheusFactoryWithRegistry creates a factory registering on reg.
func NewPrometheusFactoryWithRegistry(reg *prometheus.Registry) *PrometheusFactory {
	return &PrometheusFactory{
		registry:   reg,
		buckets:    DefaultBuckets,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the registry the factory registers on.
func (f *PrometheusFactory) Registry() *prometheus.Registry { return f.registry }

// Handler serves the registry in the Prometheus exposition format.
func (f *PrometheusFactory) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})
}

func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = metricName(name)
	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name + "_total", Help: name})
	f.registry.MustRegister(c)
	f.counters[name] = c
	return c
}

func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = metricName(name)
	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: name, Help: name, Buckets: f.buckets})
	f.registry.MustRegister(h)
	f.histograms[name] = h
	return h
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
