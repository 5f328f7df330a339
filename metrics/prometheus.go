package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is an Emitter backed by a prometheus registry. Counters and
// histograms are created lazily per metric name; dimension keys become label
// names, so every observation of a given metric must use the same dimension
// set.
type Prometheus struct {
	registry   *prometheus.Registry
	subsystem  string
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheus creates a Prometheus emitter registering into the given
// registry. A nil registry uses a fresh one.
func NewPrometheus(subsystem string, registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Prometheus{
		registry:   registry,
		subsystem:  subsystem,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry for scrape-handler wiring.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Count adds value to the named counter.
func (p *Prometheus) Count(_ context.Context, name string, value float64, dimensions map[string]string) {
	labels := labelNames(dimensions)

	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: p.subsystem,
			Name:      name,
		}, labels)
		p.registry.MustRegister(vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()

	vec.With(prometheus.Labels(dimensions)).Add(value)
}

// Timing records a duration observation in seconds.
func (p *Prometheus) Timing(_ context.Context, name string, d time.Duration, dimensions map[string]string) {
	labels := labelNames(dimensions)

	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: p.subsystem,
			Name:      name,
			Buckets:   prometheus.DefBuckets,
		}, labels)
		p.registry.MustRegister(vec)
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	vec.With(prometheus.Labels(dimensions)).Observe(d.Seconds())
}

func labelNames(dimensions map[string]string) []string {
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
