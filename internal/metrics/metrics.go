// Package metrics defines the sink the domain services report into. The
// interface is injected into every constructor; nothing in the codebase
// talks to a process-wide collector directly.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Sink interface {
	Counter(name string, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Histogram(name string, value float64, tags map[string]string)
	Timing(name string, d time.Duration, tags map[string]string)
}

// Noop discards everything. Default for tests.
type Noop struct{}

func (Noop) Counter(string, map[string]string)            {}
func (Noop) Gauge(string, float64, map[string]string)     {}
func (Noop) Histogram(string, float64, map[string]string) {}
func (Noop) Timing(string, time.Duration, map[string]string) {
}

// Prometheus registers collectors lazily, one per metric name and label
// set, under a common namespace.
type Prometheus struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheus(namespace string, registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Prometheus{
		namespace:  namespace,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Counter(name string, tags map[string]string) {
	labels := labelNames(tags)
	p.mu.Lock()
	vec, ok := p.counters[key(name, labels)]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      sanitize(name),
		}, labels)
		p.registry.MustRegister(vec)
		p.counters[key(name, labels)] = vec
	}
	p.mu.Unlock()
	vec.With(prometheus.Labels(tags)).Inc()
}

func (p *Prometheus) Gauge(name string, value float64, tags map[string]string) {
	labels := labelNames(tags)
	p.mu.Lock()
	vec, ok := p.gauges[key(name, labels)]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      sanitize(name),
		}, labels)
		p.registry.MustRegister(vec)
		p.gauges[key(name, labels)] = vec
	}
	p.mu.Unlock()
	vec.With(prometheus.Labels(tags)).Set(value)
}

func (p *Prometheus) Histogram(name string, value float64, tags map[string]string) {
	labels := labelNames(tags)
	p.mu.Lock()
	vec, ok := p.histograms[key(name, labels)]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      sanitize(name),
			Buckets:   prometheus.DefBuckets,
		}, labels)
		p.registry.MustRegister(vec)
		p.histograms[key(name, labels)] = vec
	}
	p.mu.Unlock()
	vec.With(prometheus.Labels(tags)).Observe(value)
}

func (p *Prometheus) Timing(name string, d time.Duration, tags map[string]string) {
	p.Histogram(name+"_seconds", d.Seconds(), tags)
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func key(name string, labels []string) string {
	return name + "|" + strings.Join(labels, ",")
}

func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
