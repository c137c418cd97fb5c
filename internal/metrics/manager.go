// Package metrics holds the Prometheus instruments of the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests     *prometheus.CounterVec
	CounterSuggestions  *prometheus.CounterVec
	CounterImportedSets prometheus.Counter

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("overload", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("overload", "test_server", reg), reg
}

// NewRegistry returns a registry carrying build, runtime and process
// collectors plus any extra ones (e.g. the connection pool collector).
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterSuggestions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "suggestions",
		Help:      "Progression suggestions produced, by kind",
	}, []string{"kind"})
	counterImportedSets := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "imported_sets",
		Help:      "The total number of sets stored by imports",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})

	histReqDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		Name:      "request_duration_seconds",
		Help:      "Total duration of requests in seconds",
	})

	return &Manager{
		CounterRequests:     counterRequests,
		CounterSuggestions:  counterSuggestions,
		CounterImportedSets: counterImportedSets,
		GaugeRequests:       gaugeRequests,
		HistRequestDuration: histReqDuration,
	}
}

// ObserveSuggestion counts one suggestion. An empty kind is recorded as "none".
func (m *Manager) ObserveSuggestion(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.CounterSuggestions.WithLabelValues(kind).Inc()
}

// ObserveImportedSets adds n to the imported sets counter.
func (m *Manager) ObserveImportedSets(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CounterImportedSets.Add(float64(n))
}
