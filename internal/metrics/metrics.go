package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// ProviderCalls counts distance-provider calls by endpoint and outcome
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_calls_total", Help: "Distance provider calls by endpoint and outcome."},
		[]string{"endpoint", "outcome"},
	)
	// ProviderLatency tracks provider call latencies in milliseconds
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "provider_call_latency_ms", Help: "Distance provider call latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000}},
		[]string{"endpoint"},
	)
	// CircuitState exposes the provider circuit state (0 closed, 1 open, 2 half-open)
	CircuitState = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "provider_circuit_state", Help: "Provider circuit breaker state (0 closed, 1 open, 2 half-open)."},
	)
	// CacheLookups counts matrix cache lookups by result
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_cache_lookups_total", Help: "Matrix cache lookups by result."},
		[]string{"result"},
	)
	// OptimizeRuns counts optimization runs, split by estimated fallback use
	OptimizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimize_runs_total", Help: "Optimization runs by travel metric source."},
		[]string{"estimated"},
	)
	// OptimizeDuration records end-to-end optimization run durations
	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimize_run_duration_seconds", Help: "Optimization run duration in seconds.", Buckets: prometheus.DefBuckets},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ProviderCalls)
		Registry.MustRegister(ProviderLatency)
		Registry.MustRegister(CircuitState)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(OptimizeRuns)
		Registry.MustRegister(OptimizeDuration)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
