package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine histograms
var (
	ScenarioGenerationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scenario_generation_duration_seconds",
		Help:      "Duration of scenario generation in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
	SimulationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_duration_seconds",
		Help:      "Duration of Monte Carlo simulation per scenario in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"strategy"})
)

// Engine counters
var (
	SimulationTrialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_trials_total",
		Help:      "Total number of Monte Carlo trials executed",
	})
	SimulationCacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_cache_requests_total",
		Help:      "Simulation cache lookups by result",
	}, []string{"result"})
)

// Engine gauges
var (
	SimulationCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "simulation_cache_hit_ratio",
		Help:      "Hit ratio of the in-memory simulation cache",
	})
)

// RecordScenarioGeneration records scenario generation time.
func RecordScenarioGeneration(durationSeconds float64) {
	ScenarioGenerationDuration.Observe(durationSeconds)
}

// RecordSimulation records one simulated scenario.
func RecordSimulation(strategy string, trials int, durationSeconds float64) {
	SimulationDuration.WithLabelValues(strategy).Observe(durationSeconds)
	SimulationTrialsTotal.Add(float64(trials))
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SimulationCacheRequestsTotal.WithLabelValues(result).Inc()
}

// UpdateCacheHitRatio sets the cache hit ratio gauge.
func UpdateCacheHitRatio(ratio float64) {
	SimulationCacheHitRatio.Set(ratio)
}
