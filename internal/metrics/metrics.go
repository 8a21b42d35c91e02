// Package metrics provides centralized Prometheus metrics registry for the optimizer.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pickem_optimizer"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	OptimizationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "optimizations_total",
		Help:      "Total number of optimizations by mode and outcome",
	}, []string{"mode", "status"})
	JobTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_transitions_total",
		Help:      "Total number of job status transitions by target status",
	}, []string{"status"})
	SchedulerDispatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_dispatches_total",
		Help:      "Total number of pending jobs dispatched by the scheduler",
	})
)

// Gauge metrics
var (
	RunningJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "running_jobs",
		Help:      "Number of jobs currently running in this process",
	})
	TopScenarioExpectedPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "top_scenario_expected_points",
		Help:      "Expected points of the most recent top-ranked scenario",
	})
)

// Histogram metrics
var (
	OptimizationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "optimization_duration_seconds",
		Help:      "Duration of full optimization runs in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"mode"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(OptimizationsTotal)
		registry.MustRegister(JobTransitionsTotal)
		registry.MustRegister(SchedulerDispatchesTotal)

		registry.MustRegister(RunningJobs)
		registry.MustRegister(TopScenarioExpectedPoints)

		registry.MustRegister(OptimizationDuration)

		// Register engine metrics
		registry.MustRegister(ScenarioGenerationDuration)
		registry.MustRegister(SimulationDuration)
		registry.MustRegister(SimulationTrialsTotal)
		registry.MustRegister(SimulationCacheRequestsTotal)
		registry.MustRegister(SimulationCacheHitRatio)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordOptimization records a finished optimization in the given mode.
func RecordOptimization(mode, status string, durationSeconds float64) {
	OptimizationsTotal.WithLabelValues(mode, status).Inc()
	OptimizationDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordJobTransition records a job moving into status.
func RecordJobTransition(status string) {
	JobTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordSchedulerDispatch records one job handed to a worker by the scheduler.
func RecordSchedulerDispatch() {
	SchedulerDispatchesTotal.Inc()
}

// UpdateRunningJobs adjusts the running jobs gauge by delta.
func UpdateRunningJobs(delta float64) {
	RunningJobs.Add(delta)
}

// UpdateTopScenario records the expected points of the recommended scenario.
func UpdateTopScenario(expectedPoints float64) {
	TopScenarioExpectedPoints.Set(expectedPoints)
}
