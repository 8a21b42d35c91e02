package logger

import (
	"github.com/sirupsen/logrus"
)

// EngineLogger provides dedicated logging for optimization runs.
type EngineLogger struct {
	*logrus.Entry
}

// NewEngineLogger creates a new engine logger.
func NewEngineLogger(baseLogger *logrus.Logger) *EngineLogger {
	return &EngineLogger{
		Entry: baseLogger.WithField("component", "engine"),
	}
}

// LogClassification logs the label counts of a classification pass.
func (el *EngineLogger) LogClassification(safe, risky, unsafe, overridden int) {
	el.WithFields(logrus.Fields{
		"safe":       safe,
		"risky":      risky,
		"unsafe":     unsafe,
		"overridden": overridden,
	}).Debug("Matches classified")
}

// LogScenariosGenerated logs a completed generation pass.
func (el *EngineLogger) LogScenariosGenerated(count, totalPicks int, durationMs float64) {
	el.WithFields(logrus.Fields{
		"scenarios":              count,
		"total_picks":            totalPicks,
		"generation_duration_ms": durationMs,
	}).Debug("Scenarios generated")
}

// LogSimulation logs one simulated scenario.
func (el *EngineLogger) LogSimulation(strategy string, iterations int, seed int64, mean, winProbability float64, cached bool, durationMs float64) {
	el.WithFields(logrus.Fields{
		"strategy":               strategy,
		"iterations":             iterations,
		"seed":                   seed,
		"mean":                   mean,
		"win_probability":        winProbability,
		"cached":                 cached,
		"simulation_duration_ms": durationMs,
	}).Debug("Scenario simulated")
}

// LogConvergenceWarning logs a simulated mean that strays from the analytic one.
func (el *EngineLogger) LogConvergenceWarning(strategy string, err error) {
	el.WithError(err).WithField("strategy", strategy).Warn("Simulation did not converge to analytic expectation")
}

// LogRanking logs the recommended scenario.
func (el *EngineLogger) LogRanking(topStrategy string, expectedPoints, riskLevel float64, executionMs int64) {
	el.WithFields(logrus.Fields{
		"top_strategy":      topStrategy,
		"expected_points":   expectedPoints,
		"risk_level":        riskLevel,
		"execution_time_ms": executionMs,
	}).Info("Optimization completed")
}
