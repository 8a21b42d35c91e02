// Package ranker derives scenario statistics from simulation results and
// orders scenarios for presentation.
package ranker

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/pickem-optimizer/internal/classifier"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

// DefaultConvergenceTolerance bounds |simulated - analytic| expected points at
// the default trial count.
const DefaultConvergenceTolerance = 0.05

// Derive computes a scenario's statistics from its simulation result.
func Derive(picks []models.Pick, result models.SimulationResult) models.ScenarioStats {
	sd := result.Stats.StandardDeviation
	return models.ScenarioStats{
		ExpectedPoints: result.Stats.Mean,
		WinProbability: result.WinProbability,
		RiskLevel:      clamp(1-result.WinProbability, 0, 1),
		Variance:       sd * sd,
		Confidence:     meanConfidence(picks),
	}
}

// Attach returns a copy of the scenario carrying the simulation and its
// derived statistics.
func Attach(s models.Scenario, result models.SimulationResult) models.Scenario {
	r := result
	s.Simulation = &r
	s.Stats = Derive(s.Picks, result)
	return s
}

// Rank returns the scenarios sorted by expected points descending, then risk
// level ascending, then canonical strategy order, with Rank set from 1.
// The input slice is not modified.
func Rank(scenarios []models.Scenario) []models.Scenario {
	ranked := append([]models.Scenario(nil), scenarios...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Stats, ranked[j].Stats
		if a.ExpectedPoints != b.ExpectedPoints {
			return a.ExpectedPoints > b.ExpectedPoints
		}
		if a.RiskLevel != b.RiskLevel {
			return a.RiskLevel < b.RiskLevel
		}
		return ranked[i].Strategy.Order() < ranked[j].Strategy.Order()
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// AnalyticExpectation is the exact expected score, the sum of pick confidences.
func AnalyticExpectation(s models.Scenario) float64 {
	var total float64
	for _, p := range s.Picks {
		total += p.Confidence
	}
	return total
}

// CheckConvergence reports a simulated mean that strays more than tolerance
// from the analytic expectation.
func CheckConvergence(s models.Scenario, tolerance float64) error {
	if s.Simulation == nil {
		return fmt.Errorf("scenario %s has no simulation", s.Strategy)
	}
	analytic := AnalyticExpectation(s)
	if diff := math.Abs(s.Simulation.Stats.Mean - analytic); diff > tolerance {
		return fmt.Errorf("scenario %s: simulated mean %.4f deviates from analytic %.4f by %.4f (tolerance %.4f)",
			s.Strategy, s.Simulation.Stats.Mean, analytic, diff, tolerance)
	}
	return nil
}

// Analyze builds the per-match risk breakdown of a simulated scenario.
func Analyze(s models.Scenario, matches map[string]models.ClassifiedMatch) models.RiskAnalysis {
	analysis := models.RiskAnalysis{MatchRisks: make(map[string]models.MatchRisk, len(s.Picks))}

	for _, p := range s.Picks {
		c, ok := matches[p.MatchID]
		if !ok {
			continue
		}
		risk := classifier.MatchRisk(c.Probability, p.Side, c.Match.Threshold())
		risk.IsSafe = c.Classification.Label == models.RiskSafe
		analysis.MatchRisks[p.MatchID] = risk
		analysis.TotalRiskScore += risk.RiskScore
	}
	if n := len(analysis.MatchRisks); n > 0 {
		analysis.TotalRiskScore /= float64(n)
	}

	if len(s.Picks) > 0 {
		analysis.StrategyConfidence = math.Min(s.Stats.ExpectedPoints/float64(len(s.Picks)), 1)
	}
	if s.Simulation != nil {
		analysis.VolatilityIndex = s.Simulation.Stats.StandardDeviation
	}
	return analysis
}

func meanConfidence(picks []models.Pick) float64 {
	if len(picks) == 0 {
		return 0
	}
	var total float64
	for _, p := range picks {
		total += p.Confidence
	}
	return total / float64(len(picks))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
