package models

import "github.com/google/uuid"

// Strategy names a risk posture for a generated scenario.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyBalanced     Strategy = "balanced"
	StrategyAggressive   Strategy = "aggressive"
)

// Strategies lists every strategy in canonical order.
var Strategies = []Strategy{StrategyConservative, StrategyBalanced, StrategyAggressive}

// Order returns the strategy's position in canonical order; unknown strategies sort last.
func (s Strategy) Order() int {
	for i, known := range Strategies {
		if s == known {
			return i
		}
	}
	return len(Strategies)
}

// PickBucket is the structural slot a pick occupies.
type PickBucket string

const (
	BucketAdvance   PickBucket = "advance"
	BucketThreeZero PickBucket = "3-0"
	BucketZeroThree PickBucket = "0-3"
	BucketStandard  PickBucket = "standard"
)

// Pick is a single prediction.
type Pick struct {
	MatchID    string     `json:"match_id"`
	Side       Side       `json:"selected_team"`
	Confidence float64    `json:"confidence"`
	Bucket     PickBucket `json:"bucket"`
}

// ScenarioStats are the derived statistics of a simulated scenario.
type ScenarioStats struct {
	ExpectedPoints float64 `json:"expected_points"`
	WinProbability float64 `json:"win_probability"`
	RiskLevel      float64 `json:"risk_level"`
	Variance       float64 `json:"variance"`
	Confidence     float64 `json:"confidence"`
}

// MatchRisk is the per-match risk breakdown of a scenario.
type MatchRisk struct {
	MatchID         string  `json:"match_id"`
	RiskScore       float64 `json:"risk_score"`
	WinProbability  float64 `json:"win_probability"`
	IsSafe          bool    `json:"is_safe"`
	ConfidenceLevel string  `json:"confidence_level"`
}

// RiskAnalysis summarises how fragile a scenario is.
type RiskAnalysis struct {
	TotalRiskScore     float64              `json:"total_risk_score"`
	MatchRisks         map[string]MatchRisk `json:"match_risks"`
	StrategyConfidence float64              `json:"strategy_confidence"`
	VolatilityIndex    float64              `json:"volatility_index"`
}

// Scenario is one complete, constraint-satisfying set of picks.
type Scenario struct {
	ID           uuid.UUID         `json:"id"`
	Strategy     Strategy          `json:"strategy"`
	Picks        []Pick            `json:"picks"`
	Stats        ScenarioStats     `json:"stats"`
	Simulation   *SimulationResult `json:"simulation,omitempty"`
	RiskAnalysis *RiskAnalysis     `json:"risk_analysis,omitempty"`
	Rank         int               `json:"rank"`
}

// PickFor returns the pick for a match, if present.
func (s Scenario) PickFor(matchID string) (Pick, bool) {
	for _, p := range s.Picks {
		if p.MatchID == matchID {
			return p, true
		}
	}
	return Pick{}, false
}

// CountBucket returns how many picks occupy the given bucket.
func (s Scenario) CountBucket(bucket PickBucket) int {
	n := 0
	for _, p := range s.Picks {
		if p.Bucket == bucket {
			n++
		}
	}
	return n
}
