package models

import (
	"math"
	"time"
)

// DefaultConfidenceThreshold is the favourite probability at or above which a
// match is considered Safe.
const DefaultConfidenceThreshold = 0.75

// ProbabilitySumTolerance bounds |pA+pB-1| for a valid observation.
const ProbabilitySumTolerance = 0.01

// Side identifies which team a pick backs.
type Side string

const (
	SideTeamA Side = "team_a"
	SideTeamB Side = "team_b"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideTeamA {
		return SideTeamB
	}
	return SideTeamA
}

// OddsObservation is one raw win-probability observation from a single source.
type OddsObservation struct {
	MatchID      string    `db:"match_id" json:"match_id"`
	Source       string    `db:"source" json:"source"`
	TeamAWinProb float64   `db:"team_a_win_prob" json:"team_a_win_prob"`
	TeamBWinProb float64   `db:"team_b_win_prob" json:"team_b_win_prob"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	IsActive     bool      `db:"is_active" json:"is_active"`
}

// MatchProbability is the canonical probability pair for one match.
type MatchProbability struct {
	MatchID   string    `json:"match_id" validate:"required"`
	PA        float64   `json:"team_a_win_prob" validate:"gte=0,lte=1"`
	PB        float64   `json:"team_b_win_prob" validate:"gte=0,lte=1"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// FavoriteProb returns max(pA, pB).
func (p MatchProbability) FavoriteProb() float64 {
	return math.Max(p.PA, p.PB)
}

// Favorite returns the side with the higher probability. Even matches go to team A.
func (p MatchProbability) Favorite() Side {
	if p.PB > p.PA {
		return SideTeamB
	}
	return SideTeamA
}

// ProbabilityOf returns the win probability of the given side.
func (p MatchProbability) ProbabilityOf(side Side) float64 {
	if side == SideTeamB {
		return p.PB
	}
	return p.PA
}

// Spread returns |pA - pB|; small spreads are close to a coin flip.
func (p MatchProbability) Spread() float64 {
	return math.Abs(p.PA - p.PB)
}

// Match is the metadata the engine needs about a tournament match.
type Match struct {
	ID                  string  `db:"id" json:"id"`
	TeamA               string  `db:"team_a" json:"team_a"`
	TeamB               string  `db:"team_b" json:"team_b"`
	Stage               string  `db:"stage" json:"stage"`
	ConfidenceThreshold float64 `db:"confidence_threshold" json:"confidence_threshold"`
	Advancement         bool    `db:"advancement" json:"advancement"`
	// Override is the manual "is safe" flag. nil means no override.
	Override *bool `db:"is_safe_override" json:"is_safe_override,omitempty"`
}

// Threshold returns the match's confidence threshold, falling back to the default.
func (m Match) Threshold() float64 {
	if m.ConfidenceThreshold <= 0 {
		return DefaultConfidenceThreshold
	}
	return m.ConfidenceThreshold
}
