package normalizer

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

// EloSource tags observations derived from team ratings.
const EloSource = "elo"

var (
	one     = decimal.NewFromInt(1)
	minOdds = decimal.NewFromInt(1)
)

// BookmakerQuote is a pair of decimal odds from one bookmaker.
type BookmakerQuote struct {
	Bookmaker    string          `json:"name"`
	TeamADecimal decimal.Decimal `json:"team_a_decimal"`
	TeamBDecimal decimal.Decimal `json:"team_b_decimal"`
}

// ImpliedFromDecimal converts two-way decimal odds to fair win probabilities,
// stripping the bookmaker margin.
func ImpliedFromDecimal(teamA, teamB decimal.Decimal) (float64, float64, error) {
	if teamA.LessThanOrEqual(minOdds) || teamB.LessThanOrEqual(minOdds) {
		return 0, 0, fmt.Errorf("decimal odds must be greater than 1, got %s and %s", teamA, teamB)
	}
	rawA := one.Div(teamA)
	rawB := one.Div(teamB)
	total := rawA.Add(rawB)

	pA, _ := rawA.Div(total).Round(6).Float64()
	return pA, 1 - pA, nil
}

// Margin returns the bookmaker overround of a two-way market.
func Margin(teamA, teamB decimal.Decimal) decimal.Decimal {
	if teamA.IsZero() || teamB.IsZero() {
		return decimal.Zero
	}
	return one.Div(teamA).Add(one.Div(teamB)).Sub(one)
}

// ConsensusFromBookmakers averages decimal odds across bookmakers and emits a
// single observation tagged with the consensus source.
func (n *Normalizer) ConsensusFromBookmakers(matchID string, quotes []BookmakerQuote, at time.Time) (models.OddsObservation, error) {
	if len(quotes) == 0 {
		return models.OddsObservation{}, models.MissingConsensusError(matchID, n.ConsensusSource)
	}

	sumA := decimal.Zero
	sumB := decimal.Zero
	for _, q := range quotes {
		sumA = sumA.Add(q.TeamADecimal)
		sumB = sumB.Add(q.TeamBDecimal)
	}
	count := decimal.NewFromInt(int64(len(quotes)))

	pA, pB, err := ImpliedFromDecimal(sumA.Div(count), sumB.Div(count))
	if err != nil {
		return models.OddsObservation{}, models.ValidationError(matchID, "%v", err)
	}

	return models.OddsObservation{
		MatchID:      matchID,
		Source:       n.ConsensusSource,
		TeamAWinProb: pA,
		TeamBWinProb: pB,
		Timestamp:    at,
		IsActive:     true,
	}, nil
}

// EloProbability returns team A's expected win probability from Elo ratings.
func EloProbability(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}

// EloObservation turns a pair of ratings into an active observation tagged
// with EloSource.
func EloObservation(matchID string, ratingA, ratingB float64, at time.Time) (models.OddsObservation, error) {
	for _, r := range []float64{ratingA, ratingB} {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return models.OddsObservation{}, models.ValidationError(matchID, "elo rating %v is not finite", r)
		}
	}
	pA := EloProbability(ratingA, ratingB)
	return models.OddsObservation{
		MatchID:      matchID,
		Source:       EloSource,
		TeamAWinProb: pA,
		TeamBWinProb: 1 - pA,
		Timestamp:    at,
		IsActive:     true,
	}, nil
}
