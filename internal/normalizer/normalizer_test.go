package normalizer

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

var t0 = time.Date(2024, 11, 2, 18, 0, 0, 0, time.UTC)

func obs(matchID, source string, pA, pB float64, at time.Time) models.OddsObservation {
	return models.OddsObservation{
		MatchID:      matchID,
		Source:       source,
		TeamAWinProb: pA,
		TeamBWinProb: pB,
		Timestamp:    at,
		IsActive:     true,
	}
}

func TestValidateProbability(t *testing.T) {
	tests := []struct {
		name    string
		prob    models.MatchProbability
		wantErr bool
	}{
		{"valid", models.MatchProbability{MatchID: "m1", PA: 0.6, PB: 0.4}, false},
		{"within tolerance", models.MatchProbability{MatchID: "m1", PA: 0.6, PB: 0.395}, false},
		{"sum too high", models.MatchProbability{MatchID: "m1", PA: 0.7, PB: 0.4}, true},
		{"out of range", models.MatchProbability{MatchID: "m1", PA: 1.2, PB: -0.2}, true},
		{"missing id", models.MatchProbability{PA: 0.5, PB: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProbability(tt.prob)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLatestKeepsNewestActivePerSource(t *testing.T) {
	n := New("")
	input := []models.OddsObservation{
		obs("m1", "consensus", 0.6, 0.4, t0),
		obs("m1", "consensus", 0.7, 0.3, t0.Add(time.Minute)),
		obs("m1", "elo", 0.55, 0.45, t0),
	}
	stale := obs("m1", "consensus", 0.9, 0.1, t0.Add(time.Hour))
	stale.IsActive = false
	input = append(input, stale)

	latest := n.Latest(input)
	require.Len(t, latest, 2)
	assert.Equal(t, "consensus", latest[0].Source)
	assert.Equal(t, 0.7, latest[0].TeamAWinProb)
	assert.Equal(t, "elo", latest[1].Source)
}

func TestLatestTieGoesToLaterInput(t *testing.T) {
	n := New("")
	latest := n.Latest([]models.OddsObservation{
		obs("m1", "consensus", 0.6, 0.4, t0),
		obs("m1", "consensus", 0.65, 0.35, t0),
	})
	require.Len(t, latest, 1)
	assert.Equal(t, 0.65, latest[0].TeamAWinProb)
}

func TestNormalizeSeparatesFailures(t *testing.T) {
	n := New("")
	probs, errs := n.Normalize([]models.OddsObservation{
		obs("m1", "consensus", 0.6, 0.4, t0),
		obs("m2", "elo", 0.5, 0.5, t0),
		obs("m3", "consensus", 0.8, 0.5, t0),
	})

	require.Len(t, probs, 1)
	assert.Equal(t, 0.6, probs["m1"].PA)
	assert.Equal(t, "consensus", probs["m1"].Source)

	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], models.ErrMissingConsensus)
	assert.Contains(t, errs[0].Error(), "m2")
	assert.ErrorIs(t, errs[1], models.ErrValidation)
	assert.Contains(t, errs[1].Error(), "m3")
}

func TestNormalizeInactiveOnlyIsMissing(t *testing.T) {
	n := New("")
	inactive := obs("m1", "consensus", 0.6, 0.4, t0)
	inactive.IsActive = false

	_, err := n.NormalizeFor([]string{"m1"}, []models.OddsObservation{inactive})
	assert.ErrorIs(t, err, models.ErrMissingConsensus)
}

func TestNormalizeCustomSource(t *testing.T) {
	n := New("bookmaker_consensus")
	probs, err := n.NormalizeFor([]string{"m1"}, []models.OddsObservation{
		obs("m1", "bookmaker_consensus", 0.3, 0.7, t0),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SideTeamB, probs["m1"].Favorite())
}

func TestNormalizeFor(t *testing.T) {
	n := New("")
	input := []models.OddsObservation{
		obs("m1", "consensus", 0.6, 0.4, t0),
		obs("m2", "elo", 0.5, 0.5, t0),
	}

	probs, err := n.NormalizeFor([]string{"m1"}, input)
	require.NoError(t, err)
	assert.Contains(t, probs, "m1")

	_, err = n.NormalizeFor([]string{"m1", "m2"}, input)
	assert.ErrorIs(t, err, models.ErrMissingConsensus)

	_, err = n.NormalizeFor([]string{"m9"}, input)
	assert.ErrorIs(t, err, models.ErrMissingConsensus)
}

func TestImpliedFromDecimal(t *testing.T) {
	pA, pB, err := ImpliedFromDecimal(decimal.RequireFromString("1.5"), decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.InDelta(t, 0.625, pA, 1e-6)
	assert.InDelta(t, 1.0, pA+pB, 1e-9)

	_, _, err = ImpliedFromDecimal(decimal.NewFromInt(1), decimal.NewFromInt(3))
	assert.Error(t, err)

	margin := Margin(decimal.RequireFromString("1.5"), decimal.RequireFromString("2.5"))
	assert.True(t, margin.GreaterThan(decimal.Zero))
}

func TestConsensusFromBookmakers(t *testing.T) {
	n := New("")
	quotes := []BookmakerQuote{
		{Bookmaker: "a", TeamADecimal: decimal.RequireFromString("1.5"), TeamBDecimal: decimal.RequireFromString("2.5")},
		{Bookmaker: "b", TeamADecimal: decimal.RequireFromString("1.6"), TeamBDecimal: decimal.RequireFromString("2.4")},
	}

	o, err := n.ConsensusFromBookmakers("m1", quotes, t0)
	require.NoError(t, err)
	assert.Equal(t, "consensus", o.Source)
	assert.True(t, o.IsActive)
	assert.InDelta(t, 0.6125, o.TeamAWinProb, 1e-6)

	probs, err := n.NormalizeFor([]string{"m1"}, []models.OddsObservation{o})
	require.NoError(t, err)
	assert.Contains(t, probs, "m1")

	_, err = n.ConsensusFromBookmakers("m2", nil, t0)
	assert.ErrorIs(t, err, models.ErrMissingConsensus)
}

func TestEloProbability(t *testing.T) {
	assert.InDelta(t, 0.5, EloProbability(1500, 1500), 1e-9)
	assert.InDelta(t, 10.0/11.0, EloProbability(1900, 1500), 1e-9)
	assert.InDelta(t, 1.0, EloProbability(1900, 1500)+EloProbability(1500, 1900), 1e-9)

	o, err := EloObservation("m1", 1900, 1500, t0)
	require.NoError(t, err)
	assert.Equal(t, EloSource, o.Source)
	assert.True(t, o.IsActive)
	assert.NoError(t, ValidateProbability(models.MatchProbability{MatchID: "m1", PA: o.TeamAWinProb, PB: o.TeamBWinProb}))

	_, err = EloObservation("m1", math.Inf(1), 1500, t0)
	assert.ErrorIs(t, err, models.ErrValidation)
}
