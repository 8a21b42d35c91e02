package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

func prob(id string, pA, pB float64) models.MatchProbability {
	return models.MatchProbability{MatchID: id, PA: pA, PB: pB, Source: "consensus"}
}

// TestClassifyBoundaries tests the threshold edges
func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		pA, pB float64
		want   models.RiskLabel
	}{
		{"exactly threshold", 0.75, 0.25, models.RiskSafe},
		{"just below threshold", 0.7499, 0.2501, models.RiskRisky},
		{"coin flip", 0.5, 0.5, models.RiskRisky},
		{"just below half", 0.4999, 0.4999, models.RiskUnsafe},
		{"team b favourite", 0.25, 0.75, models.RiskSafe},
	}

	match := models.Match{ID: "m1", ConfidenceThreshold: 0.75}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(match, prob("m1", tt.pA, tt.pB))
			assert.Equal(t, tt.want, got.Label)
			assert.False(t, got.IsOverridden())
		})
	}
}

func TestClassifyDefaultThreshold(t *testing.T) {
	got := Classify(models.Match{ID: "m1"}, prob("m1", 0.75, 0.25))
	assert.Equal(t, models.RiskSafe, got.Label)

	strict := Classify(models.Match{ID: "m1", ConfidenceThreshold: 0.8}, prob("m1", 0.75, 0.25))
	assert.Equal(t, models.RiskRisky, strict.Label)
}

func TestOverrideWins(t *testing.T) {
	safe := true
	match := models.Match{ID: "m1", Override: &safe}
	got := Resolve(match, prob("m1", 0.45, 0.55))
	assert.Equal(t, models.Overridden(models.RiskSafe), got)

	unsafe := false
	match.Override = &unsafe
	assert.Equal(t, models.RiskUnsafe, Resolve(match, prob("m1", 0.9, 0.1)).Label)

	match.Override = nil
	assert.Equal(t, models.Computed(models.RiskSafe), Resolve(match, prob("m1", 0.9, 0.1)))
}

func TestClassifyAll(t *testing.T) {
	matches := []models.Match{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}
	probs := map[string]models.MatchProbability{
		"m1": prob("m1", 0.65, 0.35),
		"m2": prob("m2", 0.48, 0.52),
		"m3": prob("m3", 0.72, 0.28),
	}

	classified, err := ClassifyAll(matches, probs)
	require.NoError(t, err)
	require.Len(t, classified, 3)
	for _, c := range classified {
		assert.Equal(t, models.RiskRisky, c.Classification.Label, c.Match.ID)
	}

	delete(probs, "m2")
	_, err = ClassifyAll(matches, probs)
	assert.ErrorIs(t, err, models.ErrMissingConsensus)
}

func TestPartitionOrdering(t *testing.T) {
	classified, err := ClassifyAll(
		[]models.Match{{ID: "b"}, {ID: "a"}, {ID: "c"}, {ID: "d"}},
		map[string]models.MatchProbability{
			"a": prob("a", 0.8, 0.2),
			"b": prob("b", 0.2, 0.8),
			"c": prob("c", 0.9, 0.1),
			"d": prob("d", 0.6, 0.4),
		},
	)
	require.NoError(t, err)

	parts := Partition(classified)
	safe := parts[models.RiskSafe]
	require.Len(t, safe, 3)
	assert.Equal(t, "c", safe[0].Match.ID)
	assert.Equal(t, "a", safe[1].Match.ID)
	assert.Equal(t, "b", safe[2].Match.ID)
	assert.Len(t, parts[models.RiskRisky], 1)
	assert.Empty(t, parts[models.RiskUnsafe])
}

func TestMatchRisk(t *testing.T) {
	risk := MatchRisk(prob("m1", 0.5, 0.5), models.SideTeamA, 0)
	assert.InDelta(t, 1.0, risk.RiskScore, 1e-9)
	assert.Equal(t, ConfidenceLow, risk.ConfidenceLevel)
	assert.False(t, risk.IsSafe)

	risk = MatchRisk(prob("m2", 0.1, 0.9), models.SideTeamB, 0.75)
	assert.InDelta(t, 0.2, risk.RiskScore, 1e-9)
	assert.Equal(t, 0.9, risk.WinProbability)
	assert.Equal(t, ConfidenceHigh, risk.ConfidenceLevel)
	assert.True(t, risk.IsSafe)

	assert.Equal(t, ConfidenceMedium, MatchRisk(prob("m3", 0.65, 0.35), models.SideTeamA, 0).ConfidenceLevel)
}
