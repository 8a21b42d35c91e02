package generator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pickem-optimizer/internal/classifier"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

type fixture struct {
	id          string
	pA, pB      float64
	advancement bool
	safe        *bool
}

func classify(t *testing.T, fixtures ...fixture) []models.ClassifiedMatch {
	t.Helper()
	matches := make([]models.Match, 0, len(fixtures))
	probs := make(map[string]models.MatchProbability, len(fixtures))
	for _, f := range fixtures {
		matches = append(matches, models.Match{ID: f.id, Advancement: f.advancement, Override: f.safe})
		probs[f.id] = models.MatchProbability{MatchID: f.id, PA: f.pA, PB: f.pB, Source: "consensus"}
	}
	classified, err := classifier.ClassifyAll(matches, probs)
	require.NoError(t, err)
	return classified
}

func flag(v bool) *bool { return &v }

func sides(s models.Scenario) map[string]models.Side {
	out := make(map[string]models.Side, len(s.Picks))
	for _, p := range s.Picks {
		out[p.MatchID] = p.Side
	}
	return out
}

func TestConservativeThreeMatches(t *testing.T) {
	classified := classify(t,
		fixture{id: "M1", pA: 0.65, pB: 0.35},
		fixture{id: "M2", pA: 0.48, pB: 0.52},
		fixture{id: "M3", pA: 0.72, pB: 0.28},
	)
	constraints := models.Constraints{TotalPicks: 3, MaxThreeZero: 1, MaxZeroThree: 1}

	s, err := Build(models.StrategyConservative, classified, constraints)
	require.NoError(t, err)
	require.Len(t, s.Picks, 3)

	assert.Equal(t, map[string]models.Side{
		"M1": models.SideTeamA,
		"M2": models.SideTeamB,
		"M3": models.SideTeamA,
	}, sides(s))

	var total float64
	for _, p := range s.Picks {
		total += p.Confidence
		assert.Equal(t, models.BucketStandard, p.Bucket, "risky picks never fill the 3-0 slot")
	}
	assert.InDelta(t, 1.89, total, 1e-9)
	assert.Equal(t, "M3", s.Picks[0].MatchID)
}

func TestGenerateInvariants(t *testing.T) {
	var fixtures []fixture
	for i := 0; i < 12; i++ {
		pA := 0.3 + float64(i)*0.05
		fixtures = append(fixtures, fixture{
			id:          fmt.Sprintf("m%02d", i),
			pA:          pA,
			pB:          1 - pA,
			advancement: i%2 == 0,
		})
	}
	fixtures = append(fixtures,
		fixture{id: "u1", pA: 0.52, pB: 0.48, safe: flag(false)},
		fixture{id: "u2", pA: 0.7, pB: 0.3, safe: flag(false)},
	)
	classified := classify(t, fixtures...)
	constraints := models.Constraints{TotalPicks: 9, MaxThreeZero: 1, MaxZeroThree: 1, AdvancePicks: 5}

	scenarios, err := Generate(context.Background(), classified, constraints)
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	for i, s := range scenarios {
		assert.Equal(t, models.Strategies[i], s.Strategy)
		assert.Len(t, s.Picks, constraints.TotalPicks)

		seen := make(map[string]bool)
		for _, p := range s.Picks {
			assert.False(t, seen[p.MatchID], "duplicate %s in %s", p.MatchID, s.Strategy)
			seen[p.MatchID] = true
		}
		assert.Equal(t, constraints.AdvancePicks, s.CountBucket(models.BucketAdvance))
		assert.LessOrEqual(t, s.CountBucket(models.BucketZeroThree), constraints.MaxZeroThree)
		assert.LessOrEqual(t, s.CountBucket(models.BucketThreeZero), constraints.MaxThreeZero)
	}

	again, err := Generate(context.Background(), classified, constraints)
	require.NoError(t, err)
	for i := range scenarios {
		assert.Equal(t, sides(scenarios[i]), sides(again[i]))
	}
}

func TestBalancedReplacesWeakestPick(t *testing.T) {
	classified := classify(t,
		fixture{id: "a", pA: 0.9, pB: 0.1},
		fixture{id: "b", pA: 0.8, pB: 0.2},
		fixture{id: "c", pA: 0.6, pB: 0.4},
		fixture{id: "d", pA: 0.55, pB: 0.45, safe: flag(false)},
	)
	constraints := models.Constraints{TotalPicks: 3, MaxThreeZero: 1, MaxZeroThree: 1}

	conservative, err := Build(models.StrategyConservative, classified, constraints)
	require.NoError(t, err)
	assert.NotContains(t, sides(conservative), "d")
	assert.Equal(t, 1, conservative.CountBucket(models.BucketThreeZero))
	top, _ := conservative.PickFor("a")
	assert.Equal(t, models.BucketThreeZero, top.Bucket)

	balanced, err := Build(models.StrategyBalanced, classified, constraints)
	require.NoError(t, err)
	got := sides(balanced)
	assert.NotContains(t, got, "c")
	assert.Equal(t, models.SideTeamB, got["d"])
	swap, _ := balanced.PickFor("d")
	assert.Equal(t, 0.45, swap.Confidence)
	assert.Equal(t, models.BucketZeroThree, swap.Bucket)

	aggressive, err := Build(models.StrategyAggressive, classified, constraints)
	require.NoError(t, err)
	assert.Equal(t, "d", aggressive.Picks[0].MatchID)
	assert.Equal(t, models.SideTeamB, aggressive.Picks[0].Side)
	assert.Equal(t, map[string]models.Side{"a": models.SideTeamA, "b": models.SideTeamA, "d": models.SideTeamB}, sides(aggressive))
}

func TestBalancedFlipsIncludedMatch(t *testing.T) {
	classified := classify(t,
		fixture{id: "a", pA: 0.9, pB: 0.1},
		fixture{id: "b", pA: 0.55, pB: 0.45, safe: flag(false)},
		fixture{id: "c", pA: 0.35, pB: 0.65, safe: flag(false)},
	)
	constraints := models.Constraints{TotalPicks: 3, MaxThreeZero: 1, MaxZeroThree: 1}

	balanced, err := Build(models.StrategyBalanced, classified, constraints)
	require.NoError(t, err)
	// b has the smaller spread so it is the one flipped
	assert.Equal(t, map[string]models.Side{"a": models.SideTeamA, "b": models.SideTeamB, "c": models.SideTeamB}, sides(balanced))
	assert.Equal(t, 1, balanced.CountBucket(models.BucketZeroThree))
}

func TestAdvancementMatchesAreNeverSwapped(t *testing.T) {
	classified := classify(t,
		fixture{id: "a", pA: 0.9, pB: 0.1},
		fixture{id: "b", pA: 0.8, pB: 0.2},
		fixture{id: "d", pA: 0.55, pB: 0.45, safe: flag(false), advancement: true},
	)
	constraints := models.Constraints{TotalPicks: 2, MaxThreeZero: 0, MaxZeroThree: 1, AdvancePicks: 1}

	for _, strategy := range models.Strategies {
		s, err := Build(strategy, classified, constraints)
		require.NoError(t, err)
		pick, ok := s.PickFor("d")
		require.True(t, ok, strategy)
		assert.Equal(t, models.SideTeamA, pick.Side, strategy)
		assert.Equal(t, models.BucketAdvance, pick.Bucket, strategy)
		assert.Zero(t, s.CountBucket(models.BucketThreeZero), strategy)
	}
}

func TestGenerateConstraintViolations(t *testing.T) {
	classified := classify(t,
		fixture{id: "a", pA: 0.9, pB: 0.1, advancement: true},
		fixture{id: "b", pA: 0.8, pB: 0.2},
	)

	tests := []struct {
		name        string
		constraints models.Constraints
	}{
		{"too few matches", models.Constraints{TotalPicks: 3}},
		{"too few advancement matches", models.Constraints{TotalPicks: 2, AdvancePicks: 2}},
		{"advance exceeds total", models.Constraints{TotalPicks: 1, AdvancePicks: 2}},
		{"negative cap", models.Constraints{TotalPicks: 2, MaxZeroThree: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), classified, tt.constraints)
			assert.ErrorIs(t, err, models.ErrConstraintViolation)
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	classified := classify(t, fixture{id: "a", pA: 0.9, pB: 0.1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, classified, models.Constraints{TotalPicks: 1})
	assert.ErrorIs(t, err, models.ErrCancelled)
}
