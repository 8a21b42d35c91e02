// Package classifier labels matches Safe, Risky or Unsafe from their
// canonical probability.
package classifier

import (
	"math"
	"sort"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

// Confidence levels reported by MatchRisk.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Label derives the risk label for a favourite probability and threshold.
func Label(favoriteProb, threshold float64) models.RiskLabel {
	switch {
	case favoriteProb >= threshold:
		return models.RiskSafe
	case favoriteProb >= 0.5:
		return models.RiskRisky
	default:
		return models.RiskUnsafe
	}
}

// Classify computes the label for a match. The result is always Computed.
func Classify(match models.Match, prob models.MatchProbability) models.Classification {
	return models.Computed(Label(prob.FavoriteProb(), match.Threshold()))
}

// Override converts a manual "is safe" flag into an Overridden classification.
func Override(isSafe bool) models.Classification {
	if isSafe {
		return models.Overridden(models.RiskSafe)
	}
	return models.Overridden(models.RiskUnsafe)
}

// Resolve applies the match's manual override when one is set.
func Resolve(match models.Match, prob models.MatchProbability) models.Classification {
	if match.Override != nil {
		return Override(*match.Override)
	}
	return Classify(match, prob)
}

// ClassifyAll resolves every match against its canonical probability. Output
// follows the input order. A match without a probability fails the whole call.
func ClassifyAll(matches []models.Match, probabilities map[string]models.MatchProbability) ([]models.ClassifiedMatch, error) {
	out := make([]models.ClassifiedMatch, 0, len(matches))
	for _, m := range matches {
		prob, ok := probabilities[m.ID]
		if !ok {
			return nil, models.MissingConsensusError(m.ID, "canonical")
		}
		out = append(out, models.ClassifiedMatch{
			Match:          m,
			Probability:    prob,
			Classification: Resolve(m, prob),
		})
	}
	return out, nil
}

// Partition splits classified matches by label. Each bucket is ordered by
// favourite probability descending, then match ID.
func Partition(classified []models.ClassifiedMatch) map[models.RiskLabel][]models.ClassifiedMatch {
	parts := map[models.RiskLabel][]models.ClassifiedMatch{
		models.RiskSafe:   {},
		models.RiskRisky:  {},
		models.RiskUnsafe: {},
	}
	for _, c := range classified {
		parts[c.Classification.Label] = append(parts[c.Classification.Label], c)
	}
	for _, bucket := range parts {
		SortByFavorite(bucket)
	}
	return parts
}

// SortByFavorite orders matches by favourite probability descending with the
// match ID as tie-break.
func SortByFavorite(matches []models.ClassifiedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := matches[i].FavoriteProb(), matches[j].FavoriteProb()
		if pi != pj {
			return pi > pj
		}
		return matches[i].Match.ID < matches[j].Match.ID
	})
}

// MatchRisk scores how close a match is to a coin flip for the given pick.
// Risk is 1 at 50/50 and 0 at a certainty.
func MatchRisk(prob models.MatchProbability, side models.Side, threshold float64) models.MatchRisk {
	if threshold <= 0 {
		threshold = models.DefaultConfidenceThreshold
	}
	winProb := prob.ProbabilityOf(side)
	return models.MatchRisk{
		MatchID:         prob.MatchID,
		RiskScore:       1 - math.Abs(prob.PA-0.5)*2,
		WinProbability:  winProb,
		IsSafe:          prob.FavoriteProb() >= threshold,
		ConfidenceLevel: confidenceLevel(prob.FavoriteProb()),
	}
}

func confidenceLevel(favoriteProb float64) string {
	switch {
	case favoriteProb > 0.75:
		return ConfidenceHigh
	case favoriteProb > 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
