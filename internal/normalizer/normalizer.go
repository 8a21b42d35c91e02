// Package normalizer reduces raw odds observations to one canonical
// probability pair per match.
package normalizer

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

// DefaultConsensusSource is the source tag whose observation is canonical.
const DefaultConsensusSource = "consensus"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func probabilityValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateProbability checks the range and sum invariants of a probability pair.
func ValidateProbability(p models.MatchProbability) error {
	if err := probabilityValidator().Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return models.ValidationError(p.MatchID, "field %s failed %s (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return models.ValidationError(p.MatchID, "%v", err)
	}
	if math.IsNaN(p.PA) || math.IsNaN(p.PB) {
		return models.ValidationError(p.MatchID, "probability is NaN")
	}
	if sum := p.PA + p.PB; math.Abs(sum-1) >= models.ProbabilitySumTolerance {
		return models.ValidationError(p.MatchID, "probabilities sum to %.4f, want 1 ± %.2f", sum, models.ProbabilitySumTolerance)
	}
	return nil
}

// Normalizer selects canonical probabilities from per-source observations.
type Normalizer struct {
	ConsensusSource string
}

// New creates a normalizer for the given consensus source tag.
func New(consensusSource string) *Normalizer {
	if consensusSource == "" {
		consensusSource = DefaultConsensusSource
	}
	return &Normalizer{ConsensusSource: consensusSource}
}

type sourceKey struct {
	matchID string
	source  string
}

// Latest keeps, for every (match, source) pair, the latest-timestamped active
// observation. On equal timestamps the later observation in the input wins.
// Output is ordered by match ID then source.
func (n *Normalizer) Latest(observations []models.OddsObservation) []models.OddsObservation {
	latest := make(map[sourceKey]models.OddsObservation)
	for _, obs := range observations {
		if !obs.IsActive {
			continue
		}
		key := sourceKey{matchID: obs.MatchID, source: obs.Source}
		if current, ok := latest[key]; ok && obs.Timestamp.Before(current.Timestamp) {
			continue
		}
		latest[key] = obs
	}

	out := make([]models.OddsObservation, 0, len(latest))
	for _, obs := range latest {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Normalize returns one canonical probability per match that has a valid
// consensus observation. Every other match yields an error in the returned
// slice (MissingConsensusError or ValidationError); the caller decides whether
// to exclude those matches or abort.
func (n *Normalizer) Normalize(observations []models.OddsObservation) (map[string]models.MatchProbability, []error) {
	probabilities := make(map[string]models.MatchProbability)
	var errs []error

	seen := make(map[string]bool)
	var matchOrder []string
	consensus := make(map[string]models.OddsObservation)

	for _, obs := range n.Latest(observations) {
		if !seen[obs.MatchID] {
			seen[obs.MatchID] = true
			matchOrder = append(matchOrder, obs.MatchID)
		}
		if obs.Source == n.ConsensusSource {
			consensus[obs.MatchID] = obs
		}
	}
	// Matches whose observations were all inactive still need a verdict.
	for _, obs := range observations {
		if !seen[obs.MatchID] {
			seen[obs.MatchID] = true
			matchOrder = append(matchOrder, obs.MatchID)
		}
	}
	sort.Strings(matchOrder)

	for _, matchID := range matchOrder {
		obs, ok := consensus[matchID]
		if !ok {
			errs = append(errs, models.MissingConsensusError(matchID, n.ConsensusSource))
			continue
		}
		prob := models.MatchProbability{
			MatchID:   matchID,
			PA:        obs.TeamAWinProb,
			PB:        obs.TeamBWinProb,
			Source:    obs.Source,
			Timestamp: obs.Timestamp,
		}
		if err := ValidateProbability(prob); err != nil {
			errs = append(errs, err)
			continue
		}
		probabilities[matchID] = prob
	}

	return probabilities, errs
}

// NormalizeFor normalizes observations and requires a canonical probability
// for every match in matchIDs.
func (n *Normalizer) NormalizeFor(matchIDs []string, observations []models.OddsObservation) (map[string]models.MatchProbability, error) {
	probabilities, errs := n.Normalize(observations)
	failed := make(map[string]error, len(errs))
	for _, err := range errs {
		var engineErr *models.Error
		if errors.As(err, &engineErr) {
			failed[engineErr.MatchID] = err
		}
	}
	for _, id := range matchIDs {
		if err, ok := failed[id]; ok {
			return nil, err
		}
		if _, ok := probabilities[id]; !ok {
			return nil, models.MissingConsensusError(id, n.ConsensusSource)
		}
	}
	return probabilities, nil
}
