// Package generator builds the named pick strategies from classified matches.
//
// Construction is greedy and bounded. Ties are always broken by higher
// favourite probability first, then by match ID ascending, so the same input
// produces the same scenarios.
package generator

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pickem-optimizer/internal/classifier"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

// plan is the shared, read-only selection state for one generation call.
type plan struct {
	constraints models.Constraints
	byID        map[string]models.ClassifiedMatch
	mandatory   []models.ClassifiedMatch
	isMandatory map[string]bool
	// ordered holds non-mandatory matches in conservative priority:
	// Safe, then Risky, then Unsafe.
	ordered []models.ClassifiedMatch
	// unsafe holds non-mandatory Unsafe matches, favourite order.
	unsafe []models.ClassifiedMatch
}

func newPlan(classified []models.ClassifiedMatch, constraints models.Constraints) (*plan, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	if len(classified) < constraints.TotalPicks {
		return nil, models.ConstraintViolation("%d matches available, %d picks required", len(classified), constraints.TotalPicks)
	}

	p := &plan{
		constraints: constraints,
		byID:        make(map[string]models.ClassifiedMatch, len(classified)),
		isMandatory: make(map[string]bool),
	}

	var advancement []models.ClassifiedMatch
	for _, c := range classified {
		if _, dup := p.byID[c.Match.ID]; dup {
			return nil, models.ValidationError(c.Match.ID, "duplicate match")
		}
		p.byID[c.Match.ID] = c
		if c.Match.Advancement {
			advancement = append(advancement, c)
		}
	}
	if len(advancement) < constraints.AdvancePicks {
		return nil, models.ConstraintViolation("%d advancement matches available, %d required", len(advancement), constraints.AdvancePicks)
	}

	classifier.SortByFavorite(advancement)
	p.mandatory = advancement[:constraints.AdvancePicks]
	for _, c := range p.mandatory {
		p.isMandatory[c.Match.ID] = true
	}

	rest := make([]models.ClassifiedMatch, 0, len(classified)-len(p.mandatory))
	for _, c := range classified {
		if !p.isMandatory[c.Match.ID] {
			rest = append(rest, c)
		}
	}
	parts := classifier.Partition(rest)
	p.ordered = append(p.ordered, parts[models.RiskSafe]...)
	p.ordered = append(p.ordered, parts[models.RiskRisky]...)
	p.ordered = append(p.ordered, parts[models.RiskUnsafe]...)
	p.unsafe = parts[models.RiskUnsafe]

	return p, nil
}

func favoritePick(c models.ClassifiedMatch) models.Pick {
	side := c.Probability.Favorite()
	return models.Pick{MatchID: c.Match.ID, Side: side, Confidence: c.Probability.ProbabilityOf(side)}
}

func underdogPick(c models.ClassifiedMatch) models.Pick {
	side := c.Probability.Favorite().Opposite()
	return models.Pick{MatchID: c.Match.ID, Side: side, Confidence: c.Probability.ProbabilityOf(side)}
}

func (p *plan) mandatoryPicks() []models.Pick {
	picks := make([]models.Pick, 0, p.constraints.TotalPicks)
	for _, c := range p.mandatory {
		picks = append(picks, favoritePick(c))
	}
	return picks
}

// fill tops picks up to TotalPicks with favourite picks in conservative order.
func (p *plan) fill(picks []models.Pick, used map[string]bool) []models.Pick {
	for _, c := range p.ordered {
		if len(picks) >= p.constraints.TotalPicks {
			break
		}
		if used[c.Match.ID] {
			continue
		}
		picks = append(picks, favoritePick(c))
		used[c.Match.ID] = true
	}
	return picks
}

func (p *plan) conservative() []models.Pick {
	picks := p.mandatoryPicks()
	used := make(map[string]bool, p.constraints.TotalPicks)
	for _, pk := range picks {
		used[pk.MatchID] = true
	}
	return p.fill(picks, used)
}

// balanced starts from the conservative picks and swaps in underdogs on the
// Unsafe matches closest to a coin flip.
func (p *plan) balanced() []models.Pick {
	picks := p.conservative()

	eligible := append([]models.ClassifiedMatch(nil), p.unsafe...)
	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := eligible[i].Probability.Spread(), eligible[j].Probability.Spread()
		if si != sj {
			return si < sj
		}
		return eligible[i].Match.ID < eligible[j].Match.ID
	})

	swapped := make(map[string]bool)
	for _, c := range eligible {
		if len(swapped) >= p.constraints.MaxZeroThree {
			break
		}
		if idx := indexOf(picks, c.Match.ID); idx >= 0 {
			picks[idx] = underdogPick(c)
			swapped[c.Match.ID] = true
			continue
		}
		idx := p.weakestReplaceable(picks, swapped)
		if idx < 0 {
			break
		}
		picks[idx] = underdogPick(c)
		swapped[c.Match.ID] = true
	}
	return picks
}

// weakestReplaceable returns the lowest-confidence pick that is neither
// mandatory nor already swapped, or -1.
func (p *plan) weakestReplaceable(picks []models.Pick, swapped map[string]bool) int {
	best := -1
	for i, pk := range picks {
		if p.isMandatory[pk.MatchID] || swapped[pk.MatchID] {
			continue
		}
		if best < 0 || pk.Confidence < picks[best].Confidence ||
			(pk.Confidence == picks[best].Confidence && pk.MatchID < picks[best].MatchID) {
			best = i
		}
	}
	return best
}

// aggressive backs the underdog on as many Unsafe matches as the 0-3 cap and
// the free slots allow, then fills conservatively.
func (p *plan) aggressive() []models.Pick {
	picks := p.mandatoryPicks()
	used := make(map[string]bool, p.constraints.TotalPicks)
	for _, pk := range picks {
		used[pk.MatchID] = true
	}

	eligible := append([]models.ClassifiedMatch(nil), p.unsafe...)
	sort.SliceStable(eligible, func(i, j int) bool {
		ui, uj := underdogPick(eligible[i]).Confidence, underdogPick(eligible[j]).Confidence
		if ui != uj {
			return ui > uj
		}
		return eligible[i].Match.ID < eligible[j].Match.ID
	})

	upsets := 0
	for _, c := range eligible {
		if upsets >= p.constraints.MaxZeroThree || len(picks) >= p.constraints.TotalPicks {
			break
		}
		picks = append(picks, underdogPick(c))
		used[c.Match.ID] = true
		upsets++
	}
	return p.fill(picks, used)
}

// assignBuckets labels every pick with its structural slot.
func (p *plan) assignBuckets(picks []models.Pick) {
	var threeZero []int
	for i := range picks {
		c := p.byID[picks[i].MatchID]
		switch {
		case p.isMandatory[picks[i].MatchID]:
			picks[i].Bucket = models.BucketAdvance
		case picks[i].Side != c.Probability.Favorite():
			picks[i].Bucket = models.BucketZeroThree
		default:
			picks[i].Bucket = models.BucketStandard
			if c.Classification.Label == models.RiskSafe {
				threeZero = append(threeZero, i)
			}
		}
	}

	sort.SliceStable(threeZero, func(a, b int) bool {
		pa, pb := picks[threeZero[a]], picks[threeZero[b]]
		if pa.Confidence != pb.Confidence {
			return pa.Confidence > pb.Confidence
		}
		return pa.MatchID < pb.MatchID
	})
	for n, i := range threeZero {
		if n >= p.constraints.MaxThreeZero {
			break
		}
		picks[i].Bucket = models.BucketThreeZero
	}
}

func (p *plan) checkInvariants(s models.Scenario) error {
	if len(s.Picks) != p.constraints.TotalPicks {
		return models.InternalInvariantError("%s scenario has %d picks, want %d", s.Strategy, len(s.Picks), p.constraints.TotalPicks)
	}
	seen := make(map[string]bool, len(s.Picks))
	for _, pk := range s.Picks {
		if seen[pk.MatchID] {
			return models.InternalInvariantError("%s scenario picks match %s twice", s.Strategy, pk.MatchID)
		}
		seen[pk.MatchID] = true
		if pk.Confidence < 0 || pk.Confidence > 1 {
			return models.InternalInvariantError("%s scenario pick %s has confidence %f", s.Strategy, pk.MatchID, pk.Confidence)
		}
	}
	for _, c := range p.mandatory {
		if !seen[c.Match.ID] {
			return models.InternalInvariantError("%s scenario is missing advancement match %s", s.Strategy, c.Match.ID)
		}
	}
	if n := s.CountBucket(models.BucketZeroThree); n > p.constraints.MaxZeroThree {
		return models.InternalInvariantError("%s scenario has %d 0-3 picks, cap %d", s.Strategy, n, p.constraints.MaxZeroThree)
	}
	if n := s.CountBucket(models.BucketThreeZero); n > p.constraints.MaxThreeZero {
		return models.InternalInvariantError("%s scenario has %d 3-0 picks, cap %d", s.Strategy, n, p.constraints.MaxThreeZero)
	}
	return nil
}

func (p *plan) build(strategy models.Strategy) (models.Scenario, error) {
	var picks []models.Pick
	switch strategy {
	case models.StrategyConservative:
		picks = p.conservative()
	case models.StrategyBalanced:
		picks = p.balanced()
	case models.StrategyAggressive:
		picks = p.aggressive()
	default:
		return models.Scenario{}, models.InternalInvariantError("unknown strategy %q", strategy)
	}
	p.assignBuckets(picks)

	s := models.Scenario{ID: uuid.New(), Strategy: strategy, Picks: picks}
	if err := p.checkInvariants(s); err != nil {
		return models.Scenario{}, err
	}
	return s, nil
}

// Build generates a single strategy.
func Build(strategy models.Strategy, classified []models.ClassifiedMatch, constraints models.Constraints) (models.Scenario, error) {
	p, err := newPlan(classified, constraints)
	if err != nil {
		return models.Scenario{}, err
	}
	return p.build(strategy)
}

// Generate builds every strategy concurrently and returns them in canonical
// strategy order.
func Generate(ctx context.Context, classified []models.ClassifiedMatch, constraints models.Constraints) ([]models.Scenario, error) {
	p, err := newPlan(classified, constraints)
	if err != nil {
		return nil, err
	}

	scenarios := make([]models.Scenario, len(models.Strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range models.Strategies {
		i, strategy := i, strategy
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return models.Cancelled(err)
			}
			s, err := p.build(strategy)
			if err != nil {
				return err
			}
			scenarios[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scenarios, nil
}

func indexOf(picks []models.Pick, matchID string) int {
	for i, pk := range picks {
		if pk.MatchID == matchID {
			return i
		}
	}
	return -1
}
