// Package engine wires classification, scenario generation, simulation and
// ranking into the synchronous optimization pipeline.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pickem-optimizer/internal/cache"
	"github.com/yourusername/pickem-optimizer/internal/classifier"
	"github.com/yourusername/pickem-optimizer/internal/generator"
	"github.com/yourusername/pickem-optimizer/internal/logger"
	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/models"
	"github.com/yourusername/pickem-optimizer/internal/normalizer"
	"github.com/yourusername/pickem-optimizer/internal/ranker"
	"github.com/yourusername/pickem-optimizer/internal/simulator"
)

// DefaultTargetScore is used when neither the request nor the engine options
// name a target; it is capped at the scenario size.
const DefaultTargetScore = 7

// Options configures an Engine.
type Options struct {
	Simulation  simulator.Config
	Constraints models.Constraints
	TargetScore int
	// Cache is optional. Only runs with a fixed seed are cached.
	Cache  cache.SimulationCache
	Logger *logrus.Logger
}

// Engine runs optimizations. It holds no state between calls apart from the
// optional cache.
type Engine struct {
	simulation  simulator.Config
	constraints models.Constraints
	targetScore int
	cache       cache.SimulationCache
	log         *logger.EngineLogger
}

// New creates an engine, filling unset options with defaults.
func New(opts Options) *Engine {
	if opts.Constraints.TotalPicks == 0 {
		opts.Constraints = models.DefaultConstraints()
	}
	if opts.TargetScore <= 0 {
		opts.TargetScore = DefaultTargetScore
	}
	return &Engine{
		simulation:  opts.Simulation.WithDefaults(),
		constraints: opts.Constraints,
		targetScore: opts.TargetScore,
		cache:       opts.Cache,
		log:         logger.NewEngineLogger(logger.OrDiscard(opts.Logger)),
	}
}

// Constraints returns the constraints applied when a request names none.
func (e *Engine) Constraints() models.Constraints {
	return e.constraints
}

// Request is one optimization invocation.
type Request struct {
	UserID        string                             `json:"user_id"`
	SafeMatches   []string                           `json:"safe_matches"`
	UnsafeMatches []string                           `json:"unsafe_matches"`
	Matches       []models.Match                     `json:"matches"`
	Probabilities map[string]models.MatchProbability `json:"probabilities"`
	Constraints   *models.Constraints                `json:"constraints,omitempty"`
	TargetScore   int                                `json:"target_score"`
	Iterations    int                                `json:"iterations,omitempty"`
	Seed          int64                              `json:"seed,omitempty"`
}

// ResimulateRequest re-runs simulation and ranking over existing scenarios.
type ResimulateRequest struct {
	Scenarios     []models.Scenario                  `json:"scenarios"`
	// Matches optionally supplies thresholds and overrides for the picked
	// matches. Matches absent here are classified with the defaults.
	Matches       []models.Match                     `json:"matches,omitempty"`
	Probabilities map[string]models.MatchProbability `json:"probabilities"`
	Iterations    int                                `json:"iterations"`
	Seed          int64                              `json:"seed,omitempty"`
	TargetScore   int                                `json:"target_score"`
}

// run carries the resolved simulation parameters shared by every scenario of
// one invocation.
type run struct {
	cfg           simulator.Config
	targetScore   int
	defaultTarget int
	cacheable     bool
}

func (e *Engine) resolveRun(iterations int, seed int64, targetScore int) (run, error) {
	if iterations < 0 {
		return run{}, models.ValidationError("", "iterations must not be negative, got %d", iterations)
	}
	if targetScore < 0 {
		return run{}, models.ValidationError("", "target score must not be negative, got %d", targetScore)
	}

	cfg := e.simulation
	if iterations > 0 {
		cfg.Iterations = iterations
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	r := run{cfg: cfg, targetScore: targetScore, defaultTarget: e.targetScore, cacheable: cfg.Seed != 0}
	if cfg.Seed == 0 {
		// One clock seed for the whole invocation so scenarios stay comparable.
		r.cfg.Seed = time.Now().UnixNano()
	}
	return r, nil
}

// target returns the requested score, or the engine default capped at the
// scenario size.
func (r run) target(picks int) int {
	if r.targetScore > 0 {
		return r.targetScore
	}
	if r.defaultTarget < picks {
		return r.defaultTarget
	}
	return picks
}

func validateProbabilities(probs map[string]models.MatchProbability) error {
	for id, p := range probs {
		if p.MatchID != id {
			return models.ValidationError(id, "probability keyed under %q belongs to match %q", id, p.MatchID)
		}
		if err := normalizer.ValidateProbability(p); err != nil {
			return err
		}
	}
	return nil
}

// scope returns the matches the request restricts itself to: the union of the
// safe and unsafe lists, or every match when both are empty.
func scope(req Request) ([]models.Match, error) {
	if len(req.SafeMatches) == 0 && len(req.UnsafeMatches) == 0 {
		return req.Matches, nil
	}

	byID := make(map[string]models.Match, len(req.Matches))
	for _, m := range req.Matches {
		byID[m.ID] = m
	}

	seen := make(map[string]bool)
	var out []models.Match
	for _, id := range append(append([]string{}, req.SafeMatches...), req.UnsafeMatches...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, ok := byID[id]
		if !ok {
			return nil, models.ValidationError(id, "match is not part of the request")
		}
		out = append(out, m)
	}
	return out, nil
}

// Optimize runs the full pipeline. Input errors are reported before any
// scenario work begins.
func (e *Engine) Optimize(ctx context.Context, req Request) (*models.OptimizationResult, error) {
	start := time.Now()

	if err := validateProbabilities(req.Probabilities); err != nil {
		return nil, err
	}
	constraints := e.constraints
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	r, err := e.resolveRun(req.Iterations, req.Seed, req.TargetScore)
	if err != nil {
		return nil, err
	}

	matches, err := scope(req)
	if err != nil {
		return nil, err
	}
	classified, err := classifier.ClassifyAll(matches, req.Probabilities)
	if err != nil {
		return nil, err
	}
	e.logClassification(classified)

	genStart := time.Now()
	scenarios, err := generator.Generate(ctx, classified, constraints)
	if err != nil {
		return nil, err
	}
	genElapsed := time.Since(genStart)
	metrics.RecordScenarioGeneration(genElapsed.Seconds())
	e.log.LogScenariosGenerated(len(scenarios), constraints.TotalPicks, float64(genElapsed.Microseconds())/1000)

	byID := make(map[string]models.ClassifiedMatch, len(classified))
	for _, c := range classified {
		byID[c.Match.ID] = c
	}
	return e.simulateAndRank(ctx, scenarios, byID, r, start)
}

// Resimulate re-runs simulation and ranking for previously generated
// scenarios. Pick confidences are refreshed from the supplied probabilities;
// scenarios are never regenerated.
func (e *Engine) Resimulate(ctx context.Context, req ResimulateRequest) (*models.OptimizationResult, error) {
	start := time.Now()

	if len(req.Scenarios) == 0 {
		return nil, models.ValidationError("", "no scenarios to re-simulate")
	}
	if err := validateProbabilities(req.Probabilities); err != nil {
		return nil, err
	}
	r, err := e.resolveRun(req.Iterations, req.Seed, req.TargetScore)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]models.Match, len(req.Matches))
	for _, m := range req.Matches {
		metadata[m.ID] = m
	}

	byID := make(map[string]models.ClassifiedMatch)
	scenarios := make([]models.Scenario, 0, len(req.Scenarios))
	for _, s := range req.Scenarios {
		if len(s.Picks) == 0 {
			return nil, models.ValidationError("", "scenario %s has no picks", s.Strategy)
		}
		picked := make(map[string]bool, len(s.Picks))
		picks := make([]models.Pick, len(s.Picks))
		for i, p := range s.Picks {
			if picked[p.MatchID] {
				return nil, models.ValidationError(p.MatchID, "scenario %s picks the match twice", s.Strategy)
			}
			picked[p.MatchID] = true

			prob, ok := req.Probabilities[p.MatchID]
			if !ok {
				return nil, models.MissingConsensusError(p.MatchID, "canonical")
			}
			p.Confidence = prob.ProbabilityOf(p.Side)
			picks[i] = p

			if _, done := byID[p.MatchID]; !done {
				m, ok := metadata[p.MatchID]
				if !ok {
					m = models.Match{ID: p.MatchID}
				}
				byID[p.MatchID] = models.ClassifiedMatch{Match: m, Probability: prob, Classification: classifier.Resolve(m, prob)}
			}
		}
		scenarios = append(scenarios, models.Scenario{ID: s.ID, Strategy: s.Strategy, Picks: picks})
	}

	return e.simulateAndRank(ctx, scenarios, byID, r, start)
}

func (e *Engine) simulateAndRank(ctx context.Context, scenarios []models.Scenario, matches map[string]models.ClassifiedMatch, r run, start time.Time) (*models.OptimizationResult, error) {
	simulated := make([]models.Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		result, err := e.simulate(ctx, s, r)
		if err != nil {
			return nil, err
		}
		s = ranker.Attach(s, result)
		analysis := ranker.Analyze(s, matches)
		s.RiskAnalysis = &analysis

		tolerance := ranker.DefaultConvergenceTolerance * math.Sqrt(float64(simulator.DefaultIterations)/float64(result.Iterations))
		if err := ranker.CheckConvergence(s, tolerance); err != nil {
			e.log.LogConvergenceWarning(string(s.Strategy), err)
		}
		simulated = append(simulated, s)
	}

	ranked := ranker.Rank(simulated)
	top := ranked[0]
	elapsed := time.Since(start).Milliseconds()

	metrics.UpdateTopScenario(top.Stats.ExpectedPoints)
	e.log.LogRanking(string(top.Strategy), top.Stats.ExpectedPoints, top.Stats.RiskLevel, elapsed)

	return &models.OptimizationResult{
		Scenarios:       ranked,
		Simulation:      *top.Simulation,
		ExecutionTimeMs: elapsed,
	}, nil
}

func (e *Engine) simulate(ctx context.Context, s models.Scenario, r run) (models.SimulationResult, error) {
	start := time.Now()
	target := r.target(len(s.Picks))

	var key string
	if r.cacheable && e.cache != nil {
		key = cache.Key(s.Picks, r.cfg.Iterations, r.cfg.Seed, r.cfg.BatchSize, target)
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.log.LogSimulation(string(s.Strategy), cached.Iterations, cached.Seed, cached.Stats.Mean, cached.WinProbability, true, 0)
			return *cached, nil
		}
	}

	result, err := simulator.Run(ctx, s.Picks, target, r.cfg)
	if err != nil {
		return models.SimulationResult{}, err
	}
	elapsed := time.Since(start)
	metrics.RecordSimulation(string(s.Strategy), result.Iterations, elapsed.Seconds())
	e.log.LogSimulation(string(s.Strategy), result.Iterations, result.Seed, result.Stats.Mean, result.WinProbability, false, float64(elapsed.Microseconds())/1000)

	if key != "" {
		if err := e.cache.Set(ctx, key, &result); err != nil {
			e.log.WithError(err).Warn("Failed to cache simulation result")
		}
	}
	return result, nil
}

func (e *Engine) logClassification(classified []models.ClassifiedMatch) {
	counts := make(map[models.RiskLabel]int)
	overridden := 0
	for _, c := range classified {
		counts[c.Classification.Label]++
		if c.Classification.IsOverridden() {
			overridden++
		}
	}
	e.log.LogClassification(counts[models.RiskSafe], counts[models.RiskRisky], counts[models.RiskUnsafe], overridden)
}
