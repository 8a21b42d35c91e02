// Package simulator runs seeded Monte Carlo trials over a scenario's picks.
package simulator

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

// Defaults applied when a Config field is left at zero.
const (
	DefaultIterations = 10000
	DefaultBatchSize  = 1000
)

// Config configures a Monte Carlo run
type Config struct {
	Iterations int   `mapstructure:"iterations" validate:"gte=0"`
	BatchSize  int   `mapstructure:"batch_size" validate:"gte=0"`
	Workers    int   `mapstructure:"workers" validate:"gte=0"`
	Seed       int64 `mapstructure:"seed"`
}

// DefaultConfig returns a config with every default filled in and a zero seed.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills zero fields. A zero seed is left alone; Run replaces it.
func (c Config) WithDefaults() Config {
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// Run simulates cfg.Iterations trials of picks. Each pick succeeds
// independently with probability equal to its confidence; a trial scores the
// number of successes.
//
// Trials are split into fixed-size batches and batch b draws from its own
// generator seeded by subSeed(seed, b), so the histogram depends only on
// (picks, iterations, seed, batch size) and never on Workers or scheduling.
// The context is checked before each batch; a cancelled run returns a
// Cancelled error and no partial result.
func Run(ctx context.Context, picks []models.Pick, targetScore int, cfg Config) (models.SimulationResult, error) {
	cfg = cfg.WithDefaults()
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	confidences := make([]float64, len(picks))
	for i, p := range picks {
		if p.Confidence < 0 || p.Confidence > 1 {
			return models.SimulationResult{}, models.ValidationError(p.MatchID, "pick confidence %f outside [0,1]", p.Confidence)
		}
		confidences[i] = p.Confidence
	}

	batches := (cfg.Iterations + cfg.BatchSize - 1) / cfg.BatchSize
	histograms := make([][]int64, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for b := 0; b < batches; b++ {
		if gctx.Err() != nil {
			break
		}
		size := cfg.BatchSize
		if rem := cfg.Iterations - b*cfg.BatchSize; rem < size {
			size = rem
		}
		b := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return models.Cancelled(err)
			}
			histograms[b] = runBatch(confidences, size, subSeed(cfg.Seed, b))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.SimulationResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.SimulationResult{}, models.Cancelled(err)
	}

	histogram := make([]int64, len(picks)+1)
	for _, h := range histograms {
		for score, count := range h {
			histogram[score] += count
		}
	}

	result := models.SimulationResult{
		Iterations:  cfg.Iterations,
		Seed:        cfg.Seed,
		TargetScore: targetScore,
		Histogram:   histogram,
		Stats:       Statistics(histogram),
	}
	result.WinProbability = result.ProbabilityAtLeast(targetScore)
	return result, nil
}

func runBatch(confidences []float64, trials int, seed int64) []int64 {
	rng := rand.New(rand.NewSource(seed))
	histogram := make([]int64, len(confidences)+1)
	for i := 0; i < trials; i++ {
		score := 0
		for _, p := range confidences {
			if rng.Float64() < p {
				score++
			}
		}
		histogram[score]++
	}
	return histogram
}

// subSeed derives the seed of batch b with a splitmix64 step over the
// top-level seed and the batch index.
func subSeed(seed int64, batch int) int64 {
	z := uint64(seed) + uint64(batch+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// Statistics summarises a score histogram: weighted mean, population standard
// deviation, empirical median and the 2.5th/97.5th percentile interval.
func Statistics(histogram []int64) models.SimulationStats {
	scores := make([]float64, len(histogram))
	weights := make([]float64, len(histogram))
	var total float64
	for score, count := range histogram {
		scores[score] = float64(score)
		weights[score] = float64(count)
		total += float64(count)
	}
	if total == 0 {
		return models.SimulationStats{}
	}

	mean, std := stat.PopMeanStdDev(scores, weights)
	return models.SimulationStats{
		Mean:              mean,
		Median:            stat.Quantile(0.5, stat.Empirical, scores, weights),
		StandardDeviation: std,
		ConfidenceInterval: [2]float64{
			stat.Quantile(0.025, stat.Empirical, scores, weights),
			stat.Quantile(0.975, stat.Empirical, scores, weights),
		},
	}
}
