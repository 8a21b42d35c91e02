package models

// SimulationStats summarises the empirical score distribution.
type SimulationStats struct {
	Mean               float64    `json:"mean"`
	Median             float64    `json:"median"`
	StandardDeviation  float64    `json:"standard_deviation"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
}

// SimulationResult is the outcome of a Monte Carlo run over one scenario.
// Histogram[k] is the number of trials that scored exactly k.
type SimulationResult struct {
	Iterations     int             `json:"iterations"`
	Seed           int64           `json:"seed"`
	TargetScore    int             `json:"target_score"`
	Histogram      []int64         `json:"histogram"`
	Stats          SimulationStats `json:"statistics"`
	WinProbability float64         `json:"win_probability"`
}

// ProbabilityAtLeast returns the fraction of trials scoring k or more.
func (r SimulationResult) ProbabilityAtLeast(k int) float64 {
	if r.Iterations == 0 {
		return 0
	}
	if k < 0 {
		k = 0
	}
	var hits int64
	for score := k; score < len(r.Histogram); score++ {
		hits += r.Histogram[score]
	}
	return float64(hits) / float64(r.Iterations)
}

// Distribution returns the histogram normalised to probabilities.
func (r SimulationResult) Distribution() []float64 {
	dist := make([]float64, len(r.Histogram))
	if r.Iterations == 0 {
		return dist
	}
	for i, c := range r.Histogram {
		dist[i] = float64(c) / float64(r.Iterations)
	}
	return dist
}
