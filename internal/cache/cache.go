// Package cache stores simulation results keyed by everything that determines
// them, so a repeated seeded run can skip the Monte Carlo work.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

// SimulationCache is the lookup the engine consults before simulating.
type SimulationCache interface {
	Get(ctx context.Context, key string) (*models.SimulationResult, bool)
	Set(ctx context.Context, key string, result *models.SimulationResult) error
}

// Key hashes the inputs a seeded simulation is a pure function of. Pick order
// is part of the key because it fixes the order of random draws.
func Key(picks []models.Pick, iterations int, seed int64, batchSize, targetScore int) string {
	h := sha256.New()
	fmt.Fprintf(h, "n=%d;seed=%d;batch=%d;target=%d", iterations, seed, batchSize, targetScore)
	for _, p := range picks {
		fmt.Fprintf(h, ";%s|%s|%s", p.MatchID, p.Side, strconv.FormatFloat(p.Confidence, 'g', -1, 64))
	}
	return hex.EncodeToString(h.Sum(nil))
}
