package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/pickem-optimizer/internal/models"
)

// JobRepository defines the interface for optimization job persistence
type JobRepository interface {
	Create(ctx context.Context, job *models.OptimizationJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OptimizationJob, error)
	// Update persists job only if the stored status still equals expected,
	// returning models.ErrConflict otherwise.
	Update(ctx context.Context, job *models.OptimizationJob, expected models.JobStatus) error
	// ListByUser returns the user's jobs, newest first. An empty status matches any.
	ListByUser(ctx context.Context, userID string, status models.JobStatus, limit int) ([]*models.OptimizationJob, error)
	ListPending(ctx context.Context, limit int) ([]*models.OptimizationJob, error)
}

// MatchRepository defines the interface for match metadata and odds access
type MatchRepository interface {
	// GetByIDs returns the matches in the order requested. Unknown IDs yield
	// models.ErrNotFound.
	GetByIDs(ctx context.Context, ids []string) ([]models.Match, error)
	ActiveOdds(ctx context.Context, matchIDs []string) ([]models.OddsObservation, error)
	InsertOdds(ctx context.Context, observations []models.OddsObservation) error
	// SetOverride sets or, with nil, clears the manual safe flag.
	SetOverride(ctx context.Context, matchID string, isSafe *bool, changedBy string) error
	// ResetOverride clears the manual safe flag if one is set and reports
	// whether it did.
	ResetOverride(ctx context.Context, matchID string, changedBy string) (bool, error)
}
