package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/pickem-optimizer/internal/database"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

const (
	jobColumns = `id, user_id, status, safe_picks, unsafe_picks, constraints, target_score,
		result, error_message, error_kind, execution_time_ms, created_at, started_at, completed_at`
	errScanJob = "failed to scan job: %w"
)

// PostgresJobRepository implements JobRepository for PostgreSQL
type PostgresJobRepository struct {
	db *database.DB
}

// NewPostgresJobRepository creates a new job repository
func NewPostgresJobRepository(db *database.DB) JobRepository {
	return &PostgresJobRepository{db: db}
}

// Create inserts a new job
func (r *PostgresJobRepository) Create(ctx context.Context, job *models.OptimizationJob) error {
	query := `
		INSERT INTO optimization_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		job.ID, job.UserID, job.Status, job.SafePicks, job.UnsafePicks, job.Constraints, job.TargetScore,
		job.Result, job.ErrorMessage, job.ErrorKind, job.ExecutionTimeMs, job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID
func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OptimizationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM optimization_jobs WHERE id = $1`

	job, err := scanJob(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Update writes the mutable job fields when the stored status matches expected
func (r *PostgresJobRepository) Update(ctx context.Context, job *models.OptimizationJob, expected models.JobStatus) error {
	query := `
		UPDATE optimization_jobs
		SET status = $2, result = $3, error_message = $4, error_kind = $5,
		    execution_time_ms = $6, started_at = $7, completed_at = $8
		WHERE id = $1 AND status = $9
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		job.ID, job.Status, job.Result, job.ErrorMessage, job.ErrorKind,
		job.ExecutionTimeMs, job.StartedAt, job.CompletedAt, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is no longer %s: %w", job.ID, expected, models.ErrConflict)
	}
	return nil
}

// ListByUser retrieves a user's jobs, newest first
func (r *PostgresJobRepository) ListByUser(ctx context.Context, userID string, status models.JobStatus, limit int) ([]*models.OptimizationJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM optimization_jobs
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return r.list(ctx, query, userID, string(status), limit)
}

// ListPending retrieves the oldest pending jobs
func (r *PostgresJobRepository) ListPending(ctx context.Context, limit int) ([]*models.OptimizationJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM optimization_jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *PostgresJobRepository) list(ctx context.Context, query string, args ...any) ([]*models.OptimizationJob, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.OptimizationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanJob, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*models.OptimizationJob, error) {
	job := &models.OptimizationJob{}
	err := row.Scan(
		&job.ID, &job.UserID, &job.Status, &job.SafePicks, &job.UnsafePicks, &job.Constraints, &job.TargetScore,
		&job.Result, &job.ErrorMessage, &job.ErrorKind, &job.ExecutionTimeMs, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
