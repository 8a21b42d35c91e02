package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/pickem-optimizer/internal/database"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

// PostgresMatchRepository implements MatchRepository for PostgreSQL
type PostgresMatchRepository struct {
	db *database.DB
}

// NewPostgresMatchRepository creates a new match repository
func NewPostgresMatchRepository(db *database.DB) MatchRepository {
	return &PostgresMatchRepository{db: db}
}

// GetByIDs retrieves matches in the requested order
func (r *PostgresMatchRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Match, error) {
	query := `
		SELECT id, team_a, team_b, stage, confidence_threshold, advancement, is_safe_override
		FROM matches
		WHERE id = ANY($1)
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Match, len(ids))
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.TeamA, &m.TeamB, &m.Stage, &m.ConfidenceThreshold, &m.Advancement, &m.Override); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// ActiveOdds retrieves every active odds observation for the given matches
func (r *PostgresMatchRepository) ActiveOdds(ctx context.Context, matchIDs []string) ([]models.OddsObservation, error) {
	query := `
		SELECT match_id, source, team_a_win_prob, team_b_win_prob, timestamp, is_active
		FROM match_odds
		WHERE match_id = ANY($1) AND is_active
		ORDER BY match_id, source, timestamp DESC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, matchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds: %w", err)
	}
	defer rows.Close()

	observations, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.OddsObservation])
	if err != nil {
		return nil, fmt.Errorf("failed to scan odds: %w", err)
	}
	return observations, nil
}

// InsertOdds stores a batch of observations
func (r *PostgresMatchRepository) InsertOdds(ctx context.Context, observations []models.OddsObservation) error {
	if len(observations) == 0 {
		return nil
	}

	rows := make([][]any, len(observations))
	for i, o := range observations {
		rows[i] = []any{o.MatchID, o.Source, o.TeamAWinProb, o.TeamBWinProb, o.Timestamp, o.IsActive}
	}

	_, err := r.db.Querier(ctx).CopyFrom(ctx,
		pgx.Identifier{"match_odds"},
		[]string{"match_id", "source", "team_a_win_prob", "team_b_win_prob", "timestamp", "is_active"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert odds: %w", err)
	}
	return nil
}

// SetOverride updates the manual safe flag and records the change
func (r *PostgresMatchRepository) SetOverride(ctx context.Context, matchID string, isSafe *bool, changedBy string) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		q := r.db.Querier(txCtx)

		tag, err := q.Exec(txCtx, `UPDATE matches SET is_safe_override = $2, updated_at = NOW() WHERE id = $1`, matchID, isSafe)
		if err != nil {
			return fmt.Errorf("failed to set override: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("match %s: %w", matchID, models.ErrNotFound)
		}

		_, err = q.Exec(txCtx, `INSERT INTO match_override_history (match_id, is_safe, changed_by) VALUES ($1, $2, $3)`, matchID, isSafe, changedBy)
		if err != nil {
			return fmt.Errorf("failed to record override history: %w", err)
		}
		return nil
	})
}

// ResetOverride clears a set override and records the reset in the history.
// A match without an override is left untouched.
func (r *PostgresMatchRepository) ResetOverride(ctx context.Context, matchID string, changedBy string) (bool, error) {
	cleared := false
	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		q := r.db.Querier(txCtx)

		tag, err := q.Exec(txCtx, `
			UPDATE matches SET is_safe_override = NULL, updated_at = NOW()
			WHERE id = $1 AND is_safe_override IS NOT NULL
		`, matchID)
		if err != nil {
			return fmt.Errorf("failed to reset override: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		_, err = q.Exec(txCtx, `INSERT INTO match_override_history (match_id, is_safe, changed_by) VALUES ($1, NULL, $2)`, matchID, changedBy)
		if err != nil {
			return fmt.Errorf("failed to record override history: %w", err)
		}
		cleared = true
		return nil
	})
	return cleared, err
}
