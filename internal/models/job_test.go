package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleCompleted(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	job := NewOptimizationJob("user-1", []string{"m1"}, []string{"m2"}, DefaultConstraints(), 5, now)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, []string{"m1", "m2"}, job.MatchIDs())

	require.NoError(t, job.Start(now.Add(time.Second)))
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	result := &OptimizationResult{Scenarios: []Scenario{{Strategy: StrategyConservative}}}
	require.NoError(t, job.Complete(result, now.Add(3*time.Second)))
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.ExecutionTimeMs)
	assert.Equal(t, int64(2000), *job.ExecutionTimeMs)

	top, ok := job.Result.Recommended()
	require.True(t, ok)
	assert.Equal(t, StrategyConservative, top.Strategy)
}

func TestJobTransitionsAreOneDirectional(t *testing.T) {
	now := time.Now()
	job := NewOptimizationJob("user-1", nil, nil, DefaultConstraints(), 5, now)

	assert.Error(t, job.Complete(&OptimizationResult{}, now), "pending cannot complete")
	require.NoError(t, job.Start(now))
	assert.Error(t, job.Start(now), "running cannot restart")
	require.NoError(t, job.Fail(ConstraintViolation("not enough matches"), now))
	assert.Equal(t, "constraint_violation", job.ErrorKind)
	assert.Error(t, job.Complete(&OptimizationResult{}, now), "failed is terminal")
	assert.True(t, job.Status.IsTerminal())
}

func TestJobRejectedBeforeRunning(t *testing.T) {
	job := NewOptimizationJob("user-1", nil, nil, DefaultConstraints(), 5, time.Now())
	require.NoError(t, job.Fail(ValidationError("m1", "bad"), time.Now()))
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Nil(t, job.ExecutionTimeMs)
}

func TestJobCancel(t *testing.T) {
	job := NewOptimizationJob("user-1", nil, nil, DefaultConstraints(), 5, time.Now())
	assert.Error(t, job.Cancel(context.Canceled, time.Now()))
	require.NoError(t, job.Start(time.Now()))
	require.NoError(t, job.Cancel(context.Canceled, time.Now()))
	assert.Equal(t, JobStatusCancelled, job.Status)
	assert.Equal(t, "cancelled", job.ErrorKind)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		want string
	}{
		{"validation", ValidationError("m1", "sum %.2f", 1.2), ErrValidation, "validation"},
		{"missing consensus", MissingConsensusError("m2", "consensus"), ErrMissingConsensus, "missing_consensus"},
		{"constraint", ConstraintViolation("x"), ErrConstraintViolation, "constraint_violation"},
		{"cancelled", Cancelled(context.Canceled), ErrCancelled, "cancelled"},
		{"invariant", InternalInvariantError("dup"), ErrInternalInvariant, "internal_invariant"},
		{"other", errors.New("boom"), nil, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.kind != nil {
				assert.ErrorIs(t, tt.err, tt.kind)
				wrapped := errors.Join(errors.New("context"), tt.err)
				assert.ErrorIs(t, wrapped, tt.kind)
			}
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}

	assert.ErrorIs(t, Cancelled(context.Canceled), context.Canceled)
	assert.Contains(t, MissingConsensusError("m2", "consensus").Error(), "match m2")
	assert.True(t, IsUserError(ConstraintViolation("x")))
	assert.False(t, IsUserError(Cancelled(nil)))
}

func TestConstraintsValidate(t *testing.T) {
	assert.NoError(t, DefaultConstraints().Validate())
	assert.ErrorIs(t, Constraints{TotalPicks: 0}.Validate(), ErrConstraintViolation)
	assert.ErrorIs(t, Constraints{TotalPicks: 3, AdvancePicks: 4}.Validate(), ErrConstraintViolation)
	assert.ErrorIs(t, Constraints{TotalPicks: 3, MaxZeroThree: -1}.Validate(), ErrConstraintViolation)
}
