// Package orchestrator runs optimizations as persisted jobs or synchronous
// quick requests.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pickem-optimizer/internal/engine"
	"github.com/yourusername/pickem-optimizer/internal/logger"
	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/models"
	"github.com/yourusername/pickem-optimizer/internal/normalizer"
	"github.com/yourusername/pickem-optimizer/internal/repository"
)

const (
	modeJob        = "job"
	modeQuick      = "quick"
	modeResimulate = "resimulate"

	maxRunningProgress = 95.0

	// overrideResetBy is recorded when fresh odds clear a manual override.
	overrideResetBy = "renormalize"
)

var (
	// ErrJobNotCompleted is returned by Result for jobs without a result.
	ErrJobNotCompleted = errors.New("job has not completed")
	// ErrJobNotRunning is returned by Cancel for jobs this service is not running.
	ErrJobNotRunning = errors.New("job is not running")
	// ErrAtCapacity is returned by Start when MaxConcurrent jobs are running.
	ErrAtCapacity = errors.New("job service at capacity")
)

// Options configures a JobService.
type Options struct {
	Timeout             time.Duration
	EstimatedDuration   time.Duration
	MaxConcurrent       int
	DefaultListLimit    int
	ConfidenceThreshold float64
	Logger              *logrus.Logger
	Now                 func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.EstimatedDuration <= 0 {
		o.EstimatedDuration = 30 * time.Second
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 1
	}
	if o.DefaultListLimit <= 0 {
		o.DefaultListLimit = 20
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Logger = logger.OrDiscard(o.Logger)
	return o
}

// JobRequest is the input of a job-mode optimization. Probabilities are
// loaded from the match repository when the job runs.
type JobRequest struct {
	UserID        string              `json:"user_id"`
	SafeMatches   []string            `json:"safe_matches"`
	UnsafeMatches []string            `json:"unsafe_matches"`
	Constraints   *models.Constraints `json:"constraints,omitempty"`
	TargetScore   int                 `json:"target_score"`
}

// JobStatusView is a job plus its estimated progress.
type JobStatusView struct {
	Job                *models.OptimizationJob `json:"job"`
	ProgressPercentage float64                 `json:"progress_percentage"`
}

// JobService coordinates job persistence with the optimization engine.
type JobService struct {
	jobs       repository.JobRepository
	matches    repository.MatchRepository
	engine     *engine.Engine
	normalizer *normalizer.Normalizer
	audit      *logger.AuditLogger
	logger     *logrus.Logger
	opts       Options

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

// NewJobService creates a job service.
func NewJobService(
	jobs repository.JobRepository,
	matches repository.MatchRepository,
	eng *engine.Engine,
	norm *normalizer.Normalizer,
	opts Options,
) *JobService {
	opts = opts.withDefaults()
	return &JobService{
		jobs:       jobs,
		matches:    matches,
		engine:     eng,
		normalizer: norm,
		audit:      logger.NewAuditLogger(opts.Logger),
		logger:     opts.Logger,
		opts:       opts,
		running:    make(map[uuid.UUID]context.CancelFunc),
	}
}

// Submit validates a request and persists it as a pending job. Requests whose
// constraints cannot be met are persisted as failed and returned together
// with the error, so the caller still gets a job ID to report.
func (s *JobService) Submit(ctx context.Context, req JobRequest) (*models.OptimizationJob, error) {
	if req.UserID == "" {
		return nil, models.ValidationError("", "user_id is required")
	}
	if len(req.SafeMatches)+len(req.UnsafeMatches) == 0 {
		return nil, models.ValidationError("", "at least one match is required")
	}
	if req.TargetScore < 0 {
		return nil, models.ValidationError("", "target score must not be negative, got %d", req.TargetScore)
	}
	if id, dup := firstDuplicate(req.SafeMatches, req.UnsafeMatches); dup {
		return nil, models.ValidationError(id, "match listed more than once")
	}

	constraints := s.engine.Constraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	now := s.opts.Now()
	job := models.NewOptimizationJob(req.UserID, req.SafeMatches, req.UnsafeMatches, constraints, req.TargetScore, now)

	if err := checkFeasible(constraints, len(job.MatchIDs())); err != nil {
		if failErr := job.Fail(err, now); failErr != nil {
			return nil, failErr
		}
		if createErr := s.jobs.Create(ctx, job); createErr != nil {
			return nil, fmt.Errorf("failed to persist rejected job: %w", createErr)
		}
		s.audit.LogJobFailure(job.ID.String(), job.UserID, job.ErrorKind, job.ErrorMessage)
		metrics.RecordJobTransition(string(models.JobStatusFailed))
		return job, err
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	s.audit.LogJobStateChange(job.ID.String(), job.UserID, "", string(models.JobStatusPending), now)
	metrics.RecordJobTransition(string(models.JobStatusPending))
	return job, nil
}

func checkFeasible(constraints models.Constraints, matchCount int) error {
	if err := constraints.Validate(); err != nil {
		return err
	}
	if matchCount < constraints.TotalPicks {
		return models.ConstraintViolation("need %d matches, job lists %d", constraints.TotalPicks, matchCount)
	}
	return nil
}

func firstDuplicate(lists ...[]string) (string, bool) {
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, id := range list {
			if seen[id] {
				return id, true
			}
			seen[id] = true
		}
	}
	return "", false
}

// Run executes a pending job to completion on the calling goroutine. The job
// ends completed, failed, or cancelled; the returned error is the run's
// failure, if any. Runs are bounded by the configured timeout.
func (s *JobService) Run(ctx context.Context, id uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	startedAt := s.opts.Now()
	if err := job.Start(startedAt); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrConflict)
	}
	if err := s.jobs.Update(ctx, job, models.JobStatusPending); err != nil {
		return err
	}
	s.audit.LogJobStateChange(job.ID.String(), job.UserID, string(models.JobStatusPending), string(models.JobStatusRunning), startedAt)
	metrics.RecordJobTransition(string(models.JobStatusRunning))
	metrics.UpdateRunningJobs(1)
	defer metrics.UpdateRunningJobs(-1)

	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	result, runErr := s.execute(runCtx, job)
	return s.finish(context.WithoutCancel(ctx), job, result, runErr, runCtx.Err())
}

func (s *JobService) execute(ctx context.Context, job *models.OptimizationJob) (*models.OptimizationResult, error) {
	ids := job.MatchIDs()

	matches, err := s.matches.GetByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ValidationError("", "%v", err)
		}
		return nil, err
	}
	observations, err := s.matches.ActiveOdds(ctx, ids)
	if err != nil {
		return nil, err
	}
	probabilities, err := s.normalizer.NormalizeFor(ids, observations)
	if err != nil {
		return nil, err
	}

	constraints := job.Constraints
	return s.engine.Optimize(ctx, engine.Request{
		UserID:        job.UserID,
		SafeMatches:   job.SafePicks,
		UnsafeMatches: job.UnsafePicks,
		Matches:       s.withThreshold(matches),
		Probabilities: probabilities,
		Constraints:   &constraints,
		TargetScore:   job.TargetScore,
	})
}

// finish records the outcome. ctxErr is the run context's error, used to tell
// a timeout from an explicit cancel.
func (s *JobService) finish(ctx context.Context, job *models.OptimizationJob, result *models.OptimizationResult, runErr, ctxErr error) error {
	now := s.opts.Now()

	var transitionErr error
	switch {
	case runErr == nil:
		transitionErr = job.Complete(result, now)
	case errors.Is(ctxErr, context.DeadlineExceeded):
		runErr = models.Cancelled(fmt.Errorf("job timed out after %s: %w", s.opts.Timeout, ctxErr))
		transitionErr = job.Fail(runErr, now)
	case errors.Is(runErr, models.ErrCancelled) || errors.Is(ctxErr, context.Canceled):
		if !errors.Is(runErr, models.ErrCancelled) {
			runErr = models.Cancelled(runErr)
		}
		transitionErr = job.Cancel(runErr, now)
	default:
		transitionErr = job.Fail(runErr, now)
	}
	if transitionErr != nil {
		return transitionErr
	}

	if err := s.jobs.Update(ctx, job, models.JobStatusRunning); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to persist job outcome")
		return err
	}

	s.audit.LogJobStateChange(job.ID.String(), job.UserID, string(models.JobStatusRunning), string(job.Status), now)
	if job.Status != models.JobStatusCompleted {
		s.audit.LogJobFailure(job.ID.String(), job.UserID, job.ErrorKind, job.ErrorMessage)
	}
	metrics.RecordJobTransition(string(job.Status))
	metrics.RecordOptimization(modeJob, string(job.Status), job.Elapsed(now).Seconds())
	return runErr
}

// Start runs a job in the background. The job can be stopped with Cancel;
// Wait blocks until every started job has finished.
func (s *JobService) Start(ctx context.Context, id uuid.UUID) error {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if _, ok := s.running[id]; ok {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("job %s already started: %w", id, models.ErrConflict)
	}
	if len(s.running) >= s.opts.MaxConcurrent {
		s.mu.Unlock()
		cancel()
		return ErrAtCapacity
	}
	s.running[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, id)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.Run(runCtx, id); err != nil {
			entry := s.logger.WithError(err).WithField("job_id", id)
			if models.IsUserError(err) || errors.Is(err, models.ErrCancelled) {
				entry.Info("Job did not complete")
			} else {
				entry.Error("Job failed")
			}
		}
	}()
	return nil
}

// Cancel stops a job started by this service.
func (s *JobService) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrJobNotRunning)
	}
	cancel()
	return nil
}

// Available returns how many more jobs Start will accept.
func (s *JobService) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.MaxConcurrent - len(s.running)
}

// Wait blocks until all started jobs have finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

// Quick runs an optimization synchronously without persisting a job.
func (s *JobService) Quick(ctx context.Context, req engine.Request) (*models.OptimizationResult, error) {
	start := s.opts.Now()
	req.Matches = s.withThreshold(req.Matches)

	result, err := s.engine.Optimize(ctx, req)
	metrics.RecordOptimization(modeQuick, outcome(err), s.opts.Now().Sub(start).Seconds())
	return result, err
}

// Resimulate re-runs simulation and ranking for existing scenarios.
func (s *JobService) Resimulate(ctx context.Context, req engine.ResimulateRequest) (*models.OptimizationResult, error) {
	start := s.opts.Now()
	req.Matches = s.withThreshold(req.Matches)

	result, err := s.engine.Resimulate(ctx, req)
	metrics.RecordOptimization(modeResimulate, outcome(err), s.opts.Now().Sub(start).Seconds())
	return result, err
}

// Status returns a job with its progress estimate. Running jobs report
// elapsed over estimated duration, capped below completion.
func (s *JobService) Status(ctx context.Context, id uuid.UUID) (*JobStatusView, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobStatusView{Job: job, ProgressPercentage: s.progress(job)}, nil
}

func (s *JobService) progress(job *models.OptimizationJob) float64 {
	switch job.Status {
	case models.JobStatusCompleted:
		return 100
	case models.JobStatusRunning:
		pct := job.Elapsed(s.opts.Now()).Seconds() / s.opts.EstimatedDuration.Seconds() * 100
		if pct > maxRunningProgress {
			return maxRunningProgress
		}
		return pct
	default:
		return 0
	}
}

// ListByUser lists a user's jobs, newest first. A non-positive limit uses
// the configured default.
func (s *JobService) ListByUser(ctx context.Context, userID string, status models.JobStatus, limit int) ([]*models.OptimizationJob, error) {
	if limit <= 0 {
		limit = s.opts.DefaultListLimit
	}
	return s.jobs.ListByUser(ctx, userID, status, limit)
}

// ListPending returns pending jobs, oldest first.
func (s *JobService) ListPending(ctx context.Context, limit int) ([]*models.OptimizationJob, error) {
	return s.jobs.ListPending(ctx, limit)
}

// Result returns the stored result of a completed job.
func (s *JobService) Result(ctx context.Context, id uuid.UUID) (*models.OptimizationResult, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.Result == nil {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, ErrJobNotCompleted)
	}
	return job.Result, nil
}

// SetOverride sets or clears a match's manual safe flag.
func (s *JobService) SetOverride(ctx context.Context, matchID string, isSafe *bool, changedBy string) error {
	if err := s.matches.SetOverride(ctx, matchID, isSafe, changedBy); err != nil {
		return err
	}
	s.audit.LogClassificationOverride(matchID, isSafe, changedBy)
	return nil
}

// IngestQuotes converts bookmaker decimal odds into one observation per
// bookmaker plus a consensus observation, and stores them.
func (s *JobService) IngestQuotes(ctx context.Context, matchID string, quotes []normalizer.BookmakerQuote) (models.OddsObservation, error) {
	at := s.opts.Now()

	consensus, err := s.normalizer.ConsensusFromBookmakers(matchID, quotes, at)
	if err != nil {
		return models.OddsObservation{}, err
	}

	observations := make([]models.OddsObservation, 0, len(quotes)+1)
	for _, q := range quotes {
		pA, pB, err := normalizer.ImpliedFromDecimal(q.TeamADecimal, q.TeamBDecimal)
		if err != nil {
			return models.OddsObservation{}, models.ValidationError(matchID, "bookmaker %s: %v", q.Bookmaker, err)
		}
		s.logger.WithFields(logrus.Fields{
			"match_id":  matchID,
			"bookmaker": q.Bookmaker,
			"margin":    normalizer.Margin(q.TeamADecimal, q.TeamBDecimal).StringFixed(4),
		}).Debug("Normalized bookmaker quote")

		observations = append(observations, models.OddsObservation{
			MatchID:      matchID,
			Source:       q.Bookmaker,
			TeamAWinProb: pA,
			TeamBWinProb: pB,
			Timestamp:    at,
			IsActive:     true,
		})
	}
	observations = append(observations, consensus)

	if err := s.storeOdds(ctx, matchID, observations); err != nil {
		return models.OddsObservation{}, err
	}
	return consensus, nil
}

// IngestElo stores a rating-derived observation. It becomes the canonical
// probability only when the consensus source is normalizer.EloSource.
func (s *JobService) IngestElo(ctx context.Context, matchID string, ratingA, ratingB float64) (models.OddsObservation, error) {
	obs, err := normalizer.EloObservation(matchID, ratingA, ratingB, s.opts.Now())
	if err != nil {
		return models.OddsObservation{}, err
	}
	if err := s.storeOdds(ctx, matchID, []models.OddsObservation{obs}); err != nil {
		return models.OddsObservation{}, err
	}
	return obs, nil
}

// storeOdds inserts observations. When they carry a new canonical probability
// the match is re-normalized, which drops any manual override.
func (s *JobService) storeOdds(ctx context.Context, matchID string, observations []models.OddsObservation) error {
	if err := s.matches.InsertOdds(ctx, observations); err != nil {
		return err
	}

	renormalized := false
	for _, o := range observations {
		if o.Source == s.normalizer.ConsensusSource {
			renormalized = true
			break
		}
	}
	if !renormalized {
		return nil
	}

	cleared, err := s.matches.ResetOverride(ctx, matchID, overrideResetBy)
	if err != nil {
		return fmt.Errorf("odds stored but override reset failed: %w", err)
	}
	if cleared {
		s.audit.LogClassificationOverride(matchID, nil, overrideResetBy)
	}
	return nil
}

func (s *JobService) withThreshold(matches []models.Match) []models.Match {
	if s.opts.ConfidenceThreshold <= 0 {
		return matches
	}
	out := make([]models.Match, len(matches))
	for i, m := range matches {
		if m.ConfidenceThreshold <= 0 {
			m.ConfidenceThreshold = s.opts.ConfidenceThreshold
		}
		out[i] = m
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return string(models.JobStatusCompleted)
	case errors.Is(err, models.ErrCancelled):
		return string(models.JobStatusCancelled)
	default:
		return string(models.JobStatusFailed)
	}
}
