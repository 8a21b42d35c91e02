// Package scheduler dispatches pending optimization jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pickem-optimizer/internal/logger"
	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

const minPollInterval = time.Second

// Dispatcher lists pending jobs and starts them in the background.
type Dispatcher interface {
	ListPending(ctx context.Context, limit int) ([]*models.OptimizationJob, error)
	Start(ctx context.Context, id uuid.UUID) error
	Available() int
}

// Scheduler polls for pending jobs and hands them to the dispatcher
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	entryID    cron.EntryID
	scheduled  bool
	// jobCtx is the parent of every dispatched job; cancelled by Stop.
	jobCtx    context.Context
	cancelJob context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(dispatcher Dispatcher, log *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		dispatcher: dispatcher,
		logger:     logger.OrDiscard(log).WithField("component", "scheduler"),
		jobCtx:     ctx,
		cancelJob:  cancel,
	}
}

// SchedulePendingDispatch polls for pending jobs every interval.
func (s *Scheduler) SchedulePendingDispatch(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if s.scheduled {
		return fmt.Errorf("pending dispatch already scheduled")
	}
	if interval < minPollInterval {
		interval = minPollInterval
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() { s.DispatchPending() })
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.entryID = entryID
	s.scheduled = true
	s.logger.WithField("interval", interval.String()).Info("Scheduled pending job dispatch")
	return nil
}

// DispatchPending starts as many pending jobs as the dispatcher has room for
// and returns how many were started.
func (s *Scheduler) DispatchPending() int {
	available := s.dispatcher.Available()
	if available <= 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(s.jobCtx, 10*time.Second)
	jobs, err := s.dispatcher.ListPending(ctx, available)
	cancel()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list pending jobs")
		return 0
	}

	started := 0
	for _, job := range jobs {
		err := s.dispatcher.Start(s.jobCtx, job.ID)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			s.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to start job")
			break
		}
		metrics.RecordSchedulerDispatch()
		started++
	}

	if started > 0 {
		s.logger.WithField("started", started).Info("Dispatched pending jobs")
	}
	return started
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if !s.scheduled {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops polling, waits for an in-flight poll, and cancels dispatched
// jobs. Callers wait for the jobs themselves through the dispatcher.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cancelJob()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next poll, or zero when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
