package scheduler

import (
	"context"
	"fmt"
	"time"

	"rentops-backend/internal/jobs"
	"rentops-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	schedule := map[string]string{
		jobs.JobPurgeDeletedRequests: cfg.PurgeDeletedRequests,
		jobs.JobSendInvoiceReminders: cfg.SendInvoiceReminders,
		jobs.JobRefreshRentStanding:  cfg.RefreshRentStanding,
	}
	for name, spec := range schedule {
		name := name
		_, err := s.cron.AddFunc(spec, func() {
			// failures are logged by the job runner
			_ = s.jobs.Run(context.Background(), name)
		})
		if err != nil {
			return fmt.Errorf("failed to register %s job with schedule %q: %w", name, spec, err)
		}
		logger.Info("Registered cron job", "job", name, "schedule", spec)
	}

	logger.Info("All cron jobs registered successfully")
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
