package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rentops-backend/internal/config"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/service"
)

const (
	JobPurgeDeletedRequests = "purge-deleted-requests"
	JobSendInvoiceReminders = "send-invoice-reminders"
	JobRefreshRentStanding  = "refresh-rent-standing"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Maintenance service.MaintenanceService
	Invoices    service.InvoiceService
	Billing     service.BillingService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		timeout:  30 * time.Minute,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// JobNames lists the jobs Run accepts.
func JobNames() []string {
	names := []string{JobPurgeDeletedRequests, JobSendInvoiceReminders, JobRefreshRentStanding}
	sort.Strings(names)
	return names
}

// Run executes one job by name.
func (jr *JobRunner) Run(ctx context.Context, name string) error {
	switch name {
	case JobPurgeDeletedRequests:
		return jr.PurgeDeletedRequests(ctx)
	case JobSendInvoiceReminders:
		return jr.SendInvoiceReminders(ctx)
	case JobRefreshRentStanding:
		return jr.RefreshRentStanding(ctx)
	}
	return fmt.Errorf("unknown job %q", name)
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(ctx context.Context, jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, jr.timeout)
	defer cancel()

	start := time.Now()
	logger.Info("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
