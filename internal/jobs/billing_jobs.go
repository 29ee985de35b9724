package jobs

import (
	"context"

	"rentops-backend/internal/logger"
)

// SendInvoiceReminders emails owners whose payment requests are past due.
func (jr *JobRunner) SendInvoiceReminders(ctx context.Context) error {
	return jr.runWithRecovery(ctx, JobSendInvoiceReminders, func(ctx context.Context) error {
		sent, err := jr.services.Invoices.SendOverdueReminders(ctx, jr.config.Billing.BatchSize)
		if err != nil {
			return err
		}
		logger.Info("Sent overdue payment reminders", "count", sent)
		return nil
	})
}

// RefreshRentStanding rolls enrolled leases forward and persists their
// payment standing.
func (jr *JobRunner) RefreshRentStanding(ctx context.Context) error {
	return jr.runWithRecovery(ctx, JobRefreshRentStanding, func(ctx context.Context) error {
		updated, err := jr.services.Billing.RefreshStandings(ctx, jr.config.Billing.BatchSize)
		if err != nil {
			return err
		}
		logger.Info("Refreshed rent standing", "updated", updated)
		return nil
	})
}
