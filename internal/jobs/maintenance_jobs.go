package jobs

import (
	"context"

	"rentops-backend/internal/logger"
)

// PurgeDeletedRequests permanently removes requests whose grace period has
// elapsed, together with their photos.
func (jr *JobRunner) PurgeDeletedRequests(ctx context.Context) error {
	return jr.runWithRecovery(ctx, JobPurgeDeletedRequests, func(ctx context.Context) error {
		purged, err := jr.services.Maintenance.PurgeExpired(ctx, jr.config.Maintenance.PurgeBatchSize)
		if err != nil {
			return err
		}
		logger.Info("Purged expired maintenance requests", "count", purged)
		return nil
	})
}
