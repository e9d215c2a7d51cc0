package tasks

import (
	"context"
	"fmt"
	"time"
)

const purgeTimeout = 30 * time.Second

// NewPurgeExpiredTask returns a task that deletes expired correlation
// records. The router already skips stale records on read; this keeps the
// table from accumulating rows for senders who never follow up with a poll.
func NewPurgeExpiredTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "purge_expired")

	return func(ctx context.Context) error {
		taskCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
		defer cancel()

		purged, err := deps.Store.PurgeExpired(taskCtx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to purge expired announcements", "error", err)
			return fmt.Errorf("purge expired announcements: %w", err)
		}

		if purged > 0 {
			log.InfoContext(ctx, "Purged expired announcements", "count", purged)
		}
		return nil
	}
}
