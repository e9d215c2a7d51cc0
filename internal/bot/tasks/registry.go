// Package tasks contains background maintenance tasks run by the scheduler.
package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature for a scheduled task function.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns a map of all scheduled tasks,
// keyed by the task name used in the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	return map[string]ScheduledTaskFunc{
		"purge_expired": NewPurgeExpiredTask(deps),
	}
}
