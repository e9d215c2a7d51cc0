package tasks

import (
	"log/slog"

	"anonsbot/internal/config"
	"anonsbot/internal/database"
)

// TaskDeps provides dependencies for scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
}
