package handlers

import (
	"log/slog"

	"anonsbot/internal/announce"
	"anonsbot/internal/config"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Router *announce.Router
}
