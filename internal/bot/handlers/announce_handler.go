package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"anonsbot/internal/announce"
)

// NewAnnounceHandler returns the default handler that feeds every
// non-command message into the announcement router.
func NewAnnounceHandler(deps *HandlerDeps) bot.HandlerFunc {
	return announceHandler{deps}.Handle
}

type announceHandler struct {
	deps *HandlerDeps
}

func (h announceHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "announce")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update with nil message or sender", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		// Commands are handled by their own registered handlers.
		return
	}

	inbound := announce.Inbound{
		MessageID:    msg.ID,
		ChatID:       msg.Chat.ID,
		ChatType:     string(msg.Chat.Type),
		ChatUsername: msg.Chat.Username,
		Date:         time.Unix(int64(msg.Date), 0),
		Text:         msg.Text,
	}
	if msg.Poll != nil {
		inbound.HasPoll = true
		inbound.PollCaption = msg.Poll.Question
	}

	sender := announce.Sender{
		ID:   msg.From.ID,
		Name: msg.From.Username,
	}

	h.deps.Router.Handle(ctx, inbound, sender)
}
