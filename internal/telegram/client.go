package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"anonsbot/internal/announce"
)

// Client adapts *bot.Bot to the announce.Messenger interface. Chat ids for
// the target channel are passed through as strings so both @handles and
// numeric ids work.
type Client struct {
	bot    *bot.Bot
	logger *slog.Logger
}

// NewClient creates a Messenger adapter over a Telegram bot instance.
func NewClient(b *bot.Bot, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		bot:    b,
		logger: logger.With("component", "telegram_client"),
	}
}

var _ announce.Messenger = (*Client)(nil)

// Send posts a new text message to the given chat.
func (c *Client) Send(ctx context.Context, chatID string, text string) (*announce.SentMessage, error) {
	sent, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("send to %s failed: %w", chatID, err)
	}
	return sentMessage(sent), nil
}

// EditText replaces the full text of an existing message.
func (c *Client) EditText(ctx context.Context, chatID string, messageID int, text string, disablePreview bool) error {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	}
	if disablePreview {
		params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
	}
	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		return fmt.Errorf("edit of message %d in %s failed: %w", messageID, chatID, err)
	}
	return nil
}

// Forward copies an existing message to the given chat, preserving the
// original sender attribution. The router posts announcements with Send so
// it can edit them later; Forward remains available for configurations
// that relay messages verbatim.
func (c *Client) Forward(ctx context.Context, chatID string, fromChatID int64, messageID int) (*announce.SentMessage, error) {
	sent, err := c.bot.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:     chatID,
		FromChatID: fromChatID,
		MessageID:  messageID,
	})
	if err != nil {
		return nil, fmt.Errorf("forward of message %d to %s failed: %w", messageID, chatID, err)
	}
	return sentMessage(sent), nil
}

// Reply sends a text reply to a specific message in its origin chat.
func (c *Client) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: messageID},
	})
	if err != nil {
		return fmt.Errorf("reply in chat %d failed: %w", chatID, err)
	}
	return nil
}

func sentMessage(m *models.Message) *announce.SentMessage {
	return &announce.SentMessage{
		ID:   m.ID,
		Date: time.Unix(int64(m.Date), 0),
	}
}
