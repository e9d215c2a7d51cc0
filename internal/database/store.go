package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for correlation record operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveAnnouncement inserts or replaces the record for its sender.
	// At most one record exists per sender id at any time.
	SaveAnnouncement(ctx context.Context, rec *Announcement) error

	// GetAnnouncement retrieves the record for a sender. Returns nil, nil
	// if no record exists.
	GetAnnouncement(ctx context.Context, senderID int64) (*Announcement, error)

	// DeleteAnnouncement removes the record for a sender, if any.
	DeleteAnnouncement(ctx context.Context, senderID int64) error

	// PurgeExpired deletes all records whose expiry has passed and returns
	// the number of rows removed.
	PurgeExpired(ctx context.Context) (int64, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveAnnouncement inserts or replaces the record for its sender.
func (s *sqlxStore) SaveAnnouncement(ctx context.Context, rec *Announcement) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil announcement")
	}
	if rec.SenderID == 0 {
		return fmt.Errorf("announcement must have a non-zero sender_id")
	}
	if rec.MessageID == 0 {
		return fmt.Errorf("announcement must have a non-zero message_id")
	}
	if rec.ChatID == "" {
		return fmt.Errorf("announcement must have a non-empty chat_id")
	}
	if rec.CreatedAt.IsZero() {
		return fmt.Errorf("announcement must have a non-zero created_at")
	}

	query := `
        INSERT INTO announcements (sender_id, message_id, chat_id, content, created_at, expires_at)
        VALUES (:sender_id, :message_id, :chat_id, :content, :created_at, :expires_at)
        ON CONFLICT (sender_id) DO UPDATE SET
            message_id = excluded.message_id,
            chat_id    = excluded.chat_id,
            content    = excluded.content,
            created_at = excluded.created_at,
            expires_at = excluded.expires_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		s.logger.ErrorContext(ctx, "Error saving announcement", "sender_id", rec.SenderID, "error", err)
		return fmt.Errorf("failed to save announcement for sender %d: %w", rec.SenderID, err)
	}

	s.logger.DebugContext(ctx, "Announcement saved successfully",
		"sender_id", rec.SenderID, "message_id", rec.MessageID)
	return nil
}

// GetAnnouncement retrieves the record for a sender.
func (s *sqlxStore) GetAnnouncement(ctx context.Context, senderID int64) (*Announcement, error) {
	if senderID == 0 {
		return nil, fmt.Errorf("sender_id cannot be zero")
	}

	var rec Announcement
	query := `
        SELECT sender_id, message_id, chat_id, content, created_at, expires_at
        FROM announcements
        WHERE sender_id = ?;
    `
	if err := s.db.GetContext(ctx, &rec, query, senderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error retrieving announcement", "sender_id", senderID, "error", err)
		return nil, fmt.Errorf("failed to get announcement for sender %d: %w", senderID, err)
	}

	return &rec, nil
}

// DeleteAnnouncement removes the record for a sender.
func (s *sqlxStore) DeleteAnnouncement(ctx context.Context, senderID int64) error {
	if senderID == 0 {
		return fmt.Errorf("sender_id cannot be zero")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE sender_id = ?;`, senderID); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting announcement", "sender_id", senderID, "error", err)
		return fmt.Errorf("failed to delete announcement for sender %d: %w", senderID, err)
	}

	s.logger.DebugContext(ctx, "Announcement deleted", "sender_id", senderID)
	return nil
}

// PurgeExpired deletes all records whose expiry has passed.
func (s *sqlxStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE expires_at < ?;`, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error purging expired announcements", "error", err)
		return 0, fmt.Errorf("failed to purge expired announcements: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not determine purged row count", "error", err)
		return 0, nil
	}

	if affected > 0 {
		s.logger.InfoContext(ctx, "Purged expired announcements", "count", affected)
	}
	return affected, nil
}
