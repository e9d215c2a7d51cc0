package database

import (
	"time"
)

// Announcement is the correlation record linking a sender to the channel
// message their last keyword announcement produced. At most one row exists
// per sender; a newer announcement overwrites the older one.
type Announcement struct {
	SenderID  int64     `db:"sender_id"`
	MessageID int       `db:"message_id"`
	ChatID    string    `db:"chat_id"` // target channel at the time of posting
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
