package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"anonsbot/internal/database"
)

const (
	defaultRecordTTL  = 10 * time.Minute
	defaultPollMaxAge = time.Hour
)

// User-facing replies. Unauthorized, ignored and stale cases stay silent.
const (
	msgNoTarget    = "Error: target channel is not configured. Cannot repost."
	msgSendFailed  = "Sorry, there was an error trying to repost the announcement: %v"
	msgEditFailed  = "Sorry, there was an error trying to attach the vote link: %v"
	msgPrivateChat = "Cannot build a public link to a poll in a private chat. Post the poll in a public group or channel."
)

// SentMessage describes the outcome of a successful send or forward.
type SentMessage struct {
	ID   int
	Date time.Time
}

// Messenger is the outbound messaging API the router depends on. The
// target channel is addressed by its configured identifier, which may be
// an @handle or a numeric id in string form.
type Messenger interface {
	Send(ctx context.Context, chatID string, text string) (*SentMessage, error)
	EditText(ctx context.Context, chatID string, messageID int, text string, disablePreview bool) error
	Forward(ctx context.Context, chatID string, fromChatID int64, messageID int) (*SentMessage, error)
	Reply(ctx context.Context, chatID int64, messageID int, text string) error
}

// Options configures a Router.
type Options struct {
	TargetChannel string
	RecordTTL     time.Duration // record freshness window, default 10m
	PollMaxAge    time.Duration // inbound poll age limit, default 1h
}

// Router is the announcement/poll-correlation state machine. Each inbound
// message runs a single pass to a terminal outcome; the only cross-message
// state lives in the correlation store.
type Router struct {
	logger     *slog.Logger
	store      database.Store
	msgr       Messenger
	classifier *Classifier
	opts       Options
	now        func() time.Time
}

// NewRouter creates a router with the given dependencies. Zero timing
// options fall back to the reference windows.
func NewRouter(logger *slog.Logger, store database.Store, msgr Messenger, classifier *Classifier, opts Options) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.PollMaxAge <= 0 {
		opts.PollMaxAge = defaultPollMaxAge
	}
	return &Router{
		logger:     logger.With("component", "router"),
		store:      store,
		msgr:       msgr,
		classifier: classifier,
		opts:       opts,
		now:        time.Now,
	}
}

// Handle routes one inbound message to its terminal outcome. All failures
// are local to this message: they are logged and, where the sender should
// know, converted into a best-effort reply.
func (r *Router) Handle(ctx context.Context, msg Inbound, sender Sender) {
	cls := r.classifier.Classify(msg, sender)
	log := r.logger.With("sender_id", sender.ID, "message_id", msg.MessageID, "kind", cls.Kind.String())

	switch cls.Kind {
	case KindUnauthorized:
		// Silent drop, no reply.
		log.InfoContext(ctx, "Dropping message from unauthorized sender")
	case KindIgnored:
		log.DebugContext(ctx, "Ignoring message without trigger keyword or poll")
	case KindAnnouncement:
		r.handleAnnouncement(ctx, log, msg, sender, cls.Keyword)
	case KindPoll:
		r.handlePoll(ctx, log, msg, sender)
	}
}

// handleAnnouncement posts the message body to the target channel and
// records the correlation so a later poll can attach a vote link.
func (r *Router) handleAnnouncement(ctx context.Context, log *slog.Logger, msg Inbound, sender Sender, keyword string) {
	if r.opts.TargetChannel == "" {
		log.ErrorContext(ctx, "Target channel is not configured, cannot repost")
		r.reply(ctx, log, msg, msgNoTarget)
		return
	}

	sent, err := r.msgr.Send(ctx, r.opts.TargetChannel, msg.Text)
	if err != nil {
		log.ErrorContext(ctx, "Failed to repost announcement", "error", err, "target", r.opts.TargetChannel)
		r.reply(ctx, log, msg, fmt.Sprintf(msgSendFailed, err))
		return
	}
	log.InfoContext(ctx, "Announcement reposted", "keyword", keyword, "channel_message_id", sent.ID)

	now := r.now()
	rec := &database.Announcement{
		SenderID:  sender.ID,
		MessageID: sent.ID,
		ChatID:    r.opts.TargetChannel,
		Content:   msg.Text,
		CreatedAt: now,
		ExpiresAt: now.Add(r.opts.RecordTTL),
	}
	if err := r.store.SaveAnnouncement(ctx, rec); err != nil {
		// The announcement stands; only the poll correlation is lost.
		log.WarnContext(ctx, "Failed to save correlation record, poll attachment unavailable", "error", err)
	}
}

// handlePoll attaches a vote-link prompt to the sender's last announcement,
// if a fresh correlation record exists.
func (r *Router) handlePoll(ctx context.Context, log *slog.Logger, msg Inbound, sender Sender) {
	if r.opts.TargetChannel == "" {
		log.ErrorContext(ctx, "Target channel is not configured, cannot attach vote link")
		r.reply(ctx, log, msg, msgNoTarget)
		return
	}

	// Guard against polls forwarded long after the fact.
	if msg.Date.IsZero() || r.now().Sub(msg.Date) > r.opts.PollMaxAge {
		log.InfoContext(ctx, "Poll is too old or has no timestamp, ignoring", "poll_date", msg.Date)
		return
	}

	rec := r.freshRecord(ctx, log, sender.ID)
	if rec == nil {
		return
	}

	keyword := FallbackKeyword
	if kw, ok := MatchCaptionKeyword(msg.PollCaption); ok {
		keyword = kw
	}

	link, err := BuildLink(msg.ChatID, msg.ChatUsername, msg.ChatType, msg.MessageID)
	if err != nil {
		if errors.Is(err, ErrPrivateChat) {
			log.InfoContext(ctx, "Poll posted in private chat, public link impossible")
			r.reply(ctx, log, msg, msgPrivateChat)
			return // record stays intact for a later valid poll
		}
		log.ErrorContext(ctx, "Failed to build poll link", "error", err)
		r.reply(ctx, log, msg, fmt.Sprintf(msgEditFailed, err))
		return
	}

	base, stripped := StripPrompt(rec.Content)
	if stripped {
		log.DebugContext(ctx, "Replacing previously attached prompt")
	}
	merged := MergePrompt(base, RenderPrompt(keyword, link))

	if err := r.msgr.EditText(ctx, rec.ChatID, rec.MessageID, merged, true); err != nil {
		// The edit is idempotent by construction, so the record stays for
		// a retry poll.
		log.ErrorContext(ctx, "Failed to edit announcement", "error", err, "channel_message_id", rec.MessageID)
		r.reply(ctx, log, msg, fmt.Sprintf(msgEditFailed, err))
		return
	}
	log.InfoContext(ctx, "Vote link attached", "keyword", keyword, "link", link, "channel_message_id", rec.MessageID)

	if err := r.store.DeleteAnnouncement(ctx, sender.ID); err != nil {
		log.WarnContext(ctx, "Failed to delete consumed correlation record", "error", err)
	}
}

// freshRecord fetches the sender's correlation record and validates its
// freshness. Stale records are deleted. Store failures and stale or absent
// records all degrade to nil, which the caller treats as nothing to attach.
func (r *Router) freshRecord(ctx context.Context, log *slog.Logger, senderID int64) *database.Announcement {
	rec, err := r.store.GetAnnouncement(ctx, senderID)
	if err != nil {
		log.WarnContext(ctx, "Correlation store unavailable, treating as no record", "error", err)
		return nil
	}
	if rec == nil {
		log.InfoContext(ctx, "No announcement to attach the poll to")
		return nil
	}

	if r.now().Sub(rec.CreatedAt) > r.opts.RecordTTL || rec.ChatID != r.opts.TargetChannel {
		log.InfoContext(ctx, "Correlation record is stale, discarding",
			"record_age", r.now().Sub(rec.CreatedAt), "record_target", rec.ChatID)
		if err := r.store.DeleteAnnouncement(ctx, senderID); err != nil {
			log.WarnContext(ctx, "Failed to delete stale correlation record", "error", err)
		}
		return nil
	}

	return rec
}

// reply sends a best-effort reply to the original sender.
func (r *Router) reply(ctx context.Context, log *slog.Logger, msg Inbound, text string) {
	if err := r.msgr.Reply(ctx, msg.ChatID, msg.MessageID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send reply to sender", "error", err, "chat_id", msg.ChatID)
	}
}
