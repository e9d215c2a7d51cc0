// Package announce implements the announcement/poll-correlation logic:
// classifying inbound messages, building public message links, rendering
// vote-link prompts, and routing each message to a terminal outcome.
package announce

import (
	"strings"
	"time"
)

// Trigger keywords recognized case-insensitively inside message text.
// Declaration order is the priority order for plain-text matching.
const (
	KeywordAnnounce = "#анонс"
	KeywordPoll     = "#опрос"
)

// FallbackKeyword selects the template used when a poll carries no
// recognizable keyword in its caption.
const FallbackKeyword = KeywordPoll

var keywords = []string{KeywordAnnounce, KeywordPoll}

// Kind is the routing case assigned to an inbound message.
type Kind int

const (
	KindIgnored Kind = iota
	KindUnauthorized
	KindAnnouncement
	KindPoll
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindAnnouncement:
		return "announcement"
	case KindPoll:
		return "poll"
	default:
		return "ignored"
	}
}

// Sender is the external identity of a message author.
type Sender struct {
	ID   int64
	Name string
}

// Inbound is a received message reduced to the fields routing needs.
// Exactly one of Text or HasPoll drives routing; a poll may also carry
// a caption used for template selection.
type Inbound struct {
	MessageID    int
	ChatID       int64
	ChatType     string // "private", "group", "supergroup" or "channel"
	ChatUsername string // public handle, empty if none
	Date         time.Time
	Text         string
	HasPoll      bool
	PollCaption  string
}

// Classification is the classifier's decision for one inbound message.
type Classification struct {
	Kind    Kind
	Keyword string // matched trigger, set for KindAnnouncement
}

// Classifier assigns each inbound message to exactly one routing case.
type Classifier struct {
	allowed map[int64]struct{}
}

// NewClassifier creates a classifier with the given sender allow-list.
func NewClassifier(allowedIDs []int64) *Classifier {
	allowed := make(map[int64]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}
	return &Classifier{allowed: allowed}
}

// Classify inspects an inbound message and assigns it to exactly one case.
// The allow-list check takes precedence over all content checks, and the
// poll flag beats keyword text when both are present. Pure, no side effects.
func (c *Classifier) Classify(msg Inbound, sender Sender) Classification {
	if _, ok := c.allowed[sender.ID]; !ok {
		return Classification{Kind: KindUnauthorized}
	}
	if msg.HasPoll {
		return Classification{Kind: KindPoll}
	}
	if kw, ok := MatchKeyword(msg.Text); ok {
		return Classification{Kind: KindAnnouncement, Keyword: kw}
	}
	return Classification{Kind: KindIgnored}
}

// MatchKeyword returns the first trigger keyword, in declared priority
// order, found as a case-insensitive substring of text.
func MatchKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// MatchCaptionKeyword matches a poll caption. The poll keyword overrides
// the declared order when both keywords are present.
func MatchCaptionKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, KeywordPoll) {
		return KeywordPoll, true
	}
	return MatchKeyword(text)
}
