package announce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	linkHost = "t.me"

	// Supergroups and channels carry a fixed numeric prefix on their ids;
	// stripping it yields the internal-numbered link form.
	channelIDPrefix = "-100"
)

// ErrPrivateChat indicates that no public link can exist for a message in
// a one-on-one conversation.
var ErrPrivateChat = errors.New("cannot build a public link for a private chat")

// BuildLink derives the canonical public URL for a chat/message pair.
// Pure function of its inputs; resolving the chat's public handle is the
// caller's responsibility.
//
// For ordinary (non-super) groups without a handle the stripped-id form is
// produced as a best-effort fallback and is not guaranteed to resolve.
func BuildLink(chatID int64, chatUsername, chatType string, messageID int) (string, error) {
	if chatUsername != "" {
		return fmt.Sprintf("https://%s/%s/%d", linkHost, chatUsername, messageID), nil
	}

	if chatType == "private" {
		return "", ErrPrivateChat
	}

	id := strconv.FormatInt(chatID, 10)
	if stripped, ok := strings.CutPrefix(id, channelIDPrefix); ok {
		return fmt.Sprintf("https://%s/c/%s/%d", linkHost, stripped, messageID), nil
	}

	return fmt.Sprintf("https://%s/c/%s/%d", linkHost, strings.TrimPrefix(id, "-"), messageID), nil
}
