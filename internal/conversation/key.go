// Package conversation holds the per-conversation state machine: keys,
// turns, raw events, bounded rings, and the registry that owns them.
package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a single conversation: either a group chat or a private
// chat with one user. Group and private IDs live in separate namespaces.
type Key struct {
	ID      int64
	Private bool
}

// GroupKey returns the key for a group chat.
func GroupKey(chatID int64) Key {
	return Key{ID: chatID}
}

// PrivateKey returns the key for a private chat with the given user.
func PrivateKey(userID int64) Key {
	return Key{ID: userID, Private: true}
}

// String renders the key in the stable "group:<id>" / "user:<id>" form
// used by the persistence layer.
func (k Key) String() string {
	if k.Private {
		return "user:" + strconv.FormatInt(k.ID, 10)
	}
	return "group:" + strconv.FormatInt(k.ID, 10)
}

// ParseKey parses a key previously rendered by String.
func ParseKey(s string) (Key, error) {
	kind, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("malformed conversation key %q", s)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed conversation key %q: %w", s, err)
	}

	switch kind {
	case "group":
		return Key{ID: id}, nil
	case "user":
		return Key{ID: id, Private: true}, nil
	default:
		return Key{}, fmt.Errorf("unknown conversation key kind %q", kind)
	}
}
