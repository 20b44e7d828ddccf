package models

import "strings"

// Forum names the board a post belongs to.
type Forum string

const (
	ForumGeneral        Forum = "General Discussion"
	ForumLFG            Forum = "Looking for Group (LFG)"
	ForumPathOfExile    Forum = "Path of Exile"
	ForumDeathStranding Forum = "Death Stranding"
	ForumOffTopic       Forum = "Off-Topic"
)

// ForumAll is the list filter meaning "every forum".
const ForumAll = "All"

// Forums lists the boards in display order.
var Forums = []Forum{ForumGeneral, ForumLFG, ForumPathOfExile, ForumDeathStranding, ForumOffTopic}

// Valid reports whether f is one of the known boards.
func (f Forum) Valid() bool {
	for _, known := range Forums {
		if f == known {
			return true
		}
	}
	return false
}

// ParseForum resolves a forum name supplied by a client. An empty name
// yields the default board.
func ParseForum(raw string) (Forum, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ForumGeneral, nil
	}
	f := Forum(raw)
	if !f.Valid() {
		return "", NewValidationError("Invalid forum")
	}
	return f, nil
}

// ParseForumFilter resolves the ?forum= list filter. A nil result means no
// filtering.
func ParseForumFilter(raw string) (*Forum, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == ForumAll {
		return nil, nil
	}
	f := Forum(raw)
	if !f.Valid() {
		return nil, NewValidationError("Invalid forum")
	}
	return &f, nil
}
