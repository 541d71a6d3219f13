package topic

import (
	"strings"
	"unicode"
)

// Topic identifies a stream of messages (e.g., "selection.changed").
// Topics are case-sensitive and compared byte-wise. Dots are a naming
// convention only; the bus knows no hierarchy beyond literal prefixes.
type Topic string

// Separator is the conventional segment separator used in topic names.
const Separator = "."

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// IsBlank returns true if the topic is empty or contains only whitespace.
// Blank topics cannot be published.
func (t Topic) IsBlank() bool {
	return strings.IndexFunc(string(t), func(r rune) bool {
		return !unicode.IsSpace(r)
	}) < 0
}

// HasPrefix returns true if the topic starts with the literal prefix.
// Unlike segment matching, "selection.chan" is a prefix of "selection.changed".
func (t Topic) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(t), prefix)
}

// Child returns a child topic by appending a segment.
//
// Example: "project".Child("file") -> "project.file"
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// Base returns the last segment of the topic.
//
// Example: "project.file.changed" -> "changed"
func (t Topic) Base() string {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// Join joins multiple segments into a topic.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}
