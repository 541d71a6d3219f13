package events

import (
	"fmt"

	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

// Document event topics.
const (
	// TopicDocumentActiveChanged is published when another document becomes
	// the active one.
	TopicDocumentActiveChanged topic.Topic = "document.active.changed"

	// TopicCursorMoved is published when the primary cursor moves.
	TopicCursorMoved topic.Topic = "cursor.moved"

	// TopicSelectionChanged is published when the selection changes.
	TopicSelectionChanged topic.Topic = "selection.changed"
)

// Typed keys for document topics.
var (
	DocumentActiveChanged = event.NewKey[Document](TopicDocumentActiveChanged)
	CursorMoved           = event.NewKey[Position](TopicCursorMoved)
	SelectionChanged      = event.NewKey[Selection](TopicSelectionChanged)
)

// Document identifies an open document.
type Document struct {
	// ID is the unique identifier of the document.
	ID string

	// Path is the file path, empty for unsaved documents.
	Path string
}

// Position represents a position in a document.
type Position struct {
	// Line is the zero-based line number.
	Line int

	// Column is the zero-based column number (in bytes).
	Column int
}

// String returns the position as line:column, one-based.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Less reports whether p comes before other.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Selection represents a text selection.
type Selection struct {
	// Anchor is the fixed end of the selection (where selection started).
	Anchor Position

	// Head is the movable end of the selection (where cursor is).
	Head Position
}

// IsEmpty returns true if the selection has zero length.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// IsReversed returns true if the head is before the anchor.
func (s Selection) IsReversed() bool {
	return s.Head.Less(s.Anchor)
}
