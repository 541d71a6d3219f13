package events

import (
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

// TopicKeyPressed is published for every key the terminal UI does not handle
// itself.
const TopicKeyPressed topic.Topic = "input.key.pressed"

// KeyPressed is the typed key for TopicKeyPressed.
var KeyPressed = event.NewKey[Key](TopicKeyPressed)

// Key describes a key press.
type Key struct {
	// Name is the key name with modifiers, such as "Rune[a]" or "Ctrl+R".
	Name string

	// Rune is the character for printable keys, zero otherwise.
	Rune rune
}
