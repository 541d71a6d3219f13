package events

import (
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

// TopicConfigChanged is published when the configuration file is reloaded.
const TopicConfigChanged topic.Topic = "config.changed"

// ConfigChanged is the typed key for TopicConfigChanged.
var ConfigChanged = event.NewKey[ConfigChange](TopicConfigChanged)

// ConfigChange describes a configuration reload.
type ConfigChange struct {
	// Path is the configuration file that was loaded.
	Path string

	// Keys lists the top-level settings whose value changed.
	Keys []string
}
