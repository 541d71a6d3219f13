package events

import "github.com/dshills/actionbus/internal/event/topic"

// View event topics. Their payload is nil or a short reason string.
const (
	// TopicViewRefresh asks views to redraw their content.
	TopicViewRefresh topic.Topic = "view.refresh"

	// TopicStatusLineRefresh asks the status line to recompute its segments.
	TopicStatusLineRefresh topic.Topic = "statusline.refresh"
)
