package events

import (
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

// Project event topics.
const (
	// TopicProjectFileChanged is published when a file changes on disk.
	TopicProjectFileChanged topic.Topic = "project.file.changed"

	// TopicProjectFilesChanged is deferred once per action after one or more
	// files changed on disk. Its payload is nil.
	TopicProjectFilesChanged topic.Topic = "project.files.changed"
)

// ProjectFileChanged is the typed key for TopicProjectFileChanged.
var ProjectFileChanged = event.NewKey[FileChange](TopicProjectFileChanged)

// FileChangeAction represents the type of file change.
type FileChangeAction string

// File change actions.
const (
	FileActionCreated  FileChangeAction = "created"
	FileActionModified FileChangeAction = "modified"
	FileActionDeleted  FileChangeAction = "deleted"
	FileActionRenamed  FileChangeAction = "renamed"
)

// FileChange describes a change to a single file.
type FileChange struct {
	// Path is the absolute path of the file.
	Path string

	// Action is what happened to the file.
	Action FileChangeAction
}
