// Package watcher turns file system changes into bus messages.
//
// An FSNotifyWatcher reports raw changes on a channel. A Bridge collects them
// for a debounce window, then posts one action to the host loop that
// publishes project.file.changed for every changed path and defers a single
// project.files.changed for the end of that action.
package watcher

import (
	"errors"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a file system change event.
type Event struct {
	// Path is the absolute path of the affected file or directory.
	Path string

	// Op is the operation that occurred. A debounced event may combine
	// several operations.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Source produces file change events. FSNotifyWatcher is the production
// source.
type Source interface {
	// Events returns the channel of file change events. It is closed when
	// the source is closed.
	Events() <-chan Event

	// Errors returns the channel of source errors. It is closed when the
	// source is closed.
	Errors() <-chan error
}

// Stats provides watcher status information.
type Stats struct {
	// WatchedPaths is the number of paths being watched.
	WatchedPaths int

	// TotalEvents is the total number of events delivered.
	TotalEvents int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// Config holds watcher configuration options.
type Config struct {
	// BufferSize is the size of the event and error channels.
	// Default: 100
	BufferSize int

	// IgnorePatterns are filepath.Match patterns tested against the base
	// name of every changed path.
	IgnorePatterns []string

	// IgnoreHidden ignores hidden files (starting with .).
	// Default: true
	IgnoreHidden bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:   100,
		IgnoreHidden: true,
	}
}

// WatcherOption configures a watcher.
type WatcherOption func(*Config)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) WatcherOption {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithIgnorePatterns sets the ignore patterns.
func WithIgnorePatterns(patterns []string) WatcherOption {
	return func(c *Config) {
		c.IgnorePatterns = patterns
	}
}

// WithIgnoreHidden enables or disables ignoring hidden files.
func WithIgnoreHidden(ignore bool) WatcherOption {
	return func(c *Config) {
		c.IgnoreHidden = ignore
	}
}
