package event

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidTopic is returned when a topic is empty or whitespace only.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrInvalidArgument is returned for malformed arguments such as
	// topic and payload lists of different lengths.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrUncomparableHandler is returned when a handler's dynamic type cannot be
	// compared for identity (func, map or slice values). Wrap functions with
	// Func or PrefixFunc.
	ErrUncomparableHandler = errors.New("handler is not comparable")

	// ErrReentrantBatch is returned when a batch dispatch is started while
	// another batch is running on the same dispatcher.
	ErrReentrantBatch = errors.New("batch dispatch already in progress")

	// ErrUnorderedEvent is matched by UnorderedError.
	ErrUnorderedEvent = errors.New("end-of-action event has no order assigned")

	// ErrDuplicateOrder is returned when an order policy lists a topic twice.
	ErrDuplicateOrder = errors.New("topic listed twice in order policy")
)

// HandlerError wraps an error returned by a handler with the topic being
// dispatched.
type HandlerError struct {
	// Topic is the topic being dispatched.
	Topic topic.Topic

	// Prefix is the matched prefix for prefix handlers; empty for exact handlers.
	Prefix string

	// IsPrefix is true if the failing handler was a prefix handler.
	IsPrefix bool

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.IsPrefix {
		return fmt.Sprintf("prefix handler %q failed on topic %q: %v", e.Prefix, e.Topic, e.Err)
	}
	return fmt.Sprintf("handler failed on topic %q: %v", e.Topic, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// UnorderedError reports deferred topics that had no entry in the order
// policy when the batch was flushed. Topics are sorted.
type UnorderedError struct {
	Topics []topic.Topic
}

// Error implements the error interface.
func (e *UnorderedError) Error() string {
	if len(e.Topics) == 1 {
		return fmt.Sprintf("no order assigned to end-of-action event %q", e.Topics[0])
	}
	names := make([]string, len(e.Topics))
	for i, t := range e.Topics {
		names[i] = string(t)
	}
	return fmt.Sprintf("%d end-of-action events have no order assigned: %s",
		len(e.Topics), strings.Join(names, ", "))
}

// Is allows errors.Is to match UnorderedError with ErrUnorderedEvent.
func (e *UnorderedError) Is(target error) bool {
	return target == ErrUnorderedEvent
}

// PayloadTypeError is returned by typed handlers when a payload does not have
// the type bound to the topic.
type PayloadTypeError struct {
	Topic topic.Topic
	Want  string
	Got   any
}

// Error implements the error interface.
func (e *PayloadTypeError) Error() string {
	return fmt.Sprintf("topic %q: payload %T is not %s", e.Topic, e.Got, e.Want)
}
