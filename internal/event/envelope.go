package event

import (
	"fmt"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Envelope is the unit of communication: a topic and an optional payload.
// Envelopes are immutable values; the payload's lifetime is the publisher's
// concern.
type Envelope struct {
	topic   topic.Topic
	payload any
}

// NewEnvelope creates an envelope. It fails with ErrInvalidTopic if the topic
// is blank.
func NewEnvelope(t topic.Topic, payload any) (Envelope, error) {
	if t.IsBlank() {
		return Envelope{}, fmt.Errorf("envelope topic %q: %w", t, ErrInvalidTopic)
	}
	return Envelope{topic: t, payload: payload}, nil
}

// MustEnvelope is like NewEnvelope but panics on a blank topic.
// It is intended for package-level declarations and tests.
func MustEnvelope(t topic.Topic, payload any) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// Topic returns the envelope topic.
func (e Envelope) Topic() topic.Topic {
	return e.topic
}

// Payload returns the envelope payload, which may be nil.
func (e Envelope) Payload() any {
	return e.payload
}

// IsValid returns false for the zero Envelope.
func (e Envelope) IsValid() bool {
	return !e.topic.IsBlank()
}

// String returns a short description for logs.
func (e Envelope) String() string {
	return fmt.Sprintf("%s(%T)", e.topic, e.payload)
}
