package event

import (
	"fmt"
	"reflect"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Publisher is the publishing half of a Bus.
type Publisher interface {
	Publish(t topic.Topic, payload any) error
	DeferPublish(t topic.Topic, payload any) error
}

// Subscriber is the exact-topic subscription half of a Bus.
type Subscriber interface {
	SubscribeExact(t topic.Topic, h Handler) error
	UnsubscribeExact(t topic.Topic, h Handler)
}

// Key binds a topic to the payload type published on it. Topics with a known
// payload declare a Key; dynamic topics use the untyped Bus methods.
type Key[T any] struct {
	topic topic.Topic
}

// NewKey declares a typed topic. It panics on a blank topic, so keys are
// declared as package-level variables.
func NewKey[T any](t topic.Topic) Key[T] {
	if t.IsBlank() {
		panic(fmt.Sprintf("event: typed key with blank topic %q", t))
	}
	return Key[T]{topic: t}
}

// Topic returns the key's topic.
func (k Key[T]) Topic() topic.Topic {
	return k.topic
}

// PublishTyped publishes payload on k immediately.
func PublishTyped[T any](p Publisher, k Key[T], payload T) error {
	return p.Publish(k.topic, payload)
}

// DeferTyped queues payload on k for the end of the action.
func DeferTyped[T any](p Publisher, k Key[T], payload T) error {
	return p.DeferPublish(k.topic, payload)
}

// TypedFunc returns a Handler for k that asserts the payload to T before
// calling fn. A nil payload is delivered as the zero T; any other payload of
// the wrong type fails with *PayloadTypeError.
func TypedFunc[T any](k Key[T], fn func(payload T) error) *FuncHandler {
	return Func(func(payload any) error {
		v, ok := payload.(T)
		if !ok && payload != nil {
			return &PayloadTypeError{Topic: k.topic, Want: reflect.TypeFor[T]().String(), Got: payload}
		}
		return fn(v)
	})
}

// SubscribeTyped subscribes fn to k. The returned handler unsubscribes it.
func SubscribeTyped[T any](s Subscriber, k Key[T], fn func(payload T) error) (Handler, error) {
	h := TypedFunc(k, fn)
	if err := s.SubscribeExact(k.topic, h); err != nil {
		return nil, err
	}
	return h, nil
}
