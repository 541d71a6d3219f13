package event

import (
	"fmt"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Bus is the publish/subscribe surface used by application components.
// It composes a Registry, a Dispatcher and an end-of-action Coordinator.
//
// Each Bus is independent; build one per application (or per test) and pass
// it to the components that need it.
type Bus struct {
	registry    *Registry
	dispatcher  *Dispatcher
	coordinator *Coordinator
}

// NewBus creates a bus whose end-of-action events are flushed by scheduler in
// the order declared by policy.
func NewBus(scheduler Scheduler, policy OrderPolicy, opts ...Option) *Bus {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry)
	return &Bus{
		registry:    registry,
		dispatcher:  dispatcher,
		coordinator: NewCoordinator(dispatcher, scheduler, policy, opts...),
	}
}

// SubscribeExact subscribes h to topic t.
func (b *Bus) SubscribeExact(t topic.Topic, h Handler) error {
	return b.registry.SubscribeExact(t, h)
}

// SubscribePrefix subscribes h to every topic starting with prefix.
func (b *Bus) SubscribePrefix(prefix string, h PrefixHandler) error {
	return b.registry.SubscribePrefix(prefix, h)
}

// UnsubscribeExact removes h from topic t.
func (b *Bus) UnsubscribeExact(t topic.Topic, h Handler) {
	b.registry.UnsubscribeExact(t, h)
}

// UnsubscribePrefix removes h from prefix.
func (b *Bus) UnsubscribePrefix(prefix string, h PrefixHandler) {
	b.registry.UnsubscribePrefix(prefix, h)
}

// Publish delivers payload to the subscribers of t immediately.
func (b *Bus) Publish(t topic.Topic, payload any) error {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return b.dispatcher.Dispatch(env)
}

// PublishEnvelopes delivers envs immediately, in order, as one batch.
func (b *Bus) PublishEnvelopes(envs []Envelope) error {
	return b.dispatcher.DispatchBatch(envs)
}

// PublishAll delivers payloads[i] on topics[i] immediately, in order, as one
// batch. The lists must have the same length; nothing is delivered otherwise.
func (b *Bus) PublishAll(topics []topic.Topic, payloads []any) error {
	if len(topics) != len(payloads) {
		return fmt.Errorf("publish %d topics with %d payloads: %w",
			len(topics), len(payloads), ErrInvalidArgument)
	}

	envs := make([]Envelope, len(topics))
	for i, t := range topics {
		env, err := NewEnvelope(t, payloads[i])
		if err != nil {
			return fmt.Errorf("publish item %d: %w", i, err)
		}
		envs[i] = env
	}
	return b.dispatcher.DispatchBatch(envs)
}

// DeferPublish queues payload for t until the end of the current action.
func (b *Bus) DeferPublish(t topic.Topic, payload any) error {
	return b.coordinator.DeferPublish(t, payload)
}

// Flush runs the end-of-action flush now. Hosts normally let the scheduler
// call it. It must not run from a handler of a batch publish; there it
// returns ErrReentrantBatch and keeps the events for a later Flush.
func (b *Bus) Flush() error {
	return b.coordinator.Flush()
}

// Registry returns the subscription registry.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Dispatcher returns the dispatcher.
func (b *Bus) Dispatcher() *Dispatcher {
	return b.dispatcher
}

// Coordinator returns the end-of-action coordinator.
func (b *Bus) Coordinator() *Coordinator {
	return b.coordinator
}

// Policy returns the end-of-action order policy.
func (b *Bus) Policy() OrderPolicy {
	return b.coordinator.Policy()
}
