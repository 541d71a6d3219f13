package event

import (
	"fmt"
	"sync/atomic"
)

// Dispatcher delivers envelopes to the handlers in a Registry.
//
// Dispatch is synchronous and runs in the caller's goroutine. Handlers are
// resolved once when a dispatch starts, so a handler that subscribes or
// unsubscribes during delivery affects the next dispatch, not the current one.
type Dispatcher struct {
	registry *Registry
	batching atomic.Bool

	// Stats
	dispatched      atomic.Uint64
	delivered       atomic.Uint64
	handlerErrors   atomic.Uint64
	rejectedBatches atomic.Uint64
	pruned          atomic.Uint64
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch delivers env to exact handlers of its topic, then to handlers of
// every prefix the topic starts with.
//
// The first handler error stops delivery and is returned as a *HandlerError.
// Handlers already called are not rolled back. Panics are not recovered.
// A topic without subscribers is a silent no-op.
func (d *Dispatcher) Dispatch(env Envelope) error {
	if !env.IsValid() {
		return fmt.Errorf("dispatch: %w", ErrInvalidTopic)
	}
	return d.dispatch(env)
}

// DispatchBatch delivers envelopes in order. All envelopes are validated
// before any is delivered.
//
// Only one batch may run on a dispatcher at a time. A batch started from a
// handler of a running batch fails with ErrReentrantBatch; the running batch
// is unaffected. Single Dispatch calls from handlers are allowed.
func (d *Dispatcher) DispatchBatch(envs []Envelope) error {
	for i, env := range envs {
		if !env.IsValid() {
			return fmt.Errorf("dispatch batch item %d: %w", i, ErrInvalidTopic)
		}
	}

	if !d.batching.CompareAndSwap(false, true) {
		d.rejectedBatches.Add(1)
		return ErrReentrantBatch
	}
	defer d.batching.Store(false)

	for _, env := range envs {
		if err := d.dispatch(env); err != nil {
			return err
		}
	}
	return nil
}

// InBatch returns true while a batch dispatch is running.
func (d *Dispatcher) InBatch() bool {
	return d.batching.Load()
}

// dispatch performs delivery for a validated envelope.
func (d *Dispatcher) dispatch(env Envelope) error {
	d.dispatched.Add(1)

	t := env.Topic()
	payload := env.Payload()
	exact, prefixes := d.registry.resolve(t)

	expired := false
	for _, h := range exact {
		if isExpired(h) {
			expired = true
			continue
		}
		if err := h.Handle(payload); err != nil {
			d.handlerErrors.Add(1)
			return &HandlerError{Topic: t, Err: err}
		}
		d.delivered.Add(1)
	}

	for _, m := range prefixes {
		for _, h := range m.handlers {
			if isExpired(h) {
				expired = true
				continue
			}
			if err := h.HandlePrefix(t, payload); err != nil {
				d.handlerErrors.Add(1)
				return &HandlerError{Topic: t, Prefix: m.prefix, IsPrefix: true, Err: err}
			}
			d.delivered.Add(1)
		}
	}

	if expired {
		d.pruned.Add(uint64(d.registry.prune()))
	}
	return nil
}

// DispatcherStats contains counters for a dispatcher.
type DispatcherStats struct {
	// Dispatched is the number of envelopes dispatched.
	Dispatched uint64

	// Delivered is the number of successful handler calls.
	Delivered uint64

	// HandlerErrors is the number of handler calls that returned an error.
	HandlerErrors uint64

	// RejectedBatches is the number of batches refused for re-entrancy.
	RejectedBatches uint64

	// Pruned is the number of expired weak handlers removed.
	Pruned uint64
}

// Stats returns dispatch statistics.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Dispatched:      d.dispatched.Load(),
		Delivered:       d.delivered.Load(),
		HandlerErrors:   d.handlerErrors.Load(),
		RejectedBatches: d.rejectedBatches.Load(),
		Pruned:          d.pruned.Load(),
	}
}
