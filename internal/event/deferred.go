package event

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Scheduler runs a callback once at its next idle point, before the host
// repaints. The callback's error belongs to the host.
type Scheduler interface {
	ScheduleOnceHighPriority(fn func() error)
}

// SchedulerFunc adapts a function to Scheduler. A SchedulerFunc that runs
// the flush inline must not be triggered from a handler of a batch publish.
type SchedulerFunc func(fn func() error)

// ScheduleOnceHighPriority implements Scheduler.
func (f SchedulerFunc) ScheduleOnceHighPriority(fn func() error) {
	f(fn)
}

// Coordinator collects end-of-action events and flushes them once per action
// in the order given by its OrderPolicy.
//
// The coordinator is Idle until the first DeferPublish of an action, which
// arms exactly one scheduler callback. Later defers in the same action only
// overwrite the pending payload for their topic. Flush delivers the pending
// events and returns the coordinator to Idle, whatever the outcome.
type Coordinator struct {
	dispatcher *Dispatcher
	scheduler  Scheduler
	policy     OrderPolicy
	logger     Logger

	mu      sync.Mutex
	pending map[topic.Topic]any
	armed   bool

	// Stats
	arms      atomic.Uint64
	flushes   atomic.Uint64
	unordered atomic.Uint64
}

// NewCoordinator creates a coordinator that flushes through dispatcher.
func NewCoordinator(dispatcher *Dispatcher, scheduler Scheduler, policy OrderPolicy, opts ...Option) *Coordinator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Coordinator{
		dispatcher: dispatcher,
		scheduler:  scheduler,
		policy:     policy,
		logger:     cfg.logger,
		pending:    make(map[topic.Topic]any),
	}
}

// DeferPublish records payload for t in the current action. The last payload
// recorded for a topic wins.
func (c *Coordinator) DeferPublish(t topic.Topic, payload any) error {
	if t.IsBlank() {
		return fmt.Errorf("defer publish %q: %w", t, ErrInvalidTopic)
	}

	c.mu.Lock()
	arm := !c.armed
	c.armed = true
	c.pending[t] = payload
	c.mu.Unlock()

	// Scheduler is called outside the lock; it may run the callback inline.
	if arm {
		c.arms.Add(1)
		c.logger.Debug("end of action armed by %s", t)
		c.scheduler.ScheduleOnceHighPriority(c.Flush)
	}
	return nil
}

// Flush delivers the pending events of the current action. The scheduler
// calls it; calling it while Idle does nothing.
//
// Topics are delivered in policy order. Pending topics missing from the
// policy are reported afterwards as an *UnorderedError. A handler error stops
// the flush and is returned; the remaining events of the action are dropped.
//
// Flush called while a batch dispatch is running returns ErrReentrantBatch
// and leaves the action armed with its events pending; call Flush again once
// the batch has returned.
func (c *Coordinator) Flush() error {
	c.mu.Lock()
	if !c.armed {
		c.mu.Unlock()
		return nil
	}
	if c.dispatcher.InBatch() {
		c.mu.Unlock()
		return fmt.Errorf("end of action flush: %w", ErrReentrantBatch)
	}
	// The scheduler request is consumed; defers made by handlers from here on
	// belong to the next action.
	pending := c.pending
	c.pending = make(map[topic.Topic]any)
	c.armed = false
	c.mu.Unlock()

	c.flushes.Add(1)

	envs := make([]Envelope, 0, len(pending))
	for _, t := range c.policy.topics {
		payload, ok := pending[t]
		if !ok {
			continue
		}
		envs = append(envs, Envelope{topic: t, payload: payload})
		delete(pending, t)
	}

	c.logger.Debug("end of action flush: %d ordered, %d unordered", len(envs), len(pending))

	if err := c.dispatcher.DispatchBatch(envs); err != nil {
		return err
	}

	if len(pending) > 0 {
		c.unordered.Add(uint64(len(pending)))
		return &UnorderedError{Topics: sortedTopics(pending)}
	}
	return nil
}

// Armed returns true while a flush request is outstanding.
func (c *Coordinator) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Pending returns the topics waiting for the next flush, sorted.
func (c *Coordinator) Pending() []topic.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedTopics(c.pending)
}

// Policy returns the coordinator's order policy.
func (c *Coordinator) Policy() OrderPolicy {
	return c.policy
}

// CoordinatorStats contains counters for a coordinator.
type CoordinatorStats struct {
	// Arms is the number of scheduler requests made.
	Arms uint64

	// Flushes is the number of flushes that ran while armed.
	Flushes uint64

	// Unordered is the number of deferred topics reported without an order.
	Unordered uint64
}

// Stats returns coordinator statistics.
func (c *Coordinator) Stats() CoordinatorStats {
	return CoordinatorStats{
		Arms:      c.arms.Load(),
		Flushes:   c.flushes.Load(),
		Unordered: c.unordered.Load(),
	}
}

// sortedTopics returns the keys of m in ascending order.
func sortedTopics(m map[topic.Topic]any) []topic.Topic {
	if len(m) == 0 {
		return nil
	}
	topics := make([]topic.Topic, 0, len(m))
	for t := range m {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}
