package watcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/events"
)

// DefaultDelay is the debounce window used when none is configured.
const DefaultDelay = 50 * time.Millisecond

// Poster queues a user action on the host loop.
type Poster interface {
	Post(fn func() error) error
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithDelay sets the debounce window. Zero posts every event on its own.
func WithDelay(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithErrorHandler sets the function receiving source and post errors.
func WithErrorHandler(fn func(error)) BridgeOption {
	return func(b *Bridge) {
		b.onError = fn
	}
}

// WithLogger sets the debug logger.
func WithLogger(l event.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bridge forwards debounced file changes from a Source to a bus through the
// host loop. Publishing always happens on the loop goroutine.
type Bridge struct {
	source Source
	poster Poster
	bus    event.Publisher

	delay   time.Duration
	onError func(error)
	logger  event.Logger

	batches atomic.Int64
	changes atomic.Int64

	closeOnce sync.Once
	closeCh   chan struct{}
	closedWg  sync.WaitGroup
}

// NewBridge creates a bridge and starts its goroutine. The caller still owns
// source and closes it after the bridge.
func NewBridge(source Source, poster Poster, bus event.Publisher, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		source:  source,
		poster:  poster,
		bus:     bus,
		delay:   DefaultDelay,
		logger:  nopLogger{},
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.closedWg.Add(1)
	go b.processLoop()

	return b
}

// Close stops the bridge. Changes still inside the debounce window are
// dropped.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.closeCh)
	})
	b.closedWg.Wait()
}

// Batches returns the number of actions posted so far.
func (b *Bridge) Batches() int64 {
	return b.batches.Load()
}

// Changes returns the number of file changes posted so far.
func (b *Bridge) Changes() int64 {
	return b.changes.Load()
}

func (b *Bridge) processLoop() {
	defer b.closedWg.Done()

	var (
		pending batch
		timer   *time.Timer
		fire    <-chan time.Time
	)
	errCh := b.source.Errors()

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, fire = nil, nil
	}

	for {
		select {
		case <-b.closeCh:
			stopTimer()
			return

		case ev, ok := <-b.source.Events():
			if !ok {
				stopTimer()
				b.post(pending.take())
				return
			}
			pending.add(ev)
			if b.delay == 0 {
				b.post(pending.take())
				continue
			}
			if timer == nil {
				timer = time.NewTimer(b.delay)
				fire = timer.C
			} else {
				timer.Reset(b.delay)
			}

		case <-fire:
			timer, fire = nil, nil
			b.post(pending.take())

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			b.report(err)
		}
	}
}

func (b *Bridge) post(changes []events.FileChange) {
	if len(changes) == 0 {
		return
	}
	err := b.poster.Post(func() error {
		return b.publish(changes)
	})
	if err != nil {
		b.report(err)
		return
	}
	b.batches.Add(1)
	b.changes.Add(int64(len(changes)))
	b.logger.Debug("posted %d file changes", len(changes))
}

// publish runs on the loop goroutine as one action.
func (b *Bridge) publish(changes []events.FileChange) error {
	for _, c := range changes {
		if err := event.PublishTyped(b.bus, events.ProjectFileChanged, c); err != nil {
			return err
		}
	}
	return b.bus.DeferPublish(events.TopicProjectFilesChanged, nil)
}

func (b *Bridge) report(err error) {
	if b.onError != nil {
		b.onError(err)
	}
}

// batch coalesces events per path, keeping first-seen order.
type batch struct {
	paths []string
	ops   map[string]Op
}

func (bt *batch) add(ev Event) {
	if bt.ops == nil {
		bt.ops = make(map[string]Op)
	}
	if _, ok := bt.ops[ev.Path]; !ok {
		bt.paths = append(bt.paths, ev.Path)
	}
	bt.ops[ev.Path] |= ev.Op
}

func (bt *batch) take() []events.FileChange {
	if len(bt.paths) == 0 {
		return nil
	}
	changes := make([]events.FileChange, len(bt.paths))
	for i, p := range bt.paths {
		changes[i] = events.FileChange{Path: p, Action: actionFor(bt.ops[p])}
	}
	bt.paths, bt.ops = nil, nil
	return changes
}

// actionFor reduces combined operations to the most significant action.
func actionFor(op Op) events.FileChangeAction {
	switch {
	case op.Has(OpRemove):
		return events.FileActionDeleted
	case op.Has(OpRename):
		return events.FileActionRenamed
	case op.Has(OpCreate):
		return events.FileActionCreated
	default:
		return events.FileActionModified
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
