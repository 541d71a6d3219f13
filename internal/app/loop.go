package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the default capacity of the action queue.
const DefaultQueueSize = 256

// Loop is the headless host: it runs user actions and idle callbacks on a
// single goroutine and implements event.Scheduler.
//
// Each posted function is one user action. After every action the loop runs
// the idle callbacks scheduled so far, then repaints. End-of-action flushes
// therefore always happen after the action that deferred them and before the
// next repaint.
type Loop struct {
	actions chan func() error
	wake    chan struct{}

	mu   sync.Mutex
	idle []func() error

	repaint func()
	onError func(error)
	logger  *Logger
	metrics *Metrics

	running atomic.Bool
	done    chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger that receives action and idle errors.
func WithLoopLogger(l *Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithRepaint sets a function called after the idle callbacks of every loop
// iteration.
func WithRepaint(fn func()) LoopOption {
	return func(lp *Loop) {
		lp.repaint = fn
	}
}

// WithErrorHandler sets a function called with every action or idle error,
// in addition to logging.
func WithErrorHandler(fn func(error)) LoopOption {
	return func(lp *Loop) {
		lp.onError = fn
	}
}

// WithQueueSize sets the action queue capacity.
func WithQueueSize(n int) LoopOption {
	return func(lp *Loop) {
		if n > 0 {
			lp.actions = make(chan func() error, n)
		}
	}
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *Metrics) LoopOption {
	return func(lp *Loop) {
		if m != nil {
			lp.metrics = m
		}
	}
}

// NewLoop creates a loop. It does nothing until Run is called.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		actions: make(chan func() error, DefaultQueueSize),
		wake:    make(chan struct{}, 1),
		logger:  NullLogger,
		metrics: NewMetrics(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn as a user action. It is safe to call from any goroutine and
// never blocks. Actions posted before Run are kept until it starts.
func (l *Loop) Post(fn func() error) error {
	select {
	case <-l.done:
		return ErrNotRunning
	default:
	}

	select {
	case l.actions <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Call posts fn and waits for it to run, returning its error.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	err := l.Post(func() error {
		err := fn()
		result <- err
		return err
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrNotRunning
		}
	}
}

// ScheduleOnceHighPriority implements event.Scheduler. fn runs once, at the
// end of the current loop iteration and before the repaint.
func (l *Loop) ScheduleOnceHighPriority(fn func() error) {
	l.mu.Lock()
	l.idle = append(l.idle, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes actions until ctx is cancelled or an action returns ErrQuit.
// Idle callbacks already scheduled when Run stops are still run.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(l.done)

	// Startup work (scripts, initial publishes) may already have deferred
	l.RunIdle()
	l.paint()

	for {
		select {
		case <-ctx.Done():
			l.RunIdle()
			return nil

		case fn := <-l.actions:
			if err := l.RunAction(fn); errors.Is(err, ErrQuit) {
				l.RunIdle()
				return nil
			}

		case <-l.wake:
		}

		l.RunIdle()
		l.paint()
	}
}

// RunIdle runs the idle callbacks scheduled so far and returns how many ran.
// Callbacks scheduled while they run wait for the next call. Errors are
// reported, not returned.
//
// Run calls it after every action; hosts that drive the loop themselves may
// call it directly from the loop goroutine.
func (l *Loop) RunIdle() int {
	l.mu.Lock()
	fns := l.idle
	l.idle = nil
	l.mu.Unlock()

	for _, fn := range fns {
		timer := StartTimer()
		err := fn()
		l.metrics.RecordIdle(timer.Elapsed(), err)
		if err != nil {
			l.report("end of action", err)
		}
	}
	return len(fns)
}

// Pending returns the number of idle callbacks waiting to run.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.idle)
}

// Queued returns the number of actions waiting to run.
func (l *Loop) Queued() int {
	return len(l.actions)
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Metrics returns the loop's metrics tracker.
func (l *Loop) Metrics() *Metrics {
	return l.metrics
}

// RunPending runs the actions queued so far without blocking, each followed
// by the idle callbacks. It stops early and returns true when an action
// returns ErrQuit.
//
// Hosts that own their event loop call it from that loop instead of Run.
func (l *Loop) RunPending() bool {
	for {
		select {
		case fn := <-l.actions:
			err := l.RunAction(fn)
			l.RunIdle()
			if errors.Is(err, ErrQuit) {
				return true
			}
		default:
			return false
		}
	}
}

// RunAction runs fn as one user action on the calling goroutine. Errors other
// than ErrQuit are reported and returned. It does not run idle callbacks.
func (l *Loop) RunAction(fn func() error) error {
	timer := StartTimer()
	err := fn()
	l.metrics.RecordAction(timer.Elapsed(), err)
	if err != nil && !errors.Is(err, ErrQuit) {
		l.report("action", err)
	}
	return err
}

func (l *Loop) paint() {
	if l.repaint == nil {
		return
	}
	l.repaint()
	l.metrics.RecordRepaint()
}

func (l *Loop) report(what string, err error) {
	l.logger.Error("%s: %v", what, err)
	if l.onError != nil {
		l.onError(err)
	}
}
