package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dshills/actionbus/internal/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// runLoop starts l in the background and returns a stop function that
// cancels it and waits for Run to return.
func runLoop(t *testing.T, l *Loop) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-errc:
			if err != nil {
				t.Errorf("Run() = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("loop did not stop")
		}
	}
}

func TestLoop_IdleBeforeRepaint(t *testing.T) {
	var trace []string
	l := NewLoop(WithRepaint(func() { trace = append(trace, "repaint") }))
	bus := event.NewBus(l, event.MustOrderPolicy("view.refresh"))
	bus.SubscribeExact("view.refresh", event.Func(func(any) error {
		trace = append(trace, "flush")
		return nil
	}))

	stop := runLoop(t, l)
	err := l.Call(context.Background(), func() error {
		trace = append(trace, "action")
		bus.DeferPublish("view.refresh", nil)
		bus.DeferPublish("view.refresh", nil)
		return nil
	})
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	// A second call runs only after the first iteration completed
	l.Call(context.Background(), func() error { return nil })
	stop()

	// trace[0] is the startup repaint
	want := []string{"repaint", "action", "flush", "repaint"}
	if len(trace) < len(want) || !reflect.DeepEqual(trace[:len(want)], want) {
		t.Errorf("trace = %v, want prefix %v", trace, want)
	}
	if n := l.Metrics().Snapshot().IdleRuns; n != 1 {
		t.Errorf("IdleRuns = %d, want 1", n)
	}
}

func TestLoop_IdleErrorsAreReported(t *testing.T) {
	var reported []error
	l := NewLoop(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	bus := event.NewBus(l, event.MustOrderPolicy())

	stop := runLoop(t, l)
	l.Call(context.Background(), func() error {
		return bus.DeferPublish("not.ordered", nil)
	})
	l.Call(context.Background(), func() error { return nil })
	stop()

	if len(reported) != 1 || !errors.Is(reported[0], event.ErrUnorderedEvent) {
		t.Fatalf("reported = %v", reported)
	}
	if l.Metrics().Snapshot().IdleErrors != 1 {
		t.Errorf("IdleErrors = %d", l.Metrics().Snapshot().IdleErrors)
	}
	if bus.Coordinator().Armed() {
		t.Error("coordinator must be idle after a failed flush")
	}
}

func TestLoop_CallReturnsActionError(t *testing.T) {
	boom := errors.New("boom")
	var reported error
	l := NewLoop(WithErrorHandler(func(err error) { reported = err }))

	stop := runLoop(t, l)
	err := l.Call(context.Background(), func() error { return boom })
	stop()

	if !errors.Is(err, boom) {
		t.Errorf("Call() = %v, want boom", err)
	}
	if !errors.Is(reported, boom) {
		t.Errorf("action error was not reported: %v", reported)
	}
	if l.Metrics().Snapshot().ActionErrors != 1 {
		t.Errorf("ActionErrors = %d", l.Metrics().Snapshot().ActionErrors)
	}
}

func TestLoop_Quit(t *testing.T) {
	l := NewLoop()
	flushed := false
	l.Post(func() error {
		l.ScheduleOnceHighPriority(func() error { flushed = true; return nil })
		return ErrQuit
	})

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if !flushed {
		t.Error("idle callbacks scheduled by the last action must still run")
	}
	if err := l.Post(func() error { return nil }); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Post after stop = %v, want ErrNotRunning", err)
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
}

func TestLoop_QueueFull(t *testing.T) {
	l := NewLoop(WithQueueSize(1))
	if err := l.Post(func() error { return nil }); err != nil {
		t.Fatalf("first Post() = %v", err)
	}
	if err := l.Post(func() error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Post() = %v, want ErrQueueFull", err)
	}
}

func TestLoop_RunIdle(t *testing.T) {
	l := NewLoop()
	var order []int

	l.ScheduleOnceHighPriority(func() error {
		order = append(order, 1)
		l.ScheduleOnceHighPriority(func() error {
			order = append(order, 3)
			return nil
		})
		return nil
	})
	l.ScheduleOnceHighPriority(func() error {
		order = append(order, 2)
		return nil
	})

	if n := l.RunIdle(); n != 2 {
		t.Errorf("RunIdle() = %d, want 2", n)
	}
	if l.Pending() != 1 {
		t.Errorf("callback scheduled during idle should wait, Pending() = %d", l.Pending())
	}
	l.RunIdle()
	if !reflect.DeepEqual(order, []int{1, 2, 3}) {
		t.Errorf("order = %v", order)
	}
}

func TestLoop_CallContextCancelled(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nobody runs the loop, so only the context can end the wait
	if err := l.Call(ctx, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() = %v, want context.Canceled", err)
	}
}
