package event

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/actionbus/internal/event/topic"
)

func newTestCoordinator(order ...topic.Topic) (*Coordinator, *Registry, *fakeScheduler) {
	r := NewRegistry()
	s := &fakeScheduler{}
	c := NewCoordinator(NewDispatcher(r), s, MustOrderPolicy(order...))
	return c, r, s
}

func TestCoordinator_LastWriterWins(t *testing.T) {
	c, r, s := newTestCoordinator("x")
	rec := &recorder{}
	r.SubscribeExact("x", rec.handler("x"))

	c.DeferPublish("x", 1)
	c.DeferPublish("x", 2)

	if len(rec.calls) != 0 {
		t.Fatal("deferred message delivered before flush")
	}
	if err := s.runIdle(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if !reflect.DeepEqual(rec.calls, []string{"x:2"}) {
		t.Errorf("calls = %v, want [x:2]", rec.calls)
	}
}

func TestCoordinator_SingleArmingPerAction(t *testing.T) {
	c, _, s := newTestCoordinator("a", "b", "c")

	c.DeferPublish("a", nil)
	c.DeferPublish("b", nil)
	c.DeferPublish("c", nil)

	if s.calls != 1 {
		t.Errorf("scheduler calls = %d, want 1", s.calls)
	}
	if !c.Armed() {
		t.Error("coordinator should be armed")
	}
	if got := c.Pending(); !reflect.DeepEqual(got, []topic.Topic{"a", "b", "c"}) {
		t.Errorf("Pending() = %v", got)
	}
}

func TestCoordinator_FixedFlushOrder(t *testing.T) {
	c, r, s := newTestCoordinator("A", "B")
	rec := &recorder{}
	r.SubscribePrefix("", rec.prefixHandler("all"))

	c.DeferPublish("B", "b")
	c.DeferPublish("A", "a")

	if err := s.runIdle(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	want := []string{"all:A:a", "all:B:b"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestCoordinator_UnorderedLeftover(t *testing.T) {
	c, r, s := newTestCoordinator("A", "B")
	rec := &recorder{}
	r.SubscribePrefix("", rec.prefixHandler("all"))

	c.DeferPublish("C", "c")
	c.DeferPublish("A", "a")

	err := s.runIdle()
	if !errors.Is(err, ErrUnorderedEvent) {
		t.Fatalf("expected ErrUnorderedEvent, got %v", err)
	}
	var uerr *UnorderedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnorderedError, got %T", err)
	}
	if !reflect.DeepEqual(uerr.Topics, []topic.Topic{"C"}) {
		t.Errorf("Topics = %v", uerr.Topics)
	}
	if !strings.Contains(err.Error(), `"C"`) {
		t.Errorf("error should name the topic: %v", err)
	}

	// Ordered topics were delivered before the error; C never was
	if !reflect.DeepEqual(rec.calls, []string{"all:A:a"}) {
		t.Errorf("calls = %v, want [all:A:a]", rec.calls)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("pending must be drained after a failed flush: %v", c.Pending())
	}
}

func TestCoordinator_MultipleUnorderedReportsCount(t *testing.T) {
	c, _, s := newTestCoordinator("A")

	c.DeferPublish("Z", nil)
	c.DeferPublish("Y", nil)
	c.DeferPublish("A", nil)

	err := s.runIdle()
	var uerr *UnorderedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnorderedError, got %v", err)
	}
	if !reflect.DeepEqual(uerr.Topics, []topic.Topic{"Y", "Z"}) {
		t.Errorf("Topics = %v, want sorted [Y Z]", uerr.Topics)
	}
	if !strings.HasPrefix(err.Error(), "2 end-of-action events") {
		t.Errorf("error should report the count: %v", err)
	}
	if c.Stats().Unordered != 2 {
		t.Errorf("Unordered = %d, want 2", c.Stats().Unordered)
	}
}

func TestCoordinator_RearmAfterFlush(t *testing.T) {
	tests := []struct {
		name    string
		topic   topic.Topic
		wantErr bool
	}{
		{"after success", "A", false},
		{"after unordered error", "C", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, s := newTestCoordinator("A")

			c.DeferPublish(tt.topic, nil)
			err := s.runIdle()
			if (err != nil) != tt.wantErr {
				t.Fatalf("flush error = %v, wantErr %v", err, tt.wantErr)
			}
			if c.Armed() {
				t.Fatal("coordinator must be idle after flush")
			}

			c.DeferPublish("A", nil)
			c.DeferPublish("A", nil)
			if s.calls != 2 {
				t.Errorf("scheduler calls = %d, want 2 (one per action)", s.calls)
			}
		})
	}
}

func TestCoordinator_RearmAfterHandlerError(t *testing.T) {
	c, r, s := newTestCoordinator("A", "B")
	rec := &recorder{}
	boom := errors.New("boom")
	r.SubscribeExact("A", Func(func(any) error { return boom }))
	r.SubscribeExact("B", rec.handler("B"))

	c.DeferPublish("A", nil)
	c.DeferPublish("B", nil)

	if err := s.runIdle(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("flush continued after a handler error: %v", rec.calls)
	}
	if c.Armed() || len(c.Pending()) != 0 {
		t.Fatal("coordinator must be idle and drained after a handler error")
	}

	c.DeferPublish("B", 1)
	if s.calls != 2 {
		t.Errorf("scheduler calls = %d, want 2", s.calls)
	}
	if err := s.runIdle(); err != nil {
		t.Fatalf("second flush failed: %v", err)
	}
	if !reflect.DeepEqual(rec.calls, []string{"B:1"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestCoordinator_DeferFromHandlerStartsNextAction(t *testing.T) {
	c, r, s := newTestCoordinator("A", "B")
	rec := &recorder{}

	r.SubscribeExact("A", Func(func(any) error {
		return c.DeferPublish("B", "from-A")
	}))
	r.SubscribeExact("B", rec.handler("B"))

	c.DeferPublish("A", nil)
	if err := s.runIdle(); err != nil {
		t.Fatalf("first flush failed: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("defer from a handler must wait for the next action, calls = %v", rec.calls)
	}
	if s.calls != 2 || !c.Armed() {
		t.Fatalf("handler defer should arm a new action, calls = %d armed = %v", s.calls, c.Armed())
	}

	if err := s.runIdle(); err != nil {
		t.Fatalf("second flush failed: %v", err)
	}
	if !reflect.DeepEqual(rec.calls, []string{"B:from-A"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestCoordinator_FlushWhileIdle(t *testing.T) {
	c, _, _ := newTestCoordinator("A")
	if err := c.Flush(); err != nil {
		t.Errorf("Flush while idle = %v, want nil", err)
	}
	if c.Stats().Flushes != 0 {
		t.Error("idle flush should not count")
	}
}

func TestCoordinator_InvalidTopic(t *testing.T) {
	c, _, s := newTestCoordinator("A")
	if err := c.DeferPublish(" ", nil); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
	if s.calls != 0 || c.Armed() {
		t.Error("invalid defer must not arm the coordinator")
	}
}

func TestCoordinator_InlineScheduler(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	r.SubscribeExact("A", rec.handler("A"))

	var flushErr error
	inline := SchedulerFunc(func(fn func() error) { flushErr = fn() })
	c := NewCoordinator(NewDispatcher(r), inline, MustOrderPolicy("A"))

	c.DeferPublish("A", 1)
	if flushErr != nil {
		t.Fatalf("inline flush failed: %v", flushErr)
	}
	if !reflect.DeepEqual(rec.calls, []string{"A:1"}) {
		t.Errorf("calls = %v", rec.calls)
	}
	if c.Armed() {
		t.Error("coordinator should be idle after inline flush")
	}
}

func TestCoordinator_FlushInsideBatchKeepsAction(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	r.SubscribeExact("A", rec.handler("A"))

	d := NewDispatcher(r)
	var flushErr error
	inline := SchedulerFunc(func(fn func() error) { flushErr = fn() })
	c := NewCoordinator(d, inline, MustOrderPolicy("A"))

	r.SubscribeExact("trigger", Func(func(any) error {
		return c.DeferPublish("A", 1)
	}))
	if err := d.DispatchBatch([]Envelope{MustEnvelope("trigger", nil)}); err != nil {
		t.Fatalf("DispatchBatch() failed: %v", err)
	}

	if !errors.Is(flushErr, ErrReentrantBatch) {
		t.Fatalf("flush inside batch = %v, want ErrReentrantBatch", flushErr)
	}
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none during the batch", rec.calls)
	}
	if !c.Armed() || !reflect.DeepEqual(c.Pending(), []topic.Topic{"A"}) {
		t.Fatalf("armed=%v pending=%v, the action must be kept", c.Armed(), c.Pending())
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() after batch failed: %v", err)
	}
	if !reflect.DeepEqual(rec.calls, []string{"A:1"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestOrderPolicy(t *testing.T) {
	p, err := NewOrderPolicy("A", "B", "C")
	if err != nil {
		t.Fatalf("NewOrderPolicy() failed: %v", err)
	}
	if p.Len() != 3 || p.Index("B") != 1 || p.Index("Z") != -1 {
		t.Errorf("unexpected policy %+v", p)
	}
	if !p.Contains("C") || p.Contains("c") {
		t.Error("Contains is exact and case-sensitive")
	}

	topics := p.Topics()
	topics[0] = "mutated"
	if p.Topics()[0] != "A" {
		t.Error("Topics() must return a copy")
	}

	if _, err := NewOrderPolicy("A", "A"); !errors.Is(err, ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}
	if _, err := NewOrderPolicy("A", ""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}
