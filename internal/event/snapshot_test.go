package event

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/actionbus/internal/event/topic"
)

func TestBus_Snapshot(t *testing.T) {
	b, _ := newTestBus("a", "b")
	h := Func(func(any) error { return nil })
	ph := PrefixFunc(func(topic.Topic, any) error { return nil })

	b.SubscribeExact("b", h)
	b.SubscribeExact("a", h)
	b.SubscribeExact("a", Func(func(any) error { return nil }))
	b.SubscribePrefix("a.", ph)
	b.Publish("a", nil)
	b.DeferPublish("b", nil)

	s := b.Snapshot()
	if len(s.Exact) != 2 || s.Exact[0] != (TopicCount{Name: "a", Handlers: 2}) {
		t.Errorf("Exact = %+v", s.Exact)
	}
	if len(s.Prefix) != 1 || s.Prefix[0].Name != "a." {
		t.Errorf("Prefix = %+v", s.Prefix)
	}
	if !s.Armed || len(s.Pending) != 1 || s.Pending[0] != "b" {
		t.Errorf("Armed = %v, Pending = %v", s.Armed, s.Pending)
	}
	if s.Dispatch.Delivered != 2 || s.EndOfAction.Arms != 1 {
		t.Errorf("stats = %+v %+v", s.Dispatch, s.EndOfAction)
	}
}

func TestSnapshot_JSON(t *testing.T) {
	b, _ := newTestBus("document.active.changed", "selection.changed")
	b.SubscribeExact("selection.changed", Func(func(any) error { return nil }))
	b.SubscribePrefix("", PrefixFunc(func(topic.Topic, any) error { return nil }))
	b.DeferPublish("selection.changed", nil)

	doc, err := b.Snapshot().JSON()
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}
	if !gjson.Valid(doc) {
		t.Fatalf("invalid JSON: %s", doc)
	}

	checks := map[string]string{
		"exact.0.topic":      "selection.changed",
		"exact.0.handlers":   "1",
		"prefix.0.prefix":    "",
		"pending.0":          "selection.changed",
		"order.1":            "selection.changed",
		"armed":              "true",
		"end_of_action.arms": "1",
	}
	for path, want := range checks {
		if got := gjson.Get(doc, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if n := gjson.Get(doc, "order.#").Int(); n != 2 {
		t.Errorf("order length = %d, want 2", n)
	}
}

func TestSnapshot_JSONEmpty(t *testing.T) {
	b, _ := newTestBus()
	doc, err := b.Snapshot().JSON()
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}
	if gjson.Get(doc, "exact.#").Int() != 0 || gjson.Get(doc, "armed").Bool() {
		t.Errorf("unexpected empty snapshot %s", doc)
	}
}
