package lua

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/events"
	"github.com/dshills/actionbus/internal/event/topic"
)

// newTestHost returns a host on a fresh bus whose end-of-action callbacks
// are collected in idle.
func newTestHost(t *testing.T, opts ...HostOption) (*Host, *event.Bus, *[]func() error) {
	t.Helper()
	var idle []func() error
	policy := event.MustOrderPolicy("plugin.done", events.TopicStatusLineRefresh)
	bus := event.NewBus(event.SchedulerFunc(func(fn func() error) {
		idle = append(idle, fn)
	}), policy)

	h := NewHost(bus, opts...)
	t.Cleanup(h.Close)
	return h, bus, &idle
}

func TestHost_SubscribeReceivesGoPayload(t *testing.T) {
	var out bytes.Buffer
	h, bus, _ := newTestHost(t, WithPrintOutput(&out))

	err := h.Run(`
		bus.subscribe("cursor.moved", function(pos)
			print("cursor", pos.line, pos.column)
		end)
	`)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if err := event.PublishTyped(bus, events.CursorMoved, events.Position{Line: 3, Column: 7}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := out.String(); got != "cursor\t3\t7\n" {
		t.Errorf("output = %q", got)
	}
}

func TestHost_PublishTableToGo(t *testing.T) {
	h, bus, _ := newTestHost(t)

	var got any
	bus.SubscribeExact("plugin.greeter.hello", event.Func(func(payload any) error {
		got = payload
		return nil
	}))

	err := h.Run(`bus.publish("plugin.greeter.hello", { name = "world", tags = {"a", "b"}, n = 2, ratio = 0.5 })`)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := map[string]any{
		"name":  "world",
		"tags":  []any{"a", "b"},
		"n":     int64(2),
		"ratio": 0.5,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("payload = %#v, want %#v", got, want)
	}
}

func TestHost_PrefixSubscription(t *testing.T) {
	var out bytes.Buffer
	h, bus, _ := newTestHost(t, WithPrintOutput(&out))

	err := h.Run(`
		bus.subscribe_prefix("plugin.", function(topic, data)
			print(topic, data.name)
		end)
	`)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	bus.Publish("plugin.x.y", map[string]any{"name": "go"})
	bus.Publish("view.refresh", nil)

	if got := out.String(); got != "plugin.x.y\tgo\n" {
		t.Errorf("output = %q", got)
	}
}

func TestHost_DeferUsesEndOfAction(t *testing.T) {
	var out bytes.Buffer
	h, _, idle := newTestHost(t, WithPrintOutput(&out))

	err := h.Run(`
		bus.subscribe("plugin.done", function(v) print("done", v) end)
		bus.defer("plugin.done", 1)
		bus.defer("plugin.done", 2)
	`)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if out.Len() != 0 {
		t.Fatal("deferred message delivered before the end of the action")
	}
	if len(*idle) != 1 {
		t.Fatalf("scheduled %d flushes, want 1", len(*idle))
	}
	if err := (*idle)[0](); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if got := out.String(); got != "done\t2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestHost_Unsubscribe(t *testing.T) {
	var out bytes.Buffer
	h, bus, _ := newTestHost(t, WithPrintOutput(&out))

	err := h.Run(`
		id = bus.subscribe("view.refresh", function() print("refresh") end)
		first = bus.unsubscribe(id)
		second = bus.unsubscribe(id)
	`)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	bus.Publish(events.TopicViewRefresh, nil)
	if out.Len() != 0 {
		t.Error("unsubscribed Lua handler ran")
	}
	if h.state.L.GetGlobal("first") != lua.LTrue || h.state.L.GetGlobal("second") != lua.LFalse {
		t.Error("unsubscribe should report whether the id existed")
	}
	if len(h.Subscriptions()) != 0 {
		t.Errorf("Subscriptions() = %v", h.Subscriptions())
	}
}

func TestHost_HandlerErrorPropagates(t *testing.T) {
	h, bus, _ := newTestHost(t)

	if err := h.Run(`bus.subscribe("plugin.fail", function() error("nope") end)`); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	err := bus.Publish("plugin.fail", nil)
	var herr *event.HandlerError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *event.HandlerError, got %v", err)
	}
	var serr *ScriptError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ScriptError inside, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error should carry the Lua message: %v", err)
	}
}

func TestHost_PublishErrorRaisedInScript(t *testing.T) {
	h, _, _ := newTestHost(t)

	err := h.Run(`bus.publish("   ")`)
	if err == nil || !strings.Contains(err.Error(), "invalid topic") {
		t.Errorf("expected the invalid topic to raise, got %v", err)
	}

	// pcall sees the raise and the script continues
	err = h.Run(`
		ok = pcall(bus.defer, "")
		assert(not ok)
	`)
	if err != nil {
		t.Errorf("Run() failed: %v", err)
	}
}

func TestHost_Timeout(t *testing.T) {
	h, _, _ := newTestHost(t, WithTimeout(50*time.Millisecond))

	err := h.Run(`while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}

	// The state stays usable
	if err := h.Run(`x = 1`); err != nil {
		t.Errorf("Run() after timeout failed: %v", err)
	}
}

func TestHost_LoadFiles(t *testing.T) {
	var out bytes.Buffer
	h, bus, _ := newTestHost(t, WithPrintOutput(&out))

	dir := t.TempDir()
	first := filepath.Join(dir, "first.lua")
	second := filepath.Join(dir, "second.lua")
	os.WriteFile(first, []byte(`bus.subscribe("statusline.refresh", function() print("status") end)`), 0o644)
	os.WriteFile(second, []byte(`syntax error here`), 0o644)

	err := h.LoadFiles([]string{first, second})
	var serr *ScriptError
	if !errors.As(err, &serr) || serr.Source != second {
		t.Fatalf("expected a ScriptError for %s, got %v", second, err)
	}
	if !reflect.DeepEqual(h.Loaded(), []string{first}) {
		t.Errorf("Loaded() = %v", h.Loaded())
	}

	bus.Publish(events.TopicStatusLineRefresh, nil)
	if out.String() != "status\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestHost_CloseUnsubscribes(t *testing.T) {
	h, bus, _ := newTestHost(t)

	if err := h.Run(`
		bus.subscribe("view.refresh", function() end)
		bus.subscribe_prefix("", function() end)
	`); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if bus.Registry().Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bus.Registry().Len())
	}

	h.Close()
	if bus.Registry().Len() != 0 {
		t.Errorf("Close left %d subscriptions", bus.Registry().Len())
	}
	if err := h.Run(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Run after Close = %v, want ErrStateClosed", err)
	}
	h.Close()
}

func TestHost_RestrictedLibraries(t *testing.T) {
	h, _, _ := newTestHost(t)

	for _, name := range []string{"os", "io", "dofile", "loadfile", "load"} {
		if h.state.L.GetGlobal(name) != lua.LNil {
			t.Errorf("%s should not be available", name)
		}
	}
}

func TestToGo(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(`
		cyclic = {}
		cyclic.self = cyclic
		mixed = {1, 2, x = 3}
	`); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   lua.LValue
		want any
	}{
		{"nil", lua.LNil, nil},
		{"bool", lua.LTrue, true},
		{"int", lua.LNumber(4), int64(4)},
		{"float", lua.LNumber(1.5), 1.5},
		{"string", lua.LString("s"), "s"},
		{"empty table", L.NewTable(), map[string]any{}},
		{"cyclic", L.GetGlobal("cyclic"), map[string]any{"self": nil}},
		{"mixed", L.GetGlobal("mixed"), map[string]any{"1": int64(1), "2": int64(2), "x": int64(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToGo(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToGo() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToLua_Struct(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	change := events.FileChange{Path: "/a.go", Action: events.FileActionCreated}
	tbl, ok := ToLua(L, change).(*lua.LTable)
	if !ok {
		t.Fatalf("expected a table")
	}
	if tbl.RawGetString("path").String() != "/a.go" || tbl.RawGetString("action").String() != "created" {
		t.Errorf("unexpected table fields")
	}

	doc, _ := ToLua(L, &events.Document{ID: "d1"}).(*lua.LTable)
	if doc == nil || doc.RawGetString("id").String() != "d1" {
		t.Errorf("pointer to struct should convert with snake_case fields")
	}

	if ToLua(L, errors.New("boom")).String() != "boom" {
		t.Error("errors convert to their message")
	}
	if ToLua(L, topic.Topic("a.b")).String() != "a.b" {
		t.Error("named strings convert to strings")
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Path":       "path",
		"ID":         "id",
		"DebounceMS": "debounce_ms",
		"HTTPServer": "http_server",
		"LogLines":   "log_lines",
	}
	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
