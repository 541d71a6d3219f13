package lua

import (
	"slices"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

// Bus is the part of event.Bus exposed to scripts.
type Bus interface {
	SubscribeExact(t topic.Topic, h event.Handler) error
	SubscribePrefix(prefix string, h event.PrefixHandler) error
	UnsubscribeExact(t topic.Topic, h event.Handler)
	UnsubscribePrefix(prefix string, h event.PrefixHandler)
	Publish(t topic.Topic, payload any) error
	DeferPublish(t topic.Topic, payload any) error
}

// subscription is a Lua function registered on the bus.
type subscription struct {
	topic  topic.Topic // exact subscriptions
	prefix string      // prefix subscriptions
	exact  event.Handler
	pfx    event.PrefixHandler
}

// BusModule installs the global bus table into a State.
type BusModule struct {
	state *State
	bus   Bus

	subs map[string]subscription
}

// NewBusModule creates the module. Call Register to install it.
func NewBusModule(state *State, bus Bus) *BusModule {
	return &BusModule{
		state: state,
		bus:   bus,
		subs:  make(map[string]subscription),
	}
}

// Register installs the bus table as a global.
func (m *BusModule) Register() {
	L := m.state.L
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"subscribe":        m.subscribe,
		"subscribe_prefix": m.subscribePrefix,
		"unsubscribe":      m.unsubscribe,
		"publish":          m.publish,
		"defer":            m.deferPublish,
	})
	L.SetGlobal("bus", mod)
}

// Subscriptions returns the ids of the live subscriptions, sorted.
func (m *BusModule) Subscriptions() []string {
	ids := make([]string, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Cleanup removes every subscription made by scripts.
func (m *BusModule) Cleanup() {
	for id, sub := range m.subs {
		m.remove(sub)
		delete(m.subs, id)
	}
}

// subscribe(topic, fn) -> id
func (m *BusModule) subscribe(L *lua.LState) int {
	t := topic.Topic(L.CheckString(1))
	fn := L.CheckFunction(2)
	id := uuid.NewString()

	h := event.Func(func(payload any) error {
		return m.state.CallFunction(id, fn, ToLua(m.state.L, payload))
	})
	if err := m.bus.SubscribeExact(t, h); err != nil {
		L.RaiseError("subscribe: %v", err)
		return 0
	}

	m.subs[id] = subscription{topic: t, exact: h}
	L.Push(lua.LString(id))
	return 1
}

// subscribe_prefix(prefix, fn) -> id
func (m *BusModule) subscribePrefix(L *lua.LState) int {
	prefix := L.CheckString(1)
	fn := L.CheckFunction(2)
	id := uuid.NewString()

	h := event.PrefixFunc(func(t topic.Topic, payload any) error {
		return m.state.CallFunction(id, fn, lua.LString(t), ToLua(m.state.L, payload))
	})
	if err := m.bus.SubscribePrefix(prefix, h); err != nil {
		L.RaiseError("subscribe_prefix: %v", err)
		return 0
	}

	m.subs[id] = subscription{prefix: prefix, pfx: h}
	L.Push(lua.LString(id))
	return 1
}

// unsubscribe(id) -> bool
func (m *BusModule) unsubscribe(L *lua.LState) int {
	id := L.CheckString(1)
	sub, ok := m.subs[id]
	if ok {
		m.remove(sub)
		delete(m.subs, id)
	}
	L.Push(lua.LBool(ok))
	return 1
}

// publish(topic, data?)
func (m *BusModule) publish(L *lua.LState) int {
	t := topic.Topic(L.CheckString(1))
	if err := m.bus.Publish(t, ToGo(L.Get(2))); err != nil {
		L.RaiseError("publish %s: %v", t, err)
	}
	return 0
}

// defer(topic, data?)
func (m *BusModule) deferPublish(L *lua.LState) int {
	t := topic.Topic(L.CheckString(1))
	if err := m.bus.DeferPublish(t, ToGo(L.Get(2))); err != nil {
		L.RaiseError("defer %s: %v", t, err)
	}
	return 0
}

func (m *BusModule) remove(sub subscription) {
	if sub.exact != nil {
		m.bus.UnsubscribeExact(sub.topic, sub.exact)
		return
	}
	m.bus.UnsubscribePrefix(sub.prefix, sub.pfx)
}
