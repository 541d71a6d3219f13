package event

import (
	"reflect"
	"weak"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Handler receives the payload of messages published to an exact topic.
//
// Handler identity is Go interface equality: subscribing the same handler
// value twice to one topic registers it once. The dynamic type must be
// comparable, so implement Handler on a pointer type or wrap a function with
// Func.
type Handler interface {
	Handle(payload any) error
}

// PrefixHandler receives messages whose topic starts with a subscribed prefix.
// The same identity rules as Handler apply.
type PrefixHandler interface {
	HandlePrefix(t topic.Topic, payload any) error
}

// FuncHandler adapts a function to Handler. Each FuncHandler created by Func
// is a distinct identity, even when built from the same function.
type FuncHandler struct {
	fn func(payload any) error
}

// Func wraps fn in a Handler with a stable identity. Keep the returned value
// to unsubscribe later.
func Func(fn func(payload any) error) *FuncHandler {
	return &FuncHandler{fn: fn}
}

// Handle implements Handler.
func (h *FuncHandler) Handle(payload any) error {
	return h.fn(payload)
}

func (h *FuncHandler) isNil() bool { return h.fn == nil }

// PrefixFuncHandler adapts a function to PrefixHandler.
type PrefixFuncHandler struct {
	fn func(t topic.Topic, payload any) error
}

// PrefixFunc wraps fn in a PrefixHandler with a stable identity.
func PrefixFunc(fn func(t topic.Topic, payload any) error) *PrefixFuncHandler {
	return &PrefixFuncHandler{fn: fn}
}

// HandlePrefix implements PrefixHandler.
func (h *PrefixFuncHandler) HandlePrefix(t topic.Topic, payload any) error {
	return h.fn(t, payload)
}

func (h *PrefixFuncHandler) isNil() bool { return h.fn == nil }

// expirer is implemented by handlers that can outlive their owner.
// Expired handlers are skipped by the dispatcher and pruned from the registry.
type expirer interface {
	Expired() bool
}

// weakHandler holds its owner through a weak pointer, so a subscriber that is
// dropped without unsubscribing is never called again.
type weakHandler[T any] struct {
	owner weak.Pointer[T]
	fn    func(owner *T, payload any) error
}

// Weak returns a Handler that calls fn with owner for as long as owner is
// reachable elsewhere. The bus does not keep owner alive.
func Weak[T any](owner *T, fn func(owner *T, payload any) error) Handler {
	return &weakHandler[T]{owner: weak.Make(owner), fn: fn}
}

// Handle implements Handler.
func (h *weakHandler[T]) Handle(payload any) error {
	owner := h.owner.Value()
	if owner == nil {
		return nil
	}
	return h.fn(owner, payload)
}

// Expired reports whether the owner has been collected.
func (h *weakHandler[T]) Expired() bool {
	return h.owner.Value() == nil
}

// weakPrefixHandler is the PrefixHandler counterpart of weakHandler.
type weakPrefixHandler[T any] struct {
	owner weak.Pointer[T]
	fn    func(owner *T, t topic.Topic, payload any) error
}

// WeakPrefix returns a PrefixHandler bound weakly to owner.
func WeakPrefix[T any](owner *T, fn func(owner *T, t topic.Topic, payload any) error) PrefixHandler {
	return &weakPrefixHandler[T]{owner: weak.Make(owner), fn: fn}
}

// HandlePrefix implements PrefixHandler.
func (h *weakPrefixHandler[T]) HandlePrefix(t topic.Topic, payload any) error {
	owner := h.owner.Value()
	if owner == nil {
		return nil
	}
	return h.fn(owner, t, payload)
}

// Expired reports whether the owner has been collected.
func (h *weakPrefixHandler[T]) Expired() bool {
	return h.owner.Value() == nil
}

// nilFunc is implemented by function adapters that may wrap a nil function.
type nilFunc interface {
	isNil() bool
}

// isExpired returns true for weak handlers whose owner is gone.
func isExpired(h any) bool {
	e, ok := h.(expirer)
	return ok && e.Expired()
}

// checkHandler validates that h can be stored and compared by identity.
func checkHandler(h any) error {
	if h == nil {
		return ErrNilHandler
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return ErrNilHandler
		}
	}
	if f, ok := h.(nilFunc); ok && f.isNil() {
		return ErrNilHandler
	}
	if !comparableValue(v) {
		return ErrUncomparableHandler
	}
	return nil
}

// comparableValue reports whether v can be compared with == without panicking.
// Interface fields are checked by their dynamic value, so a comparable struct
// type holding a slice in an interface field is rejected.
func comparableValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || comparableValue(v.Elem())
	case reflect.Struct:
		for i := range v.NumField() {
			if !comparableValue(v.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := range v.Len() {
			if !comparableValue(v.Index(i)) {
				return false
			}
		}
		return v.Type().Comparable()
	default:
		return v.Type().Comparable()
	}
}
