package event

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Registry manages exact-topic and prefix subscriptions.
//
// Each key maps to a set of handlers. A key whose set becomes empty is removed,
// so enumeration and existence checks always agree. The lock is held only
// while the maps are read or changed, never while a handler runs.
type Registry struct {
	mu       sync.RWMutex
	exact    map[topic.Topic][]Handler
	prefix   map[string][]PrefixHandler
	prefixes *topic.PrefixTrie
}

// NewRegistry creates a new subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:    make(map[topic.Topic][]Handler),
		prefix:   make(map[string][]PrefixHandler),
		prefixes: topic.NewPrefixTrie(),
	}
}

// SubscribeExact adds h to the handlers of topic t.
// Subscribing a handler that is already present is a no-op.
func (r *Registry) SubscribeExact(t topic.Topic, h Handler) error {
	if t.IsBlank() {
		return fmt.Errorf("subscribe %q: %w", t, ErrInvalidTopic)
	}
	if err := checkHandler(h); err != nil {
		return fmt.Errorf("subscribe %q: %w", t, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := r.exact[t]
	if slices.Contains(handlers, h) {
		return nil
	}
	r.exact[t] = append(handlers, h)
	return nil
}

// SubscribePrefix adds h to the handlers of every topic starting with prefix.
// The empty prefix matches all topics.
func (r *Registry) SubscribePrefix(prefix string, h PrefixHandler) error {
	if err := checkHandler(h); err != nil {
		return fmt.Errorf("subscribe prefix %q: %w", prefix, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := r.prefix[prefix]
	if slices.Contains(handlers, h) {
		return nil
	}
	r.prefix[prefix] = append(handlers, h)
	r.prefixes.Insert(prefix)
	return nil
}

// UnsubscribeExact removes h from topic t. Unknown topics or handlers are
// ignored.
func (r *Registry) UnsubscribeExact(t topic.Topic, h Handler) {
	if checkHandler(h) != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeExact(t, h)
}

// UnsubscribePrefix removes h from prefix. Unknown prefixes or handlers are
// ignored.
func (r *Registry) UnsubscribePrefix(prefix string, h PrefixHandler) {
	if checkHandler(h) != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removePrefix(prefix, h)
}

// removeExact deletes h and drops the key once its set is empty.
// The caller must hold the write lock.
func (r *Registry) removeExact(t topic.Topic, h Handler) {
	handlers, ok := r.exact[t]
	if !ok {
		return
	}
	i := slices.Index(handlers, h)
	if i < 0 {
		return
	}
	// Build a new slice; snapshots handed out earlier share the old array
	handlers = slices.Delete(slices.Clone(handlers), i, i+1)
	if len(handlers) == 0 {
		delete(r.exact, t)
		return
	}
	r.exact[t] = handlers
}

// removePrefix deletes h and drops the prefix once its set is empty.
// The caller must hold the write lock.
func (r *Registry) removePrefix(prefix string, h PrefixHandler) {
	handlers, ok := r.prefix[prefix]
	if !ok {
		return
	}
	i := slices.Index(handlers, h)
	if i < 0 {
		return
	}
	handlers = slices.Delete(slices.Clone(handlers), i, i+1)
	if len(handlers) == 0 {
		delete(r.prefix, prefix)
		r.prefixes.Delete(prefix)
		return
	}
	r.prefix[prefix] = handlers
}

// prefixMatch is one matching prefix and a snapshot of its handlers.
type prefixMatch struct {
	prefix   string
	handlers []PrefixHandler
}

// resolve snapshots the handlers that a message on topic t must reach.
// Registered slices are never mutated in place, so sharing them is safe.
func (r *Registry) resolve(t topic.Topic) ([]Handler, []prefixMatch) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exact := r.exact[t]

	var matches []prefixMatch
	for _, p := range r.prefixes.Match(t) {
		if handlers := r.prefix[p]; len(handlers) > 0 {
			matches = append(matches, prefixMatch{prefix: p, handlers: handlers})
		}
	}
	return exact, matches
}

// prune removes every expired weak handler. Returns the number removed.
func (r *Registry) prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for t, handlers := range r.exact {
		for _, h := range handlers {
			if isExpired(h) {
				r.removeExact(t, h)
				removed++
			}
		}
	}
	for p, handlers := range r.prefix {
		for _, h := range handlers {
			if isExpired(h) {
				r.removePrefix(p, h)
				removed++
			}
		}
	}
	return removed
}

// SnapshotExact returns a copy of the exact subscriptions.
// Changing the result does not affect the registry.
func (r *Registry) SnapshotExact() map[topic.Topic][]Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[topic.Topic][]Handler, len(r.exact))
	for t, handlers := range r.exact {
		result[t] = slices.Clone(handlers)
	}
	return result
}

// SnapshotPrefix returns a copy of the prefix subscriptions.
func (r *Registry) SnapshotPrefix() map[string][]PrefixHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]PrefixHandler, len(r.prefix))
	for p, handlers := range r.prefix {
		result[p] = slices.Clone(handlers)
	}
	return result
}

// HasExact returns true if topic t has at least one exact handler.
func (r *Registry) HasExact(t topic.Topic) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.exact[t]
	return ok
}

// HasPrefix returns true if prefix has at least one handler.
func (r *Registry) HasPrefix(prefix string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.prefix[prefix]
	return ok
}

// Len returns the total number of registrations, exact and prefix.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, handlers := range r.exact {
		count += len(handlers)
	}
	for _, handlers := range r.prefix {
		count += len(handlers)
	}
	return count
}

// Topics returns the exact topics with subscribers, sorted.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.exact) == 0 {
		return nil
	}
	topics := make([]topic.Topic, 0, len(r.exact))
	for t := range r.exact {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// Prefixes returns the prefixes with subscribers, sorted.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.prefix) == 0 {
		return nil
	}
	prefixes := make([]string, 0, len(r.prefix))
	for p := range r.prefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Clear removes all subscriptions.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exact = make(map[topic.Topic][]Handler)
	r.prefix = make(map[string][]PrefixHandler)
	r.prefixes.Clear()
}
