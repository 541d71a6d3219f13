package event

import (
	"fmt"
	"slices"

	"github.com/tidwall/sjson"

	"github.com/dshills/actionbus/internal/event/topic"
)

// Snapshot is a point-in-time view of a Bus for diagnostics.
type Snapshot struct {
	// Exact lists exact topics with their handler counts, sorted by topic.
	Exact []TopicCount

	// Prefix lists prefixes with their handler counts, sorted by prefix.
	Prefix []TopicCount

	// Pending lists deferred topics waiting for the next flush.
	Pending []topic.Topic

	// Armed is true while an end-of-action flush is scheduled.
	Armed bool

	// Order is the end-of-action flush order.
	Order []topic.Topic

	Dispatch    DispatcherStats
	EndOfAction CoordinatorStats
}

// TopicCount is a topic or prefix with its number of handlers.
type TopicCount struct {
	Name     string
	Handlers int
}

// Snapshot returns the current state of the bus.
func (b *Bus) Snapshot() Snapshot {
	exact := b.registry.SnapshotExact()
	prefix := b.registry.SnapshotPrefix()

	s := Snapshot{
		Pending:     b.coordinator.Pending(),
		Armed:       b.coordinator.Armed(),
		Order:       b.coordinator.Policy().Topics(),
		Dispatch:    b.dispatcher.Stats(),
		EndOfAction: b.coordinator.Stats(),
	}
	for _, t := range sortedKeys(exact) {
		s.Exact = append(s.Exact, TopicCount{Name: string(t), Handlers: len(exact[t])})
	}
	for _, p := range sortedKeys(prefix) {
		s.Prefix = append(s.Prefix, TopicCount{Name: p, Handlers: len(prefix[p])})
	}
	return s
}

// JSON renders the snapshot as a JSON document.
func (s Snapshot) JSON() (string, error) {
	doc := `{"exact":[],"prefix":[],"pending":[],"order":[]}`

	type field struct {
		path  string
		value any
	}
	var fields []field
	for i, tc := range s.Exact {
		fields = append(fields,
			field{fmt.Sprintf("exact.%d.topic", i), tc.Name},
			field{fmt.Sprintf("exact.%d.handlers", i), tc.Handlers})
	}
	for i, tc := range s.Prefix {
		fields = append(fields,
			field{fmt.Sprintf("prefix.%d.prefix", i), tc.Name},
			field{fmt.Sprintf("prefix.%d.handlers", i), tc.Handlers})
	}
	for i, t := range s.Pending {
		fields = append(fields, field{fmt.Sprintf("pending.%d", i), string(t)})
	}
	for i, t := range s.Order {
		fields = append(fields, field{fmt.Sprintf("order.%d", i), string(t)})
	}
	fields = append(fields,
		field{"armed", s.Armed},
		field{"dispatch.dispatched", s.Dispatch.Dispatched},
		field{"dispatch.delivered", s.Dispatch.Delivered},
		field{"dispatch.handler_errors", s.Dispatch.HandlerErrors},
		field{"dispatch.rejected_batches", s.Dispatch.RejectedBatches},
		field{"dispatch.pruned", s.Dispatch.Pruned},
		field{"end_of_action.arms", s.EndOfAction.Arms},
		field{"end_of_action.flushes", s.EndOfAction.Flushes},
		field{"end_of_action.unordered", s.EndOfAction.Unordered},
	)

	var err error
	for _, f := range fields {
		doc, err = sjson.Set(doc, f.path, f.value)
		if err != nil {
			return "", fmt.Errorf("snapshot %s: %w", f.path, err)
		}
	}
	return doc, nil
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
