package event

import (
	"fmt"
	"slices"

	"github.com/dshills/actionbus/internal/event/topic"
)

// OrderPolicy is the fixed flush order for end-of-action events.
// It is built once and never changes.
type OrderPolicy struct {
	topics []topic.Topic
	index  map[topic.Topic]int
}

// NewOrderPolicy creates a policy that flushes topics in the given order.
// Blank topics and duplicates are rejected.
func NewOrderPolicy(topics ...topic.Topic) (OrderPolicy, error) {
	p := OrderPolicy{
		topics: slices.Clone(topics),
		index:  make(map[topic.Topic]int, len(topics)),
	}
	for i, t := range topics {
		if t.IsBlank() {
			return OrderPolicy{}, fmt.Errorf("order policy entry %d: %w", i, ErrInvalidTopic)
		}
		if _, dup := p.index[t]; dup {
			return OrderPolicy{}, fmt.Errorf("order policy %q: %w", t, ErrDuplicateOrder)
		}
		p.index[t] = i
	}
	return p, nil
}

// MustOrderPolicy is like NewOrderPolicy but panics on error.
func MustOrderPolicy(topics ...topic.Topic) OrderPolicy {
	p, err := NewOrderPolicy(topics...)
	if err != nil {
		panic(err)
	}
	return p
}

// Topics returns a copy of the ordered topic list.
func (p OrderPolicy) Topics() []topic.Topic {
	return slices.Clone(p.topics)
}

// Index returns the flush position of t, or -1 if t has no order.
func (p OrderPolicy) Index(t topic.Topic) int {
	if i, ok := p.index[t]; ok {
		return i
	}
	return -1
}

// Contains returns true if t has a flush position.
func (p OrderPolicy) Contains(t topic.Topic) bool {
	_, ok := p.index[t]
	return ok
}

// Len returns the number of ordered topics.
func (p OrderPolicy) Len() int {
	return len(p.topics)
}
