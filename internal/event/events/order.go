package events

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

//go:embed order.toml
var orderTOML []byte

// orderFile is the layout of order.toml.
type orderFile struct {
	EndOfAction struct {
		Order []string `toml:"order"`
	} `toml:"end_of_action"`
}

var defaultOrder = sync.OnceValues(func() (event.OrderPolicy, error) {
	return ParseOrder(orderTOML)
})

// Order returns the application's end-of-action order policy.
func Order() (event.OrderPolicy, error) {
	return defaultOrder()
}

// ParseOrder parses an order policy document. Unknown keys are rejected so a
// misspelled table does not silently produce an empty order.
func ParseOrder(data []byte) (event.OrderPolicy, error) {
	var f orderFile
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return event.OrderPolicy{}, fmt.Errorf("parsing order policy: %w", err)
	}

	topics := make([]topic.Topic, len(f.EndOfAction.Order))
	for i, name := range f.EndOfAction.Order {
		topics[i] = topic.Topic(name)
	}
	policy, err := event.NewOrderPolicy(topics...)
	if err != nil {
		return event.OrderPolicy{}, fmt.Errorf("parsing order policy: %w", err)
	}
	return policy, nil
}
