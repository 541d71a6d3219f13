// Package event provides the in-process publish/subscribe bus.
//
// Components talk to each other by topic name instead of holding references
// to each other. A message is delivered either immediately, or at the end of
// the current user action together with everything else queued during that
// action.
//
// # Architecture
//
//	      ┌───────────────────────────────┐
//	      │              Bus              │
//	      │  Publish / PublishAll         │
//	      │  DeferPublish                 │
//	      └───────────────────────────────┘
//	           │                    │
//	           ▼                    ▼
//	┌──────────────────┐   ┌──────────────────┐
//	│    Dispatcher    │◄──│   Coordinator    │
//	│  exact + prefix  │   │  end of action   │
//	└──────────────────┘   │  OrderPolicy     │
//	           │           └──────────────────┘
//	           ▼                    │
//	┌──────────────────┐            ▼
//	│     Registry     │       Scheduler
//	│  topic -> set    │    (host idle loop)
//	│  prefix -> set   │
//	└──────────────────┘
//
// # Subscriptions
//
// Exact handlers receive the payload of one topic. Prefix handlers receive the
// topic and payload of every topic that starts with a literal prefix:
//
//	bus.SubscribeExact("selection.changed", onSelection)
//	bus.SubscribePrefix("selection.", event.PrefixFunc(logSelection))
//
// Subscriptions are sets: subscribing the same handler twice is a no-op, and
// unsubscribing a handler that is not subscribed is a no-op. Wrap functions
// with Func or PrefixFunc to give them an identity you can unsubscribe with.
//
// For each publish, exact handlers run before prefix handlers. There is no
// defined order among handlers of the same topic.
//
// # End of Action
//
// DeferPublish queues a message until the host's next idle point. The first
// deferred message of an action asks the Scheduler for one callback; later
// ones overwrite the pending payload of their topic. At flush time, topics are
// delivered in the order declared by the OrderPolicy:
//
//	policy := event.MustOrderPolicy("document.active.changed", "selection.changed")
//	bus := event.NewBus(loop, policy)
//
//	bus.DeferPublish("selection.changed", sel)
//	bus.DeferPublish("document.active.changed", doc)
//	// at idle: document.active.changed, then selection.changed
//
// A deferred topic missing from the policy is reported as an *UnorderedError
// after the ordered topics have been delivered.
//
// # Typed Topics
//
// Topics with a fixed payload type are declared as keys:
//
//	var SelectionChanged = event.NewKey[Selection]("selection.changed")
//
//	event.SubscribeTyped(bus, SelectionChanged, func(s Selection) error { ... })
//	event.DeferTyped(bus, SelectionChanged, sel)
//
// # Errors
//
// Handler errors stop the current dispatch and are returned to the publisher
// (or to the scheduler for end-of-action flushes) as *HandlerError. The bus
// does not log or swallow them.
//
// # Thread Safety
//
// The bus is designed for the host's UI goroutine. Registry and coordinator
// state is locked, but locks are never held while handlers run, and a second
// batch dispatch fails with ErrReentrantBatch instead of waiting.
package event
