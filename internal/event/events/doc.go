// Package events declares the topics published on the application bus and the
// fixed end-of-action flush order.
//
// Topics with a known payload are declared as typed keys and should be used
// through event.PublishTyped, event.DeferTyped and event.SubscribeTyped:
//
//   - document.active.changed: Document
//   - cursor.moved: Position
//   - selection.changed: Selection
//   - project.file.changed: FileChange
//   - config.changed: ConfigChange
//   - input.key.pressed: Key
//
// The remaining topics are dynamic and carry an untyped payload:
//
//   - view.refresh and statusline.refresh: nil, or a reason string
//   - project.files.changed: nil
//   - plugin.*: whatever a script publishes (map[string]any for Lua tables)
//
// # Topic Naming Convention
//
// Topics follow a dot-notation so that prefix subscriptions select a group:
//
//	<module>.<entity>.<action>
//
// A subscription on the prefix "project." receives every project topic.
// Prefixes are literal; there are no wildcards.
//
// # End of Action
//
// order.toml lists the topics that may be deferred, in flush order. It is
// compiled into the binary; a deferred topic missing from it is reported as an
// event.UnorderedError when the action ends.
package events
