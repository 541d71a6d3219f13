// Package topic provides the topic type and literal prefix matching for the
// event bus.
//
// # Topic Format
//
// Topics are plain strings. Dot notation is a convention that keeps prefix
// subscriptions readable:
//
//	document.active.changed
//	selection.changed
//	project.file.changed
//	plugin.outline.refreshed
//
// # Prefix Matching
//
// A prefix subscription matches every topic that starts with the prefix text.
// There are no wildcards and no segment rules: "selection." matches
// "selection.changed", and "sel" matches it as well.
//
// The PrefixTrie finds all registered prefixes of a topic in one pass over the
// topic's bytes:
//
//	tr := topic.NewPrefixTrie()
//	tr.Insert("selection.")
//	tr.Insert("sel")
//
//	tr.Match(topic.Topic("selection.changed"))
//	// ["sel", "selection."]
package topic
