package topic

import (
	"reflect"
	"testing"
)

func TestPrefixTrie_ZeroValue(t *testing.T) {
	var trie PrefixTrie

	if trie.Contains("sel") {
		t.Error("Contains should return false for zero-value trie")
	}
	if trie.Delete("sel") {
		t.Error("Delete should return false for zero-value trie")
	}
	if matches := trie.Match(Topic("selection.changed")); len(matches) != 0 {
		t.Errorf("Match should return nothing for zero-value trie, got %v", matches)
	}
	if trie.Len() != 0 {
		t.Errorf("Len() = %d, want 0", trie.Len())
	}

	if !trie.Insert("sel") {
		t.Error("Insert should succeed on zero-value trie")
	}
	if !trie.Contains("sel") {
		t.Error("Contains should return true after insert")
	}
}

func TestPrefixTrie_Insert(t *testing.T) {
	trie := NewPrefixTrie()

	tests := []struct {
		prefix   string
		expected bool
	}{
		{"selection.", true},
		{"selection.changed", true},
		{"document.", true},
		{"selection.", false}, // duplicate
		{"", true},            // empty prefix is allowed
		{"", false},
	}

	for _, tt := range tests {
		if got := trie.Insert(tt.prefix); got != tt.expected {
			t.Errorf("Insert(%q) = %v, want %v", tt.prefix, got, tt.expected)
		}
	}

	if trie.Len() != 4 {
		t.Errorf("Len() = %d, want 4", trie.Len())
	}
}

func TestPrefixTrie_Match(t *testing.T) {
	trie := NewPrefixTrie()
	for _, p := range []string{"sel", "selection.", "selection.changed", "doc", "selection.cleared"} {
		trie.Insert(p)
	}

	tests := []struct {
		topic    Topic
		expected []string
	}{
		{"selection.changed", []string{"sel", "selection.", "selection.changed"}},
		{"selection.changed.extra", []string{"sel", "selection.", "selection.changed"}},
		{"selection.cleared", []string{"sel", "selection.", "selection.cleared"}},
		{"select", []string{"sel"}},
		{"se", nil},
		{"document.saved", []string{"doc"}},
		{"cursor.moved", nil},
		{"Selection.changed", nil}, // case-sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			got := trie.Match(tt.topic)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Match(%q) = %v, want %v", tt.topic, got, tt.expected)
			}
		})
	}
}

func TestPrefixTrie_MatchEmptyPrefix(t *testing.T) {
	trie := NewPrefixTrie()
	trie.Insert("")
	trie.Insert("a")

	got := trie.Match(Topic("abc"))
	want := []string{"", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match = %v, want %v", got, want)
	}

	got = trie.Match(Topic("xyz"))
	if !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("Match = %v, want [\"\"]", got)
	}
}

func TestPrefixTrie_Delete(t *testing.T) {
	trie := NewPrefixTrie()
	trie.Insert("selection.")
	trie.Insert("selection.changed")

	if trie.Delete("selection") {
		t.Error("Delete of unregistered interior prefix should return false")
	}
	if !trie.Delete("selection.") {
		t.Error("Delete of registered prefix should return true")
	}
	if trie.Delete("selection.") {
		t.Error("second Delete should return false")
	}

	// The longer prefix must survive removal of its ancestor
	got := trie.Match(Topic("selection.changed"))
	if !reflect.DeepEqual(got, []string{"selection.changed"}) {
		t.Errorf("Match after delete = %v", got)
	}

	if !trie.Delete("selection.changed") {
		t.Error("Delete should return true")
	}
	if trie.Len() != 0 {
		t.Errorf("Len() = %d, want 0", trie.Len())
	}
	if len(trie.root.children) != 0 {
		t.Errorf("expected pruned root, got %d children", len(trie.root.children))
	}
}

func TestPrefixTrie_Clear(t *testing.T) {
	trie := NewPrefixTrie()
	trie.Insert("a")
	trie.Insert("b")
	trie.Clear()

	if trie.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", trie.Len())
	}
	if trie.Contains("a") {
		t.Error("Contains should return false after Clear")
	}
}
