package topic

// PrefixTrie indexes literal prefixes so that all prefixes of a topic can be
// found in a single walk over the topic's bytes.
//
// PrefixTrie is not safe for concurrent use; the owner guards it.
type PrefixTrie struct {
	root *trieNode
	size int
}

// trieNode represents a node in the prefix trie.
type trieNode struct {
	children map[byte]*trieNode
	terminal bool // a registered prefix ends here
}

// newTrieNode creates a new trie node.
func newTrieNode() *trieNode {
	return &trieNode{
		children: make(map[byte]*trieNode),
	}
}

// isEmpty returns true if the node has no children and ends no prefix.
func (n *trieNode) isEmpty() bool {
	return len(n.children) == 0 && !n.terminal
}

// NewPrefixTrie creates an empty prefix trie.
func NewPrefixTrie() *PrefixTrie {
	return &PrefixTrie{root: newTrieNode()}
}

// Insert adds a prefix. The empty prefix is allowed and matches every topic.
// Returns true if the prefix was added, false if it already existed.
func (t *PrefixTrie) Insert(prefix string) bool {
	if t.root == nil {
		t.root = newTrieNode()
	}

	node := t.root
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		child := node.children[c]
		if child == nil {
			child = newTrieNode()
			node.children[c] = child
		}
		node = child
	}

	if node.terminal {
		return false
	}
	node.terminal = true
	t.size++
	return true
}

// pathEntry tracks a node and the byte used to reach it during traversal.
type pathEntry struct {
	node *trieNode
	key  byte
}

// Delete removes a prefix and prunes nodes that no longer lead anywhere.
// Returns true if the prefix was removed, false if it didn't exist.
func (t *PrefixTrie) Delete(prefix string) bool {
	if t.root == nil {
		return false
	}

	path := make([]pathEntry, 0, len(prefix)+1)
	path = append(path, pathEntry{node: t.root})

	node := t.root
	for i := 0; i < len(prefix); i++ {
		child := node.children[prefix[i]]
		if child == nil {
			return false
		}
		path = append(path, pathEntry{node: child, key: prefix[i]})
		node = child
	}

	if !node.terminal {
		return false
	}
	node.terminal = false
	t.size--

	// Prune empty nodes bottom-up, never the root
	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].key)
	}

	return true
}

// Match returns every registered prefix that is a leading substring of the
// topic, shortest first.
func (t *PrefixTrie) Match(topic Topic) []string {
	if t.root == nil || t.size == 0 {
		return nil
	}

	s := string(topic)
	var matches []string

	node := t.root
	if node.terminal {
		matches = append(matches, "")
	}
	for i := 0; i < len(s); i++ {
		node = node.children[s[i]]
		if node == nil {
			break
		}
		if node.terminal {
			matches = append(matches, s[:i+1])
		}
	}
	return matches
}

// Contains returns true if the exact prefix is registered.
func (t *PrefixTrie) Contains(prefix string) bool {
	if t.root == nil {
		return false
	}
	node := t.root
	for i := 0; i < len(prefix); i++ {
		node = node.children[prefix[i]]
		if node == nil {
			return false
		}
	}
	return node.terminal
}

// Len returns the number of registered prefixes.
func (t *PrefixTrie) Len() int {
	return t.size
}

// Clear removes all prefixes.
func (t *PrefixTrie) Clear() {
	t.root = newTrieNode()
	t.size = 0
}
