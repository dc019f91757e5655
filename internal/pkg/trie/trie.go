package trie

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TrieNode is keyed by lowercased runes. Display keeps the spelling a term
// was first inserted with so suggestions come back as users wrote them.
type TrieNode struct {
	Children    map[rune]*TrieNode
	ChildrenArr []rune
	IsEnd       bool
	Display     string
	Hits        int
}

type Trie struct {
	Root *TrieNode
	mu   sync.RWMutex
}

func NewTrie() *Trie {
	return &Trie{Root: &TrieNode{Children: make(map[rune]*TrieNode)}}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Insert adds key with the given number of hits. Inserting an existing key
// adds to its hits and keeps the original display form.
func (t *Trie) Insert(key string, hits int) {
	folded := fold(key)
	if folded == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	node := t.Root
	for _, ch := range folded {
		if _, exists := node.Children[ch]; !exists {
			node.Children[ch] = &TrieNode{Children: make(map[rune]*TrieNode)}
			node.ChildrenArr = append(node.ChildrenArr, ch)
		}
		node = node.Children[ch]
	}
	if !node.IsEnd {
		node.IsEnd = true
		node.Display = strings.TrimSpace(key)
	}
	node.Hits += hits
}

type match struct {
	display string
	hits    int
	depth   int
}

// SearchPrefix returns up to limit display forms under prefix, most hits
// first, then shorter terms, then alphabetical. It returns nil when no term
// starts with prefix.
func (t *Trie) SearchPrefix(prefix string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	node := t.Root
	for _, ch := range fold(prefix) {
		child, exists := node.Children[ch]
		if !exists {
			return nil
		}
		node = child
	}

	matches := t.collect(node)
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].hits != matches[j].hits {
			return matches[i].hits > matches[j].hits
		}
		if matches[i].depth != matches[j].depth {
			return matches[i].depth < matches[j].depth
		}
		return matches[i].display < matches[j].display
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]string, len(matches))
	for i, m := range matches {
		results[i] = m.display
	}
	return results
}

// collect walks the subtree breadth first.
func (t *Trie) collect(root *TrieNode) []match {
	type entry struct {
		node  *TrieNode
		depth int
	}

	var out []match
	queue := []entry{{root, 0}}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if curr.node.IsEnd {
			out = append(out, match{display: curr.node.Display, hits: curr.node.Hits, depth: curr.depth})
		}
		for _, ch := range curr.node.ChildrenArr {
			queue = append(queue, entry{node: curr.node.Children[ch], depth: curr.depth + 1})
		}
	}
	return out
}

// Remove deletes key from the trie.
// Returns an error if key was not found.
func (t *Trie) Remove(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	runes := []rune(fold(key))
	node := t.Root
	for _, ch := range runes {
		child, ok := node.Children[ch]
		if !ok {
			return fmt.Errorf("key %q not found in trie", key)
		}
		node = child
	}
	if !node.IsEnd {
		return fmt.Errorf("key %q not found in trie", key)
	}

	t.removeNode(t.Root, runes, 0)
	return nil
}

// removeNode walks down to depth, unmarks or deletes, and
// returns true if the caller should delete its reference
func (t *Trie) removeNode(node *TrieNode, runes []rune, depth int) bool {
	if depth == len(runes) {
		node.IsEnd = false
		node.Display = ""
		node.Hits = 0
	} else {
		ch := runes[depth]
		child := node.Children[ch]
		if shouldDelete := t.removeNode(child, runes, depth+1); shouldDelete {
			delete(node.Children, ch)
			for i, c := range node.ChildrenArr {
				if c == ch {
					node.ChildrenArr = append(node.ChildrenArr[:i], node.ChildrenArr[i+1:]...)
					break
				}
			}
		}
	}
	return !node.IsEnd && len(node.Children) == 0
}

// Update renames a key, carrying its hits over. It errors if oldKey is missing.
func (t *Trie) Update(oldKey, newKey string) error {
	hits := t.hits(oldKey)
	if err := t.Remove(oldKey); err != nil {
		return err
	}
	t.Insert(newKey, hits)
	return nil
}

func (t *Trie) hits(key string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node := t.Root
	for _, ch := range fold(key) {
		child, ok := node.Children[ch]
		if !ok {
			return 0
		}
		node = child
	}
	return node.Hits
}
