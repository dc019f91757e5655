package symspell

import (
	"sort"
	"sync"
)

// SymSpell implements the Symmetric-Delete spelling correction algorithm
// for edit-distance-1 lookups. Deletes are taken per rune so multi-byte
// scripts such as Gujarati are handled.
type SymSpell struct {
	DeleteMap map[string]map[string]struct{}
	mu        sync.RWMutex
}

// NewSymSpell creates a SymSpell instance.
func NewSymSpell() *SymSpell {
	return &SymSpell{
		DeleteMap: make(map[string]map[string]struct{}),
	}
}

// deletes returns every string obtained by removing one rune from word.
func deletes(word string) []string {
	runes := []rune(word)
	out := make([]string, 0, len(runes))
	for i := range runes {
		out = append(out, string(runes[:i])+string(runes[i+1:]))
	}
	return out
}

// AddWord indexes a new word by generating all its single-rune deletes.
func (s *SymSpell) AddWord(word string) {
	if word == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link(word, word)
	for _, del := range deletes(word) {
		s.link(del, word)
	}
}

func (s *SymSpell) link(key, word string) {
	if _, exists := s.DeleteMap[key]; !exists {
		s.DeleteMap[key] = make(map[string]struct{})
	}
	s.DeleteMap[key][word] = struct{}{}
}

func (s *SymSpell) unlink(key, word string) {
	if originals, exists := s.DeleteMap[key]; exists {
		delete(originals, word)
		if len(originals) == 0 {
			delete(s.DeleteMap, key)
		}
	}
}

// LoadDictionary adds all words in the slice to the SymSpell index.
func (s *SymSpell) LoadDictionary(words []string) {
	for _, w := range words {
		s.AddWord(w)
	}
}

// DeleteWord removes a word from the SymSpell index, including its
// entry for exact match and all its single-rune deletions.
func (s *SymSpell) DeleteWord(word string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlink(word, word)
	for _, del := range deletes(word) {
		s.unlink(del, word)
	}
}

// FuzzySearch returns up to maxReturnCount dictionary words within edit
// distance 1 of query, excluding query itself, sorted alphabetically.
func (s *SymSpell) FuzzySearch(query string, maxReturnCount int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	results := []string{}

	add := func(key string) {
		for w := range s.DeleteMap[key] {
			if w == query {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			results = append(results, w)
		}
	}

	add(query)
	for _, del := range deletes(query) {
		add(del)
	}

	sort.Strings(results)
	if len(results) > maxReturnCount {
		results = results[:maxReturnCount]
	}
	return results
}
