package keys

import "sync"

// Keys is a string set that remembers insertion order.
type Keys struct {
	data  map[string]struct{}
	order []string
	mu    sync.RWMutex
}

func NewKeys() *Keys {
	return &Keys{data: make(map[string]struct{})}
}

// Insert adds key and reports whether it was new.
func (k *Keys) Insert(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.data[key]; ok {
		return false
	}
	k.data[key] = struct{}{}
	k.order = append(k.order, key)
	return true
}

func (k *Keys) Contains(key string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.data[key]
	return ok
}

func (k *Keys) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.order)
}

// Slice returns the keys in the order they were first inserted.
func (k *Keys) Slice() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, len(k.order))
	copy(out, k.order)
	return out
}
