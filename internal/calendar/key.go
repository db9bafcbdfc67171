package calendar

import (
	"fmt"
	"sync"
)

// InstanceKey identifies one occurrence of a mechanism by the date its rule
// placed it on. It stays stable when the occurrence is moved.
type InstanceKey struct {
	MechanismID  string
	OriginalDate string
}

// ID renders the key for display and for the lookup table. It is never parsed
// back; use Index.Lookup to recover the key.
func (k InstanceKey) ID() string {
	return fmt.Sprintf("%s@%s", k.MechanismID, k.OriginalDate)
}

// Index maps display identifiers back to structured instance keys.
type Index struct {
	mu   sync.RWMutex
	keys map[string]InstanceKey
}

func NewIndex() *Index {
	return &Index{keys: make(map[string]InstanceKey)}
}

// Add registers key and returns its display identifier.
func (x *Index) Add(key InstanceKey) string {
	id := key.ID()
	x.mu.Lock()
	x.keys[id] = key
	x.mu.Unlock()
	return id
}

// Lookup resolves a display identifier.
func (x *Index) Lookup(id string) (InstanceKey, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	key, ok := x.keys[id]
	return key, ok
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.keys)
}
