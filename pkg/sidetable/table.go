// Package sidetable associates auxiliary values with objects by identity
// without owning them.
//
// A Table is keyed by weak pointers: two keys match only when they were made
// from the same object, and the table never keeps that object alive. Entries
// are normally removed with Delete when the owner is done with the object;
// if the owner forgets, a runtime cleanup removes the entry once the object
// has been collected.
//
//	var params = sidetable.New[ctx.Context, string]()
//	params.Set(x, "test")
//	v, ok := params.Get(x)
package sidetable

import (
	"runtime"
	"sync"
	"weak"
)

// Table is safe for concurrent use by unrelated requests. Each key space is
// independent: a lookup for one object never observes another's entry.
type Table[K any, V any] struct {
	mu      sync.RWMutex
	entries map[weak.Pointer[K]]V
}

// New returns an empty table.
func New[K any, V any]() *Table[K, V] {
	return &Table[K, V]{entries: make(map[weak.Pointer[K]]V)}
}

// Set associates v with key, replacing any previous value.
// A nil key is ignored.
func (t *Table[K, V]) Set(key *K, v V) {
	if key == nil {
		return
	}
	wp := weak.Make(key)

	t.mu.Lock()
	_, existed := t.entries[wp]
	t.entries[wp] = v
	t.mu.Unlock()

	if !existed {
		// wp does not keep key reachable, so the cleanup can fire.
		runtime.AddCleanup(key, t.drop, wp)
	}
}

// Get returns the value associated with key.
func (t *Table[K, V]) Get(key *K) (V, bool) {
	var zero V
	if key == nil {
		return zero, false
	}

	t.mu.RLock()
	v, ok := t.entries[weak.Make(key)]
	t.mu.RUnlock()
	if !ok {
		return zero, false
	}
	return v, true
}

// Delete removes the entry for key, if any.
func (t *Table[K, V]) Delete(key *K) {
	if key == nil {
		return
	}
	t.drop(weak.Make(key))
}

// Len reports the number of live entries.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Table[K, V]) drop(wp weak.Pointer[K]) {
	t.mu.Lock()
	delete(t.entries, wp)
	t.mu.Unlock()
}
