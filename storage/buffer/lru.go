/*
LRU replacement set.

The replacer tracks the frames which are eligible for eviction: resident and
unpinned. The least-recently-inserted frame is the next victim. Re-inserting a
present value refreshes it to the most-recently-inserted position.

The set is a doubly-linked list (front = next victim) with a side index mapping
value -> list element, so Insert, Erase and Victim are all O(1).
postgres uses clock-sweep instead, which approximates LRU without a global
list; ppcache keeps strict LRU because the pool serialises every operation
under one mutex anyway, so the list costs no extra contention.

The replacer has its own mutex and publishes no ordering guarantee beyond
`Victim returns the least-recently-inserted element still present`.
*/
package buffer

import (
	"container/list"
	"sync"
)

// LRUReplacer is the least-recently-used replacement set
type LRUReplacer[T comparable] struct {
	mu sync.Mutex
	// order holds the values, least-recently-inserted at the front
	order *list.List
	// index maps value -> list element for O(1) erase
	index map[T]*list.Element
}

// NewLRUReplacer initializes an empty replacer
func NewLRUReplacer[T comparable]() *LRUReplacer[T] {
	return &LRUReplacer[T]{
		order: list.New(),
		index: make(map[T]*list.Element),
	}
}

// Insert adds the value as most-recently-inserted.
// if the value is already present, it is refreshed instead; the size does not change.
func (r *LRUReplacer[T]) Insert(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.index[v]; ok {
		r.order.MoveToBack(e)
		return
	}
	r.index[v] = r.order.PushBack(v)
}

// Victim removes and returns the least-recently-inserted value.
// returns false when the replacer is empty.
func (r *LRUReplacer[T]) Victim() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.order.Front()
	if e == nil {
		var zero T
		return zero, false
	}
	v := e.Value.(T)
	r.order.Remove(e)
	delete(r.index, v)
	return v, true
}

// Erase removes the value and reports whether it was present
func (r *LRUReplacer[T]) Erase(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[v]
	if !ok {
		return false
	}
	r.order.Remove(e)
	delete(r.index, v)
	return true
}

// Size returns the number of values in the set
func (r *LRUReplacer[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}
