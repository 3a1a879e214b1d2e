package nwam

import (
	"sort"
	"sync"
)

// Keyed is anything stored by a unique key.
type Keyed interface {
	Key() string
}

// ChangeFunc is called after an item joins (added=true) or leaves a store.
type ChangeFunc[T Keyed] func(item T, added bool)

// Store is an ordered list with unique keys. Every membership change is
// reported to the change hook after the store lock is released.
type Store[T Keyed] struct {
	mu       sync.RWMutex
	items    []T
	onChange ChangeFunc[T]
}

// NewStore returns an empty store. onChange may be nil.
func NewStore[T Keyed](onChange ChangeFunc[T]) *Store[T] {
	return &Store[T]{onChange: onChange}
}

// SetOnChange replaces the membership hook.
func (s *Store[T]) SetOnChange(fn ChangeFunc[T]) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store[T]) notify(item T, added bool) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(item, added)
	}
}

func (s *Store[T]) indexLocked(key string) int {
	for i, it := range s.items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// Add appends item unless its key is already present.
func (s *Store[T]) Add(item T) bool {
	s.mu.Lock()
	if s.indexLocked(item.Key()) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.notify(item, true)
	return true
}

// Upsert returns the stored item with item's key, adding item if absent.
// The bool is true when item was added.
func (s *Store[T]) Upsert(item T) (T, bool) {
	s.mu.Lock()
	if i := s.indexLocked(item.Key()); i >= 0 {
		existing := s.items[i]
		s.mu.Unlock()
		return existing, false
	}
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.notify(item, true)
	return item, true
}

// Remove deletes the item with key.
func (s *Store[T]) Remove(key string) (T, bool) {
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	item := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.mu.Unlock()

	s.notify(item, false)
	return item, true
}

// Find returns the item with key.
func (s *Store[T]) Find(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(key); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// FindFunc returns the first item matching fn.
func (s *Store[T]) FindFunc(fn func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if fn(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// List returns a copy of the items in order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Keys returns the keys in order.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.items))
	for i, it := range s.items {
		keys[i] = it.Key()
	}
	return keys
}

// Len returns the number of items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SortStable reorders items with a stable sort.
func (s *Store[T]) SortStable(less func(a, b T) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.items, func(i, j int) bool {
		return less(s.items[i], s.items[j])
	})
}
