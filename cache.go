// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import "container/list"

// CachingSet is a bounded set with LRU-by-insertion/access eviction. It is
// the network layer's deduplication set.
type CachingSet[T comparable] struct {
	capacity int
	index    map[T]*list.Element
	order    *list.List // front = most recently used
}

// NewCachingSet returns a CachingSet holding at most capacity elements.
func NewCachingSet[T comparable](capacity int) *CachingSet[T] {
	return &CachingSet[T]{
		capacity: capacity,
		index:    make(map[T]*list.Element, capacity),
		order:    list.New(),
	}
}

// CheckUpdate returns true iff x was already present. Either way x is
// promoted to most-recently-used, being inserted if absent; if the set is
// at capacity, the least-recently-used element is evicted first.
func (s *CachingSet[T]) CheckUpdate(x T) bool {
	if el, ok := s.index[x]; ok {
		s.order.MoveToFront(el)
		return true
	}
	if s.capacity > 0 && len(s.index) >= s.capacity {
		s.evictOldest()
	}
	s.index[x] = s.order.PushFront(x)
	return false
}

func (s *CachingSet[T]) evictOldest() {
	oldest := s.order.Back()
	if oldest == nil {
		return
	}
	s.order.Remove(oldest)
	delete(s.index, oldest.Value.(T))
}

// Len reports the number of elements currently cached.
func (s *CachingSet[T]) Len() int { return len(s.index) }

// cacheEntry is the value type CachingMap stores in its ordering list so a
// single list walk can locate both the key (for eviction) and the value.
type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// CachingMap behaves like CachingSet but associates a value with each key.
// It backs the acceptor's small recency-ordered cache of minted sockets,
// keyed by the client's connection-request message id.
type CachingMap[K comparable, V any] struct {
	capacity int
	index    map[K]*list.Element
	order    *list.List
}

// NewCachingMap returns a CachingMap holding at most capacity entries.
func NewCachingMap[K comparable, V any](capacity int) *CachingMap[K, V] {
	return &CachingMap[K, V]{
		capacity: capacity,
		index:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value for key without promoting it, and whether key was
// present.
func (m *CachingMap[K, V]) Get(key K) (V, bool) {
	if el, ok := m.index[key]; ok {
		return el.Value.(*cacheEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// GetUpdate returns the value for key, promoting it to most-recently-used
// if present.
func (m *CachingMap[K, V]) GetUpdate(key K) (V, bool) {
	if el, ok := m.index[key]; ok {
		m.order.MoveToFront(el)
		return el.Value.(*cacheEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// PutUpdate inserts or overwrites key's value, promoting it to
// most-recently-used. It returns true if key already existed. When
// inserting a new key at capacity, the least-recently-used entry is
// evicted first.
func (m *CachingMap[K, V]) PutUpdate(key K, value V) bool {
	if el, ok := m.index[key]; ok {
		el.Value.(*cacheEntry[K, V]).value = value
		m.order.MoveToFront(el)
		return true
	}
	if m.capacity > 0 && len(m.index) >= m.capacity {
		oldest := m.order.Back()
		if oldest != nil {
			m.order.Remove(oldest)
			delete(m.index, oldest.Value.(*cacheEntry[K, V]).key)
		}
	}
	m.index[key] = m.order.PushFront(&cacheEntry[K, V]{key: key, value: value})
	return false
}

// Erase removes key, returning whether it was present.
func (m *CachingMap[K, V]) Erase(key K) bool {
	el, ok := m.index[key]
	if !ok {
		return false
	}
	m.order.Remove(el)
	delete(m.index, key)
	return true
}

// Len reports the number of entries currently cached.
func (m *CachingMap[K, V]) Len() int { return len(m.index) }
