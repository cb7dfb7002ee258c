package kv

import (
	"github.com/s0rg/trie"
)

// NewPrefixTreeStorage returns a Storage backed by a prefix tree. Range
// yields keys in the order the trie suggests them.
func NewPrefixTreeStorage[V any]() Storage[V] {
	return &prefixTreeStorage[V]{inner: trie.New[V]()}
}

type prefixTreeStorage[V any] struct {
	inner *trie.Trie[V]
	size  int
}

func (s *prefixTreeStorage[V]) Get(key string) (V, bool) {
	return s.inner.Find(key)
}

func (s *prefixTreeStorage[V]) Set(key string, value V) {
	if _, ok := s.inner.Find(key); !ok {
		s.size++
	}
	s.inner.Add(key, value)
}

func (s *prefixTreeStorage[V]) Del(key string) {
	if _, ok := s.inner.Find(key); ok {
		s.size--
	}
	s.inner.Del(key)
}

func (s *prefixTreeStorage[V]) Range(prefix string) Range[string, V] {
	keys, _ := s.inner.Suggest(prefix)
	return &sliceRange[V]{keys: keys, get: s.Get}
}

func (s *prefixTreeStorage[V]) Len() int { return s.size }

func (s *prefixTreeStorage[V]) Clear() {
	s.inner = trie.New[V]()
	s.size = 0
}

type sliceRange[V any] struct {
	keys []string
	curr int
	get  func(string) (V, bool)
}

func (r *sliceRange[V]) Next() bool {
	return r.curr < len(r.keys)
}

func (r *sliceRange[V]) Value() (string, V) {
	key := r.keys[r.curr]
	r.curr++

	// SAFETY: keys come from the backing store itself.
	value, _ := r.get(key)
	return key, value
}
