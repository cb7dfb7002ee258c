package kv

import (
	"strings"

	"github.com/zhangyunhao116/skipmap"
)

// NewSortedStorage returns a skip-list backed Storage whose Range yields
// keys in ascending order.
func NewSortedStorage[V any]() Storage[V] {
	return &sortedStorage[V]{inner: skipmap.NewString[V]()}
}

type sortedStorage[V any] struct {
	inner *skipmap.StringMap[V]
}

func (s *sortedStorage[V]) Get(key string) (V, bool) {
	return s.inner.Load(key)
}

func (s *sortedStorage[V]) Set(key string, value V) {
	s.inner.Store(key, value)
}

func (s *sortedStorage[V]) Del(key string) {
	s.inner.Delete(key)
}

func (s *sortedStorage[V]) Range(prefix string) Range[string, V] {
	// Keys are ordered, so the prefix region is contiguous: collect it and
	// stop at the first key past it.
	var keys []string
	s.inner.Range(func(k string, _ V) bool {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
			return true
		}
		return k < prefix
	})
	return &sliceRange[V]{keys: keys, get: s.Get}
}

func (s *sortedStorage[V]) Len() int { return s.inner.Len() }

func (s *sortedStorage[V]) Clear() {
	s.inner = skipmap.NewString[V]()
}
