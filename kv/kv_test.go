package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func impls() map[string]func() Storage[int] {
	return map[string]func() Storage[int]{
		"sorted": NewSortedStorage[int],
		"trie":   NewPrefixTreeStorage[int],
	}
}

func TestStorageBasics(t *testing.T) {
	for name, mk := range impls() {
		t.Run(name, func(t *testing.T) {
			stg := mk()

			stg.Set("a", 1)
			stg.Set("b", 2)
			stg.Set("a", 3) // overwrite

			v, ok := stg.Get("a")
			assert.True(t, ok)
			assert.Equal(t, 3, v)
			assert.Equal(t, 2, stg.Len())

			stg.Del("a")
			_, ok = stg.Get("a")
			assert.False(t, ok)
			assert.Equal(t, 1, stg.Len())

			stg.Clear()
			assert.Equal(t, 0, stg.Len())
		})
	}
}

func TestStorageRangePrefix(t *testing.T) {
	for name, mk := range impls() {
		t.Run(name, func(t *testing.T) {
			stg := mk()
			stg.Set("age/20", 1)
			stg.Set("age/25", 2)
			stg.Set("name/bob", 3)

			got := map[string]int{}
			rng := stg.Range("age/")
			for rng.Next() {
				k, v := rng.Value()
				got[k] = v
			}

			assert.Equal(t, map[string]int{"age/20": 1, "age/25": 2}, got)
		})
	}
}

func TestSortedStorageRangeIsOrdered(t *testing.T) {
	stg := NewSortedStorage[int]()
	stg.Set("k/c", 3)
	stg.Set("k/a", 1)
	stg.Set("k/b", 2)

	var keys []string
	rng := stg.Range("k/")
	for rng.Next() {
		k, _ := rng.Value()
		keys = append(keys, k)
	}

	assert.Equal(t, []string{"k/a", "k/b", "k/c"}, keys)
}
