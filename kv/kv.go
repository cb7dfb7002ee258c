// Package kv is the generic string-keyed storage the indexer is built on.
// Implementations must support prefix iteration; the skipmap-backed store
// additionally iterates in key order.
package kv

// Storage stores values of type V under string keys.
type Storage[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Del(key string)
	// Range iterates entries whose key begins with prefix.
	Range(prefix string) Range[string, V]
	Len() int
	Clear()
}

// Range iterates key/value pairs: call Next, then Value.
type Range[K comparable, V any] interface {
	Next() bool
	Value() (K, V)
}
