package cache

import "sync"

// RefCache is a generic thread-safe cache of reference-counted values.
//
// Entries are never evicted; a key leaves the cache only when its last
// reference is released or the cache is drained.
//
// RefCache is safe for concurrent use.
// RefCache must not be copied after creation (has mutex).
type RefCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*refEntry[V]

	creates  uint64
	acquires uint64
}

// refEntry holds a cached value with its reference count.
type refEntry[V any] struct {
	value V
	refs  int
}

// NewRef creates an empty reference-counted cache.
func NewRef[K comparable, V any]() *RefCache[K, V] {
	return &RefCache[K, V]{
		entries: make(map[K]*refEntry[V]),
	}
}

// Acquire returns the value for key and takes one reference to it.
// If the key is absent, create is called under the lock and its result is
// stored with a count of one; created reports whether that happened.
// create must not call back into the cache.
func (c *RefCache[K, V]) Acquire(key K, create func() V) (value V, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.acquires++
	if entry, ok := c.entries[key]; ok {
		entry.refs++
		return entry.value, false
	}

	value = create()
	c.creates++
	c.entries[key] = &refEntry[V]{value: value, refs: 1}
	return value, true
}

// Release drops one reference to key. When the count reaches zero the key
// is removed and its value returned with freed set to true.
// Releasing an absent key is a no-op.
func (c *RefCache[K, V]) Release(key K) (value V, freed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return value, false
	}
	entry.refs--
	if entry.refs > 0 {
		return value, false
	}
	delete(c.entries, key)
	return entry.value, true
}

// Get returns the value for key without taking a reference.
func (c *RefCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Refs returns the current reference count of key, 0 when absent.
func (c *RefCache[K, V]) Refs(key K) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return entry.refs
	}
	return 0
}

// Len returns the number of resident keys.
func (c *RefCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Drain removes every entry regardless of its reference count and returns
// the removed values so the caller can destroy them.
func (c *RefCache[K, V]) Drain() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, len(c.entries))
	for _, e := range c.entries {
		values = append(values, e.value)
	}
	c.entries = make(map[K]*refEntry[V])
	return values
}

// Stats returns cache statistics.
func (c *RefCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	refs := 0
	for _, e := range c.entries {
		refs += e.refs
	}
	return Stats{
		Len:      len(c.entries),
		Refs:     refs,
		Creates:  c.creates,
		Acquires: c.acquires,
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of keys.
	Len int
	// Refs is the sum of reference counts over all keys.
	Refs int
	// Creates is the number of times create was called.
	Creates uint64
	// Acquires is the total number of Acquire calls.
	Acquires uint64
}
