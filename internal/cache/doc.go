// Package cache provides a generic reference-counted cache.
//
// RefCache[K, V] stores one value per key together with a count of live
// references. Acquire creates the value under the cache lock on the first
// reference, so concurrent callers for the same key always share one value.
// Release drops a reference and hands the value back to the caller once the
// count reaches zero, leaving destruction to the owner.
//
//	c := cache.NewRef[string, *Texture]()
//	tex, created := c.Acquire("logo", newTexture)
//	...
//	if v, freed := c.Release("logo"); freed {
//		v.Destroy()
//	}
//
// # Thread Safety
//
// RefCache is safe for concurrent use.
// It must not be copied after creation (it contains a mutex).
package cache
