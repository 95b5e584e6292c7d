// Package cache memoizes parsed definition files between reads.
//
// Keys are derived from file contents, so an entry never goes stale when the
// file on disk changes; it simply stops being asked for.
//
// Usage:
//
//	c := cache.NewMemory[*Parsed]()
//	key := cache.ComputeKeyWithPrefix(path, contents)
//	if v, ok := c.Get(ctx, key); ok {
//	    // reuse v
//	}
package cache
