// Package cache provides a small TTL cache with bounded size.
//
// Entries expire after the configured TTL and the oldest entry is evicted
// when the cache is full. A background goroutine drops expired entries until
// Close is called.
//
//	c := cache.New[[]facility.Complex](10*time.Minute, 16)
//	defer c.Close()
//	complexes, err := c.GetOrLoad(ctx, "complexes", fetch)
package cache
