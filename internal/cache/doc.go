// Package cache provides a small thread-safe TTL cache with bounded size.
//
// Entries expire ttl after they were set and the oldest entry is evicted
// when the cache is full. A background goroutine sweeps expired entries
// once a minute until Close is called.
package cache
