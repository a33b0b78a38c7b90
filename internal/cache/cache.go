// Package cache provides the TTL key-value store backing the breadcrumb
// cache. The interface is an explicit capability injected into the services
// that need it, never a hidden singleton, so structural writers can invalidate
// entries and tests can substitute their own implementation.
package cache

import "time"

// Cache is a key-value store with per-entry TTL and explicit invalidation.
// Implementations must be safe for concurrent use. A stale entry may live for
// at most its TTL; writers that change the directory structure must call
// Invalidate for every affected key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Invalidate(key string)
}
