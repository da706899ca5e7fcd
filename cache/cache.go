// Package cache provides the pluggable key-value store collaborator and the
// namespaced TTL layer the definition loaders memoize through. The SDK is
// cache-implementation-agnostic: any Store works, and callers who need
// always-fresh data can disable the layer outright.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store is the key-value collaborator the cache layer delegates to.
// TTL expiry is the implementation's responsibility once a value is written.
// Implementations injected into a client used concurrently must themselves be
// safe for concurrent access.
type Store interface {
	// Get returns the value for key, reporting absence on miss or expiry.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set writes the value under key with the given TTL, overwriting
	// unconditionally. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the value for key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all values.
	Clear(ctx context.Context) error
}

// Key composes a namespaced cache key as {entity}:{platform}:{env}[:{extra}].
// Platform/environment isolation is structural: two environments can never
// collide on a key.
func Key(entity, platform, env string, extra ...string) string {
	parts := append([]string{entity, platform, env}, extra...)
	return strings.Join(parts, ":")
}
