package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Layer is the TTL-scoped memoization front the definition loaders go
// through. It delegates storage to the injected Store and adds the disabled
// escape hatch: a disabled layer reports every read absent and drops every
// write, which forces always-fresh fetches without touching the loaders.
type Layer struct {
	store   Store
	ttl     time.Duration
	enabled bool
	log     zerolog.Logger
}

// NewLayer creates a cache layer over store. When enabled is false the layer
// behaves as permanently empty.
func NewLayer(store Store, ttl time.Duration, enabled bool, log zerolog.Logger) *Layer {
	return &Layer{store: store, ttl: ttl, enabled: enabled, log: log}
}

// Enabled reports whether the layer is caching at all.
func (l *Layer) Enabled() bool {
	return l.enabled
}

// Read returns the cached value for key, or absent on miss, expiry, disabled
// mode, or store failure. A failing store never fails a read path: the caller
// falls through to a fresh fetch instead.
func (l *Layer) Read(ctx context.Context, key string) (any, bool) {
	if !l.enabled {
		return nil, false
	}
	value, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}
	return value, ok
}

// Write stores value under key with the layer's TTL. No-op in disabled mode;
// store failures are logged and swallowed (the value is simply not memoized).
func (l *Layer) Write(ctx context.Context, key string, value any) {
	if !l.enabled {
		return
	}
	if err := l.store.Set(ctx, key, value, l.ttl); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate removes one namespaced key.
func (l *Layer) Invalidate(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}

// InvalidateAll removes everything in the store.
func (l *Layer) InvalidateAll(ctx context.Context) error {
	return l.store.Clear(ctx)
}
