// Package loader fetches tier definitions from the Flagship API, cache-first.
// On a cache hit the raw payload is re-decoded locally with no network access;
// on a miss the remote payload is fetched, stored with the configured TTL, and
// returned. Transport failures propagate to the caller untouched — the loader
// never retries and never swallows (the facade's convenience wrappers decide
// what to collapse).
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagship-go/cache"
	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/telemetry"
	"github.com/TimurManjosov/flagship-go/transport"
)

// Cache namespace entities. Keys compose as {entity}:{platform}:{env} with the
// config version appended for the config tier.
const (
	entityConfig      = "config"
	entityFlags       = "flags"
	entityExperiments = "experiments"
)

// Loader is the fetch-or-cache front for the three definition tiers of one
// platform/environment pair.
type Loader struct {
	transport transport.Transport
	cache     *cache.Layer
	platform  string
	env       string
	log       zerolog.Logger
}

// New creates a loader for the given platform and environment.
func New(tr transport.Transport, layer *cache.Layer, platform, env string, log zerolog.Logger) *Loader {
	return &Loader{
		transport: tr,
		cache:     layer,
		platform:  platform,
		env:       env,
		log:       log,
	}
}

// Flags returns the flag definitions for the environment, keyed by flag key.
func (l *Loader) Flags(ctx context.Context) (map[string]definitions.FlagDefinition, error) {
	raw, err := l.payload(ctx, entityFlags, l.flagsKey(), l.tierPath("/v1/flags", nil))
	if err != nil {
		return nil, err
	}
	return definitions.DecodeFlags(raw)
}

// Experiments returns the experiment definitions for the environment, keyed by
// experiment key.
func (l *Loader) Experiments(ctx context.Context) (map[string]definitions.ExperimentDefinition, error) {
	raw, err := l.payload(ctx, entityExperiments, l.experimentsKey(), l.tierPath("/v1/experiments", nil))
	if err != nil {
		return nil, err
	}
	return definitions.DecodeExperiments(raw)
}

// Config returns the remote config document for the given version channel
// ("stable", "latest", or a pinned version). Each version caches
// independently.
func (l *Loader) Config(ctx context.Context, version string) (map[string]any, error) {
	path := l.tierPath("/v1/configs", url.Values{"version": []string{version}})
	raw, err := l.payload(ctx, entityConfig, l.configKey(version), path)
	if err != nil {
		return nil, err
	}
	return definitions.DecodeConfig(raw)
}

// InvalidateFlags drops the cached flag payload.
func (l *Loader) InvalidateFlags(ctx context.Context) error {
	return l.cache.Invalidate(ctx, l.flagsKey())
}

// InvalidateExperiments drops the cached experiment payload.
func (l *Loader) InvalidateExperiments(ctx context.Context) error {
	return l.cache.Invalidate(ctx, l.experimentsKey())
}

// InvalidateConfig drops the cached config payload for one version.
func (l *Loader) InvalidateConfig(ctx context.Context, version string) error {
	return l.cache.Invalidate(ctx, l.configKey(version))
}

// InvalidateAll clears the entire cache store behind the layer.
func (l *Loader) InvalidateAll(ctx context.Context) error {
	return l.cache.InvalidateAll(ctx)
}

func (l *Loader) flagsKey() string       { return cache.Key(entityFlags, l.platform, l.env) }
func (l *Loader) experimentsKey() string { return cache.Key(entityExperiments, l.platform, l.env) }
func (l *Loader) configKey(version string) string {
	return cache.Key(entityConfig, l.platform, l.env, version)
}

func (l *Loader) tierPath(base string, extra url.Values) string {
	q := url.Values{}
	q.Set("platform", l.platform)
	q.Set("env", l.env)
	for key, values := range extra {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	return base + "?" + q.Encode()
}

// payload returns the raw JSON for one tier, from cache when possible.
func (l *Loader) payload(ctx context.Context, tier, cacheKey, path string) (json.RawMessage, error) {
	if value, ok := l.cache.Read(ctx, cacheKey); ok {
		if raw, ok := asRawJSON(value); ok {
			telemetry.CacheRequests.WithLabelValues("hit").Inc()
			l.log.Debug().Str("tier", tier).Str("key", cacheKey).Msg("definitions served from cache")
			return raw, nil
		}
		// A foreign value under our key; treat as a miss and refetch.
		l.log.Warn().Str("key", cacheKey).Msg("unexpected cached value type, refetching")
	}
	telemetry.CacheRequests.WithLabelValues("miss").Inc()

	start := time.Now()
	raw, err := l.transport.Get(ctx, path)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.DefinitionLoads.WithLabelValues(tier, outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", tier, err)
	}

	l.cache.Write(ctx, cacheKey, raw)
	l.log.Debug().Str("tier", tier).Str("key", cacheKey).Int("bytes", len(raw)).Msg("definitions fetched")
	return raw, nil
}

// asRawJSON normalizes what a Store hands back: the memory store returns the
// stored json.RawMessage as-is, the Redis store returns re-read raw bytes, and
// a caller-provided store may round-trip through strings.
func asRawJSON(value any) (json.RawMessage, bool) {
	switch v := value.(type) {
	case json.RawMessage:
		return v, true
	case []byte:
		return json.RawMessage(v), true
	case string:
		return json.RawMessage(v), true
	default:
		return nil, false
	}
}
