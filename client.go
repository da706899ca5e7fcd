// Package flagship is the client SDK for the Flagship feature-delivery
// platform: remote configuration, two-value feature flags, and multi-variant
// experiments. Definitions are fetched from the Flagship API and cached;
// every targeting and bucketing decision is then made locally, with no
// network round-trip per evaluation. Evaluation and exposure telemetry is
// buffered and flushed asynchronously in batches.
//
// A Client is designed for single-request-scoped or per-worker use. All
// evaluation operations are pure and non-blocking; only definition loading
// and stats flushing touch the network.
package flagship

import (
	"context"
	"errors"

	"github.com/TimurManjosov/flagship-go/cache"
	"github.com/TimurManjosov/flagship-go/definitions"
	"github.com/TimurManjosov/flagship-go/engine"
	"github.com/TimurManjosov/flagship-go/loader"
	"github.com/TimurManjosov/flagship-go/stats"
	"github.com/TimurManjosov/flagship-go/telemetry"
	"github.com/TimurManjosov/flagship-go/transport"
)

// Re-exported request/result types, so embedding applications only import the
// root package for everyday use.
type (
	FlagContext       = engine.FlagContext
	ExperimentContext = engine.ExperimentContext
	FlagResult        = engine.FlagResult
	VariantAssignment = engine.VariantAssignment
)

// ConversionOptions carries the optional fields of TrackConversion.
type ConversionOptions struct {
	Value *float64 // numeric conversion value (revenue, count, ...)
}

// EventOptions carries the optional fields of TrackEvent.
type EventOptions struct {
	Country  string
	Language string
}

// Client is the Flagship SDK facade. Construct with New; the zero value is
// not usable.
type Client struct {
	opts   Options
	loader *loader.Loader
	buffer *stats.Buffer
}

// New validates opts and builds a client. Returns a *ConfigurationError when
// the options are unusable; no network access happens here.
func New(opts Options) (*Client, error) {
	opts.normalize()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	telemetry.Init()

	log := opts.Logger
	tr := opts.Transport
	if tr == nil {
		tr = transport.NewHTTP(opts.endpoint(), opts.APIKey, opts.RequestTimeout, log)
	}

	layer := cache.NewLayer(opts.CacheStore, opts.CacheTTL, !opts.DisableCache, log)

	return &Client{
		opts:   opts,
		loader: loader.New(tr, layer, opts.Platform, opts.Environment, log),
		buffer: stats.NewBuffer(tr, stats.Config{
			MaxQueueSize: opts.MaxQueueSize,
			BatchSize:    opts.StatsBatchSize,
			MaxRetries:   opts.StatsMaxRetries,
			RetryBase:    opts.StatsRetryBase,
		}, log),
	}, nil
}

// GetFlag evaluates the flag for the given context and records a
// flag_evaluation event. Fails with *NotFoundError for an unknown key and
// with *transport.NetworkError when definitions cannot be loaded.
func (c *Client) GetFlag(ctx context.Context, key string, fctx FlagContext) (FlagResult, error) {
	flags, err := c.loader.Flags(ctx)
	if err != nil {
		return FlagResult{}, err
	}
	def, ok := flags[key]
	if !ok {
		return FlagResult{}, &NotFoundError{Kind: "flag", Key: key}
	}

	result := engine.EvaluateFlag(&def, fctx)
	telemetry.FlagEvaluations.WithLabelValues(string(result.Reason)).Inc()

	c.buffer.Enqueue(ctx, stats.NewEvent(stats.EventFlagEvaluation, map[string]any{
		"flagKey":     result.FlagKey,
		"identity":    fctx.Identity,
		"servedValue": string(result.ServedValue),
		"reason":      string(result.Reason),
	}))
	return result, nil
}

// IsFlagEnabled reports whether the flag resolves to side A for the context.
// Any failure (unknown key, unreachable API) yields defaultValue instead of
// an error.
func (c *Client) IsFlagEnabled(ctx context.Context, key string, fctx FlagContext, defaultValue bool) bool {
	result, err := c.GetFlag(ctx, key, fctx)
	if err != nil {
		return defaultValue
	}
	return result.ServedValue == definitions.SideA
}

// GetFlagInfo returns the raw flag definition, or nil when the key is unknown
// or the definitions cannot be loaded. It never fails.
func (c *Client) GetFlagInfo(ctx context.Context, key string) *definitions.FlagDefinition {
	flags, err := c.loader.Flags(ctx)
	if err != nil {
		return nil
	}
	if def, ok := flags[key]; ok {
		return &def
	}
	return nil
}

// GetVariant resolves the experiment assignment for the context and records
// an experiment_exposure event when an assignment exists. A nil assignment
// with a nil error means the identity is simply not in the experiment.
func (c *Client) GetVariant(ctx context.Context, key string, ectx ExperimentContext) (*VariantAssignment, error) {
	assignment, err := c.allocate(ctx, key, ectx)
	if err != nil {
		return nil, err
	}
	if assignment != nil {
		c.buffer.Enqueue(ctx, stats.NewEvent(stats.EventExperimentExposure, map[string]any{
			"experimentKey": assignment.ExperimentKey,
			"variationKey":  assignment.VariationKey,
			"identity":      ectx.Identity,
		}))
	}
	return assignment, nil
}

// GetVariantWithoutTracking performs the identical allocation but never
// records an exposure event. Conversion tracking uses this path internally so
// re-deriving an assignment does not inflate exposure counts.
func (c *Client) GetVariantWithoutTracking(ctx context.Context, key string, ectx ExperimentContext) (*VariantAssignment, error) {
	return c.allocate(ctx, key, ectx)
}

// GetExperimentInfo returns the raw experiment definition, or nil when the
// key is unknown or the definitions cannot be loaded. It never fails.
func (c *Client) GetExperimentInfo(ctx context.Context, key string) *definitions.ExperimentDefinition {
	experiments, err := c.loader.Experiments(ctx)
	if err != nil {
		return nil
	}
	if def, ok := experiments[key]; ok {
		return &def
	}
	return nil
}

func (c *Client) allocate(ctx context.Context, key string, ectx ExperimentContext) (*VariantAssignment, error) {
	experiments, err := c.loader.Experiments(ctx)
	if err != nil {
		return nil, err
	}
	def, ok := experiments[key]
	if !ok {
		return nil, &NotFoundError{Kind: "experiment", Key: key}
	}

	assignment := engine.Allocate(&def, ectx)
	assigned := "false"
	if assignment != nil {
		assigned = "true"
	}
	telemetry.ExperimentAssignments.WithLabelValues(assigned).Inc()
	return assignment, nil
}

// TrackConversion records a conversion metric against the identity's current
// assignment in the experiment. The assignment is re-derived through the
// non-tracking path, so tracking a conversion never counts as an exposure.
// Identities without an assignment record nothing.
func (c *Client) TrackConversion(ctx context.Context, key string, ectx ExperimentContext, metric string, opts *ConversionOptions) error {
	assignment, err := c.GetVariantWithoutTracking(ctx, key, ectx)
	if err != nil {
		return err
	}
	if assignment == nil {
		return nil
	}

	payload := map[string]any{
		"experimentKey": assignment.ExperimentKey,
		"variationKey":  assignment.VariationKey,
		"identity":      ectx.Identity,
		"metric":        metric,
	}
	if opts != nil && opts.Value != nil {
		payload["value"] = *opts.Value
	}
	c.buffer.Enqueue(ctx, stats.NewEvent(stats.EventConversion, payload))
	return nil
}

// TrackEvent records a free-form custom event for the identity.
func (c *Client) TrackEvent(ctx context.Context, name, identity string, opts *EventOptions) {
	payload := map[string]any{
		"name":     name,
		"identity": identity,
	}
	if opts != nil {
		if opts.Country != "" {
			payload["country"] = opts.Country
		}
		if opts.Language != "" {
			payload["language"] = opts.Language
		}
	}
	c.buffer.Enqueue(ctx, stats.NewEvent(stats.EventCustom, payload))
}

// GetConfigValue returns the remote config value for key, or defaultValue
// when the key is absent or the config cannot be loaded. It never fails.
func (c *Client) GetConfigValue(ctx context.Context, key string, defaultValue any) any {
	configs, err := c.loader.Config(ctx, c.opts.ConfigVersion)
	if err != nil {
		return defaultValue
	}
	if value, ok := configs[key]; ok {
		return value
	}
	return defaultValue
}

// GetAllConfigs returns the full remote config document for the configured
// version channel.
func (c *Client) GetAllConfigs(ctx context.Context) (map[string]any, error) {
	return c.loader.Config(ctx, c.opts.ConfigVersion)
}

// Refresh invalidates all three cached tiers and reloads them. Partial
// failures are joined into one error; the succeeding tiers still refresh.
func (c *Client) Refresh(ctx context.Context) error {
	var errs []error
	if err := c.loader.InvalidateFlags(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.loader.InvalidateExperiments(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.loader.InvalidateConfig(ctx, c.opts.ConfigVersion); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.loader.Flags(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.loader.Experiments(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.loader.Config(ctx, c.opts.ConfigVersion); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ClearCache drops every cached definition for this client's store.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.loader.InvalidateAll(ctx)
}

// FlushStats sends all buffered telemetry now. Failures are retried with
// backoff and then swallowed; FlushStats never fails and never blocks the
// evaluation path beyond the bounded retries.
func (c *Client) FlushStats(ctx context.Context) {
	c.buffer.Flush(ctx)
}

// PendingEvents reports the number of buffered telemetry events.
func (c *Client) PendingEvents() int {
	return c.buffer.Len()
}

// Close flushes remaining telemetry best-effort. The client has no other
// resources to release.
func (c *Client) Close(ctx context.Context) error {
	c.buffer.Flush(ctx)
	return nil
}
