package flagship

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/TimurManjosov/flagship-go/cache"
	"github.com/TimurManjosov/flagship-go/transport"
)

// Config version channels. Anything else must be an explicit semver version.
const (
	VersionStable = "stable"
	VersionLatest = "latest"
)

// Canonical API endpoints per region.
var regionEndpoints = map[string]string{
	"eu": "https://api.eu.flagship.dev",
	"us": "https://api.us.flagship.dev",
}

// Options configures a Client. Platform, Environment, APIKey, and exactly one
// of Region or BaseURL are required; everything else has working defaults.
type Options struct {
	Platform    string // e.g. "ios", "android", "web"
	Environment string // e.g. "prod", "staging"
	APIKey      string

	// Endpoint selection: set Region ("eu" or "us") or an explicit BaseURL,
	// never both.
	Region  string
	BaseURL string

	// ConfigVersion selects the remote-config channel: "stable" (default),
	// "latest", or a pinned semver version.
	ConfigVersion string

	CacheTTL     time.Duration // definition cache TTL (default 60s)
	DisableCache bool          // force always-fresh fetches
	CacheStore   cache.Store   // storage collaborator (default in-memory)

	MaxQueueSize    int           // event queue capacity (default 500)
	StatsBatchSize  int           // auto-flush threshold (default 20)
	StatsMaxRetries int           // total send attempts per flush (default 3)
	StatsRetryBase  time.Duration // initial retry backoff (default 1s)

	RequestTimeout time.Duration // HTTP timeout (default 10s)

	Logger zerolog.Logger

	// Transport overrides the HTTP collaborator; mainly for tests.
	Transport transport.Transport
}

// OptionsFromEnv loads options from FLAGSHIP_* environment variables and an
// optional .env file. Environment variables take precedence over .env values.
// The result still goes through the same validation as hand-built options.
func OptionsFromEnv() Options {
	v := viper.New()
	v.SetConfigFile(".env") // optional; silently ignored if absent
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	v.SetDefault("FLAGSHIP_CONFIG_VERSION", VersionStable)
	v.SetDefault("FLAGSHIP_CACHE_TTL_SECONDS", 60)
	v.SetDefault("FLAGSHIP_CACHE_DISABLED", false)
	v.SetDefault("FLAGSHIP_MAX_QUEUE_SIZE", 500)
	v.SetDefault("FLAGSHIP_STATS_BATCH_SIZE", 20)
	v.SetDefault("FLAGSHIP_STATS_MAX_RETRIES", 3)
	v.SetDefault("FLAGSHIP_REQUEST_TIMEOUT_SECONDS", 10)

	return Options{
		Platform:        v.GetString("FLAGSHIP_PLATFORM"),
		Environment:     v.GetString("FLAGSHIP_ENV"),
		APIKey:          v.GetString("FLAGSHIP_API_KEY"),
		Region:          v.GetString("FLAGSHIP_REGION"),
		BaseURL:         v.GetString("FLAGSHIP_BASE_URL"),
		ConfigVersion:   v.GetString("FLAGSHIP_CONFIG_VERSION"),
		CacheTTL:        time.Duration(v.GetInt("FLAGSHIP_CACHE_TTL_SECONDS")) * time.Second,
		DisableCache:    v.GetBool("FLAGSHIP_CACHE_DISABLED"),
		MaxQueueSize:    v.GetInt("FLAGSHIP_MAX_QUEUE_SIZE"),
		StatsBatchSize:  v.GetInt("FLAGSHIP_STATS_BATCH_SIZE"),
		StatsMaxRetries: v.GetInt("FLAGSHIP_STATS_MAX_RETRIES"),
		RequestTimeout:  time.Duration(v.GetInt("FLAGSHIP_REQUEST_TIMEOUT_SECONDS")) * time.Second,
	}
}

// normalize applies defaults to unset optional fields.
func (o *Options) normalize() {
	if o.ConfigVersion == "" {
		o.ConfigVersion = VersionStable
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 60 * time.Second
	}
	if o.CacheStore == nil {
		o.CacheStore = cache.NewMemoryStore()
	}
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = 500
	}
	if o.StatsBatchSize <= 0 {
		o.StatsBatchSize = 20
	}
	if o.StatsMaxRetries <= 0 {
		o.StatsMaxRetries = 3
	}
	if o.StatsRetryBase <= 0 {
		o.StatsRetryBase = time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
}

// validate checks construction constraints. Called on normalized options.
func (o *Options) validate() error {
	if o.Platform == "" {
		return &ConfigurationError{Field: "Platform", Message: "platform is required"}
	}
	if o.Environment == "" {
		return &ConfigurationError{Field: "Environment", Message: "environment is required"}
	}
	if o.APIKey == "" {
		return &ConfigurationError{Field: "APIKey", Message: "API key is required"}
	}

	switch {
	case o.Region == "" && o.BaseURL == "":
		return &ConfigurationError{Field: "Region", Message: "either Region or BaseURL must be set"}
	case o.Region != "" && o.BaseURL != "":
		return &ConfigurationError{Field: "Region", Message: "Region and BaseURL are mutually exclusive"}
	case o.Region != "":
		if _, ok := regionEndpoints[o.Region]; !ok {
			return &ConfigurationError{Field: "Region", Message: "unknown region: " + o.Region}
		}
	}

	if o.ConfigVersion != VersionStable && o.ConfigVersion != VersionLatest {
		if _, err := semver.NewVersion(o.ConfigVersion); err != nil {
			return &ConfigurationError{
				Field:   "ConfigVersion",
				Message: "must be \"stable\", \"latest\", or a valid semver version",
			}
		}
	}

	return nil
}

// endpoint returns the effective API base URL. Only valid after validate.
func (o *Options) endpoint() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return regionEndpoints[o.Region]
}
