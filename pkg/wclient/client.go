package wclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/weclapp-client/internal/client"
	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/spf13/viper"
)

// New creates a weclapp API client.
func New(ctx context.Context, config *weclapp.Config) (weclapp.Client, error) {
	if config == nil {
		return nil, weclapp.ErrConfigRequired
	}

	if config.Tenant == "" && config.BaseURL == "" {
		return nil, weclapp.ErrTenantRequired
	}

	config.Tenant = strings.TrimSpace(config.Tenant)

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithToken creates a client for tenant using the default API version.
func NewWithToken(ctx context.Context, tenant, token string) (weclapp.Client, error) {
	return New(ctx, &weclapp.Config{
		Tenant:   tenant,
		APIToken: token,
	})
}

// envConfig mirrors the WECLAPP_* environment variables.
type envConfig struct {
	Tenant            string        `mapstructure:"tenant"`
	APIToken          string        `mapstructure:"api_token"`
	APIVersion        int           `mapstructure:"api_version"`
	BaseURL           string        `mapstructure:"base_url"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	RetryMax          int           `mapstructure:"retry_max"`
	RetryWaitMin      time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax      time.Duration `mapstructure:"retry_wait_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Debug             bool          `mapstructure:"debug"`
	UserAgent         string        `mapstructure:"user_agent"`
	CacheType         string        `mapstructure:"cache_type"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheSize         int           `mapstructure:"cache_size"`
	NATSURL           string        `mapstructure:"nats_url"`
	NATSBucket        string        `mapstructure:"nats_bucket"`
}

var envKeys = []string{
	"tenant", "api_token", "api_version", "base_url",
	"http_timeout", "retry_max", "retry_wait_min", "retry_wait_max",
	"requests_per_second", "debug", "user_agent",
	"cache_type", "cache_ttl", "cache_size", "nats_url", "nats_bucket",
}

// LoadConfig reads WECLAPP_* environment variables into a Config, e.g.
// WECLAPP_TENANT, WECLAPP_API_TOKEN, WECLAPP_API_VERSION and
// WECLAPP_CACHE_TYPE (memory, nats, chain or none).
func LoadConfig() (*weclapp.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_version", weclapp.DefaultAPIVersion)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("cache_type", string(weclapp.CacheTypeNone))

	for _, key := range envKeys {
		err := v.BindEnv(key)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var env envConfig

	err := v.Unmarshal(&env)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return env.toConfig(), nil
}

func (e *envConfig) toConfig() *weclapp.Config {
	config := &weclapp.Config{
		Tenant:            e.Tenant,
		APIToken:          e.APIToken,
		APIVersion:        e.APIVersion,
		BaseURL:           e.BaseURL,
		HTTPTimeout:       e.HTTPTimeout,
		RetryMax:          e.RetryMax,
		RetryWaitMin:      e.RetryWaitMin,
		RetryWaitMax:      e.RetryWaitMax,
		RequestsPerSecond: e.RequestsPerSecond,
		Debug:             e.Debug,
		UserAgent:         e.UserAgent,
	}

	cacheType := weclapp.CacheType(strings.ToLower(e.CacheType))
	if cacheType == "" || cacheType == weclapp.CacheTypeNone {
		return config
	}

	options := weclapp.DefaultCacheOptions()
	if e.CacheTTL > 0 {
		options.TTL = e.CacheTTL
	}

	if e.CacheSize > 0 {
		options.MaxSize = e.CacheSize
	}

	config.Cache = &weclapp.CacheConfig{
		Type:    cacheType,
		Memory:  &weclapp.MemoryCacheConfig{MaxSize: options.MaxSize},
		Options: options,
	}

	if e.NATSURL != "" {
		config.Cache.NATS = &weclapp.NATSKVConfig{
			URL:    e.NATSURL,
			Bucket: e.NATSBucket,
			TTL:    options.TTL,
		}
	}

	return config
}

// NewFromEnv creates a client configured from WECLAPP_* environment variables.
func NewFromEnv(ctx context.Context) (weclapp.Client, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	return New(ctx, config)
}
