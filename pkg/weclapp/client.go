package weclapp

import (
	"fmt"
	"strings"
	"time"
)

// Supported API versions.
const (
	APIVersion1       = 1
	APIVersion2       = 2
	DefaultAPIVersion = APIVersion2
)

// Client is a configured connection to one weclapp tenant.
type Client interface {
	// Query returns untyped access to an endpoint such as "article".
	Query(endpoint string) *Resource[Record]

	// Transport exposes the underlying transport for typed resources.
	Transport() Transport

	// APIVersion returns the API version the client talks to.
	APIVersion() int

	// LastURL returns "METHOD url" of the most recent request.
	LastURL() string

	// LastResponse returns the most recent response, or nil.
	LastResponse() *Response

	// LastErrorMessage returns "[HTTP status] message" for the most recent
	// response when its body carries a message or detail.
	LastErrorMessage() string

	// Close releases cache resources. The client must not be used afterwards.
	Close() error
}

// For returns typed access to an endpoint of the client.
func For[T Entity](client Client, endpoint string) *Resource[T] {
	return NewResource[T](client.Transport(), endpoint)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a weclapp Client.
//
// Either Tenant or BaseURL must be set. BaseURL takes precedence and is used
// verbatim, which is mostly useful for tests and proxies. Per-request
// timeouts should generally be controlled via the context passed to resource
// operations; HTTPTimeout bounds every request in addition.
type Config struct {
	// Tenant: the weclapp subdomain, "acme" for https://acme.weclapp.com.
	Tenant string `mapstructure:"tenant"`
	// APIToken: sent in the AuthenticationToken header.
	APIToken string `mapstructure:"api_token"`
	// APIVersion: 1 or 2. Zero selects DefaultAPIVersion.
	APIVersion int `mapstructure:"api_version"`
	// BaseURL: overrides the URL derived from Tenant and APIVersion.
	BaseURL string `mapstructure:"base_url"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// RetryMax: socket-level retries for connection errors, 429 and 5xx.
	// Zero disables retries.
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	// RequestsPerSecond: client-side rate limit. Zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug     bool   `mapstructure:"debug"`
	Logger    Logger `mapstructure:"-"`
	UserAgent string `mapstructure:"user_agent"`
	// Headers: sent with every request, e.g. for a proxy in front of the tenant.
	Headers map[string]string `mapstructure:"headers"`

	// Cache: optional response cache for GET requests. Nil disables caching.
	Cache *CacheConfig `mapstructure:"-"`
	// Metrics: optional Prometheus collector for request metrics.
	Metrics *MetricsCollector `mapstructure:"-"`
	// CircuitBreaker: optional breaker that rejects requests after repeated
	// server failures.
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"-"`
}

// ValidateAPIVersion rejects versions other than 1 and 2.
func ValidateAPIVersion(version int) error {
	if version != APIVersion1 && version != APIVersion2 {
		return fmt.Errorf("%w: %d", ErrInvalidAPIVersion, version)
	}

	return nil
}

// BaseURL returns https://{tenant}.weclapp.com/webapp/api/v{version}.
func BaseURL(tenant string, version int) (string, error) {
	if tenant == "" {
		return "", ErrTenantRequired
	}

	err := ValidateAPIVersion(version)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.weclapp.com/webapp/api/v%d", tenant, version), nil
}

// ResolveBaseURL normalizes the configured API version and derives the base
// URL of the tenant.
func (c *Config) ResolveBaseURL() (string, error) {
	if c.APIVersion == 0 {
		c.APIVersion = DefaultAPIVersion
	}

	err := ValidateAPIVersion(c.APIVersion)
	if err != nil {
		return "", err
	}

	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/"), nil
	}

	return BaseURL(c.Tenant, c.APIVersion)
}
