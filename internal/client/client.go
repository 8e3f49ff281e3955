package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/weclapp-client/internal/auth"
	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/internal/http"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
)

// Client implements the weclapp.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	apiVersion   int
	logger       weclapp.Logger
	cache        *weclapp.CacheManager
	cacheStore   weclapp.Cache
	stopCache    context.CancelFunc
	closeOnce    sync.Once
}

// createInterceptors builds the request pipeline from config. Order matters:
// the circuit breaker and rate limiter run before a request is tagged and
// timed.
func createInterceptors(config *weclapp.Config) *weclapp.InterceptorChain {
	chain := weclapp.NewInterceptorChain()

	if config.CircuitBreaker != nil {
		breaker := weclapp.NewCircuitBreaker(config.CircuitBreaker)
		chain.AddRequestInterceptor(weclapp.CircuitBreakerRequestInterceptor(breaker))
		chain.AddResponseInterceptor(weclapp.CircuitBreakerResponseInterceptor(breaker))
	}

	if config.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(weclapp.RateLimitInterceptor(config.RequestsPerSecond, constants.DefaultRateLimitBurst))
	}

	if len(config.Headers) > 0 {
		chain.AddRequestInterceptor(weclapp.HeaderInterceptor(config.Headers))
	}

	chain.AddRequestInterceptor(weclapp.RequestIDInterceptor())

	if config.Metrics != nil {
		chain.AddRequestInterceptor(weclapp.MetricsRequestInterceptor())
		chain.AddResponseInterceptor(weclapp.MetricsResponseInterceptor(config.Metrics))
	}

	if config.Logger != nil {
		chain.AddRequestInterceptor(weclapp.LoggingInterceptor(config.Logger))
		chain.AddResponseInterceptor(weclapp.LoggingResponseInterceptor(config.Logger))
	}

	return chain
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *weclapp.Config, chain *weclapp.InterceptorChain) []http.Option {
	httpOpts := []http.Option{http.WithInterceptors(chain)}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a weclapp client authenticating with config.APIToken.
func New(ctx context.Context, config *weclapp.Config) (*Client, error) {
	if config == nil {
		return nil, weclapp.ErrConfigRequired
	}

	var tokenManager auth.TokenManager
	if config.APIToken != "" {
		tokenManager = auth.NewStaticTokenManager(config.APIToken)
	}

	return NewWithTokenManager(ctx, config, tokenManager)
}

// NewWithTokenManager creates a weclapp client with a custom token manager.
func NewWithTokenManager(ctx context.Context, config *weclapp.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, weclapp.ErrConfigRequired
	}

	baseURL, err := config.ResolveBaseURL()
	if err != nil {
		return nil, err
	}

	chain := createInterceptors(config)
	httpOpts := createHTTPClientOptions(config, chain)

	var (
		cacheManager *weclapp.CacheManager
		cache        weclapp.Cache
	)

	cacheCtx, stopCache := context.WithCancel(ctx)

	if config.Cache != nil {
		cache, err = weclapp.NewCacheFromConfig(cacheCtx, config.Cache)
		if err != nil {
			stopCache()

			return nil, fmt.Errorf("creating cache: %w", err)
		}

		cacheManager = weclapp.NewCacheManager(cache, config.Cache.Options)
		httpOpts = append(httpOpts, http.WithCache(cacheManager, nil))
	}

	logger := config.Logger
	if logger == nil {
		logger = weclapp.NopLogger{}
	}

	logger.Debug("weclapp client created", map[string]interface{}{
		"base_url":    baseURL,
		"api_version": config.APIVersion,
		"cache":       config.Cache != nil,
	})

	return &Client{
		httpClient:   http.NewClient(baseURL, tokenManager, httpOpts...),
		tokenManager: tokenManager,
		baseURL:      baseURL,
		apiVersion:   config.APIVersion,
		logger:       logger,
		cache:        cacheManager,
		cacheStore:   cache,
		stopCache:    stopCache,
	}, nil
}

// Close stops the memory cache sweep and releases NATS connections opened for
// the cache. The client must not be used afterwards.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.stopCache()

		if c.cacheStore != nil {
			weclapp.CloseCache(c.cacheStore)
		}
	})

	return nil
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the tenant API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CacheStats returns cache counters, or nil when caching is disabled.
func (c *Client) CacheStats() *weclapp.CacheStats {
	if c.cache == nil {
		return nil
	}

	return c.cache.GetStats()
}

// Query implements weclapp.Client.Query.
func (c *Client) Query(endpoint string) *weclapp.Resource[weclapp.Record] {
	return weclapp.NewResource[weclapp.Record](c.httpClient, endpoint)
}

// Transport implements weclapp.Client.Transport.
func (c *Client) Transport() weclapp.Transport {
	return c.httpClient
}

// APIVersion implements weclapp.Client.APIVersion.
func (c *Client) APIVersion() int {
	return c.apiVersion
}

// LastURL implements weclapp.Client.LastURL.
func (c *Client) LastURL() string {
	return c.httpClient.LastURL()
}

// LastResponse implements weclapp.Client.LastResponse.
func (c *Client) LastResponse() *weclapp.Response {
	return c.httpClient.LastResponse()
}

// LastErrorMessage implements weclapp.Client.LastErrorMessage.
func (c *Client) LastErrorMessage() string {
	return c.httpClient.LastErrorMessage()
}
