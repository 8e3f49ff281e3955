package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/weclapp-client/internal/auth"
	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/hashicorp/go-retryablehttp"
)

// Client is the weclapp HTTP transport. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	logger       weclapp.Logger
	debug        bool
	userAgent    string
	interceptors *weclapp.InterceptorChain
	authenticate weclapp.RequestInterceptor
	cache        *weclapp.CacheManager
	cachePolicy  *weclapp.CachingPolicy

	mu           sync.RWMutex
	lastURL      string
	lastResponse *weclapp.Response
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug output.
func WithLogger(logger weclapp.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig enables socket-level retries on connection errors, 429 and
// 5xx responses.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds every request, retries included.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *weclapp.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithCache serves repeated GET requests from manager. A nil policy caches
// every successful GET.
func WithCache(manager *weclapp.CacheManager, policy *weclapp.CachingPolicy) Option {
	return func(c *Client) {
		if policy == nil {
			policy = weclapp.DefaultCachingPolicy()
		}

		c.cache = manager
		c.cachePolicy = policy
	}
}

// NewClient creates a transport for baseURL, e.g.
// https://acme.weclapp.com/webapp/api/v2.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 0
	httpClient.Logger = nil
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   httpClient,
		logger:       weclapp.NopLogger{},
		userAgent:    constants.DefaultUserAgent,
		interceptors: weclapp.NewInterceptorChain(),
	}

	if tokenManager != nil {
		client.authenticate = weclapp.AuthenticationInterceptor(tokenManager.GetToken)
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return target
}

// Do executes req. Non-2xx responses are returned together with an
// *weclapp.APIError; network failures return a nil response.
func (c *Client) Do(ctx context.Context, req *weclapp.Request) (*weclapp.Response, error) {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	fullURL := c.buildURL(req.Path, req.Query)
	c.setLastURL(req.Method + " " + fullURL)

	err := c.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, weclapp.NewTransportError(req.Method, fullURL, err)
	}

	if c.authenticate != nil {
		err = c.authenticate(ctx, req)
		if err != nil {
			return nil, weclapp.NewTransportError(req.Method, fullURL, err)
		}
	}

	cacheKey := ""
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = c.cache.GetCacheKey(req.Method, req.Path, req.Query)

		if entry, cacheErr := c.cache.Get(ctx, cacheKey); cacheErr == nil {
			resp := &weclapp.Response{
				StatusCode: entry.StatusCode,
				Headers:    make(http.Header),
				Body:       entry.Data,
			}

			c.logDebug("HTTP Response (cached)", map[string]interface{}{
				"method": req.Method,
				"url":    fullURL,
				"status": entry.StatusCode,
			})
			c.setLastResponse(resp)

			return resp, nil
		}
	}

	resp, err := c.send(ctx, req, fullURL)
	if err != nil {
		failed := &weclapp.Response{Error: err}
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, req, failed)

		return nil, err
	}

	c.setLastResponse(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Error = weclapp.NewResponseError(req.Method, fullURL, resp.StatusCode, resp.Body)
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil && resp.Error == nil {
		return resp, weclapp.NewTransportError(req.Method, fullURL, err)
	}

	if resp.Error != nil {
		return resp, resp.Error
	}

	c.updateCache(ctx, req, cacheKey, resp)

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *weclapp.Request, fullURL string) (*weclapp.Response, error) {
	var body interface{}
	if len(req.Body) > 0 {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, weclapp.NewTransportError(req.Method, fullURL, fmt.Errorf("creating request: %w", err))
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	c.logDebug("HTTP Request", map[string]interface{}{
		"method":  req.Method,
		"url":     fullURL,
		"headers": redactHeaders(httpReq.Header),
	})

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, weclapp.NewTransportError(req.Method, fullURL, err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, weclapp.NewTransportError(req.Method, fullURL, fmt.Errorf("reading response body: %w", err))
	}

	c.logDebug("HTTP Response", map[string]interface{}{
		"method":   req.Method,
		"url":      fullURL,
		"status":   httpResp.StatusCode,
		"duration": time.Since(start).String(),
		"bytes":    len(respBody),
	})

	return &weclapp.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) updateCache(ctx context.Context, req *weclapp.Request, cacheKey string, resp *weclapp.Response) {
	if c.cache == nil {
		return
	}

	if req.Method == http.MethodGet {
		if c.cachePolicy.ShouldCache(req.Method, req.Path, resp.StatusCode) {
			err := c.cache.Set(ctx, cacheKey, resp.StatusCode, resp.Body)
			if err != nil {
				c.logger.Warn("failed to cache response", map[string]interface{}{"path": req.Path, "error": err.Error()})
			}
		}

		return
	}

	if c.cache.Options().InvalidateOnWrite {
		err := c.cache.Invalidate(ctx)
		if err != nil {
			c.logger.Warn("failed to invalidate cache", map[string]interface{}{"path": req.Path, "error": err.Error()})
		}
	}
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug {
		c.logger.Debug(msg, fields)
	}
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))

	for key := range headers {
		if strings.EqualFold(key, weclapp.HeaderAuthenticationToken) {
			out[key] = constants.MaskedSecret

			continue
		}

		out[key] = headers.Get(key)
	}

	return out
}

func (c *Client) setLastURL(lastURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastURL = lastURL
}

func (c *Client) setLastResponse(resp *weclapp.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastResponse = resp
}

// LastURL returns "METHOD url" of the most recent request.
func (c *Client) LastURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastURL
}

// LastResponse returns the most recent response that was received.
func (c *Client) LastResponse() *weclapp.Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastResponse
}

// LastErrorMessage formats the message or detail of the last response body as
// "[HTTP status] message". It is empty when the body carries neither.
func (c *Client) LastErrorMessage() string {
	resp := c.LastResponse()
	if resp == nil {
		return ""
	}

	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 || json.Unmarshal(resp.Body, &body) != nil {
		return ""
	}

	msg := body.Message
	if msg == "" {
		msg = body.Detail
	}

	if msg == "" {
		return ""
	}

	if resp.StatusCode == 0 {
		return msg
	}

	return fmt.Sprintf("[HTTP %d] %s", resp.StatusCode, msg)
}
