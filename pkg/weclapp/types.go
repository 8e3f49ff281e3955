package weclapp

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Request is an outgoing API call. Path is relative to the tenant base URL.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response is a completed API call.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// Transport executes requests against the weclapp API. Implementations return
// an *APIError for network failures and non-2xx responses; the response is
// still returned alongside the error when one was received.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Entity is a resource payload with an identifier. An empty id means the
// entity has not been persisted yet.
type Entity interface {
	EntityID() string
}

// Record is an untyped weclapp entity.
type Record map[string]any

// EntityID returns the "id" property rendered as text.
func (r Record) EntityID() string {
	id, ok := r["id"]
	if !ok || id == nil {
		return ""
	}

	return FormatValue(id)
}

// String returns the property as text, or "" when absent.
func (r Record) String(key string) string {
	value, ok := r[key]
	if !ok || value == nil {
		return ""
	}

	return FormatValue(value)
}

// Int returns a numeric property, or 0 when absent or not a number.
func (r Record) Int(key string) int {
	switch value := r[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	case int64:
		return int(value)
	case string:
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}

		return n
	default:
		return 0
	}
}

// listResponse is the envelope of collection and count responses.
type listResponse[T any] struct {
	Result []T `json:"result"`
}

type countResponse struct {
	Result int `json:"result"`
}
