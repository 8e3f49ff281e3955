package weclapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Resource runs queries and CRUD operations against one weclapp endpoint
// such as "article" or "salesOrder".
type Resource[T Entity] struct {
	transport Transport
	endpoint  string
}

// NewResource binds an endpoint to a transport. Leading and trailing slashes
// of endpoint are ignored.
func NewResource[T Entity](transport Transport, endpoint string) *Resource[T] {
	return &Resource[T]{
		transport: transport,
		endpoint:  strings.Trim(endpoint, "/"),
	}
}

// Endpoint returns the normalized endpoint name.
func (r *Resource[T]) Endpoint() string {
	return r.endpoint
}

func (r *Resource[T]) collectionPath() string {
	return "/" + r.endpoint
}

func (r *Resource[T]) entityPath(id string) string {
	return "/" + r.endpoint + "/id/" + url.PathEscape(id)
}

func (r *Resource[T]) check(params *QueryParams) error {
	if r.endpoint == "" {
		return NewLocalError(ErrorCodeInvalidEndpoint, ErrEmptyEndpoint)
	}

	if params != nil {
		return params.Err()
	}

	return nil
}

func (r *Resource[T]) do(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	return r.transport.Do(ctx, &Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
	})
}

// decode unmarshals a success body. Empty or malformed bodies yield the zero
// value.
// isMissing reports a 404 response. Problem bodies on other statuses are
// failures even when their type is entity_not_found.
func isMissing(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func decode[V any](body []byte) V {
	var out V

	if len(body) == 0 {
		return out
	}

	_ = json.Unmarshal(body, &out)

	return out
}

// FetchPage issues a single collection request with the fully rendered query.
func (r *Resource[T]) FetchPage(ctx context.Context, params *QueryParams) ([]T, error) {
	err := r.check(params)
	if err != nil {
		return nil, err
	}

	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	resp, err := r.do(ctx, http.MethodGet, r.collectionPath(), query, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.endpoint, err)
	}

	return nonNil(decode[listResponse[T]](resp.Body).Result), nil
}

// Get loads a single entity by id. A missing entity yields the zero value and
// no error.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	err := r.check(nil)
	if err != nil {
		return zero, err
	}

	resp, err := r.do(ctx, http.MethodGet, r.entityPath(id), nil, nil)
	if err != nil {
		if isMissing(err) {
			return zero, nil
		}

		return zero, fmt.Errorf("getting %s %s: %w", r.endpoint, id, err)
	}

	return decode[T](resp.Body), nil
}

// First returns the first entity matching params, or nil when there is none.
// The caller's params are not modified.
func (r *Resource[T]) First(ctx context.Context, params *QueryParams) (*T, error) {
	query := NewQueryParams()
	if params != nil {
		query = params.Clone()
	}

	items, err := r.FetchPage(ctx, query.Page(1, 1))
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil //nolint:nilnil // no match is not an error
	}

	return &items[0], nil
}

// All fetches every matching entity, following the pagination rules of
// FetchAll.
func (r *Resource[T]) All(ctx context.Context, params *QueryParams) ([]T, error) {
	return r.AllWithOptions(ctx, params, nil)
}

// AllWithOptions is All with a progress callback.
func (r *Resource[T]) AllWithOptions(ctx context.Context, params *QueryParams, opts *PaginationOptions) ([]T, error) {
	err := r.check(params)
	if err != nil {
		return nil, err
	}

	return FetchAll[T](ctx, r, params, opts)
}

// Iterator walks all matching entities lazily.
func (r *Resource[T]) Iterator(ctx context.Context, params *QueryParams) *PaginationIterator[T] {
	return NewPaginationIterator[T](ctx, r, params)
}

// Count returns the number of entities matching the plain filters of params.
// Sort, pagination, selection and OR filters are not sent.
func (r *Resource[T]) Count(ctx context.Context, params *QueryParams) (int, error) {
	err := r.check(params)
	if err != nil {
		return 0, err
	}

	var query url.Values
	if params != nil {
		query = params.FilterValues()
	}

	resp, err := r.do(ctx, http.MethodGet, r.collectionPath()+"/count", query, nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", r.endpoint, err)
	}

	return decode[countResponse](resp.Body).Result, nil
}

func mutationQuery(params *QueryParams, ignoreMissingProperties bool) url.Values {
	query := url.Values{}

	if params != nil && params.IsIgnoreMissingProperties() {
		ignoreMissingProperties = true
	}

	if ignoreMissingProperties {
		query.Set(ParamIgnoreMissingProperties, "true")
	}

	if params != nil && params.IsDryRun() {
		query.Set(ParamDryRun, "true")
	}

	return query
}

func encode(data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, NewLocalError(ErrorCodeInvalidField, fmt.Errorf("encoding payload: %w", err))
	}

	return body, nil
}

// Create posts a new entity and returns the server's representation.
func (r *Resource[T]) Create(ctx context.Context, data T, params *QueryParams) (T, error) {
	var zero T

	err := r.check(params)
	if err != nil {
		return zero, err
	}

	body, err := encode(data)
	if err != nil {
		return zero, err
	}

	resp, err := r.do(ctx, http.MethodPost, r.collectionPath(), mutationQuery(params, false), body)
	if err != nil {
		return zero, fmt.Errorf("creating %s: %w", r.endpoint, err)
	}

	return decode[T](resp.Body), nil
}

// Update replaces an existing entity. data must carry an id; otherwise an
// error with ErrorCodeMissingID is returned without contacting the server.
func (r *Resource[T]) Update(ctx context.Context, data T, params *QueryParams) (T, error) {
	return r.update(ctx, data, params, false)
}

// PartialUpdate updates only the properties present in data.
func (r *Resource[T]) PartialUpdate(ctx context.Context, data T, params *QueryParams) (T, error) {
	return r.update(ctx, data, params, true)
}

func (r *Resource[T]) update(ctx context.Context, data T, params *QueryParams, ignoreMissingProperties bool) (T, error) {
	var zero T

	err := r.check(params)
	if err != nil {
		return zero, err
	}

	id := data.EntityID()
	if id == "" {
		return zero, NewLocalError(ErrorCodeMissingID, ErrMissingID)
	}

	body, err := encode(data)
	if err != nil {
		return zero, err
	}

	resp, err := r.do(ctx, http.MethodPut, r.entityPath(id), mutationQuery(params, ignoreMissingProperties), body)
	if err != nil {
		return zero, fmt.Errorf("updating %s %s: %w", r.endpoint, id, err)
	}

	return decode[T](resp.Body), nil
}

// Save updates data when it carries an id and creates it otherwise.
func (r *Resource[T]) Save(ctx context.Context, data T, params *QueryParams) (T, error) {
	if data.EntityID() != "" {
		return r.Update(ctx, data, params)
	}

	return r.Create(ctx, data, params)
}

// Delete removes an entity. It reports true on 204 No Content (or 200 in a
// dry run) and false, without error, when the entity does not exist.
func (r *Resource[T]) Delete(ctx context.Context, id string, params *QueryParams) (bool, error) {
	err := r.check(params)
	if err != nil {
		return false, err
	}

	resp, err := r.do(ctx, http.MethodDelete, r.entityPath(id), mutationQuery(params, false), nil)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}

		return false, fmt.Errorf("deleting %s %s: %w", r.endpoint, id, err)
	}

	dryRun := params != nil && params.IsDryRun()

	return resp.StatusCode == http.StatusNoContent || (dryRun && resp.StatusCode == http.StatusOK), nil
}
