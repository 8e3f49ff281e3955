package weclapp

import (
	"context"
	"fmt"
)

// PageFetcher retrieves one page of results for the page fields currently
// set on params.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, params *QueryParams) ([]T, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc[T any] func(ctx context.Context, params *QueryParams) ([]T, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, params *QueryParams) ([]T, error) {
	return f(ctx, params)
}

// PaginationOptions configures multi-page fetches.
type PaginationOptions struct {
	// Progress is called after every non-empty page with the page number and
	// the number of items it contained.
	Progress func(page, count int)
}

// DefaultPaginationOptions returns options without a progress callback.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{}
}

// FetchAll collects results according to the pagination mode of params.
//
// With an explicit page selected (Page) exactly one request is issued with
// the parameters as given. Otherwise pages 1, 2, ... are requested with the
// configured page size (default 100) until a page comes back empty or short.
// When a Limit is set, results are truncated to it and no further pages are
// requested once it is reached.
//
// The page fields of params are updated in place between requests. An error
// on any page aborts the fetch and discards partial results.
func FetchAll[T any](ctx context.Context, fetcher PageFetcher[T], params *QueryParams, opts *PaginationOptions) ([]T, error) {
	if params == nil {
		params = NewQueryParams()
	}

	if opts == nil {
		opts = DefaultPaginationOptions()
	}

	if !params.forceAll {
		items, err := fetcher.FetchPage(ctx, params)
		if err != nil {
			return nil, err
		}

		return nonNil(items), nil
	}

	pageSize := params.pageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	maxTotal, capped := params.MaxTotal()
	all := make([]T, 0)

	for page := 1; ; page++ {
		params.setPage(page, pageSize)

		items, err := fetcher.FetchPage(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		if len(items) == 0 {
			break
		}

		all = append(all, items...)

		if opts.Progress != nil {
			opts.Progress(page, len(items))
		}

		if capped && len(all) >= maxTotal {
			return all[:maxTotal], nil
		}

		if len(items) < pageSize {
			break
		}
	}

	return all, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

// PaginationIterator walks results one item at a time, fetching pages lazily.
// It follows the same termination rules as FetchAll.
type PaginationIterator[T any] struct {
	ctx      context.Context //nolint:containedctx // iterator is bound to one traversal
	fetcher  PageFetcher[T]
	params   *QueryParams
	pageSize int
	page     int
	items    []T
	index    int
	returned int
	done     bool
	err      error
}

// NewPaginationIterator creates an iterator over all pages matching params.
// The params are cloned, so the caller's query is left untouched.
func NewPaginationIterator[T any](ctx context.Context, fetcher PageFetcher[T], params *QueryParams) *PaginationIterator[T] {
	if params == nil {
		params = NewQueryParams()
	} else {
		params = params.Clone()
	}

	pageSize := params.pageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &PaginationIterator[T]{
		ctx:      ctx,
		fetcher:  fetcher,
		params:   params,
		pageSize: pageSize,
	}
}

// HasNext reports whether another item is available, fetching the next page
// when the current one is exhausted.
func (it *PaginationIterator[T]) HasNext() bool {
	if it.err != nil {
		return false
	}

	if limit, ok := it.params.MaxTotal(); ok && it.returned >= limit {
		return false
	}

	if it.index < len(it.items) {
		return true
	}

	if it.done {
		return false
	}

	it.fetchNext()

	return it.err == nil && it.index < len(it.items)
}

func (it *PaginationIterator[T]) fetchNext() {
	if it.params.forceAll {
		it.page++
		it.params.setPage(it.page, it.pageSize)
	} else {
		it.done = true
	}

	items, err := it.fetcher.FetchPage(it.ctx, it.params)
	if err != nil {
		it.err = err

		return
	}

	if len(items) < it.pageSize {
		it.done = true
	}

	it.items = items
	it.index = 0
}

// Next returns the next item. It returns ErrNoMoreItems when the iteration is
// complete, or the fetch error that ended it.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		if it.err != nil {
			return zero, it.err
		}

		return zero, ErrNoMoreItems
	}

	item := it.items[it.index]
	it.index++
	it.returned++

	return item, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *PaginationIterator[T]) Err() error {
	return it.err
}
