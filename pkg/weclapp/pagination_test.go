package weclapp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPageFailed = errors.New("page failed")

type pageCall struct {
	page     int
	pageSize int
}

// pagedFetcher serves pages of the given sizes and records every request.
type pagedFetcher struct {
	sizes  []int
	failOn int
	calls  []pageCall
}

func (f *pagedFetcher) FetchPage(ctx context.Context, params *weclapp.QueryParams) ([]int, error) {
	f.calls = append(f.calls, pageCall{page: params.CurrentPage(), pageSize: params.CurrentPageSize()})

	page := params.CurrentPage()
	if f.failOn != 0 && page == f.failOn {
		return nil, weclapp.NewResponseError("GET", "/article", 500, nil)
	}

	if page < 1 || page > len(f.sizes) {
		return nil, nil
	}

	offset := 0
	for _, size := range f.sizes[:page-1] {
		offset += size
	}

	items := make([]int, f.sizes[page-1])
	for i := range items {
		items[i] = offset + i
	}

	return items, nil
}

func TestFetchAll_LimitTruncatesAcrossPages(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100, 100, 100}}
	params := weclapp.NewQueryParams().Limit(250)

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, params, nil)
	require.NoError(t, err)

	assert.Len(t, items, 250)
	assert.Equal(t, 249, items[249])
	assert.Len(t, fetcher.calls, 3)
	assert.Equal(t, []pageCall{{1, 100}, {2, 100}, {3, 100}}, fetcher.calls)
}

func TestFetchAll_ExplicitPageIssuesSingleRequest(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{50, 50, 50}}
	params := weclapp.NewQueryParams().Page(2, 50)

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, params, nil)
	require.NoError(t, err)

	assert.Len(t, items, 50)
	assert.Equal(t, 50, items[0])
	assert.Equal(t, []pageCall{{2, 50}}, fetcher.calls)
}

func TestFetchAll_ExplicitPageEmptyResult(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams().Page(5, 10), nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFetchAll_StopsOnShortPage(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100, 42, 100}}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams(), nil)
	require.NoError(t, err)

	assert.Len(t, items, 242)
	assert.Len(t, fetcher.calls, 3)
}

func TestFetchAll_ContinuesAfterOversizedPage(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{150, 100, 10}}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams(), nil)
	require.NoError(t, err)

	assert.Len(t, items, 260)
	assert.Len(t, fetcher.calls, 3)
}

func TestFetchAll_StopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100}}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams(), nil)
	require.NoError(t, err)

	assert.Len(t, items, 200)
	assert.Len(t, fetcher.calls, 3)
}

func TestFetchAll_EmptyResultSet(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Len(t, fetcher.calls, 1)
}

func TestFetchAll_CustomPageSize(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{20, 20, 5}}
	params := weclapp.NewQueryParams().PageSize(20)

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, params, nil)
	require.NoError(t, err)

	assert.Len(t, items, 45)
	assert.Equal(t, []pageCall{{1, 20}, {2, 20}, {3, 20}}, fetcher.calls)
	assert.True(t, params.IsAutoPaginated())
}

func TestFetchAll_LimitSmallerThanFirstPage(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100}}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams().Limit(3), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, items)
	assert.Len(t, fetcher.calls, 1)
}

func TestFetchAll_ErrorAbortsAndDiscardsResults(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100, 100}, failOn: 2}

	items, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams(), nil)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "fetching page 2")

	var apiErr *weclapp.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestFetchAll_Progress(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 30}}

	var progress []pageCall

	opts := &weclapp.PaginationOptions{
		Progress: func(page, count int) {
			progress = append(progress, pageCall{page: page, pageSize: count})
		},
	}

	_, err := weclapp.FetchAll[int](context.Background(), fetcher, weclapp.NewQueryParams(), opts)
	require.NoError(t, err)
	assert.Equal(t, []pageCall{{1, 100}, {2, 30}}, progress)
}

func TestFetchAll_PageFetcherFunc(t *testing.T) {
	t.Parallel()

	fetcher := weclapp.PageFetcherFunc[string](func(ctx context.Context, params *weclapp.QueryParams) ([]string, error) {
		if params.CurrentPage() == 1 {
			return []string{"a", "b"}, nil
		}

		return nil, errPageFailed
	})

	items, err := weclapp.FetchAll[string](context.Background(), fetcher, weclapp.NewQueryParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
}

func TestPaginationIterator(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{2, 2, 1}}
	params := weclapp.NewQueryParams().PageSize(2)

	iterator := weclapp.NewPaginationIterator[int](context.Background(), fetcher, params)

	var items []int

	for iterator.HasNext() {
		item, err := iterator.Next()
		require.NoError(t, err)

		items = append(items, item)
	}

	require.NoError(t, iterator.Err())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, items)
	assert.Len(t, fetcher.calls, 3)

	_, err := iterator.Next()
	require.ErrorIs(t, err, weclapp.ErrNoMoreItems)

	// The caller's params are not advanced by the iterator.
	assert.Equal(t, 0, params.CurrentPage())
}

func TestPaginationIterator_Limit(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100}}
	iterator := weclapp.NewPaginationIterator[int](context.Background(), fetcher, weclapp.NewQueryParams().Limit(5))

	count := 0
	for iterator.HasNext() {
		_, err := iterator.Next()
		require.NoError(t, err)

		count++
	}

	assert.Equal(t, 5, count)
	assert.Len(t, fetcher.calls, 1)
}

func TestPaginationIterator_Error(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{100, 100}, failOn: 1}
	iterator := weclapp.NewPaginationIterator[int](context.Background(), fetcher, nil)

	assert.False(t, iterator.HasNext())

	_, err := iterator.Next()
	require.Error(t, err)
	assert.Equal(t, weclapp.ErrorCodeAPIRequestFailed, weclapp.CodeOf(err))
	require.Error(t, iterator.Err())
}

func TestPaginationIterator_SinglePage(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{sizes: []int{3, 3}}
	iterator := weclapp.NewPaginationIterator[int](context.Background(), fetcher, weclapp.NewQueryParams().Page(2, 3))

	var items []int

	for iterator.HasNext() {
		item, err := iterator.Next()
		require.NoError(t, err)

		items = append(items, item)
	}

	assert.Equal(t, []int{3, 4, 5}, items)
	assert.Equal(t, []pageCall{{2, 3}}, fetcher.calls)
}
