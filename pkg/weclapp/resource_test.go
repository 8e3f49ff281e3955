package weclapp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type article struct {
	ID            string `json:"id,omitempty"`
	ArticleNumber string `json:"articleNumber,omitempty"`
	Name          string `json:"name,omitempty"`
}

func (a article) EntityID() string {
	return a.ID
}

// recordingTransport answers every request with the configured handler and
// keeps a copy of what was sent.
type recordingTransport struct {
	mutex    sync.Mutex
	requests []*weclapp.Request
	handler  func(req *weclapp.Request) (int, string)
}

func (rt *recordingTransport) Do(ctx context.Context, req *weclapp.Request) (*weclapp.Response, error) {
	rt.mutex.Lock()
	rt.requests = append(rt.requests, req)
	rt.mutex.Unlock()

	status, body := rt.handler(req)

	resp := &weclapp.Response{StatusCode: status, Body: []byte(body)}
	if status >= http.StatusBadRequest {
		return resp, weclapp.NewResponseError(req.Method, req.Path, status, resp.Body)
	}

	return resp, nil
}

func (rt *recordingTransport) last() *weclapp.Request {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	return rt.requests[len(rt.requests)-1]
}

func respond(status int, body string) *recordingTransport {
	return &recordingTransport{handler: func(*weclapp.Request) (int, string) { return status, body }}
}

func TestNewResource_Endpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "salesOrder", weclapp.NewResource[weclapp.Record](respond(200, ""), "/salesOrder/").Endpoint())
}

func TestResource_EmptyEndpoint(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"result":[]}`)
	resource := weclapp.NewResource[weclapp.Record](transport, "/")

	_, err := resource.All(context.Background(), nil)
	require.ErrorIs(t, err, weclapp.ErrEmptyEndpoint)
	assert.Equal(t, weclapp.ErrorCodeInvalidEndpoint, weclapp.CodeOf(err))

	_, err = resource.Get(context.Background(), "1")
	require.ErrorIs(t, err, weclapp.ErrEmptyEndpoint)

	assert.Empty(t, transport.requests)
}

func TestResource_InvalidQueryIsNotSent(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"result":[]}`)
	resource := weclapp.NewResource[weclapp.Record](transport, "article")

	params := weclapp.NewQueryParams().OrWhereGroup("", func(group *weclapp.OrFilterCollector) {
		group.OrWhereEq("name", "x")
	})

	_, err := resource.All(context.Background(), params)
	require.ErrorIs(t, err, weclapp.ErrInvalidGroupName)
	assert.Empty(t, transport.requests)
}

func TestResource_Get(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"id":"42","articleNumber":"A-1","name":"Widget"}`)
	resource := weclapp.NewResource[article](transport, "article")

	entity, err := resource.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, article{ID: "42", ArticleNumber: "A-1", Name: "Widget"}, entity)

	req := transport.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/article/id/42", req.Path)
}

func TestResource_GetNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no body", ""},
		{"problem body", `{"type":"/webapp/view/error/entity_not_found","title":"not found"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resource := weclapp.NewResource[weclapp.Record](respond(http.StatusNotFound, tt.body), "article")

			entity, err := resource.Get(context.Background(), "missing")
			require.NoError(t, err)
			assert.Nil(t, entity)
		})
	}
}

func TestResource_GetServerError(t *testing.T) {
	t.Parallel()

	resource := weclapp.NewResource[weclapp.Record](respond(http.StatusInternalServerError, ""), "article")

	_, err := resource.Get(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting article 1")
	assert.Equal(t, weclapp.ErrorCodeAPIRequestFailed, weclapp.CodeOf(err))
}

func TestResource_GetEntityNotFoundProblemOnServerError(t *testing.T) {
	t.Parallel()

	body := `{"type":"/webapp/view/error/entity_not_found","title":"not found"}`
	resource := weclapp.NewResource[weclapp.Record](respond(http.StatusInternalServerError, body), "article")

	entity, err := resource.Get(context.Background(), "1")
	require.Error(t, err)
	assert.Nil(t, entity)
	assert.Equal(t, weclapp.ErrorCodeEntityNotFound, weclapp.CodeOf(err))
	assert.Contains(t, err.Error(), "getting article 1")
}

func TestResource_GetMalformedBody(t *testing.T) {
	t.Parallel()

	resource := weclapp.NewResource[article](respond(http.StatusOK, "<html>"), "article")

	entity, err := resource.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, article{}, entity)
}

func TestResource_All(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"result":[{"id":"1"},{"id":"2"}]}`)
	resource := weclapp.NewResource[article](transport, "article")

	params := weclapp.NewQueryParams().
		WhereEq("name", "Widget").
		OrderDesc("lastModifiedDate").
		Properties("id", "name")

	items, err := resource.All(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []article{{ID: "1"}, {ID: "2"}}, items)

	require.Len(t, transport.requests, 1)

	query := transport.last().Query
	assert.Equal(t, "Widget", query.Get("name-eq"))
	assert.Equal(t, "-lastModifiedDate", query.Get("sort"))
	assert.Equal(t, "id,name", query.Get("properties"))
	assert.Equal(t, "1", query.Get("page"))
	assert.Equal(t, "100", query.Get("pageSize"))
}

func TestResource_AllMissingResult(t *testing.T) {
	t.Parallel()

	resource := weclapp.NewResource[weclapp.Record](respond(http.StatusOK, `{}`), "article")

	items, err := resource.All(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestResource_AllPagesThroughServer(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{handler: func(req *weclapp.Request) (int, string) {
		switch req.Query.Get("page") {
		case "1":
			return http.StatusOK, `{"result":[{"id":"1"},{"id":"2"}]}`
		case "2":
			return http.StatusOK, `{"result":[{"id":"3"}]}`
		default:
			return http.StatusOK, `{"result":[]}`
		}
	}}
	resource := weclapp.NewResource[article](transport, "article")

	items, err := resource.All(context.Background(), weclapp.NewQueryParams().PageSize(2))
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Len(t, transport.requests, 2)
}

func TestResource_First(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"result":[{"id":"9","name":"First"}]}`)
	resource := weclapp.NewResource[article](transport, "article")

	params := weclapp.NewQueryParams().WhereEq("name", "First")

	entity, err := resource.First(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "9", entity.ID)

	query := transport.last().Query
	assert.Equal(t, "1", query.Get("page"))
	assert.Equal(t, "1", query.Get("pageSize"))

	assert.True(t, params.IsAutoPaginated())
	assert.Zero(t, params.CurrentPage())
}

func TestResource_FirstNoMatch(t *testing.T) {
	t.Parallel()

	resource := weclapp.NewResource[article](respond(http.StatusOK, `{"result":[]}`), "article")

	entity, err := resource.First(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestResource_Iterator(t *testing.T) {
	t.Parallel()

	resource := weclapp.NewResource[article](respond(http.StatusOK, `{"result":[{"id":"1"},{"id":"2"}]}`), "article")

	iterator := resource.Iterator(context.Background(), nil)

	var ids []string

	for iterator.HasNext() {
		entity, err := iterator.Next()
		require.NoError(t, err)

		ids = append(ids, entity.ID)
	}

	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestResource_CountSendsOnlyFilters(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"result":17}`)
	resource := weclapp.NewResource[weclapp.Record](transport, "salesOrder")

	params := weclapp.NewQueryParams().
		WhereEq("status", "OPEN").
		WhereGt("netAmount", 100).
		OrWhereEq("customerNumber", "C1").
		OrderAsc("orderDate").
		Properties("id").
		Page(3, 10)

	count, err := resource.Count(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 17, count)

	req := transport.last()
	assert.Equal(t, "/salesOrder/count", req.Path)
	assert.Equal(t, url.Values{
		"status-eq":    {"OPEN"},
		"netAmount-gt": {"100"},
	}, req.Query)
}

func TestResource_CountWithoutParams(t *testing.T) {
	t.Parallel()

	resource := weclapp.NewResource[weclapp.Record](respond(http.StatusOK, `{"result":0}`), "article")

	count, err := resource.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResource_Create(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusCreated, `{"id":"100","name":"New"}`)
	resource := weclapp.NewResource[article](transport, "article")

	created, err := resource.Create(context.Background(), article{Name: "New"}, weclapp.NewQueryParams().DryRun())
	require.NoError(t, err)
	assert.Equal(t, "100", created.ID)

	req := transport.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/article", req.Path)
	assert.JSONEq(t, `{"name":"New"}`, string(req.Body))
	assert.Equal(t, url.Values{"dryRun": {"true"}}, req.Query)
}

func TestResource_CreateValidationError(t *testing.T) {
	t.Parallel()

	body := `{"type":"/webapp/view/error/validation","detail":"invalid","validationErrors":[{"type":"/x/not_empty","location":"name"}]}`
	resource := weclapp.NewResource[article](respond(http.StatusUnprocessableEntity, body), "article")

	_, err := resource.Create(context.Background(), article{}, nil)
	require.Error(t, err)
	assert.True(t, weclapp.IsValidation(err))

	var apiErr *weclapp.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.ValidationErrors(), 1)
	assert.Equal(t, "name", apiErr.ValidationErrors()[0].Location)
}

func TestResource_Update(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"id":"7","name":"Renamed"}`)
	resource := weclapp.NewResource[article](transport, "article")

	params := weclapp.NewQueryParams().WhereEq("ignored", "x").DryRun()

	updated, err := resource.Update(context.Background(), article{ID: "7", Name: "Renamed"}, params)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	req := transport.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/article/id/7", req.Path)
	assert.Equal(t, url.Values{"dryRun": {"true"}}, req.Query)
}

func TestResource_PartialUpdate(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"id":"7"}`)
	resource := weclapp.NewResource[weclapp.Record](transport, "article")

	_, err := resource.PartialUpdate(context.Background(), weclapp.Record{"id": 7, "name": "x"}, nil)
	require.NoError(t, err)

	req := transport.last()
	assert.Equal(t, "/article/id/7", req.Path)
	assert.Equal(t, url.Values{"ignoreMissingProperties": {"true"}}, req.Query)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.Equal(t, "x", payload["name"])
}

func TestResource_UpdateMissingID(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{}`)
	resource := weclapp.NewResource[article](transport, "article")

	_, err := resource.Update(context.Background(), article{Name: "no id"}, nil)
	require.ErrorIs(t, err, weclapp.ErrMissingID)
	assert.Equal(t, weclapp.ErrorCodeMissingID, weclapp.CodeOf(err))
	assert.Empty(t, transport.requests)
}

func TestResource_Save(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusOK, `{"id":"1"}`)
	resource := weclapp.NewResource[article](transport, "article")

	_, err := resource.Save(context.Background(), article{Name: "new"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, transport.last().Method)

	_, err = resource.Save(context.Background(), article{ID: "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, transport.last().Method)
}

func TestResource_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		dryRun   bool
		expected bool
		wantErr  bool
	}{
		{name: "no content", status: http.StatusNoContent, expected: true},
		{name: "ok outside dry run", status: http.StatusOK, expected: false},
		{name: "ok in dry run", status: http.StatusOK, dryRun: true, expected: true},
		{name: "not found", status: http.StatusNotFound, expected: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
		{name: "forbidden", status: http.StatusForbidden, wantErr: true},
		{
			name:    "entity not found problem on server error",
			status:  http.StatusInternalServerError,
			body:    `{"type":"/webapp/view/error/entity_not_found","title":"not found"}`,
			wantErr: true,
		},
		{
			name:    "entity not found problem on conflict",
			status:  http.StatusConflict,
			body:    `{"type":"/webapp/view/error/entity_not_found"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transport := respond(tt.status, tt.body)
			resource := weclapp.NewResource[weclapp.Record](transport, "article")

			var params *weclapp.QueryParams
			if tt.dryRun {
				params = weclapp.NewQueryParams().DryRun()
			}

			deleted, err := resource.Delete(context.Background(), "5", params)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "deleting article 5")
				assert.False(t, deleted)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, deleted)

			req := transport.last()
			assert.Equal(t, http.MethodDelete, req.Method)
			assert.Equal(t, "/article/id/5", req.Path)
			assert.Equal(t, tt.dryRun, req.Query.Get("dryRun") == "true")
		})
	}
}

func TestResource_IDIsPathEscaped(t *testing.T) {
	t.Parallel()

	transport := respond(http.StatusNoContent, "")
	resource := weclapp.NewResource[weclapp.Record](transport, "document")

	_, err := resource.Delete(context.Background(), "a/b", nil)
	require.NoError(t, err)
	assert.Equal(t, "/document/id/a%2Fb", transport.last().Path)
}
