package tabclient

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReadAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return body
}

func TestAddTags(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPut, datasourcesURL+"/ds1/tags",
		func(req *http.Request) (*http.Response, error) {
			body := string(mustReadAll(t, req.Body))
			assert.Contains(t, body, `<tag label="world">`)
			assert.Contains(t, body, `<tag label="indicators">`)
			return httpmock.NewStringResponse(http.StatusOK,
				`<tsResponse><tags><tag label="world"/><tag label="indicators"/></tags></tsResponse>`), nil
		})

	added, err := client.Datasources().AddTags(context.Background(), ID("ds1"), "world", "indicators")
	require.NoError(t, err)
	assert.Equal(t, []string{"world", "indicators"}, added)
}

func TestAddTagsValidation(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Datasources().AddTags(context.Background(), ID(""), "world")
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = client.Datasources().AddTags(context.Background(), ID("ds1"))
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestDeleteTags(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodDelete, datasourcesURL+"/ds1/tags/world",
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	httpmock.RegisterResponder(http.MethodDelete, datasourcesURL+"/ds1/tags/economic%20indicators",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	err := client.Datasources().DeleteTags(context.Background(), ID("ds1"), "world", "economic indicators")
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestUpdateTagsReconciles(t *testing.T) {
	client := newTestClient(t)

	var added, deleted []string
	httpmock.RegisterResponder(http.MethodPut, datasourcesURL+"/ds1/tags",
		func(req *http.Request) (*http.Response, error) {
			added = append(added, string(mustReadAll(t, req.Body)))
			return httpmock.NewStringResponse(http.StatusOK,
				`<tsResponse><tags><tag label="kept"/><tag label="new"/></tags></tsResponse>`), nil
		})
	httpmock.RegisterResponder(http.MethodDelete, datasourcesURL+"/ds1/tags/stale",
		func(req *http.Request) (*http.Response, error) {
			deleted = append(deleted, req.URL.Path)
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	item := &DatasourceItem{
		ID:          "ds1",
		Tags:        []string{"kept", "new"},
		initialTags: []string{"kept", "stale"},
	}
	require.NoError(t, client.Datasources().UpdateTags(context.Background(), item))

	require.Len(t, added, 1)
	assert.Contains(t, added[0], `<tag label="new">`)
	assert.NotContains(t, added[0], `<tag label="kept">`)
	assert.Len(t, deleted, 1)
	assert.Equal(t, []string{"kept", "new"}, item.initialTags)
}

func TestUpdateTagsNoEdits(t *testing.T) {
	client := newTestClient(t)

	item := &DatasourceItem{ID: "ds1", Tags: []string{"a"}, initialTags: []string{"a"}}
	require.NoError(t, client.Datasources().UpdateTags(context.Background(), item))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestTagDiff(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, tagDiff([]string{"a", "b", "c"}, []string{"a"}))
	assert.Nil(t, tagDiff([]string{"a"}, []string{"a", "b"}))
	assert.Nil(t, tagDiff(nil, nil))
}
