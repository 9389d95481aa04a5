package tabclient

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"equality on any field", Filter{Field: FieldName, Operator: OperatorEquals, Value: "Sales"}, false},
		{"comparison on temporal field", Filter{Field: FieldUpdatedAt, Operator: OperatorGreaterThanOrEqual, Value: "2016-01-01T00:00:00Z"}, false},
		{"comparison on numeric field", Filter{Field: FieldSize, Operator: OperatorLessThan, Value: "1000"}, false},
		{"comparison on plain string field", Filter{Field: FieldName, Operator: OperatorGreaterThan, Value: "a"}, true},
		{"membership on enumerable field", Filter{Field: FieldTags, Operator: OperatorIn, Value: "[a,b]"}, false},
		{"membership on boolean field", Filter{Field: FieldIsCertified, Operator: OperatorIn, Value: "[true]"}, true},
		{"unknown operator", Filter{Field: FieldName, Operator: "like", Value: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestOptionsApply(t *testing.T) {
	opts := RequestOptions{
		PageNumber: 2,
		PageSize:   25,
		Filters: []Filter{
			{Field: FieldName, Operator: OperatorEquals, Value: "Sales"},
			{Field: FieldUpdatedAt, Operator: OperatorGreaterThan, Value: "2016-01-01T00:00:00Z"},
		},
		Sorts: []Sort{
			{Field: FieldName, Direction: SortDescending},
			{Field: FieldCreatedAt},
		},
	}

	applied, err := opts.apply("http://test/api/3.15/sites/s/datasources")
	require.NoError(t, err)

	parsed, err := url.Parse(applied)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "2", query.Get("pageNumber"))
	assert.Equal(t, "25", query.Get("pageSize"))
	assert.Equal(t, "name:eq:Sales,updatedAt:gt:2016-01-01T00:00:00Z", query.Get("filter"))
	assert.Equal(t, "name:desc,createdAt:asc", query.Get("sort"))
}

func TestRequestOptionsApplyZeroValue(t *testing.T) {
	opts := RequestOptions{}
	applied, err := opts.apply("http://test/api/3.15/sites/s/datasources")
	require.NoError(t, err)
	assert.Equal(t, "http://test/api/3.15/sites/s/datasources", applied)
}

func TestRequestOptionsApplyInvalidFilter(t *testing.T) {
	opts := RequestOptions{
		Filters: []Filter{{Field: FieldName, Operator: OperatorGreaterThan, Value: "a"}},
	}
	_, err := opts.apply("http://test/api/3.15/sites/s/datasources")
	assert.Error(t, err)
}
