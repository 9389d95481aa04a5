package tabclient

import (
	"fmt"
	"net/url"
	"strings"
)

// FilterField enumerates the fields the server accepts filter predicates
// on. Filtering is entirely server-side; the client only forwards
// predicates.
type FilterField string

const (
	FieldAuthenticationType    FilterField = "authenticationType"
	FieldConnectedWorkbookType FilterField = "connectedWorkbookType"
	FieldConnectionTo          FilterField = "connectionTo"
	FieldConnectionType        FilterField = "connectionType"
	FieldContentURL            FilterField = "contentUrl"
	FieldCreatedAt             FilterField = "createdAt"
	FieldDatabaseName          FilterField = "databaseName"
	FieldDatabaseUserName      FilterField = "databaseUserName"
	FieldDescription           FilterField = "description"
	FieldFavoritesTotal        FilterField = "favoritesTotal"
	FieldHasAlert              FilterField = "hasAlert"
	FieldHasEmbeddedPassword   FilterField = "hasEmbeddedPassword"
	FieldHasExtracts           FilterField = "hasExtracts"
	FieldIsCertified           FilterField = "isCertified"
	FieldIsConnectable         FilterField = "isConnectable"
	FieldIsDefaultPort         FilterField = "isDefaultPort"
	FieldIsHierarchical        FilterField = "isHierarchical"
	FieldIsPublished           FilterField = "isPublished"
	FieldName                  FilterField = "name"
	FieldOwnerDomain           FilterField = "ownerDomain"
	FieldOwnerEmail            FilterField = "ownerEmail"
	FieldOwnerName             FilterField = "ownerName"
	FieldProjectName           FilterField = "projectName"
	FieldServerName            FilterField = "serverName"
	FieldServerPort            FilterField = "serverPort"
	FieldSize                  FilterField = "size"
	FieldTableName             FilterField = "tableName"
	FieldTags                  FilterField = "tags"
	FieldType                  FilterField = "type"
	FieldUpdatedAt             FilterField = "updatedAt"
)

// FilterOperator enumerates predicate operators. Equality applies to every
// field; comparison operators apply to numeric and temporal fields;
// membership applies to enumerable string fields.
type FilterOperator string

const (
	OperatorEquals             FilterOperator = "eq"
	OperatorGreaterThan        FilterOperator = "gt"
	OperatorGreaterThanOrEqual FilterOperator = "gte"
	OperatorLessThan           FilterOperator = "lt"
	OperatorLessThanOrEqual    FilterOperator = "lte"
	OperatorIn                 FilterOperator = "in"
)

// comparableFields accept gt/gte/lt/lte.
var comparableFields = map[FilterField]struct{}{
	FieldConnectedWorkbookType: {},
	FieldCreatedAt:             {},
	FieldFavoritesTotal:        {},
	FieldSize:                  {},
	FieldUpdatedAt:             {},
}

// membershipFields accept the in operator.
var membershipFields = map[FilterField]struct{}{
	FieldAuthenticationType: {},
	FieldConnectionTo:       {},
	FieldConnectionType:     {},
	FieldContentURL:         {},
	FieldDatabaseName:       {},
	FieldDatabaseUserName:   {},
	FieldDescription:        {},
	FieldName:               {},
	FieldOwnerDomain:        {},
	FieldOwnerName:          {},
	FieldProjectName:        {},
	FieldServerName:         {},
	FieldTableName:          {},
	FieldTags:               {},
}

// Filter is one server-side predicate.
type Filter struct {
	Field    FilterField
	Operator FilterOperator
	Value    string
}

func (f Filter) validate() error {
	switch f.Operator {
	case OperatorEquals:
		return nil
	case OperatorGreaterThan, OperatorGreaterThanOrEqual, OperatorLessThan, OperatorLessThanOrEqual:
		if _, ok := comparableFields[f.Field]; !ok {
			return fmt.Errorf("tabclient: field %s does not support operator %s", f.Field, f.Operator)
		}
		return nil
	case OperatorIn:
		if _, ok := membershipFields[f.Field]; !ok {
			return fmt.Errorf("tabclient: field %s does not support operator %s", f.Field, f.Operator)
		}
		return nil
	default:
		return fmt.Errorf("tabclient: unknown filter operator %q", f.Operator)
	}
}

func (f Filter) expression() string {
	return fmt.Sprintf("%s:%s:%s", f.Field, f.Operator, f.Value)
}

// SortDirection orders server-side sorting.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Sort is one server-side sort key.
type Sort struct {
	Field     FilterField
	Direction SortDirection
}

// RequestOptions carries paging, filter and sort parameters for list
// queries. The zero value requests the server defaults.
type RequestOptions struct {
	// PageNumber selects the result page, starting at 1. Zero lets the
	// server default apply.
	PageNumber int

	// PageSize bounds the number of items per page (server accepts 1-1000).
	PageSize int

	Filters []Filter
	Sorts   []Sort
}

// apply folds the options into rawURL's query string. Filter validation
// failures surface before any network call.
func (o *RequestOptions) apply(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("tabclient: parsing url %s: %w", rawURL, err)
	}
	query := parsed.Query()

	if o.PageNumber > 0 {
		query.Set("pageNumber", fmt.Sprintf("%d", o.PageNumber))
	}
	if o.PageSize > 0 {
		query.Set("pageSize", fmt.Sprintf("%d", o.PageSize))
	}

	if len(o.Filters) > 0 {
		expressions := make([]string, 0, len(o.Filters))
		for _, filter := range o.Filters {
			if err := filter.validate(); err != nil {
				return "", err
			}
			expressions = append(expressions, filter.expression())
		}
		query.Set("filter", strings.Join(expressions, ","))
	}

	if len(o.Sorts) > 0 {
		expressions := make([]string, 0, len(o.Sorts))
		for _, sort := range o.Sorts {
			direction := sort.Direction
			if direction == "" {
				direction = SortAscending
			}
			expressions = append(expressions, fmt.Sprintf("%s:%s", sort.Field, direction))
		}
		query.Set("sort", strings.Join(expressions, ","))
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
