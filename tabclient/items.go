package tabclient

import "time"

// ConnectionItem describes one data connection owned by a datasource.
type ConnectionItem struct {
	ID            string
	Type          string
	ServerAddress string
	ServerPort    string
	UserName      string

	// Password is write-only: it is sent on updates and never returned by
	// the server.
	Password      string
	EmbedPassword bool

	QueryTaggingEnabled bool

	// DatasourceID and DatasourceName back-reference the owning datasource.
	// They are set when connections are populated through the datasources
	// endpoint.
	DatasourceID   string
	DatasourceName string
}

// JobItem is a handle to an asynchronous server-side operation. Completion
// is polled elsewhere; this client only creates and returns handles.
type JobItem struct {
	ID       string
	Mode     string
	Type     string
	Progress int

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	FinishCode int
}

// RevisionItem describes one historical version of a datasource.
type RevisionItem struct {
	// ResourceID and ResourceName identify the owning datasource.
	ResourceID   string
	ResourceName string

	RevisionNumber string
	Current        bool
	Deleted        bool

	CreatedAt time.Time
	UserID    string
	UserName  string
}

// PaginationItem is the page descriptor returned alongside list queries.
type PaginationItem struct {
	PageNumber     int
	PageSize       int
	TotalAvailable int
}

// GranteeType distinguishes the two kinds of permission grantees.
type GranteeType string

const (
	GranteeUser  GranteeType = "user"
	GranteeGroup GranteeType = "group"
)

// Capability modes accepted in a permission rule.
const (
	CapabilityAllow = "Allow"
	CapabilityDeny  = "Deny"
)

// PermissionsRule grants or denies a set of capabilities to one grantee.
type PermissionsRule struct {
	GranteeType GranteeType
	GranteeID   string

	// Capabilities maps capability names (e.g. "Read", "Write", "Delete")
	// to CapabilityAllow or CapabilityDeny.
	Capabilities map[string]string
}

// DQWItem is one data quality warning attached to a datasource.
type DQWItem struct {
	ID          string
	ContentID   string
	ContentType string

	// WarningType is the server's warning category, e.g. "WARNING",
	// "DEPRECATED", "STALE", "SENSITIVE_DATA" or "MAINTENANCE".
	WarningType string

	Message string
	Active  bool
	Severe  bool

	CreatedAt time.Time
}

// ConnectionCredentials are the credentials embedded into a publish request
// for the datasource's live connection.
type ConnectionCredentials struct {
	Name     string
	Password string
	Embed    bool
	OAuth    bool
}
