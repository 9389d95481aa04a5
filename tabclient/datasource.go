package tabclient

import "time"

// DatasourceItem describes one datasource on the server.
//
// Connections, revisions, permissions and data quality warnings are fetched
// lazily: they are empty until the corresponding populate call on
// [DatasourcesEndpoint] runs, and each populate call replaces the cached
// value. Reading them before populating returns [ErrNotPopulated].
type DatasourceItem struct {
	// ID is the server-assigned identifier. Empty on items that were never
	// retrieved from the server.
	ID string

	Name        string
	ContentURL  string
	Type        string
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time

	IsCertified       bool
	CertificationNote string
	EncryptExtracts   bool
	HasExtracts       bool

	UseRemoteQueryAgent bool
	WebpageURL          string
	Size                int64

	ProjectID   string
	ProjectName string
	OwnerID     string

	// Tags is the current tag set. Update syncs edits against the tags the
	// item carried when it was retrieved.
	Tags []string

	initialTags []string

	connections          []ConnectionItem
	connectionsPopulated bool

	revisions          []RevisionItem
	revisionsPopulated bool

	permissions          []PermissionsRule
	permissionsPopulated bool

	warnings          []DQWItem
	warningsPopulated bool
}

// Connections returns the datasource's connections. It fails with
// [ErrNotPopulated] until [DatasourcesEndpoint.PopulateConnections] runs.
func (d *DatasourceItem) Connections() ([]ConnectionItem, error) {
	if !d.connectionsPopulated {
		return nil, ErrNotPopulated
	}
	return d.connections, nil
}

// Revisions returns the datasource's revision history. It fails with
// [ErrNotPopulated] until [DatasourcesEndpoint.PopulateRevisions] runs.
func (d *DatasourceItem) Revisions() ([]RevisionItem, error) {
	if !d.revisionsPopulated {
		return nil, ErrNotPopulated
	}
	return d.revisions, nil
}

// Permissions returns the datasource's permission rules. It fails with
// [ErrNotPopulated] until [DatasourcesEndpoint.PopulatePermissions] runs.
func (d *DatasourceItem) Permissions() ([]PermissionsRule, error) {
	if !d.permissionsPopulated {
		return nil, ErrNotPopulated
	}
	return d.permissions, nil
}

// DataQualityWarnings returns the datasource's data quality warnings. It
// fails with [ErrNotPopulated] until [DatasourcesEndpoint.PopulateDQWs] runs.
func (d *DatasourceItem) DataQualityWarnings() ([]DQWItem, error) {
	if !d.warningsPopulated {
		return nil, ErrNotPopulated
	}
	return d.warnings, nil
}

func (d *DatasourceItem) setConnections(conns []ConnectionItem) {
	d.connections = conns
	d.connectionsPopulated = true
}

func (d *DatasourceItem) setRevisions(revs []RevisionItem) {
	d.revisions = revs
	d.revisionsPopulated = true
}

func (d *DatasourceItem) setPermissions(rules []PermissionsRule) {
	d.permissions = rules
	d.permissionsPopulated = true
}

func (d *DatasourceItem) setWarnings(warnings []DQWItem) {
	d.warnings = warnings
	d.warningsPopulated = true
}

// refID lets a *DatasourceItem stand in wherever a [ContentRef] is accepted.
func (d *DatasourceItem) refID() string { return d.ID }

// ContentRef identifies a datasource either by a retrieved item or by a raw
// id ([ID]).
type ContentRef interface {
	refID() string
}

// ID is a raw datasource identifier usable wherever a [ContentRef] is
// accepted.
type ID string

func (i ID) refID() string { return string(i) }
