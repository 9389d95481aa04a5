package tabclient

import (
	"encoding/xml"
	"fmt"
	"time"
)

// XML shapes of server responses. Every response is a <tsResponse>
// envelope; each parse helper decodes the envelope members it needs and
// converts them into the exported item types.

type datasourceXML struct {
	ID                  string    `xml:"id,attr"`
	Name                string    `xml:"name,attr"`
	ContentURL          string    `xml:"contentUrl,attr"`
	Type                string    `xml:"type,attr"`
	Description         string    `xml:"description,attr"`
	CreatedAt           time.Time `xml:"createdAt,attr"`
	UpdatedAt           time.Time `xml:"updatedAt,attr"`
	IsCertified         bool      `xml:"isCertified,attr"`
	CertificationNote   string    `xml:"certificationNote,attr"`
	EncryptExtracts     bool      `xml:"encryptExtracts,attr"`
	HasExtracts         bool      `xml:"hasExtracts,attr"`
	UseRemoteQueryAgent bool      `xml:"useRemoteQueryAgent,attr"`
	WebpageURL          string    `xml:"webpageUrl,attr"`
	Size                int64     `xml:"size,attr"`

	Project *struct {
		ID   string `xml:"id,attr"`
		Name string `xml:"name,attr"`
	} `xml:"project"`
	Owner *struct {
		ID string `xml:"id,attr"`
	} `xml:"owner"`
	Tags *struct {
		Tag []struct {
			Label string `xml:"label,attr"`
		} `xml:"tag"`
	} `xml:"tags"`
}

func (x datasourceXML) item() DatasourceItem {
	item := DatasourceItem{
		ID:                  x.ID,
		Name:                x.Name,
		ContentURL:          x.ContentURL,
		Type:                x.Type,
		Description:         x.Description,
		CreatedAt:           x.CreatedAt,
		UpdatedAt:           x.UpdatedAt,
		IsCertified:         x.IsCertified,
		CertificationNote:   x.CertificationNote,
		EncryptExtracts:     x.EncryptExtracts,
		HasExtracts:         x.HasExtracts,
		UseRemoteQueryAgent: x.UseRemoteQueryAgent,
		WebpageURL:          x.WebpageURL,
		Size:                x.Size,
	}
	if x.Project != nil {
		item.ProjectID = x.Project.ID
		item.ProjectName = x.Project.Name
	}
	if x.Owner != nil {
		item.OwnerID = x.Owner.ID
	}
	if x.Tags != nil {
		for _, tag := range x.Tags.Tag {
			item.Tags = append(item.Tags, tag.Label)
		}
		item.initialTags = append([]string(nil), item.Tags...)
	}
	return item
}

type connectionXML struct {
	ID                  string `xml:"id,attr"`
	Type                string `xml:"type,attr"`
	ServerAddress       string `xml:"serverAddress,attr"`
	ServerPort          string `xml:"serverPort,attr"`
	UserName            string `xml:"userName,attr"`
	EmbedPassword       bool   `xml:"embedPassword,attr"`
	QueryTaggingEnabled bool   `xml:"queryTaggingEnabled,attr"`
}

func (x connectionXML) item() ConnectionItem {
	return ConnectionItem{
		ID:                  x.ID,
		Type:                x.Type,
		ServerAddress:       x.ServerAddress,
		ServerPort:          x.ServerPort,
		UserName:            x.UserName,
		EmbedPassword:       x.EmbedPassword,
		QueryTaggingEnabled: x.QueryTaggingEnabled,
	}
}

type jobXML struct {
	ID          string    `xml:"id,attr"`
	Mode        string    `xml:"mode,attr"`
	Type        string    `xml:"type,attr"`
	Progress    int       `xml:"progress,attr"`
	CreatedAt   time.Time `xml:"createdAt,attr"`
	StartedAt   time.Time `xml:"startedAt,attr"`
	CompletedAt time.Time `xml:"completedAt,attr"`
	FinishCode  int       `xml:"finishCode,attr"`
}

func (x jobXML) item() JobItem {
	return JobItem{
		ID:          x.ID,
		Mode:        x.Mode,
		Type:        x.Type,
		Progress:    x.Progress,
		CreatedAt:   x.CreatedAt,
		StartedAt:   x.StartedAt,
		CompletedAt: x.CompletedAt,
		FinishCode:  x.FinishCode,
	}
}

type revisionXML struct {
	RevisionNumber string    `xml:"revisionNumber,attr"`
	Current        bool      `xml:"current,attr"`
	Deleted        bool      `xml:"deleted,attr"`
	CreatedAt      time.Time `xml:"publishedAt,attr"`
	Publisher      *struct {
		ID   string `xml:"id,attr"`
		Name string `xml:"name,attr"`
	} `xml:"publisher"`
}

func (x revisionXML) item() RevisionItem {
	item := RevisionItem{
		RevisionNumber: x.RevisionNumber,
		Current:        x.Current,
		Deleted:        x.Deleted,
		CreatedAt:      x.CreatedAt,
	}
	if x.Publisher != nil {
		item.UserID = x.Publisher.ID
		item.UserName = x.Publisher.Name
	}
	return item
}

type granteeCapabilitiesXML struct {
	User *struct {
		ID string `xml:"id,attr"`
	} `xml:"user"`
	Group *struct {
		ID string `xml:"id,attr"`
	} `xml:"group"`
	Capabilities struct {
		Capability []struct {
			Name string `xml:"name,attr"`
			Mode string `xml:"mode,attr"`
		} `xml:"capability"`
	} `xml:"capabilities"`
}

func (x granteeCapabilitiesXML) rule() PermissionsRule {
	rule := PermissionsRule{Capabilities: make(map[string]string, len(x.Capabilities.Capability))}
	switch {
	case x.User != nil:
		rule.GranteeType = GranteeUser
		rule.GranteeID = x.User.ID
	case x.Group != nil:
		rule.GranteeType = GranteeGroup
		rule.GranteeID = x.Group.ID
	}
	for _, capability := range x.Capabilities.Capability {
		rule.Capabilities[capability.Name] = capability.Mode
	}
	return rule
}

type dqwXML struct {
	ID          string    `xml:"id,attr"`
	ContentID   string    `xml:"contentId,attr"`
	ContentType string    `xml:"contentType,attr"`
	WarningType string    `xml:"type,attr"`
	Message     string    `xml:"message,attr"`
	Active      bool      `xml:"isActive,attr"`
	Severe      bool      `xml:"isSevere,attr"`
	CreatedAt   time.Time `xml:"createdAt,attr"`
}

func (x dqwXML) item() DQWItem {
	return DQWItem{
		ID:          x.ID,
		ContentID:   x.ContentID,
		ContentType: x.ContentType,
		WarningType: x.WarningType,
		Message:     x.Message,
		Active:      x.Active,
		Severe:      x.Severe,
		CreatedAt:   x.CreatedAt,
	}
}

func parseDatasourceList(body []byte) ([]DatasourceItem, PaginationItem, error) {
	var envelope struct {
		XMLName    xml.Name `xml:"tsResponse"`
		Pagination struct {
			PageNumber     int `xml:"pageNumber,attr"`
			PageSize       int `xml:"pageSize,attr"`
			TotalAvailable int `xml:"totalAvailable,attr"`
		} `xml:"pagination"`
		Datasources struct {
			Datasource []datasourceXML `xml:"datasource"`
		} `xml:"datasources"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, PaginationItem{}, fmt.Errorf("tabclient: decoding datasource list: %w", err)
	}
	items := make([]DatasourceItem, 0, len(envelope.Datasources.Datasource))
	for _, ds := range envelope.Datasources.Datasource {
		items = append(items, ds.item())
	}
	pagination := PaginationItem{
		PageNumber:     envelope.Pagination.PageNumber,
		PageSize:       envelope.Pagination.PageSize,
		TotalAvailable: envelope.Pagination.TotalAvailable,
	}
	return items, pagination, nil
}

// parseDatasource decodes a single-datasource response. Responses that
// carry the item inside a <datasources> collection are accepted too; zero
// items yield ErrItemNotFound.
func parseDatasource(body []byte) (*DatasourceItem, error) {
	var envelope struct {
		XMLName     xml.Name       `xml:"tsResponse"`
		Datasource  *datasourceXML `xml:"datasource"`
		Datasources struct {
			Datasource []datasourceXML `xml:"datasource"`
		} `xml:"datasources"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding datasource: %w", err)
	}
	if envelope.Datasource != nil {
		item := envelope.Datasource.item()
		return &item, nil
	}
	if len(envelope.Datasources.Datasource) > 0 {
		item := envelope.Datasources.Datasource[0].item()
		return &item, nil
	}
	return nil, ErrItemNotFound
}

func parseConnections(body []byte) ([]ConnectionItem, error) {
	var envelope struct {
		XMLName     xml.Name `xml:"tsResponse"`
		Connections struct {
			Connection []connectionXML `xml:"connection"`
		} `xml:"connections"`
		Connection *connectionXML `xml:"connection"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding connections: %w", err)
	}
	items := make([]ConnectionItem, 0, len(envelope.Connections.Connection))
	for _, conn := range envelope.Connections.Connection {
		items = append(items, conn.item())
	}
	if envelope.Connection != nil {
		items = append(items, envelope.Connection.item())
	}
	return items, nil
}

func parseJob(body []byte) (*JobItem, error) {
	var envelope struct {
		XMLName xml.Name `xml:"tsResponse"`
		Job     *jobXML  `xml:"job"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding job: %w", err)
	}
	if envelope.Job == nil {
		return nil, fmt.Errorf("tabclient: response carried no job: %w", ErrItemNotFound)
	}
	item := envelope.Job.item()
	return &item, nil
}

func parseRevisions(body []byte) ([]RevisionItem, error) {
	var envelope struct {
		XMLName   xml.Name `xml:"tsResponse"`
		Revisions struct {
			Revision []revisionXML `xml:"revision"`
		} `xml:"revisions"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding revisions: %w", err)
	}
	items := make([]RevisionItem, 0, len(envelope.Revisions.Revision))
	for _, rev := range envelope.Revisions.Revision {
		items = append(items, rev.item())
	}
	return items, nil
}

func parsePermissions(body []byte) ([]PermissionsRule, error) {
	var envelope struct {
		XMLName     xml.Name `xml:"tsResponse"`
		Permissions struct {
			GranteeCapabilities []granteeCapabilitiesXML `xml:"granteeCapabilities"`
		} `xml:"permissions"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding permissions: %w", err)
	}
	rules := make([]PermissionsRule, 0, len(envelope.Permissions.GranteeCapabilities))
	for _, grantee := range envelope.Permissions.GranteeCapabilities {
		rules = append(rules, grantee.rule())
	}
	return rules, nil
}

func parseDQWs(body []byte) ([]DQWItem, error) {
	var envelope struct {
		XMLName xml.Name `xml:"tsResponse"`
		List    struct {
			Warning []dqwXML `xml:"dataQualityWarning"`
		} `xml:"dataQualityWarningList"`
		Warning *dqwXML `xml:"dataQualityWarning"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding data quality warnings: %w", err)
	}
	items := make([]DQWItem, 0, len(envelope.List.Warning))
	for _, warning := range envelope.List.Warning {
		items = append(items, warning.item())
	}
	if envelope.Warning != nil {
		items = append(items, envelope.Warning.item())
	}
	return items, nil
}

func parseTags(body []byte) ([]string, error) {
	var envelope struct {
		XMLName xml.Name `xml:"tsResponse"`
		Tags    struct {
			Tag []struct {
				Label string `xml:"label,attr"`
			} `xml:"tag"`
		} `xml:"tags"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding tags: %w", err)
	}
	tags := make([]string, 0, len(envelope.Tags.Tag))
	for _, tag := range envelope.Tags.Tag {
		tags = append(tags, tag.Label)
	}
	return tags, nil
}

type sessionCredentials struct {
	Token          string
	SiteID         string
	SiteContentURL string
	UserID         string
}

func parseCredentials(body []byte) (sessionCredentials, error) {
	var envelope struct {
		XMLName     xml.Name `xml:"tsResponse"`
		Credentials struct {
			Token string `xml:"token,attr"`
			Site  struct {
				ID         string `xml:"id,attr"`
				ContentURL string `xml:"contentUrl,attr"`
			} `xml:"site"`
			User struct {
				ID string `xml:"id,attr"`
			} `xml:"user"`
		} `xml:"credentials"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return sessionCredentials{}, fmt.Errorf("tabclient: decoding credentials: %w", err)
	}
	return sessionCredentials{
		Token:          envelope.Credentials.Token,
		SiteID:         envelope.Credentials.Site.ID,
		SiteContentURL: envelope.Credentials.Site.ContentURL,
		UserID:         envelope.Credentials.User.ID,
	}, nil
}

func parseFileUpload(body []byte) (string, error) {
	var envelope struct {
		XMLName    xml.Name `xml:"tsResponse"`
		FileUpload struct {
			UploadSessionID string `xml:"uploadSessionId,attr"`
		} `xml:"fileUpload"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("tabclient: decoding file upload session: %w", err)
	}
	if envelope.FileUpload.UploadSessionID == "" {
		return "", fmt.Errorf("tabclient: response carried no upload session id")
	}
	return envelope.FileUpload.UploadSessionID, nil
}

func parseServerInfo(body []byte) (*ServerInfoItem, error) {
	var envelope struct {
		XMLName    xml.Name `xml:"tsResponse"`
		ServerInfo struct {
			ProductVersion struct {
				Value string `xml:",chardata"`
				Build string `xml:"build,attr"`
			} `xml:"productVersion"`
			RESTAPIVersion string `xml:"restApiVersion"`
		} `xml:"serverInfo"`
	}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("tabclient: decoding server info: %w", err)
	}
	return &ServerInfoItem{
		ProductVersion: envelope.ServerInfo.ProductVersion.Value,
		BuildNumber:    envelope.ServerInfo.ProductVersion.Build,
		RESTAPIVersion: envelope.ServerInfo.RESTAPIVersion,
	}, nil
}
