package tabclient

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// Request bodies sent to the server. Plain requests are <tsRequest> XML;
// publish and chunk-append bodies are multipart/mixed with the XML payload
// in a "request_payload" part.

const (
	partRequestPayload = "request_payload"
	partDatasource     = "tableau_datasource"
	partFileChunk      = "tableau_file"
)

type tsRequest struct {
	XMLName     xml.Name                  `xml:"tsRequest"`
	Datasource  *datasourceRequestXML     `xml:"datasource"`
	Connection  *connectionRequestXML     `xml:"connection"`
	Tags        *tagsRequestXML           `xml:"tags"`
	Credentials *credentialsRequestXML    `xml:"credentials"`
	Site        *siteRequestXML           `xml:"site"`
	Warning     *dqwRequestXML            `xml:"dataQualityWarning"`
	Permissions *permissionsRequestXML    `xml:"permissions"`
}

type idRefXML struct {
	ID string `xml:"id,attr"`
}

type datasourceRequestXML struct {
	Name                string `xml:"name,attr,omitempty"`
	Description         string `xml:"description,attr,omitempty"`
	IsCertified         *bool  `xml:"isCertified,attr"`
	CertificationNote   string `xml:"certificationNote,attr,omitempty"`
	EncryptExtracts     *bool  `xml:"encryptExtracts,attr"`
	UseRemoteQueryAgent *bool  `xml:"useRemoteQueryAgent,attr"`

	Project               *idRefXML                 `xml:"project"`
	Owner                 *idRefXML                 `xml:"owner"`
	ConnectionCredentials *connectionCredentialsXML `xml:"connectionCredentials"`
	Connections           *connectionsRequestXML    `xml:"connections"`
}

type connectionCredentialsXML struct {
	Name     string `xml:"name,attr,omitempty"`
	Password string `xml:"password,attr,omitempty"`
	Embed    bool   `xml:"embed,attr"`
	OAuth    bool   `xml:"oAuth,attr"`
}

type connectionsRequestXML struct {
	Connection []connectionRequestXML `xml:"connection"`
}

type connectionRequestXML struct {
	ServerAddress string `xml:"serverAddress,attr,omitempty"`
	ServerPort    string `xml:"serverPort,attr,omitempty"`
	UserName      string `xml:"userName,attr,omitempty"`
	Password      string `xml:"password,attr,omitempty"`
	EmbedPassword *bool  `xml:"embedPassword,attr"`

	QueryTaggingEnabled *bool `xml:"queryTaggingEnabled,attr"`

	Credentials *connectionCredentialsXML `xml:"connectionCredentials"`
}

type tagsRequestXML struct {
	Tag []tagRequestXML `xml:"tag"`
}

type tagRequestXML struct {
	Label string `xml:"label,attr"`
}

type credentialsRequestXML struct {
	Name                      string `xml:"name,attr,omitempty"`
	Password                  string `xml:"password,attr,omitempty"`
	PersonalAccessTokenName   string `xml:"personalAccessTokenName,attr,omitempty"`
	PersonalAccessTokenSecret string `xml:"personalAccessTokenSecret,attr,omitempty"`

	Site *siteRequestXML `xml:"site"`
	User *idRefXML       `xml:"user"`
}

type siteRequestXML struct {
	ContentURL string `xml:"contentUrl,attr"`
}

type dqwRequestXML struct {
	WarningType string `xml:"type,attr,omitempty"`
	Message     string `xml:"message,attr,omitempty"`
	Active      bool   `xml:"isActive,attr"`
	Severe      bool   `xml:"isSevere,attr"`
}

type permissionsRequestXML struct {
	GranteeCapabilities []granteeCapabilitiesRequestXML `xml:"granteeCapabilities"`
}

type granteeCapabilitiesRequestXML struct {
	User         *idRefXML               `xml:"user"`
	Group        *idRefXML               `xml:"group"`
	Capabilities capabilitiesRequestXML  `xml:"capabilities"`
}

type capabilitiesRequestXML struct {
	Capability []capabilityRequestXML `xml:"capability"`
}

type capabilityRequestXML struct {
	Name string `xml:"name,attr"`
	Mode string `xml:"mode,attr"`
}

func marshalRequest(req tsRequest) ([]byte, error) {
	body, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("tabclient: encoding request: %w", err)
	}
	return body, nil
}

func emptyRequest() []byte {
	return []byte("<tsRequest />")
}

func datasourceUpdateRequest(item *DatasourceItem) ([]byte, error) {
	ds := &datasourceRequestXML{
		Name:              item.Name,
		CertificationNote: item.CertificationNote,
		IsCertified:       &item.IsCertified,
		EncryptExtracts:   &item.EncryptExtracts,
	}
	if item.ProjectID != "" {
		ds.Project = &idRefXML{ID: item.ProjectID}
	}
	if item.OwnerID != "" {
		ds.Owner = &idRefXML{ID: item.OwnerID}
	}
	return marshalRequest(tsRequest{Datasource: ds})
}

func connectionUpdateRequest(conn *ConnectionItem) ([]byte, error) {
	embed := conn.EmbedPassword
	queryTagging := conn.QueryTaggingEnabled
	return marshalRequest(tsRequest{Connection: &connectionRequestXML{
		ServerAddress:       conn.ServerAddress,
		ServerPort:          conn.ServerPort,
		UserName:            conn.UserName,
		Password:            conn.Password,
		EmbedPassword:       &embed,
		QueryTaggingEnabled: &queryTagging,
	}})
}

func tagAddRequest(tags []string) ([]byte, error) {
	req := tagsRequestXML{}
	for _, tag := range tags {
		req.Tag = append(req.Tag, tagRequestXML{Label: tag})
	}
	return marshalRequest(tsRequest{Tags: &req})
}

func dqwRequest(warning DQWItem) ([]byte, error) {
	return marshalRequest(tsRequest{Warning: &dqwRequestXML{
		WarningType: warning.WarningType,
		Message:     warning.Message,
		Active:      warning.Active,
		Severe:      warning.Severe,
	}})
}

func permissionsUpdateRequest(rules []PermissionsRule) ([]byte, error) {
	req := permissionsRequestXML{}
	for _, rule := range rules {
		grantee := granteeCapabilitiesRequestXML{}
		switch rule.GranteeType {
		case GranteeGroup:
			grantee.Group = &idRefXML{ID: rule.GranteeID}
		default:
			grantee.User = &idRefXML{ID: rule.GranteeID}
		}
		for name, mode := range rule.Capabilities {
			grantee.Capabilities.Capability = append(grantee.Capabilities.Capability,
				capabilityRequestXML{Name: name, Mode: mode})
		}
		req.GranteeCapabilities = append(req.GranteeCapabilities, grantee)
	}
	return marshalRequest(tsRequest{Permissions: &req})
}

func signInRequest(creds *credentialsRequestXML) ([]byte, error) {
	return marshalRequest(tsRequest{Credentials: creds})
}

func switchSiteRequest(contentURL string) ([]byte, error) {
	return marshalRequest(tsRequest{Site: &siteRequestXML{ContentURL: contentURL}})
}

// publishPayloadXML is the request_payload part shared by single-shot and
// chunked publishes.
func publishPayloadXML(item *DatasourceItem, creds *ConnectionCredentials, conns []ConnectionItem) ([]byte, error) {
	useRemote := item.UseRemoteQueryAgent
	ds := &datasourceRequestXML{
		Name:                item.Name,
		Description:         item.Description,
		UseRemoteQueryAgent: &useRemote,
	}
	if item.ProjectID != "" {
		ds.Project = &idRefXML{ID: item.ProjectID}
	}
	if creds != nil {
		ds.ConnectionCredentials = &connectionCredentialsXML{
			Name:     creds.Name,
			Password: creds.Password,
			Embed:    creds.Embed,
			OAuth:    creds.OAuth,
		}
	}
	if len(conns) > 0 {
		wire := &connectionsRequestXML{}
		for _, conn := range conns {
			wire.Connection = append(wire.Connection, connectionRequestXML{
				ServerAddress: conn.ServerAddress,
				ServerPort:    conn.ServerPort,
				Credentials: &connectionCredentialsXML{
					Name:     conn.UserName,
					Password: conn.Password,
					Embed:    conn.EmbedPassword,
				},
			})
		}
		ds.Connections = wire
	}
	return marshalRequest(tsRequest{Datasource: ds})
}

func writeXMLPart(w *multipart.Writer, payload []byte) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`name="%s"`, partRequestPayload)},
		"Content-Type":        {contentTypeXML},
	})
	if err != nil {
		return err
	}
	_, err = part.Write(payload)
	return err
}

func writeFilePart(w *multipart.Writer, partName, filename string, contents []byte) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`name="%s"; filename="%s"`, partName, filename)},
		"Content-Type":        {"application/octet-stream"},
	})
	if err != nil {
		return err
	}
	_, err = part.Write(contents)
	return err
}

// publishRequest builds the single-shot multipart publish body carrying both
// the XML payload and the full file contents.
func publishRequest(item *DatasourceItem, filename string, contents []byte, creds *ConnectionCredentials, conns []ConnectionItem) (body []byte, contentType string, err error) {
	payload, err := publishPayloadXML(item, creds, conns)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeXMLPart(w, payload); err != nil {
		return nil, "", fmt.Errorf("tabclient: building publish request: %w", err)
	}
	if err := writeFilePart(w, partDatasource, filename, contents); err != nil {
		return nil, "", fmt.Errorf("tabclient: building publish request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("tabclient: building publish request: %w", err)
	}
	return buf.Bytes(), "multipart/mixed; boundary=" + w.Boundary(), nil
}

// publishRequestChunked builds the multipart publish body used after a
// chunked upload session: XML payload only, no file part.
func publishRequestChunked(item *DatasourceItem, creds *ConnectionCredentials, conns []ConnectionItem) (body []byte, contentType string, err error) {
	payload, err := publishPayloadXML(item, creds, conns)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeXMLPart(w, payload); err != nil {
		return nil, "", fmt.Errorf("tabclient: building chunked publish request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("tabclient: building chunked publish request: %w", err)
	}
	return buf.Bytes(), "multipart/mixed; boundary=" + w.Boundary(), nil
}

// chunkAppendRequest builds the multipart body for one chunk appended to an
// upload session.
func chunkAppendRequest(chunk []byte) (body []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeXMLPart(w, emptyRequest()); err != nil {
		return nil, "", fmt.Errorf("tabclient: building chunk request: %w", err)
	}
	if err := writeFilePart(w, partFileChunk, "file", chunk); err != nil {
		return nil, "", fmt.Errorf("tabclient: building chunk request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("tabclient: building chunk request: %w", err)
	}
	return buf.Bytes(), "multipart/mixed; boundary=" + w.Boundary(), nil
}
