package tabclient

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readParts decodes a multipart/mixed body into part-name -> content.
func readParts(t *testing.T, body []byte, contentType string) map[string][]byte {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	parts := map[string][]byte{}
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		_, dispositionParams, err := mime.ParseMediaType("attachment; " + part.Header.Get("Content-Disposition"))
		require.NoError(t, err)
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		parts[dispositionParams["name"]] = content
	}
	return parts
}

func TestPublishRequest(t *testing.T) {
	item := &DatasourceItem{Name: "Sales", ProjectID: "p1", Description: "quarterly"}
	contents := []byte("PK\x03\x04fake archive")

	body, contentType, err := publishRequest(item, "Sales.tdsx", contents, nil, nil)
	require.NoError(t, err)

	parts := readParts(t, body, contentType)
	require.Len(t, parts, 2)

	payload := string(parts[partRequestPayload])
	assert.Contains(t, payload, `name="Sales"`)
	assert.Contains(t, payload, `description="quarterly"`)
	assert.Contains(t, payload, `<project id="p1">`)
	assert.Equal(t, contents, parts[partDatasource])
}

func TestPublishRequestWithCredentials(t *testing.T) {
	item := &DatasourceItem{Name: "Sales"}
	creds := &ConnectionCredentials{Name: "dbuser", Password: "dbpass", Embed: true}

	body, contentType, err := publishRequest(item, "Sales.tds", []byte("<x/>"), creds, nil)
	require.NoError(t, err)

	payload := string(readParts(t, body, contentType)[partRequestPayload])
	assert.Contains(t, payload, `<connectionCredentials name="dbuser" password="dbpass" embed="true"`)
}

func TestPublishRequestWithEmbeddedConnections(t *testing.T) {
	item := &DatasourceItem{Name: "Sales"}
	conns := []ConnectionItem{
		{ServerAddress: "db1.example.com", ServerPort: "1433", UserName: "u1", Password: "p1", EmbedPassword: true},
		{ServerAddress: "db2.example.com", UserName: "u2"},
	}

	body, contentType, err := publishRequest(item, "Sales.tds", []byte("<x/>"), nil, conns)
	require.NoError(t, err)

	payload := string(readParts(t, body, contentType)[partRequestPayload])
	assert.Contains(t, payload, `serverAddress="db1.example.com"`)
	assert.Contains(t, payload, `serverPort="1433"`)
	assert.Contains(t, payload, `serverAddress="db2.example.com"`)
}

func TestPublishRequestChunkedHasNoFilePart(t *testing.T) {
	body, contentType, err := publishRequestChunked(&DatasourceItem{Name: "Sales"}, nil, nil)
	require.NoError(t, err)

	parts := readParts(t, body, contentType)
	require.Len(t, parts, 1)
	assert.Contains(t, parts, partRequestPayload)
}

func TestChunkAppendRequest(t *testing.T) {
	chunk := bytes.Repeat([]byte("c"), 128)

	body, contentType, err := chunkAppendRequest(chunk)
	require.NoError(t, err)

	parts := readParts(t, body, contentType)
	require.Len(t, parts, 2)
	assert.Equal(t, []byte("<tsRequest />"), parts[partRequestPayload])
	assert.Equal(t, chunk, parts[partFileChunk])
}

func TestDatasourceUpdateRequest(t *testing.T) {
	certified := &DatasourceItem{
		ID:                "ds1",
		Name:              "Sales",
		IsCertified:       true,
		CertificationNote: "reviewed",
		ProjectID:         "p2",
		OwnerID:           "u7",
	}

	body, err := datasourceUpdateRequest(certified)
	require.NoError(t, err)

	payload := string(body)
	assert.Contains(t, payload, `name="Sales"`)
	assert.Contains(t, payload, `isCertified="true"`)
	assert.Contains(t, payload, `certificationNote="reviewed"`)
	assert.Contains(t, payload, `<project id="p2">`)
	assert.Contains(t, payload, `<owner id="u7">`)

	// Booleans are always serialized so a certification can be revoked.
	body, err = datasourceUpdateRequest(&DatasourceItem{ID: "ds1"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `isCertified="false"`)
}

func TestConnectionUpdateRequest(t *testing.T) {
	body, err := connectionUpdateRequest(&ConnectionItem{
		ServerAddress: "db.example.com",
		UserName:      "reporting",
		Password:      "pw",
		EmbedPassword: true,
	})
	require.NoError(t, err)

	payload := string(body)
	assert.Contains(t, payload, `serverAddress="db.example.com"`)
	assert.Contains(t, payload, `userName="reporting"`)
	assert.Contains(t, payload, `embedPassword="true"`)
}

func TestTagAddRequest(t *testing.T) {
	body, err := tagAddRequest([]string{"world", "indicators"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `<tag label="world">`)
	assert.Contains(t, string(body), `<tag label="indicators">`)
}

func TestPermissionsUpdateRequest(t *testing.T) {
	body, err := permissionsUpdateRequest([]PermissionsRule{
		{GranteeType: GranteeUser, GranteeID: "u1", Capabilities: map[string]string{"Read": CapabilityAllow}},
		{GranteeType: GranteeGroup, GranteeID: "g1", Capabilities: map[string]string{"Write": CapabilityDeny}},
	})
	require.NoError(t, err)

	payload := string(body)
	assert.Contains(t, payload, `<user id="u1">`)
	assert.Contains(t, payload, `<group id="g1">`)
	assert.Contains(t, payload, `<capability name="Read" mode="Allow">`)
	assert.Contains(t, payload, `<capability name="Write" mode="Deny">`)
}
