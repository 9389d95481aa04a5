package tabclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-http-utils/headers"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublishMode controls how a publish treats an existing datasource with the
// same name.
type PublishMode string

const (
	// CreateNew fails if a datasource with the same name already exists.
	CreateNew PublishMode = "CreateNew"

	// Overwrite replaces an existing datasource.
	Overwrite PublishMode = "Overwrite"

	// Append appends the published data to an existing extract.
	Append PublishMode = "Append"
)

func (m PublishMode) valid() bool {
	switch m {
	case CreateNew, Overwrite, Append:
		return true
	}
	return false
}

// queryParam is the lowercased mode name used as a URL query flag.
func (m PublishMode) queryParam() string { return strings.ToLower(string(m)) }

// PublishSource is the content of a publish: either a local file path
// ([PublishPath]) or an in-memory seekable reader ([PublishReader]).
type PublishSource struct {
	path   string
	reader io.ReadSeeker
}

// PublishPath publishes the file at path. The filename, extension and size
// are derived from the filesystem.
func PublishPath(path string) PublishSource { return PublishSource{path: path} }

// PublishReader publishes the content of r. The datasource item must carry
// a name; the file type is sniffed from the content.
func PublishReader(r io.ReadSeeker) PublishSource { return PublishSource{reader: r} }

type publishOptions struct {
	credentials *ConnectionCredentials
	connections []ConnectionItem
	asJob       bool
}

// PublishOption configures optional parameters on a publish.
type PublishOption func(*publishOptions)

// WithConnectionCredentials embeds credentials for the datasource's live
// connection into the publish request.
func WithConnectionCredentials(creds ConnectionCredentials) PublishOption {
	return func(o *publishOptions) { o.credentials = &creds }
}

// WithEmbeddedConnections embeds per-connection credentials into the
// publish request.
func WithEmbeddedConnections(conns ...ConnectionItem) PublishOption {
	return func(o *publishOptions) { o.connections = conns }
}

type downloadOptions struct {
	excludeExtract bool
	target         string
	writer         io.Writer
}

// DownloadOption configures optional parameters on a download.
type DownloadOption func(*downloadOptions)

// WithoutExtract asks the server to leave the extract out of the downloaded
// content. Requires API version 2.5.
func WithoutExtract() DownloadOption {
	return func(o *downloadOptions) { o.excludeExtract = true }
}

// DownloadTo writes the download to the given path. When path names an
// existing directory the server-suggested filename is appended.
func DownloadTo(path string) DownloadOption {
	return func(o *downloadOptions) { o.target = path }
}

// DownloadToWriter streams the download into w instead of a file. The
// returned path is empty.
func DownloadToWriter(w io.Writer) DownloadOption {
	return func(o *downloadOptions) { o.writer = w }
}

// HyperAction is one action descriptor of a hyper-data update, serialized
// to JSON as-is.
type HyperAction map[string]any

// HyperDataTarget addresses a hyper-data update: a *DatasourceItem, a
// *ConnectionItem (routing through its owning datasource), or a raw [ID].
type HyperDataTarget interface {
	hyperDataPath() (string, error)
}

func (d *DatasourceItem) hyperDataPath() (string, error) {
	if d.ID == "" {
		return "", fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	return d.ID + "/data", nil
}

func (c *ConnectionItem) hyperDataPath() (string, error) {
	if c.DatasourceID == "" || c.ID == "" {
		return "", fmt.Errorf("%w: connection must carry both datasource and connection ids", ErrMissingID)
	}
	return c.DatasourceID + "/connections/" + c.ID + "/data", nil
}

func (i ID) hyperDataPath() (string, error) {
	if i == "" {
		return "", fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	return string(i) + "/data", nil
}

// UpdateHyperDataRequest describes one hyper-data update.
type UpdateHyperDataRequest struct {
	// RequestID deduplicates retried submissions on the server. A random
	// id is generated when empty.
	RequestID string

	// Actions are the update actions, serialized as the JSON request body.
	Actions []HyperAction

	// Payload optionally names a local file uploaded through a chunked
	// session and referenced by the actions.
	Payload string
}

// DatasourcesEndpoint binds the datasources resource of the REST API.
type DatasourcesEndpoint struct {
	endpoint
	permissions *permissionsEndpoint
	warnings    *dqwEndpoint
}

func newDatasourcesEndpoint(c *Client) *DatasourcesEndpoint {
	e := &DatasourcesEndpoint{endpoint: endpoint{client: c}}
	e.permissions = &permissionsEndpoint{endpoint: endpoint{client: c}, ownerURL: e.baseURL}
	e.warnings = &dqwEndpoint{endpoint: endpoint{client: c}, contentType: "datasource"}
	return e
}

func (e *DatasourcesEndpoint) baseURL() string {
	return e.client.siteBaseURL() + "/datasources"
}

// List queries all datasources on the site, one page at a time.
func (e *DatasourcesEndpoint) List(ctx context.Context, opts *RequestOptions) ([]DatasourceItem, PaginationItem, error) {
	e.client.logger.Info("querying all datasources on site")
	body, err := e.get(ctx, e.baseURL(), opts)
	if err != nil {
		return nil, PaginationItem{}, err
	}
	return parseDatasourceList(body)
}

// Get queries a single datasource by id.
func (e *DatasourcesEndpoint) Get(ctx context.Context, id string) (*DatasourceItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	e.client.logger.Info("querying single datasource", zap.String("id", id))
	body, err := e.get(ctx, e.baseURL()+"/"+id, nil)
	if err != nil {
		return nil, err
	}
	item, err := parseDatasource(body)
	if errors.Is(err, ErrItemNotFound) {
		return nil, fmt.Errorf("%w: datasource %s", ErrItemNotFound, id)
	}
	return item, err
}

// Delete removes a single datasource by id.
func (e *DatasourcesEndpoint) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	if err := e.delete(ctx, e.baseURL()+"/"+id); err != nil {
		return err
	}
	e.client.logger.Info("deleted datasource", zap.String("id", id))
	return nil
}

// Update pushes the item's mutable fields to the server and returns the
// updated item. Pending tag edits are committed first.
//
// Servers below API version 3.15 require an explicit project id whenever an
// owner id is set; the call fails fast with [ErrMissingRequiredField] in
// that case.
func (e *DatasourcesEndpoint) Update(ctx context.Context, item *DatasourceItem) (*DatasourceItem, error) {
	if item == nil || item.ID == "" {
		return nil, fmt.Errorf("%w: datasource must be retrieved from the server first", ErrMissingRequiredField)
	}
	// Servers before 3.15 reject an owner change without the project id.
	if item.OwnerID != "" && item.ProjectID == "" && !e.client.SupportsAPIVersion("3.15") {
		return nil, fmt.Errorf("%w: project id must be set when changing the owner on servers below API 3.15", ErrMissingRequiredField)
	}

	if err := e.UpdateTags(ctx, item); err != nil {
		return nil, err
	}

	body, err := datasourceUpdateRequest(item)
	if err != nil {
		return nil, err
	}
	response, err := e.put(ctx, e.baseURL()+"/"+item.ID, body, contentTypeXML)
	if err != nil {
		return nil, err
	}
	updated, err := parseDatasource(response)
	if err != nil {
		return nil, err
	}
	updated.Tags = append([]string(nil), item.Tags...)
	updated.initialTags = append([]string(nil), item.Tags...)
	e.client.logger.Info("updated datasource", zap.String("id", item.ID))
	return updated, nil
}

// UpdateConnection pushes a connection's mutable fields to the server and
// returns the updated connection, or nil when the response carried none.
func (e *DatasourcesEndpoint) UpdateConnection(ctx context.Context, item *DatasourceItem, conn *ConnectionItem) (*ConnectionItem, error) {
	if item == nil || item.ID == "" {
		return nil, fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	if conn == nil || conn.ID == "" {
		return nil, fmt.Errorf("%w: connection id", ErrMissingID)
	}

	body, err := connectionUpdateRequest(conn)
	if err != nil {
		return nil, err
	}
	response, err := e.put(ctx, e.baseURL()+"/"+item.ID+"/connections/"+conn.ID, body, contentTypeXML)
	if err != nil {
		return nil, err
	}
	connections, err := parseConnections(response)
	if err != nil {
		return nil, err
	}
	if len(connections) == 0 {
		return nil, nil
	}
	if len(connections) > 1 {
		e.client.logger.Debug("multiple connections returned", zap.Int("count", len(connections)))
	}
	for i := range connections {
		if connections[i].ID == conn.ID {
			updated := connections[i]
			updated.DatasourceID = item.ID
			updated.DatasourceName = item.Name
			e.client.logger.Info("updated datasource connection",
				zap.String("datasource_id", item.ID), zap.String("connection_id", conn.ID))
			return &updated, nil
		}
	}
	return nil, nil
}

// Refresh starts an extract refresh and returns its job handle. Requires
// API version 2.8.
func (e *DatasourcesEndpoint) Refresh(ctx context.Context, ref ContentRef) (*JobItem, error) {
	id := ref.refID()
	if id == "" {
		return nil, fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	response, err := e.post(ctx, e.baseURL()+"/"+id+"/refresh", emptyRequest(), contentTypeXML)
	if err != nil {
		return nil, err
	}
	return parseJob(response)
}

// CreateExtract converts a live datasource into an extract and returns the
// job handle. Requires API version 3.5.
func (e *DatasourcesEndpoint) CreateExtract(ctx context.Context, ref ContentRef, encrypt bool) (*JobItem, error) {
	id := ref.refID()
	if id == "" {
		return nil, fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	actionURL := fmt.Sprintf("%s/%s/createExtract?encrypt=%t", e.baseURL(), id, encrypt)
	response, err := e.post(ctx, actionURL, emptyRequest(), contentTypeXML)
	if err != nil {
		return nil, err
	}
	return parseJob(response)
}

// DeleteExtract removes a datasource's extract. Requires API version 3.5.
func (e *DatasourcesEndpoint) DeleteExtract(ctx context.Context, ref ContentRef) error {
	id := ref.refID()
	if id == "" {
		return fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	_, err := e.post(ctx, e.baseURL()+"/"+id+"/deleteExtract", emptyRequest(), contentTypeXML)
	return err
}

// Publish creates or overwrites a datasource from source and returns the
// published item. Sources at or above the configured size limit upload
// through a chunked session first.
func (e *DatasourcesEndpoint) Publish(ctx context.Context, item DatasourceItem, source PublishSource, mode PublishMode, opts ...PublishOption) (*DatasourceItem, error) {
	options := publishOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	response, filename, err := e.publish(ctx, &item, source, mode, options)
	if err != nil {
		return nil, err
	}
	published, err := parseDatasource(response)
	if err != nil {
		return nil, err
	}
	e.client.logger.Info("published datasource",
		zap.String("filename", filename), zap.String("id", published.ID))
	return published, nil
}

// PublishAsJob is like [DatasourcesEndpoint.Publish] but asks the server to
// run the publish asynchronously and returns the job handle. Requires API
// version 3.0.
func (e *DatasourcesEndpoint) PublishAsJob(ctx context.Context, item DatasourceItem, source PublishSource, mode PublishMode, opts ...PublishOption) (*JobItem, error) {
	options := publishOptions{asJob: true}
	for _, opt := range opts {
		opt(&options)
	}
	response, filename, err := e.publish(ctx, &item, source, mode, options)
	if err != nil {
		return nil, err
	}
	job, err := parseJob(response)
	if err != nil {
		return nil, err
	}
	e.client.logger.Info("published datasource as job",
		zap.String("filename", filename), zap.String("job_id", job.ID))
	return job, nil
}

func (e *DatasourcesEndpoint) publish(ctx context.Context, item *DatasourceItem, source PublishSource, mode PublishMode, options publishOptions) (response []byte, filename string, err error) {
	if !mode.valid() {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidPublishMode, mode)
	}

	var (
		fileExtension string
		fileSize      int64
	)
	switch {
	case source.path != "":
		info, statErr := os.Stat(source.path)
		if statErr != nil {
			return nil, "", fmt.Errorf("tabclient: publish source: %w", statErr)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("tabclient: publish source %s is a directory", source.path)
		}
		filename = filepath.Base(source.path)
		fileExtension = strings.TrimPrefix(filepath.Ext(filename), ".")
		fileSize = info.Size()
		if item.Name == "" {
			item.Name = strings.TrimSuffix(filename, filepath.Ext(filename))
		}
		if _, ok := allowedFileExtensions[fileExtension]; !ok {
			return nil, "", fmt.Errorf("%w: .%s", ErrUnsupportedFileType, fileExtension)
		}

	case source.reader != nil:
		if item.Name == "" {
			return nil, "", ErrMissingName
		}
		kind, sniffErr := sniffContentKind(source.reader)
		if sniffErr != nil {
			return nil, "", sniffErr
		}
		switch kind {
		case contentKindZip:
			fileExtension = "tdsx"
		case contentKindXML:
			fileExtension = "tds"
		default:
			return nil, "", fmt.Errorf("%w: unrecognized content", ErrUnsupportedFileType)
		}
		filename = item.Name + "." + fileExtension
		if fileSize, err = readerSize(source.reader); err != nil {
			return nil, "", err
		}

	default:
		return nil, "", fmt.Errorf("tabclient: publish source is required")
	}

	query := url.Values{}
	query.Set("datasourceType", fileExtension)
	query.Set(mode.queryParam(), "true")
	if options.asJob {
		query.Set("asJob", "true")
	}

	var (
		body        []byte
		contentType string
	)
	if fileSize >= e.client.config.FileSizeLimitMB*bytesPerMB {
		e.client.logger.Info("publishing with chunking method",
			zap.String("filename", filename),
			zap.Int64("size", fileSize),
			zap.Int64("limit_mb", e.client.config.FileSizeLimitMB),
			zap.Int64("chunk_mb", e.client.config.ChunkSizeMB))

		sessionID, uploadErr := e.uploadSource(ctx, source)
		if uploadErr != nil {
			return nil, "", uploadErr
		}
		query.Set("uploadSessionId", sessionID)
		if body, contentType, err = publishRequestChunked(item, options.credentials, options.connections); err != nil {
			return nil, "", err
		}
	} else {
		e.client.logger.Info("publishing", zap.String("filename", filename), zap.Int64("size", fileSize))

		var contents []byte
		if source.path != "" {
			if contents, err = os.ReadFile(source.path); err != nil {
				return nil, "", fmt.Errorf("tabclient: reading publish source: %w", err)
			}
		} else {
			if contents, err = io.ReadAll(source.reader); err != nil {
				return nil, "", fmt.Errorf("tabclient: reading publish source: %w", err)
			}
		}
		if body, contentType, err = publishRequest(item, filename, contents, options.credentials, options.connections); err != nil {
			return nil, "", err
		}
	}

	response, err = e.post(ctx, e.baseURL()+"?"+query.Encode(), body, contentType)
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) && serverErr.Timeout() && !options.asJob {
			return nil, "", fmt.Errorf("tabclient: timeout while publishing; use asynchronous publishing to avoid timeouts: %w", err)
		}
		return nil, "", err
	}
	return response, filename, nil
}

func (e *DatasourcesEndpoint) uploadSource(ctx context.Context, source PublishSource) (string, error) {
	if source.path != "" {
		return e.client.fileUploads.UploadFile(ctx, source.path)
	}
	return e.client.fileUploads.Upload(ctx, source.reader)
}

// UpdateHyperData submits an in-place update of a datasource's hyper data
// and returns the job handle. Requires API version 3.13.
func (e *DatasourcesEndpoint) UpdateHyperData(ctx context.Context, target HyperDataTarget, req UpdateHyperDataRequest) (*JobItem, error) {
	path, err := target.hyperDataPath()
	if err != nil {
		return nil, err
	}
	targetURL := e.baseURL() + "/" + path

	if req.Payload != "" {
		info, statErr := os.Stat(req.Payload)
		if statErr != nil {
			return nil, fmt.Errorf("tabclient: hyper-data payload: %w", statErr)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("tabclient: hyper-data payload %s is a directory", req.Payload)
		}
		e.client.logger.Info("uploading hyper-data payload with chunking method", zap.String("payload", req.Payload))
		sessionID, uploadErr := e.client.fileUploads.UploadFile(ctx, req.Payload)
		if uploadErr != nil {
			return nil, uploadErr
		}
		targetURL += "?uploadSessionId=" + url.QueryEscape(sessionID)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	body, err := json.Marshal(struct {
		Actions []HyperAction `json:"actions"`
	}{Actions: req.Actions})
	if err != nil {
		return nil, fmt.Errorf("tabclient: encoding hyper-data actions: %w", err)
	}

	extra := http.Header{}
	extra.Set("RequestID", requestID)
	response, err := e.patch(ctx, targetURL, body, contentTypeJSON, extra)
	if err != nil {
		return nil, err
	}
	return parseJob(response)
}

// PopulateConnections fetches the datasource's connections and caches them
// on the item, replacing any previous value.
func (e *DatasourcesEndpoint) PopulateConnections(ctx context.Context, item *DatasourceItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: datasource must be retrieved from the server first", ErrMissingRequiredField)
	}
	body, err := e.get(ctx, e.baseURL()+"/"+item.ID+"/connections", nil)
	if err != nil {
		return err
	}
	connections, err := parseConnections(body)
	if err != nil {
		return err
	}
	for i := range connections {
		connections[i].DatasourceID = item.ID
		connections[i].DatasourceName = item.Name
	}
	item.setConnections(connections)
	e.client.logger.Info("populated connections for datasource", zap.String("id", item.ID))
	return nil
}

// PopulateRevisions fetches the datasource's revision history and caches it
// on the item, replacing any previous value. Requires API version 2.3.
func (e *DatasourcesEndpoint) PopulateRevisions(ctx context.Context, item *DatasourceItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: datasource must be retrieved from the server first", ErrMissingRequiredField)
	}
	body, err := e.get(ctx, e.baseURL()+"/"+item.ID+"/revisions", nil)
	if err != nil {
		return err
	}
	revisions, err := parseRevisions(body)
	if err != nil {
		return err
	}
	for i := range revisions {
		revisions[i].ResourceID = item.ID
		revisions[i].ResourceName = item.Name
	}
	item.setRevisions(revisions)
	e.client.logger.Info("populated revisions for datasource", zap.String("id", item.ID))
	return nil
}

// Download fetches the datasource's current content. See
// [DatasourcesEndpoint.DownloadRevision] for destination handling.
func (e *DatasourcesEndpoint) Download(ctx context.Context, id string, opts ...DownloadOption) (string, error) {
	return e.DownloadRevision(ctx, id, "", opts...)
}

// DownloadRevision fetches one revision of the datasource's content
// (revisionNumber empty selects the current content). The destination is a
// caller-supplied writer ([DownloadToWriter], returned path empty) or a
// file at the path computed from [DownloadTo] and the server-suggested
// filename; the returned path is absolute.
func (e *DatasourcesEndpoint) DownloadRevision(ctx context.Context, id, revisionNumber string, opts ...DownloadOption) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	options := downloadOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	downloadURL := e.baseURL() + "/" + id + "/content"
	if revisionNumber != "" {
		downloadURL = e.baseURL() + "/" + id + "/revisions/" + revisionNumber + "/content"
	}
	if options.excludeExtract {
		downloadURL += "?includeExtract=False"
	}

	resp, err := e.getStream(ctx, downloadURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	destination, err := writeDownload(resp, options)
	if err != nil {
		return "", err
	}
	e.client.logger.Info("downloaded datasource",
		zap.String("id", id),
		zap.String("revision", revisionNumber),
		zap.String("destination", destination))
	return destination, nil
}

// downloadChunkSize is the copy unit for streamed downloads.
const downloadChunkSize = 1024

func writeDownload(resp *http.Response, options downloadOptions) (string, error) {
	buf := make([]byte, downloadChunkSize)

	if options.writer != nil {
		if _, err := io.CopyBuffer(options.writer, resp.Body, buf); err != nil {
			return "", fmt.Errorf("tabclient: writing download: %w", err)
		}
		return "", nil
	}

	filename := "download"
	if suggested := downloadFilename(resp.Header.Get(headers.ContentDisposition)); suggested != "" {
		filename = sanitizeFilename(suggested)
	}

	downloadPath := makeDownloadPath(options.target, filename)
	f, err := os.Create(downloadPath)
	if err != nil {
		return "", fmt.Errorf("tabclient: creating download file: %w", err)
	}
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		f.Close()
		return "", fmt.Errorf("tabclient: writing download: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("tabclient: closing download file: %w", err)
	}
	return filepath.Abs(downloadPath)
}

// DeleteRevision removes one revision of a datasource. Requires API
// version 2.3.
func (e *DatasourcesEndpoint) DeleteRevision(ctx context.Context, id, revisionNumber string) error {
	if id == "" {
		return fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	if revisionNumber == "" {
		return ErrMissingRevisionNumber
	}
	if err := e.delete(ctx, strings.Join([]string{e.baseURL(), id, "revisions", revisionNumber}, "/")); err != nil {
		return err
	}
	e.client.logger.Info("deleted datasource revision",
		zap.String("id", id), zap.String("revision", revisionNumber))
	return nil
}
