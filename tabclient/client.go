package tabclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// defaultAPIVersion is the REST API version assumed before the client has
// negotiated the server's own version via [Client.UseServerVersion].
const defaultAPIVersion = "2.3"

// Client is the high-level handle for a business-intelligence server's REST
// API. It owns the HTTP transport, the signed-in session state, and the
// per-resource endpoints.
//
// Use [New] to create a Client instance:
//
//	client, err := tabclient.New(tabclient.ClientConfig{
//	    ServerURL: "https://bi.example.com",
//	    Site:      "Samples",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.Auth().SignIn(ctx, tabclient.TableauAuth{Username: "u", Password: "p"})
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger

	apiVersion string

	// Session state assigned by Auth.SignIn.
	authToken      string
	siteID         string
	siteContentURL string
	userID         string

	datasources *DatasourcesEndpoint
	fileUploads *FileUploadsEndpoint
	auth        *AuthEndpoint
}

// New creates a new client for the server described by cfg. The returned
// client is not signed in; call [AuthEndpoint.SignIn] before using
// site-scoped endpoints.
func New(cfg ClientConfig) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("tabclient: server URL is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	if cfg.FileSizeLimitMB <= 0 {
		cfg.FileSizeLimitMB = defaultFileSizeLimitMB
	}
	if cfg.ChunkSizeMB <= 0 {
		cfg.ChunkSizeMB = defaultChunkSizeMB
	}

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
		logger:     logger,
		apiVersion: apiVersion,
	}

	c.fileUploads = &FileUploadsEndpoint{endpoint: endpoint{client: c}}
	c.datasources = newDatasourcesEndpoint(c)
	c.auth = &AuthEndpoint{endpoint: endpoint{client: c}}
	return c, nil
}

// Datasources returns the datasources endpoint.
func (c *Client) Datasources() *DatasourcesEndpoint { return c.datasources }

// FileUploads returns the chunked upload session endpoint.
func (c *Client) FileUploads() *FileUploadsEndpoint { return c.fileUploads }

// Auth returns the authentication endpoint.
func (c *Client) Auth() *AuthEndpoint { return c.auth }

// HTTPClient returns the client's underlying HTTP transport, for callers
// that need to install a custom RoundTripper.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// APIVersion returns the REST API version the client issues requests with.
func (c *Client) APIVersion() string { return c.apiVersion }

// SetAPIVersion overrides the REST API version the client issues requests
// with. Prefer [Client.UseServerVersion].
func (c *Client) SetAPIVersion(v string) { c.apiVersion = v }

// AuthToken returns the current session token, or the empty string when the
// client is not signed in.
func (c *Client) AuthToken() string { return c.authToken }

// SiteID returns the server-assigned id of the signed-in site.
func (c *Client) SiteID() string { return c.siteID }

// SiteContentURL returns the content URL of the signed-in site.
func (c *Client) SiteContentURL() string { return c.siteContentURL }

// UserID returns the server-assigned id of the signed-in user.
func (c *Client) UserID() string { return c.userID }

// SupportsAPIVersion reports whether the client's negotiated REST API
// version is at least min. Unparseable versions report false.
func (c *Client) SupportsAPIVersion(min string) bool {
	current, err := version.NewVersion(c.apiVersion)
	if err != nil {
		return false
	}
	required, err := version.NewVersion(min)
	if err != nil {
		return false
	}
	return current.GreaterThanOrEqual(required)
}

// apiBaseURL is the versioned API root, {server}/api/{version}.
func (c *Client) apiBaseURL() string {
	return fmt.Sprintf("%s/api/%s", strings.TrimRight(c.config.ServerURL, "/"), c.apiVersion)
}

// siteBaseURL is the site-scoped API root, {server}/api/{version}/sites/{site}.
func (c *Client) siteBaseURL() string {
	return fmt.Sprintf("%s/sites/%s", c.apiBaseURL(), c.siteID)
}

// ServerInfoItem describes the server build and its REST API version.
type ServerInfoItem struct {
	ProductVersion string
	BuildNumber    string
	RESTAPIVersion string
}

// ServerInfo queries the server's product and REST API versions. The call
// is unauthenticated and not site-scoped.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfoItem, error) {
	e := endpoint{client: c}
	body, err := e.get(ctx, c.apiBaseURL()+"/serverinfo", nil)
	if err != nil {
		return nil, err
	}
	info, err := parseServerInfo(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("queried server info",
		zap.String("product_version", info.ProductVersion),
		zap.String("rest_api_version", info.RESTAPIVersion))
	return info, nil
}

// UseServerVersion adopts the server's negotiated REST API version for all
// subsequent requests.
func (c *Client) UseServerVersion(ctx context.Context) error {
	info, err := c.ServerInfo(ctx)
	if err != nil {
		return err
	}
	if info.RESTAPIVersion == "" {
		return fmt.Errorf("tabclient: server info response carried no REST API version")
	}
	c.apiVersion = info.RESTAPIVersion
	return nil
}
