package tabclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-http-utils/headers"
)

// authTokenHeader carries the session token on every signed-in request.
const authTokenHeader = "X-Tableau-Auth"

const (
	contentTypeXML  = "text/xml"
	contentTypeJSON = "application/json"
)

// endpoint is the shared HTTP plumbing embedded by every resource endpoint.
// It attaches the session token, decodes server error bodies, and leaves
// URL assembly and response mapping to the embedding endpoint.
type endpoint struct {
	client *Client
}

// do issues one HTTP request. Responses with status >= 400 are drained into
// a *ServerError; otherwise the caller owns the response and must close its
// body.
func (e *endpoint) do(ctx context.Context, method, url string, body io.Reader, contentType string, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("tabclient: building %s %s: %w", method, url, err)
	}
	if contentType != "" {
		req.Header.Set(headers.ContentType, contentType)
	}
	if token := e.client.authToken; token != "" {
		req.Header.Set(authTokenHeader, token)
	}
	for key, values := range extra {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := e.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tabclient: %s %s: %w", method, url, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeServerError(resp)
	}
	return resp, nil
}

// doRead issues one HTTP request and returns the fully read response body.
func (e *endpoint) doRead(ctx context.Context, method, url string, body []byte, contentType string, extra http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	resp, err := e.do(ctx, method, url, reader, contentType, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tabclient: reading %s %s response: %w", method, url, err)
	}
	return content, nil
}

// get issues a GET, applying the query parameters described by opts.
func (e *endpoint) get(ctx context.Context, url string, opts *RequestOptions) ([]byte, error) {
	if opts != nil {
		var err error
		if url, err = opts.apply(url); err != nil {
			return nil, err
		}
	}
	return e.doRead(ctx, http.MethodGet, url, nil, "", nil)
}

// getStream issues a GET and returns the open response for streaming. The
// caller must close the response body.
func (e *endpoint) getStream(ctx context.Context, url string) (*http.Response, error) {
	return e.do(ctx, http.MethodGet, url, nil, "", nil)
}

func (e *endpoint) post(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return e.doRead(ctx, http.MethodPost, url, body, contentType, nil)
}

func (e *endpoint) put(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return e.doRead(ctx, http.MethodPut, url, body, contentType, nil)
}

func (e *endpoint) patch(ctx context.Context, url string, body []byte, contentType string, extra http.Header) ([]byte, error) {
	return e.doRead(ctx, http.MethodPatch, url, body, contentType, extra)
}

func (e *endpoint) delete(ctx context.Context, url string) error {
	_, err := e.doRead(ctx, http.MethodDelete, url, nil, "", nil)
	return err
}
