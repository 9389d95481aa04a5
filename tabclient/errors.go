package tabclient

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for argument validation. Every operation validates its
// arguments before issuing any network call, so a wrapped sentinel means
// nothing was sent to the server.
var (
	// ErrMissingID reports an empty datasource (or connection) identifier.
	ErrMissingID = errors.New("tabclient: identifier is required")

	// ErrMissingRevisionNumber reports an empty revision number on a
	// revision-scoped operation.
	ErrMissingRevisionNumber = errors.New("tabclient: revision number is required")

	// ErrMissingName reports a publish from an in-memory source without a
	// datasource name set on the item.
	ErrMissingName = errors.New("tabclient: datasource name is required when publishing from a reader")

	// ErrInvalidPublishMode reports a publish mode outside the enumerated set.
	ErrInvalidPublishMode = errors.New("tabclient: invalid publish mode")

	// ErrUnsupportedFileType reports a publish source whose extension or
	// sniffed content is not an accepted datasource format.
	ErrUnsupportedFileType = errors.New("tabclient: unsupported file type")

	// ErrMissingRequiredField reports an operation that needs a field the
	// item does not carry, such as the server-assigned id on an item that
	// was never retrieved from the server.
	ErrMissingRequiredField = errors.New("tabclient: missing required field")

	// ErrNotPopulated reports access to a lazily fetched field before the
	// corresponding populate call.
	ErrNotPopulated = errors.New("tabclient: not populated; call the populate method first")

	// ErrItemNotFound reports a lookup whose response carried zero items.
	ErrItemNotFound = errors.New("tabclient: item not found")
)

// ServerError is a failure reported by the server, decoded from the XML
// error body that accompanies 4xx/5xx responses.
type ServerError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the server's own error code (e.g. "401001"). Empty when the
	// response body carried no parseable error element.
	Code string

	// Summary is the short description reported by the server.
	Summary string

	// Detail is the long description reported by the server.
	Detail string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tabclient: server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("tabclient: server returned %d (code %s): %s: %s", e.StatusCode, e.Code, e.Summary, e.Detail)
}

// Timeout reports whether the failure was a gateway timeout. Synchronous
// publishes of large datasources commonly hit this; publishing as a job
// avoids it.
func (e *ServerError) Timeout() bool {
	return e.StatusCode == http.StatusGatewayTimeout
}

// SignInError wraps the server failure behind a rejected sign-in.
type SignInError struct {
	Err error
}

func (e *SignInError) Error() string {
	return fmt.Sprintf("tabclient: sign in failed: %v", e.Err)
}

func (e *SignInError) Unwrap() error { return e.Err }

// decodeServerError drains an error response into a *ServerError. The body
// is consumed but not closed; the caller owns the response.
func decodeServerError(resp *http.Response) *ServerError {
	serverErr := &ServerError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return serverErr
	}

	var envelope struct {
		XMLName xml.Name `xml:"tsResponse"`
		Error   struct {
			Code    string `xml:"code,attr"`
			Summary string `xml:"summary"`
			Detail  string `xml:"detail"`
		} `xml:"error"`
	}
	if err := xml.Unmarshal(body, &envelope); err == nil {
		serverErr.Code = envelope.Error.Code
		serverErr.Summary = envelope.Error.Summary
		serverErr.Detail = envelope.Error.Detail
	}
	return serverErr
}
