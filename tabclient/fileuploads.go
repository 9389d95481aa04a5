package tabclient

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// FileUploadsEndpoint manages chunked upload sessions. A session correlates
// sequential partial uploads into one server-side artifact whose id is then
// consumed as a query parameter by publish and hyper-data operations.
type FileUploadsEndpoint struct {
	endpoint
}

func (e *FileUploadsEndpoint) baseURL() string {
	return e.client.siteBaseURL() + "/fileUploads"
}

// Initiate opens a new upload session and returns its server-assigned id.
func (e *FileUploadsEndpoint) Initiate(ctx context.Context) (string, error) {
	body, err := e.post(ctx, e.baseURL(), emptyRequest(), contentTypeXML)
	if err != nil {
		return "", err
	}
	return parseFileUpload(body)
}

// Append uploads one chunk to the session.
func (e *FileUploadsEndpoint) Append(ctx context.Context, sessionID string, chunk []byte) error {
	if sessionID == "" {
		return fmt.Errorf("%w: upload session id", ErrMissingID)
	}
	body, contentType, err := chunkAppendRequest(chunk)
	if err != nil {
		return err
	}
	_, err = e.put(ctx, e.baseURL()+"/"+sessionID, body, contentType)
	return err
}

// Upload streams r through a new upload session in chunks of the configured
// size and returns the session id.
func (e *FileUploadsEndpoint) Upload(ctx context.Context, r io.Reader) (string, error) {
	sessionID, err := e.Initiate(ctx)
	if err != nil {
		return "", err
	}

	chunk := make([]byte, e.client.config.ChunkSizeMB*bytesPerMB)
	for {
		n, readErr := io.ReadFull(r, chunk)
		if n > 0 {
			if err := e.Append(ctx, sessionID, chunk[:n]); err != nil {
				return "", err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("tabclient: reading upload source: %w", readErr)
		}
	}

	e.client.logger.Debug("completed chunked upload", zap.String("session_id", sessionID))
	return sessionID, nil
}

// UploadFile streams the file at path through a new upload session.
func (e *FileUploadsEndpoint) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("tabclient: opening upload source: %w", err)
	}
	defer f.Close()
	return e.Upload(ctx, f)
}
