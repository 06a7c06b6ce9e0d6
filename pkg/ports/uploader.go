package ports

import (
	"context"
	"errors"

	"github.com/aretw0/arbor/pkg/upload"
)

// ErrUploadNotFound reports a status lookup for an unknown upload.
var ErrUploadNotFound = errors.New("upload not found")

// UploadService is the file-upload collaborator. It owns the actual
// transfer, virus scanning and object storage; the engine only initiates
// uploads and polls their status.
type UploadService interface {
	// InitiateUpload opens a new upload slot. The redirect path is where
	// the uploader sends the user after a transfer; the retrieval key
	// (an email address) scopes later file retrieval.
	InitiateUpload(ctx context.Context, redirectPath, retrievalKey, acceptedMimeTypes string) (*upload.InitiateResponse, error)

	// GetUploadStatus reports the current state of one upload.
	GetUploadStatus(ctx context.Context, uploadID string) (*upload.StatusResponse, error)

	// ExtendTTL extends retention of a session's uploaded files ahead of
	// submission.
	ExtendTTL(ctx context.Context, fileIDs []string, retrievalKey string) error
}
