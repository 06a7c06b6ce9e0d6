package httpsvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/upload"
)

// Uploader implements ports.UploadService against the uploader HTTP API.
type Uploader struct {
	client
}

type UploaderOption func(*Uploader)

// WithUploaderHTTPClient overrides the underlying HTTP client.
func WithUploaderHTTPClient(hc *http.Client) UploaderOption {
	return func(u *Uploader) {
		u.httpClient = hc
	}
}

func NewUploader(baseURL string, opts ...UploaderOption) *Uploader {
	u := &Uploader{client: newClient(baseURL, nil)}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type initiateRequest struct {
	RedirectPath string `json:"redirect"`
	RetrievalKey string `json:"metadata.retrievalKey"`
	MimeTypes    string `json:"mimeTypes,omitempty"`
}

func (u *Uploader) InitiateUpload(ctx context.Context, redirectPath, retrievalKey, acceptedMimeTypes string) (*upload.InitiateResponse, error) {
	var out upload.InitiateResponse
	status, err := u.doJSON(ctx, http.MethodPost, "/initiate", initiateRequest{
		RedirectPath: redirectPath,
		RetrievalKey: retrievalKey,
		MimeTypes:    acceptedMimeTypes,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate upload: %w", err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, fmt.Errorf("failed to initiate upload: unexpected status %d", status)
	}
	return &out, nil
}

func (u *Uploader) GetUploadStatus(ctx context.Context, uploadID string) (*upload.StatusResponse, error) {
	var out upload.StatusResponse
	status, err := u.doJSON(ctx, http.MethodGet, "/status/"+uploadID, nil, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload status: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("upload %q: %w", uploadID, ports.ErrUploadNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to get upload status: unexpected status %d", status)
	}
	return &out, nil
}

type extendTTLRequest struct {
	FileIDs      []string `json:"fileIds"`
	RetrievalKey string   `json:"retrievalKey"`
}

func (u *Uploader) ExtendTTL(ctx context.Context, fileIDs []string, retrievalKey string) error {
	status, err := u.doJSON(ctx, http.MethodPost, "/files/persist", extendTTLRequest{
		FileIDs:      fileIDs,
		RetrievalKey: retrievalKey,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to extend file retention: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("failed to extend file retention: unexpected status %d", status)
	}
	return nil
}
