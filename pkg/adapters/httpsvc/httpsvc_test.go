package httpsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/upload"
)

func TestUploaderInitiateUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/initiate", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/form/apply/upload", body["redirect"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(upload.InitiateResponse{
			UploadID:  "b8f1a5c0-0000-4000-8000-000000000001",
			UploadURL: srvURL(r) + "/upload-and-scan/b8f1a5c0",
		})
	}))
	defer srv.Close()

	uploader := NewUploader(srv.URL)
	resp, err := uploader.InitiateUpload(context.Background(), "/form/apply/upload", "fbo@example.com", "image/jpeg,application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "b8f1a5c0-0000-4000-8000-000000000001", resp.UploadID)
	assert.Contains(t, resp.UploadURL, "/upload-and-scan/")
}

func srvURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestUploaderGetUploadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status/known":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"uploadStatus": "ready",
				"metadata":     map[string]any{"retrievalKey": "fbo@example.com"},
				"form": map[string]any{
					"file": map[string]any{
						"fileId":     "file-1",
						"filename":   "evidence.pdf",
						"fileStatus": "complete",
					},
				},
				"numberOfRejectedFiles": 0,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	uploader := NewUploader(srv.URL)

	status, err := uploader.GetUploadStatus(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, upload.UploadReady, status.UploadStatus)
	assert.Equal(t, "evidence.pdf", status.Form.File.Filename)

	_, err = uploader.GetUploadStatus(context.Background(), "unknown")
	assert.ErrorIs(t, err, ports.ErrUploadNotFound)
}

func TestUploaderExtendTTL(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/persist", r.URL.Path)
		var body struct {
			FileIDs []string `json:"fileIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body.FileIDs
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	uploader := NewUploader(srv.URL)
	require.NoError(t, uploader.ExtendTTL(context.Background(), []string{"file-1", "file-2"}, "fbo@example.com"))
	assert.Equal(t, []string{"file-1", "file-2"}, got)
}

func TestSubmitterSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submit", r.URL.Path)

		var req ports.SubmissionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "session-1", req.SessionID)
		require.Len(t, req.Main, 1)
		assert.Equal(t, "fullName", req.Main[0].Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Submit completed",
			"result": map[string]any{
				"files": map[string]any{
					"main":      "main-file-id",
					"repeaters": map[string]string{"pizzas": "repeater-file-id"},
				},
			},
		})
	}))
	defer srv.Close()

	submitter := NewSubmitter(srv.URL)
	result, err := submitter.Submit(context.Background(), ports.SubmissionRequest{
		SessionID:    "session-1",
		RetrievalKey: "fbo@example.com",
		Main:         []ports.SubmissionAnswer{{Name: "fullName", Title: "Full name", Value: "Enid Blyton"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "main-file-id", result.Files.Main)
	assert.Equal(t, "repeater-file-id", result.Files.Repeaters["pizzas"])
}

func TestSubmitterSubmitEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "ok"})
	}))
	defer srv.Close()

	submitter := NewSubmitter(srv.URL)
	_, err := submitter.Submit(context.Background(), ports.SubmissionRequest{SessionID: "session-1"})
	assert.ErrorIs(t, err, ports.ErrEmptySubmissionResponse)
}

func TestSubmitterSendNotification(t *testing.T) {
	var got ports.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	submitter := NewSubmitter(srv.URL)
	err := submitter.SendNotification(context.Background(), ports.Notification{
		TemplateID:   "template-1",
		EmailAddress: "team@example.com",
		Personalisation: ports.Personalisation{
			Subject: "Form submission: Apply for a licence",
			Body:    "# Apply for a licence\n",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "template-1", got.TemplateID)
}
