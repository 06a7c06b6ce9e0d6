package httpsvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/arbor/pkg/ports"
)

// Submitter implements ports.SubmissionService against the submission
// and notification HTTP APIs.
type Submitter struct {
	client
	notifyURL string
}

type SubmitterOption func(*Submitter)

// WithSubmitterHTTPClient overrides the underlying HTTP client.
func WithSubmitterHTTPClient(hc *http.Client) SubmitterOption {
	return func(s *Submitter) {
		s.httpClient = hc
	}
}

// WithNotifyURL points notifications at a separate service. By default
// they go to the submission service's own /notify endpoint.
func WithNotifyURL(url string) SubmitterOption {
	return func(s *Submitter) {
		s.notifyURL = url
	}
}

func NewSubmitter(baseURL string, opts ...SubmitterOption) *Submitter {
	s := &Submitter{client: newClient(baseURL, nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type submitResponse struct {
	Message string                  `json:"message"`
	Result  *ports.SubmissionResult `json:"result"`
}

func (s *Submitter) Submit(ctx context.Context, req ports.SubmissionRequest) (*ports.SubmissionResult, error) {
	var out submitResponse
	status, err := s.doJSON(ctx, http.MethodPost, "/submit", req, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to submit form: %w", err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, fmt.Errorf("failed to submit form: unexpected status %d", status)
	}
	if out.Result == nil {
		return nil, ports.ErrEmptySubmissionResponse
	}
	return out.Result, nil
}

func (s *Submitter) SendNotification(ctx context.Context, notification ports.Notification) error {
	url := s.notifyURL
	path := "/notify"
	c := s.client
	if url != "" {
		c = newClient(url, s.httpClient)
		path = ""
	}
	status, err := c.doJSON(ctx, http.MethodPost, path, notification, nil)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("failed to send notification: unexpected status %d", status)
	}
	return nil
}
