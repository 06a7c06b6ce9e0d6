package ports

import (
	"context"
	"errors"
)

// ErrEmptySubmissionResponse reports a submission accepted with no
// result payload. No safe default exists, so the request fails rather
// than silently appearing to succeed.
var ErrEmptySubmissionResponse = errors.New("submission service returned an empty response")

// SubmissionAnswer is one answered field in a submission payload.
type SubmissionAnswer struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SubmissionRequest carries a completed form's machine-formatted data.
// Repeaters serialise their items as a JSON value string.
type SubmissionRequest struct {
	SessionID    string             `json:"sessionId"`
	RetrievalKey string             `json:"retrievalKey"`
	Main         []SubmissionAnswer `json:"main"`
	Repeaters    []SubmissionAnswer `json:"repeaters"`
}

// SubmissionResult reports where the submitted data was filed.
type SubmissionResult struct {
	Files SubmissionFiles `json:"files"`
}

type SubmissionFiles struct {
	Main      string            `json:"main"`
	Repeaters map[string]string `json:"repeaters"`
}

// Notification is an outbound email request.
type Notification struct {
	TemplateID   string          `json:"templateId"`
	EmailAddress string          `json:"emailAddress"`
	Personalisation Personalisation `json:"personalisation"`
}

// Personalisation fills the notify template.
type Personalisation struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SubmissionService delivers completed forms and notifications. Failures
// propagate to the caller: a submission must never silently vanish.
type SubmissionService interface {
	Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error)
	SendNotification(ctx context.Context, notification Notification) error
}

// Renderer renders a named view with a data object. The engine assumes
// nothing about the template language.
type Renderer interface {
	Render(ctx context.Context, view string, data map[string]any) ([]byte, error)
}
