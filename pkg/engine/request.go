package engine

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"

	"github.com/aretw0/arbor/pkg/ports"
)

// Actions a POST payload may carry alongside field values.
const (
	ActionValidate   = "validate"
	ActionContinue   = "continue"
	ActionAddAnother = "add-another"
	ActionDelete     = "delete"
	ActionSend       = "send"
)

// metaKeys are payload entries that drive the controller rather than
// answer a field. They are stripped before validation.
var metaKeys = map[string]bool{
	"action":  true,
	"confirm": true,
	"itemId":  true,
	"crumb":   true,
}

// Params are the controller-facing meta values of a POST payload.
type Params struct {
	Action  string
	Confirm bool
	ItemID  string
}

// ParseParams splits a raw payload into controller params and the field
// payload proper.
func ParseParams(payload map[string]any) (Params, map[string]any) {
	var params Params
	fields := make(map[string]any, len(payload))
	for key, value := range payload {
		if !metaKeys[key] {
			fields[key] = value
			continue
		}
		switch key {
		case "action":
			params.Action, _ = value.(string)
		case "confirm":
			switch v := value.(type) {
			case bool:
				params.Confirm = v
			case string:
				params.Confirm = v == "true" || v == "1"
			}
		case "itemId":
			params.ItemID, _ = value.(string)
		}
	}
	return params, fields
}

// Request is one page interaction, already decoupled from the HTTP
// layer: the server adapter decodes the body and session identity
// before calling the engine.
type Request struct {
	Method  string
	Path    string
	ItemID  string
	Query   url.Values
	Payload map[string]any
	Params  Params
	Key     ports.SessionKey
}

// Response tells the caller what to do next: redirect, or render the
// named view with the given model.
type Response struct {
	Status   int
	Redirect string
	View     string
	Model    map[string]any
}

func redirect(path string) *Response {
	return &Response{Status: http.StatusFound, Redirect: path}
}

func render(view string, model map[string]any) *Response {
	return &Response{Status: http.StatusOK, View: view, Model: model}
}

// NotifyConfig selects the email template for submission notifications.
type NotifyConfig struct {
	TemplateID string
}

// Services are the external collaborators a controller may need. The
// store is always required; uploader and submitter only on the pages
// that use them.
type Services struct {
	Store       ports.SessionStore
	Uploader    ports.UploadService
	Submitter   ports.SubmissionService
	Logger      *slog.Logger
	Notify      NotifyConfig
	DownloadURL string
}

func (s Services) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return s.Logger
}
