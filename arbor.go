package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/engine"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

// Runner is the high-level entry point for the Arbor library. It wraps
// the compiled page model and its collaborator services behind a small
// request API, so hosts can drive a form from any transport: the bundled
// HTTP server, a CLI, or tests.
type Runner struct {
	model    *engine.Model
	services engine.Services
	status   string
	slug     string
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore injects a session store, bypassing the default in-memory one.
func WithStore(store ports.SessionStore) Option {
	return func(r *Runner) {
		r.services.Store = store
	}
}

// WithUploader wires the file upload collaborator service.
func WithUploader(uploader ports.UploadService) Option {
	return func(r *Runner) {
		r.services.Uploader = uploader
	}
}

// WithSubmitter wires the submission collaborator service.
func WithSubmitter(submitter ports.SubmissionService) Option {
	return func(r *Runner) {
		r.services.Submitter = submitter
	}
}

// WithLogger sets the logger used by page handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.services.Logger = logger
	}
}

// WithDownloadURL sets the base URL used for file links in submission
// emails.
func WithDownloadURL(base string) Option {
	return func(r *Runner) {
		r.services.DownloadURL = base
	}
}

// WithNotifyTemplate sets the notification template sent on submission.
func WithNotifyTemplate(templateID string) Option {
	return func(r *Runner) {
		r.services.Notify = engine.NotifyConfig{TemplateID: templateID}
	}
}

// WithFormStatus separates draft previews from live forms. Sessions
// under different statuses never share answers.
func WithFormStatus(status string) Option {
	return func(r *Runner) {
		r.status = status
	}
}

// New parses a JSON form definition and compiles it into a Runner.
// Without options the Runner keeps sessions in memory and has no
// upload or submission collaborators.
func New(definition []byte, opts ...Option) (*Runner, error) {
	def, err := form.Parse(definition)
	if err != nil {
		return nil, err
	}
	model, err := engine.NewModel(def)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		model:  model,
		status: "live",
		slug:   slugify(def.Name),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.services.Store == nil {
		r.services.Store = memory.New()
	}
	return r, nil
}

// Model exposes the compiled page graph.
func (r *Runner) Model() *engine.Model {
	return r.model
}

// StartPath returns the path of the form's first page.
func (r *Runner) StartPath() string {
	return r.model.StartPath()
}

// Get renders the page at target for the given session. The target is a
// page path, optionally with a trailing repeat item segment and a query
// string.
func (r *Runner) Get(ctx context.Context, sessionID, target string) (*engine.Response, error) {
	req, page, err := r.request(http.MethodGet, sessionID, target)
	if err != nil {
		return nil, err
	}
	return page.HandleGet(ctx, r.model, req, r.services)
}

// Post submits a payload to the page at target for the given session.
func (r *Runner) Post(ctx context.Context, sessionID, target string, payload map[string]any) (*engine.Response, error) {
	req, page, err := r.request(http.MethodPost, sessionID, target)
	if err != nil {
		return nil, err
	}
	req.Params, req.Payload = engine.ParseParams(payload)
	return page.HandlePost(ctx, r.model, req, r.services)
}

func (r *Runner) request(method, sessionID, target string) (*engine.Request, engine.Page, error) {
	if sessionID == "" {
		return nil, nil, ports.ErrNoSession
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid page target %q: %w", target, err)
	}

	page, itemID := r.resolvePage(parsed.Path)
	if page == nil {
		return nil, nil, fmt.Errorf("no page at %q", parsed.Path)
	}

	req := &engine.Request{
		Method: method,
		Path:   parsed.Path,
		ItemID: itemID,
		Query:  parsed.Query(),
		Key: ports.SessionKey{
			SessionID:  sessionID,
			FormStatus: r.status,
			FormSlug:   r.slug,
		},
	}
	return req, page, nil
}

// resolvePage maps a target path onto a page and an optional trailing
// item segment (repeat item ids and the repeat list summary).
func (r *Runner) resolvePage(target string) (engine.Page, string) {
	path := "/" + strings.Trim(target, "/")
	if page := r.model.Page(path); page != nil {
		return page, ""
	}
	if i := strings.LastIndex(path, "/"); i > 0 {
		if page := r.model.Page(path[:i]); page != nil {
			return page, path[i+1:]
		}
	}
	return nil, ""
}

// slugify derives a route slug from the form name.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(slug, " ", "-")
}
