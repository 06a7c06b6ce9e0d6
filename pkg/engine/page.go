package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// Page is one node of the compiled page graph. Implementations are
// stateless after construction: per-request data lives in the Request
// and FormContext, never on the page.
type Page interface {
	Path() string
	Title() string
	Def() form.PageDef
	Collection() *component.Collection

	// Keys are the session-state keys this page owns.
	Keys() []string

	// ContextValues returns the page's contribution to the evaluation
	// state used by conditions.
	ContextValues(state map[string]any) map[string]any

	// StateObject is the persisted-state schema for this page's keys.
	StateObject() *schema.Object

	HandleGet(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error)
	HandlePost(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error)
}

type basePage struct {
	def        form.PageDef
	collection *component.Collection
	view       string
}

func newBasePage(def form.PageDef, collection *component.Collection, defaultView string) basePage {
	view := def.View
	if view == "" {
		view = defaultView
	}
	return basePage{def: def, collection: collection, view: view}
}

func (p *basePage) Path() string                      { return p.def.Path }
func (p *basePage) Title() string                     { return p.def.Title }
func (p *basePage) Def() form.PageDef                 { return p.def }
func (p *basePage) Collection() *component.Collection { return p.collection }
func (p *basePage) Keys() []string                    { return p.collection.Keys() }
func (p *basePage) StateObject() *schema.Object       { return p.collection.StateObject() }

func (p *basePage) ContextValues(state map[string]any) map[string]any {
	return p.collection.ContextValues(state)
}

// viewModel assembles the render model shared by every page type. The
// renderer is free to ignore keys it has no use for.
func (p *basePage) viewModel(m *Model, payload map[string]any, errs []schema.Error) map[string]any {
	fields := make([]map[string]any, 0, len(p.collection.Fields()))
	for _, f := range p.collection.Fields() {
		fm := map[string]any{
			"type":  f.Type(),
			"name":  f.Name(),
			"title": f.Title(),
			"value": payload[f.Name()],
		}
		if err := firstFieldError(f, errs); err != nil {
			fm["error"] = err.Text
		}
		fields = append(fields, fm)
	}

	model := map[string]any{
		"formName":  m.Name(),
		"path":      p.def.Path,
		"pageTitle": p.def.Title,
		"fields":    fields,
	}
	if section := m.def.Section(p.def.Section); section != nil && !section.Hidden {
		model["sectionTitle"] = section.Title
	}
	if len(errs) > 0 {
		summary := make([]map[string]any, 0, len(errs))
		for _, e := range errs {
			summary = append(summary, map[string]any{"text": e.Text, "href": e.Href})
		}
		model["errors"] = summary
	}
	return model
}

func firstFieldError(f component.Field, errs []schema.Error) *schema.Error {
	filtered := f.ComponentErrors(errs)
	if len(filtered) == 0 {
		return nil
	}
	return &filtered[0]
}

// questionPage is the default controller: GET renders current answers,
// POST validates and advances.
type questionPage struct {
	basePage
}

func newQuestionPage(def form.PageDef, collection *component.Collection) Page {
	return &questionPage{newBasePage(def, collection, "question")}
}

func (p *questionPage) HandleGet(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	fc := m.NewContext(ContextInput{CurrentPath: p.def.Path, State: state})
	if !fc.Reachable(p.def.Path) {
		// Answers upstream are missing or invalid; send the user there
		// instead of letting them answer out of order.
		if back := fc.LastPath(); back != "" {
			return redirect(back), nil
		}
	}

	payload := p.collection.FormDataFromState(state)
	return render(p.view, p.viewModel(m, payload, nil)), nil
}

func (p *questionPage) HandlePost(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	value, errs := p.collection.Validate(req.Payload)
	if len(errs) > 0 {
		return render(p.view, p.viewModel(m, req.Payload, errs)), nil
	}

	update := p.collection.StateFromValidForm(value)
	next, err := saveAndRedirect(ctx, m, p, req, svc, state, update)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// saveAndRedirect merges a page's validated state, persists it and
// resolves the next path against the fresh state.
func saveAndRedirect(ctx context.Context, m *Model, p Page, req *Request, svc Services, state form.State, update map[string]any) (*Response, error) {
	merged := state.Merge(update)
	if _, err := svc.Store.SetState(ctx, req.Key, merged); err != nil {
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}

	fc := m.NewContext(ContextInput{CurrentPath: p.Path(), State: merged})
	next, ok := m.NextPath(p, fc.EvaluationState)
	if !ok {
		next = m.StatusPath()
	}
	return redirect(next), nil
}

// startPage renders static content and never accepts answers.
type startPage struct {
	basePage
}

func newStartPage(def form.PageDef, collection *component.Collection) Page {
	return &startPage{newBasePage(def, collection, "start")}
}

func (p *startPage) HandleGet(_ context.Context, m *Model, _ *Request, _ Services) (*Response, error) {
	model := p.viewModel(m, nil, nil)
	if next, ok := m.NextPath(p, map[string]any{}); ok {
		model["startLink"] = next
	}
	return render(p.view, model), nil
}

func (p *startPage) HandlePost(_ context.Context, m *Model, _ *Request, _ Services) (*Response, error) {
	if next, ok := m.NextPath(p, map[string]any{}); ok {
		return redirect(next), nil
	}
	return redirect(m.StatusPath()), nil
}

// terminalPage ends a journey early. It has no outgoing edges and
// refuses POST outright.
type terminalPage struct {
	basePage
}

func newTerminalPage(def form.PageDef, collection *component.Collection) Page {
	return &terminalPage{newBasePage(def, collection, "terminal")}
}

func (p *terminalPage) HandleGet(_ context.Context, m *Model, _ *Request, _ Services) (*Response, error) {
	return render(p.view, p.viewModel(m, nil, nil)), nil
}

func (p *terminalPage) HandlePost(context.Context, *Model, *Request, Services) (*Response, error) {
	return &Response{Status: http.StatusMethodNotAllowed}, nil
}
