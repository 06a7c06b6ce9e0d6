package engine

import (
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/condition"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// Controller names recognised in page definitions. Pages without an
// explicit controller get one inferred from their shape.
const (
	ControllerStart      = "StartPageController"
	ControllerQuestion   = "QuestionPageController"
	ControllerRepeat     = "RepeatPageController"
	ControllerFileUpload = "FileUploadPageController"
	ControllerSummary    = "SummaryPageController"
	ControllerStatus     = "StatusPageController"
	ControllerTerminal   = "TerminalPageController"
)

const statusPath = "/status"

// Model is the compiled form: page graph, condition table and component
// schemas, built once per form load and immutable afterwards.
type Model struct {
	def        *form.Definition
	conditions *condition.Table
	pages      []Page
	pageByPath map[string]Page
	startPath  string
	clock      func() time.Time
}

type ModelOption func(*Model)

// WithModelClock fixes "now" for relative-date condition evaluation.
// Tests use this; production keeps time.Now.
func WithModelClock(clock func() time.Time) ModelOption {
	return func(m *Model) {
		m.clock = clock
	}
}

// NewModel compiles a validated definition into a page graph. Malformed
// wiring is fatal here, never at request time.
func NewModel(def *form.Definition, opts ...ModelOption) (*Model, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		def:        def,
		pageByPath: make(map[string]Page),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	conditions, err := condition.Compile(def.Conditions, condition.WithClock(m.clock))
	if err != nil {
		return nil, err
	}
	m.conditions = conditions

	pageDefs := append([]form.PageDef(nil), def.Pages...)
	if !hasStatusPage(pageDefs) {
		pageDefs = append(pageDefs, form.PageDef{
			Path:       statusPath,
			Title:      "Form submitted",
			Controller: ControllerStatus,
		})
	}

	known := make(map[string]bool, len(pageDefs))
	for _, pd := range pageDefs {
		known[pd.Path] = true
	}

	for _, pd := range pageDefs {
		pd.Next = pruneStaleNext(pd.Next, known)
		page, err := m.buildPage(pd)
		if err != nil {
			return nil, err
		}
		m.pages = append(m.pages, page)
		m.pageByPath[pd.Path] = page
	}

	m.startPath = def.StartPage
	if m.startPath == "" && len(m.pages) > 0 {
		m.startPath = m.pages[0].Path()
	}
	if _, ok := m.pageByPath[m.startPath]; !ok {
		return nil, fmt.Errorf("%w: start page %q does not exist", form.ErrInvalidDefinition, m.startPath)
	}

	return m, nil
}

func hasStatusPage(pages []form.PageDef) bool {
	for _, pd := range pages {
		if pd.Controller == ControllerStatus {
			return true
		}
	}
	return false
}

// pruneStaleNext drops edges pointing at paths the definition no longer
// declares. Editors leave these behind when pages are deleted.
func pruneStaleNext(next []form.NextDef, known map[string]bool) []form.NextDef {
	kept := make([]form.NextDef, 0, len(next))
	for _, edge := range next {
		if known[edge.Path] {
			kept = append(kept, edge)
		}
	}
	return kept
}

func (m *Model) buildPage(pd form.PageDef) (Page, error) {
	collection, err := component.NewCollection(pd.Components, component.Props{
		Lists:    m.def,
		PagePath: pd.Path,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("page %q: %w", pd.Path, err)
	}

	controller := pd.Controller
	if controller == "" {
		switch {
		case pd.Repeat != nil:
			controller = ControllerRepeat
		case hasFileUploadField(pd.Components):
			controller = ControllerFileUpload
		default:
			controller = ControllerQuestion
		}
	}

	switch controller {
	case ControllerStart:
		return newStartPage(pd, collection), nil
	case ControllerQuestion:
		return newQuestionPage(pd, collection), nil
	case ControllerRepeat:
		return newRepeatPage(pd, collection)
	case ControllerFileUpload:
		return newFileUploadPage(pd, collection)
	case ControllerSummary:
		return newSummaryPage(pd, collection), nil
	case ControllerStatus:
		return newStatusPage(pd, collection), nil
	case ControllerTerminal:
		return newTerminalPage(pd, collection), nil
	default:
		return nil, fmt.Errorf("%w: page %q has unknown controller %q", form.ErrInvalidDefinition, pd.Path, controller)
	}
}

func hasFileUploadField(components []form.ComponentDef) bool {
	for _, cd := range components {
		if cd.Type == "FileUploadField" {
			return true
		}
	}
	return false
}

func (m *Model) Name() string               { return m.def.Name }
func (m *Model) Definition() *form.Definition { return m.def }
func (m *Model) Conditions() *condition.Table { return m.conditions }
func (m *Model) Pages() []Page              { return m.pages }
func (m *Model) StartPath() string          { return m.startPath }
func (m *Model) StatusPath() string         { return statusPath }

// Page resolves a page by path, or nil.
func (m *Model) Page(path string) Page {
	return m.pageByPath[path]
}

// SummaryPage returns the check-answers page, or nil when the form has
// none.
func (m *Model) SummaryPage() Page {
	for _, p := range m.pages {
		if _, ok := p.(*summaryPage); ok {
			return p
		}
	}
	return nil
}

// evaluate runs a named condition against an evaluation state. An empty
// name means unconditional.
func (m *Model) evaluate(name string, evalState map[string]any) bool {
	if name == "" {
		return true
	}
	return m.conditions.Evaluate(name, evalState)
}

// NextPath resolves the page following p under the given evaluation
// state. The strategy depends on the definition's engine version.
func (m *Model) NextPath(p Page, evalState map[string]any) (string, bool) {
	if m.def.Engine == form.EngineV2 {
		return m.nextPathV2(p, evalState)
	}
	return m.nextPathV1(p, evalState)
}

// nextPathV1 walks the page's declared edges: conditional edges are
// tried in document order and the first whose condition holds wins,
// otherwise the last unconditional edge is the default. A summary page
// with no edges falls through to the status page.
func (m *Model) nextPathV1(p Page, evalState map[string]any) (string, bool) {
	var fallback string
	for _, edge := range p.Def().Next {
		if edge.Condition == "" {
			fallback = edge.Path
			continue
		}
		if m.evaluate(edge.Condition, evalState) {
			return edge.Path, true
		}
	}
	if fallback != "" {
		return fallback, true
	}
	if _, ok := p.(*summaryPage); ok {
		return statusPath, true
	}
	return "", false
}

// nextPathV2 ignores edges: the next page is the first page after p in
// document order whose condition (if any) holds. Terminal pages end the
// journey; they never resolve a next page.
func (m *Model) nextPathV2(p Page, evalState map[string]any) (string, bool) {
	if _, ok := p.(*terminalPage); ok {
		return "", false
	}
	seen := false
	for _, candidate := range m.pages {
		if candidate.Path() == p.Path() {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if m.evaluate(candidate.Def().Condition, evalState) {
			return candidate.Path(), true
		}
	}
	return "", false
}

// RelevantStateObject concatenates the state schemas of the given pages,
// excluding one path (usually the page being validated separately).
func (m *Model) RelevantStateObject(pages []Page, excludePath string) *schema.Object {
	combined := schema.NewObject()
	for _, p := range pages {
		if p.Path() == excludePath {
			continue
		}
		combined = combined.Concat(p.StateObject())
	}
	return combined
}
