package engine

import (
	"strings"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// ContextInput feeds a page-graph walk. Validate is set on a POST whose
// payload should be checked against the current page before walking.
type ContextInput struct {
	CurrentPath string
	State       form.State
	Payload     map[string]any
	Validate    bool
}

// FormContext is the result of one walk: the pages reachable from the
// start page to the current page under the given answers, the flattened
// evaluation state conditions ran against, the state restricted to those
// pages, and every validation error found along the way.
//
// A context is recomputed fresh per request and is never cached; the
// walk is pure, so repeated calls over the same input agree.
type FormContext struct {
	CurrentPath     string
	EvaluationState map[string]any
	RelevantPages   []Page
	RelevantState   form.State
	Payload         map[string]any
	Errors          []schema.Error
	Paths           []string
}

// NewContext performs the page-graph walk for the given session state.
func (m *Model) NewContext(in ContextInput) *FormContext {
	fc := &FormContext{
		CurrentPath:     in.CurrentPath,
		EvaluationState: make(map[string]any),
		RelevantState:   form.State{},
	}

	state := in.State
	if state == nil {
		state = form.State{}
	}

	current := m.Page(in.CurrentPath)

	if in.Validate && current != nil {
		payload := current.Collection().FormDataFromState(state)
		for k, v := range in.Payload {
			payload[k] = v
		}
		value, errs := current.Collection().Validate(payload)
		fc.Payload = payload
		fc.Errors = append(fc.Errors, errs...)
		state = state.Copy().Merge(current.Collection().StateFromValidForm(value))
	}

	m.walk(fc, current, state)

	// Re-validate everything upstream of the current page: a branch
	// change can pull a field into scope whose stored answer no longer
	// satisfies its schema.
	relevantObject := m.RelevantStateObject(fc.RelevantPages, in.CurrentPath)
	filtered, errs := relevantObject.Validate(fc.RelevantState, schema.Options{StripUnknown: true})
	fc.Errors = append(fc.Errors, errs...)
	if current != nil {
		for _, key := range current.Keys() {
			if v, ok := fc.RelevantState[key]; ok {
				filtered[key] = v
			}
		}
	}
	fc.RelevantState = filtered

	fc.Paths = m.errorPaths(fc)
	return fc
}

// walk visits pages from the start path, following conditional edges,
// until the current page (inclusive) or a dead end.
func (m *Model) walk(fc *FormContext, current Page, state form.State) {
	visited := make(map[string]bool)
	page := m.Page(m.startPath)

	for page != nil && !visited[page.Path()] {
		visited[page.Path()] = true
		fc.RelevantPages = append(fc.RelevantPages, page)

		// Repeater answers are arrays of item maps; they never feed the
		// flattened evaluation state.
		if _, isRepeat := page.(*repeatPage); !isRepeat {
			for k, v := range page.ContextValues(state) {
				fc.EvaluationState[k] = v
			}
		}
		for _, key := range page.Keys() {
			if v, ok := state[key]; ok {
				fc.RelevantState[key] = v
			}
		}

		if current != nil && page.Path() == current.Path() {
			return
		}

		next, ok := m.NextPath(page, fc.EvaluationState)
		if !ok {
			return
		}
		page = m.Page(next)
	}
}

// errorPaths truncates the walked paths at the first page owning an
// errored field. The last entry is the deepest page the user may visit.
func (m *Model) errorPaths(fc *FormContext) []string {
	paths := make([]string, 0, len(fc.RelevantPages))
	for _, page := range fc.RelevantPages {
		paths = append(paths, page.Path())
		if pageHasError(page, fc.Errors) {
			break
		}
	}
	return paths
}

func pageHasError(page Page, errs []schema.Error) bool {
	for _, key := range page.Keys() {
		for _, err := range errs {
			if errOwnedBy(err, key) {
				return true
			}
		}
	}
	return false
}

func errOwnedBy(err schema.Error, key string) bool {
	if err.Name == key || strings.HasPrefix(err.Name, key+"__") {
		return true
	}
	return len(err.Path) > 0 && err.Path[0] == key
}

// Reachable reports whether the given path survived error truncation.
func (fc *FormContext) Reachable(path string) bool {
	for _, p := range fc.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// LastPath is the deepest reachable page, or the empty string for an
// empty walk.
func (fc *FormContext) LastPath() string {
	if len(fc.Paths) == 0 {
		return ""
	}
	return fc.Paths[len(fc.Paths)-1]
}
