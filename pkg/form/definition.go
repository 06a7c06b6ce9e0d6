package form

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Engine selects the next-path resolution strategy. V1 forms declare
// explicit next edges per page; V2 forms rely on document order with
// per-page conditions.
type Engine string

const (
	EngineV1 Engine = "V1"
	EngineV2 Engine = "V2"
)

// Definition errors are fatal at load time.
var (
	ErrInvalidDefinition = errors.New("invalid form definition")
)

// Definition is a parsed form-definition document. It is built once per
// form load and never mutated afterwards, so it is safe for concurrent
// reads.
type Definition struct {
	Name        string         `json:"name"`
	Engine      Engine         `json:"engine,omitempty"`
	StartPage   string         `json:"startPage,omitempty"`
	Pages       []PageDef      `json:"pages"`
	Conditions  []ConditionDef `json:"conditions"`
	Lists       []ListDef      `json:"lists"`
	Sections    []SectionDef   `json:"sections"`
	Declaration string         `json:"declaration,omitempty"`
	OutputEmail string         `json:"outputEmail,omitempty"`
}

// PageDef declares a page: its route path, the components it renders and
// the outgoing edges (V1 only).
type PageDef struct {
	Path       string         `json:"path"`
	Title      string         `json:"title"`
	Section    string         `json:"section,omitempty"`
	Controller string         `json:"controller,omitempty"`
	Condition  string         `json:"condition,omitempty"`
	Next       []NextDef      `json:"next,omitempty"`
	Components []ComponentDef `json:"components"`
	Repeat     *RepeatDef     `json:"repeat,omitempty"`
	View       string         `json:"view,omitempty"`
}

// NextDef is one outgoing edge. An empty condition makes the edge
// unconditional.
type NextDef struct {
	Path      string `json:"path"`
	Condition string `json:"condition,omitempty"`
}

// RepeatDef configures a repeating-item page.
type RepeatDef struct {
	Options RepeatOptions `json:"options"`
	Schema  RepeatSchema  `json:"schema"`
}

type RepeatOptions struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type RepeatSchema struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ComponentDef declares one component. Options and Schema stay loosely
// typed here: each component variant decodes the keys it recognises.
type ComponentDef struct {
	Type    string         `json:"type"`
	Name    string         `json:"name,omitempty"`
	Title   string         `json:"title,omitempty"`
	Hint    string         `json:"hint,omitempty"`
	Content string         `json:"content,omitempty"`
	List    string         `json:"list,omitempty"`
	Options map[string]any `json:"options,omitempty"`
	Schema  map[string]any `json:"schema,omitempty"`
}

// ConditionDef carries a named condition. The expression tree in Value is
// compiled by the condition package.
type ConditionDef struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Value       json.RawMessage `json:"value"`
}

// ListDef is a named option list shared by selection components.
type ListDef struct {
	Name  string        `json:"name"`
	Title string        `json:"title,omitempty"`
	Type  string        `json:"type"`
	Items []ListItemDef `json:"items"`
}

type ListItemDef struct {
	Text        string `json:"text"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

type SectionDef struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Hidden bool   `json:"hideTitle,omitempty"`
}

// YesNoListName is the built-in boolean list injected into every
// definition, available to YesNoField components without declaring it.
const YesNoListName = "__yesNo"

var yesNoList = ListDef{
	Name:  YesNoListName,
	Title: "Yes/No",
	Type:  "boolean",
	Items: []ListItemDef{
		{Text: "Yes", Value: true},
		{Text: "No", Value: false},
	},
}

// Parse decodes and structurally validates a form-definition document.
// The built-in __yesNo list is injected before validation.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if def.Engine == "" {
		def.Engine = EngineV1
	}
	def.injectYesNoList()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) injectYesNoList() {
	for _, list := range d.Lists {
		if list.Name == YesNoListName {
			return
		}
	}
	d.Lists = append(d.Lists, yesNoList)
}

// Validate checks the structural invariants that make a definition safe
// to build a model from. Violations are configuration errors, never
// per-request errors.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing form name", ErrInvalidDefinition)
	}
	if len(d.Pages) == 0 {
		return fmt.Errorf("%w: form has no pages", ErrInvalidDefinition)
	}
	if d.Engine != EngineV1 && d.Engine != EngineV2 {
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidDefinition, d.Engine)
	}

	paths := map[string]bool{}
	for _, page := range d.Pages {
		if page.Path == "" {
			return fmt.Errorf("%w: page %q has no path", ErrInvalidDefinition, page.Title)
		}
		if paths[page.Path] {
			return fmt.Errorf("%w: duplicate page path %q", ErrInvalidDefinition, page.Path)
		}
		paths[page.Path] = true
	}

	conditions := map[string]bool{}
	for _, cond := range d.Conditions {
		if cond.Name == "" {
			return fmt.Errorf("%w: condition with no name", ErrInvalidDefinition)
		}
		if conditions[cond.Name] {
			return fmt.Errorf("%w: duplicate condition %q", ErrInvalidDefinition, cond.Name)
		}
		conditions[cond.Name] = true
	}

	lists := map[string]bool{}
	for _, list := range d.Lists {
		if lists[list.Name] {
			return fmt.Errorf("%w: duplicate list %q", ErrInvalidDefinition, list.Name)
		}
		lists[list.Name] = true
	}

	for _, page := range d.Pages {
		if page.Condition != "" && !conditions[page.Condition] {
			return fmt.Errorf("%w: page %q references unknown condition %q",
				ErrInvalidDefinition, page.Path, page.Condition)
		}
		for _, next := range page.Next {
			// Edges to deleted pages are tolerated here; the model drops
			// them when it builds the graph
			if next.Condition != "" && !conditions[next.Condition] {
				return fmt.Errorf("%w: page %q edge references unknown condition %q",
					ErrInvalidDefinition, page.Path, next.Condition)
			}
		}
		names := map[string]bool{}
		for _, comp := range page.Components {
			if comp.Type == "" {
				return fmt.Errorf("%w: component on page %q has no type", ErrInvalidDefinition, page.Path)
			}
			if comp.Name != "" {
				if names[comp.Name] {
					return fmt.Errorf("%w: duplicate component name %q on page %q",
						ErrInvalidDefinition, comp.Name, page.Path)
				}
				names[comp.Name] = true
			}
			if comp.List != "" && !lists[comp.List] {
				return fmt.Errorf("%w: component %q references unknown list %q",
					ErrInvalidDefinition, comp.Name, comp.List)
			}
			if cond, ok := comp.Options["condition"].(string); ok && cond != "" && !conditions[cond] {
				return fmt.Errorf("%w: component %q references unknown condition %q",
					ErrInvalidDefinition, comp.Name, cond)
			}
		}
		if page.Repeat != nil {
			if page.Repeat.Options.Name == "" {
				return fmt.Errorf("%w: repeat page %q has no repeat name", ErrInvalidDefinition, page.Path)
			}
			if page.Repeat.Schema.Min < 1 || page.Repeat.Schema.Max < page.Repeat.Schema.Min {
				return fmt.Errorf("%w: repeat page %q has invalid min/max bounds", ErrInvalidDefinition, page.Path)
			}
		}
	}

	if d.StartPage != "" && !paths[d.StartPage] {
		return fmt.Errorf("%w: start page %q does not exist", ErrInvalidDefinition, d.StartPage)
	}
	return nil
}

// List returns the named list, or nil.
func (d *Definition) List(name string) *ListDef {
	for i := range d.Lists {
		if d.Lists[i].Name == name {
			return &d.Lists[i]
		}
	}
	return nil
}

// Section returns the named section, or nil.
func (d *Definition) Section(name string) *SectionDef {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return &d.Sections[i]
		}
	}
	return nil
}

// Condition returns the named condition, or nil.
func (d *Definition) Condition(name string) *ConditionDef {
	for i := range d.Conditions {
		if d.Conditions[i].Name == name {
			return &d.Conditions[i]
		}
	}
	return nil
}

// Page returns the page at the given path, or nil.
func (d *Definition) Page(path string) *PageDef {
	for i := range d.Pages {
		if d.Pages[i].Path == path {
			return &d.Pages[i]
		}
	}
	return nil
}
