package component

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/form"
)

// guidanceBase is the shared shape of non-input components.
type guidanceBase struct {
	base
}

func (g *guidanceBase) IsForm() bool { return false }

// Html renders raw markup.
type Html struct {
	guidanceBase
}

func NewHtml(def form.ComponentDef, _ Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	return &Html{guidanceBase{newBase(def, options)}}, nil
}

// Content returns the markup to render.
func (h *Html) Content() string { return h.content }

// InsetText renders highlighted guidance text.
type InsetText struct {
	guidanceBase
}

func NewInsetText(def form.ComponentDef, _ Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	return &InsetText{guidanceBase{newBase(def, options)}}, nil
}

func (i *InsetText) Content() string { return i.content }

// Details renders collapsible guidance under a summary line.
type Details struct {
	guidanceBase
}

func NewDetails(def form.ComponentDef, _ Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	return &Details{guidanceBase{newBase(def, options)}}, nil
}

func (d *Details) Content() string { return d.content }
func (d *Details) Summary() string { return d.title }

// ListGuidance renders a named option list as static content.
type ListGuidance struct {
	guidanceBase
	list *form.ListDef
}

func NewListGuidance(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	list := props.Lists.List(def.List)
	if list == nil {
		return nil, fmt.Errorf("component %q references unknown list %q", def.Name, def.List)
	}
	return &ListGuidance{
		guidanceBase: guidanceBase{newBase(def, options)},
		list:         list,
	}, nil
}

// Items returns the list entries to render.
func (l *ListGuidance) Items() []form.ListItemDef {
	return l.list.Items
}
