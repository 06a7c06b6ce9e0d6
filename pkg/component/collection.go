package component

import (
	"strings"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// CollectionSchema adds cross-field rules to a page's combined schema:
// peer groups requiring all-or-nothing presence, and custom object
// validators (e.g. real-date checks across date parts).
type CollectionSchema struct {
	Peers  []string
	Custom schema.ObjectCustom
}

// Collection aggregates the components of one page (or of one composite
// field) and exposes the combined form and state schemas.
type Collection struct {
	components []Component
	fields     []Field
	guidance   []Component

	formObject  *schema.Object
	stateObject *schema.Object
}

// NewCollection builds components from their definitions and concatenates
// their schemas in declaration order. A definition that fails to build is
// a configuration error.
func NewCollection(defs []form.ComponentDef, props Props, extra *CollectionSchema) (*Collection, error) {
	components := make([]Component, 0, len(defs))
	for _, def := range defs {
		comp, err := New(def, props)
		if err != nil {
			return nil, err
		}
		components = append(components, comp)
	}
	return buildCollection(components, extra), nil
}

// Validate runs the combined form schema over a payload with collect-all
// -errors semantics. The returned value holds every key that passed.
func (c *Collection) Validate(payload map[string]any) (map[string]any, []schema.Error) {
	return c.formObject.Validate(payload, schema.Options{})
}

// Fields returns the input fields, in declaration order.
func (c *Collection) Fields() []Field {
	return c.fields
}

// Guidance returns the non-input components, in declaration order.
func (c *Collection) Guidance() []Component {
	return c.guidance
}

// Components returns every component, in declaration order.
func (c *Collection) Components() []Component {
	return c.components
}

// FormObject is the combined submitted-payload schema.
func (c *Collection) FormObject() *schema.Object {
	return c.formObject
}

// StateObject is the combined persisted-state schema.
func (c *Collection) StateObject() *schema.Object {
	return c.stateObject
}

// Keys lists every flattened state key owned by the collection's fields.
func (c *Collection) Keys() []string {
	var keys []string
	for _, field := range c.fields {
		keys = append(keys, field.Keys()...)
	}
	return keys
}

// FormDataFromState maps persisted state to payload shape across all
// fields.
func (c *Collection) FormDataFromState(state map[string]any) map[string]any {
	payload := map[string]any{}
	for _, field := range c.fields {
		for k, v := range field.FormDataFromState(state) {
			payload[k] = v
		}
	}
	return payload
}

// FormValueFromState maps state to payload shape with composite child
// prefixes stripped, so a date collection yields {day, month, year}.
func (c *Collection) FormValueFromState(state map[string]any) map[string]any {
	payload := map[string]any{}
	for name, value := range c.FormDataFromState(state) {
		parts := strings.Split(name, "__")
		key := parts[len(parts)-1]
		if key == "" {
			continue
		}
		payload[key] = value
	}
	return payload
}

// StateFromValidForm converts a validated payload into the state delta
// for every field.
func (c *Collection) StateFromValidForm(payload map[string]any) map[string]any {
	state := map[string]any{}
	for _, field := range c.fields {
		for k, v := range field.StateFromValidForm(payload) {
			state[k] = v
		}
	}
	return state
}

// ContextValues builds the evaluation-context entries for the
// collection's fields, keyed by field name.
func (c *Collection) ContextValues(state map[string]any) map[string]any {
	context := map[string]any{}
	for _, field := range c.fields {
		context[field.Name()] = field.ContextValue(state)
	}
	return context
}

// CollectionErrors returns at most one error per field, in field order.
func (c *Collection) CollectionErrors(errs []schema.Error) []schema.Error {
	var list []schema.Error
	for _, field := range c.fields {
		if err := firstError(field, errs); err != nil {
			list = append(list, *err)
		}
	}
	return list
}

// buildCollection wires fields into the combined schemas and attaches the
// error post-processing that re-titles and re-anchors composite errors.
func buildCollection(components []Component, extra *CollectionSchema) *Collection {
	c := &Collection{components: components}
	for _, comp := range components {
		if field, ok := comp.(Field); ok && comp.IsForm() {
			c.fields = append(c.fields, field)
		} else {
			c.guidance = append(c.guidance, comp)
		}
	}

	formObject := schema.NewObject()
	stateObject := schema.NewObject()
	for _, field := range c.fields {
		formObject = formObject.Concat(field.FormObject())
		stateObject = stateObject.Concat(field.StateObject())
	}
	formObject.MapErrors(c.mapErrors)

	if extra != nil {
		if len(extra.Peers) > 0 {
			formObject.And(extra.Peers, isFormValue)
		}
		if extra.Custom != nil {
			formObject.Custom(extra.Custom)
		}
	}

	c.formObject = formObject
	c.stateObject = stateObject
	return c
}

// mapErrors attaches the owning field's title to each error and fixes
// the anchor for composite-field failures that report missing children.
func (c *Collection) mapErrors(errs []schema.Error) []schema.Error {
	for i := range errs {
		e := &errs[i]
		if e.Title != "" {
			continue
		}

		key := e.Name
		if key == "" && len(e.Missing) > 0 {
			key = e.Missing[0]
		}
		parentName, _, _ := strings.Cut(key, "__")
		parent := c.fieldByName(parentName)

		// Prefer the child field's title for the message label
		child := c.childByName(parent, key)
		if child != nil && (e.Label == "" || e.Label == "value") {
			e.Label = strings.ToLower(child.Title())
		}

		// Re-anchor errors that name their missing children
		if len(e.Missing) > 0 {
			e.Path = append([]string(nil), e.Missing...)
			e.Name = e.Missing[0]
			e.Href = "#" + e.Missing[0]
		}

		if parent != nil {
			e.Title = parent.Title()
		}
	}
	return errs
}

func (c *Collection) fieldByName(name string) Field {
	for _, field := range c.fields {
		if field.Name() == name {
			return field
		}
	}
	return nil
}

// childByName resolves a flattened key to the composite child that owns
// it, falling back to top-level fields.
func (c *Collection) childByName(parent Field, key string) Field {
	if parent != nil && parent.Collection() != nil {
		for _, child := range parent.Collection().Fields() {
			if child.Name() == key {
				return child
			}
		}
		return nil
	}
	return c.fieldByName(key)
}
