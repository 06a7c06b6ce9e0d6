package component

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// listField is the shared behaviour of selection components: the answer
// must be one of the named list's item values, and display strings come
// from item text rather than raw values.
type listField struct {
	fieldBase
	list     *form.ListDef
	listType string
}

func newListField(def form.ComponentDef, props Props, options Options) (listField, error) {
	listName := def.List
	if listName == "" {
		return listField{}, fmt.Errorf("component %q has no list", def.Name)
	}
	list := props.Lists.List(listName)
	if list == nil {
		return listField{}, fmt.Errorf("component %q references unknown list %q", def.Name, listName)
	}
	listType := list.Type
	if listType == "" {
		listType = "string"
	}

	values := make([]any, len(list.Items))
	for i, item := range list.Items {
		values[i] = item.Value
	}
	field := schema.ForList(listType).Label(strings.ToLower(def.Title)).Valid(values...).Required().
		Messages(map[schema.Kind]string{
			schema.KindRequired:    "Select {{#label}}",
			schema.KindStringEmpty: "Select {{#label}}",
		})
	applyMessages(field, options)

	lf := listField{
		list:     list,
		listType: listType,
	}
	lf.fieldBase = newFieldBase(def, options, field, lf.isListValue)
	return lf, nil
}

func (l *listField) Items() []form.ListItemDef {
	return l.list.Items
}

func (l *listField) isListValue(value any) bool {
	return isFormValue(value)
}

// selectedItems maps stored values (scalar or array) back onto list
// items, preserving list order and discarding values no longer on the
// list.
func (l *listField) selectedItems(value any) []form.ListItemDef {
	values, ok := value.([]any)
	if !ok {
		if value == nil {
			return nil
		}
		values = []any{value}
	}
	var selected []form.ListItemDef
	for _, item := range l.list.Items {
		for _, v := range values {
			if valueEqual(item.Value, v) {
				selected = append(selected, item)
				break
			}
		}
	}
	return selected
}

// FormValueFromState returns the first stored value still present on the
// list.
func (l *listField) FormValueFromState(state map[string]any) any {
	value := state[l.name]
	if !l.isValue(value) {
		return nil
	}
	selected := l.selectedItems(value)
	if len(selected) == 0 {
		return nil
	}
	return selected[0].Value
}

func (l *listField) FormDataFromState(state map[string]any) map[string]any {
	return map[string]any{l.name: l.FormValueFromState(state)}
}

func (l *listField) DisplayString(state map[string]any) string {
	selected := l.selectedItems(l.FormValueFromState(state))
	texts := make([]string, len(selected))
	for i, item := range selected {
		texts[i] = item.Text
	}
	return strings.Join(texts, ", ")
}

func valueEqual(a, b any) bool {
	if a == b {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// SelectField is a dropdown over a list.
type SelectField struct {
	listField
}

func NewSelectField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	lf, err := newListField(def, props, options)
	if err != nil {
		return nil, err
	}
	if !options.IsRequired() {
		lf.formField.Optional().AllowEmpty()
		lf.stateField.Optional()
	}
	return &SelectField{lf}, nil
}

// AutocompleteField is a select rendered with an accessible autocomplete.
// Unrecognised typed values read as "Enter ..." rather than "Select ...".
type AutocompleteField struct {
	listField
}

func NewAutocompleteField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	lf, err := newListField(def, props, options)
	if err != nil {
		return nil, err
	}
	if options.IsRequired() {
		overrides := options.MessageOverrides()
		enter := "Enter {{#label}}"
		if custom, ok := overrides[schema.KindOnly]; ok {
			enter = custom
		}
		lf.formField.Messages(map[schema.Kind]string{
			schema.KindOnly:        enter,
			schema.KindRequired:    enter,
			schema.KindStringEmpty: enter,
		})
	} else {
		lf.formField.Optional().AllowEmpty()
		lf.stateField.Optional()
	}
	return &AutocompleteField{lf}, nil
}

// RadiosField is a single-choice selection control.
type RadiosField struct {
	listField
}

func NewRadiosField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	lf, err := newListField(def, props, options)
	if err != nil {
		return nil, err
	}
	if !options.IsRequired() {
		lf.formField.Optional()
		lf.stateField.Optional()
	}
	return &RadiosField{lf}, nil
}

// YesNoField is a radios field bound to the built-in boolean list.
type YesNoField struct {
	listField
}

func NewYesNoField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	def.List = form.YesNoListName
	lf, err := newListField(def, props, options)
	if err != nil {
		return nil, err
	}
	if !options.IsRequired() {
		lf.formField.Optional()
		lf.stateField.Optional()
	}
	return &YesNoField{lf}, nil
}

// CheckboxesField is a multi-choice selection control. Submitted single
// values coerce to one-element arrays, and the evaluation-context value
// is always an array so "does not contain" conditions stay definite when
// nothing is selected.
type CheckboxesField struct {
	listField
}

func NewCheckboxesField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	lf, err := newListField(def, props, options)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(lf.list.Items))
	for i, item := range lf.list.Items {
		values[i] = item.Value
	}
	item := schema.ForList(lf.listType).Label(strings.ToLower(def.Title)).Valid(values...)
	field := schema.Array().Label(strings.ToLower(def.Title)).Single().Items(item).Required().Default([]any{})
	if !options.IsRequired() {
		field.Optional()
	}
	applyMessages(field, options)

	cb := &CheckboxesField{lf}
	cb.fieldBase = newFieldBase(def, options, field, cb.isCheckboxValue)
	cb.stateField.Default(nil)
	return cb, nil
}

func (c *CheckboxesField) isCheckboxValue(value any) bool {
	values, ok := value.([]any)
	if !ok {
		return false
	}
	for _, v := range values {
		if !isFormValue(v) {
			return false
		}
	}
	return true
}

// FormValueFromState returns the selected values still on the list, or
// nil when none remain.
func (c *CheckboxesField) FormValueFromState(state map[string]any) any {
	value := state[c.name]
	if !c.isValue(value) {
		return nil
	}
	selected := c.selectedItems(value)
	if len(selected) == 0 {
		return nil
	}
	out := make([]any, len(selected))
	for i, item := range selected {
		out[i] = item.Value
	}
	return out
}

func (c *CheckboxesField) FormDataFromState(state map[string]any) map[string]any {
	return map[string]any{c.name: c.FormValueFromState(state)}
}

func (c *CheckboxesField) DisplayString(state map[string]any) string {
	value := c.FormValueFromState(state)
	selected := c.selectedItems(value)
	texts := make([]string, len(selected))
	for i, item := range selected {
		texts[i] = item.Text
	}
	return strings.Join(texts, ", ")
}

// ContextValue defaults to an empty array when nothing is selected.
func (c *CheckboxesField) ContextValue(state map[string]any) any {
	value := c.FormValueFromState(state)
	if value == nil {
		return []any{}
	}
	return value
}
