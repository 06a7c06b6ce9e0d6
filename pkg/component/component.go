// Package component implements the form component model: one concrete
// type per component variant, the page-level Collection that aggregates
// them into combined validation schemas, and the answer formatting used
// by check-answers pages and submission emails.
//
// Each input field derives two schemas from its definition: a form schema
// validating the submitted payload (strings and string arrays) and a
// state schema validating persisted, already-coerced state, where null
// marks an optional answer left empty.
package component

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// ListProvider resolves named option lists. *form.Definition satisfies it.
type ListProvider interface {
	List(name string) *form.ListDef
}

// Props carries the construction context shared by every component on a
// page.
type Props struct {
	Lists    ListProvider
	PagePath string
	Parent   Field
}

// Component is anything that renders on a page, input field or guidance.
type Component interface {
	Type() string
	Name() string
	Title() string
	IsForm() bool
}

// Field is an input component. Composite fields (date parts, month/year,
// UK address) expose their children through Collection; simple fields
// return a nil Collection.
type Field interface {
	Component

	// Keys lists the flattened state keys the field owns, the field name
	// first, then any composite child names.
	Keys() []string

	FormObject() *schema.Object
	StateObject() *schema.Object

	// FormDataFromState maps persisted state back to payload shape, one
	// entry per key. Absent values map to nil entries.
	FormDataFromState(state map[string]any) map[string]any

	// FormValueFromState returns the field's own value from state, or nil
	// when unanswered.
	FormValueFromState(state map[string]any) any

	// StateFromValidForm converts an already-validated payload into the
	// state delta for this field. Unanswered optional fields map to an
	// explicit null.
	StateFromValidForm(payload map[string]any) map[string]any

	// DisplayString renders the persisted answer as a single line.
	DisplayString(state map[string]any) string

	// ContextValue is the normalised value used by condition evaluation
	// and submission data. Unanswered fields yield nil, except types with
	// a natural empty value (checkboxes yield an empty slice).
	ContextValue(state map[string]any) any

	// ComponentErrors filters a page-wide error list down to the errors
	// owned by this field.
	ComponentErrors(errs []schema.Error) []schema.Error

	Options() Options
	Collection() *Collection
}

// Options are the recognised option keys of a component definition.
// Unknown keys are ignored.
type Options struct {
	Required                 *bool             `mapstructure:"required"`
	OptionalText             bool              `mapstructure:"optionalText"`
	HideTitle                bool              `mapstructure:"hideTitle"`
	Classes                  string            `mapstructure:"classes"`
	Condition                string            `mapstructure:"condition"`
	CustomValidationMessage  string            `mapstructure:"customValidationMessage"`
	CustomValidationMessages map[string]string `mapstructure:"customValidationMessages"`
	Prefix                   string            `mapstructure:"prefix"`
	Suffix                   string            `mapstructure:"suffix"`
	MaxWords                 int               `mapstructure:"maxWords"`
	Rows                     int               `mapstructure:"rows"`
	Accept                   string            `mapstructure:"accept"`
	MaxDaysInPast            int               `mapstructure:"maxDaysInPast"`
	MaxDaysInFuture          int               `mapstructure:"maxDaysInFuture"`
	Bold                     bool              `mapstructure:"bold"`
	Autocomplete             string            `mapstructure:"autocomplete"`
}

// IsRequired reports whether answers are mandatory. Fields are required
// unless the definition says required: false.
func (o Options) IsRequired() bool {
	return o.Required == nil || *o.Required
}

// MessageOverrides converts the per-kind custom messages into schema
// kinds.
func (o Options) MessageOverrides() map[schema.Kind]string {
	if len(o.CustomValidationMessages) == 0 {
		return nil
	}
	out := make(map[schema.Kind]string, len(o.CustomValidationMessages))
	for kind, message := range o.CustomValidationMessages {
		out[schema.Kind(kind)] = message
	}
	return out
}

// Spec is the recognised schema block of a component definition.
type Spec struct {
	Min       *float64 `mapstructure:"min"`
	Max       *float64 `mapstructure:"max"`
	Length    *int     `mapstructure:"length"`
	Precision *int     `mapstructure:"precision"`
	Regex     string   `mapstructure:"regex"`
}

func decodeOptions(def form.ComponentDef) (Options, Spec, error) {
	var opts Options
	var spec Spec
	if err := weakDecode(def.Options, &opts); err != nil {
		return opts, spec, fmt.Errorf("component %q options: %w", def.Name, err)
	}
	if err := weakDecode(def.Schema, &spec); err != nil {
		return opts, spec, fmt.Errorf("component %q schema: %w", def.Name, err)
	}
	return opts, spec, nil
}

func weakDecode(input map[string]any, target any) error {
	if input == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// base carries the attributes every component shares.
type base struct {
	typ     string
	name    string
	title   string
	hint    string
	content string
	options Options
}

func newBase(def form.ComponentDef, options Options) base {
	return base{
		typ:     def.Type,
		name:    def.Name,
		title:   def.Title,
		hint:    def.Hint,
		content: def.Content,
		options: options,
	}
}

func (b *base) Type() string     { return b.typ }
func (b *base) Name() string     { return b.name }
func (b *base) Title() string    { return b.title }
func (b *base) Options() Options { return b.options }

// label is the lowercase title used inside validation messages.
func (b *base) label() string {
	return strings.ToLower(b.title)
}

// isFormValue reports whether a value counts as an answered form value: a
// non-empty string, a number or a boolean.
func isFormValue(value any) bool {
	switch v := value.(type) {
	case string:
		return v != ""
	case float64, int, int64, bool:
		return true
	}
	return false
}

// isFormState reports whether a value is a non-empty nested answer map.
func isFormState(value any) bool {
	m, ok := value.(map[string]any)
	return ok && len(m) > 0
}

// IsRepeatState reports whether a value is a well-formed repeat item
// list: every item is a map carrying a string itemId.
func IsRepeatState(value any) bool {
	items, ok := value.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap || len(m) == 0 {
			return false
		}
		if _, isString := m["itemId"].(string); !isString {
			return false
		}
	}
	return true
}

// IsUploadState reports whether a value is a well-formed upload item
// list: every item is a map carrying a string uploadId.
func IsUploadState(value any) bool {
	items, ok := value.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap || len(m) == 0 {
			return false
		}
		if _, isString := m["uploadId"].(string); !isString {
			return false
		}
	}
	return true
}

// fieldBase implements the simple single-key field behaviour. Variants
// override value recognition through isValue and formatting through the
// outer type.
type fieldBase struct {
	base
	formField  *schema.Field
	stateField *schema.Field
	isValue    func(any) bool
}

func newFieldBase(def form.ComponentDef, options Options, formField *schema.Field, isValue func(any) bool) fieldBase {
	stateField := formField.Clone().AllowNull()
	return fieldBase{
		base:       newBase(def, options),
		formField:  formField,
		stateField: stateField,
		isValue:    isValue,
	}
}

func (f *fieldBase) IsForm() bool           { return true }
func (f *fieldBase) Keys() []string         { return []string{f.name} }
func (f *fieldBase) Collection() *Collection { return nil }

func (f *fieldBase) FormObject() *schema.Object {
	return schema.NewObject().Keys(f.name, f.formField)
}

func (f *fieldBase) StateObject() *schema.Object {
	return schema.NewObject().Keys(f.name, f.stateField)
}

func (f *fieldBase) formValue(value any) any {
	if f.isValue(value) {
		return value
	}
	return nil
}

func (f *fieldBase) FormValueFromState(state map[string]any) any {
	return f.formValue(state[f.name])
}

func (f *fieldBase) FormDataFromState(state map[string]any) map[string]any {
	return map[string]any{f.name: f.FormValueFromState(state)}
}

func (f *fieldBase) StateFromValidForm(payload map[string]any) map[string]any {
	return map[string]any{f.name: f.formValue(payload[f.name])}
}

func (f *fieldBase) DisplayString(state map[string]any) string {
	value := f.FormValueFromState(state)
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

func (f *fieldBase) ContextValue(state map[string]any) any {
	value := f.FormValueFromState(state)
	if values, ok := value.([]any); ok {
		out := make([]any, 0, len(values))
		for _, v := range values {
			if isFormValue(v) {
				out = append(out, v)
			}
		}
		return out
	}
	if value == nil {
		return nil
	}
	return value
}

func (f *fieldBase) ComponentErrors(errs []schema.Error) []schema.Error {
	return filterErrors(errs, f.name, f.Keys())
}

// filterErrors keeps the errors belonging to a field: matched by name,
// by path membership, or by one of the field's flattened keys.
func filterErrors(errs []schema.Error, name string, keys []string) []schema.Error {
	var out []schema.Error
	for _, e := range errs {
		if e.Name == name || pathIncludes(e.Path, name) || keyMatch(keys, e.Name) {
			out = append(out, e)
		}
	}
	return out
}

func pathIncludes(path []string, name string) bool {
	for _, p := range path {
		if p == name {
			return true
		}
	}
	return false
}

func keyMatch(keys []string, name string) bool {
	for _, k := range keys {
		if k == name {
			return true
		}
	}
	return false
}

// firstError returns one error for a field, or nil.
func firstError(field Field, errs []schema.Error) *schema.Error {
	list := field.ComponentErrors(errs)
	if len(list) == 0 {
		return nil
	}
	return &list[0]
}
