package component

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/form"
)

// Constructor builds a component from its definition.
type Constructor func(def form.ComponentDef, props Props) (Component, error)

// registry is the closed set of component variants, keyed by type tag.
// Populated in init: composite constructors build child collections
// through New, so a var initializer would cycle.
var registry map[string]Constructor

func init() {
	registry = map[string]Constructor{
		"TextField":            NewTextField,
		"MultilineTextField":   NewMultilineTextField,
		"NumberField":          NewNumberField,
		"EmailAddressField":    NewEmailAddressField,
		"TelephoneNumberField": NewTelephoneNumberField,
		"DatePartsField":       NewDatePartsField,
		"MonthYearField":       NewMonthYearField,
		"UkAddressField":       NewUkAddressField,
		"SelectField":          NewSelectField,
		"AutocompleteField":    NewAutocompleteField,
		"RadiosField":          NewRadiosField,
		"CheckboxesField":      NewCheckboxesField,
		"YesNoField":           NewYesNoField,
		"FileUploadField":      NewFileUploadField,
		"Html":                 NewHtml,
		"InsetText":            NewInsetText,
		"Details":              NewDetails,
		"List":                 NewListGuidance,
	}
}

// New builds the component for a definition. An unknown type tag is a
// configuration error.
func New(def form.ComponentDef, props Props) (Component, error) {
	construct, ok := registry[def.Type]
	if !ok {
		return nil, fmt.Errorf("%w: component type %q does not exist", form.ErrInvalidDefinition, def.Type)
	}
	return construct(def, props)
}
