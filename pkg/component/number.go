package component

import (
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// NumberField is a numeric input. Precision zero or below means whole
// numbers; a positive precision bounds decimal places without rounding
// the submitted value.
type NumberField struct {
	fieldBase
	spec Spec
}

func NewNumberField(def form.ComponentDef, _ Props) (Component, error) {
	options, spec, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	field := schema.Number().Label(lowerTitle(def)).Required()
	if !options.IsRequired() {
		field.Optional()
	}
	if spec.Min != nil {
		field.Min(*spec.Min)
	}
	if spec.Max != nil {
		field.Max(*spec.Max)
	}
	if spec.Precision != nil {
		field.Precision(*spec.Precision)
	}
	applyMessages(field, options)
	return &NumberField{
		fieldBase: newFieldBase(def, options, field, isNumber),
		spec:      spec,
	}, nil
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, int, int64:
		return true
	}
	return false
}
