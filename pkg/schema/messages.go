package schema

import (
	"fmt"
	"strings"
)

// Default message templates per failure kind. Templates may reference
// {{#label}} (the lowercase field title) and {{#limit}} (the rule bound).
var messageTemplates = map[Kind]string{
	KindRequired:        "Enter {{#label}}",
	KindOnly:            "Select {{#label}}",
	KindStringBase:      "Enter {{#label}}",
	KindStringEmpty:     "Enter {{#label}}",
	KindStringMax:       "{{#label}} must be {{#limit}} characters or less",
	KindStringMin:       "{{#label}} must be {{#limit}} characters or more",
	KindStringLength:    "{{#label}} must be {{#limit}} characters",
	KindStringPattern:   "Enter a valid {{#label}}",
	KindStringEmail:     "Enter {{#label}} in the correct format",
	KindStringUUID:      "{{#label}} must be a valid ID",
	KindMaxWords:        "{{#label}} must be {{#limit}} words or fewer",
	KindNumberBase:      "{{#label}} must be a number",
	KindNumberInteger:   "{{#label}} must be a whole number",
	KindNumberMin:       "{{#label}} must be {{#limit}} or higher",
	KindNumberMax:       "{{#label}} must be {{#limit}} or lower",
	KindNumberPrecision: "{{#label}} must have {{#limit}} decimal places or fewer",
	KindBooleanBase:     "Select {{#label}}",
	KindArrayBase:       "Select {{#label}}",
	KindArrayMin:        "{{#label}} must contain at least {{#limit}} items",
	KindArrayMax:        "{{#label}} must contain no more than {{#limit}} items",
	KindArrayLength:     "{{#label}} must contain {{#limit}} items",
	KindArrayIncludes:   "{{#label}} is incomplete",
	KindObjectBase:      "Enter {{#label}}",
	KindObjectMissing:   "Enter {{#label}}",
	KindObjectAnd:       "Enter {{#label}}",
	KindDateFormat:      "{{#label}} must be a real date",
	KindDateMin:         "{{#label}} must be the same as or after {{#limit}}",
	KindDateMax:         "{{#label}} must be the same as or before {{#limit}}",
}

// RenderMessage substitutes {{#label}} and {{#limit}} into a template.
func RenderMessage(template, label string, limit any) string {
	out := strings.ReplaceAll(template, "{{#label}}", label)
	if limit != nil {
		out = strings.ReplaceAll(out, "{{#limit}}", formatLimit(limit))
	}
	return out
}

func formatLimit(limit any) string {
	switch v := limit.(type) {
	case float64:
		// Render whole-number bounds without a decimal point
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func defaultMessage(kind Kind, label string, limit any) string {
	template, ok := messageTemplates[kind]
	if !ok {
		template = "{{#label}} is invalid"
	}
	return RenderMessage(template, label, limit)
}
