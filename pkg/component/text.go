package component

import (
	"fmt"
	"regexp"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

var telephonePattern = regexp.MustCompile(`^[0-9\\\s+()-]*$`)

// TextField is a single-line text input.
type TextField struct {
	fieldBase
}

func NewTextField(def form.ComponentDef, _ Props) (Component, error) {
	options, spec, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	field, err := textSchema(def, options, spec)
	if err != nil {
		return nil, err
	}
	return &TextField{newFieldBase(def, options, field, isText)}, nil
}

// textSchema builds the shared string schema: trim, required unless
// opted out, exact length or min/max bounds, optional regex.
func textSchema(def form.ComponentDef, options Options, spec Spec) (*schema.Field, error) {
	field := schema.String().Label(lowerTitle(def)).Required().Default("")
	if !options.IsRequired() {
		field.Optional().AllowEmpty()
	}
	if spec.Length != nil {
		field.Length(*spec.Length)
	} else {
		if spec.Max != nil {
			field.Max(*spec.Max)
		}
		if spec.Min != nil {
			field.Min(*spec.Min)
		}
	}
	if spec.Regex != "" {
		pattern, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, fmt.Errorf("component %q regex: %w", def.Name, err)
		}
		field.Pattern(pattern)
	}
	applyMessages(field, options)
	return field, nil
}

// MultilineTextField is a textarea, optionally bounded by a word count.
type MultilineTextField struct {
	fieldBase
}

func NewMultilineTextField(def form.ComponentDef, _ Props) (Component, error) {
	options, spec, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	field, err := textSchema(def, options, spec)
	if err != nil {
		return nil, err
	}
	if options.MaxWords > 0 {
		limit := options.MaxWords
		field.Custom(func(value any, _ string) (any, *schema.Error) {
			text, _ := value.(string)
			if wordCount(text) <= limit {
				return value, nil
			}
			return nil, &schema.Error{Kind: schema.KindMaxWords, Limit: limit}
		})
	}
	return &MultilineTextField{newFieldBase(def, options, field, isText)}, nil
}

var wordPattern = regexp.MustCompile(`\S+`)

func wordCount(text string) int {
	return len(wordPattern.FindAllString(text, -1))
}

// EmailAddressField validates a single email address.
type EmailAddressField struct {
	fieldBase
}

func NewEmailAddressField(def form.ComponentDef, _ Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	field := schema.String().Label(lowerTitle(def)).Email().Required().Default("")
	if !options.IsRequired() {
		field.Optional().AllowEmpty()
	}
	applyMessages(field, options)
	return &EmailAddressField{newFieldBase(def, options, field, isText)}, nil
}

// TelephoneNumberField accepts digits, spaces and phone punctuation.
type TelephoneNumberField struct {
	fieldBase
}

func NewTelephoneNumberField(def form.ComponentDef, _ Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	field := schema.String().Label(lowerTitle(def)).Pattern(telephonePattern).Required().Default("")
	if !options.IsRequired() {
		field.Optional().AllowEmpty()
	}
	applyMessages(field, options)
	return &TelephoneNumberField{newFieldBase(def, options, field, isText)}, nil
}

func isText(value any) bool {
	s, ok := value.(string)
	return ok && s != ""
}

func lowerTitle(def form.ComponentDef) string {
	b := newBase(def, Options{})
	return b.label()
}

// applyMessages wires the definition's custom validation messages: a
// single message overrides every failure kind, the per-kind map
// overrides individually.
func applyMessages(field *schema.Field, options Options) {
	if options.CustomValidationMessage != "" {
		field.Message(options.CustomValidationMessage)
		return
	}
	if overrides := options.MessageOverrides(); overrides != nil {
		field.Messages(overrides)
	}
}
