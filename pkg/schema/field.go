package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type fieldType int

const (
	stringType fieldType = iota
	numberType
	booleanType
	arrayType
	objectType
)

// FieldCustom is a field-level custom rule. It receives the coerced value
// and may replace it or report a failure.
type FieldCustom func(value any, raw string) (any, *Error)

// Field validates a single value. Fields are built once per component at
// form load and are read-only afterwards.
type Field struct {
	typ        fieldType
	label      string
	required   bool
	allowEmpty bool
	allowNull  bool
	trim       bool

	min       *float64
	max       *float64
	length    *int
	precision *int
	integer   bool
	pattern   *regexp.Regexp
	email     bool
	uuid      bool

	valid    []any
	hasValid bool

	items    *Field
	itemsObj *Object
	single   bool

	defaultVal any
	hasDefault bool

	singleMessage string
	messages      map[Kind]string

	customs []FieldCustom
}

// String creates a trimmed string field.
func String() *Field {
	return &Field{typ: stringType, trim: true}
}

// Number creates a numeric field. Submitted strings are converted.
func Number() *Field {
	return &Field{typ: numberType}
}

// Boolean creates a boolean field.
func Boolean() *Field {
	return &Field{typ: booleanType}
}

// Array creates an array field.
func Array() *Field {
	return &Field{typ: arrayType}
}

// ObjectField wraps an object schema as a field, for nested values.
func ObjectField(obj *Object) *Field {
	return &Field{typ: objectType, itemsObj: obj}
}

// ForList returns a field of the value type used by a list ("string",
// "number" or "boolean").
func ForList(listType string) *Field {
	switch listType {
	case "number":
		return Number()
	case "boolean":
		return Boolean()
	default:
		return String()
	}
}

func (f *Field) Label(label string) *Field           { f.label = label; return f }
func (f *Field) Required() *Field                    { f.required = true; return f }
func (f *Field) Optional() *Field                    { f.required = false; return f }
func (f *Field) AllowEmpty() *Field                  { f.allowEmpty = true; return f }
func (f *Field) AllowNull() *Field                   { f.allowNull = true; return f }
func (f *Field) Min(limit float64) *Field            { f.min = &limit; return f }
func (f *Field) Max(limit float64) *Field            { f.max = &limit; return f }
func (f *Field) Length(limit int) *Field             { f.length = &limit; return f }
func (f *Field) Integer() *Field                     { f.integer = true; return f }
func (f *Field) Pattern(re *regexp.Regexp) *Field    { f.pattern = re; return f }
func (f *Field) Email() *Field                       { f.email = true; return f }
func (f *Field) UUID() *Field                        { f.uuid = true; return f }
func (f *Field) Single() *Field                      { f.single = true; return f }
func (f *Field) Items(item *Field) *Field            { f.items = item; return f }
func (f *Field) ObjectItems(obj *Object) *Field      { f.itemsObj = obj; return f }
func (f *Field) Default(value any) *Field            { f.defaultVal = value; f.hasDefault = true; return f }
func (f *Field) Custom(fn FieldCustom) *Field        { f.customs = append(f.customs, fn); return f }

// Valid restricts the value to the given set.
func (f *Field) Valid(values ...any) *Field {
	f.valid = values
	f.hasValid = true
	return f
}

// Precision limits the number of decimal digits. A limit of zero or less
// means whole numbers only.
func (f *Field) Precision(limit int) *Field {
	f.precision = &limit
	if limit <= 0 {
		f.integer = true
	}
	return f
}

// Message sets a single override message applied to every failure kind.
func (f *Field) Message(message string) *Field {
	f.singleMessage = message
	return f
}

// Messages sets per-kind override messages.
func (f *Field) Messages(messages map[Kind]string) *Field {
	if f.messages == nil {
		f.messages = map[Kind]string{}
	}
	for kind, message := range messages {
		f.messages[kind] = message
	}
	return f
}

// Clone returns a deep-enough copy for deriving a state schema from a form
// schema without sharing override maps.
func (f *Field) Clone() *Field {
	clone := *f
	if f.messages != nil {
		clone.messages = map[Kind]string{}
		for k, v := range f.messages {
			clone.messages[k] = v
		}
	}
	clone.customs = append([]FieldCustom(nil), f.customs...)
	clone.valid = append([]any(nil), f.valid...)
	return &clone
}

func (f *Field) fail(kind Kind, name string, limit any) Error {
	return newError(kind, name, f.label, limit, f.singleMessage, f.messages)
}

// validate coerces and checks one value. The include flag reports whether
// the (possibly defaulted) value belongs in the output map.
func (f *Field) validate(name string, raw any, present bool, opts Options) (any, []Error, bool) {
	// Null state values are allowed where the state schema permits them
	if present && raw == nil {
		if f.allowNull {
			return nil, nil, true
		}
		present = false
	}

	// Empty submitted strings count as missing for non-string fields
	if s, ok := raw.(string); ok && present && f.typ != stringType {
		if strings.TrimSpace(s) == "" {
			present = false
			raw = nil
		}
	}

	if !present {
		if f.required {
			kind := KindRequired
			if f.typ == objectType {
				kind = KindObjectMissing
			}
			return nil, []Error{f.fail(kind, name, nil)}, false
		}
		if f.hasDefault {
			return f.defaultVal, nil, true
		}
		return nil, nil, false
	}

	switch f.typ {
	case stringType:
		return f.validateString(name, raw)
	case numberType:
		return f.validateNumber(name, raw)
	case booleanType:
		return f.validateBoolean(name, raw)
	case arrayType:
		return f.validateArray(name, raw, opts)
	case objectType:
		return f.validateObject(name, raw, opts)
	}
	return nil, []Error{f.fail(KindRequired, name, nil)}, false
}

func (f *Field) validateString(name string, raw any) (any, []Error, bool) {
	value, ok := raw.(string)
	if !ok {
		switch v := raw.(type) {
		case float64:
			value = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			value = strconv.Itoa(v)
		case bool:
			value = strconv.FormatBool(v)
		default:
			return nil, []Error{f.fail(KindStringBase, name, nil)}, false
		}
	}
	if f.trim {
		value = strings.TrimSpace(value)
	}
	if value == "" {
		if f.allowEmpty {
			return "", nil, true
		}
		if f.required {
			return nil, []Error{f.fail(KindStringEmpty, name, nil)}, false
		}
		if f.hasDefault {
			return f.defaultVal, nil, true
		}
		return nil, nil, false
	}
	if f.hasValid {
		if !containsValue(f.valid, value) {
			return nil, []Error{f.fail(KindOnly, name, nil)}, false
		}
		return f.applyCustoms(name, value, value)
	}
	if f.email && !emailPattern.MatchString(value) {
		return nil, []Error{f.fail(KindStringEmail, name, nil)}, false
	}
	if f.uuid {
		if _, err := uuid.Parse(value); err != nil {
			return nil, []Error{f.fail(KindStringUUID, name, nil)}, false
		}
	}
	if f.length != nil {
		if len([]rune(value)) != *f.length {
			return nil, []Error{f.fail(KindStringLength, name, *f.length)}, false
		}
	} else {
		if f.max != nil && len([]rune(value)) > int(*f.max) {
			return nil, []Error{f.fail(KindStringMax, name, int(*f.max))}, false
		}
		if f.min != nil && len([]rune(value)) < int(*f.min) {
			return nil, []Error{f.fail(KindStringMin, name, int(*f.min))}, false
		}
	}
	if f.pattern != nil && !f.pattern.MatchString(value) {
		return nil, []Error{f.fail(KindStringPattern, name, nil)}, false
	}
	return f.applyCustoms(name, value, value)
}

func (f *Field) validateNumber(name string, raw any) (any, []Error, bool) {
	var value float64
	rawText := ""
	switch v := raw.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case string:
		rawText = strings.TrimSpace(v)
		parsed, err := strconv.ParseFloat(rawText, 64)
		if err != nil {
			return nil, []Error{f.fail(KindNumberBase, name, nil)}, false
		}
		value = parsed
	default:
		return nil, []Error{f.fail(KindNumberBase, name, nil)}, false
	}
	if f.hasValid {
		if !containsValue(f.valid, value) {
			return nil, []Error{f.fail(KindOnly, name, nil)}, false
		}
		return f.applyCustoms(name, value, rawText)
	}
	if f.integer && value != float64(int64(value)) {
		return nil, []Error{f.fail(KindNumberInteger, name, nil)}, false
	}
	if f.precision != nil && *f.precision > 0 {
		if decimalPlaces(value, rawText) > *f.precision {
			return nil, []Error{f.fail(KindNumberPrecision, name, *f.precision)}, false
		}
	}
	if f.min != nil && value < *f.min {
		return nil, []Error{f.fail(KindNumberMin, name, *f.min)}, false
	}
	if f.max != nil && value > *f.max {
		return nil, []Error{f.fail(KindNumberMax, name, *f.max)}, false
	}
	return f.applyCustoms(name, value, rawText)
}

func (f *Field) validateBoolean(name string, raw any) (any, []Error, bool) {
	var value bool
	switch v := raw.(type) {
	case bool:
		value = v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			value = true
		case "false":
			value = false
		default:
			return nil, []Error{f.fail(KindBooleanBase, name, nil)}, false
		}
	default:
		return nil, []Error{f.fail(KindBooleanBase, name, nil)}, false
	}
	if f.hasValid && !containsValue(f.valid, value) {
		return nil, []Error{f.fail(KindOnly, name, nil)}, false
	}
	return f.applyCustoms(name, value, "")
}

func (f *Field) validateArray(name string, raw any, opts Options) (any, []Error, bool) {
	values, ok := raw.([]any)
	if !ok {
		// Single submitted values coerce to a one-element array
		if !f.single {
			return nil, []Error{f.fail(KindArrayBase, name, nil)}, false
		}
		values = []any{raw}
	}
	if f.length != nil {
		if len(values) != *f.length {
			return nil, []Error{f.fail(KindArrayLength, name, *f.length)}, false
		}
	} else {
		if f.min != nil && len(values) < int(*f.min) {
			return nil, []Error{f.fail(KindArrayMin, name, int(*f.min))}, false
		}
		if f.max != nil && len(values) > int(*f.max) {
			return nil, []Error{f.fail(KindArrayMax, name, int(*f.max))}, false
		}
	}

	var errs []Error
	out := make([]any, 0, len(values))
	for i, item := range values {
		switch {
		case f.itemsObj != nil:
			entry, ok := item.(map[string]any)
			if !ok {
				errs = append(errs, prefixPath(f.fail(KindObjectBase, name, nil), name, i))
				continue
			}
			value, itemErrs := f.itemsObj.Validate(entry, opts)
			for _, e := range itemErrs {
				errs = append(errs, prefixPath(e, name, i))
			}
			if len(itemErrs) == 0 {
				out = append(out, value)
			}
		case f.items != nil:
			value, itemErrs, _ := f.items.validate(name, item, true, opts)
			if len(itemErrs) > 0 {
				errs = append(errs, itemErrs...)
				continue
			}
			out = append(out, value)
		default:
			out = append(out, item)
		}
	}
	if len(errs) > 0 {
		return nil, errs, false
	}
	return out, nil, true
}

func (f *Field) validateObject(name string, raw any, opts Options) (any, []Error, bool) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return nil, []Error{f.fail(KindObjectBase, name, nil)}, false
	}
	value, errs := f.itemsObj.Validate(entry, opts)
	for i := range errs {
		errs[i] = prefixPathOnly(errs[i], name)
	}
	if len(errs) > 0 {
		return nil, errs, false
	}
	return value, nil, true
}

func (f *Field) applyCustoms(name string, value any, raw string) (any, []Error, bool) {
	for _, fn := range f.customs {
		next, err := fn(value, raw)
		if err != nil {
			e := *err
			if e.Name == "" {
				e.Name = name
				e.Path = []string{name}
				e.Href = anchor(name)
			}
			if e.Text == "" {
				e.Text = defaultMessage(e.Kind, f.label, e.Limit)
				if f.singleMessage != "" {
					e.Text = RenderMessage(f.singleMessage, f.label, e.Limit)
				} else if f.messages[e.Kind] != "" {
					e.Text = RenderMessage(f.messages[e.Kind], f.label, e.Limit)
				}
			}
			return nil, []Error{e}, false
		}
		value = next
	}
	return value, nil, true
}

func prefixPath(e Error, name string, index int) Error {
	e.Path = append([]string{name, strconv.Itoa(index)}, e.Path...)
	if e.Name == "" {
		e.Name = name
	}
	if e.Href == "" {
		e.Href = anchor(name)
	}
	return e
}

func prefixPathOnly(e Error, name string) Error {
	e.Path = append([]string{name}, e.Path...)
	return e
}

// decimalPlaces reports the number of decimal digits without rounding: the
// raw submitted text wins over the parsed value so trailing digits are
// never silently converted away.
func decimalPlaces(value float64, rawText string) int {
	text := rawText
	if text == "" {
		text = strconv.FormatFloat(value, 'f', -1, 64)
	}
	if i := strings.IndexByte(text, '.'); i >= 0 {
		return len(text) - i - 1
	}
	return 0
}

func containsValue(values []any, value any) bool {
	for _, v := range values {
		if looseEqual(v, value) {
			return true
		}
	}
	return false
}

// looseEqual compares scalars across the numeric types JSON decoding can
// produce.
func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Describe returns a short human description of the field type, used in
// definition validation failures.
func (f *Field) Describe() string {
	switch f.typ {
	case stringType:
		return "string"
	case numberType:
		return "number"
	case booleanType:
		return "boolean"
	case arrayType:
		return "array"
	default:
		return fmt.Sprintf("object(%d keys)", len(f.itemsObj.names))
	}
}
