package component

import (
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// compositeBase is the shared behaviour of fields composed from child
// fields. Child names carry the parent prefix (name__child), and the
// combined schemas come from the inner collection.
type compositeBase struct {
	base
	collection *Collection
}

func (c *compositeBase) IsForm() bool            { return true }
func (c *compositeBase) Collection() *Collection { return c.collection }

func (c *compositeBase) Keys() []string {
	keys := []string{c.name}
	for _, child := range c.collection.Fields() {
		keys = append(keys, child.Name())
	}
	return keys
}

func (c *compositeBase) FormObject() *schema.Object  { return c.collection.FormObject() }
func (c *compositeBase) StateObject() *schema.Object { return c.collection.StateObject() }

func (c *compositeBase) FormDataFromState(state map[string]any) map[string]any {
	return c.collection.FormDataFromState(state)
}

func (c *compositeBase) StateFromValidForm(payload map[string]any) map[string]any {
	return c.collection.StateFromValidForm(payload)
}

func (c *compositeBase) ComponentErrors(errs []schema.Error) []schema.Error {
	return filterErrors(errs, c.name, c.Keys())
}

// value returns the prefix-stripped child value map, or nil when no
// child has an answer.
func (c *compositeBase) value(state map[string]any) map[string]any {
	value := c.collection.FormValueFromState(state)
	for _, v := range value {
		if v != nil {
			return value
		}
	}
	return nil
}

// childDef builds a synthetic child component definition.
func childDef(typ, name, title string, schemaSpec, options map[string]any) form.ComponentDef {
	return form.ComponentDef{
		Type:    typ,
		Name:    name,
		Title:   title,
		Schema:  schemaSpec,
		Options: options,
	}
}

// datePartMessages routes child number failures into date wording: a
// missing part asks for the parent field, a malformed part reads as an
// invalid date.
func datePartMessages(parentTitle, childTitle string) map[string]any {
	include := fmt.Sprintf("%s must include a %s", parentTitle, lowerString(childTitle))
	invalid := fmt.Sprintf("%s must be a real date", parentTitle)
	return map[string]any{
		string(schema.KindRequired):        include,
		string(schema.KindNumberBase):      include,
		string(schema.KindNumberPrecision): invalid,
		string(schema.KindNumberInteger):   invalid,
		string(schema.KindNumberMin):       invalid,
		string(schema.KindNumberMax):       invalid,
	}
}

func lowerString(s string) string {
	out := []rune(s)
	if len(out) > 0 && out[0] >= 'A' && out[0] <= 'Z' {
		out[0] = out[0] - 'A' + 'a'
	}
	return string(out)
}

// DatePartsField collects a full date as day/month/year number inputs
// and enforces calendar validity plus optional today-relative bounds.
type DatePartsField struct {
	compositeBase
	now func() time.Time
}

func NewDatePartsField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	isRequired := options.IsRequired()
	name := def.Name

	f := &DatePartsField{now: time.Now}
	f.base = newBase(def, options)

	childOptions := func(title string, width int) map[string]any {
		return map[string]any{
			"required":                 isRequired,
			"optionalText":             true,
			"classes":                  fmt.Sprintf("govuk-input--width-%d", width),
			"customValidationMessages": datePartMessages(def.Title, title),
		}
	}
	collection, err := NewCollection([]form.ComponentDef{
		childDef("NumberField", name+"__day", "Day",
			map[string]any{"min": 1, "max": 31, "precision": 0}, childOptions("Day", 2)),
		childDef("NumberField", name+"__month", "Month",
			map[string]any{"min": 1, "max": 12, "precision": 0}, childOptions("Month", 2)),
		childDef("NumberField", name+"__year", "Year",
			map[string]any{"min": 1000, "max": 3000, "precision": 0}, childOptions("Year", 4)),
	}, Props{Lists: props.Lists, PagePath: props.PagePath, Parent: f}, &CollectionSchema{
		Peers:  []string{name + "__day", name + "__month", name + "__year"},
		Custom: f.validateDate,
	})
	if err != nil {
		return nil, err
	}
	f.collection = collection
	return f, nil
}

func (f *DatePartsField) FormValueFromState(state map[string]any) any {
	value := f.value(state)
	if !isDateParts(value) {
		return nil
	}
	return value
}

func (f *DatePartsField) DisplayString(state map[string]any) string {
	date, ok := f.date(state)
	if !ok {
		return ""
	}
	return date.Format("2 January 2006")
}

func (f *DatePartsField) ContextValue(state map[string]any) any {
	date, ok := f.date(state)
	if !ok {
		return nil
	}
	return date.Format("2006-01-02")
}

func (f *DatePartsField) date(state map[string]any) (time.Time, bool) {
	value, ok := f.FormValueFromState(state).(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	return calendarDate(value)
}

// validateDate runs after the child number schemas: it reports one
// parent-level failure for an incomplete or impossible date, and range
// failures against today when configured.
func (f *DatePartsField) validateDate(payload map[string]any) []schema.Error {
	values := f.value(f.StateFromValidForm(payload))
	context := func(kind schema.Kind, limit any) schema.Error {
		e := schema.NewError(kind, f.name, f.label(), limit)
		e.Missing = f.collection.Keys()
		return e
	}

	if !isDateParts(values) {
		if f.options.IsRequired() {
			return []schema.Error{context(schema.KindObjectMissing, nil)}
		}
		return nil
	}

	date, valid := calendarDate(values)
	if !valid {
		return []schema.Error{context(schema.KindDateFormat, nil)}
	}

	today := startOfDay(f.now())
	if f.options.MaxDaysInPast > 0 {
		min := today.AddDate(0, 0, -f.options.MaxDaysInPast)
		if date.Before(min) {
			return []schema.Error{context(schema.KindDateMin, min.Format("2 January 2006"))}
		}
	}
	if f.options.MaxDaysInFuture > 0 {
		max := today.AddDate(0, 0, f.options.MaxDaysInFuture)
		if date.After(max) {
			return []schema.Error{context(schema.KindDateMax, max.Format("2 January 2006"))}
		}
	}
	return nil
}

func isDateParts(value map[string]any) bool {
	return value != nil && isNumber(value["day"]) && isNumber(value["month"]) && isNumber(value["year"])
}

// calendarDate builds the date and reports false for impossible
// combinations like 31 February, which time.Date would normalise away.
func calendarDate(value map[string]any) (time.Time, bool) {
	day := int(asFloat(value["day"]))
	month := int(asFloat(value["month"]))
	year := int(asFloat(value["year"]))
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month || date.Year() != year {
		return time.Time{}, false
	}
	return date, true
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthYearField collects a month and year without a day.
type MonthYearField struct {
	compositeBase
}

func NewMonthYearField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	isRequired := options.IsRequired()
	name := def.Name

	f := &MonthYearField{}
	f.base = newBase(def, options)

	childOptions := func(title string, width int) map[string]any {
		return map[string]any{
			"required":                 isRequired,
			"optionalText":             true,
			"classes":                  fmt.Sprintf("govuk-input--width-%d", width),
			"customValidationMessages": datePartMessages(def.Title, title),
		}
	}
	collection, err := NewCollection([]form.ComponentDef{
		childDef("NumberField", name+"__month", "Month",
			map[string]any{"min": 1, "max": 12, "precision": 0}, childOptions("Month", 2)),
		childDef("NumberField", name+"__year", "Year",
			map[string]any{"min": 1000, "max": 3000, "precision": 0}, childOptions("Year", 4)),
	}, Props{Lists: props.Lists, PagePath: props.PagePath, Parent: f}, &CollectionSchema{
		Peers:  []string{name + "__month", name + "__year"},
		Custom: f.validateMonthYear,
	})
	if err != nil {
		return nil, err
	}
	f.collection = collection
	return f, nil
}

func (f *MonthYearField) FormValueFromState(state map[string]any) any {
	value := f.value(state)
	if !isMonthYear(value) {
		return nil
	}
	return value
}

func (f *MonthYearField) DisplayString(state map[string]any) string {
	value, ok := f.FormValueFromState(state).(map[string]any)
	if !ok {
		return ""
	}
	date := time.Date(int(asFloat(value["year"])), time.Month(asFloat(value["month"])), 1, 0, 0, 0, 0, time.UTC)
	return date.Format("January 2006")
}

func (f *MonthYearField) ContextValue(state map[string]any) any {
	value, ok := f.FormValueFromState(state).(map[string]any)
	if !ok {
		return nil
	}
	date := time.Date(int(asFloat(value["year"])), time.Month(asFloat(value["month"])), 1, 0, 0, 0, 0, time.UTC)
	return date.Format("2006-01")
}

func (f *MonthYearField) validateMonthYear(payload map[string]any) []schema.Error {
	values := f.value(f.StateFromValidForm(payload))
	if isMonthYear(values) || !f.options.IsRequired() {
		return nil
	}
	e := schema.NewError(schema.KindObjectMissing, f.name, f.label(), nil)
	e.Missing = f.collection.Keys()
	return []schema.Error{e}
}

func isMonthYear(value map[string]any) bool {
	return value != nil && isNumber(value["month"]) && isNumber(value["year"])
}

// UkAddressField collects a UK postal address across four text inputs.
// Address line 2 is always optional.
type UkAddressField struct {
	compositeBase
}

func NewUkAddressField(def form.ComponentDef, props Props) (Component, error) {
	options, _, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	isRequired := options.IsRequired()
	name := def.Name

	f := &UkAddressField{}
	f.base = newBase(def, options)

	collection, err := NewCollection([]form.ComponentDef{
		childDef("TextField", name+"__addressLine1", "Address line 1",
			map[string]any{"max": 100},
			map[string]any{"required": isRequired, "autocomplete": "address-line1"}),
		childDef("TextField", name+"__addressLine2", "Address line 2",
			map[string]any{"max": 100},
			map[string]any{"required": false, "autocomplete": "address-line2"}),
		childDef("TextField", name+"__town", "Town or city",
			nil,
			map[string]any{"required": isRequired, "autocomplete": "address-level2"}),
		childDef("TextField", name+"__postcode", "Postcode",
			map[string]any{"regex": `^[a-zA-Z]{1,2}\d[a-zA-Z\d]?\s?\d[a-zA-Z]{2}$`},
			map[string]any{"required": isRequired, "autocomplete": "postal-code"}),
	}, Props{Lists: props.Lists, PagePath: props.PagePath, Parent: f}, nil)
	if err != nil {
		return nil, err
	}
	f.collection = collection
	return f, nil
}

func (f *UkAddressField) FormValueFromState(state map[string]any) any {
	value := f.value(state)
	if !isUkAddress(value) {
		return nil
	}
	return value
}

func (f *UkAddressField) DisplayString(state map[string]any) string {
	lines := f.addressLines(state)
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += ", "
		}
		out += line
	}
	return out
}

func (f *UkAddressField) ContextValue(state map[string]any) any {
	lines := f.addressLines(state)
	if lines == nil {
		return nil
	}
	out := make([]any, len(lines))
	for i, line := range lines {
		out[i] = line
	}
	return out
}

// addressLines returns the non-empty address parts in display order.
func (f *UkAddressField) addressLines(state map[string]any) []string {
	value, ok := f.FormValueFromState(state).(map[string]any)
	if !ok {
		return nil
	}
	var lines []string
	for _, key := range []string{"addressLine1", "addressLine2", "town", "postcode"} {
		if s, isText := value[key].(string); isText && s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

func isUkAddress(value map[string]any) bool {
	if value == nil {
		return false
	}
	line1, _ := value["addressLine1"].(string)
	town, _ := value["town"].(string)
	postcode, _ := value["postcode"].(string)
	return line1 != "" && town != "" && postcode != ""
}
