package schema

import "strings"

// Error is a single field validation failure. Errors are values surfaced to
// page rendering, not Go errors: validation never aborts a request.
type Error struct {
	// Path locates the failing value, e.g. ["licencePeriod"] or
	// ["files", "0", "status"].
	Path []string

	// Name is the flattened field name the error belongs to.
	Name string

	// Href anchors the error summary link to the failing input.
	Href string

	// Kind classifies the failed rule.
	Kind Kind

	// Text is the user-facing message.
	Text string

	// Label is the lowercase field title used in the message, when known.
	Label string

	// Title is the owning (parent) field title, filled in by collection
	// error post-processing for composite fields.
	Title string

	// Missing lists the child keys of a composite field that triggered an
	// object-level failure, used to re-anchor the error.
	Missing []string

	// Limit carries the rule bound (min, max, length) for message templates.
	Limit any
}

// FlatName joins an error path into the flattened double-underscore form
// used for composite child fields, e.g. ["date", "day"] -> "date__day".
func FlatName(path []string) string {
	return strings.Join(path, "__")
}

// anchor builds the error summary href for a field name.
func anchor(name string) string {
	if name == "" {
		return ""
	}
	return "#" + name
}

// NewError builds a failure with the default message for its kind. Object
// custom validators use this to report domain failures.
func NewError(kind Kind, name, label string, limit any) Error {
	return newError(kind, name, label, limit, "", nil)
}

// newError resolves the message for a failure against per-kind overrides.
// A non-empty single override message applies to every kind.
func newError(kind Kind, name, label string, limit any, single string, overrides map[Kind]string) Error {
	text := ""
	switch {
	case single != "":
		text = RenderMessage(single, label, limit)
	case overrides[kind] != "":
		text = RenderMessage(overrides[kind], label, limit)
	default:
		text = defaultMessage(kind, label, limit)
	}
	return Error{
		Path:  []string{name},
		Name:  name,
		Href:  anchor(name),
		Kind:  kind,
		Text:  text,
		Label: label,
		Limit: limit,
	}
}
