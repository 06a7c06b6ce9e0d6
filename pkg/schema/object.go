package schema

import "strings"

// Options controls object validation.
type Options struct {
	// StripUnknown drops keys not declared on the schema instead of
	// copying them through.
	StripUnknown bool
}

// ObjectCustom is an object-level rule run after key validation, e.g. the
// real-date check across day/month/year fields. It sees the validated
// output and reports any number of failures.
type ObjectCustom func(value map[string]any) []Error

// ErrorMapper rewrites errors after validation, used to re-anchor and
// re-title composite field errors.
type ErrorMapper func(errs []Error) []Error

type andGroup struct {
	peers     []string
	isPresent func(value any) bool
}

// Object validates a map of named values against per-key fields, in key
// insertion order. All failures are collected, never just the first.
type Object struct {
	names   []string
	keys    map[string]*Field
	groups  []andGroup
	customs []ObjectCustom
	mappers []ErrorMapper
}

// NewObject creates an empty object schema.
func NewObject() *Object {
	return &Object{keys: map[string]*Field{}}
}

// Keys declares (or replaces) a named field.
func (o *Object) Keys(name string, field *Field) *Object {
	if _, exists := o.keys[name]; !exists {
		o.names = append(o.names, name)
	}
	o.keys[name] = field
	return o
}

// And requires the peer keys to be present together: if any is present,
// the absent peers each fail. Presence is decided by isPresent, so empty
// strings can count as absent for date parts.
func (o *Object) And(peers []string, isPresent func(value any) bool) *Object {
	if isPresent == nil {
		isPresent = func(value any) bool { return value != nil }
	}
	o.groups = append(o.groups, andGroup{peers: peers, isPresent: isPresent})
	return o
}

// Custom adds an object-level rule.
func (o *Object) Custom(fn ObjectCustom) *Object {
	o.customs = append(o.customs, fn)
	return o
}

// MapErrors registers a post-validation error rewrite.
func (o *Object) MapErrors(fn ErrorMapper) *Object {
	o.mappers = append(o.mappers, fn)
	return o
}

// Concat merges another object schema into this one and returns the
// combined schema. Keys, peer groups, custom rules and error mappers all
// carry over; a duplicate key takes the other schema's field.
func (o *Object) Concat(other *Object) *Object {
	merged := NewObject()
	for _, name := range o.names {
		merged.Keys(name, o.keys[name])
	}
	for _, name := range other.names {
		merged.Keys(name, other.keys[name])
	}
	merged.groups = append(append([]andGroup{}, o.groups...), other.groups...)
	merged.customs = append(append([]ObjectCustom{}, o.customs...), other.customs...)
	merged.mappers = append(append([]ErrorMapper{}, o.mappers...), other.mappers...)
	return merged
}

// Names returns the declared key names in insertion order.
func (o *Object) Names() []string {
	return append([]string(nil), o.names...)
}

// Field returns the field declared for a key, or nil.
func (o *Object) Field(name string) *Field {
	return o.keys[name]
}

// Validate checks the input map. The returned map holds the coerced values
// of every key that passed; errors accumulate across all keys and rules.
func (o *Object) Validate(input map[string]any, opts Options) (map[string]any, []Error) {
	out := map[string]any{}
	var errs []Error

	for _, name := range o.names {
		field := o.keys[name]
		raw, present := input[name]
		value, fieldErrs, include := field.validate(name, raw, present, opts)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		if include {
			out[name] = value
		}
	}

	if !opts.StripUnknown {
		for key, value := range input {
			if _, declared := o.keys[key]; !declared {
				out[key] = value
			}
		}
	}

	for _, group := range o.groups {
		errs = append(errs, o.checkPeers(group, input)...)
	}

	for _, fn := range o.customs {
		errs = append(errs, fn(out)...)
	}

	for _, fn := range o.mappers {
		errs = fn(errs)
	}
	return out, errs
}

// checkPeers enforces all-or-nothing presence across a peer group. The
// failure is reported against the shared parent name so a composite field
// surfaces one error, with the absent children listed for anchoring.
func (o *Object) checkPeers(group andGroup, input map[string]any) []Error {
	var missing []string
	anyPresent := false
	for _, peer := range group.peers {
		raw, ok := input[peer]
		if ok && group.isPresent(raw) {
			anyPresent = true
		} else {
			missing = append(missing, peer)
		}
	}
	if !anyPresent || len(missing) == 0 {
		return nil
	}
	parent := peerParent(group.peers)
	field := o.keys[group.peers[0]]
	label := ""
	single := ""
	var overrides map[Kind]string
	if field != nil {
		label = field.label
		single = field.singleMessage
		overrides = field.messages
	}
	err := newError(KindObjectAnd, parent, label, nil, single, overrides)
	err.Missing = missing
	return []Error{err}
}

// peerParent derives the composite parent name from flattened child names,
// e.g. "passportDate__day" -> "passportDate".
func peerParent(peers []string) string {
	if len(peers) == 0 {
		return ""
	}
	name := peers[0]
	if i := strings.Index(name, "__"); i >= 0 {
		return name[:i]
	}
	return name
}
