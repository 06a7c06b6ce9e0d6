package schema

// Kind identifies a class of validation failure. The naming follows the
// "type.rule" convention so per-kind message overrides in form definitions
// can address individual rules.
type Kind string

const (
	KindRequired      Kind = "any.required"
	KindOnly          Kind = "any.only"
	KindStringBase    Kind = "string.base"
	KindStringEmpty   Kind = "string.empty"
	KindStringMax     Kind = "string.max"
	KindStringMin     Kind = "string.min"
	KindStringLength  Kind = "string.length"
	KindStringPattern Kind = "string.pattern.base"
	KindStringEmail   Kind = "string.email"
	KindStringUUID    Kind = "string.guid"
	KindMaxWords      Kind = "string.maxWords"
	KindNumberBase    Kind = "number.base"
	KindNumberInteger Kind = "number.integer"
	KindNumberMin     Kind = "number.min"
	KindNumberMax     Kind = "number.max"
	KindNumberPrecision Kind = "number.precision"
	KindBooleanBase   Kind = "boolean.base"
	KindArrayBase     Kind = "array.base"
	KindArrayMin      Kind = "array.min"
	KindArrayMax      Kind = "array.max"
	KindArrayLength   Kind = "array.length"
	KindArrayIncludes Kind = "array.includesRequiredUnknowns"
	KindObjectBase    Kind = "object.base"
	KindObjectMissing Kind = "object.required"
	KindObjectAnd     Kind = "object.and"
	KindObjectUnknown Kind = "object.unknown"
	KindDateFormat    Kind = "date.format"
	KindDateMin       Kind = "date.min"
	KindDateMax       Kind = "date.max"
)
