// Package condition compiles the structured boolean expressions declared
// in a form definition into predicates over the flattened evaluation
// state. Compilation happens once at form load; evaluation is pure,
// re-entrant and total — a failing evaluation (missing field, bad type)
// yields false, never an error. That keeps negative conditions like
// "X does not contain Y" definite even when X was never answered.
package condition
