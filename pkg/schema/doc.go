// Package schema provides the field and object validators that back form
// components. Schemas are built once when a form definition loads and are
// then shared across requests, so all builder methods are load-time only.
//
// Validation collects every failure rather than stopping at the first, and
// reports them as values (not Go errors) so page rendering can map each
// failure back to its input.
package schema
