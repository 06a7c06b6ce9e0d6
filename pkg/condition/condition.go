package condition

import (
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/form"
)

// Condition is a named, compiled predicate over the evaluation state.
type Condition struct {
	Name        string
	DisplayName string
	expr        Expr
}

// Table holds every compiled condition of a form, built once at load and
// read-only afterwards.
type Table struct {
	conditions map[string]*Condition
	clock      func() time.Time
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithClock overrides the time source used by relative-date operands.
func WithClock(clock func() time.Time) TableOption {
	return func(t *Table) {
		t.clock = clock
	}
}

// Compile builds the condition table from definition entries. A condition
// that fails to compile is a definition error.
func Compile(defs []form.ConditionDef, opts ...TableOption) (*Table, error) {
	table := &Table{
		conditions: make(map[string]*Condition, len(defs)),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(table)
	}
	for _, def := range defs {
		expr, err := ParseExpr(def.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: condition %q: %w", form.ErrInvalidDefinition, def.Name, err)
		}
		table.conditions[def.Name] = &Condition{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			expr:        expr,
		}
	}
	return table, nil
}

// Get returns the named condition, or nil.
func (t *Table) Get(name string) *Condition {
	return t.conditions[name]
}

// Evaluate runs the named condition against the evaluation state. Unknown
// names and evaluation failures both yield false.
func (t *Table) Evaluate(name string, state map[string]any) bool {
	cond := t.conditions[name]
	if cond == nil {
		return false
	}
	return t.Fn(cond, state)
}

// Fn evaluates a condition against the evaluation state. It never fails:
// unresolvable references and type mismatches collapse to false.
func (t *Table) Fn(cond *Condition, state map[string]any) bool {
	ctx := &Context{
		state:      state,
		conditions: t.conditions,
		memo:       map[string]memoEntry{},
		clock:      t.clock,
	}
	value, err := cond.expr.Eval(ctx)
	if err != nil {
		return false
	}
	ok, isBool := value.(bool)
	return isBool && ok
}

type memoEntry struct {
	value any
	err   error
}

// Context resolves references during one evaluation call. Condition names
// shadow field names, and resolved values are memoised for the duration of
// the call only, so condition-to-condition references stay lazy without
// caching across state changes.
type Context struct {
	state      map[string]any
	conditions map[string]*Condition
	memo       map[string]memoEntry
	clock      func() time.Time
	resolving  []string
}

// Resolve returns the value behind a name: another condition's result if
// one is declared under that name, otherwise the field's evaluation-state
// value.
func (c *Context) Resolve(name string) (any, error) {
	if entry, ok := c.memo[name]; ok {
		return entry.value, entry.err
	}
	if cond, ok := c.conditions[name]; ok {
		for _, active := range c.resolving {
			if active == name {
				return nil, fmt.Errorf("condition cycle through %q", name)
			}
		}
		c.resolving = append(c.resolving, name)
		value, err := cond.expr.Eval(c)
		c.resolving = c.resolving[:len(c.resolving)-1]
		c.memo[name] = memoEntry{value: value, err: err}
		return value, err
	}
	value, ok := c.state[name]
	if !ok {
		return nil, fmt.Errorf("unknown reference %q", name)
	}
	c.memo[name] = memoEntry{value: value}
	return value, nil
}

func (c *Context) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}
