package condition

import (
	"fmt"
	"strings"
	"time"
)

// Operator names follow the authoring tool's vocabulary.
const (
	OpIs             = "is"
	OpIsNot          = "is not"
	OpContains       = "contains"
	OpDoesNotContain = "does not contain"
	OpIsLongerThan   = "is longer than"
	OpIsShorterThan  = "is shorter than"
	OpHasLength      = "has length"
	OpIsAtLeast      = "is at least"
	OpIsAtMost       = "is at most"
	OpIsMoreThan     = "is more than"
	OpIsLessThan     = "is less than"
	OpIsBefore       = "is before"
	OpIsAfter        = "is after"
)

// Coordinators join sibling items inside a condition group. "and" binds
// tighter than "or".
const (
	CoordinatorAnd = "and"
	CoordinatorOr  = "or"
)

// Directions for relative-date values.
const (
	DirectionPast   = "in the past"
	DirectionFuture = "in the future"
)

// Expr is a compiled expression node. Eval reports an error for anything
// unresolvable; the owning Condition collapses that to false.
type Expr interface {
	Eval(ctx *Context) (any, error)
}

// Ref resolves a field value or another condition by name.
type Ref struct {
	Name string
}

func (r Ref) Eval(ctx *Context) (any, error) {
	return ctx.Resolve(r.Name)
}

// Literal is a constant comparison operand.
type Literal struct {
	Value any
}

func (l Literal) Eval(*Context) (any, error) {
	return l.Value, nil
}

// RelativeDate evaluates to today offset by a period, as an ISO timestamp,
// matching the format date answers use in the evaluation state.
type RelativeDate struct {
	Period    int
	Unit      string // "days", "months" or "years"
	Direction string
}

func (r RelativeDate) Eval(ctx *Context) (any, error) {
	period := r.Period
	if r.Direction == DirectionPast {
		period = -period
	}
	now := ctx.now()
	switch r.Unit {
	case "days":
		now = now.AddDate(0, 0, period)
	case "months":
		now = now.AddDate(0, period, 0)
	case "years":
		now = now.AddDate(period, 0, 0)
	default:
		return nil, fmt.Errorf("unknown time unit %q", r.Unit)
	}
	return now.Format(time.RFC3339), nil
}

// Comparison applies one operator to a field reference and an operand.
type Comparison struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (c Comparison) Eval(ctx *Context) (any, error) {
	left, err := c.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	right, err := c.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	switch c.Operator {
	case OpIs:
		return looseEqual(left, right), nil
	case OpIsNot:
		return !looseEqual(left, right), nil
	case OpContains:
		return contains(left, right)
	case OpDoesNotContain:
		ok, err := contains(left, right)
		if err != nil {
			return nil, err
		}
		return !ok, nil
	case OpIsLongerThan, OpIsShorterThan, OpHasLength:
		return compareLength(left, right, c.Operator)
	case OpIsAtLeast, OpIsAtMost, OpIsMoreThan, OpIsLessThan:
		return compareNumbers(left, right, c.Operator)
	case OpIsBefore, OpIsAfter:
		return compareDates(left, right, c.Operator)
	}
	return nil, fmt.Errorf("unknown operator %q", c.Operator)
}

// Logical joins sub-expressions with and/or. Evaluation short-circuits.
type Logical struct {
	Coordinator string
	Operands    []Expr
}

func (l Logical) Eval(ctx *Context) (any, error) {
	for _, operand := range l.Operands {
		value, err := operand.Eval(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := toBool(value)
		if err != nil {
			return nil, err
		}
		if l.Coordinator == CoordinatorAnd && !ok {
			return false, nil
		}
		if l.Coordinator == CoordinatorOr && ok {
			return true, nil
		}
	}
	return l.Coordinator == CoordinatorAnd, nil
}

func toBool(value any) (bool, error) {
	ok, isBool := value.(bool)
	if !isBool {
		return false, fmt.Errorf("expected boolean, got %T", value)
	}
	return ok, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("not a number: %T", value)
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	af, aerr := toFloat(a)
	bf, berr := toFloat(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// contains tests array membership, or substring containment for strings.
func contains(left, right any) (bool, error) {
	switch v := left.(type) {
	case []any:
		for _, item := range v {
			if looseEqual(item, right) {
				return true, nil
			}
		}
		return false, nil
	case []string:
		for _, item := range v {
			if looseEqual(item, right) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("cannot search string for %T", right)
		}
		return strings.Contains(v, s), nil
	case nil:
		return false, fmt.Errorf("cannot search nil value")
	}
	return false, fmt.Errorf("cannot search %T", left)
}

func compareLength(left, right any, operator string) (bool, error) {
	s, ok := left.(string)
	if !ok {
		return false, fmt.Errorf("length comparison needs a string, got %T", left)
	}
	limit, err := toFloat(right)
	if err != nil {
		return false, err
	}
	length := float64(len([]rune(s)))
	switch operator {
	case OpIsLongerThan:
		return length > limit, nil
	case OpIsShorterThan:
		return length < limit, nil
	default:
		return length == limit, nil
	}
}

func compareNumbers(left, right any, operator string) (bool, error) {
	a, err := toFloat(left)
	if err != nil {
		return false, err
	}
	b, err := toFloat(right)
	if err != nil {
		return false, err
	}
	switch operator {
	case OpIsAtLeast:
		return a >= b, nil
	case OpIsAtMost:
		return a <= b, nil
	case OpIsMoreThan:
		return a > b, nil
	default:
		return a < b, nil
	}
}

// compareDates parses both sides as dates. Date answers in the evaluation
// state are ISO strings, so string parsing covers both fields and
// relative-date operands.
func compareDates(left, right any, operator string) (bool, error) {
	a, err := parseDate(left)
	if err != nil {
		return false, err
	}
	b, err := parseDate(right)
	if err != nil {
		return false, err
	}
	if operator == OpIsBefore {
		return a.Before(b), nil
	}
	return a.After(b), nil
}

func parseDate(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("not a date: %T", value)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date: %q", s)
}
