package condition

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// wrapperValue mirrors the condition "value" document: a named group of
// items joined by coordinators.
type wrapperValue struct {
	Name       string            `json:"name"`
	Conditions []json.RawMessage `json:"conditions"`
}

// conditionItem is the superset of the three item shapes: a field
// comparison, a reference to another named condition, or a nested group.
type conditionItem struct {
	Coordinator string `json:"coordinator,omitempty"`

	Field *struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Display string `json:"display"`
	} `json:"field,omitempty"`
	Operator string          `json:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`

	ConditionName string `json:"conditionName,omitempty"`

	Conditions []json.RawMessage `json:"conditions,omitempty"`
}

type operandValue struct {
	Type      string `json:"type"`
	Value     any    `json:"value"`
	Display   string `json:"display,omitempty"`
	Period    any    `json:"period,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// ParseExpr compiles a condition value document into an expression tree.
func ParseExpr(raw json.RawMessage) (Expr, error) {
	var value wrapperValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("condition value: %w", err)
	}
	if len(value.Conditions) == 0 {
		return nil, fmt.Errorf("condition %q has no items", value.Name)
	}
	return parseGroup(value.Conditions)
}

// parseGroup folds a list of items into one expression. "and" binds
// tighter than "or", so the items split into or-joined and-chains.
func parseGroup(items []json.RawMessage) (Expr, error) {
	var orChains [][]Expr
	var current []Expr

	for i, raw := range items {
		var item conditionItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("condition item %d: %w", i, err)
		}
		expr, err := parseItem(item, i)
		if err != nil {
			return nil, err
		}
		if i > 0 && item.Coordinator == CoordinatorOr {
			orChains = append(orChains, current)
			current = nil
		} else if i > 0 && item.Coordinator != CoordinatorAnd {
			return nil, fmt.Errorf("condition item %d: missing coordinator", i)
		}
		current = append(current, expr)
	}
	orChains = append(orChains, current)

	operands := make([]Expr, 0, len(orChains))
	for _, chain := range orChains {
		if len(chain) == 1 {
			operands = append(operands, chain[0])
			continue
		}
		operands = append(operands, Logical{Coordinator: CoordinatorAnd, Operands: chain})
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return Logical{Coordinator: CoordinatorOr, Operands: operands}, nil
}

func parseItem(item conditionItem, index int) (Expr, error) {
	switch {
	case len(item.Conditions) > 0:
		return parseGroup(item.Conditions)
	case item.ConditionName != "":
		return Ref{Name: item.ConditionName}, nil
	case item.Field != nil:
		if item.Operator == "" {
			return nil, fmt.Errorf("condition item %d: missing operator", index)
		}
		operand, err := parseOperand(item.Value)
		if err != nil {
			return nil, fmt.Errorf("condition item %d: %w", index, err)
		}
		return Comparison{
			Left:     Ref{Name: item.Field.Name},
			Operator: item.Operator,
			Right:    operand,
		}, nil
	}
	return nil, fmt.Errorf("condition item %d: unrecognised shape", index)
}

func parseOperand(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing value")
	}
	var value operandValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	switch value.Type {
	case "Value", "":
		return Literal{Value: value.Value}, nil
	case "RelativeDate", "RelativeTime":
		period, err := parsePeriod(value.Period)
		if err != nil {
			return nil, err
		}
		if value.Direction != DirectionPast && value.Direction != DirectionFuture {
			return nil, fmt.Errorf("unknown direction %q", value.Direction)
		}
		return RelativeDate{Period: period, Unit: value.Unit, Direction: value.Direction}, nil
	}
	return nil, fmt.Errorf("unknown value type %q", value.Type)
}

// parsePeriod accepts both string and numeric period encodings.
func parsePeriod(period any) (int, error) {
	switch v := period.(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid period %q", v)
		}
		return n, nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("invalid period %T", period)
}
