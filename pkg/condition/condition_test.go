package condition

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/form"
)

func compileOne(t *testing.T, name, value string, opts ...TableOption) *Table {
	t.Helper()
	table, err := Compile([]form.ConditionDef{
		{Name: name, DisplayName: name, Value: json.RawMessage(value)},
	}, opts...)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return table
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		state map[string]any
		want  bool
	}{
		{
			name: "is matches",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"licencePeriod","type":"RadiosField","display":"period"},
				 "operator":"is","value":{"type":"Value","value":"1","display":"1"}}]}`,
			state: map[string]any{"licencePeriod": "1"},
			want:  true,
		},
		{
			name: "is compares numbers loosely",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"count","type":"NumberField","display":"count"},
				 "operator":"is","value":{"type":"Value","value":"5","display":"5"}}]}`,
			state: map[string]any{"count": float64(5)},
			want:  true,
		},
		{
			name: "is not",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"colour","type":"TextField","display":"colour"},
				 "operator":"is not","value":{"type":"Value","value":"red","display":"red"}}]}`,
			state: map[string]any{"colour": "blue"},
			want:  true,
		},
		{
			name: "contains array member",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"toppings","type":"CheckboxesField","display":"toppings"},
				 "operator":"contains","value":{"type":"Value","value":"ham","display":"Ham"}}]}`,
			state: map[string]any{"toppings": []any{"cheese", "ham"}},
			want:  true,
		},
		{
			name: "does not contain on empty array is definite",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"toppings","type":"CheckboxesField","display":"toppings"},
				 "operator":"does not contain","value":{"type":"Value","value":"ham","display":"Ham"}}]}`,
			state: map[string]any{"toppings": []any{}},
			want:  true,
		},
		{
			name: "is at least",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"age","type":"NumberField","display":"age"},
				 "operator":"is at least","value":{"type":"Value","value":"18","display":"18"}}]}`,
			state: map[string]any{"age": float64(18)},
			want:  true,
		},
		{
			name: "is less than fails at boundary",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"age","type":"NumberField","display":"age"},
				 "operator":"is less than","value":{"type":"Value","value":"18","display":"18"}}]}`,
			state: map[string]any{"age": float64(18)},
			want:  false,
		},
		{
			name: "is longer than",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"ref","type":"TextField","display":"ref"},
				 "operator":"is longer than","value":{"type":"Value","value":"3","display":"3"}}]}`,
			state: map[string]any{"ref": "abcd"},
			want:  true,
		},
		{
			name: "boolean yes/no value",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"hasLicence","type":"YesNoField","display":"has licence"},
				 "operator":"is","value":{"type":"Value","value":"true","display":"Yes"}}]}`,
			state: map[string]any{"hasLicence": true},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := compileOne(t, "c", tt.doc)
			if got := table.Evaluate("c", tt.state); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluationNeverFails(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		state map[string]any
	}{
		{
			name: "missing field reference",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"missing","type":"TextField","display":"missing"},
				 "operator":"is","value":{"type":"Value","value":"x","display":"x"}}]}`,
			state: map[string]any{},
		},
		{
			name: "does not contain over missing field",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"missing","type":"CheckboxesField","display":"missing"},
				 "operator":"does not contain","value":{"type":"Value","value":"x","display":"x"}}]}`,
			state: map[string]any{},
		},
		{
			name: "type mismatch in numeric comparison",
			doc: `{"name":"c","conditions":[
				{"field":{"name":"age","type":"NumberField","display":"age"},
				 "operator":"is more than","value":{"type":"Value","value":"18","display":"18"}}]}`,
			state: map[string]any{"age": []any{"not", "a", "number"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := compileOne(t, "c", tt.doc)
			if got := table.Evaluate("c", tt.state); got != false {
				t.Errorf("Evaluate() = %v, want false", got)
			}
		})
	}
}

func TestCoordinators(t *testing.T) {
	doc := `{"name":"c","conditions":[
		{"field":{"name":"a","type":"TextField","display":"a"},
		 "operator":"is","value":{"type":"Value","value":"1","display":"1"}},
		{"coordinator":"and",
		 "field":{"name":"b","type":"TextField","display":"b"},
		 "operator":"is","value":{"type":"Value","value":"2","display":"2"}},
		{"coordinator":"or",
		 "field":{"name":"d","type":"TextField","display":"d"},
		 "operator":"is","value":{"type":"Value","value":"4","display":"4"}}]}`
	table := compileOne(t, "c", doc)

	// (a and b) or d: and binds tighter than or
	if !table.Evaluate("c", map[string]any{"a": "1", "b": "2", "d": "x"}) {
		t.Error("a and b should satisfy the condition")
	}
	if !table.Evaluate("c", map[string]any{"a": "x", "b": "x", "d": "4"}) {
		t.Error("d alone should satisfy the condition")
	}
	if table.Evaluate("c", map[string]any{"a": "1", "b": "x", "d": "x"}) {
		t.Error("a alone should not satisfy the condition")
	}
}

func TestConditionToConditionReference(t *testing.T) {
	table, err := Compile([]form.ConditionDef{
		{Name: "isAdult", Value: json.RawMessage(`{"name":"isAdult","conditions":[
			{"field":{"name":"age","type":"NumberField","display":"age"},
			 "operator":"is at least","value":{"type":"Value","value":"18","display":"18"}}]}`)},
		{Name: "canApply", Value: json.RawMessage(`{"name":"canApply","conditions":[
			{"conditionName":"isAdult","conditionDisplayName":"is adult"},
			{"coordinator":"and",
			 "field":{"name":"resident","type":"YesNoField","display":"resident"},
			 "operator":"is","value":{"type":"Value","value":"true","display":"Yes"}}]}`)},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if !table.Evaluate("canApply", map[string]any{"age": float64(21), "resident": true}) {
		t.Error("composed condition should hold")
	}
	if table.Evaluate("canApply", map[string]any{"age": float64(12), "resident": true}) {
		t.Error("composed condition should fail via referenced condition")
	}
}

func TestRelativeDateComparison(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := `{"name":"c","conditions":[
		{"field":{"name":"passportIssued","type":"DatePartsField","display":"passport issued"},
		 "operator":"is after",
		 "value":{"type":"RelativeDate","period":"30","unit":"days","direction":"in the past"}}]}`
	table := compileOne(t, "c", doc, WithClock(func() time.Time { return now }))

	if !table.Evaluate("c", map[string]any{"passportIssued": "2024-05-20"}) {
		t.Error("date within the last 30 days should pass")
	}
	if table.Evaluate("c", map[string]any{"passportIssued": "2024-01-01"}) {
		t.Error("date older than 30 days should fail")
	}
}

func TestNestedGroups(t *testing.T) {
	doc := `{"name":"c","conditions":[
		{"conditions":[
			{"field":{"name":"a","type":"TextField","display":"a"},
			 "operator":"is","value":{"type":"Value","value":"1","display":"1"}},
			{"coordinator":"or",
			 "field":{"name":"b","type":"TextField","display":"b"},
			 "operator":"is","value":{"type":"Value","value":"2","display":"2"}}]},
		{"coordinator":"and",
		 "field":{"name":"d","type":"TextField","display":"d"},
		 "operator":"is","value":{"type":"Value","value":"4","display":"4"}}]}`
	table := compileOne(t, "c", doc)

	// (a or b) and d
	if !table.Evaluate("c", map[string]any{"a": "x", "b": "2", "d": "4"}) {
		t.Error("b and d should satisfy the condition")
	}
	if table.Evaluate("c", map[string]any{"a": "1", "b": "2", "d": "x"}) {
		t.Error("the group alone should not satisfy the condition")
	}
}

func TestCompileRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty group", `{"name":"c","conditions":[]}`},
		{"missing coordinator", `{"name":"c","conditions":[
			{"field":{"name":"a","type":"TextField","display":"a"},
			 "operator":"is","value":{"type":"Value","value":"1","display":"1"}},
			{"field":{"name":"b","type":"TextField","display":"b"},
			 "operator":"is","value":{"type":"Value","value":"2","display":"2"}}]}`},
		{"unknown value type", `{"name":"c","conditions":[
			{"field":{"name":"a","type":"TextField","display":"a"},
			 "operator":"is","value":{"type":"Wat","value":"1"}}]}`},
		{"missing operator", `{"name":"c","conditions":[
			{"field":{"name":"a","type":"TextField","display":"a"},
			 "value":{"type":"Value","value":"1","display":"1"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]form.ConditionDef{{Name: "c", Value: json.RawMessage(tt.doc)}})
			if err == nil {
				t.Error("Compile() should fail")
			}
		})
	}
}
