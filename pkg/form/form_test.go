package form

import (
	"errors"
	"reflect"
	"testing"
)

const minimalDefinition = `{
	"name": "Licence application",
	"pages": [
		{
			"path": "/full-name",
			"title": "What's your name?",
			"next": [{"path": "/summary"}],
			"components": [
				{"type": "TextField", "name": "fullName", "title": "Your full name"}
			]
		},
		{
			"path": "/summary",
			"title": "Summary",
			"controller": "SummaryPageController",
			"components": []
		}
	],
	"conditions": [],
	"lists": [],
	"sections": []
}`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(minimalDefinition))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.Engine != EngineV1 {
		t.Errorf("default engine = %q, want V1", def.Engine)
	}
	if def.List(YesNoListName) == nil {
		t.Error("built-in __yesNo list not injected")
	}
	if page := def.Page("/full-name"); page == nil || page.Components[0].Name != "fullName" {
		t.Errorf("page lookup failed: %+v", page)
	}
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"name": `},
		{"no pages", `{"name": "x", "pages": []}`},
		{"duplicate path", `{"name": "x", "pages": [
			{"path": "/a", "title": "A", "components": []},
			{"path": "/a", "title": "A again", "components": []}
		]}`},
		{"unknown condition", `{"name": "x", "pages": [
			{"path": "/a", "title": "A", "condition": "nope", "components": []}
		]}`},
		{"unknown list", `{"name": "x", "pages": [
			{"path": "/a", "title": "A", "components": [
				{"type": "RadiosField", "name": "r", "title": "R", "list": "missing"}
			]}
		]}`},
		{"repeat without name", `{"name": "x", "pages": [
			{"path": "/a", "title": "A", "components": [],
			 "repeat": {"options": {"title": "Pizza"}, "schema": {"min": 1, "max": 3}}}
		]}`},
		{"repeat bad bounds", `{"name": "x", "pages": [
			{"path": "/a", "title": "A", "components": [],
			 "repeat": {"options": {"name": "pizza", "title": "Pizza"}, "schema": {"min": 3, "max": 1}}}
		]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Parse() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestParseToleratesStaleNextLinks(t *testing.T) {
	// Edges to removed pages survive parsing; the model drops them when
	// it builds the graph
	_, err := Parse([]byte(`{"name": "x", "pages": [
		{"path": "/a", "title": "A", "next": [{"path": "/missing"}], "components": []}
	]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
}

func TestStateMerge(t *testing.T) {
	base := State{
		"fullName": "Enid",
		"upload": map[string]any{
			"files":  []any{"a"},
			"upload": map[string]any{"uploadId": "1"},
		},
		"toppings": []any{"ham"},
	}

	merged := base.Merge(map[string]any{
		"upload": map[string]any{
			"upload": map[string]any{"uploadId": "2"},
		},
		"toppings": []any{"cheese", "pineapple"},
	})

	// nested maps merge key by key
	upload := merged["upload"].(map[string]any)
	if !reflect.DeepEqual(upload["files"], []any{"a"}) {
		t.Errorf("files = %v, want preserved", upload["files"])
	}
	if upload["upload"].(map[string]any)["uploadId"] != "2" {
		t.Error("nested upload map not overwritten")
	}

	// arrays overwrite wholesale
	if !reflect.DeepEqual(merged["toppings"], []any{"cheese", "pineapple"}) {
		t.Errorf("toppings = %v", merged["toppings"])
	}

	// inputs untouched
	if base["upload"].(map[string]any)["upload"].(map[string]any)["uploadId"] != "1" {
		t.Error("Merge mutated the base state")
	}
}
