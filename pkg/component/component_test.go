package component

import (
	"reflect"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

func testLists() *form.Definition {
	def, err := form.Parse([]byte(`{
		"name": "Test",
		"pages": [{"path": "/p", "title": "P", "components": []}],
		"lists": [
			{"name": "toppings", "type": "string", "items": [
				{"text": "Cheese", "value": "cheese"},
				{"text": "Ham", "value": "ham"},
				{"text": "Pineapple", "value": "pineapple"}
			]},
			{"name": "sizes", "type": "number", "items": [
				{"text": "Small", "value": 9},
				{"text": "Large", "value": 12}
			]}
		]
	}`))
	if err != nil {
		panic(err)
	}
	return def
}

func mustField(t *testing.T, def form.ComponentDef) Field {
	t.Helper()
	comp, err := New(def, Props{Lists: testLists()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	field, ok := comp.(Field)
	if !ok {
		t.Fatalf("component %q is not a field", def.Type)
	}
	return field
}

func TestTextFieldRoundTrip(t *testing.T) {
	field := mustField(t, form.ComponentDef{Type: "TextField", Name: "fullName", Title: "Your full name"})

	state := map[string]any{"fullName": "Enid Blyton"}
	payload := field.FormDataFromState(state)
	if !reflect.DeepEqual(field.StateFromValidForm(payload), state) {
		t.Errorf("round trip lost data: %v", field.StateFromValidForm(payload))
	}

	// unanswered optional states map to explicit null
	if got := field.StateFromValidForm(map[string]any{}); got["fullName"] != nil {
		t.Errorf("missing answer should map to nil, got %v", got)
	}
}

func TestNumberFieldPrecision(t *testing.T) {
	field := mustField(t, form.ComponentDef{
		Type: "NumberField", Name: "amount", Title: "The amount",
		Schema: map[string]any{"precision": 2, "min": 0, "max": 100},
	})

	t.Run("accepts two decimal places", func(t *testing.T) {
		value, errs := field.FormObject().Validate(map[string]any{"amount": "12.34"}, schema.Options{})
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if value["amount"] != 12.34 {
			t.Errorf("value = %v", value["amount"])
		}
	})

	t.Run("rejects three decimal places", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{"amount": "12.345"}, schema.Options{})
		if len(errs) != 1 || errs[0].Kind != schema.KindNumberPrecision {
			t.Fatalf("expected number.precision, got %v", errs)
		}
	})

	t.Run("rejects value above max", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{"amount": "150"}, schema.Options{})
		if len(errs) != 1 || errs[0].Kind != schema.KindNumberMax {
			t.Fatalf("expected number.max, got %v", errs)
		}
	})
}

func TestCheckboxesField(t *testing.T) {
	optional := false
	field := mustField(t, form.ComponentDef{
		Type: "CheckboxesField", Name: "toppings", Title: "Pizza toppings", List: "toppings",
		Options: map[string]any{"required": optional},
	})

	t.Run("context value defaults to empty array", func(t *testing.T) {
		got := field.ContextValue(map[string]any{})
		values, ok := got.([]any)
		if !ok || len(values) != 0 {
			t.Errorf("ContextValue = %v, want []", got)
		}
	})

	t.Run("single value coerces to array", func(t *testing.T) {
		value, errs := field.FormObject().Validate(map[string]any{"toppings": "ham"}, schema.Options{})
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if !reflect.DeepEqual(value["toppings"], []any{"ham"}) {
			t.Errorf("value = %v", value["toppings"])
		}
	})

	t.Run("value outside list fails", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{"toppings": []any{"anchovies"}}, schema.Options{})
		if len(errs) == 0 {
			t.Fatal("expected an error")
		}
	})

	t.Run("stale values drop from display", func(t *testing.T) {
		state := map[string]any{"toppings": []any{"ham", "gone"}}
		if got := field.DisplayString(state); got != "Ham" {
			t.Errorf("DisplayString = %q", got)
		}
	})

	t.Run("selection order follows the list", func(t *testing.T) {
		state := map[string]any{"toppings": []any{"pineapple", "cheese"}}
		got := field.ContextValue(state)
		if !reflect.DeepEqual(got, []any{"cheese", "pineapple"}) {
			t.Errorf("ContextValue = %v", got)
		}
	})
}

func TestYesNoField(t *testing.T) {
	field := mustField(t, form.ComponentDef{Type: "YesNoField", Name: "hasLicence", Title: "Do you have a licence?"})

	if got := field.DisplayString(map[string]any{"hasLicence": true}); got != "Yes" {
		t.Errorf("DisplayString = %q, want Yes", got)
	}
	if got := field.DisplayString(map[string]any{"hasLicence": false}); got != "No" {
		t.Errorf("DisplayString = %q, want No", got)
	}

	_, errs := field.FormObject().Validate(map[string]any{"hasLicence": "true"}, schema.Options{})
	if len(errs) > 0 {
		t.Errorf("submitted string boolean should convert: %v", errs)
	}
}

func TestNumberListField(t *testing.T) {
	field := mustField(t, form.ComponentDef{Type: "RadiosField", Name: "size", Title: "Pizza size", List: "sizes"})

	value, errs := field.FormObject().Validate(map[string]any{"size": "12"}, schema.Options{})
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if value["size"] != float64(12) {
		t.Errorf("value = %v", value["size"])
	}
	if got := field.DisplayString(map[string]any{"size": float64(12)}); got != "Large" {
		t.Errorf("DisplayString = %q", got)
	}
}

func TestDatePartsField(t *testing.T) {
	field := mustField(t, form.ComponentDef{Type: "DatePartsField", Name: "dob", Title: "Date of birth"})
	dateField := field.(*DatePartsField)
	dateField.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	t.Run("valid date", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{
			"dob__day": "1", "dob__month": "1", "dob__year": "2024",
		}, schema.Options{})
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("impossible calendar date", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{
			"dob__day": "31", "dob__month": "2", "dob__year": "2024",
		}, schema.Options{})
		found := false
		for _, e := range errs {
			if e.Kind == schema.KindDateFormat {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected date.format, got %v", errs)
		}
	})

	t.Run("missing required date", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{}, schema.Options{})
		if len(errs) == 0 {
			t.Fatal("expected errors for empty payload")
		}
		// one error per field via the collection
		list := field.Collection().CollectionErrors(errs)
		if len(list) != 3 {
			t.Errorf("expected one error per part, got %v", list)
		}
	})

	t.Run("state round trip", func(t *testing.T) {
		state := map[string]any{"dob__day": float64(1), "dob__month": float64(6), "dob__year": float64(2024)}
		if got := field.DisplayString(state); got != "1 June 2024" {
			t.Errorf("DisplayString = %q", got)
		}
		if got := field.ContextValue(state); got != "2024-06-01" {
			t.Errorf("ContextValue = %v", got)
		}
	})
}

func TestDatePartsFieldMaxDaysInPast(t *testing.T) {
	field := mustField(t, form.ComponentDef{
		Type: "DatePartsField", Name: "issued", Title: "Date issued",
		Options: map[string]any{"maxDaysInPast": 30},
	})
	field.(*DatePartsField).now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	_, errs := field.FormObject().Validate(map[string]any{
		"issued__day": "1", "issued__month": "1", "issued__year": "2024",
	}, schema.Options{})
	found := false
	for _, e := range errs {
		if e.Kind == schema.KindDateMin {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected date.min, got %v", errs)
	}
}

func TestUkAddressField(t *testing.T) {
	field := mustField(t, form.ComponentDef{Type: "UkAddressField", Name: "address", Title: "Your address"})

	state := map[string]any{
		"address__addressLine1": "1 High Street",
		"address__town":         "Bristol",
		"address__postcode":     "BS1 2AB",
	}

	t.Run("display joins non-empty lines", func(t *testing.T) {
		if got := field.DisplayString(state); got != "1 High Street, Bristol, BS1 2AB" {
			t.Errorf("DisplayString = %q", got)
		}
	})

	t.Run("address line 2 stays optional", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{
			"address__addressLine1": "1 High Street",
			"address__town":         "Bristol",
			"address__postcode":     "BS1 2AB",
		}, schema.Options{})
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("postcode pattern", func(t *testing.T) {
		_, errs := field.FormObject().Validate(map[string]any{
			"address__addressLine1": "1 High Street",
			"address__town":         "Bristol",
			"address__postcode":     "not a postcode",
		}, schema.Options{})
		if len(errs) != 1 || errs[0].Kind != schema.KindStringPattern {
			t.Fatalf("expected string.pattern.base, got %v", errs)
		}
	})
}

func TestCollectionErrorTitles(t *testing.T) {
	collection, err := NewCollection([]form.ComponentDef{
		{Type: "TextField", Name: "fullName", Title: "Your full name"},
		{Type: "NumberField", Name: "age", Title: "Your age"},
	}, Props{Lists: testLists()}, nil)
	if err != nil {
		t.Fatalf("NewCollection() error = %v", err)
	}

	_, errs := collection.Validate(map[string]any{})
	if len(errs) != 2 {
		t.Fatalf("expected two errors, got %v", errs)
	}
	for _, e := range errs {
		if e.Title == "" {
			t.Errorf("error %q has no owning title", e.Name)
		}
	}
	if errs[0].Text != "Enter your full name" {
		t.Errorf("text = %q", errs[0].Text)
	}
}

func TestCollectionMaxWords(t *testing.T) {
	collection, err := NewCollection([]form.ComponentDef{
		{Type: "MultilineTextField", Name: "details", Title: "More details",
			Options: map[string]any{"maxWords": 3}},
	}, Props{Lists: testLists()}, nil)
	if err != nil {
		t.Fatalf("NewCollection() error = %v", err)
	}

	_, errs := collection.Validate(map[string]any{"details": "this has too many words"})
	if len(errs) != 1 || errs[0].Kind != schema.KindMaxWords {
		t.Fatalf("expected string.maxWords, got %v", errs)
	}
	if errs[0].Text != "more details must be 3 words or fewer" {
		t.Errorf("text = %q", errs[0].Text)
	}
}

func TestRegistryHoldsEveryVariant(t *testing.T) {
	// The map is filled in init so composite constructors can call New
	// from their own child collections.
	if len(registry) == 0 {
		t.Fatal("registry is empty")
	}
	for _, tag := range []string{"TextField", "DatePartsField", "UkAddressField", "FileUploadField", "Html"} {
		if _, ok := registry[tag]; !ok {
			t.Errorf("registry missing %q", tag)
		}
	}
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	_, err := New(form.ComponentDef{Type: "HologramField", Name: "x"}, Props{Lists: testLists()})
	if err == nil {
		t.Fatal("expected an error for unknown component type")
	}
}

func TestGuidanceComponentsAreNotFields(t *testing.T) {
	collection, err := NewCollection([]form.ComponentDef{
		{Type: "Html", Name: "info", Content: "<p>hello</p>"},
		{Type: "TextField", Name: "fullName", Title: "Your full name"},
		{Type: "Details", Name: "help", Title: "Help", Content: "More help"},
	}, Props{Lists: testLists()}, nil)
	if err != nil {
		t.Fatalf("NewCollection() error = %v", err)
	}
	if len(collection.Fields()) != 1 {
		t.Errorf("fields = %d, want 1", len(collection.Fields()))
	}
	if len(collection.Guidance()) != 2 {
		t.Errorf("guidance = %d, want 2", len(collection.Guidance()))
	}
	if !reflect.DeepEqual(collection.Keys(), []string{"fullName"}) {
		t.Errorf("keys = %v", collection.Keys())
	}
}
