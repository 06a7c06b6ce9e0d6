package component

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/upload"
)

// FileUploadField stores the upload bookkeeping items produced by the
// uploader collaborator. Only fully scanned, accepted files validate on
// submit; cardinality is bounded by schema min/max or exact length.
type FileUploadField struct {
	fieldBase
	spec Spec
}

func NewFileUploadField(def form.ComponentDef, _ Props) (Component, error) {
	options, spec, err := decodeOptions(def)
	if err != nil {
		return nil, err
	}
	field := schema.Array().Label(lowerTitle(def)).Single().Required().
		ObjectItems(upload.FormItemSchema())
	if !options.IsRequired() {
		field.Optional()
	}
	if spec.Length != nil {
		field.Length(*spec.Length)
	} else {
		if spec.Max != nil {
			field.Max(*spec.Max)
		}
		if spec.Min != nil {
			field.Min(*spec.Min)
		}
	}
	applyMessages(field, options)
	f := &FileUploadField{spec: spec}
	f.fieldBase = newFieldBase(def, options, field, IsUploadState)
	f.stateField.Default(nil)
	return f, nil
}

// Spec returns the cardinality bounds declared on the field.
func (f *FileUploadField) Spec() Spec {
	return f.spec
}

// Files returns the persisted upload items, or nil.
func (f *FileUploadField) Files(state map[string]any) []any {
	files, _ := f.FormValueFromState(state).([]any)
	return files
}

func (f *FileUploadField) DisplayString(state map[string]any) string {
	files := f.Files(state)
	if len(files) == 0 {
		return ""
	}
	unit := "files"
	if len(files) == 1 {
		unit = "file"
	}
	return fmt.Sprintf("Uploaded %d %s", len(files), unit)
}

// ContextValue yields the scanned file ids.
func (f *FileUploadField) ContextValue(state map[string]any) any {
	files := f.Files(state)
	if files == nil {
		return nil
	}
	ids := make([]any, 0, len(files))
	for _, item := range files {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ids = append(ids, upload.ItemFileID(m))
	}
	return ids
}
