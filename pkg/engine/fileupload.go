package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/upload"
)

// hardUploadCap bounds how many uploads a page may ever initiate,
// regardless of what the definition asks for.
const hardUploadCap = 25

// fileUploadPage delegates transfers to the uploader collaborator and
// reconciles its remote view with the session on every page load.
//
// Session bookkeeping lives under state["upload"][path] as
// {"files": [...], "upload": {uploadId, uploadUrl}}: files that passed
// the temp-item check, plus the one initiated-but-unconsumed slot.
type fileUploadPage struct {
	basePage
	field *component.FileUploadField
}

func newFileUploadPage(def form.PageDef, collection *component.Collection) (Page, error) {
	fields := collection.Fields()
	var fileField *component.FileUploadField
	for i, f := range fields {
		fu, ok := f.(*component.FileUploadField)
		if !ok {
			continue
		}
		if fileField != nil {
			return nil, fmt.Errorf("%w: page %q has more than one file upload field", form.ErrInvalidDefinition, def.Path)
		}
		if i != 0 {
			return nil, fmt.Errorf("%w: page %q must declare its file upload field first", form.ErrInvalidDefinition, def.Path)
		}
		fileField = fu
	}
	if fileField == nil {
		return nil, fmt.Errorf("%w: page %q has no file upload field", form.ErrInvalidDefinition, def.Path)
	}
	return &fileUploadPage{
		basePage: newBasePage(def, collection, "file-upload"),
		field:    fileField,
	}, nil
}

func (p *fileUploadPage) maxUploads() int {
	spec := p.field.Spec()
	if spec.Length != nil && *spec.Length < hardUploadCap {
		return *spec.Length
	}
	if spec.Max != nil && int(*spec.Max) < hardUploadCap {
		return int(*spec.Max)
	}
	return hardUploadCap
}

// uploadState reads this page's bookkeeping slice of the session.
func (p *fileUploadPage) uploadState(state form.State) (files []any, current map[string]any) {
	all, _ := state["upload"].(map[string]any)
	entry, _ := all[p.def.Path].(map[string]any)
	files, _ = entry["files"].([]any)
	current, _ = entry["upload"].(map[string]any)
	return files, current
}

func (p *fileUploadPage) uploadStateUpdate(files []any, current map[string]any) map[string]any {
	// The "upload" key is always written, nil when no slot is open, so a
	// consumed slot never survives the state merge
	entry := map[string]any{"files": files, "upload": current}
	return map[string]any{
		"upload": map[string]any{p.def.Path: entry},
	}
}

// refresh reconciles local file state with the uploader: consume a
// finished upload slot, open a new one if there is room, and re-check
// any files still pending a scan.
func (p *fileUploadPage) refresh(ctx context.Context, req *Request, svc Services, state form.State, retrievalKey string) (form.State, error) {
	files, current := p.uploadState(state)

	if current != nil {
		id := idOf(current)
		status, err := svc.Uploader.GetUploadStatus(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check upload %q: %w", id, err)
		}
		if status.UploadStatus != upload.UploadInitiated {
			// The slot was used; keep the file only if the report passes
			// the temp-item check (tampered or malformed reports do not)
			item := map[string]any{"uploadId": id, "status": status.ToState()}
			if _, errs := upload.TempItemSchema().Validate(item, schema.Options{}); len(errs) == 0 {
				files = append(files, item)
			}
			current = nil
		}
	}

	if current == nil && len(files) < p.maxUploads() {
		initiated, err := svc.Uploader.InitiateUpload(ctx, req.Path, retrievalKey, p.field.Options().Accept)
		if err != nil {
			return nil, fmt.Errorf("failed to initiate upload: %w", err)
		}
		current = map[string]any{
			"uploadId":  initiated.UploadID,
			"uploadUrl": initiated.UploadURL,
		}
	}

	p.refreshPending(ctx, svc, files)

	merged := state.Merge(p.uploadStateUpdate(files, current))
	// Mirror accepted files onto the field's own state key so schemas and
	// answers read them the normal way
	merged[p.field.Name()] = completedFiles(files)
	return merged, nil
}

// refreshPending re-checks files still awaiting a scan verdict. Lookups
// run in parallel; an individual failure leaves that file untouched for
// this round.
func (p *fileUploadPage) refreshPending(ctx context.Context, svc Services, files []any) {
	var wg sync.WaitGroup
	for _, entry := range files {
		item, ok := entry.(map[string]any)
		if !ok || upload.ItemFileStatus(item) != upload.FilePending {
			continue
		}
		wg.Add(1)
		go func(item map[string]any) {
			defer wg.Done()
			status, err := svc.Uploader.GetUploadStatus(ctx, idOf(item))
			if err != nil {
				svc.logger().Warn("upload status refresh failed", "uploadId", idOf(item), "err", err)
				return
			}
			item["status"] = status.ToState()
		}(item)
	}
	wg.Wait()
}

func idOf(item map[string]any) string {
	id, _ := item["uploadId"].(string)
	return id
}

// completedFiles keeps only fully scanned, accepted items.
func completedFiles(files []any) []any {
	kept := make([]any, 0, len(files))
	for _, entry := range files {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if upload.ItemFileStatus(item) == upload.FileComplete {
			kept = append(kept, item)
		}
	}
	return kept
}

func (p *fileUploadPage) HandleGet(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	refreshed, err := p.refresh(ctx, req, svc, state, m.Definition().OutputEmail)
	if err != nil {
		return nil, err
	}
	if _, err := svc.Store.SetState(ctx, req.Key, refreshed); err != nil {
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}
	return render(p.view, p.uploadViewModel(m, refreshed, nil)), nil
}

func (p *fileUploadPage) HandlePost(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	refreshed, err := p.refresh(ctx, req, svc, state, m.Definition().OutputEmail)
	if err != nil {
		return nil, err
	}

	// The file list is never client-supplied: the reconciled session copy
	// wins over anything in the POST body
	payload := p.collection.FormDataFromState(refreshed)
	for k, v := range req.Payload {
		if k != p.field.Name() {
			payload[k] = v
		}
	}

	value, errs := p.collection.Validate(payload)
	errs = append(errs, pendingFileErrors(p, refreshed)...)
	if len(errs) > 0 {
		if _, err := svc.Store.SetState(ctx, req.Key, refreshed); err != nil {
			return nil, fmt.Errorf("failed to save session state: %w", err)
		}
		return render(p.view, p.uploadViewModel(m, refreshed, errs)), nil
	}

	update := p.collection.StateFromValidForm(value)
	return saveAndRedirect(ctx, m, p, req, svc, refreshed, update)
}

// pendingFileErrors flags files the scanner has not finished with; the
// user must wait (or remove them) before continuing.
func pendingFileErrors(p *fileUploadPage, state form.State) []schema.Error {
	files, _ := p.uploadState(state)
	var errs []schema.Error
	for _, entry := range files {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if upload.ItemFileStatus(item) == upload.FilePending {
			e := schema.NewError(schema.KindOnly, p.field.Name(), "", nil)
			e.Text = "The selected file has not fully uploaded"
			errs = append(errs, e)
		}
	}
	return errs
}

func (p *fileUploadPage) uploadViewModel(m *Model, state form.State, errs []schema.Error) map[string]any {
	model := p.viewModel(m, p.collection.FormDataFromState(state), errs)

	files, current := p.uploadState(state)
	rows := make([]map[string]any, 0, len(files))
	for _, entry := range files {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		row := map[string]any{
			"uploadId": idOf(item),
			"filename": upload.ItemFilename(item),
			"status":   string(upload.ItemFileStatus(item)),
		}
		if upload.ItemFileStatus(item) == upload.FilePending {
			row["errorMessage"] = "The selected file has not fully uploaded"
		} else if file := upload.ItemFile(item); file != nil {
			if msg, _ := file["errorMessage"].(string); msg != "" {
				row["errorMessage"] = msg
			}
		}
		rows = append(rows, row)
	}
	model["files"] = rows
	if current != nil {
		model["uploadUrl"] = current["uploadUrl"]
	}
	return model
}
