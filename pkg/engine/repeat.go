package engine

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/schema"
)

// ListSummarySuffix is the sub-route rendering a repeat page's item
// list. The server maps /{path}/summary here via the request ItemID.
const ListSummarySuffix = "summary"

// repeatPage stores an array of item states under one session key. Each
// item carries a server-generated itemId; user-supplied ids never enter
// the state.
type repeatPage struct {
	basePage
	repeat      form.RepeatDef
	stateObject *schema.Object
}

func newRepeatPage(def form.PageDef, collection *component.Collection) (Page, error) {
	if def.Repeat == nil || def.Repeat.Options.Name == "" {
		return nil, fmt.Errorf("%w: repeat page %q has no repeat options", form.ErrInvalidDefinition, def.Path)
	}
	r := &repeatPage{
		basePage: newBasePage(def, collection, "repeat"),
		repeat:   *def.Repeat,
	}

	itemObject := schema.NewObject().
		Keys("itemId", schema.String().UUID().Required().Label("item ID")).
		Concat(collection.StateObject())

	items := schema.Array().ObjectItems(itemObject).Label(r.itemTitle())
	if r.repeat.Schema.Min > 0 {
		items = items.Required().Min(float64(r.repeat.Schema.Min))
	} else {
		items = items.Optional().AllowNull()
	}
	if r.repeat.Schema.Max > 0 {
		items = items.Max(float64(r.repeat.Schema.Max))
	}
	r.stateObject = schema.NewObject().Keys(r.repeat.Options.Name, items)

	return r, nil
}

func (p *repeatPage) itemTitle() string {
	if p.repeat.Options.Title != "" {
		return p.repeat.Options.Title
	}
	return p.def.Title
}

// Keys returns the single array-valued session key.
func (p *repeatPage) Keys() []string { return []string{p.repeat.Options.Name} }

func (p *repeatPage) StateObject() *schema.Object { return p.stateObject }

// ContextValues is empty for repeat pages: item arrays never feed the
// flattened evaluation state.
func (p *repeatPage) ContextValues(map[string]any) map[string]any {
	return map[string]any{}
}

// Items returns the stored item states in insertion order.
func (p *repeatPage) Items(state map[string]any) []map[string]any {
	raw, _ := state[p.repeat.Options.Name].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items
}

func (p *repeatPage) item(state map[string]any, itemID string) (map[string]any, int) {
	for i, item := range p.Items(state) {
		if id, _ := item["itemId"].(string); id == itemID {
			return item, i
		}
	}
	return nil, -1
}

func (p *repeatPage) itemPath(itemID string) string {
	return p.def.Path + "/" + itemID
}

func (p *repeatPage) summaryPath() string {
	return p.def.Path + "/" + ListSummarySuffix
}

func (p *repeatPage) HandleGet(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	switch req.ItemID {
	case "":
		// No item selected: start a fresh item unless some already exist
		if len(p.Items(state)) == 0 {
			return redirect(p.itemPath(uuid.NewString())), nil
		}
		return redirect(p.summaryPath()), nil
	case ListSummarySuffix:
		return render("repeat-summary", p.listSummaryModel(m, state, nil)), nil
	}

	payload := map[string]any{}
	caption := p.newItemCaption(state)
	if item, index := p.item(state, req.ItemID); item != nil {
		payload = p.collection.FormDataFromState(item)
		caption = fmt.Sprintf("%s %d", p.itemTitle(), index+1)
	}

	model := p.viewModel(m, payload, nil)
	model["itemId"] = req.ItemID
	model["caption"] = caption
	return render(p.view, model), nil
}

func (p *repeatPage) HandlePost(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	if req.ItemID == ListSummarySuffix {
		return p.handleListSummaryPost(ctx, m, req, svc, state)
	}
	if req.Params.Action == ActionDelete {
		return p.handleDelete(ctx, req, svc, state)
	}
	return p.handleItemPost(ctx, m, req, svc, state)
}

func (p *repeatPage) handleItemPost(ctx context.Context, m *Model, req *Request, svc Services, state form.State) (*Response, error) {
	if req.ItemID == "" {
		return &Response{Status: http.StatusNotFound}, nil
	}
	if _, err := uuid.Parse(req.ItemID); err != nil {
		return &Response{Status: http.StatusNotFound}, nil
	}

	value, errs := p.collection.Validate(req.Payload)
	if len(errs) > 0 {
		model := p.viewModel(m, req.Payload, errs)
		model["itemId"] = req.ItemID
		return render(p.view, model), nil
	}

	itemState := p.collection.StateFromValidForm(value)
	itemState["itemId"] = req.ItemID

	items := p.Items(state)
	updated := make([]any, 0, len(items)+1)
	replaced := false
	for _, item := range items {
		if id, _ := item["itemId"].(string); id == req.ItemID {
			updated = append(updated, itemState)
			replaced = true
			continue
		}
		updated = append(updated, item)
	}
	if !replaced {
		if max := p.maxItems(); len(items) >= max {
			return &Response{Status: http.StatusBadRequest}, nil
		}
		updated = append(updated, itemState)
	}

	merged := state.Merge(map[string]any{p.repeat.Options.Name: updated})
	if _, err := svc.Store.SetState(ctx, req.Key, merged); err != nil {
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}
	return redirect(p.summaryPath()), nil
}

func (p *repeatPage) handleListSummaryPost(ctx context.Context, m *Model, req *Request, svc Services, state form.State) (*Response, error) {
	items := p.Items(state)

	switch req.Params.Action {
	case ActionAddAnother:
		if max := p.maxItems(); len(items) >= max {
			text := fmt.Sprintf("You can only add up to %d %s%s", max, lowerFirst(p.itemTitle()), plural(max))
			return render("repeat-summary", p.listSummaryModel(m, state, &text)), nil
		}
		return redirect(p.itemPath(uuid.NewString())), nil

	default:
		if min := p.repeat.Schema.Min; len(items) < min {
			text := fmt.Sprintf("You must add at least %d %s%s", min, lowerFirst(p.itemTitle()), plural(min))
			return render("repeat-summary", p.listSummaryModel(m, state, &text)), nil
		}
		fc := m.NewContext(ContextInput{CurrentPath: p.def.Path, State: state})
		next, ok := m.NextPath(p, fc.EvaluationState)
		if !ok {
			next = m.StatusPath()
		}
		return redirect(next), nil
	}
}

func (p *repeatPage) handleDelete(ctx context.Context, req *Request, svc Services, state form.State) (*Response, error) {
	items := p.Items(state)
	item, index := p.item(state, req.ItemID)
	if item == nil {
		return &Response{Status: http.StatusNotFound}, nil
	}
	if len(items) <= 1 {
		// Removing the sole item would leave the page half-answered
		return &Response{Status: http.StatusNotFound}, nil
	}

	if !req.Params.Confirm {
		return render("repeat-confirm-delete", map[string]any{
			"pageTitle": fmt.Sprintf("Are you sure you want to remove %s %d?", lowerFirst(p.itemTitle()), index+1),
			"path":      p.def.Path,
			"itemId":    req.ItemID,
		}), nil
	}

	updated := make([]any, 0, len(items)-1)
	for _, entry := range items {
		if id, _ := entry["itemId"].(string); id != req.ItemID {
			updated = append(updated, entry)
		}
	}
	merged := state.Merge(map[string]any{p.repeat.Options.Name: updated})
	if _, err := svc.Store.SetState(ctx, req.Key, merged); err != nil {
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}
	return redirect(p.summaryPath()), nil
}

func (p *repeatPage) maxItems() int {
	if p.repeat.Schema.Max > 0 {
		return p.repeat.Schema.Max
	}
	return 25
}

func (p *repeatPage) newItemCaption(state map[string]any) string {
	return fmt.Sprintf("%s %d", p.itemTitle(), len(p.Items(state))+1)
}

// listSummaryModel renders one row per item, titled by the first field's
// display string.
func (p *repeatPage) listSummaryModel(m *Model, state form.State, pageError *string) map[string]any {
	items := p.Items(state)
	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		title := "Not supplied"
		if fields := p.collection.Fields(); len(fields) > 0 {
			if text := fields[0].DisplayString(item); text != "" {
				title = text
			}
		}
		rows = append(rows, map[string]any{
			"itemId":  item["itemId"],
			"ordinal": i + 1,
			"title":   title,
		})
	}

	model := map[string]any{
		"formName":  m.Name(),
		"path":      p.def.Path,
		"pageTitle": fmt.Sprintf("You have added %d %s%s", len(items), lowerFirst(p.itemTitle()), plural(len(items))),
		"items":     rows,
		"count":     len(items),
	}
	if pageError != nil {
		// Page-level error: no field anchor
		model["errors"] = []map[string]any{{"text": *pageError}}
	}
	return model
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToLower(string(r[0])) + string(r[1:])
}
