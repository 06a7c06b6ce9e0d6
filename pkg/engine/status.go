package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/form"
)

// statusPage confirms a submission. It only renders after a summary
// POST set the confirmation flag; arriving any other way bounces the
// user back to the start.
type statusPage struct {
	basePage
}

func newStatusPage(def form.PageDef, collection *component.Collection) Page {
	return &statusPage{newBasePage(def, collection, "status")}
}

func (p *statusPage) HandleGet(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	confirmation, err := svc.Store.GetConfirmationState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmation state: %w", err)
	}
	if !confirmation.Confirmed {
		return redirect(m.StartPath()), nil
	}
	return render(p.view, map[string]any{
		"formName":  m.Name(),
		"path":      p.def.Path,
		"pageTitle": p.def.Title,
	}), nil
}

func (p *statusPage) HandlePost(context.Context, *Model, *Request, Services) (*Response, error) {
	return &Response{Status: http.StatusMethodNotAllowed}, nil
}
