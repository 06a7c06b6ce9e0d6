package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/upload"
)

// ErrNoSubmitter reports a summary POST on a runner configured without a
// submission service. The session is left untouched.
var ErrNoSubmitter = errors.New("no submission service configured")

// summaryPage is the check-your-answers page: it re-validates the whole
// relevant form, renders every answer grouped by section, and on POST
// drives submission.
type summaryPage struct {
	basePage
}

func newSummaryPage(def form.PageDef, collection *component.Collection) Page {
	return &summaryPage{newBasePage(def, collection, "summary")}
}

// SummaryRow is one check-answers entry.
type SummaryRow struct {
	Key      string       `json:"key"`
	Value    string       `json:"value"`
	Href     string       `json:"href"`
	SubItems [][]SummaryRow `json:"subItems,omitempty"`
}

// SummarySection groups rows under a section title. Unsectioned rows
// come first under an empty title.
type SummarySection struct {
	Title string       `json:"title"`
	Rows  []SummaryRow `json:"rows"`
}

func (p *summaryPage) HandleGet(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	fc := m.NewContext(ContextInput{CurrentPath: p.def.Path, State: state})
	model := p.summaryModel(m, fc, svc)
	return render(p.view, model), nil
}

func (p *summaryPage) HandlePost(ctx context.Context, m *Model, req *Request, svc Services) (*Response, error) {
	state, err := svc.Store.GetState(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	fc := m.NewContext(ContextInput{CurrentPath: p.def.Path, State: state})
	if len(fc.Errors) > 0 {
		// Stale answers upstream; the user has to fix them first
		return render(p.view, p.summaryModel(m, fc, svc)), nil
	}

	if err := p.submit(ctx, m, req, svc, fc); err != nil {
		return nil, err
	}

	// Only a successful submission may clear the session
	if err := svc.Store.ClearState(ctx, req.Key); err != nil {
		return nil, fmt.Errorf("failed to clear session state: %w", err)
	}
	if err := svc.Store.SetConfirmationState(ctx, req.Key, ports.ConfirmationState{Confirmed: true}); err != nil {
		return nil, fmt.Errorf("failed to record confirmation: %w", err)
	}
	return redirect(m.StatusPath()), nil
}

func (p *summaryPage) submit(ctx context.Context, m *Model, req *Request, svc Services, fc *FormContext) error {
	if svc.Submitter == nil {
		return ErrNoSubmitter
	}
	retrievalKey := m.Definition().OutputEmail

	if fileIDs := collectFileIDs(fc); len(fileIDs) > 0 && svc.Uploader != nil {
		if err := svc.Uploader.ExtendTTL(ctx, fileIDs, retrievalKey); err != nil {
			return fmt.Errorf("failed to extend file retention: %w", err)
		}
	}

	main, repeaters, err := submissionAnswers(m, fc, svc.DownloadURL)
	if err != nil {
		return err
	}

	result, err := svc.Submitter.Submit(ctx, ports.SubmissionRequest{
		SessionID:    req.Key.SessionID,
		RetrievalKey: retrievalKey,
		Main:         main,
		Repeaters:    repeaters,
	})
	if err != nil {
		return fmt.Errorf("failed to submit form: %w", err)
	}

	notification := ports.Notification{
		TemplateID:   svc.Notify.TemplateID,
		EmailAddress: retrievalKey,
		Personalisation: ports.Personalisation{
			Subject: "Form submission: " + m.Name(),
			Body:    emailBody(m, fc, result, svc.DownloadURL),
		},
	}
	if err := svc.Submitter.SendNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// submissionAnswers builds the machine-formatted payload: main rows per
// answered field, repeaters as one row per repeat page whose value is
// the items serialised to JSON.
func submissionAnswers(m *Model, fc *FormContext, downloadURL string) (main, repeaters []ports.SubmissionAnswer, err error) {
	opts := component.AnswerOptions{Format: component.FormatData, DownloadURL: downloadURL}

	for _, page := range fc.RelevantPages {
		if rp, ok := page.(*repeatPage); ok {
			items := rp.Items(fc.RelevantState)
			rows := make([]map[string]string, 0, len(items))
			for _, item := range items {
				row := make(map[string]string, len(rp.Collection().Fields()))
				for _, field := range rp.Collection().Fields() {
					row[field.Name()] = component.GetAnswer(field, item, opts)
				}
				rows = append(rows, row)
			}
			value, jsonErr := json.Marshal(rows)
			if jsonErr != nil {
				return nil, nil, fmt.Errorf("failed to encode repeater %q: %w", rp.repeat.Options.Name, jsonErr)
			}
			repeaters = append(repeaters, ports.SubmissionAnswer{
				Name:  rp.repeat.Options.Name,
				Title: rp.itemTitle(),
				Value: string(value),
			})
			continue
		}

		for _, field := range page.Collection().Fields() {
			main = append(main, ports.SubmissionAnswer{
				Name:  field.Name(),
				Title: field.Title(),
				Value: component.GetAnswer(field, fc.RelevantState, opts),
			})
		}
	}
	return main, repeaters, nil
}

// collectFileIDs gathers every accepted file id in the relevant state.
func collectFileIDs(fc *FormContext) []string {
	var ids []string
	for _, page := range fc.RelevantPages {
		for _, field := range page.Collection().Fields() {
			fu, ok := field.(*component.FileUploadField)
			if !ok {
				continue
			}
			for _, entry := range fu.Files(fc.RelevantState) {
				if item, ok := entry.(map[string]any); ok {
					if id := upload.ItemFileID(item); id != "" {
						ids = append(ids, id)
					}
				}
			}
		}
	}
	return ids
}

// emailBody renders the submission email Markdown: every answer in the
// escaped email format, then download links for the filed CSVs.
func emailBody(m *Model, fc *FormContext, result *ports.SubmissionResult, downloadURL string) string {
	var b strings.Builder
	opts := component.AnswerOptions{Format: component.FormatEmail, DownloadURL: downloadURL}

	fmt.Fprintf(&b, "^ For security reasons, the links in this email expire at %s\n\n",
		time.Now().AddDate(0, 0, 30).Format("2 January 2006"))
	fmt.Fprintf(&b, "# %s\n\n", component.EscapeMarkdown(m.Name()))

	for _, page := range fc.RelevantPages {
		if rp, ok := page.(*repeatPage); ok {
			items := rp.Items(fc.RelevantState)
			fmt.Fprintf(&b, "## %s\n\n%d added\n\n", component.EscapeMarkdown(rp.itemTitle()), len(items))
			for i, item := range items {
				fmt.Fprintf(&b, "### %s %d\n\n", component.EscapeMarkdown(rp.itemTitle()), i+1)
				for _, field := range rp.Collection().Fields() {
					writeEmailAnswer(&b, field, item, opts)
				}
			}
			continue
		}
		for _, field := range page.Collection().Fields() {
			writeEmailAnswer(&b, field, fc.RelevantState, opts)
		}
	}

	if result != nil {
		if result.Files.Main != "" {
			fmt.Fprintf(&b, "[Download main form (CSV)](%s/file-download/%s)\n\n", downloadURL, result.Files.Main)
		}
		for name, id := range result.Files.Repeaters {
			fmt.Fprintf(&b, "[Download %s (CSV)](%s/file-download/%s)\n\n", component.EscapeMarkdown(name), downloadURL, id)
		}
	}
	return b.String()
}

func writeEmailAnswer(b *strings.Builder, field component.Field, state map[string]any, opts component.AnswerOptions) {
	answer := component.GetAnswer(field, state, opts)
	if answer == "" {
		answer = "Not supplied"
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", component.EscapeMarkdown(field.Title()), answer)
}

// summaryModel builds the check-answers render model: rows grouped by
// section, repeat pages as a single "N added" row with sub-items.
func (p *summaryPage) summaryModel(m *Model, fc *FormContext, svc Services) map[string]any {
	sections := SummarySections(m, fc, svc.DownloadURL)

	model := map[string]any{
		"formName":    m.Name(),
		"path":        p.def.Path,
		"pageTitle":   p.def.Title,
		"sections":    sections,
		"declaration": m.Definition().Declaration,
	}
	if len(fc.Errors) > 0 {
		summary := make([]map[string]any, 0, len(fc.Errors))
		for _, e := range fc.Errors {
			summary = append(summary, map[string]any{"text": e.Text, "href": e.Href})
		}
		model["errors"] = summary
	}
	return model
}

// SummarySections groups every relevant page's answers by section, with
// unsectioned pages first.
func SummarySections(m *Model, fc *FormContext, downloadURL string) []SummarySection {
	opts := component.AnswerOptions{Format: component.FormatSummary, DownloadURL: downloadURL}

	order := []string{""}
	grouped := map[string][]SummaryRow{"": nil}

	for _, page := range fc.RelevantPages {
		if _, ok := page.(*summaryPage); ok {
			continue
		}
		if _, ok := page.(*statusPage); ok {
			continue
		}

		section := page.Def().Section
		if _, seen := grouped[section]; !seen {
			order = append(order, section)
			grouped[section] = nil
		}

		if rp, ok := page.(*repeatPage); ok {
			grouped[section] = append(grouped[section], repeatSummaryRow(rp, fc, opts))
			continue
		}

		for _, field := range page.Collection().Fields() {
			value := component.GetAnswer(field, fc.RelevantState, opts)
			if value == "" {
				value = "Not supplied"
			}
			grouped[section] = append(grouped[section], SummaryRow{
				Key:   field.Title(),
				Value: value,
				Href:  page.Path(),
			})
		}
	}

	sections := make([]SummarySection, 0, len(order))
	for _, name := range order {
		rows := grouped[name]
		if len(rows) == 0 {
			continue
		}
		title := ""
		if section := m.Definition().Section(name); section != nil && !section.Hidden {
			title = section.Title
		}
		sections = append(sections, SummarySection{Title: title, Rows: rows})
	}
	return sections
}

func repeatSummaryRow(rp *repeatPage, fc *FormContext, opts component.AnswerOptions) SummaryRow {
	items := rp.Items(fc.RelevantState)
	sub := make([][]SummaryRow, 0, len(items))
	for _, item := range items {
		rows := make([]SummaryRow, 0, len(rp.Collection().Fields()))
		for _, field := range rp.Collection().Fields() {
			value := component.GetAnswer(field, item, opts)
			if value == "" {
				value = "Not supplied"
			}
			rows = append(rows, SummaryRow{Key: field.Title(), Value: value, Href: rp.Path()})
		}
		sub = append(sub, rows)
	}
	return SummaryRow{
		Key:      rp.itemTitle(),
		Value:    fmt.Sprintf("%d added", len(items)),
		Href:     rp.Path(),
		SubItems: sub,
	}
}
