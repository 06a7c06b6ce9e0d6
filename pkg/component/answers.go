package component

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/upload"
)

// AnswerFormat selects how a stored answer is rendered back out.
type AnswerFormat string

const (
	// FormatSummary renders for check-answers summary lists (HTML for
	// multi-line answers, plain text otherwise).
	FormatSummary AnswerFormat = "summary"
	// FormatEmail renders Markdown-escaped text for notification emails.
	FormatEmail AnswerFormat = "email"
	// FormatData renders the machine value used in submission payloads.
	FormatData AnswerFormat = "data"
)

// AnswerOptions configures answer rendering.
type AnswerOptions struct {
	Format AnswerFormat

	// DownloadURL prefixes file-download links in email answers.
	DownloadURL string
}

// listItems is satisfied by every list-backed field.
type listItems interface {
	Items() []form.ListItemDef
}

var summaryMarkdown = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// GetAnswer renders a field's stored answer in the requested format.
func GetAnswer(field Field, state map[string]any, opts AnswerOptions) string {
	switch opts.Format {
	case FormatEmail:
		return GetAnswerMarkdown(field, state, AnswerOptions{Format: FormatEmail, DownloadURL: opts.DownloadURL})
	case FormatData:
		context := field.ContextValue(state)
		if context == nil {
			return ""
		}
		if values, ok := context.([]any); ok {
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = fmt.Sprintf("%v", v)
			}
			return strings.Join(parts, ",")
		}
		return fmt.Sprintf("%v", context)
	}

	// Multi-line answers render as HTML for the summary list
	switch field.(type) {
	case *MultilineTextField, *UkAddressField:
		return markdownToHTML(GetAnswerMarkdown(field, state, AnswerOptions{Format: FormatSummary}))
	}
	if _, ok := field.(listItems); ok {
		return markdownToHTML(GetAnswerMarkdown(field, state, AnswerOptions{Format: FormatSummary}))
	}
	return field.DisplayString(state)
}

// GetAnswerMarkdown renders a field's stored answer as Markdown.
func GetAnswerMarkdown(field Field, state map[string]any, opts AnswerOptions) string {
	answer := field.DisplayString(state)

	switch f := field.(type) {
	case *FileUploadField:
		files := f.Files(state)
		if len(files) == 0 {
			return EscapeMarkdown(answer) + "\n"
		}
		out := EscapeMarkdown(answer) + ":\n\n"
		for _, item := range files {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			filename := EscapeMarkdown(upload.ItemFilename(m))
			out += fmt.Sprintf("* [%s](%s/file-download/%s)\n", filename, opts.DownloadURL, upload.ItemFileID(m))
		}
		return out

	case *MultilineTextField:
		lines := strings.Split(strings.ReplaceAll(answer, "\r\n", "\n"), "\n")
		for i, line := range lines {
			lines[i] = EscapeMarkdown(line)
		}
		return strings.Join(lines, "\n") + "\n"

	case *UkAddressField:
		lines := f.addressLines(state)
		if lines == nil {
			return EscapeMarkdown(answer) + "\n"
		}
		for i, line := range lines {
			lines[i] = EscapeMarkdown(line)
		}
		return strings.Join(lines, "\n") + "\n"
	}

	if list, ok := field.(listItems); ok {
		return listAnswerMarkdown(field, list, state, opts)
	}
	return EscapeMarkdown(answer) + "\n"
}

// listAnswerMarkdown renders selected list items, one per line, with
// bullets for checkboxes and raw values appended for emails when the
// value differs from its label.
func listAnswerMarkdown(field Field, list listItems, state map[string]any, opts AnswerOptions) string {
	context := field.ContextValue(state)
	values, ok := context.([]any)
	if !ok {
		if context == nil {
			return EscapeMarkdown(field.DisplayString(state)) + "\n"
		}
		values = []any{context}
	}

	var selected []form.ListItemDef
	for _, item := range list.Items() {
		for _, v := range values {
			if valueEqual(item.Value, v) {
				selected = append(selected, item)
				break
			}
		}
	}
	if len(selected) == 0 {
		return EscapeMarkdown(field.DisplayString(state)) + "\n"
	}

	_, isCheckboxes := field.(*CheckboxesField)
	out := ""
	for _, item := range selected {
		line := EscapeMarkdown(item.Text)
		if isCheckboxes {
			line = "* " + line
		}
		raw := fmt.Sprintf("%v", item.Value)
		if opts.Format == FormatEmail && !strings.EqualFold(raw, item.Text) {
			line += " " + EscapeMarkdown("("+raw+")")
		}
		out += line + "\n"
	}
	return out
}

// EscapeMarkdown backslash-escapes Markdown punctuation so stored answers
// never format as markup.
func EscapeMarkdown(answer string) string {
	punctuation := "`'*_{}[]()#+-.!"
	var out strings.Builder
	for _, r := range answer {
		if strings.ContainsRune(punctuation, r) {
			out.WriteByte('\\')
		}
		out.WriteRune(r)
	}
	return out.String()
}

// markdownToHTML converts a Markdown answer to HTML suitable for a
// summary list cell: paragraphs lose their wrappers so single-line
// answers stay inline.
func markdownToHTML(markdown string) string {
	var buf bytes.Buffer
	if err := summaryMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return strings.TrimSpace(markdown)
	}
	out := strings.TrimSpace(buf.String())
	out = strings.ReplaceAll(out, "</p>\n<p>", "<br>")
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return strings.TrimSpace(out)
}

