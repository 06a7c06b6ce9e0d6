package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/arbor/pkg/engine"
)

var previewCmd = &cobra.Command{
	Use:   "preview <definition.json>",
	Short: "Preview a form's page graph in the terminal",
	Long:  `Compiles a form definition and prints its page graph as Markdown: pages in walk order, their fields, and the conditions gating each branch.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		if err := runPreview(args[0], plain); err != nil {
			fmt.Printf("Preview failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().Bool("plain", false, "Print raw Markdown without terminal styling")
}

func runPreview(path string, plain bool) error {
	model, err := loadModel(path)
	if err != nil {
		return err
	}

	markdown := previewMarkdown(model)

	// Styled output only makes sense on a real terminal
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(markdown)
		return nil
	}

	printBanner()
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		fmt.Print(markdown)
		return nil
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		fmt.Print(markdown)
		return nil
	}
	fmt.Print(out)
	return nil
}

func printBanner() {
	p := termenv.ColorProfile()
	fmt.Println(termenv.String("  arbor ").Foreground(p.Color("#34d399")).Bold().String() +
		termenv.String("form preview").Foreground(p.Color("#818cf8")).String())
	fmt.Println()
}

func previewMarkdown(model *engine.Model) string {
	var b strings.Builder
	def := model.Definition()

	fmt.Fprintf(&b, "# %s\n\n", def.Name)
	fmt.Fprintf(&b, "Engine %s, %d pages, %d conditions, %d lists\n\n",
		def.Engine, len(model.Pages()), len(def.Conditions), len(def.Lists))

	for _, page := range model.Pages() {
		fmt.Fprintf(&b, "## %s `%s`\n\n", page.Title(), page.Path())
		if pd := page.Def(); pd.Condition != "" {
			fmt.Fprintf(&b, "Shown when condition `%s` holds.\n\n", pd.Condition)
		}
		for _, field := range page.Collection().Fields() {
			fmt.Fprintf(&b, "- **%s** (%s)\n", field.Title(), field.Type())
		}
		if len(page.Collection().Fields()) > 0 {
			b.WriteString("\n")
		}
		for _, edge := range page.Def().Next {
			if edge.Condition != "" {
				fmt.Fprintf(&b, "- next: `%s` when `%s`\n", edge.Path, edge.Condition)
			} else {
				fmt.Fprintf(&b, "- next: `%s`\n", edge.Path)
			}
		}
		if len(page.Def().Next) > 0 {
			b.WriteString("\n")
		}
	}

	if len(def.Conditions) > 0 {
		b.WriteString("## Conditions\n\n")
		for _, cond := range def.Conditions {
			display := cond.DisplayName
			if display == "" {
				display = cond.Name
			}
			fmt.Fprintf(&b, "- `%s`: %s\n", cond.Name, display)
		}
		b.WriteString("\n")
	}
	return b.String()
}
