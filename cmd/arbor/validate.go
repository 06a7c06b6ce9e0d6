package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/pkg/engine"
	"github.com/aretw0/arbor/pkg/form"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition.json>",
	Short: "Check a form definition for consistency",
	Long:  `Parses a form definition, compiles its conditions and page graph, and reports structural problems: unknown lists, broken condition references, malformed page wiring.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Form definition is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read definition: %w", err)
	}

	def, err := form.Parse(data)
	if err != nil {
		return err
	}

	// Compiling the model surfaces the problems parsing cannot see:
	// unknown controllers, misplaced file upload fields, bad conditions
	if _, err := engine.NewModel(def); err != nil {
		return err
	}
	return nil
}
