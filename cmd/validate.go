package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/autoanki/internal/validator"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <input_json_path> [media_folder]",
	Short: "Check a flashcard JSON file without writing a package",
	Long: `Validate loads a flashcard JSON file and reports what a conversion would do:
records that would fail (errors), records and images that would be skipped or
changed (warnings), and the card statistics the conversion would produce.

The media folder defaults to the directory of the input file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deckPath := args[0]
		mediaFolder := ""
		if len(args) == 2 {
			mediaFolder = args[1]
		}

		// Check if path exists
		if _, err := os.Stat(deckPath); os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", deckPath)
		}

		v := validator.NewValidator(deckPath, mediaFolder)
		results, err := v.Validate()
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		log.Debug("validated input file", "path", deckPath, "errors", len(results.Errors), "warnings", len(results.Warnings))

		return printValidation(cmd, deckPath, results)
	},
}

func init() {
	RootCmd.AddCommand(validateCmd)
}

func printValidation(cmd *cobra.Command, deckPath string, results validator.ValidationResults) error {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)

	bold.Fprintln(out, "Validation Results:")
	fmt.Fprintln(out, "-------------------")

	s := results.Stats
	fmt.Fprintf(out, "Cards: %d cloze, %d standard, %d failing\n", s.Cloze, s.Standard, s.Error)
	fmt.Fprintf(out, "Media: %d file(s) would be packaged\n\n", results.Media)

	failed := len(results.Errors) > 0
	if !failed {
		color.New(color.FgGreen).Fprintf(out, "✅ '%s' is valid.\n", deckPath)
	} else {
		color.New(color.FgRed).Fprintf(out, "❌ '%s' has %d validation errors:\n", deckPath, len(results.Errors))
		for i, e := range results.Errors {
			fmt.Fprintf(out, "%d. %s\n", i+1, e)
		}
	}

	if len(results.Warnings) > 0 {
		color.New(color.FgYellow).Fprintln(out, "\nWarnings:")
		for i, warn := range results.Warnings {
			fmt.Fprintf(out, "%d. %s\n", i+1, warn)
		}
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}
