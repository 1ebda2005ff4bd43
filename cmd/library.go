package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcanaland/autoanki/internal/anki"
	"github.com/arcanaland/autoanki/internal/config"
)

// libraryCmd represents the library command group
var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the library of generated packages",
	Long: `Commands for managing the package library, a directory under
XDG_DATA_HOME where generated Anki packages can be collected.`,
}

// libraryListCmd represents the library ls command
var libraryListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the packages in your library",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		libraryPath := config.GetLibraryPath()

		// Check if the library exists
		if _, err := os.Stat(libraryPath); os.IsNotExist(err) {
			fmt.Fprintf(out, "Library at %s does not exist.\n", libraryPath)
			fmt.Fprintln(out, "Run 'autoanki library init' to create it.")
			return nil
		}

		libraryPath, err := filepath.EvalSymlinks(libraryPath)
		if err != nil {
			return fmt.Errorf("error resolving symbolic link: %w", err)
		}

		entries, err := os.ReadDir(libraryPath)
		if err != nil {
			return fmt.Errorf("error reading library: %w", err)
		}

		found := 0
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".apkg" {
				continue
			}

			contents, err := anki.ReadPackage(filepath.Join(libraryPath, entry.Name()))
			if err != nil {
				// Not a readable package, skip
				log.Warn("skipping unreadable package", "name", entry.Name(), "error", err)
				continue
			}
			found++

			var names []string
			for _, d := range contents.Decks {
				names = append(names, d.Name)
			}
			fmt.Fprintf(out, "  %s (%s) %d notes\n", entry.Name(), strings.Join(names, ", "), len(contents.Notes))
		}

		if found == 0 {
			fmt.Fprintln(out, "No packages found in your library.")
			fmt.Fprintln(out, "You can add packages by writing them to:", libraryPath)
		}
		return nil
	},
}

// libraryInitCmd represents the library init command
var libraryInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the library and the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		libraryPath := config.GetLibraryPath()

		// Create the library directory if it doesn't exist
		if err := os.MkdirAll(libraryPath, 0755); err != nil {
			return fmt.Errorf("error creating library: %w", err)
		}

		fmt.Fprintln(out, "Library initialized at:", libraryPath)
		fmt.Fprintln(out, "Generated packages written to this directory are listed by 'autoanki library ls'.")

		if _, err := config.InitConfig(); err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		fmt.Fprintln(out, "Config file initialized at:", config.GetConfigFilePath())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryInitCmd)
}
