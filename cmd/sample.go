package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/autoanki/internal/conceptmap"
)

var sampleCmd = &cobra.Command{
	Use:   "sample [output.apkg]",
	Short: "Generate a sample cloze deck with concept maps and images",
	Long: `Sample writes a small cloze deck whose Extra fields hold formatted concept
maps, together with generated placeholder images. Import it into Anki to check
how cloze cards, concept maps and media render.

The output defaults to ` + conceptmap.SampleOutputPath + ` and the images are
written to ` + conceptmap.SampleMediaDir + `/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := conceptmap.SampleOptions{Logger: log}
		if len(args) == 1 {
			opts.OutputPath = args[0]
		}
		opts.MediaDir, _ = cmd.Flags().GetString("media-dir")

		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := conceptmap.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		opts.Format = format

		res, err := conceptmap.BuildSample(opts)
		if err != nil {
			return fmt.Errorf("error generating sample package: %w", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "Package generated: %s\n", res.Path)
		fmt.Fprintf(out, "%d notes, %d media files\n", res.Notes, len(res.Media))
		fmt.Fprintln(out, "Import this file into Anki to check the cloze cards with formatted concept maps and images")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().String("media-dir", conceptmap.SampleMediaDir, "Directory the sample images are written to")
	sampleCmd.Flags().String("format", string(conceptmap.SVG), "Image format of the sample images (svg or png)")
}
