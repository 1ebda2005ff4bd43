package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arcanaland/autoanki/internal/builder"
	"github.com/arcanaland/autoanki/internal/card"
	"github.com/arcanaland/autoanki/internal/config"
	"github.com/arcanaland/autoanki/internal/deck"
	"github.com/arcanaland/autoanki/internal/logger"
)

var (
	cfg *config.Config
	log *logger.Logger

	logLevel  string
	logFormat string
)

var errConversionFailed = errors.New("conversion failed")

// RootCmd converts a flashcard JSON file into an Anki package when called
// without a subcommand.
var RootCmd = &cobra.Command{
	Use:   "autoanki <input_json_path> <output_package_path> [media_folder]",
	Short: "Convert JSON flashcards into an Anki package",
	Long: `autoanki converts a JSON description of flashcards (basic question/answer
and cloze-deletion cards, with optional tags and image references) into an
Anki package (.apkg) that can be imported into Anki.

The media folder defaults to the directory of the input file. When the output
path is a directory, the package file name is derived from the deck name.

The result is printed to stdout as JSON:
  {"success": true, "stats": {"cloze": 1, "standard": 2, "error": 0}, "path": "..."}

Examples:
  autoanki cards.json deck.apkg
  autoanki cards.json out/ ./images --tag "Biology 101" --stable-id`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := convertOptions{Input: args[0], Output: args[1]}
		if len(args) == 3 {
			opts.MediaFolder = args[2]
		}

		opts.DeckName, _ = cmd.Flags().GetString("deck-name")
		if opts.DeckName == "" {
			opts.DeckName = cfg.DeckName
		}
		opts.StableID, _ = cmd.Flags().GetBool("stable-id")
		opts.StableID = opts.StableID || cfg.StableDeckID

		tags, _ := cmd.Flags().GetStringArray("tag")
		for _, t := range tags {
			if tag := card.PageTag(t); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}

		return convert(opts, log, cmd.OutOrStdout())
	},
}

func init() {
	// assigned here rather than in the literal: setup refers to RootCmd
	RootCmd.PersistentPreRunE = setup
	RootCmd.SilenceErrors = true

	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (auto, console, json); overrides the config file")

	RootCmd.Flags().Bool("stable-id", false, "derive a missing deckId from the deck name instead of picking a random one")
	RootCmd.Flags().StringArray("tag", nil, "extra tag added to every note (normalized, may be repeated)")
	RootCmd.Flags().String("deck-name", "", "deck name used when the input has no deckName")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// setup loads the config file and builds the logger for every command. The
// convert command reports a setup failure as a result document like any
// other fatal error.
func setup(cmd *cobra.Command, args []string) error {
	// arguments are valid by now; later failures are not usage errors
	cmd.SilenceUsage = true

	err := loadEnvironment(cmd)
	if err == nil || cmd != RootCmd {
		return err
	}
	if werr := writeResult(cmd.OutOrStdout(), builder.Failure(err)); !errors.Is(werr, errConversionFailed) {
		return werr
	}
	return fmt.Errorf("%w: %w", errConversionFailed, err)
}

func loadEnvironment(cmd *cobra.Command) error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}

	level, format := cfg.LogLevel, cfg.LogFormat
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}

	log, err = logger.NewWithWriter(level, format, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	return nil
}

type convertOptions struct {
	Input       string
	Output      string
	MediaFolder string
	DeckName    string
	StableID    bool
	Tags        []string
}

// convert runs one conversion and writes the result JSON to out. A failed
// conversion returns errConversionFailed after the result is written.
func convert(opts convertOptions, log *logger.Logger, out io.Writer) error {
	defer log.Sync()

	spec, err := deck.Load(opts.Input)
	if err != nil {
		log.Error("error loading input file", "path", opts.Input, "error", err)
		return writeResult(out, builder.Failure(err))
	}

	media := opts.MediaFolder
	if media == "" {
		media = filepath.Dir(opts.Input)
	}

	res := builder.Build(spec, builder.Options{
		MediaFolder: media,
		OutputPath:  opts.Output,
		DeckName:    opts.DeckName,
		StableID:    opts.StableID,
		ExtraTags:   opts.Tags,
		Logger:      log,
	})
	return writeResult(out, res)
}

func writeResult(out io.Writer, res builder.Result) error {
	if err := json.NewEncoder(out).Encode(res); err != nil {
		return fmt.Errorf("error writing result: %w", err)
	}
	if !res.Success {
		return errConversionFailed
	}
	return nil
}
