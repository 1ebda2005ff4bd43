// Package builder turns a parsed deck file into an Anki package: one note per
// card record, media resolved against a folder, written in a single step.
package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arcanaland/autoanki/internal/anki"
	"github.com/arcanaland/autoanki/internal/card"
	"github.com/arcanaland/autoanki/internal/config"
	"github.com/arcanaland/autoanki/internal/deck"
	"github.com/arcanaland/autoanki/internal/logger"
)

// Stats counts processed records by outcome
type Stats struct {
	Cloze    int `json:"cloze"`
	Standard int `json:"standard"`
	Error    int `json:"error"`
}

// Total is the number of records seen
func (s Stats) Total() int {
	return s.Cloze + s.Standard + s.Error
}

// Result is printed as JSON by the CLI
type Result struct {
	Success bool   `json:"success"`
	Stats   *Stats `json:"stats,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failure wraps err into an unsuccessful result
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

type Options struct {
	// MediaFolder is searched for image basenames
	MediaFolder string
	// OutputPath is the package file to write. A directory (or a path ending
	// in a separator) gets a file name derived from the deck name.
	OutputPath string
	// DeckName is used when the deck file has no deckName
	DeckName string
	// StableID derives a missing deck id from the deck name instead of
	// picking a random one
	StableID bool
	// ExtraTags are appended to every note
	ExtraTags []string

	Logger *logger.Logger
	Now    func() time.Time
}

// Build converts spec into a package written to opts.OutputPath. Per-record
// failures are counted in Stats.Error; failures loading media or writing the
// package fail the whole result.
func Build(spec *deck.Spec, opts Options) Result {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fallbackName := opts.DeckName
	if fallbackName == "" {
		fallbackName = config.DefaultDeckName
	}

	name := spec.DeckName(fallbackName)
	d := anki.NewDeck(spec.ResolveID(name, opts.StableID), name)
	log = log.With("deck", name, "deck_id", d.ID)

	var stats Stats
	for i, raw := range spec.Cards {
		kind, err := addCard(d, raw, opts.ExtraTags)
		if err != nil {
			log.Error("error processing card", "index", i, "error", err)
			stats.Error++
			continue
		}
		switch kind {
		case card.Cloze:
			stats.Cloze++
		default:
			stats.Standard++
		}
	}

	pkg := anki.NewPackage(d)
	pkg.Now = now
	pkg.MediaFiles = ResolveMedia(spec.Images, opts.MediaFolder, log)

	outPath, err := outputPath(opts.OutputPath, name, now())
	if err != nil {
		log.Error("error creating Anki package", "error", err)
		return Failure(err)
	}

	if err := pkg.WriteToFile(outPath); err != nil {
		log.Error("error creating Anki package", "error", err)
		return Failure(err)
	}

	log.Info("successfully created Anki package", "path", outPath)
	log.Info("card statistics", "cloze", stats.Cloze, "standard", stats.Standard, "error", stats.Error)

	return Result{Success: true, Stats: &stats, Path: outPath}
}

func addCard(d *anki.Deck, raw []byte, extraTags []string) (card.Type, error) {
	rec, err := card.Parse(raw)
	if err != nil {
		return "", err
	}

	tags := append([]string{}, rec.Tags...)
	tags = append(tags, extraTags...)

	model, fields := anki.BasicModel, rec.StandardFields()
	if rec.Kind() == card.Cloze {
		model, fields = anki.ClozeModel, rec.ClozeFields()
	}

	note, err := anki.NewNote(model, fields, tags)
	if err != nil {
		return "", err
	}
	d.AddNote(note)
	return rec.Kind(), nil
}

// ResolveMedia maps image references to existing files in folder. Missing
// files are logged and skipped; a basename is included once.
func ResolveMedia(images []deck.ImageRef, folder string, log *logger.Logger) []string {
	if log == nil {
		log = logger.Nop()
	}

	var files []string
	seen := map[string]struct{}{}
	for _, img := range images {
		base := img.Basename()
		source := filepath.Join(folder, base)
		if base == "" {
			log.Warn("image file not found", "path", source)
			continue
		}
		if _, dup := seen[base]; dup {
			continue
		}
		info, err := os.Stat(source)
		if err != nil || !info.Mode().IsRegular() {
			log.Warn("image file not found", "path", source)
			continue
		}
		seen[base] = struct{}{}
		files = append(files, source)
	}
	return files
}

func outputPath(path, deckName string, now time.Time) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is empty")
	}

	isDir := os.IsPathSeparator(path[len(path)-1])
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		isDir = true
	}
	if isDir {
		path = filepath.Join(path, deck.PackageFileName(deckName, now))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}
	return path, nil
}
