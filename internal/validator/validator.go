package validator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/arcanaland/autoanki/internal/builder"
	"github.com/arcanaland/autoanki/internal/card"
	"github.com/arcanaland/autoanki/internal/deck"
)

type ValidationResults struct {
	Errors   []string
	Warnings []string
	Stats    builder.Stats // what a conversion would count
	Media    int           // images that would be packaged
}

// Validator checks a deck file without writing a package
type Validator struct {
	DeckPath    string
	MediaFolder string
	Results     ValidationResults
}

func NewValidator(deckPath, mediaFolder string) *Validator {
	if mediaFolder == "" {
		mediaFolder = filepath.Dir(deckPath)
	}
	return &Validator{
		DeckPath:    deckPath,
		MediaFolder: mediaFolder,
		Results:     ValidationResults{},
	}
}

// Validate returns an error only when the deck file itself cannot be loaded.
func (v *Validator) Validate() (ValidationResults, error) {
	spec, err := deck.Load(v.DeckPath)
	if err != nil {
		return v.Results, err
	}

	if len(spec.Cards) == 0 {
		v.Results.Warnings = append(v.Results.Warnings, "deck has no cards")
	}

	for i, raw := range spec.Cards {
		v.validateCard(i, raw)
	}
	v.validateImages(spec.Images)

	return v.Results, nil
}

// validateCard mirrors what the builder does with a record
func (v *Validator) validateCard(i int, raw []byte) {
	rec, err := card.Parse(raw)
	if err != nil {
		v.addError(i, "%v", err)
		return
	}

	for _, tag := range rec.Tags {
		if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
			v.addError(i, "tag %q contains whitespace", tag)
			return
		}
	}

	if rec.Type != "" && rec.Kind() == card.Standard && rec.Type != string(card.Standard) {
		v.addWarning(i, "unknown type %q, treated as standard", rec.Type)
	}

	switch rec.Kind() {
	case card.Cloze:
		v.Results.Stats.Cloze++
		if strings.TrimSpace(rec.Text) == "" {
			v.addWarning(i, "cloze card has no text")
			return
		}
		if card.HasClozeMarker(rec.Text) {
			return
		}
		if word, ok := card.ClozeTarget(rec.Text); ok {
			v.addWarning(i, "no cloze marker, %q will be clozed automatically", word)
		} else {
			v.addWarning(i, "no cloze marker and no word to cloze automatically")
		}
	default:
		v.Results.Stats.Standard++
		if rec.Question == "" {
			v.addWarning(i, "standard card has no question and will produce no review card")
		}
		if strings.TrimSpace(rec.Answer) == "" {
			v.addWarning(i, "standard card has no answer")
		}
	}
}

func (v *Validator) validateImages(images []deck.ImageRef) {
	found := builder.ResolveMedia(images, v.MediaFolder, nil)
	v.Results.Media = len(found)

	present := make(map[string]struct{}, len(found))
	for _, f := range found {
		present[filepath.Base(f)] = struct{}{}
	}
	for _, img := range images {
		base := img.Basename()
		if base == "" {
			v.Results.Warnings = append(v.Results.Warnings, "image entry with an empty path")
			continue
		}
		if _, ok := present[base]; !ok {
			v.Results.Warnings = append(v.Results.Warnings,
				fmt.Sprintf("image file not found: %s", filepath.Join(v.MediaFolder, base)))
			present[base] = struct{}{}
		}
	}
}

func (v *Validator) addError(i int, format string, args ...any) {
	v.Results.Stats.Error++
	v.Results.Errors = append(v.Results.Errors, fmt.Sprintf("card %d: ", i)+fmt.Sprintf(format, args...))
}

func (v *Validator) addWarning(i int, format string, args ...any) {
	v.Results.Warnings = append(v.Results.Warnings, fmt.Sprintf("card %d: ", i)+fmt.Sprintf(format, args...))
}
