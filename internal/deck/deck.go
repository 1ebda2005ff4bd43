package deck

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tailscale/hujson"
)

// Random deck ids are drawn from [MinRandomID, MaxRandomID)
const (
	MinRandomID int64 = 1 << 30
	MaxRandomID int64 = 1 << 31
)

var ErrNotObject = errors.New("deck file must contain a JSON object")

// Spec is a deck description read from an input file
type Spec struct {
	Name   *string           `json:"deckName"`
	ID     *int64            `json:"deckId"`
	Cards  []json.RawMessage `json:"cards"`
	Images []ImageRef        `json:"images" validate:"dive"`

	// Path is the file the spec was loaded from, empty when parsed from memory
	Path string `json:"-"`
}

// ImageRef points at a media file referenced by the deck's cards
type ImageRef struct {
	Path *string `json:"path" validate:"required"`
}

// Basename is the file name looked up inside the media folder
func (i ImageRef) Basename() string {
	if i.Path == nil || *i.Path == "" {
		return ""
	}
	base := filepath.Base(filepath.FromSlash(*i.Path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}

// Load reads and validates a deck file. Comments and trailing commas are
// accepted.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading deck file: %w", err)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	spec.Path = path
	return spec, nil
}

// Parse decodes and validates a deck document.
func Parse(data []byte) (*Spec, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(standardized)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var spec Spec
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&spec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid deck file: %s is required", imageFieldPath(verrs[0].Namespace()))
		}
		return nil, err
	}

	return &spec, nil
}

// imageFieldPath turns "Spec.Images[2].Path" into "images[2].path"
func imageFieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Spec.")
	return strings.ToLower(ns)
}

// DeckName returns the deck name, or fallback when the file has none.
func (s *Spec) DeckName(fallback string) string {
	if s.Name == nil {
		return fallback
	}
	return *s.Name
}

// ResolveID returns the deck id from the file. Without one, it returns a
// random id, or with stable set an id derived from the deck name.
func (s *Spec) ResolveID(name string, stable bool) int64 {
	if s.ID != nil {
		return *s.ID
	}
	if stable {
		return StableID(name)
	}
	return RandomID()
}

func RandomID() int64 {
	return MinRandomID + rand.Int64N(MaxRandomID-MinRandomID)
}

// StableID hashes the deck name so regenerated decks keep their id.
func StableID(name string) int64 {
	sum := md5.Sum([]byte(name))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v % 2147483647
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// PackageFileName derives an output file name from the deck name.
func PackageFileName(deckName string, now time.Time) string {
	base := strings.ToLower(unsafeFileChars.ReplaceAllString(deckName, "_"))
	return fmt.Sprintf("%s_%d.apkg", base, now.UnixMilli())
}
