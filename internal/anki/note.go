package anki

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrFieldCount    = errors.New("number of fields does not match the model")
	ErrTagWhitespace = errors.New("tags must not contain whitespace")
)

// Note is one flashcard instance of a model
type Note struct {
	Model  *Model
	Fields []string
	Tags   []string
	GUID   string
}

// NewNote creates a validated note whose GUID is derived from its fields.
func NewNote(model *Model, fields, tags []string) (*Note, error) {
	n := &Note{Model: model, Fields: fields, Tags: tags}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	n.GUID = GUIDFor(fields...)
	return n, nil
}

func (n *Note) Validate() error {
	if len(n.Fields) != len(n.Model.Fields) {
		return fmt.Errorf("%w: model %q has %d fields, got %d",
			ErrFieldCount, n.Model.Name, len(n.Model.Fields), len(n.Fields))
	}
	for _, tag := range n.Tags {
		if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w: %q", ErrTagWhitespace, tag)
		}
	}
	return nil
}

// SortField is the field value Anki sorts the browser by
func (n *Note) SortField() string {
	if n.Model.SortField < len(n.Fields) {
		return n.Fields[n.Model.SortField]
	}
	return ""
}

func (n *Note) formatFields() string {
	return strings.Join(n.Fields, "\x1f")
}

func (n *Note) formatTags() string {
	return " " + strings.Join(n.Tags, " ") + " "
}

// Checksum is the duplicate-detection checksum Anki keeps for the first field.
func (n *Note) Checksum() int64 {
	if len(n.Fields) == 0 {
		return 0
	}
	sum := sha1.Sum([]byte(StripHTML(n.Fields[0])))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v
}

var (
	htmlTag      = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlBlock    = regexp.MustCompile(`(?is)<(?:style|script)[^>]*>.*?</(?:style|script)>`)
	imgSrc       = regexp.MustCompile(`(?i)<img[^>]*src=["']?([^"'>\s]+)["']?[^>]*>`)
	clozeFieldRe = regexp.MustCompile(`\{\{[^}]*?cloze:(?:[^}]?:)*(.+?)\}\}`)
	clozeNumRe   = regexp.MustCompile(`(?s)\{\{c(\d+)::.+?\}\}`)
)

// StripHTML reduces a field to its text: style and script blocks are
// dropped, images become their file names and other tags are removed.
func StripHTML(s string) string {
	s = htmlBlock.ReplaceAllString(s, "")
	s = imgSrc.ReplaceAllString(s, " $1 ")
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// CardOrds returns the template ordinals (or cloze numbers minus one) this
// note generates cards for.
func (n *Note) CardOrds() []int {
	if n.Model.Type == ClozeType {
		return n.clozeOrds()
	}

	var ords []int
	for _, r := range n.Model.requirements() {
		ok := r.kind == "all"
		for _, f := range r.fields {
			filled := n.Fields[f] != ""
			if r.kind == "all" {
				ok = ok && filled
			} else {
				ok = ok || filled
			}
		}
		if ok {
			ords = append(ords, r.ord)
		}
	}
	return ords
}

func (n *Note) clozeOrds() []int {
	index := make(map[string]int, len(n.Model.Fields))
	for i, f := range n.Model.Fields {
		index[f.Name] = i
	}

	seen := map[int]struct{}{}
	for _, m := range clozeFieldRe.FindAllStringSubmatch(n.Model.Templates[0].QFmt, -1) {
		i, ok := index[m[1]]
		if !ok {
			continue
		}
		for _, c := range clozeNumRe.FindAllStringSubmatch(n.Fields[i], -1) {
			num, err := strconv.Atoi(c[1])
			if err != nil || num < 1 {
				continue
			}
			seen[num-1] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return []int{0}
	}

	ords := make([]int, 0, len(seen))
	for ord := range seen {
		ords = append(ords, ord)
	}
	sort.Ints(ords)
	return ords
}

const base91Table = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!#$%&()*+,-./:;<=>?@[]^_`{|}~"

// GUIDFor derives a stable note GUID: the first 8 bytes of the SHA-256 of the
// values joined by "__", written in Anki's base91 alphabet.
func GUIDFor(values ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, "__")))
	v := binary.BigEndian.Uint64(sum[:8])

	var out []byte
	for v > 0 {
		out = append(out, base91Table[v%uint64(len(base91Table))])
		v /= uint64(len(base91Table))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
