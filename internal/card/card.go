package card

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Type is the kind of note a record turns into
type Type string

const (
	Cloze    Type = "cloze"
	Standard Type = "standard"
)

var (
	ErrNotObject   = errors.New("card record is not a JSON object")
	ErrInvalidTags = errors.New("tags must be a string or a list of strings")
	ErrNullField   = errors.New("card field is null")
)

// Record represents one flashcard entry of an input deck file
type Record struct {
	Type     string `json:"type"`     // "cloze" or "standard"; anything else is standard
	Text     string `json:"text"`     // Cloze-bearing text
	Question string `json:"question"` // Front of a standard card
	Answer   string `json:"answer"`   // Back of a standard card
	Notes    string `json:"notes"`    // Extra info, shown after the answer
	Tags     Tags   `json:"tags"`
}

// Parse decodes a single raw card record.
func Parse(raw []byte) (Record, error) {
	var r Record
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return r, ErrNotObject
	}
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return r, fmt.Errorf("error decoding card record: %w", err)
	}

	// null decodes to "" above; the note fields of the record's type must
	// be strings or absent
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return r, fmt.Errorf("error decoding card record: %w", err)
	}
	for _, key := range r.contentKeys() {
		if v, ok := keys[key]; ok && string(bytes.TrimSpace(v)) == "null" {
			return r, fmt.Errorf("%w: %s", ErrNullField, key)
		}
	}
	return r, nil
}

// contentKeys are the record keys that become note fields. A standard
// record's notes are optional and a null there is skipped.
func (r Record) contentKeys() []string {
	if r.Kind() == Cloze {
		return []string{"text", "notes"}
	}
	return []string{"question", "answer"}
}

// Kind returns the record type, defaulting to Standard.
func (r Record) Kind() Type {
	if r.Type == string(Cloze) {
		return Cloze
	}
	return Standard
}

// ClozeFields returns the Text and Extra fields of a cloze note.
func (r Record) ClozeFields() []string {
	return []string{AutoCloze(r.Text), r.Notes}
}

// StandardFields returns the Front and Back fields of a basic note.
func (r Record) StandardFields() []string {
	back := r.Answer
	if r.Notes != "" {
		back += "<hr>" + r.Notes
	}
	return []string{r.Question, back}
}

// Tags accepts either a list of strings or a single whitespace separated string
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = SplitTags(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTags, data)
	}
	*t = list
	return nil
}

// SplitTags splits s on whitespace and drops empty tokens.
func SplitTags(s string) Tags {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return Tags(fields)
}

// stopWords are never picked as an automatic cloze target
var stopWords = map[string]struct{}{
	"about":  {},
	"there":  {},
	"their":  {},
	"would":  {},
	"could":  {},
	"should": {},
}

// HasClozeMarker reports whether text already carries a cloze deletion.
func HasClozeMarker(text string) bool {
	return strings.Contains(text, "{{c")
}

// ClozeTarget returns the first whitespace-delimited token of text that is
// purely alphabetic, longer than five characters and not a stop word.
func ClozeTarget(text string) (string, bool) {
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) <= 5 || !isAlpha(word) {
			continue
		}
		if _, stop := stopWords[strings.ToLower(word)]; stop {
			continue
		}
		return word, true
	}
	return "", false
}

// AutoCloze wraps the first eligible token of text in a c1 cloze deletion
// when text has no cloze marker yet. The first occurrence of the token's
// text in the string is replaced, which may sit inside an earlier word.
func AutoCloze(text string) string {
	if HasClozeMarker(text) {
		return text
	}
	word, ok := ClozeTarget(text)
	if !ok {
		return text
	}
	return strings.Replace(text, word, "{{c1::"+word+"}}", 1)
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

var (
	nonTagChars  = regexp.MustCompile(`[^a-z0-9]`)
	repeatedSeps = regexp.MustCompile(`_+`)
)

// PageTag turns a free-form title into a tag: lower case, every character
// outside [a-z0-9] replaced by an underscore, runs collapsed, ends trimmed.
func PageTag(title string) string {
	tag := nonTagChars.ReplaceAllString(strings.ToLower(title), "_")
	tag = repeatedSeps.ReplaceAllString(tag, "_")
	return strings.Trim(tag, "_")
}
