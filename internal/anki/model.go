package anki

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ModelType distinguishes regular front/back note types from cloze ones
type ModelType int

const (
	FrontBack ModelType = 0
	ClozeType ModelType = 1
)

// Fixed model identifiers. Anki recognizes notes of later imports as the same
// note type as long as these stay unchanged.
const (
	ClozeModelID int64 = 1607392319
	BasicModelID int64 = 1380120668
)

const defaultCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}
`

const (
	defaultLatexPre = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n" +
		"\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n"
	defaultLatexPost = "\\end{document}"
)

type Field struct {
	Name string
}

type Template struct {
	Name string
	QFmt string // question side
	AFmt string // answer side
}

// Model is an Anki note type: its fields and the card templates rendering them
type Model struct {
	ID        int64
	Name      string
	Type      ModelType
	Fields    []Field
	Templates []Template
	CSS       string
	SortField int
}

// ClozeModel has a cloze-bearing Text field and an Extra field shown on the
// back after a horizontal rule.
var ClozeModel = &Model{
	ID:   ClozeModelID,
	Name: "Cloze",
	Type: ClozeType,
	Fields: []Field{
		{Name: "Text"},
		{Name: "Extra"},
	},
	Templates: []Template{
		{
			Name: "Cloze",
			QFmt: "{{cloze:Text}}",
			AFmt: "{{cloze:Text}}<hr id=answer>{{Extra}}",
		},
	},
	CSS: defaultCSS,
}

// BasicModel is the plain question/answer note type.
var BasicModel = &Model{
	ID:   BasicModelID,
	Name: "Basic",
	Type: FrontBack,
	Fields: []Field{
		{Name: "Front"},
		{Name: "Back"},
	},
	Templates: []Template{
		{
			Name: "Card 1",
			QFmt: "{{Front}}",
			AFmt: "{{FrontSide}}<hr id=answer>{{Back}}",
		},
	},
	CSS: defaultCSS,
}

func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// requirement tells Anki which fields must be non-empty for a template to
// produce a card: [template ord, "all"|"any", [field ords]]
type requirement struct {
	ord    int
	kind   string
	fields []int
}

func (r requirement) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.ord, r.kind, r.fields})
}

func (r *requirement) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("requirement has %d elements, want 3", len(parts))
	}
	if err := json.Unmarshal(parts[0], &r.ord); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &r.kind); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &r.fields)
}

var mustacheTag = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// renderQuestion substitutes plain {{Field}} references. Anything else
// (filters, FrontSide, sections) renders empty.
func renderQuestion(format string, values map[string]string) string {
	return mustacheTag.ReplaceAllStringFunc(format, func(tag string) string {
		name := strings.TrimSpace(tag[2 : len(tag)-2])
		return values[name]
	})
}

// requirements finds, per template, the fields whose emptiness removes every
// field value from the rendered question ("all"), or else the fields that
// appear in it at all ("any"). A template referencing no field requires all
// of them.
func (m *Model) requirements() []requirement {
	const sentinel = "SeNtInEl"
	names := m.FieldNames()

	var req []requirement
	for ord, tmpl := range m.Templates {
		var required []int
		for i := range names {
			values := make(map[string]string, len(names))
			for _, n := range names {
				values[n] = sentinel
			}
			values[names[i]] = ""
			if !strings.Contains(renderQuestion(tmpl.QFmt, values), sentinel) {
				required = append(required, i)
			}
		}
		if len(required) > 0 {
			req = append(req, requirement{ord: ord, kind: "all", fields: required})
			continue
		}

		for i := range names {
			values := make(map[string]string, len(names))
			values[names[i]] = sentinel
			if strings.Contains(renderQuestion(tmpl.QFmt, values), sentinel) {
				required = append(required, i)
			}
		}
		req = append(req, requirement{ord: ord, kind: "any", fields: required})
	}
	return req
}

type fieldJSON struct {
	Name   string   `json:"name"`
	Ord    int      `json:"ord"`
	Font   string   `json:"font"`
	Media  []string `json:"media"`
	RTL    bool     `json:"rtl"`
	Size   int      `json:"size"`
	Sticky bool     `json:"sticky"`
}

type templateJSON struct {
	Name  string `json:"name"`
	Ord   int    `json:"ord"`
	QFmt  string `json:"qfmt"`
	AFmt  string `json:"afmt"`
	BAFmt string `json:"bafmt"`
	BQFmt string `json:"bqfmt"`
	BFont string `json:"bfont"`
	BSize int    `json:"bsize"`
	Did   *int64 `json:"did"`
}

type modelJSON struct {
	CSS       string         `json:"css"`
	Did       int64          `json:"did"`
	Flds      []fieldJSON    `json:"flds"`
	ID        string         `json:"id"`
	LatexPost string         `json:"latexPost"`
	LatexPre  string         `json:"latexPre"`
	LatexSVG  bool           `json:"latexsvg"`
	Mod       int64          `json:"mod"`
	Name      string         `json:"name"`
	Req       []requirement  `json:"req"`
	SortF     int            `json:"sortf"`
	Tags      []string       `json:"tags"`
	Tmpls     []templateJSON `json:"tmpls"`
	Type      ModelType      `json:"type"`
	Usn       int            `json:"usn"`
	Vers      []int          `json:"vers"`
}

func (m *Model) toJSON(mod, deckID int64) modelJSON {
	req := m.requirements()

	flds := make([]fieldJSON, len(m.Fields))
	for i, f := range m.Fields {
		flds[i] = fieldJSON{Name: f.Name, Ord: i, Font: "Liberation Sans", Media: []string{}, Size: 20}
	}
	tmpls := make([]templateJSON, len(m.Templates))
	for i, t := range m.Templates {
		tmpls[i] = templateJSON{Name: t.Name, Ord: i, QFmt: t.QFmt, AFmt: t.AFmt}
	}

	css := m.CSS
	if css == "" {
		css = defaultCSS
	}

	return modelJSON{
		CSS:       css,
		Did:       deckID,
		Flds:      flds,
		ID:        fmt.Sprintf("%d", m.ID),
		LatexPost: defaultLatexPost,
		LatexPre:  defaultLatexPre,
		Mod:       mod,
		Name:      m.Name,
		Req:       req,
		SortF:     m.SortField,
		Tags:      []string{},
		Tmpls:     tmpls,
		Type:      m.Type,
		Usn:       -1,
		Vers:      []int{},
	}
}
