// Package conceptmap renders concept maps as HTML for a note's Extra field
// and generates the sample deck that shows them off.
package conceptmap

import (
	"bytes"
	"fmt"
	"html/template"
)

// Relation is one edge of a concept map, e.g. "T1 → Submucosa (invasion
// limited to submucosa)".
type Relation struct {
	From   string
	Op     string // →, ⟶, ←, ⊃, =
	To     string
	Note   string // parenthetical after the relation
	Detail string // optional italic line under it
}

type Section struct {
	Heading   string
	Relations []Relation
}

type ConceptMap struct {
	Title    string
	Sections []Section
	Image    string // media file name, empty for none
	Caption  string
}

const notesTemplate = `
<div class="anki-notes">
  <h2>Concept Map: {{.Title}}</h2>
{{range .Sections}}
  <h3>{{.Heading}}</h3>
  <ul>
{{- range .Relations}}
    <li>• <span class="relationship"><strong>{{.From}}</strong> {{.Op}} <strong>{{.To}}</strong></span>{{if .Note}} ({{.Note}}){{end}}<br>
{{- if .Detail}}
       <em>{{.Detail}}</em><br>
{{- end}}</li>
{{- end}}
  </ul>
{{end}}
{{- if .Image}}
  <h2>Images</h2>
  <img src="{{.Image}}" style="max-width: 100%; margin: 10px 0;"><br>
  <em>{{.Caption}}</em>
{{- end}}
</div>
<style>
.anki-notes h2 {
  color: #2196F3;
  border-bottom: 1px solid #e0e0e0;
  padding-bottom: 6px;
  margin-top: 15px;
  margin-bottom: 10px;
}
.anki-notes h3 {
  color: #1976D2;
  margin-top: 12px;
  margin-bottom: 8px;
}
.anki-notes .relationship {
  color: #4CAF50;
  font-weight: bold;
}
.anki-notes em {
  color: #607D8B;
}
.anki-notes ul {
  padding-left: 20px;
  list-style-type: none;
}
</style>
`

var tmpl = template.Must(template.New("notes").Parse(notesTemplate))

// Render returns the concept map as an HTML block with its stylesheet.
func (m ConceptMap) Render() (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("error rendering concept map %q: %w", m.Title, err)
	}
	return buf.String(), nil
}
