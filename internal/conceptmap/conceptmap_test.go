package conceptmap

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/autoanki/internal/anki"
)

func TestRender(t *testing.T) {
	t.Parallel()

	m := ConceptMap{
		Title: "CRC Staging",
		Sections: []Section{
			{Heading: "T Staging Classifications", Relations: []Relation{
				{From: "T1", Op: "→", To: "Submucosa", Note: "invasion limited to submucosa"},
				{From: "T Stage", Op: "→", To: "Prognosis", Note: "determines outcome",
					Detail: "Higher T stage correlates with worse prognosis"},
			}},
		},
		Image:   "crc_stages.svg",
		Caption: "Diagram showing progressive invasion",
	}

	html, err := m.Render()
	require.NoError(t, err)

	assert.Contains(t, html, `<div class="anki-notes">`)
	assert.Contains(t, html, `<h2>Concept Map: CRC Staging</h2>`)
	assert.Contains(t, html, `<h3>T Staging Classifications</h3>`)
	assert.Contains(t, html,
		`<li>• <span class="relationship"><strong>T1</strong> → <strong>Submucosa</strong></span> (invasion limited to submucosa)<br></li>`)
	assert.Contains(t, html,
		"(determines outcome)<br>\n       <em>Higher T stage correlates with worse prognosis</em><br></li>")
	assert.Contains(t, html, `<h2>Images</h2>`)
	assert.Contains(t, html, `<img src="crc_stages.svg" style="max-width: 100%; margin: 10px 0;"><br>`)
	assert.Contains(t, html, `<em>Diagram showing progressive invasion</em>`)
	assert.Contains(t, html, `.anki-notes .relationship {`)
	assert.True(t, strings.HasSuffix(html, "</style>\n"))
}

func TestRenderWithoutImage(t *testing.T) {
	t.Parallel()

	html, err := ConceptMap{Title: "Empty"}.Render()
	require.NoError(t, err)
	assert.Contains(t, html, `<h2>Concept Map: Empty</h2>`)
	assert.NotContains(t, html, `<h2>Images</h2>`)
	assert.NotContains(t, html, `<img`)
}

func TestRenderEscapesText(t *testing.T) {
	t.Parallel()

	html, err := ConceptMap{
		Title:    "<script>",
		Sections: []Section{{Heading: "H", Relations: []Relation{{From: "<b>", Op: "→", To: "x"}}}},
	}.Render()
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "<strong>&lt;b&gt;</strong>")
	// no parenthetical when the relation has no note
	assert.Contains(t, html, "<strong>x</strong></span><br></li>")
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": SVG, "svg": SVG, "png": PNG} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("gif")
	assert.Error(t, err)
}

func TestGenerateSVG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := GenerateImage(dir, "cell_division", "purple", SVG)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cell_division.svg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	svg := string(data)
	assert.Contains(t, svg, `<svg width="200" height="100"`)
	assert.Contains(t, svg, `<rect width="200" height="100" fill="purple"/>`)
	assert.Contains(t, svg, `>cell_division.svg</text>`)
}

func TestGeneratePNG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := GenerateImage(dir, "hemorrhoid_types", "darkred", PNG)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
	assert.Equal(t, color.RGBA{0x8b, 0x00, 0x00, 0xff}, color.RGBAModel.Convert(img.At(5, 5)))
}

func TestGeneratePNGUnknownColor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := GenerateImage(dir, "x", "chartreuse", PNG)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "x.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSamples(t *testing.T) {
	t.Parallel()

	samples := Samples()
	require.Len(t, samples, 4)

	var images []string
	for _, s := range samples {
		images = append(images, s.Image)
		assert.Contains(t, s.Text, "{{c1::")
		assert.Len(t, s.Tags, 3)
		assert.NotEmpty(t, s.Map.Sections)
		assert.Contains(t, palette, s.Color)
	}
	want := []string{"crc_stages", "cell_division", "hemorrhoid_types", "anatomy_diagram"}
	if diff := cmp.Diff(want, images); diff != "" {
		t.Errorf("sample images mismatch (-want +got):\n%s", diff)
	}

	fields, err := samples[0].Fields(PNG)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, samples[0].Text, fields[0])
	assert.Contains(t, fields[1], `<img src="crc_stages.png"`)
}

func TestBuildSample(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "sample.apkg")
	res, err := BuildSample(SampleOptions{
		OutputPath: out,
		MediaDir:   filepath.Join(dir, "media"),
		DeckID:     1111111111,
		Now:        func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)
	assert.Equal(t, out, res.Path)
	assert.Equal(t, 4, res.Notes)
	assert.Len(t, res.Media, 4)

	contents, err := anki.ReadPackage(out)
	require.NoError(t, err)

	if diff := cmp.Diff([]anki.DeckInfo{{ID: 1111111111, Name: SampleDeckName}}, contents.Decks); diff != "" {
		t.Errorf("decks mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, contents.Notes, 4)
	var cards []int
	for _, n := range contents.Notes {
		assert.Equal(t, anki.ClozeModelID, n.ModelID)
		cards = append(cards, n.Cards)
	}
	assert.Equal(t, []int{3, 6, 2, 4}, cards)
	assert.Equal(t, []string{"pathophysiology", "colorectal_cancer", "staging"}, contents.Notes[0].Tags)
	assert.Contains(t, contents.Notes[0].Fields[1], `<img src="crc_stages.svg"`)

	var names []string
	for _, m := range contents.Media {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t,
		[]string{"crc_stages.svg", "cell_division.svg", "hemorrhoid_types.svg", "anatomy_diagram.svg"}, names)
}
