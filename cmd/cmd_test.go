package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/autoanki/internal/anki"
	"github.com/arcanaland/autoanki/internal/builder"
	"github.com/arcanaland/autoanki/internal/logger"
)

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})
	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func isolateXDG(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "   ", 20, []string{""}},
		{"fits", "one two three", 20, []string{"one two three"}},
		{"wraps", "one two three four", 10, []string{"one two", "three four"}},
		{"long word kept whole", "supercalifragilistic x", 10, []string{"supercalifragilistic", "x"}},
		{"small width falls back", "a b c", 3, []string{"a b c"}},
		{"runes counted", "ééééé ééééé", 11, []string{"ééééé ééééé"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, wrapText(tt.text, tt.width)); diff != "" {
				t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripAnsi(t *testing.T) {
	assert.Equal(t, "▀x", stripAnsi("\x1b[38;2;1;2;3m\x1b[48;2;4;5;6m▀\x1b[0mx"))
	assert.Equal(t, "plain", stripAnsi("plain"))
}

func TestImageToAnsi(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}

	art, err := imageToAnsi(img, 3, 2, true)
	require.NoError(t, err)
	assert.Equal(t, "▀▀▀\n▀▀▀\n", stripAnsi(art))
	assert.Contains(t, art, "\x1b[38;2;")

	_, err = imageToAnsi(img, 0, 2, true)
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, `{
		"deckName": "Biology",
		"deckId": 1234567890,
		"cards": [
			{"type": "standard", "question": "Q1", "answer": "A1"},
			{"type": "cloze", "text": "The mitochondria is important"},
			"broken"
		]
	}`)
	out := filepath.Join(dir, "out.apkg")

	var stdout bytes.Buffer
	err := convert(convertOptions{Input: input, Output: out, Tags: []string{"extra"}}, logger.Nop(), &stdout)
	require.NoError(t, err)

	var res builder.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, out, res.Path)
	assert.Equal(t, &builder.Stats{Cloze: 1, Standard: 1, Error: 1}, res.Stats)

	contents, err := anki.ReadPackage(out)
	require.NoError(t, err)
	require.Len(t, contents.Notes, 2)
	assert.Equal(t, []string{"extra"}, contents.Notes[0].Tags)
	assert.Equal(t, "The {{c1::mitochondria}} is important", contents.Notes[1].Fields[0])
}

func TestConvertMissingInput(t *testing.T) {
	dir := t.TempDir()

	var stdout bytes.Buffer
	err := convert(convertOptions{Input: filepath.Join(dir, "nope.json"), Output: dir}, logger.Nop(), &stdout)
	require.ErrorIs(t, err, errConversionFailed)

	var res map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, false, res["success"])
	assert.NotEmpty(t, res["error"])
	assert.NotContains(t, res, "stats")
}

func TestRootRequiresArguments(t *testing.T) {
	RootCmd.SilenceUsage = false

	stdout, stderr, err := execute(t, "only-input.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts between 2 and 3 arg(s)")
	assert.Contains(t, stdout+stderr, "Usage:")
}

func TestRootConvertsWithTags(t *testing.T) {
	isolateXDG(t)
	dir := t.TempDir()
	input := writeInput(t, dir, `{"cards": [{"question": "Q1", "answer": "A1"}]}`)

	stdout, stderr, err := execute(t, input, dir+string(filepath.Separator),
		"--tag", "Biology 101: Cells", "--stable-id", "--log-format", "json")
	require.NoError(t, err)

	var res builder.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.True(t, res.Success)
	assert.Equal(t, dir, filepath.Dir(res.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(res.Path), "onenote_converted_deck_"))
	assert.Contains(t, stderr, `"msg":"successfully created Anki package"`)

	contents, err := anki.ReadPackage(res.Path)
	require.NoError(t, err)
	require.Len(t, contents.Notes, 1)
	assert.Equal(t, []string{"biology_101_cells"}, contents.Notes[0].Tags)
	require.Len(t, contents.Decks, 1)
	assert.Equal(t, "OneNote Converted Deck", contents.Decks[0].Name)
}

func TestValidateCommand(t *testing.T) {
	isolateXDG(t)
	dir := t.TempDir()
	input := writeInput(t, dir, `{"cards": [{"type": "cloze", "text": "short"}, {"tags": ["a b"]}]}`)

	stdout, _, err := execute(t, "validate", input)
	require.EqualError(t, err, "validation failed")
	assert.Contains(t, stdout, "Validation Results:")
	assert.Contains(t, stdout, "Cards: 1 cloze, 0 standard, 1 failing")
	assert.Contains(t, stdout, "has 1 validation errors")
	assert.Contains(t, stdout, "Warnings:")
}

func TestLibraryInitAndList(t *testing.T) {
	isolateXDG(t)

	stdout, _, err := execute(t, "library", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "does not exist")

	stdout, _, err = execute(t, "library", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Library initialized at:")
	assert.FileExists(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "autoanki", "config.toml"))

	stdout, _, err = execute(t, "library", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No packages found")

	libDir := filepath.Join(os.Getenv("XDG_DATA_HOME"), "autoanki", "decks")
	input := writeInput(t, t.TempDir(), `{"deckName": "Biology", "cards": [{"question": "Q", "answer": "A"}]}`)
	var discard bytes.Buffer
	require.NoError(t, convert(convertOptions{Input: input, Output: filepath.Join(libDir, "bio.apkg")}, logger.Nop(), &discard))

	stdout, _, err = execute(t, "library", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "bio.apkg (Biology) 1 notes")
}

func TestShowConvertedPackage(t *testing.T) {
	isolateXDG(t)
	dir := t.TempDir()
	input := writeInput(t, dir, `{"deckName": "Biology", "cards": [{"question": "Q1", "answer": "A1"}]}`)
	out := filepath.Join(dir, "out.apkg")
	var discard bytes.Buffer
	require.NoError(t, convert(convertOptions{Input: input, Output: out}, logger.Nop(), &discard))

	stdout, _, err := execute(t, "show", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Biology")
	assert.Contains(t, stdout, "Front:")
	assert.Contains(t, stdout, "Q1")
	assert.Contains(t, stdout, "A1")
}

func TestRootReportsSetupFailureAsResult(t *testing.T) {
	home := isolateXDG(t)
	dir := t.TempDir()
	input := writeInput(t, dir, `{"cards": [{"question": "Q1", "answer": "A1"}]}`)
	out := filepath.Join(dir, "out.apkg")

	configDir := filepath.Join(home, "config", "autoanki")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(`log_level = "verbose"`+"\n"), 0644))

	stdout, _, err := execute(t, input, out)
	require.ErrorIs(t, err, errConversionFailed)
	var res builder.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "verbose")
	assert.NoFileExists(t, out)
}

func TestRootReportsBadLogFlagAsResult(t *testing.T) {
	isolateXDG(t)
	t.Cleanup(func() { logLevel = "" })
	dir := t.TempDir()
	input := writeInput(t, dir, `{"cards": [{"question": "Q1", "answer": "A1"}]}`)

	stdout, _, err := execute(t, input, filepath.Join(dir, "out.apkg"), "--log-level", "loud")
	require.ErrorIs(t, err, errConversionFailed)
	var res builder.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `invalid log level "loud"`)
}
