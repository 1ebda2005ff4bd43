package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/autoanki/internal/builder"
)

func writeDeck(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "deck.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestValidateCleanDeck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "heart.png"), []byte("png"), 0644))
	path := writeDeck(t, dir, `{
		"cards": [
			{"type": "cloze", "text": "The {{c1::heart}} pumps blood"},
			{"question": "Q", "answer": "A", "tags": "cardio"}
		],
		"images": [{"path": "uploads/heart.png"}]
	}`)

	results, err := NewValidator(path, "").Validate()
	require.NoError(t, err)
	assert.Empty(t, results.Errors)
	assert.Empty(t, results.Warnings)
	assert.Equal(t, builder.Stats{Cloze: 1, Standard: 1}, results.Stats)
	assert.Equal(t, 1, results.Media)
}

func TestValidateReportsProblems(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, `{
		"cards": [
			"oops",
			{"question": "Q", "answer": "A", "tags": ["two words"]},
			{"type": "flip", "question": "Q", "answer": "A"},
			{"type": "cloze", "text": "The mitochondria is important"},
			{"type": "cloze", "text": "a b c"},
			{"question": "", "answer": "A"}
		],
		"images": [{"path": "gone.svg"}, {"path": ""}]
	}`)

	results, err := NewValidator(path, dir).Validate()
	require.NoError(t, err)

	assert.Len(t, results.Errors, 2)
	assert.Contains(t, results.Errors[0], "card 0")
	assert.Contains(t, results.Errors[1], `tag "two words" contains whitespace`)

	assert.Contains(t, results.Warnings, `card 2: unknown type "flip", treated as standard`)
	assert.Contains(t, results.Warnings, `card 3: no cloze marker, "mitochondria" will be clozed automatically`)
	assert.Contains(t, results.Warnings, `card 4: no cloze marker and no word to cloze automatically`)
	assert.Contains(t, results.Warnings, `card 5: standard card has no question and will produce no review card`)
	assert.Contains(t, results.Warnings, "image file not found: "+filepath.Join(dir, "gone.svg"))
	assert.Contains(t, results.Warnings, "image entry with an empty path")

	assert.Equal(t, builder.Stats{Cloze: 2, Standard: 2, Error: 2}, results.Stats)
	assert.Equal(t, 6, results.Stats.Total())
	assert.Zero(t, results.Media)
}

func TestValidateEmptyDeck(t *testing.T) {
	t.Parallel()

	path := writeDeck(t, t.TempDir(), `{}`)
	results, err := NewValidator(path, "").Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"deck has no cards"}, results.Warnings)
}

func TestValidateUnreadableDeck(t *testing.T) {
	t.Parallel()

	path := writeDeck(t, t.TempDir(), `{"cards": [`)
	_, err := NewValidator(path, "").Validate()
	require.Error(t, err)
}
