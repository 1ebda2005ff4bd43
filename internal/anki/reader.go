package anki

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Contents is what ReadPackage recovers from an .apkg archive
type Contents struct {
	Decks  []DeckInfo
	Models map[int64]ModelInfo
	Notes  []NoteInfo
	Media  []MediaFile
}

type DeckInfo struct {
	ID   int64
	Name string
}

type ModelInfo struct {
	ID        int64
	Name      string
	Type      ModelType
	Fields    []string
	Templates []Template
}

type NoteInfo struct {
	ID      int64
	GUID    string
	ModelID int64
	DeckID  int64
	Fields  []string
	Tags    []string
	Cards   int
}

type MediaFile struct {
	Index int
	Name  string
	Data  []byte
}

// ReadPackage opens an .apkg archive and loads its decks, models, notes and
// media.
func ReadPackage(path string) (*Contents, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("error opening package %s: %w", path, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	colFile, ok := files[collectionName]
	if !ok {
		return nil, fmt.Errorf("%s not found in %s", collectionName, path)
	}

	tmpDir, err := os.MkdirTemp("", "autoanki-read-*")
	if err != nil {
		return nil, fmt.Errorf("error creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, collectionName)
	if err := extract(colFile, dbPath); err != nil {
		return nil, err
	}

	contents, err := readCollection(dbPath)
	if err != nil {
		return nil, err
	}

	if mf, ok := files["media"]; ok {
		media, err := readMedia(mf, files)
		if err != nil {
			return nil, err
		}
		contents.Media = media
	}

	return contents, nil
}

func extract(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("error reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("error extracting %s: %w", f.Name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("error extracting %s: %w", f.Name, err)
	}
	return nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readCollection(dbPath string) (*Contents, error) {
	db, closeDB, err := openCollection(dbPath)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	var col colRow
	if err := db.First(&col).Error; err != nil {
		return nil, fmt.Errorf("error reading collection row: %w", err)
	}

	contents := &Contents{Models: map[int64]ModelInfo{}}

	var decks map[string]deckJSON
	if err := json.Unmarshal([]byte(col.Decks), &decks); err != nil {
		return nil, fmt.Errorf("error decoding decks: %w", err)
	}
	for _, d := range decks {
		if d.ID == defaultDeck.ID {
			continue
		}
		contents.Decks = append(contents.Decks, DeckInfo{ID: d.ID, Name: d.Name})
	}
	sort.Slice(contents.Decks, func(i, j int) bool { return contents.Decks[i].ID < contents.Decks[j].ID })

	var models map[string]modelJSON
	if err := json.Unmarshal([]byte(col.Models), &models); err != nil {
		return nil, fmt.Errorf("error decoding models: %w", err)
	}
	for _, m := range models {
		id, err := strconv.ParseInt(m.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid model id %q: %w", m.ID, err)
		}
		info := ModelInfo{ID: id, Name: m.Name, Type: m.Type}
		for _, f := range m.Flds {
			info.Fields = append(info.Fields, f.Name)
		}
		for _, t := range m.Tmpls {
			info.Templates = append(info.Templates, Template{Name: t.Name, QFmt: t.QFmt, AFmt: t.AFmt})
		}
		contents.Models[id] = info
	}

	var notes []noteRow
	if err := db.Order("id").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("error reading notes: %w", err)
	}
	var cards []cardRow
	if err := db.Order("id").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("error reading cards: %w", err)
	}
	cardCount := map[int64]int{}
	noteDeck := map[int64]int64{}
	for _, c := range cards {
		cardCount[c.Nid]++
		noteDeck[c.Nid] = c.Did
	}

	for _, n := range notes {
		contents.Notes = append(contents.Notes, NoteInfo{
			ID:      n.ID,
			GUID:    n.GUID,
			ModelID: n.Mid,
			DeckID:  noteDeck[n.ID],
			Fields:  strings.Split(n.Flds, "\x1f"),
			Tags:    strings.Fields(n.Tags),
			Cards:   cardCount[n.ID],
		})
	}

	return contents, nil
}

func readMedia(manifest *zip.File, files map[string]*zip.File) ([]MediaFile, error) {
	data, err := readAll(manifest)
	if err != nil {
		return nil, err
	}
	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("error decoding media manifest: %w", err)
	}

	media := make([]MediaFile, 0, len(names))
	for key, name := range names {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid media index %q: %w", key, err)
		}
		f, ok := files[key]
		if !ok {
			return nil, fmt.Errorf("media file %s (%s) missing from archive", key, name)
		}
		blob, err := readAll(f)
		if err != nil {
			return nil, err
		}
		media = append(media, MediaFile{Index: idx, Name: name, Data: blob})
	}
	sort.Slice(media, func(i, j int) bool { return media[i].Index < media[j].Index })
	return media, nil
}
