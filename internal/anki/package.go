package anki

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/natefinch/atomic"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const collectionName = "collection.anki2"

// Package bundles decks and media files into a single .apkg archive
type Package struct {
	Decks      []*Deck
	MediaFiles []string // paths on disk; stored in the archive by base name

	// Now is the clock used for modification times and ids
	Now func() time.Time
}

func NewPackage(decks ...*Deck) *Package {
	return &Package{Decks: decks, Now: time.Now}
}

// WriteToFile serializes the package and atomically replaces path with it.
func (p *Package) WriteToFile(path string) error {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("error writing package %s: %w", path, err)
	}
	return nil
}

// Write serializes the package archive to w.
func (p *Package) Write(w io.Writer) error {
	tmpDir, err := os.MkdirTemp("", "autoanki-*")
	if err != nil {
		return fmt.Errorf("error creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	dbPath := filepath.Join(tmpDir, collectionName)
	if err := p.writeCollection(dbPath, now()); err != nil {
		return err
	}

	return p.writeArchive(w, dbPath)
}

func openCollection(path string) (*gorm.DB, func(), error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error opening collection: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("error opening collection: %w", err)
	}
	return db, func() { _ = sqlDB.Close() }, nil
}

// idGenerator hands out increasing ids seeded from the wall clock in ms
type idGenerator struct {
	next int64
}

func (g *idGenerator) Next() int64 {
	id := g.next
	g.next++
	return id
}

func (p *Package) writeCollection(dbPath string, now time.Time) error {
	db, closeDB, err := openCollection(dbPath)
	if err != nil {
		return err
	}
	defer closeDB()

	mod := now.Unix()
	ids := &idGenerator{next: now.UnixMilli()}

	col, err := p.collectionRow(mod)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range schemaStatements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("error creating schema: %w", err)
			}
		}
		if err := tx.Create(col).Error; err != nil {
			return fmt.Errorf("error writing collection row: %w", err)
		}
		for _, d := range p.Decks {
			for _, n := range d.Notes {
				if err := writeNote(tx, n, d.ID, mod, ids); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func (p *Package) collectionRow(mod int64) (*colRow, error) {
	decks := map[string]deckJSON{"1": defaultDeck}
	models := map[string]modelJSON{}
	for _, d := range p.Decks {
		decks[strconv.FormatInt(d.ID, 10)] = d.toJSON()
		for _, m := range d.Models() {
			models[strconv.FormatInt(m.ID, 10)] = m.toJSON(mod, d.ID)
		}
	}

	decksJSON, err := json.Marshal(decks)
	if err != nil {
		return nil, fmt.Errorf("error encoding decks: %w", err)
	}
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return nil, fmt.Errorf("error encoding models: %w", err)
	}

	return &colRow{
		ID:     1,
		Crt:    colCreated,
		Mod:    colModified,
		Scm:    colSchema,
		Ver:    colVersion,
		Conf:   defaultColConf,
		Models: string(modelsJSON),
		Decks:  string(decksJSON),
		Dconf:  defaultDeckConf,
		Tags:   "{}",
	}, nil
}

func writeNote(tx *gorm.DB, n *Note, deckID, mod int64, ids *idGenerator) error {
	if err := n.Validate(); err != nil {
		return err
	}
	guid := n.GUID
	if guid == "" {
		guid = GUIDFor(n.Fields...)
	}

	row := &noteRow{
		ID:   ids.Next(),
		GUID: guid,
		Mid:  n.Model.ID,
		Mod:  mod,
		Usn:  -1,
		Tags: n.formatTags(),
		Flds: n.formatFields(),
		Sfld: n.SortField(),
		Csum: n.Checksum(),
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("error writing note %s: %w", guid, err)
	}

	for _, ord := range n.CardOrds() {
		c := &cardRow{
			ID:  ids.Next(),
			Nid: row.ID,
			Did: deckID,
			Ord: int64(ord),
			Mod: mod,
			Usn: -1,
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("error writing card %d of note %s: %w", ord, guid, err)
		}
	}
	return nil
}

func (p *Package) writeArchive(w io.Writer, dbPath string) error {
	zw := zip.NewWriter(w)

	if err := addFile(zw, collectionName, dbPath); err != nil {
		return err
	}

	manifest := make(map[string]string, len(p.MediaFiles))
	for i, path := range p.MediaFiles {
		manifest[strconv.Itoa(i)] = filepath.Base(path)
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("error encoding media manifest: %w", err)
	}
	mw, err := zw.Create("media")
	if err != nil {
		return fmt.Errorf("error writing media manifest: %w", err)
	}
	if _, err := mw.Write(data); err != nil {
		return fmt.Errorf("error writing media manifest: %w", err)
	}

	for i, path := range p.MediaFiles {
		if err := addFile(zw, strconv.Itoa(i), path); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("error finishing archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("error adding %s to archive: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("error adding %s to archive: %w", name, err)
	}
	return nil
}
