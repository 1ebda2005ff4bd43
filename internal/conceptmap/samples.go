package conceptmap

import (
	"fmt"
	"os"
	"time"

	"github.com/arcanaland/autoanki/internal/anki"
	"github.com/arcanaland/autoanki/internal/deck"
	"github.com/arcanaland/autoanki/internal/logger"
)

const (
	SampleDeckName   = "Test Cloze With Concept Maps and Images"
	SampleMediaDir   = "test_media"
	SampleOutputPath = "test_cloze_with_concept_maps_and_images.apkg"
)

// Sample is one cloze note of the sample deck: the cloze text, the concept
// map shown in Extra and the placeholder image it links to.
type Sample struct {
	Text  string
	Tags  []string
	Map   ConceptMap
	Image string // image name without extension
	Color string
}

// Fields renders the note fields with the concept map pointing at the
// image in the given format.
func (s Sample) Fields(format Format) ([]string, error) {
	m := s.Map
	if s.Image != "" {
		m.Image = s.Image + "." + string(format)
	}
	extra, err := m.Render()
	if err != nil {
		return nil, err
	}
	return []string{s.Text, extra}, nil
}

// Samples returns the built-in sample notes in deck order.
func Samples() []Sample {
	return []Sample{
		{
			Text: "T1: Tumor invades {{c1::submucosa}} - T2: Tumor invades {{c2::muscularis propria}} - " +
				"T3: Tumor invades through muscularis propria into {{c3::subserosa}} or non-peritonealized pericolic/rectal tissues",
			Tags:  []string{"pathophysiology", "colorectal_cancer", "staging"},
			Image: "crc_stages",
			Color: "darkgreen",
			Map: ConceptMap{
				Title: "CRC Staging",
				Sections: []Section{
					{Heading: "T Staging Classifications", Relations: []Relation{
						{From: "T1", Op: "→", To: "Submucosa", Note: "invasion limited to submucosa"},
						{From: "T2", Op: "→", To: "Muscularis propria", Note: "invasion into but not through muscularis propria"},
						{From: "T3", Op: "→", To: "Subserosa/Pericolic tissues", Note: "invasion through muscularis propria"},
						{From: "T4a", Op: "→", To: "Visceral peritoneum", Note: "penetration of visceral peritoneum"},
						{From: "T4b", Op: "→", To: "Adjacent organs", Note: "direct invasion of other organs/structures"},
					}},
					{Heading: "Relationships", Relations: []Relation{
						{From: "T Stage", Op: "→", To: "Prognosis", Note: "determines outcome",
							Detail: "Higher T stage correlates with worse prognosis"},
						{From: "T Stage", Op: "→", To: "Treatment approach", Note: "influences management",
							Detail: "Higher T stages may require more aggressive treatment"},
					}},
					{Heading: "Related Concepts", Relations: []Relation{
						{From: "TNM staging", Op: "⊃", To: "T Stage", Note: "T is part of TNM"},
						{From: "Bowel wall anatomy", Op: "→", To: "T staging", Note: "anatomical basis"},
					}},
				},
				Caption: "Diagram showing progressive invasion through bowel wall layers",
			},
		},
		{
			Text: "Cell division phases in sequence: {{c1::Interphase}} → {{c2::Prophase}} → {{c3::Metaphase}} → " +
				"{{c4::Anaphase}} → {{c5::Telophase}} → {{c6::Cytokinesis}}",
			Tags:  []string{"cell_biology", "cell_division", "process"},
			Image: "cell_division",
			Color: "purple",
			Map: ConceptMap{
				Title: "Cell Division",
				Sections: []Section{
					{Heading: "Process Phases", Relations: []Relation{
						{From: "Interphase", Op: "→", To: "Prophase", Note: "sequential steps",
							Detail: "Cell prepares genetic material before visible condensation"},
						{From: "Prophase", Op: "→", To: "Metaphase", Note: "sequential steps",
							Detail: "Chromosomes line up at the metaphase plate"},
						{From: "Metaphase", Op: "→", To: "Anaphase", Note: "sequential steps",
							Detail: "Sister chromatids separate to opposite poles"},
						{From: "Anaphase", Op: "→", To: "Telophase", Note: "sequential steps",
							Detail: "Nuclear envelope reforms around separated chromosomes"},
						{From: "Telophase", Op: "→", To: "Cytokinesis", Note: "sequential steps",
							Detail: "Cytoplasm divides, creating two daughter cells"},
					}},
					{Heading: "Key Regulators", Relations: []Relation{
						{From: "Cyclins", Op: "⟶", To: "Cell Cycle Progression", Note: "regulate"},
						{From: "Cyclin-dependent kinases (CDKs)", Op: "⟶", To: "Cell Cycle Checkpoints", Note: "control"},
						{From: "p53", Op: "⟶", To: "DNA Damage Checkpoint", Note: "monitors"},
					}},
					{Heading: "Mitosis vs. Meiosis", Relations: []Relation{
						{From: "Mitosis", Op: "→", To: "Identical diploid cells", Note: "produces"},
						{From: "Meiosis", Op: "→", To: "Haploid gametes", Note: "produces"},
						{From: "Meiosis", Op: "⊃", To: "Crossing over", Note: "includes process"},
					}},
				},
				Caption: "Diagram showing stages of cell division process",
			},
		},
		{
			Text: "A thrombosed {{c1::external}} hemorrhoid causes {{c2::pain}} due to inflammation and distention " +
				"of the overlying somatically-innervated perianal skin.",
			Tags:  []string{"hemorrhoids", "pain", "pathophysiology"},
			Image: "hemorrhoid_types",
			Color: "darkred",
			Map: ConceptMap{
				Title: "Hemorrhoids",
				Sections: []Section{
					{Heading: "Classification Types", Relations: []Relation{
						{From: "External hemorrhoids", Op: "←", To: "located below dentate line", Note: "anatomical position",
							Detail: "Covered by anoderm and perianal skin with somatic innervation"},
						{From: "Internal hemorrhoids", Op: "←", To: "located above dentate line", Note: "anatomical position",
							Detail: "Covered by rectal mucosa with visceral innervation"},
						{From: "Mixed hemorrhoids", Op: "=", To: "internal + external components", Note: "combination"},
					}},
					{Heading: "Symptoms by Type", Relations: []Relation{
						{From: "External hemorrhoids", Op: "→", To: "Pain", Note: "when thrombosed"},
						{From: "Internal hemorrhoids", Op: "→", To: "Painless bleeding", Note: "common symptom"},
						{From: "Internal hemorrhoids", Op: "→", To: "Prolapse", Note: "advanced cases"},
					}},
					{Heading: "Pathophysiology", Relations: []Relation{
						{From: "Increased venous pressure", Op: "→", To: "Hemorrhoid development", Note: "causative"},
						{From: "Straining", Op: "→", To: "Increased venous pressure", Note: "mechanism"},
						{From: "Thrombosis", Op: "→", To: "Pain in external hemorrhoids", Note: "mechanism",
							Detail: "Thrombosis causes distention and inflammation of innervated perianal skin"},
					}},
				},
				Caption: "Illustration showing internal and external hemorrhoid anatomy",
			},
		},
		{
			Text: "The layers of the GI tract from innermost to outermost are: {{c1::Mucosa}} → {{c2::Submucosa}} → " +
				"{{c3::Muscularis propria}} → {{c4::Serosa/Adventitia}}",
			Tags:  []string{"anatomy", "GI_tract", "layers"},
			Image: "anatomy_diagram",
			Color: "darkblue",
			Map: ConceptMap{
				Title: "GI Tract Anatomy",
				Sections: []Section{
					{Heading: "Layer Structure (from inside out)", Relations: []Relation{
						{From: "Mucosa", Op: "→", To: "Innermost layer", Note: "location",
							Detail: "Consists of epithelium, lamina propria, and muscularis mucosae"},
						{From: "Submucosa", Op: "→", To: "Second layer", Note: "location",
							Detail: "Contains Meissner's (submucosal) plexus and blood vessels"},
						{From: "Muscularis propria", Op: "→", To: "Third layer", Note: "location",
							Detail: "Inner circular and outer longitudinal muscle layers with Auerbach's (myenteric) plexus"},
						{From: "Serosa/Adventitia", Op: "→", To: "Outermost layer", Note: "location",
							Detail: "Serosa is the visceral peritoneum, adventitia is connective tissue"},
					}},
					{Heading: "Specialized Structures", Relations: []Relation{
						{From: "Enteric nervous system", Op: "⊃", To: "Myenteric plexus", Note: "component"},
						{From: "Enteric nervous system", Op: "⊃", To: "Submucosal plexus", Note: "component"},
						{From: "Mucosa", Op: "⊃", To: "Epithelium", Note: "component"},
						{From: "Mucosa", Op: "⊃", To: "Lamina propria", Note: "component"},
					}},
					{Heading: "Clinical Relevance", Relations: []Relation{
						{From: "T1 invasion", Op: "→", To: "Submucosa", Note: "involves"},
						{From: "T2 invasion", Op: "→", To: "Muscularis propria", Note: "involves"},
						{From: "T3 invasion", Op: "→", To: "Through muscularis into subserosa", Note: "involves"},
						{From: "T4 invasion", Op: "→", To: "Serosa or adjacent organs", Note: "involves"},
					}},
				},
				Caption: "Cross-section showing layers of the intestinal wall",
			},
		},
	}
}

type SampleOptions struct {
	OutputPath string
	MediaDir   string
	Format     Format
	// DeckID overrides the random deck id when non-zero
	DeckID int64

	Logger *logger.Logger
	Now    func() time.Time
}

// SampleResult describes a written sample package.
type SampleResult struct {
	Path  string   `json:"path"`
	Notes int      `json:"notes"`
	Media []string `json:"media"`
}

// BuildSample generates the sample images into opts.MediaDir and writes the
// sample cloze deck with its concept maps to opts.OutputPath.
func BuildSample(opts SampleOptions) (*SampleResult, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.OutputPath == "" {
		opts.OutputPath = SampleOutputPath
	}
	if opts.MediaDir == "" {
		opts.MediaDir = SampleMediaDir
	}
	if opts.Format == "" {
		opts.Format = SVG
	}
	id := opts.DeckID
	if id == 0 {
		id = deck.RandomID()
	}

	if err := os.MkdirAll(opts.MediaDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating media directory: %w", err)
	}

	d := anki.NewDeck(id, SampleDeckName)
	log = log.With("deck", d.Name, "deck_id", d.ID)

	var media []string
	for _, s := range Samples() {
		path, err := GenerateImage(opts.MediaDir, s.Image, s.Color, opts.Format)
		if err != nil {
			return nil, err
		}
		log.Debug("generated sample image", "path", path)
		media = append(media, path)

		fields, err := s.Fields(opts.Format)
		if err != nil {
			return nil, err
		}
		note, err := anki.NewNote(anki.ClozeModel, fields, s.Tags)
		if err != nil {
			return nil, fmt.Errorf("error building sample note: %w", err)
		}
		d.AddNote(note)
	}

	pkg := anki.NewPackage(d)
	if opts.Now != nil {
		pkg.Now = opts.Now
	}
	pkg.MediaFiles = media
	if err := pkg.WriteToFile(opts.OutputPath); err != nil {
		return nil, err
	}

	log.Info("package generated", "path", opts.OutputPath, "notes", len(d.Notes), "media", len(media))
	return &SampleResult{Path: opts.OutputPath, Notes: len(d.Notes), Media: media}, nil
}
