package anki

// Deck is a named collection of notes written into one package
type Deck struct {
	ID          int64
	Name        string
	Description string
	Notes       []*Note
}

func NewDeck(id int64, name string) *Deck {
	return &Deck{ID: id, Name: name}
}

func (d *Deck) AddNote(n *Note) {
	d.Notes = append(d.Notes, n)
}

// Models returns the distinct models used by the deck's notes, in first-use order.
func (d *Deck) Models() []*Model {
	seen := map[int64]struct{}{}
	var models []*Model
	for _, n := range d.Notes {
		if _, ok := seen[n.Model.ID]; ok {
			continue
		}
		seen[n.Model.ID] = struct{}{}
		models = append(models, n.Model)
	}
	return models
}

type deckJSON struct {
	Collapsed bool     `json:"collapsed"`
	Conf      int64    `json:"conf"`
	Desc      string   `json:"desc"`
	Dyn       int      `json:"dyn"`
	ExtendNew int      `json:"extendNew"`
	ExtendRev int      `json:"extendRev"`
	ID        int64    `json:"id"`
	LrnToday  [2]int64 `json:"lrnToday"`
	Mod       int64    `json:"mod"`
	Name      string   `json:"name"`
	NewToday  [2]int64 `json:"newToday"`
	RevToday  [2]int64 `json:"revToday"`
	TimeToday [2]int64 `json:"timeToday"`
	Usn       int      `json:"usn"`
}

func (d *Deck) toJSON() deckJSON {
	return deckJSON{
		Conf:      1,
		Desc:      d.Description,
		ExtendRev: 50,
		ID:        d.ID,
		LrnToday:  [2]int64{163, 2},
		Mod:       1425278051,
		Name:      d.Name,
		NewToday:  [2]int64{163, 2},
		RevToday:  [2]int64{163, 0},
		TimeToday: [2]int64{163, 23189},
		Usn:       -1,
	}
}
