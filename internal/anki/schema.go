package anki

// collection.anki2 layout, schema version 11
var schemaStatements = []string{
	`CREATE TABLE col (
    id              integer primary key,
    crt             integer not null,
    mod             integer not null,
    scm             integer not null,
    ver             integer not null,
    dty             integer not null,
    usn             integer not null,
    ls              integer not null,
    conf            text not null,
    models          text not null,
    decks           text not null,
    dconf           text not null,
    tags            text not null
)`,
	`CREATE TABLE notes (
    id              integer primary key,
    guid            text not null,
    mid             integer not null,
    mod             integer not null,
    usn             integer not null,
    tags            text not null,
    flds            text not null,
    sfld            integer not null,
    csum            integer not null,
    flags           integer not null,
    data            text not null
)`,
	`CREATE TABLE cards (
    id              integer primary key,
    nid             integer not null,
    did             integer not null,
    ord             integer not null,
    mod             integer not null,
    usn             integer not null,
    type            integer not null,
    queue           integer not null,
    due             integer not null,
    ivl             integer not null,
    factor          integer not null,
    reps            integer not null,
    lapses          integer not null,
    left            integer not null,
    odue            integer not null,
    odid            integer not null,
    flags           integer not null,
    data            text not null
)`,
	`CREATE TABLE revlog (
    id              integer primary key,
    cid             integer not null,
    usn             integer not null,
    ease            integer not null,
    ivl             integer not null,
    lastIvl         integer not null,
    factor          integer not null,
    time            integer not null,
    type            integer not null
)`,
	`CREATE TABLE graves (
    usn             integer not null,
    oid             integer not null,
    type            integer not null
)`,
	`CREATE INDEX ix_notes_usn on notes (usn)`,
	`CREATE INDEX ix_cards_usn on cards (usn)`,
	`CREATE INDEX ix_revlog_usn on revlog (usn)`,
	`CREATE INDEX ix_cards_nid on cards (nid)`,
	`CREATE INDEX ix_cards_sched on cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_cid on revlog (cid)`,
	`CREATE INDEX ix_notes_csum on notes (csum)`,
}

const (
	colCreated  int64 = 1411124400
	colModified int64 = 1425279151694
	colSchema   int64 = 1425279151690
	colVersion  int64 = 11
)

const defaultColConf = `{"activeDecks": [1], "addToCur": true, "collapseTime": 1200, "curDeck": 1, "curModel": "1425279151691", ` +
	`"dueCounts": true, "estTimes": true, "newBury": true, "newSpread": 0, "nextPos": 1, "sortBackwards": false, ` +
	`"sortType": "noteFld", "timeLim": 0}`

const defaultDeckConf = `{"1": {"autoplay": true, "id": 1, "lapse": {"delays": [10], "leechAction": 0, "leechFails": 8, ` +
	`"minInt": 1, "mult": 0}, "maxTaken": 60, "mod": 0, "name": "Default", "new": {"bury": true, "delays": [1, 10], ` +
	`"initialFactor": 2500, "ints": [1, 4, 7], "order": 1, "perDay": 20, "separate": true}, "replayq": true, ` +
	`"rev": {"bury": true, "ease4": 1.3, "fuzz": 0.05, "ivlFct": 1, "maxIvl": 36500, "minSpace": 1, "perDay": 100}, ` +
	`"timer": 0, "usn": 0}}`

// defaultDeck is the "Default" deck every collection carries
var defaultDeck = deckJSON{
	Conf:      1,
	ExtendNew: 10,
	ExtendRev: 50,
	ID:        1,
	Mod:       1425279151,
	Name:      "Default",
}

type colRow struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Crt    int64  `gorm:"column:crt"`
	Mod    int64  `gorm:"column:mod"`
	Scm    int64  `gorm:"column:scm"`
	Ver    int64  `gorm:"column:ver"`
	Dty    int64  `gorm:"column:dty"`
	Usn    int64  `gorm:"column:usn"`
	Ls     int64  `gorm:"column:ls"`
	Conf   string `gorm:"column:conf"`
	Models string `gorm:"column:models"`
	Decks  string `gorm:"column:decks"`
	Dconf  string `gorm:"column:dconf"`
	Tags   string `gorm:"column:tags"`
}

func (colRow) TableName() string { return "col" }

type noteRow struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	GUID  string `gorm:"column:guid"`
	Mid   int64  `gorm:"column:mid"`
	Mod   int64  `gorm:"column:mod"`
	Usn   int64  `gorm:"column:usn"`
	Tags  string `gorm:"column:tags"`
	Flds  string `gorm:"column:flds"`
	Sfld  string `gorm:"column:sfld"`
	Csum  int64  `gorm:"column:csum"`
	Flags int64  `gorm:"column:flags"`
	Data  string `gorm:"column:data"`
}

func (noteRow) TableName() string { return "notes" }

type cardRow struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Nid    int64  `gorm:"column:nid"`
	Did    int64  `gorm:"column:did"`
	Ord    int64  `gorm:"column:ord"`
	Mod    int64  `gorm:"column:mod"`
	Usn    int64  `gorm:"column:usn"`
	Type   int64  `gorm:"column:type"`
	Queue  int64  `gorm:"column:queue"`
	Due    int64  `gorm:"column:due"`
	Ivl    int64  `gorm:"column:ivl"`
	Factor int64  `gorm:"column:factor"`
	Reps   int64  `gorm:"column:reps"`
	Lapses int64  `gorm:"column:lapses"`
	Left   int64  `gorm:"column:left"`
	Odue   int64  `gorm:"column:odue"`
	Odid   int64  `gorm:"column:odid"`
	Flags  int64  `gorm:"column:flags"`
	Data   string `gorm:"column:data"`
}

func (cardRow) TableName() string { return "cards" }
