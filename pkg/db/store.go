package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yumyai/recombmap/internal/util"
	"github.com/yumyai/recombmap/pkg/genotype"

	_ "modernc.org/sqlite"
)

// Defining possible error
var ErrSnapshotNotExists = errors.New("haplotype snapshot does not exist")

type CorruptSnapshotError struct {
	ID  string
	Msg string // additional context for the error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s: %s", e.ID, e.Msg)
}

const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		taxa       INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS haplotypes (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
		taxon       TEXT NOT NULL,
		hap0        BLOB NOT NULL,
		hap1        BLOB NOT NULL,
		PRIMARY KEY (snapshot_id, taxon)
	);
`

// HaplotypeStore keeps whole phased haplotype mappings as immutable
// snapshots in a sqlite database.
type HaplotypeStore struct {
	db *sql.DB
}

// Snapshot describes one saved mapping.
type Snapshot struct {
	ID      string
	Created time.Time
	Taxa    int
}

// Open opens (creating when needed) the store at path.
func Open(ctx context.Context, path string) (*HaplotypeStore, error) {
	if err := util.EnsureParentDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return NewHaplotypeStore(ctx, db)
}

// NewHaplotypeStore wraps an open database and makes sure the tables exist.
func NewHaplotypeStore(ctx context.Context, db *sql.DB) (*HaplotypeStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create haplotype schema: %w", err)
	}
	return &HaplotypeStore{db: db}, nil
}

func (hs *HaplotypeStore) Close() error {
	return hs.db.Close()
}

// Save writes the whole mapping as a new snapshot and returns its id.
func (hs *HaplotypeStore) Save(ctx context.Context, haps genotype.Haplotypes) (string, error) {
	id := uuid.NewString()

	taxa := make([]string, 0, len(haps))
	for name, h := range haps {
		if len(h[0]) != len(h[1]) {
			return "", fmt.Errorf("%w: taxon %s has haplotypes of length %d and %d",
				genotype.ErrMalformedInput, name, len(h[0]), len(h[1]))
		}
		taxa = append(taxa, name)
	}
	sort.Strings(taxa)

	tx, err := hs.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, taxa) VALUES (?, ?, ?);`,
		id, time.Now().UTC().Format(time.RFC3339Nano), len(taxa)); err != nil {
		return "", err
	}

	stm, err := tx.PrepareContext(ctx, `INSERT INTO haplotypes (snapshot_id, taxon, hap0, hap1) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return "", err
	}
	defer stm.Close()

	for _, name := range taxa {
		h := haps[name]
		if _, err := stm.ExecContext(ctx, id, name, nonNil(h[0]), nonNil(h[1])); err != nil {
			return "", fmt.Errorf("save taxon %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Restore reads back a snapshot. An empty id selects the latest one.
func (hs *HaplotypeStore) Restore(ctx context.Context, id string) (genotype.Haplotypes, string, error) {
	var want int
	var err error
	if id == "" {
		err = hs.db.QueryRowContext(ctx, `SELECT id, taxa FROM snapshots ORDER BY seq DESC LIMIT 1;`).Scan(&id, &want)
	} else {
		err = hs.db.QueryRowContext(ctx, `SELECT taxa FROM snapshots WHERE id = ?;`, id).Scan(&want)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if id == "" {
			return nil, "", fmt.Errorf("%w: store is empty", ErrSnapshotNotExists)
		}
		return nil, "", fmt.Errorf("%w: %s", ErrSnapshotNotExists, id)
	}
	if err != nil {
		return nil, "", err
	}

	stm, err := hs.db.PrepareContext(ctx, `SELECT taxon, hap0, hap1 FROM haplotypes WHERE snapshot_id = ?;`)
	if err != nil {
		return nil, "", err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, id)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	haps := make(genotype.Haplotypes, want)
	for rows.Next() {
		var name string
		var h0, h1 []byte
		if err := rows.Scan(&name, &h0, &h1); err != nil {
			return nil, "", err
		}
		haps[name] = [2][]byte{nonNil(h0), nonNil(h1)}
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	if len(haps) != want {
		return nil, "", &CorruptSnapshotError{ID: id, Msg: fmt.Sprintf("expected %d taxa, found %d", want, len(haps))}
	}
	return haps, id, nil
}

// List returns every snapshot, oldest first.
func (hs *HaplotypeStore) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := hs.db.QueryContext(ctx, `SELECT id, created_at, taxa FROM snapshots ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var created string
		if err := rows.Scan(&s.ID, &created, &s.Taxa); err != nil {
			return nil, err
		}
		if s.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, &CorruptSnapshotError{ID: s.ID, Msg: err.Error()}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
