package results

import (
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/qberlab/qkdsim/qkd"
)

const schema = `
CREATE TABLE IF NOT EXISTS trials (
	run_id      TEXT NOT NULL,
	trial       INTEGER NOT NULL,
	qber        REAL NOT NULL,
	ber         REAL,
	sifted_bits INTEGER NOT NULL,
	PRIMARY KEY (run_id, trial)
);`

// A Store persists structured trial records to SQLite, keyed by run id. The
// text Writer remains the canonical output; the store exists for querying
// runs after the fact.
type Store struct {
	db    *sql.DB
	runID string
}

// NewStore opens (or creates) the database at path and ensures the schema
// exists. Records are tagged with runID.
func NewStore(path, runID string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging result store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trials table: %w", err)
	}
	return &Store{db: db, runID: runID}, nil
}

// Record implements the qkd.Sink interface.
func (s *Store) Record(trial int, t qkd.Trial) error {
	var ber any
	if !math.IsNaN(t.BER) {
		ber = t.BER
	}
	_, err := s.db.Exec(
		`INSERT INTO trials (run_id, trial, qber, ber, sifted_bits) VALUES (?, ?, ?, ?, ?)`,
		s.runID, trial, t.QBER, ber, t.SiftedResults.Size(),
	)
	if err != nil {
		return fmt.Errorf("inserting trial %d: %w", trial, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
