// Package storage provides SQLite-backed persistence for the drop event history.
//
// The history is append-only by content: the UNIQUE index over all four event
// fields makes Merge idempotent, and every merge runs inside one transaction so
// a crash mid-write never corrupts the previously valid store. A single
// connection plus SQLite's own file locking give the run exclusive access.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/restockwatch/dropstats/internal/models"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the accepted drop events of all runs.
type Store struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/dropstats/drops.db.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "dropstats", "drops.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drop_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id   TEXT NOT NULL,
			display_name TEXT NOT NULL,
			category     TEXT NOT NULL,
			observed_at  INTEGER NOT NULL,
			UNIQUE(product_id, display_name, category, observed_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drop_events_observed_at ON drop_events(observed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the full history in arrival order, empty if none exists.
func (s *Store) Load() ([]models.DropEvent, error) {
	rows, err := s.db.Query(`SELECT ` + eventCols + ` FROM drop_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query drop events: %w", err)
	}
	defer rows.Close()

	events := []models.DropEvent{}
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drop event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LatestTime returns the maximum observed_at across stored events.
// The second return is false when the store is empty. Callers fetching new
// posts add one second to this value so the boundary event is not re-fetched
// while same-second drops are not skipped.
func (s *Store) LatestTime() (time.Time, bool, error) {
	var latest sql.NullInt64
	row := s.db.QueryRow(`SELECT MAX(observed_at) FROM drop_events`)
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(latest.Int64, 0).UTC(), true, nil
}

// Merge appends the given events, skipping any already present. All four
// fields must match for an event to count as a duplicate; duplicates within
// the batch itself are also collapsed. The whole merge commits in one
// transaction. Returns the number of events actually added.
func (s *Store) Merge(events []models.DropEvent) (int, error) {
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return 0, fmt.Errorf("invalid drop event at index %d: %w", i, err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO drop_events (product_id, display_name, category, observed_at)
		VALUES (?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for i := range events {
		e := &events[i]
		res, err := stmt.Exec(e.ProductID, e.DisplayName, e.Category, e.ObservedAt.Unix())
		if err != nil {
			return 0, fmt.Errorf("failed to insert drop event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merge: %w", err)
	}
	return added, nil
}

// Size returns the number of stored events.
func (s *Store) Size() (int, error) {
	var n int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM drop_events`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count drop events: %w", err)
	}
	return n, nil
}

const eventCols = `product_id, display_name, category, observed_at`

func scanEvent(scan func(...any) error) (models.DropEvent, error) {
	var e models.DropEvent
	var observedAtUnix int64
	if err := scan(&e.ProductID, &e.DisplayName, &e.Category, &observedAtUnix); err != nil {
		return models.DropEvent{}, err
	}
	e.ObservedAt = time.Unix(observedAtUnix, 0).UTC()
	return e, nil
}
