// Package journal records every server run the launcher starts in a small
// SQLite database, so the GUI can show when and how the server last exited.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database name inside the config dir.
const FileName = "runs.db"

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one server process lifetime.
type Run struct {
	ID          string     `json:"id"`
	LaunchPath  string     `json:"launch_path"`
	Interpreter string     `json:"interpreter"`
	PID         int        `json:"pid"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	ExitCode    *int       `json:"exit_code,omitempty"`
}

// Store persists runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// The exit observer and the GUI query from different goroutines.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		launch_path TEXT NOT NULL,
		interpreter TEXT NOT NULL,
		pid INTEGER,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		exit_code INTEGER
	);
	CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a started run. An empty ID is replaced by a fresh uuid and a
// zero StartedAt by the current time; the stored run is returned.
func (s *Store) Begin(run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	_, err := s.db.Exec(`INSERT INTO runs (id, launch_path, interpreter, pid, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.LaunchPath, run.Interpreter, run.PID, run.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Finish marks a run as ended. A nil code means the process had no exit code,
// for example because a signal killed it.
func (s *Store) Finish(id string, code *int, at time.Time) error {
	var exit sql.NullInt64
	if code != nil {
		exit = sql.NullInt64{Int64: int64(*code), Valid: true}
	}
	res, err := s.db.Exec(`UPDATE runs SET ended_at = ?, exit_code = ? WHERE id = ?`, at.UTC(), exit, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a single run.
func (s *Store) Get(id string) (Run, error) {
	row := s.db.QueryRow(`SELECT id, launch_path, interpreter, pid, started_at, ended_at, exit_code FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, launch_path, interpreter, pid, started_at, ended_at, exit_code
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune keeps the newest keep runs and deletes the rest.
func (s *Store) Prune(keep int) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id NOT IN (
		SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run   Run
		pid   sql.NullInt64
		ended sql.NullTime
		code  sql.NullInt64
	)
	if err := row.Scan(&run.ID, &run.LaunchPath, &run.Interpreter, &pid, &run.StartedAt, &ended, &code); err != nil {
		return Run{}, err
	}
	run.PID = int(pid.Int64)
	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	if code.Valid {
		c := int(code.Int64)
		run.ExitCode = &c
	}
	return run, nil
}
