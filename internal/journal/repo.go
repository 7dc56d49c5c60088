package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
)

// ErrAmbiguousRun is returned by Get when an ID prefix matches several runs.
var ErrAmbiguousRun = errors.New("journal: run id prefix is ambiguous")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GalleryRun holds the counts of one gallery within a run.
type GalleryRun struct {
	Gallery   string
	Processed int
	Skipped   int
	Errors    int
	Orphans   int
}

// Failure is one item that failed during a run.
type Failure struct {
	Gallery string
	ItemID  string
	Message string
}

// Run is one build invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Forced     bool
	Processed  int
	Skipped    int
	Errors     int
	Orphans    int
	Galleries  []GalleryRun
	Failures   []Failure
}

// Record stores run, its galleries and failures within a transaction. An
// empty ID is replaced with a fresh UUID, which is returned.
func (db *DB) Record(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, forced, processed, skipped, errors, orphans)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Forced, run.Processed, run.Skipped, run.Errors, run.Orphans)
	if err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}

	if len(run.Galleries) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO gallery_runs (run_id, gallery, processed, skipped, errors, orphans) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("journal: prepare gallery insert: %w", err)
		}
		defer stmt.Close()
		for _, g := range run.Galleries {
			if _, err := stmt.Exec(run.ID, g.Gallery, g.Processed, g.Skipped, g.Errors, g.Orphans); err != nil {
				return "", fmt.Errorf("journal: insert gallery run: %w", err)
			}
		}
	}

	if len(run.Failures) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO item_failures (run_id, gallery, item_id, message) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("journal: prepare failure insert: %w", err)
		}
		defer stmt.Close()
		for _, f := range run.Failures {
			if _, err := stmt.Exec(run.ID, f.Gallery, f.ItemID, f.Message); err != nil {
				return "", fmt.Errorf("journal: insert failure: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("journal: commit: %w", err)
	}
	return run.ID, nil
}

// Recent returns the latest runs, newest first, without galleries or failures.
func (db *DB) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, forced, processed, skipped, errors, orphans
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Forced, &r.Processed, &r.Skipped, &r.Errors, &r.Orphans); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Galleries returns the per-gallery counts of a run, by gallery name.
func (db *DB) Galleries(runID string) ([]GalleryRun, error) {
	rows, err := db.conn.Query(`
		SELECT gallery, processed, skipped, errors, orphans
		FROM gallery_runs WHERE run_id = ? ORDER BY gallery
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: galleries: %w", err)
	}
	defer rows.Close()

	var out []GalleryRun
	for rows.Next() {
		var g GalleryRun
		if err := rows.Scan(&g.Gallery, &g.Processed, &g.Skipped, &g.Errors, &g.Orphans); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Failures returns the failed items of a run.
func (db *DB) Failures(runID string) ([]Failure, error) {
	rows, err := db.conn.Query(`
		SELECT gallery, item_id, message
		FROM item_failures WHERE run_id = ? ORDER BY gallery, item_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Gallery, &f.ItemID, &f.Message); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Get returns one run with its galleries and failures. id may be a unique
// prefix of the run ID, as shown by the history table.
func (db *DB) Get(id string) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("journal: run %w", apperr.ErrNotFound)
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, forced, processed, skipped, errors, orphans
		FROM runs
		WHERE id LIKE ? ESCAPE '\'
		ORDER BY started_at DESC
		LIMIT 2
	`, likeEscaper.Replace(id)+"%")
	if err != nil {
		return Run{}, fmt.Errorf("journal: get: %w", err)
	}

	var matches []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Forced, &r.Processed, &r.Skipped, &r.Errors, &r.Orphans); err != nil {
			rows.Close()
			return Run{}, err
		}
		matches = append(matches, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}

	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("journal: run %q %w", id, apperr.ErrNotFound)
	case 2:
		return Run{}, fmt.Errorf("%w: %q", ErrAmbiguousRun, id)
	}

	run := matches[0]
	if run.Galleries, err = db.Galleries(run.ID); err != nil {
		return Run{}, err
	}
	if run.Failures, err = db.Failures(run.ID); err != nil {
		return Run{}, err
	}
	return run, nil
}
