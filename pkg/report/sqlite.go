package report

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gofhir/txaudit/pkg/result"
)

const sqliteSchema = `
CREATE TABLE runs (
	run_id   TEXT PRIMARY KEY,
	endpoint TEXT NOT NULL,
	started  TEXT NOT NULL,
	finished TEXT NOT NULL
);
CREATE TABLE results (
	run_id           TEXT NOT NULL REFERENCES runs(run_id),
	seq              INTEGER NOT NULL,
	file             TEXT NOT NULL,
	resource_id      TEXT NOT NULL,
	path             TEXT NOT NULL,
	code             TEXT,
	display_provided TEXT,
	text_context     TEXT,
	system           TEXT,
	result           TEXT NOT NULL,
	reason           TEXT NOT NULL,
	status_code      INTEGER,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX idx_results_result ON results(result);
`

// WriteSQLite writes the run and its results to a new SQLite database at
// path, replacing any existing file.
func WriteSQLite(path string, meta Meta, rows []result.ValidationResult) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, endpoint, started, finished) VALUES (?, ?, ?, ?)`,
		meta.RunID, meta.Endpoint, meta.Started.Format(time.RFC3339), meta.Finished.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(run_id, seq, file, resource_id, path, code, display_provided, text_context, system, result, reason, status_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.Exec(
			meta.RunID, i, r.File, r.ResourceID, r.Path,
			nullString(r.Code), nullString(r.DisplayProvided), nullString(r.TextContext), nullString(r.System),
			string(r.Result), r.Reason, nullInt(r.StatusCode),
		); err != nil {
			return fmt.Errorf("inserting result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
