// Package ledger records every consensus decision in a SQLite database so
// review queues and recognizer accuracy can be inspected after a batch.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"captcha-solver/internal/consensus"
	"captcha-solver/internal/recognize"
)

// Ledger is an append-only decision log.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		capture        TEXT NOT NULL,
		existing_label TEXT DEFAULT '',
		final_label    TEXT DEFAULT '',
		status         TEXT NOT NULL,
		reason         TEXT DEFAULT '',
		strategy       TEXT NOT NULL,
		results_json   TEXT DEFAULT '',
		decided_at     DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions(status);
	CREATE INDEX IF NOT EXISTS idx_decisions_capture ON decisions(capture);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends one decision with the raw recognizer outputs that led to
// it.
func (l *Ledger) Record(capture, existing string, d consensus.Decision,
	strategy consensus.Strategy, results []recognize.Result) error {

	blob, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	_, err = l.db.Exec(
		`INSERT INTO decisions (capture, existing_label, final_label, status, reason, strategy, results_json, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		capture, existing, d.Label, string(d.Status), d.Reason, string(strategy),
		string(blob), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// CountByStatus returns the number of recorded decisions per status.
func (l *Ledger) CountByStatus() (map[consensus.Status]int, error) {
	rows, err := l.db.Query(`SELECT status, COUNT(*) FROM decisions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[consensus.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[consensus.Status(status)] = n
	}
	return out, rows.Err()
}

// ReviewQueue returns the capture names still waiting for a human, oldest
// first, capped at limit (0 means no cap).
func (l *Ledger) ReviewQueue(limit int) ([]string, error) {
	q := `SELECT capture FROM decisions WHERE status = ? ORDER BY decided_at`
	args := []any{string(consensus.StatusReview)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
