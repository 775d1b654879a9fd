package storage

import (
	"context"
	"fmt"
	"time"

	"repoedit/internal/apply"
)

// DefaultHistoryLimit caps List when no limit is given.
const DefaultHistoryLimit = 50

// JournalEntry is one recorded per-file result.
type JournalEntry struct {
	ID        int64     `json:"id"`
	BatchID   string    `json:"batchId"`
	File      string    `json:"file"`
	Action    string    `json:"action,omitempty"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
	Version   string    `json:"version,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Journal records apply results. It satisfies apply.Journal.
type Journal struct {
	db  *DB
	now func() time.Time
}

// NewJournal creates a journal backed by db.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db, now: time.Now}
}

// Record appends one result under batchID.
func (j *Journal) Record(ctx context.Context, batchID string, res apply.Result) error {
	success := 0
	if res.Success {
		success = 1
	}
	_, err := j.db.conn.ExecContext(ctx, `
		INSERT INTO apply_journal (batch_id, file, action, success, error_code, error, version, commit_sha, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, batchID, res.File, string(res.Action), success, string(res.Code), res.Error,
		string(res.Version), res.Commit, j.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

const selectEntries = `
	SELECT id, batch_id, file, action, success, error_code, error, version, commit_sha, created_at
	FROM apply_journal
`

// List returns the most recent entries, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return j.query(ctx, selectEntries+"ORDER BY id DESC LIMIT ?", limit)
}

// Batch returns every entry recorded under batchID in insertion order.
func (j *Journal) Batch(ctx context.Context, batchID string) ([]JournalEntry, error) {
	return j.query(ctx, selectEntries+"WHERE batch_id = ? ORDER BY id ASC", batchID)
}

func (j *Journal) query(ctx context.Context, query string, args ...interface{}) ([]JournalEntry, error) {
	rows, err := j.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var (
			e       JournalEntry
			success int
			created string
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &e.File, &e.Action, &success,
			&e.ErrorCode, &e.Error, &e.Version, &e.Commit, &created); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Success = success == 1
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
