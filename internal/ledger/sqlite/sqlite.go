// Package sqlite provides the default durable Ledger backend.
//
// The store is append-only: no UPDATE statement exists, the only DELETE
// is the explicit Clear maintenance operation, and the UNIQUE constraint
// on target_id combined with INSERT OR IGNORE makes Record idempotent
// under replay and resume.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/ledger"
	"github.com/jmallet/outreach/internal/utils"
)

// Ledger is a SQLite-backed outcome store.
type Ledger struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database in tests.
func New(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// The ledger is single-writer; a second connection would only add
	// locking surprises.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id TEXT UNIQUE NOT NULL,
		url TEXT NOT NULL,
		display_name TEXT,
		job_title TEXT,
		company TEXT,
		sent_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_entries_status_sent_at
		ON entries(status, sent_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *Ledger) AlreadyRecorded(ctx context.Context, targetID string) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE target_id = ?`, targetID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return count > 0, nil
}

func (l *Ledger) Record(ctx context.Context, e domain.Entry) error {
	// INSERT OR IGNORE keeps the first entry for a target_id; a duplicate
	// write is absorbed here and never surfaces to the orchestrator.
	_, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO entries (
			target_id, url, display_name, job_title,
			company, sent_at, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TargetID,
		e.URL,
		nullable(e.DisplayName),
		nullable(e.JobTitle),
		nullable(e.Company),
		e.SentAt.UTC(),
		string(e.Status),
		nullable(e.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to record entry for %s: %w", e.TargetID, err)
	}
	return nil
}

func (l *Ledger) History(ctx context.Context) ([]domain.Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT target_id, url, display_name, job_title,
		       company, sent_at, status, error_message
		FROM entries
		ORDER BY sent_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer utils.Close(rows)

	var entries []domain.Entry
	for rows.Next() {
		var (
			e                                   domain.Entry
			displayName, jobTitle, company, msg sql.NullString
			status                              string
		)
		if err := rows.Scan(&e.TargetID, &e.URL, &displayName, &jobTitle,
			&company, &e.SentAt, &status, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.DisplayName = displayName.String
		e.JobTitle = jobTitle.String
		e.Company = company.String
		e.ErrorMessage = msg.String
		e.Status = domain.Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

func (l *Ledger) Statistics(ctx context.Context) (ledger.Stats, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM entries GROUP BY status`)
	if err != nil {
		return ledger.Stats{}, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer utils.Close(rows)

	var stats ledger.Stats
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return ledger.Stats{}, fmt.Errorf("failed to scan statistics: %w", err)
		}
		stats.Total += count
		switch domain.Status(status) {
		case domain.StatusSuccess:
			stats.Success = count
		case domain.StatusAlreadyConnected:
			stats.AlreadyConnected = count
		case domain.StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return ledger.Stats{}, fmt.Errorf("failed to read statistics: %w", err)
	}
	return stats, nil
}

func (l *Ledger) CountSuccessesSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries
		WHERE status = ? AND sent_at >= ?`,
		string(domain.StatusSuccess), since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count successes: %w", err)
	}
	return count, nil
}

func (l *Ledger) OldestSuccessSince(ctx context.Context, since time.Time) (time.Time, error) {
	var sentAt time.Time
	err := l.db.QueryRowContext(ctx, `
		SELECT sent_at FROM entries
		WHERE status = ? AND sent_at >= ?
		ORDER BY sent_at ASC
		LIMIT 1`,
		string(domain.StatusSuccess), since.UTC(),
	).Scan(&sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query oldest success: %w", err)
	}
	return sentAt, nil
}

func (l *Ledger) Clear(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ ledger.Ledger = (*Ledger)(nil)
