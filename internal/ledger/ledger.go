package ledger

import (
	"context"
	"time"

	"github.com/jmallet/outreach/internal/domain"
)

// Ledger is the durable, append-only outcome store. It is the single
// source of truth for dedup and quota accounting: the safety manager and
// the orchestrator only read derived counts from it, never cache them.
//
// Implementations must guarantee:
//   - Record is an atomic single-entry insert.
//   - The first write for a TargetID wins; later writes are silent no-ops.
//   - No entry is ever updated or deleted outside Clear.
type Ledger interface {
	// AlreadyRecorded reports whether any entry exists for the id,
	// regardless of status. A prior failed attempt also counts as
	// contacted (no-retry policy).
	AlreadyRecorded(ctx context.Context, targetID string) (bool, error)

	// Record inserts one entry. If an entry with the same TargetID already
	// exists the call succeeds without writing anything.
	Record(ctx context.Context, e domain.Entry) error

	// History returns all entries sorted by SentAt descending.
	History(ctx context.Context) ([]domain.Entry, error)

	// Statistics returns counts by status plus the total.
	Statistics(ctx context.Context) (Stats, error)

	// CountSuccessesSince counts StatusSuccess entries with SentAt >= since.
	CountSuccessesSince(ctx context.Context, since time.Time) (int, error)

	// OldestSuccessSince returns the SentAt of the oldest StatusSuccess
	// entry with SentAt >= since, or the zero time when there is none.
	OldestSuccessSince(ctx context.Context, since time.Time) (time.Time, error)

	// Clear removes all entries. Explicit maintenance only; never called
	// by normal orchestration.
	Clear(ctx context.Context) error

	Close() error
}

// Stats holds simple counts by status.
type Stats struct {
	Total            int `json:"total"`
	Success          int `json:"success"`
	AlreadyConnected int `json:"already_connected"`
	Failed           int `json:"failed"`
}

// Count adds one entry with the given status to the stats.
func (s *Stats) Count(status domain.Status) {
	s.Total++
	switch status {
	case domain.StatusSuccess:
		s.Success++
	case domain.StatusAlreadyConnected:
		s.AlreadyConnected++
	case domain.StatusFailed:
		s.Failed++
	}
}
