// Package memory provides an in-memory Ledger used by tests and dry runs.
// It mirrors the durable backends' first-write-wins semantics exactly but
// loses everything on process exit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/ledger"
)

// Ledger is a mutex-guarded map keyed by target id.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]domain.Entry
}

// New creates an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]domain.Entry)}
}

func (l *Ledger) AlreadyRecorded(_ context.Context, targetID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[targetID]
	return ok, nil
}

func (l *Ledger) Record(_ context.Context, e domain.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[e.TargetID]; ok {
		// First write wins.
		return nil
	}
	l.entries[e.TargetID] = e
	return nil
}

func (l *Ledger) History(_ context.Context) ([]domain.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out, nil
}

func (l *Ledger) Statistics(_ context.Context) (ledger.Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stats ledger.Stats
	for _, e := range l.entries {
		stats.Count(e.Status)
	}
	return stats, nil
}

func (l *Ledger) CountSuccessesSince(_ context.Context, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, e := range l.entries {
		if e.Status == domain.StatusSuccess && !e.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (l *Ledger) OldestSuccessSince(_ context.Context, since time.Time) (time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var oldest time.Time
	for _, e := range l.entries {
		if e.Status != domain.StatusSuccess || e.SentAt.Before(since) {
			continue
		}
		if oldest.IsZero() || e.SentAt.Before(oldest) {
			oldest = e.SentAt
		}
	}
	return oldest, nil
}

func (l *Ledger) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]domain.Entry)
	return nil
}

func (l *Ledger) Close() error { return nil }

var _ ledger.Ledger = (*Ledger)(nil)
