// Package redis provides an alternate Ledger backend for operators who
// already run a Redis instance with persistence enabled. Semantics are
// identical to the SQLite backend: first write per target id wins, entries
// are never updated, Clear is the only delete.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/ledger"
)

// Ledger stores entries as JSON values plus two sorted-set time indexes.
type Ledger struct {
	client *goredis.Client
}

// New creates a Redis-backed ledger on an already-connected client.
func New(client *goredis.Client) *Ledger {
	return &Ledger{client: client}
}

func (l *Ledger) AlreadyRecorded(ctx context.Context, targetID string) (bool, error) {
	n, err := l.client.Exists(ctx, EntryKey(targetID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check entry existence: %w", err)
	}
	return n > 0, nil
}

func (l *Ledger) Record(ctx context.Context, e domain.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	// SetNX is the first-write-wins gate. The ledger is single-writer, so
	// indexing after a successful claim cannot race another Record for the
	// same target id.
	claimed, err := l.client.SetNX(ctx, EntryKey(e.TargetID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to record entry for %s: %w", e.TargetID, err)
	}
	if !claimed {
		return nil
	}

	score := float64(e.SentAt.UTC().UnixMilli())
	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, EntriesByTimeKey(), goredis.Z{Score: score, Member: e.TargetID})
	if e.Status == domain.StatusSuccess {
		pipe.ZAdd(ctx, SuccessesByTimeKey(), goredis.Z{Score: score, Member: e.TargetID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index entry for %s: %w", e.TargetID, err)
	}
	return nil
}

func (l *Ledger) History(ctx context.Context) ([]domain.Entry, error) {
	ids, err := l.client.ZRevRange(ctx, EntriesByTimeKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entry index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = EntryKey(id)
	}

	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	entries := make([]domain.Entry, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index and value drifted apart (e.g. manual key deletion).
			continue
		}
		var e domain.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %s: %w", ids[i], err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *Ledger) Statistics(ctx context.Context) (ledger.Stats, error) {
	entries, err := l.History(ctx)
	if err != nil {
		return ledger.Stats{}, err
	}
	var stats ledger.Stats
	for _, e := range entries {
		stats.Count(e.Status)
	}
	return stats, nil
}

func (l *Ledger) CountSuccessesSince(ctx context.Context, since time.Time) (int, error) {
	min := strconv.FormatInt(since.UTC().UnixMilli(), 10)
	n, err := l.client.ZCount(ctx, SuccessesByTimeKey(), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count successes: %w", err)
	}
	return int(n), nil
}

func (l *Ledger) OldestSuccessSince(ctx context.Context, since time.Time) (time.Time, error) {
	min := strconv.FormatInt(since.UTC().UnixMilli(), 10)
	zs, err := l.client.ZRangeByScoreWithScores(ctx, SuccessesByTimeKey(), &goredis.ZRangeBy{
		Min:    min,
		Max:    "+inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query oldest success: %w", err)
	}
	if len(zs) == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(int64(zs[0].Score)).UTC(), nil
}

func (l *Ledger) Clear(ctx context.Context) error {
	ids, err := l.client.ZRange(ctx, EntriesByTimeKey(), 0, -1).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to read entry index: %w", err)
	}

	pipe := l.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, EntryKey(id))
	}
	pipe.Del(ctx, EntriesByTimeKey(), SuccessesByTimeKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.client.Close()
}

var _ ledger.Ledger = (*Ledger)(nil)
