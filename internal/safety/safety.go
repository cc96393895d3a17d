// Package safety enforces the daily and weekly outbound request quotas.
//
// The manager is a pure query layer over the ledger: every check reads the
// store freshly, so counts always reflect all entries written so far in
// the same run. Nothing here has side effects.
package safety

import (
	"context"
	"fmt"
	"time"
)

// LedgerReader is the read-only slice of the ledger the manager needs.
type LedgerReader interface {
	CountSuccessesSince(ctx context.Context, since time.Time) (int, error)
	OldestSuccessSince(ctx context.Context, since time.Time) (time.Time, error)
}

const weeklyWindow = 7 * 24 * time.Hour

// Manager answers "can I act now?" and "when can I act next?" against two
// rolling windows: since local midnight (daily) and trailing 7 days
// (weekly, not calendar-aligned).
type Manager struct {
	ledger      LedgerReader
	dailyLimit  int
	weeklyLimit int
	now         func() time.Time
}

// QuotaStatus is a point-in-time view of both windows.
type QuotaStatus struct {
	DailyUsed       int `json:"daily_used"`
	DailyLimit      int `json:"daily_limit"`
	DailyRemaining  int `json:"daily_remaining"`
	WeeklyUsed      int `json:"weekly_used"`
	WeeklyLimit     int `json:"weekly_limit"`
	WeeklyRemaining int `json:"weekly_remaining"`
}

// CanSend reports whether both gates are open.
func (q QuotaStatus) CanSend() bool {
	return q.DailyRemaining > 0 && q.WeeklyRemaining > 0
}

// New creates a quota manager. Limits must be positive.
func New(l LedgerReader, dailyLimit, weeklyLimit int, now func() time.Time) (*Manager, error) {
	if dailyLimit <= 0 {
		return nil, fmt.Errorf("daily limit must be positive, got %d", dailyLimit)
	}
	if weeklyLimit <= 0 {
		return nil, fmt.Errorf("weekly limit must be positive, got %d", weeklyLimit)
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		ledger:      l,
		dailyLimit:  dailyLimit,
		weeklyLimit: weeklyLimit,
		now:         now,
	}, nil
}

// usedToday counts successes since local midnight.
func (m *Manager) usedToday(ctx context.Context) (int, error) {
	return m.ledger.CountSuccessesSince(ctx, m.dayStart())
}

// usedThisWeek counts successes in the trailing 7-day window.
func (m *Manager) usedThisWeek(ctx context.Context) (int, error) {
	return m.ledger.CountSuccessesSince(ctx, m.now().Add(-weeklyWindow))
}

// CanAct reports whether one more request may be sent right now. Equality
// to a limit blocks: with 2 successes today and a daily limit of 2, the
// answer is no.
func (m *Manager) CanAct(ctx context.Context) (bool, string, error) {
	today, err := m.usedToday(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to read daily usage: %w", err)
	}
	if today >= m.dailyLimit {
		return false, fmt.Sprintf("daily limit reached (%d/%d)", today, m.dailyLimit), nil
	}

	week, err := m.usedThisWeek(ctx)
	if err != nil {
		return false, "", fmt.Errorf("failed to read weekly usage: %w", err)
	}
	if week >= m.weeklyLimit {
		return false, fmt.Sprintf("weekly limit reached (%d/%d)", week, m.weeklyLimit), nil
	}

	return true, "ok", nil
}

// QuotaStatus returns current usage against both windows.
func (m *Manager) QuotaStatus(ctx context.Context) (QuotaStatus, error) {
	today, err := m.usedToday(ctx)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("failed to read daily usage: %w", err)
	}
	week, err := m.usedThisWeek(ctx)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("failed to read weekly usage: %w", err)
	}

	return QuotaStatus{
		DailyUsed:       today,
		DailyLimit:      m.dailyLimit,
		DailyRemaining:  remaining(m.dailyLimit, today),
		WeeklyUsed:      week,
		WeeklyLimit:     m.weeklyLimit,
		WeeklyRemaining: remaining(m.weeklyLimit, week),
	}, nil
}

// NextEligibleAt estimates when the next request becomes possible.
// Daily-blocked: the next local midnight. Weekly-blocked: the oldest
// in-window success plus 7 days. Both gates open: now.
func (m *Manager) NextEligibleAt(ctx context.Context) (time.Time, error) {
	status, err := m.QuotaStatus(ctx)
	if err != nil {
		return time.Time{}, err
	}

	if status.DailyRemaining == 0 {
		return m.dayStart().Add(24 * time.Hour), nil
	}

	if status.WeeklyRemaining == 0 {
		oldest, err := m.ledger.OldestSuccessSince(ctx, m.now().Add(-weeklyWindow))
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to find oldest in-window success: %w", err)
		}
		if oldest.IsZero() {
			// Counted entries but no oldest means the window emptied
			// between the two reads; treat as open.
			return m.now(), nil
		}
		return oldest.Add(weeklyWindow), nil
	}

	return m.now(), nil
}

// dayStart returns today's local midnight.
func (m *Manager) dayStart() time.Time {
	now := m.now()
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
