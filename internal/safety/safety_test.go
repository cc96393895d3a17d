package safety

import (
	"context"
	"testing"
	"time"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/ledger/memory"
)

// fixedNow is 15:00 local time so the daily window spans 15 hours back.
var fixedNow = time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func recordSuccess(t *testing.T, l *memory.Ledger, id string, sentAt time.Time) {
	t.Helper()
	err := l.Record(context.Background(), domain.Entry{
		TargetID: id,
		URL:      "https://example.com/in/" + id + "/",
		SentAt:   sentAt,
		Status:   domain.StatusSuccess,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
}

func TestNewRejectsBadLimits(t *testing.T) {
	l := memory.New()
	if _, err := New(l, 0, 80, clock); err == nil {
		t.Error("expected error for zero daily limit")
	}
	if _, err := New(l, 20, -1, clock); err == nil {
		t.Error("expected error for negative weekly limit")
	}
}

func TestCanActDailyBoundary(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 2, 80, clock)
	if err != nil {
		t.Fatal(err)
	}

	allowed, reason, err := m.CanAct(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatalf("empty ledger should allow, got %q", reason)
	}

	recordSuccess(t, l, "a", fixedNow.Add(-2*time.Hour))
	allowed, _, err = m.CanAct(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Error("1 of 2 used today should still allow")
	}

	recordSuccess(t, l, "b", fixedNow.Add(-time.Hour))
	allowed, reason, err = m.CanAct(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Equality blocks: 2 successes against a limit of 2.
	if allowed {
		t.Error("2 of 2 used today should block")
	}
	if reason != "daily limit reached (2/2)" {
		t.Errorf("reason = %q", reason)
	}
}

func TestCanActIgnoresYesterdaySuccesses(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 2, 80, clock)
	if err != nil {
		t.Fatal(err)
	}

	// Before local midnight: outside the daily window, inside the weekly one.
	recordSuccess(t, l, "yesterday-1", fixedNow.Add(-16*time.Hour))
	recordSuccess(t, l, "yesterday-2", fixedNow.Add(-17*time.Hour))

	allowed, _, err := m.CanAct(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Error("yesterday's successes must not count against today")
	}

	status, err := m.QuotaStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.DailyUsed != 0 || status.WeeklyUsed != 2 {
		t.Errorf("daily=%d weekly=%d, want 0 and 2", status.DailyUsed, status.WeeklyUsed)
	}
}

func TestCanActWeeklyBlock(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 20, 3, clock)
	if err != nil {
		t.Fatal(err)
	}

	// Spread over the trailing week, none today.
	recordSuccess(t, l, "w1", fixedNow.Add(-6*24*time.Hour))
	recordSuccess(t, l, "w2", fixedNow.Add(-4*24*time.Hour))
	recordSuccess(t, l, "w3", fixedNow.Add(-2*24*time.Hour))

	allowed, reason, err := m.CanAct(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("weekly limit reached should block")
	}
	if reason != "weekly limit reached (3/3)" {
		t.Errorf("reason = %q", reason)
	}
}

func TestWeeklyWindowExcludesOldSuccesses(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 20, 2, clock)
	if err != nil {
		t.Fatal(err)
	}

	recordSuccess(t, l, "ancient", fixedNow.Add(-8*24*time.Hour))
	recordSuccess(t, l, "recent", fixedNow.Add(-24*time.Hour))

	status, err := m.QuotaStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.WeeklyUsed != 1 {
		t.Errorf("weekly used = %d, want 1 (8-day-old success must roll out)", status.WeeklyUsed)
	}
}

func TestQuotaStatusRemainingNeverNegative(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 1, 1, clock)
	if err != nil {
		t.Fatal(err)
	}

	recordSuccess(t, l, "a", fixedNow.Add(-time.Hour))
	recordSuccess(t, l, "b", fixedNow.Add(-2*time.Hour))

	status, err := m.QuotaStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.DailyRemaining != 0 || status.WeeklyRemaining != 0 {
		t.Errorf("remaining must clamp at 0: %+v", status)
	}
	if status.CanSend() {
		t.Error("CanSend() must be false with both windows exhausted")
	}
}

func TestNextEligibleAtDailyBlocked(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 1, 80, clock)
	if err != nil {
		t.Fatal(err)
	}

	recordSuccess(t, l, "a", fixedNow.Add(-time.Hour))

	next, err := m.NextEligibleAt(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next eligible = %v, want next local midnight %v", next, want)
	}
}

func TestNextEligibleAtWeeklyBlocked(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 20, 2, clock)
	if err != nil {
		t.Fatal(err)
	}

	oldest := fixedNow.Add(-6 * 24 * time.Hour)
	recordSuccess(t, l, "oldest", oldest)
	recordSuccess(t, l, "newer", fixedNow.Add(-3*24*time.Hour))

	next, err := m.NextEligibleAt(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Eligibility returns when the oldest in-window success rolls out.
	if want := oldest.Add(7 * 24 * time.Hour); !next.Equal(want) {
		t.Errorf("next eligible = %v, want %v", next, want)
	}
}

func TestNextEligibleAtOpen(t *testing.T) {
	ctx := context.Background()
	m, err := New(memory.New(), 20, 80, clock)
	if err != nil {
		t.Fatal(err)
	}

	next, err := m.NextEligibleAt(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(fixedNow) {
		t.Errorf("next eligible = %v, want now %v", next, fixedNow)
	}
}

func TestFailuresDoNotConsumeQuota(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	m, err := New(l, 1, 1, clock)
	if err != nil {
		t.Fatal(err)
	}

	for i, status := range []domain.Status{domain.StatusFailed, domain.StatusAlreadyConnected} {
		err := l.Record(ctx, domain.Entry{
			TargetID: string(status) + "-target",
			URL:      "https://example.com/in/x/",
			SentAt:   fixedNow.Add(-time.Duration(i+1) * time.Hour),
			Status:   status,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	status, err := m.QuotaStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.DailyUsed != 0 || status.WeeklyUsed != 0 {
		t.Errorf("non-success entries consumed quota: %+v", status)
	}
}
