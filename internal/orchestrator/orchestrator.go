// Package orchestrator runs one outreach batch: filter targets already in
// the ledger, budget against the daily quota, drive each retained target
// through the state machine, record every terminal outcome and pace
// between requests.
//
// Execution is strictly sequential. One target is fully processed before
// the next begins; the driver session belongs to this loop for the run's
// duration.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmallet/outreach/internal/config"
	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/ledger"
	"github.com/jmallet/outreach/internal/logger"
	"github.com/jmallet/outreach/internal/machine"
	"github.com/jmallet/outreach/internal/safety"
)

// SleepFunc blocks for d or until the context is done. Injectable so tests
// never wait on the wall clock.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Summary is the final count set of one run. Partial results from an
// early-stopped or interrupted run are still valid.
type Summary struct {
	Loaded          int `json:"loaded"`
	AlreadyRecorded int `json:"already_recorded"`
	Retained        int `json:"retained"`

	Attempted      int `json:"attempted"`
	Sent           int `json:"sent"`
	AlreadyRelated int `json:"already_related"`
	Failed         int `json:"failed"`
	SkippedByQuota int `json:"skipped_by_quota"`

	StoppedEarly bool   `json:"stopped_early"`
	StopReason   string `json:"stop_reason,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Orchestrator owns one run against one driver session.
type Orchestrator struct {
	cfg    *config.Config
	store  ledger.Ledger
	quota  *safety.Manager
	mach   *machine.Machine
	logger logger.Logger

	sleep SleepFunc
	rng   *rand.Rand
	now   func() time.Time
}

// Option overrides a default collaborator, used by tests.
type Option func(*Orchestrator)

// WithSleep replaces the blocking sleep.
func WithSleep(s SleepFunc) Option { return func(o *Orchestrator) { o.sleep = s } }

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithRand replaces the pacing randomness source.
func WithRand(r *rand.Rand) Option { return func(o *Orchestrator) { o.rng = r } }

// New creates an orchestrator. The configuration must already be validated.
func New(cfg *config.Config, store ledger.Ledger, quota *safety.Manager, mach *machine.Machine, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &Orchestrator{
		cfg:    cfg,
		store:  store,
		quota:  quota,
		mach:   mach,
		logger: log,
		sleep:  sleepCtx,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run processes the batch and returns the final counts. The returned error
// is non-nil only for fatal conditions: a ledger that cannot be read or
// written, or an interrupt (context cancellation). Per-target failures are
// recorded and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, targets []domain.Target) (Summary, error) {
	summary := Summary{Loaded: len(targets), Started: o.now()}

	retained, err := o.filterRecorded(ctx, targets)
	if err != nil {
		summary.Finished = o.now()
		return summary, err
	}
	summary.AlreadyRecorded = len(targets) - len(retained)
	summary.Retained = len(retained)

	o.logger.Info("batch filtered",
		logger.Int("loaded", summary.Loaded),
		logger.Int("already_recorded", summary.AlreadyRecorded),
		logger.Int("retained", summary.Retained))

	if len(retained) == 0 {
		summary.Finished = o.now()
		return summary, nil
	}

	status, err := o.quota.QuotaStatus(ctx)
	if err != nil {
		summary.Finished = o.now()
		return summary, err
	}

	budget := len(retained)
	if status.DailyRemaining < budget {
		budget = status.DailyRemaining
	}
	// Targets beyond today's budget are never started.
	summary.SkippedByQuota = len(retained) - budget

	o.logger.Info("run budget computed",
		logger.Int("budget", budget),
		logger.Int("daily_remaining", status.DailyRemaining),
		logger.Int("weekly_remaining", status.WeeklyRemaining))

	for i, target := range retained[:budget] {
		if err := ctx.Err(); err != nil {
			summary.StoppedEarly = true
			summary.StopReason = "interrupted"
			summary.Finished = o.now()
			return summary, err
		}

		// Elapsed pacing time may have crossed a quota boundary mid-run,
		// so the gate is re-checked immediately before every attempt.
		allowed, reason, err := o.quota.CanAct(ctx)
		if err != nil {
			summary.Finished = o.now()
			return summary, err
		}
		if !allowed {
			summary.SkippedByQuota += budget - i
			summary.StoppedEarly = true
			summary.StopReason = reason
			o.reportQuotaStop(ctx, reason)
			break
		}

		summary.Attempted++
		o.logger.Info("processing target",
			logger.Int("position", i+1),
			logger.Int("budget", budget),
			logger.String("target_id", target.ID),
			logger.String("display_name", target.DisplayName))

		outcome := o.mach.Run(ctx, target)
		if err := o.record(ctx, target, outcome); err != nil {
			// A ledger that cannot durably write is fatal: processing
			// further targets would break the dedup invariant on resume.
			summary.Finished = o.now()
			return summary, err
		}

		switch outcome.Status {
		case domain.StatusSuccess:
			summary.Sent++
			o.logger.Info("request sent",
				logger.String("target_id", target.ID),
				logger.Bool("verified", outcome.Verified))
			if err := o.pace(ctx, summary.Sent, i+1 < budget); err != nil {
				summary.StoppedEarly = true
				summary.StopReason = "interrupted"
				summary.Finished = o.now()
				return summary, err
			}
		case domain.StatusAlreadyConnected:
			summary.AlreadyRelated++
			o.logger.Info("already related, no action taken",
				logger.String("target_id", target.ID))
		case domain.StatusFailed:
			summary.Failed++
			o.logger.Warn("target failed",
				logger.String("target_id", target.ID),
				logger.String("reason", string(outcome.Reason)),
				logger.String("detail", outcome.Message))
		}
	}

	summary.Finished = o.now()
	return summary, nil
}

// filterRecorded drops every target that already has a ledger entry,
// whatever its status.
func (o *Orchestrator) filterRecorded(ctx context.Context, targets []domain.Target) ([]domain.Target, error) {
	retained := make([]domain.Target, 0, len(targets))
	for _, t := range targets {
		recorded, err := o.store.AlreadyRecorded(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to filter batch: %w", err)
		}
		if !recorded {
			retained = append(retained, t)
		}
	}
	return retained, nil
}

func (o *Orchestrator) record(ctx context.Context, t domain.Target, out machine.Outcome) error {
	msg := out.Message
	if out.Status == domain.StatusSuccess && !out.Verified {
		// Optimistic acceptance stays auditable.
		msg = "accepted via alternate indicator"
	}
	entry := domain.Entry{
		TargetID:     t.ID,
		URL:          t.URL,
		DisplayName:  t.DisplayName,
		JobTitle:     t.JobTitle,
		Company:      t.Company,
		SentAt:       o.now(),
		Status:       out.Status,
		ErrorMessage: msg,
	}
	if err := o.store.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record outcome for %s: %w", t.ID, err)
	}
	return nil
}

// pace applies the randomized inter-request delay and, every Nth
// cumulative success, the longer break. Skipped entirely after the final
// budgeted target.
func (o *Orchestrator) pace(ctx context.Context, sent int, more bool) error {
	if !more {
		return nil
	}

	delay := o.randIn(o.cfg.RequestDelay)
	if delay > 0 {
		o.logger.Debug("pacing delay", logger.Duration("delay", delay))
		if err := o.sleep(ctx, delay); err != nil {
			return err
		}
	}

	if o.cfg.BreakEveryN > 0 && sent%o.cfg.BreakEveryN == 0 {
		pause := o.randIn(o.cfg.BreakDuration)
		if pause > 0 {
			o.logger.Info("taking a longer break",
				logger.Int("sent", sent),
				logger.Duration("duration", pause))
			if err := o.sleep(ctx, pause); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) reportQuotaStop(ctx context.Context, reason string) {
	next, err := o.quota.NextEligibleAt(ctx)
	if err != nil {
		o.logger.Warn("quota reached, next eligible time unavailable",
			logger.String("reason", reason),
			logger.Error(err))
		return
	}
	o.logger.Warn("quota reached, stopping early",
		logger.String("reason", reason),
		logger.String("next_eligible", next.Format(time.RFC3339)))
}

func (o *Orchestrator) randIn(r config.DurationRange) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(o.rng.Int63n(int64(r.Max-r.Min)))
}

// sleepCtx is the default SleepFunc: a timer that can be interrupted.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
