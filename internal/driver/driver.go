// Package driver defines the capability set the orchestration core expects
// from a target interaction session. Concrete drivers own every
// presentation-layer heuristic (selector fallbacks, pagination, waits);
// the core only calls these methods and never implements them.
package driver

import (
	"context"
	"time"
)

// IndicatorKind names a relationship-status marker a driver can look for
// on the current page.
type IndicatorKind string

const (
	// IndicatorConnected marks an existing relationship.
	IndicatorConnected IndicatorKind = "connected"
	// IndicatorPending marks a request that was already sent and is
	// awaiting the other side.
	IndicatorPending IndicatorKind = "pending"
)

// Handle is an opaque reference to a located actionable control. Only the
// driver that produced it can interpret it.
type Handle any

// ConfirmationResult classifies what a driver observed while waiting for
// the post-invoke confirmation artifact.
type ConfirmationResult int

const (
	// ConfirmationObserved means the expected confirmation artifact
	// appeared within the timeout.
	ConfirmationObserved ConfirmationResult = iota
	// AlternateSignal means the timeout elapsed but an independent success
	// indicator (e.g. a pending-state marker) was observed.
	AlternateSignal
	// ConfirmationTimeout means the timeout elapsed with no indicator at all.
	ConfirmationTimeout
)

// Driver is one exclusive interaction session against the remote service.
// The orchestrator owns the session for the run's duration; no other
// component may issue calls concurrently.
//
// Every method returns an explicit error for unexpected faults; the state
// machine converts those into terminal per-target outcomes instead of
// letting them end the run.
type Driver interface {
	// Navigate opens the target URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// LocateIndicator reports whether the given relationship-status marker
	// is present on the current page.
	LocateIndicator(ctx context.Context, kind IndicatorKind) (bool, error)

	// LocateActionControl tries the driver's ordered fallback strategies
	// and returns a handle to the first actionable control found, or
	// (nil, false, nil) when every strategy was exhausted.
	LocateActionControl(ctx context.Context) (Handle, bool, error)

	// Invoke activates a previously located control.
	Invoke(ctx context.Context, h Handle) error

	// AwaitConfirmation blocks up to timeout for a confirmation signal.
	AwaitConfirmation(ctx context.Context, timeout time.Duration) (ConfirmationResult, error)
}
