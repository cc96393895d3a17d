// Package machine drives one target through navigation, relationship
// inspection, action invocation and outcome verification.
//
// One pass per target, one terminal outcome per target: the machine never
// retries a transition internally, and every driver fault is converted
// into a terminal Failed outcome instead of an error, so a bad target can
// never end the run.
package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/driver"
)

// State enumerates the machine's positions.
type State int

const (
	StateIdle State = iota
	StateNavigated
	StateAlreadyRelated
	StateActionAvailable
	StateActionUnavailable
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigated:
		return "navigated"
	case StateAlreadyRelated:
		return "already_related"
	case StateActionAvailable:
		return "action_available"
	case StateActionUnavailable:
		return "action_unavailable"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureReason classifies terminal failures.
type FailureReason string

const (
	ReasonNavigation       FailureReason = "navigation"
	ReasonNoActionControl  FailureReason = "no_action_control"
	ReasonAmbiguousTimeout FailureReason = "ambiguous_timeout"
	ReasonInteractionError FailureReason = "interaction_error"
)

// Outcome is the single terminal result of one pass.
type Outcome struct {
	State  State
	Status domain.Status

	// Verified is meaningful only when Status is StatusSuccess: true when
	// the expected confirmation artifact was observed, false when the
	// outcome was optimistically accepted from an alternate indicator.
	Verified bool

	// Reason and Message are set only when Status is StatusFailed.
	Reason  FailureReason
	Message string
}

// Machine runs the per-target request flow against a driver session.
type Machine struct {
	driver         driver.Driver
	confirmTimeout time.Duration
}

// New creates a state machine bound to a driver session.
func New(d driver.Driver, confirmTimeout time.Duration) *Machine {
	return &Machine{driver: d, confirmTimeout: confirmTimeout}
}

// relationIndicators are checked in order; any present marker means the
// target is already related and no action is invoked.
var relationIndicators = []driver.IndicatorKind{
	driver.IndicatorConnected,
	driver.IndicatorPending,
}

// Run executes one pass for the target and returns its terminal outcome.
func (m *Machine) Run(ctx context.Context, t domain.Target) Outcome {
	// Idle -> Navigated
	if err := m.driver.Navigate(ctx, t.URL); err != nil {
		return failed(ReasonNavigation, fmt.Sprintf("navigation failed: %v", err))
	}

	// Navigated -> AlreadyRelated
	for _, kind := range relationIndicators {
		present, err := m.driver.LocateIndicator(ctx, kind)
		if err != nil {
			return failed(ReasonInteractionError, fmt.Sprintf("indicator check failed: %v", err))
		}
		if present {
			return Outcome{State: StateAlreadyRelated, Status: domain.StatusAlreadyConnected}
		}
	}

	// Navigated -> {ActionAvailable | ActionUnavailable}
	handle, found, err := m.driver.LocateActionControl(ctx)
	if err != nil {
		return failed(ReasonInteractionError, fmt.Sprintf("control lookup failed: %v", err))
	}
	if !found {
		return failed(ReasonNoActionControl, "no action control found after exhausting fallbacks")
	}

	if err := m.driver.Invoke(ctx, handle); err != nil {
		return failed(ReasonInteractionError, fmt.Sprintf("invoke failed: %v", err))
	}

	// Pending confirmation: bounded wait, then classify.
	result, err := m.driver.AwaitConfirmation(ctx, m.confirmTimeout)
	if err != nil {
		return failed(ReasonInteractionError, fmt.Sprintf("confirmation wait failed: %v", err))
	}

	switch result {
	case driver.ConfirmationObserved:
		return Outcome{State: StateCompleted, Status: domain.StatusSuccess, Verified: true}
	case driver.AlternateSignal:
		// Optimistic acceptance: the UI may complete the action without
		// the expected confirmation artifact.
		return Outcome{State: StateCompleted, Status: domain.StatusSuccess, Verified: false}
	default:
		return failed(ReasonAmbiguousTimeout, "confirmation timeout with no success indicator")
	}
}

func failed(reason FailureReason, msg string) Outcome {
	return Outcome{
		State:   StateFailed,
		Status:  domain.StatusFailed,
		Reason:  reason,
		Message: msg,
	}
}
