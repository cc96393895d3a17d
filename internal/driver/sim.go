package driver

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

var errNavigation = errors.New("simulated navigation failure")

// SimOptions tunes the simulated driver's outcome distribution. All rates
// are probabilities in [0,1] and are evaluated in the order listed on
// Simulated.
type SimOptions struct {
	AlreadyRelatedRate float64 // page shows an existing/pending relationship
	NoControlRate      float64 // every locator strategy fails
	NavigationFailRate float64 // navigation itself fails
	AlternateRate      float64 // confirmation times out but pending marker appears
	TimeoutRate        float64 // confirmation times out with no indicator at all
	Seed               int64   // 0 means seed from the wall clock
}

// Simulated is a driver that never touches a real session. It exists so
// the full pipeline (filtering, quotas, pacing, ledger writes, export) can
// be exercised end to end without sending anything.
type Simulated struct {
	opts SimOptions
	rng  *rand.Rand
	// state is the fate rolled at navigation time for the page currently
	// "visited"; the page-scoped methods below read it.
	state simState
}

// NewSimulated creates a simulated driver.
func NewSimulated(opts SimOptions) *Simulated {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{opts: opts, rng: rand.New(rand.NewSource(seed))}
}

type simHandle struct{}

type simState int

const (
	simOK simState = iota
	simRelated
	simNoControl
	simNavFail
)

// roll decides the fate of the current target at navigation time and is
// remembered by the page-scoped methods that follow.
func (s *Simulated) roll() simState {
	r := s.rng.Float64()
	switch {
	case r < s.opts.NavigationFailRate:
		return simNavFail
	case r < s.opts.NavigationFailRate+s.opts.AlreadyRelatedRate:
		return simRelated
	case r < s.opts.NavigationFailRate+s.opts.AlreadyRelatedRate+s.opts.NoControlRate:
		return simNoControl
	default:
		return simOK
	}
}

func (s *Simulated) Navigate(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = s.roll()
	if s.state == simNavFail {
		return errNavigation
	}
	return nil
}

func (s *Simulated) LocateIndicator(ctx context.Context, _ IndicatorKind) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.state == simRelated, nil
}

func (s *Simulated) LocateActionControl(ctx context.Context) (Handle, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.state == simNoControl {
		return nil, false, nil
	}
	return simHandle{}, true, nil
}

func (s *Simulated) Invoke(ctx context.Context, _ Handle) error {
	return ctx.Err()
}

func (s *Simulated) AwaitConfirmation(ctx context.Context, _ time.Duration) (ConfirmationResult, error) {
	if err := ctx.Err(); err != nil {
		return ConfirmationTimeout, err
	}
	r := s.rng.Float64()
	switch {
	case r < s.opts.TimeoutRate:
		return ConfirmationTimeout, nil
	case r < s.opts.TimeoutRate+s.opts.AlternateRate:
		return AlternateSignal, nil
	default:
		return ConfirmationObserved, nil
	}
}

var _ Driver = (*Simulated)(nil)
