package state

import (
	"fmt"

	"go.lepak.sg/ferrysim/internal/bridge"
)

// CheckInvariants asserts the properties from the testable-properties
// section against a Shared snapshot. The caller must hold s.mu (or own
// the only reference, e.g. in a single-goroutine test) while calling it.
// It is a read-only diagnostic, not part of the production control flow:
// tests call it after exercising a scenario to assert the coordination
// protocol held throughout.
func (s *Shared) CheckInvariants() error {
	if s.OnboardPax < 0 || s.OnboardPax > s.Config.N {
		return fmt.Errorf("onboard_pax=%d out of range [0,%d]", s.OnboardPax, s.Config.N)
	}
	maxBikes := s.Config.M
	if s.OnboardPax < maxBikes {
		maxBikes = s.OnboardPax
	}
	if s.OnboardBikes < 0 || s.OnboardBikes > maxBikes {
		return fmt.Errorf("onboard_bikes=%d out of range [0,%d]", s.OnboardBikes, maxBikes)
	}
	if s.Bridge.LoadUnits() > s.Config.K {
		return fmt.Errorf("bridge load_units=%d exceeds K=%d", s.Bridge.LoadUnits(), s.Config.K)
	}
	if s.Phase == Sailing && (!s.Bridge.Empty() || s.Bridge.Dir() != bridge.None) {
		return fmt.Errorf("phase=SAILING but bridge non-empty or dir!=NONE (%s)", s.Bridge.Dir())
	}
	if s.Phase == Departing && (s.BoardingOpen || s.Bridge.Dir() != bridge.Out) {
		return fmt.Errorf("phase=DEPARTING but boarding_open=%t dir=%s", s.BoardingOpen, s.Bridge.Dir())
	}
	if s.Bridge.Dir() != bridge.None && s.Bridge.Empty() {
		return fmt.Errorf("bridge dir=%s but bridge is empty", s.Bridge.Dir())
	}
	if s.BoardingOpen && s.Phase != Loading {
		return fmt.Errorf("boarding_open but phase=%s", s.Phase)
	}
	return nil
}
