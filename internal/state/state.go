// Package state is the shared-state module: the single mutex-guarded
// record every actor touches, the counting primitives layered over
// golang.org/x/sync/semaphore, and the phase/direction vocabulary shared
// by the captain, the passengers and the console.
//
// The locking discipline is the same one the whole system depends on:
// lock, touch fields, unlock — never a blocking call (sleep, semaphore
// wait, channel receive) while Shared.mu is held.
package state

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/cpu"

	"go.lepak.sg/ferrysim/internal/bridge"
)

// Phase is one leg of the trip state machine:
// LOADING -> DEPARTING -> SAILING -> UNLOADING -> (LOADING' | END), with
// an abort path LOADING -> DEPARTING -> UNLOADING -> END when stop latches
// before SAILING.
type Phase int

const (
	Loading Phase = iota
	Departing
	Sailing
	Unloading
	End
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "LOADING"
	case Departing:
		return "DEPARTING"
	case Sailing:
		return "SAILING"
	case Unloading:
		return "UNLOADING"
	case End:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Direction is which endpoint the ferry is currently headed toward.
type Direction int

const (
	AToB Direction = iota
	BToA
)

func (d Direction) String() string {
	if d == AToB {
		return "A->B"
	}
	return "B->A"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == AToB {
		return BToA
	}
	return AToB
}

// Config is the immutable-after-init simulation configuration.
type Config struct {
	N, M, K int           // total passengers, max bicycles onboard, gangway capacity in units
	T1      time.Duration // boarding duration
	T2      time.Duration // sailing duration
	R       int           // trip count
}

// Shared is the single process-lifetime shared region. All fields below
// Config must only be read or written while mu is held.
type Shared struct {
	Config Config

	// Padding keeps the read-mostly Config off the same cache line as the
	// hot mutex-guarded block below, the same trick
	// slidingwindow.ConcurrentCounter uses to separate its hot counters
	// from its cold fields.
	_ cpu.CacheLinePad

	mu sync.Mutex

	Phase        Phase
	Direction    Direction
	BoardingOpen bool
	TripNo       int
	Shutdown     bool

	OnboardPax   int
	OnboardBikes int

	Bridge bridge.Deque

	CaptainID int
}

// New builds a Shared region in its initial LOADING state, direction
// A->B, with a gangway ring sized to K+2 per the shared-state contract.
func New(cfg Config) *Shared {
	return &Shared{
		Config:       cfg,
		Phase:        Loading,
		Direction:    AToB,
		BoardingOpen: true,
		Bridge:       bridge.New(cfg.K + 2),
	}
}

// Lock acquires the state mutex. Callers must keep the critical section
// bounded: no sleeping, no semaphore acquire, no channel receive while
// holding it.
func (s *Shared) Lock() { s.mu.Lock() }

// Unlock releases the state mutex.
func (s *Shared) Unlock() { s.mu.Unlock() }

// String renders a one-line snapshot for logging; callers must hold the
// lock, or accept a racy read (used only for best-effort diagnostics).
func (s *Shared) String() string {
	return fmt.Sprintf(
		"phase=%s dir=%s boarding_open=%t trip_no=%d onboard=%d/%d bridge_len=%d bridge_dir=%s",
		s.Phase, s.Direction, s.BoardingOpen, s.TripNo, s.OnboardPax, s.OnboardBikes,
		s.Bridge.Len(), s.Bridge.Dir(),
	)
}
