// Package captain drives the trip phase machine: LOADING -> DEPARTING
// -> SAILING -> UNLOADING -> (LOADING' | END), with the LIFO gangway
// eviction handshake at DEPARTING and the abort path when stop latches
// before SAILING. Translated from captain.cpp's main loop, with the
// two signal-backed latches (g_early_depart, g_stop) replaced by
// atomic.Bool fields the console writes and the captain polls.
package captain

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"go.lepak.sg/ferrysim/internal/bridge"
	"go.lepak.sg/ferrysim/internal/control"
	"go.lepak.sg/ferrysim/internal/state"
)

// errShutdown unwinds any wait loop the moment the shutdown latch is
// observed, matching the tie-break rule that shutdown ends the trip
// immediately rather than letting the current trip finish.
var errShutdown = errors.New("captain: shutdown latch observed")

// Stats is one trip's summary line, the Go form of the original's
// "TRIP SUMMARY" log record.
type Stats struct {
	TripNo       int
	Direction    state.Direction
	BoardedPax   int
	BoardedBikes int
	LeftBridge   int
	Aborted      bool // true when the trip ended via a stop latched before SAILING
}

// Captain owns the phase machine for the whole run.
type Captain struct {
	shared *state.Shared
	ctrl   *control.Channel
	log    zerolog.Logger

	earlyDepart atomic.Bool
	stop        atomic.Bool

	pollInterval time.Duration
}

// New builds a Captain. pollInterval governs how often the LOADING wait
// loop and the SAILING sleep re-check their exit predicates; 20ms
// matches the original's sleep_ms(20) cadence. The UNLOADING wait polls
// on its own fixed 50ms ticker.
func New(shared *state.Shared, ctrl *control.Channel, log zerolog.Logger) *Captain {
	return &Captain{
		shared:       shared,
		ctrl:         ctrl,
		log:          log,
		pollInterval: 20 * time.Millisecond,
	}
}

// RequestEarlyDepart is the Console's translation of operator token
// '1'. It latches for the current trip's LOADING wait; the latch is
// cleared at the start of every trip, so a request made outside LOADING
// does not carry over to the next trip.
func (c *Captain) RequestEarlyDepart() { c.earlyDepart.Store(true) }

// RequestStop is the Console's translation of operator token '2'.
// Unlike early-depart it is not reset per trip: once latched, the
// current and every subsequent trip aborts or winds down to END.
func (c *Captain) RequestStop() { c.stop.Store(true) }

func (c *Captain) setPhase(phase state.Phase, boardingOpen bool) {
	c.shared.Lock()
	c.shared.Phase = phase
	c.shared.BoardingOpen = boardingOpen
	c.shared.Unlock()
	c.log.Info().Str("phase", phase.String()).Bool("boarding_open", boardingOpen).Msg("phase transition")
}

func (c *Captain) shutdownLatched() bool {
	c.shared.Lock()
	defer c.shared.Unlock()
	return c.shared.Shutdown
}

// Run drives trips until R completes, stop latches after a trip, or
// shutdown is observed. It returns the summaries of every trip whose
// UNLOADING wait completed.
func (c *Captain) Run(ctx context.Context) ([]Stats, error) {
	var stats []Stats
	tripsDone := 0

	for {
		if ctx.Err() != nil {
			c.setPhase(state.End, false)
			return stats, nil
		}
		if c.shutdownLatched() {
			c.log.Info().Msg("shutdown flag set -> END")
			c.setPhase(state.End, false)
			return stats, nil
		}

		// one-shot per trip, mirroring g_early_depart's reset at loop top.
		c.earlyDepart.Store(false)

		c.setPhase(state.Loading, true)

		c.shared.Lock()
		c.shared.TripNo++
		myTrip := c.shared.TripNo
		tripDir := c.shared.Direction
		c.shared.Bridge.SetDir(bridge.None)
		c.shared.Unlock()

		c.log.Info().Int("trip", myTrip).Str("direction", tripDir.String()).Msg("LOADING")

		if err := c.waitForDeparture(ctx); err != nil {
			if errors.Is(err, errShutdown) {
				c.setPhase(state.End, false)
				return stats, nil
			}
			return stats, err
		}

		c.setPhase(state.Departing, false)
		c.shared.Lock()
		c.shared.Bridge.SetDir(bridge.Out)
		c.shared.Unlock()

		leftBridge, err := c.clearBridge(ctx)
		if err != nil {
			return stats, err
		}

		c.shared.Lock()
		boardedPax := c.shared.OnboardPax
		boardedBikes := c.shared.OnboardBikes
		c.shared.Unlock()

		if c.stop.Load() {
			c.log.Info().Msg("stop during LOADING -> cancel trip and UNLOADING")
			c.setPhase(state.Unloading, false)
			c.shared.Lock()
			c.shared.Bridge.SetDir(bridge.Out)
			c.shared.Unlock()

			if err := c.waitOnboardZero(ctx); err != nil {
				if errors.Is(err, errShutdown) {
					c.setPhase(state.End, false)
					return stats, nil
				}
				return stats, err
			}

			stats = append(stats, Stats{
				TripNo: myTrip, Direction: tripDir,
				BoardedPax: boardedPax, BoardedBikes: boardedBikes,
				LeftBridge: leftBridge, Aborted: true,
			})
			c.log.Info().Int("trip", myTrip).Msg("all passengers left after stop -> END")
			c.setPhase(state.End, false)
			return stats, nil
		}

		c.log.Info().Dur("t2", c.shared.Config.T2).Msg("SAILING")
		c.setPhase(state.Sailing, false)
		if err := c.sleepOrCancel(ctx, c.shared.Config.T2); err != nil {
			if errors.Is(err, errShutdown) {
				c.setPhase(state.End, false)
				return stats, nil
			}
			return stats, err
		}

		c.log.Info().Msg("arrived -> UNLOADING")
		c.setPhase(state.Unloading, false)
		c.shared.Lock()
		c.shared.Bridge.SetDir(bridge.Out)
		c.shared.Unlock()

		if err := c.waitOnboardZero(ctx); err != nil {
			if errors.Is(err, errShutdown) {
				c.setPhase(state.End, false)
				return stats, nil
			}
			return stats, err
		}

		stats = append(stats, Stats{
			TripNo: myTrip, Direction: tripDir,
			BoardedPax: boardedPax, BoardedBikes: boardedBikes,
			LeftBridge: leftBridge,
		})
		c.log.Info().Int("trip", myTrip).Int("passengers", boardedPax).
			Int("bikes", boardedBikes).Int("left_bridge", leftBridge).Msg("TRIP SUMMARY")

		tripsDone++
		if tripsDone >= c.shared.Config.R {
			c.log.Info().Int("r", c.shared.Config.R).Msg("max trips reached -> END")
			c.setPhase(state.End, false)
			return stats, nil
		}

		if c.stop.Load() {
			c.log.Info().Msg("stop after trip completion -> END")
			c.setPhase(state.End, false)
			return stats, nil
		}

		c.shared.Lock()
		c.shared.Direction = c.shared.Direction.Flip()
		c.shared.Unlock()
	}
}

// waitForDeparture blocks until T1 elapses, early-depart or stop
// latches, or shutdown is observed.
func (c *Captain) waitForDeparture(ctx context.Context) error {
	start := time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if c.stop.Load() {
			c.log.Info().Msg("stop during LOADING -> cancel trip and UNLOADING")
			return nil
		}
		if c.earlyDepart.Load() {
			c.log.Info().Msg("early depart signal received")
			return nil
		}
		if time.Since(start) >= c.shared.Config.T1 {
			c.log.Info().Msg("T1 elapsed -> depart")
			return nil
		}
		if c.shutdownLatched() {
			return errShutdown
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// clearBridge is the LIFO eviction loop: one passenger at a time, no
// retry of the same EVICT until its ACK arrives.
func (c *Captain) clearBridge(ctx context.Context) (int, error) {
	left := 0
	for {
		c.shared.Lock()
		if c.shared.Bridge.Empty() {
			c.shared.Bridge.SetDir(bridge.None)
			c.shared.Unlock()
			c.log.Info().Msg("bridge empty -> ok to depart")
			return left, nil
		}

		back, ok := c.shared.Bridge.Back()
		if !ok {
			c.shared.Unlock()
			continue
		}
		back.Evicting = true
		target := back.ActorID
		trip := c.shared.TripNo
		c.shared.Unlock()

		if !c.ctrl.SendEvict(control.Evict{ActorID: target, TripNo: trip}) {
			c.log.Warn().Int("actor_id", target).Msg("evict request could not be delivered")
		} else {
			c.log.Info().Int("actor_id", target).Msg("evict request sent")
		}

		for {
			ack, err := c.ctrl.RecvAck(ctx)
			if err != nil {
				return left, err
			}
			if ack.ActorID == target {
				left++
				c.log.Info().Int("actor_id", target).Int("left_bridge", left).Msg("ack received")
				break
			}
			// protocol violation: ack doesn't match the outstanding evict.
			// at most one evict is ever outstanding, so dropping is safe.
			c.log.Warn().Int("actor_id", ack.ActorID).Int("expected", target).Msg("unexpected ack, dropping")
		}
	}
}

// waitOnboardZero blocks until onboard_pax returns to zero.
func (c *Captain) waitOnboardZero(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		c.shared.Lock()
		onboard := c.shared.OnboardPax
		c.shared.Unlock()
		if onboard == 0 {
			return nil
		}
		if c.shutdownLatched() {
			return errShutdown
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sleepOrCancel sleeps for d, returning early on ctx cancellation or
// the shutdown latch.
func (c *Captain) sleepOrCancel(ctx context.Context, d time.Duration) error {
	shutdownPoll := time.NewTicker(c.pollInterval)
	defer shutdownPoll.Stop()
	deadline := time.After(d)
	for {
		select {
		case <-deadline:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-shutdownPoll.C:
			if c.shutdownLatched() {
				return errShutdown
			}
		}
	}
}
