// Package passenger implements the one-shot passenger actor: reserve,
// cross the gangway, board, ride, disembark — with a forced-evict path
// the captain can trigger at any point before boarding completes.
// passenger.cpp in the original was never finished (a day-one stub);
// this package is built directly from the outer-protocol and
// evict-handling description instead of a line-by-line port.
package passenger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"go.lepak.sg/ferrysim/internal/bridge"
	"go.lepak.sg/ferrysim/internal/chops"
	"go.lepak.sg/ferrysim/internal/control"
	"go.lepak.sg/ferrysim/internal/state"
)

// Config is one passenger's fixed identity for the run.
type Config struct {
	ActorID    int
	DesiredDir state.Direction
	AnyDir     bool // true means board whichever direction comes first
	HasBike    bool
	GiveUp     time.Duration // bound on time spent trying to board
}

// Units is the gangway footprint this passenger occupies.
func (c Config) Units() int {
	if c.HasBike {
		return 2
	}
	return 1
}

// Passenger runs the full outer protocol exactly once.
type Passenger struct {
	cfg    Config
	shared *state.Shared
	res    *state.Reservations
	ctrl   *control.Channel
	log    zerolog.Logger

	pollInterval time.Duration
}

// New builds a Passenger ready to Run.
func New(cfg Config, shared *state.Shared, res *state.Reservations, ctrl *control.Channel, log zerolog.Logger) *Passenger {
	return &Passenger{
		cfg:          cfg,
		shared:       shared,
		res:          res,
		ctrl:         ctrl,
		log:          log,
		pollInterval: 20 * time.Millisecond,
	}
}

// Run executes the passenger's lifecycle once: it returns nil on every
// clean exit path (boarded-and-disembarked, evicted, gave up, observed
// shutdown/END) — none of those are failures from the simulation's
// point of view.
func (p *Passenger) Run(ctx context.Context) error {
	units := p.cfg.Units()
	inbox := p.ctrl.Register(p.cfg.ActorID)
	defer p.ctrl.Unregister(p.cfg.ActorID)

	giveUp := time.NewTimer(p.cfg.GiveUp)
	defer giveUp.Stop()
	lastWrongDirTrip := -1

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		// a captain only ever targets an actor already occupying a
		// gangway slot; this passenger hasn't pushed one yet at this
		// point in the loop, so this poll is always empty in practice.
		// kept for parity with the protocol description.
		chops.TryRecv(inbox)

		p.shared.Lock()
		phase := p.shared.Phase
		boardingOpen := p.shared.BoardingOpen
		direction := p.shared.Direction
		shutdown := p.shared.Shutdown
		tripNo := p.shared.TripNo
		p.shared.Unlock()

		if shutdown || phase == state.End {
			return nil
		}

		directionOK := p.cfg.AnyDir || direction == p.cfg.DesiredDir
		if phase != state.Loading || !boardingOpen || !directionOK {
			if phase == state.Loading && !directionOK && tripNo != lastWrongDirTrip {
				lastWrongDirTrip = tripNo
				giveUp.Stop()
				select {
				case <-giveUp.C:
				default:
				}
				giveUp.Reset(p.cfg.GiveUp)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-giveUp.C:
				p.log.Info().Msg("give-up timer expired before boarding")
				return nil
			case <-ticker.C:
				continue
			}
		}

		// step 5: reserve seat, then bike if carrying one. seat before
		// bike, both before any gangway atom, per the acquisition order
		// that keeps the evict loop from deadlocking.
		if !p.res.Seats.TryAcquire(1) {
			if !p.waitOrGiveUp(ctx, giveUp) {
				return nil
			}
			continue
		}
		if p.cfg.HasBike {
			if !p.res.Bikes.TryAcquire(1) {
				p.res.Seats.Release(1)
				if !p.waitOrGiveUp(ctx, giveUp) {
					return nil
				}
				continue
			}
		}

		// step 6: gangway atoms, all-or-nothing.
		if !state.TryAcquireUnits(p.res.BridgeUnits, units) {
			p.res.Seats.Release(1)
			if p.cfg.HasBike {
				p.res.Bikes.Release(1)
			}
			if !p.waitOrGiveUp(ctx, giveUp) {
				return nil
			}
			continue
		}

		// step 7: enter gangway, re-verifying every predicate under the
		// mutex this time.
		entered := false
		p.shared.Lock()
		if p.shared.Phase == state.Loading && p.shared.BoardingOpen &&
			(p.cfg.AnyDir || p.shared.Direction == p.cfg.DesiredDir) &&
			(p.shared.Bridge.Dir() == bridge.None || p.shared.Bridge.Dir() == bridge.In) {
			p.shared.Bridge.SetDir(bridge.In)
			if err := p.shared.Bridge.PushBack(bridge.Entry{ActorID: p.cfg.ActorID, Units: units}); err == nil {
				entered = true
			}
		}
		p.shared.Unlock()

		if !entered {
			p.res.BridgeUnits.Release(int64(units))
			p.res.Seats.Release(1)
			if p.cfg.HasBike {
				p.res.Bikes.Release(1)
			}
			if !p.waitOrGiveUp(ctx, giveUp) {
				return nil
			}
			continue
		}

		boarded, err := p.boardLoop(ctx, inbox, units)
		if err != nil {
			return err
		}
		if !boarded {
			return nil
		}

		p.ride(ctx)
		return p.disembark(ctx, units)
	}
}

// waitOrGiveUp sleeps one poll tick, returning false if ctx is done or
// the give-up timer has fired.
func (p *Passenger) waitOrGiveUp(ctx context.Context, giveUp *time.Timer) bool {
	select {
	case <-ctx.Done():
		return false
	case <-giveUp.C:
		p.log.Info().Msg("give-up timer expired before boarding")
		return false
	case <-time.After(p.pollInterval):
		return true
	}
}

// boardLoop waits at the front of the gangway, watching for a targeted
// evict or boarding closing underneath it. It returns boarded=true only
// once onboard_pax has been incremented and the gangway atoms released.
func (p *Passenger) boardLoop(ctx context.Context, inbox <-chan control.Evict, units int) (bool, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if e, status := chops.TryRecv(inbox).Get(); status == chops.Ok {
			p.handleEvict(ctx, e.TripNo, units)
			return false, nil
		}

		var closedUnderneath bool
		var tripNo int
		done := false
		p.shared.Lock()
		if p.shared.Phase != state.Loading || !p.shared.BoardingOpen {
			closedUnderneath = true
			tripNo = p.shared.TripNo
		} else if front, ok := p.shared.Bridge.Front(); ok && front.ActorID == p.cfg.ActorID && !front.Evicting {
			p.shared.Bridge.PopFront()
			if p.shared.Bridge.Empty() {
				p.shared.Bridge.SetDir(bridge.None)
			}
			p.shared.OnboardPax++
			if p.cfg.HasBike {
				p.shared.OnboardBikes++
			}
			done = true
		}
		p.shared.Unlock()

		if closedUnderneath {
			p.handleEvict(ctx, tripNo, units)
			return false, nil
		}
		if done {
			p.res.BridgeUnits.Release(int64(units))
			return true, nil
		}

		select {
		case <-ctx.Done():
			// last-resort exit: ctx is only ever cancelled directly after
			// the supervisor's bounded graceful-shutdown budget expired,
			// so the process is exiting regardless of whatever gangway
			// bookkeeping this leaves behind.
			p.releaseGangwayHeld(units)
			return false, nil
		case <-ticker.C:
		}
	}
}

// handleEvict is the shared evict-handling sub-protocol: wait for the
// gangway to be traversing OUT, then wait for this passenger's own turn
// at the back, pop itself, release everything, and ack.
func (p *Passenger) handleEvict(ctx context.Context, tripNo int, units int) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		p.shared.Lock()
		dirOut := p.shared.Bridge.Dir() == bridge.Out
		p.shared.Unlock()
		if dirOut {
			break
		}
		select {
		case <-ctx.Done():
			p.releaseGangwayHeld(units)
			return
		case <-ticker.C:
		}
	}

	for {
		popped := false
		p.shared.Lock()
		if back, ok := p.shared.Bridge.Back(); ok && back.ActorID == p.cfg.ActorID {
			p.shared.Bridge.PopBack()
			if p.shared.Bridge.Empty() {
				p.shared.Bridge.SetDir(bridge.None)
			}
			popped = true
		}
		p.shared.Unlock()
		if popped {
			break
		}
		select {
		case <-ctx.Done():
			p.releaseGangwayHeld(units)
			return
		case <-ticker.C:
		}
	}

	p.releaseGangwayHeld(units)
	p.ctrl.SendAck(control.Ack{ActorID: p.cfg.ActorID, TripNo: tripNo})
}

func (p *Passenger) releaseGangwayHeld(units int) {
	p.res.BridgeUnits.Release(int64(units))
	p.res.Seats.Release(1)
	if p.cfg.HasBike {
		p.res.Bikes.Release(1)
	}
}

// ride waits until the trip reaches UNLOADING/END, or shutdown.
func (p *Passenger) ride(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		p.shared.Lock()
		phase := p.shared.Phase
		shutdown := p.shared.Shutdown
		p.shared.Unlock()
		if phase == state.Unloading || phase == state.End || shutdown {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// disembark acquires gangway atoms again (this time the acquire is
// allowed to loop, since the captain never competes for bridge_units
// during UNLOADING) and works its own entry from front to back of the
// gangway, releasing every reservation only once it is safely off.
func (p *Passenger) disembark(ctx context.Context, units int) error {
	for !state.TryAcquireUnits(p.res.BridgeUnits, units) {
		select {
		case <-ctx.Done():
			p.cleanupOnboard()
			return nil
		case <-time.After(p.pollInterval):
		}
	}

	p.shared.Lock()
	if p.shared.Bridge.Dir() == bridge.None {
		p.shared.Bridge.SetDir(bridge.Out)
	}
	err := p.shared.Bridge.PushFront(bridge.Entry{ActorID: p.cfg.ActorID, Units: units})
	p.shared.Unlock()
	if err != nil {
		p.res.BridgeUnits.Release(int64(units))
		p.cleanupOnboard()
		return err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		done := false
		p.shared.Lock()
		if back, ok := p.shared.Bridge.Back(); ok && back.ActorID == p.cfg.ActorID {
			p.shared.Bridge.PopBack()
			if p.shared.Bridge.Empty() {
				p.shared.Bridge.SetDir(bridge.None)
			}
			p.shared.OnboardPax--
			if p.cfg.HasBike {
				p.shared.OnboardBikes--
			}
			done = true
		}
		p.shared.Unlock()
		if done {
			p.res.BridgeUnits.Release(int64(units))
			p.res.Seats.Release(1)
			if p.cfg.HasBike {
				p.res.Bikes.Release(1)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			p.pullSelfFromBridge()
			p.res.BridgeUnits.Release(int64(units))
			p.cleanupOnboard()
			return nil
		case <-ticker.C:
		}
	}
}

// pullSelfFromBridge removes this passenger's own entry if it is still
// sitting at the back, for the shutdown-mid-disembark path.
func (p *Passenger) pullSelfFromBridge() {
	p.shared.Lock()
	defer p.shared.Unlock()
	if back, ok := p.shared.Bridge.Back(); ok && back.ActorID == p.cfg.ActorID {
		p.shared.Bridge.PopBack()
		if p.shared.Bridge.Empty() {
			p.shared.Bridge.SetDir(bridge.None)
		}
	}
}

// cleanupOnboard decrements the onboard counters this passenger had
// incremented at boarding, for any exit path that skips a completed
// disembark. The captain's unloading wait depends on these reaching
// exactly zero.
func (p *Passenger) cleanupOnboard() {
	p.shared.Lock()
	p.shared.OnboardPax--
	if p.cfg.HasBike {
		p.shared.OnboardBikes--
	}
	p.shared.Unlock()
	p.res.Seats.Release(1)
	if p.cfg.HasBike {
		p.res.Bikes.Release(1)
	}
}
