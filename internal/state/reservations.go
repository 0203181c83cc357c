package state

import "golang.org/x/sync/semaphore"

// Reservations are the three counting primitives from the design notes:
// seats, bicycles and gangway atoms, each an independent resource pool
// exposed as try-acquire (non-blocking) plus release. They live outside
// the state mutex entirely, exactly as spec'd — a passenger must never
// block on one of these while already holding another.
type Reservations struct {
	Seats       *semaphore.Weighted // initial N
	Bikes       *semaphore.Weighted // initial M
	BridgeUnits *semaphore.Weighted // initial K
}

// NewReservations builds the three semaphores from the simulation bounds.
func NewReservations(n, m, k int) *Reservations {
	return &Reservations{
		Seats:       semaphore.NewWeighted(int64(n)),
		Bikes:       semaphore.NewWeighted(int64(m)),
		BridgeUnits: semaphore.NewWeighted(int64(k)),
	}
}

// TryAcquireUnits acquires `units` atoms of sem one at a time, rolling
// back whatever it has taken if it cannot get all of them. This is the
// all-or-nothing gangway-unit acquisition step 6 hinges on: a passenger
// with units=2 must never be left holding one atom while it blocks for
// the second, because it would deadlock the captain's evict loop. Since
// this only ever calls TryAcquire (never Acquire), it cannot block.
func TryAcquireUnits(sem *semaphore.Weighted, units int) bool {
	acquired := 0
	for acquired < units {
		if !sem.TryAcquire(1) {
			if acquired > 0 {
				sem.Release(int64(acquired))
			}
			return false
		}
		acquired++
	}
	return true
}
