// Package control is the addressed control channel: the captain's
// EVICT/ACK handshake with individual passengers, translated from a
// SysV message queue where every message carried an mtype equal to the
// target passenger's pid. Here each registered actor gets its own
// inbox channel instead of sharing one queue and filtering by mtype.
package control

import (
	"context"
	"sync"

	"go.lepak.sg/ferrysim/internal/chops"
)

// Evict is sent by the captain to a single passenger occupying the
// bridge, naming the actor and the trip it applies to so a passenger
// that already disembarked on its own can recognize a stale message.
type Evict struct {
	ActorID int
	TripNo  int
}

// Ack is the passenger's reply once it has vacated the bridge.
type Ack struct {
	ActorID int
	TripNo  int
}

// Channel is the registry of passenger inboxes plus the single shared
// ack return path. It is the one object the captain and every
// passenger hold a reference to for this handshake.
type Channel struct {
	mu      sync.RWMutex
	inboxes map[int]chan Evict

	ack chan Ack
}

// New builds an empty control channel.
func New() *Channel {
	return &Channel{
		inboxes: make(map[int]chan Evict),
		ack:     make(chan Ack, 1),
	}
}

// Register gives actorID its own evict inbox. A passenger must call
// this once at startup, before the captain can ever target it, and
// Unregister when it leaves the simulation for good.
func (c *Channel) Register(actorID int) <-chan Evict {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Evict, 1)
	c.inboxes[actorID] = ch
	return ch
}

// Unregister removes actorID's inbox and closes it. Safe to call at
// most once per actorID; calling it twice would panic on the double
// close, so passengers must only unregister themselves on their own
// exit path.
func (c *Channel) Unregister(actorID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.inboxes[actorID]; ok {
		delete(c.inboxes, actorID)
		close(ch)
	}
}

// SendEvict delivers an evict notice to actorID without blocking. It
// reports false if the actor has no inbox (already gone) or its inbox
// is full. The captain logs a false result and still waits for that
// actor's ack; it does not resend the evict.
func (c *Channel) SendEvict(e Evict) bool {
	c.mu.RLock()
	ch, ok := c.inboxes[e.ActorID]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return chops.TrySend(ch, e) == chops.Ok
}

// SendAck posts a passenger's ack back to the captain. It never blocks
// for long: the ack channel is sized for one in-flight handshake at a
// time, matching the captain's serial LIFO eviction loop which only
// ever has one outstanding evict.
func (c *Channel) SendAck(a Ack) {
	c.ack <- a
}

// RecvAck waits for the next ack, or returns ctx.Err() if ctx is done
// first — the captain uses this to bound how long it waits on a
// passenger that may have already vanished (shutdown, panic, whatever)
// without the ack ever arriving.
func (c *Channel) RecvAck(ctx context.Context) (Ack, error) {
	select {
	case a := <-c.ack:
		return a, nil
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}
