package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{N: 4, M: 2, K: 2, T1: 50 * time.Millisecond, T2: 50 * time.Millisecond, R: 1}
}

func TestNewIsValid(t *testing.T) {
	s := New(testConfig())
	require.NoError(t, s.CheckInvariants())
	assert.Equal(t, Loading, s.Phase)
	assert.Equal(t, AToB, s.Direction)
	assert.True(t, s.BoardingOpen)
}

func TestDirectionFlip(t *testing.T) {
	assert.Equal(t, BToA, AToB.Flip())
	assert.Equal(t, AToB, BToA.Flip())
}

func TestInvariantCatchesOverboard(t *testing.T) {
	s := New(testConfig())
	s.OnboardPax = s.Config.N + 1
	assert.Error(t, s.CheckInvariants())
}

func TestInvariantCatchesBikesExceedingPax(t *testing.T) {
	s := New(testConfig())
	s.OnboardPax = 1
	s.OnboardBikes = 2
	assert.Error(t, s.CheckInvariants())
}

func TestReservationsTryAcquireUnitsAllOrNothing(t *testing.T) {
	r := NewReservations(4, 2, 2)

	// capacity is 2 units; a 3-unit all-or-nothing request must roll back
	// whatever partial amount it managed to acquire (2 of them) rather
	// than leave the passenger holding atoms it can never complete with.
	assert.False(t, TryAcquireUnits(r.BridgeUnits, 3))

	// full capacity must be available again: two 1-unit requests succeed.
	assert.True(t, TryAcquireUnits(r.BridgeUnits, 1))
	assert.True(t, TryAcquireUnits(r.BridgeUnits, 1))
	assert.False(t, TryAcquireUnits(r.BridgeUnits, 1))
}
