package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func valid() Config {
	return Config{
		N: 20, M: 5, K: 6,
		T1: time.Second, T2: 1500 * time.Millisecond,
		R: 8, P: 60, BikeProb: 0.3, LogPath: "simulation.log",
	}
}

func TestValidConfigPasses(t *testing.T) {
	assert.NoError(t, valid().Validate())
}

func TestNMustBePositive(t *testing.T) {
	c := valid()
	c.N = 0
	assert.Error(t, c.Validate())
}

func TestMMustBeBelowN(t *testing.T) {
	c := valid()
	c.M = c.N
	assert.Error(t, c.Validate())
}

func TestKMustBeBelowNAndWithinMax(t *testing.T) {
	c := valid()
	c.K = c.N
	assert.Error(t, c.Validate())

	c = valid()
	c.K = MaxK + 1
	c.N = MaxK + 2
	assert.Error(t, c.Validate())
}

func TestDurationsMustBePositive(t *testing.T) {
	c := valid()
	c.T1 = 0
	assert.Error(t, c.Validate())
}

func TestPWithinBounds(t *testing.T) {
	c := valid()
	c.P = MaxP + 1
	assert.Error(t, c.Validate())
}

func TestBikeProbWithinUnitInterval(t *testing.T) {
	c := valid()
	c.BikeProb = 1.5
	assert.Error(t, c.Validate())
}

func TestLogPathRequired(t *testing.T) {
	c := valid()
	c.LogPath = ""
	assert.Error(t, c.Validate())
}

func TestPassengerCountIsP(t *testing.T) {
	c := valid()
	c.P = 0
	assert.Equal(t, 0, c.PassengerCount())

	c.P = 3
	assert.Equal(t, 3, c.PassengerCount())
}
