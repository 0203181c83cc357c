// Package testutils holds small test-only helpers shared across the
// simulation's packages, adapted from the playground's own testutils.
package testutils

import (
	"github.com/stretchr/testify/assert"

	"go.lepak.sg/ferrysim/internal/chops"
)

// TestT is the subset of *testing.T the helpers in this package need.
type TestT interface {
	Log(...any)
	Logf(string, ...any)
	Error(...any)
	Errorf(string, ...any)
}

// Drain expects to receive data in order from ch, then expects ch to be
// closed. The channel must already be filled with the expected data;
// this will not work if a producer is still sending when it's called.
func Drain[T any](t TestT, data []T, ch <-chan T) {
	t.Logf("draining: expecting %v", data)
	for i, datum := range data {
		chops.TryRecv(ch).Match(
			func(el T) {
				assert.Equal(t, datum, el)
			},
			func() {
				t.Errorf("channel closed early, expecting %v", datum)
			},
			func() {
				t.Errorf("channel was empty, expecting i=%d %v", i, datum)
			},
		)
	}

	chops.TryRecv(ch).Match(
		func(el T) {
			t.Errorf("channel should be closed, but received: %v", el)
		},
		func() {},
		func() {
			t.Error("at the end of draining, channel was empty but unclosed")
		},
	)
}
