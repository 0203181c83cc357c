package sim

import (
	"golang.org/x/exp/slices"

	"go.lepak.sg/ferrysim/internal/captain"
)

// Report is the whole run's outcome: one summary per trip whose
// UNLOADING wait completed.
type Report struct {
	Trips []captain.Stats
}

// Sorted returns the trips ordered by trip number, leaving Report.Trips
// itself untouched. Trips already complete in order in the normal
// path; this exists for callers (tests, the CLI's final printout) that
// want a stable order regardless of how the run produced them.
func (r Report) Sorted() []captain.Stats {
	out := make([]captain.Stats, len(r.Trips))
	copy(out, r.Trips)
	slices.SortFunc(out, func(a, b captain.Stats) int { return a.TripNo - b.TripNo })
	return out
}
