// Command ferrysim runs the ferry-shuttle simulation as a single
// process: one supervisor goroutine tree replacing the original
// fork/exec'd launcher, captain, dispatcher and passenger binaries.
// Flags mirror the original launcher's argv exactly (--N --M --K --T1
// --T2 --R --P --bike-prob --log), with T1/T2 in milliseconds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.lepak.sg/ferrysim/internal/config"
	"go.lepak.sg/ferrysim/internal/sim"
)

const (
	exitOK        = 0
	exitRunFailed = 1
	exitBadConfig = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		n        = flag.Int("N", 0, "total passenger actors")
		m        = flag.Int("M", 0, "max bicycles allowed onboard at once")
		k        = flag.Int("K", 0, "gangway capacity, in units")
		t1ms     = flag.Int("T1", 0, "boarding window per trip, in ms")
		t2ms     = flag.Int("T2", 0, "sailing duration per trip, in ms")
		r        = flag.Int("R", 0, "number of trips to run")
		p        = flag.Int("P", 0, "number of passenger actors to spawn (0 spawns none)")
		bikeProb = flag.Float64("bike-prob", 0, "probability a spawned passenger carries a bike")
		logPath  = flag.String("log", "simulation.log", "path to the append-only simulation log")
	)
	flag.Parse()

	cfg := config.Config{
		N: *n, M: *m, K: *k,
		T1: time.Duration(*t1ms) * time.Millisecond,
		T2: time.Duration(*t2ms) * time.Millisecond,
		R:  *r, P: *p,
		BikeProb: *bikeProb,
		LogPath:  *logPath,
	}

	sup, err := sim.New(cfg, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ferrysim:", err)
		var resourceErr *sim.ResourceError
		if errors.As(err, &resourceErr) {
			return exitRunFailed
		}
		return exitBadConfig
	}
	defer sup.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := sup.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ferrysim:", err)
		return exitRunFailed
	}

	for _, trip := range report.Sorted() {
		fmt.Printf("trip %d: dir=%s boarded_pax=%d boarded_bikes=%d left_bridge=%d aborted=%t\n",
			trip.TripNo, trip.Direction, trip.BoardedPax, trip.BoardedBikes, trip.LeftBridge, trip.Aborted)
	}

	return exitOK
}
