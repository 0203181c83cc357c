// Package sim is the supervisor: it owns the shared region, the three
// counting primitives, and the control channel; spawns the captain,
// the console and every passenger as goroutines tied to one
// errgroup.Group; and propagates shutdown. Translated from tramwaj.cpp,
// with fork/execv/waitpid replaced by goroutine spawn/errgroup.Wait,
// and the SIGTERM fan-out to children replaced by cancelling a derived
// context.
package sim

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go.lepak.sg/ferrysim/internal/captain"
	"go.lepak.sg/ferrysim/internal/chops"
	"go.lepak.sg/ferrysim/internal/config"
	"go.lepak.sg/ferrysim/internal/console"
	"go.lepak.sg/ferrysim/internal/control"
	"go.lepak.sg/ferrysim/internal/logx"
	"go.lepak.sg/ferrysim/internal/passenger"
	"go.lepak.sg/ferrysim/internal/state"
)

// ResourceError wraps a failure to acquire something a run needs from
// the outside world before it can start (currently: opening the log
// sink). cmd/ferrysim distinguishes this from a plain config-validation
// failure to choose the right exit code.
type ResourceError struct {
	Err error
}

func (e *ResourceError) Error() string { return e.Err.Error() }
func (e *ResourceError) Unwrap() error { return e.Err }

// Supervisor is the one object that owns the simulation's lifetime.
type Supervisor struct {
	cfg config.Config

	shared  *state.Shared
	res     *state.Reservations
	ctrl    *control.Channel
	log     *logx.Logger
	captain *captain.Captain

	consoleIn io.Reader

	giveUp         time.Duration
	shutdownBudget time.Duration
}

// New validates cfg, opens the log sink, and wires up the shared
// state, reservations and control channel. consoleIn is the operator's
// input stream (os.Stdin in production, anything readable in tests).
func New(cfg config.Config, consoleIn io.Reader) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logx.Open(cfg.LogPath)
	if err != nil {
		return nil, &ResourceError{Err: err}
	}

	shared := state.New(state.Config{
		N: cfg.N, M: cfg.M, K: cfg.K,
		T1: cfg.T1, T2: cfg.T2, R: cfg.R,
	})
	res := state.NewReservations(cfg.N, cfg.M, cfg.K)
	ctrl := control.New()

	cap := captain.New(shared, ctrl, log.For("captain", 0))
	shared.CaptainID = 0

	return &Supervisor{
		cfg:            cfg,
		shared:         shared,
		res:            res,
		ctrl:           ctrl,
		log:            log,
		captain:        cap,
		consoleIn:      consoleIn,
		giveUp:         15 * time.Second,
		shutdownBudget: 2 * time.Second,
	}, nil
}

// Close releases the log sink. Call it once Run has returned.
func (s *Supervisor) Close() error {
	return s.log.Close()
}

// Run spawns the captain, console and every passenger actor and
// returns once they have all exited: normally (the captain reached
// END) or because ctx was cancelled, in which case Run sets the
// shutdown latch and gives every actor a bounded budget to notice and
// exit on its own. A watchdog goroutine, started before any actor, is
// the backstop for that budget: it owns the hard-cancellation
// escalation and fires it even if Run's own goroutine never reaches
// its wait loop (wedged or panicked), the Go-native reading of the
// original's subordinate watchdog process.
func (s *Supervisor) Run(ctx context.Context) (report Report, err error) {
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	alive := make(chan struct{})
	watchdogDone := make(chan struct{})
	go s.watchdog(ctx, alive, cancelRun, watchdogDone)

	defer func() {
		if r := recover(); r != nil {
			watchdogLog := s.log.For("watchdog", 0)
			watchdogLog.Warn().Interface("panic", r).Msg("supervisor run panicked")
			err = fmt.Errorf("sim: supervisor panicked: %v", r)
		}
		close(alive)
		<-watchdogDone
	}()

	g, gctx := errgroup.WithContext(runCtx)

	var stats []captain.Stats
	g.Go(func() error {
		trips, rerr := s.captain.Run(gctx)
		stats = trips
		return rerr
	})

	cons := console.New(s.consoleIn, s.shared, s.captain, s.log.For("console", 0))
	g.Go(func() error { return cons.Run(gctx) })

	count := s.cfg.PassengerCount()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < count; i++ {
		dir := state.AToB
		if rng.Intn(2) == 1 {
			dir = state.BToA
		}
		pcfg := passenger.Config{
			ActorID:    i + 1,
			DesiredDir: dir,
			HasBike:    rng.Float64() < s.cfg.BikeProb,
			GiveUp:     s.giveUp,
		}
		p := passenger.New(pcfg, s.shared, s.res, s.ctrl, s.log.For("passenger", i+1))
		g.Go(func() error { return p.Run(gctx) })
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var groupErr error
	go func() {
		defer wg.Done()
		groupErr = g.Wait()
	}()

	select {
	case <-chops.Wait(&wg):
		return Report{Trips: stats}, groupErr
	case <-ctx.Done():
	}

	s.forceShutdown()
	<-chops.Wait(&wg)

	return Report{Trips: stats}, groupErr
}

// watchdog observes alive, which Run's own deferred cleanup closes on
// every return path (normal completion or a recovered panic). Once ctx
// is cancelled, the watchdog starts the shutdown-budget clock itself;
// if alive has not closed by the time the budget runs out, it logs a
// diagnostic and force-escalates by cancelling runCtx (via escalate),
// the same hard-cancellation Run's own actors are all tied to through
// gctx. This makes the escalation unconditional on Run's own goroutine
// still being alive to trigger it.
func (s *Supervisor) watchdog(ctx context.Context, alive <-chan struct{}, escalate context.CancelFunc, done chan<- struct{}) {
	defer close(done)

	select {
	case <-alive:
		return
	case <-ctx.Done():
	}

	select {
	case <-alive:
	case <-time.After(s.shutdownBudget):
		watchdogLog := s.log.For("watchdog", 0)
		watchdogLog.Warn().
			Dur("budget", s.shutdownBudget).
			Msg("shutdown budget exceeded; escalating to hard cancellation")
		escalate()
		<-alive
	}
}

// forceShutdown latches shutdown and forces the phase machine to END,
// the same pair of writes the launcher made under its state mutex
// before signalling children.
func (s *Supervisor) forceShutdown() {
	s.shared.Lock()
	s.shared.Shutdown = true
	s.shared.Phase = state.End
	s.shared.BoardingOpen = false
	s.shared.Unlock()
}
