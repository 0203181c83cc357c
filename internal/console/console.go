// Package console is the operator control surface: it turns character
// tokens from an input stream into early-depart and stop notifications
// for the captain, and stops polling once the run reaches END or
// shutdown. The main loop never blocks indefinitely on the input
// stream — the blocking read runs on its own goroutine so a short poll
// timeout can still react to the captain's phase. That reader goroutine
// can only be unblocked by the stream itself producing a byte or EOF;
// callers that want a clean shutdown on ctx cancellation should close
// the underlying stream (e.g. os.Stdin's read end isn't closeable by
// the process itself, matching the real operator-console constraint of
// reading from a blocking fd).
package console

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"go.lepak.sg/ferrysim/internal/state"
)

// Notifier is the subset of Captain the console depends on, so tests
// can exercise console logic without a real Captain.
type Notifier interface {
	RequestEarlyDepart()
	RequestStop()
}

// Console polls r for operator tokens.
type Console struct {
	r      io.Reader
	shared *state.Shared
	notify Notifier
	log    zerolog.Logger

	pollInterval time.Duration
}

// New builds a Console reading operator tokens from r.
func New(r io.Reader, shared *state.Shared, notify Notifier, log zerolog.Logger) *Console {
	return &Console{
		r:            r,
		shared:       shared,
		notify:       notify,
		log:          log,
		pollInterval: 100 * time.Millisecond,
	}
}

// Run reads tokens until ctx is done, the input stream ends, or shared
// state reaches END/shutdown. '1' triggers an early-depart request, '2'
// a stop request; everything else is ignored.
func (c *Console) Run(ctx context.Context) error {
	tokens := make(chan byte)
	readErr := make(chan error, 1)

	go func() {
		br := bufio.NewReader(c.r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case tokens <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		c.shared.Lock()
		phase := c.shared.Phase
		shutdown := c.shared.Shutdown
		c.shared.Unlock()
		if phase == state.End || shutdown {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return err
		case b := <-tokens:
			switch b {
			case '1':
				c.log.Info().Msg("operator: early depart")
				c.notify.RequestEarlyDepart()
			case '2':
				c.log.Info().Msg("operator: stop")
				c.notify.RequestStop()
			}
		case <-ticker.C:
		}
	}
}
