package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/camlink/internal/ports"
	"github.com/rs/zerolog"
)

const DefaultLoopInterval = time.Millisecond

// Bridge is the control loop. Each step drains the console, then the link, then
// services the timeout and the auto poller, in that order.
type Bridge struct {
	console     ports.Console
	link        ports.Link
	session     *Session
	poller      *AutoPoller
	interpreter *Interpreter
	clock       ports.Clock
	log         zerolog.Logger

	inputClosed bool
	quit        bool
}

type BridgeDeps struct {
	Console     ports.Console
	Link        ports.Link
	Session     *Session
	Poller      *AutoPoller
	Interpreter *Interpreter
	Clock       ports.Clock
	Log         zerolog.Logger
}

func NewBridge(deps BridgeDeps) *Bridge {
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Bridge{
		console:     deps.Console,
		link:        deps.Link,
		session:     deps.Session,
		poller:      deps.Poller,
		interpreter: deps.Interpreter,
		clock:       clock,
		log:         deps.Log.With().Str("component", "bridge").Logger(),
	}
}

// Step runs one loop iteration and reports whether the bridge is finished. Once console
// input is exhausted the bridge keeps running until the outstanding request resolves,
// or indefinitely while auto scan is on.
func (b *Bridge) Step() (bool, error) {
	var errs []error

	if !b.inputClosed && !b.quit {
		lines, err := b.console.Poll()
		for _, line := range lines {
			if b.interpreter.Execute(line) {
				b.quit = true
				break
			}
		}
		switch {
		case errors.Is(err, io.EOF):
			b.inputClosed = true
		case err != nil:
			errs = append(errs, fmt.Errorf("poll console: %w", err))
		}
	}
	if b.quit {
		return true, errors.Join(errs...)
	}

	frames, err := b.link.Poll()
	for _, frame := range frames {
		if frame.Overflow {
			b.session.RecordOverflow()
			continue
		}
		b.session.OnLineReceived(frame.Line)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("poll link: %w", err))
	}

	now := b.clock.Now()
	b.session.Tick(now)
	b.poller.Tick(now)

	done := b.inputClosed && !b.session.Busy() && !b.poller.Config().Enabled
	return done, errors.Join(errs...)
}

// Run repeats Step every interval until the context ends or Step reports completion.
// Step errors are logged and shown on the console; they never stop the loop.
func (b *Bridge) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultLoopInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := b.Step()
		if err != nil {
			b.log.Warn().Err(err).Msg("loop step")
			b.console.Println("error: " + err.Error())
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
