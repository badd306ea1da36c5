package emulator

import (
	"sync"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
)

type Options struct {
	Scene Scene
	// Latency delays every response by this much.
	Latency time.Duration
	// Unresponsive swallows requests without answering.
	Unresponsive bool
	Clock        ports.Clock
}

type queued struct {
	due  time.Time
	line string
}

// Link is an in-process ports.Link backed by a Responder.
type Link struct {
	responder *Responder
	clock     ports.Clock

	mu           sync.Mutex
	cfg          domain.LinkConfig
	latency      time.Duration
	unresponsive bool
	partial      []byte
	outbox       []queued
	closed       bool
}

var _ ports.Link = (*Link)(nil)

func NewLink(cfg domain.LinkConfig, opts Options) *Link {
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	cfg.Driver = domain.DriverEmulator

	return &Link{
		responder:    NewResponder(opts.Scene),
		clock:        clock,
		cfg:          cfg,
		latency:      opts.Latency,
		unresponsive: opts.Unresponsive,
	}
}

func (l *Link) Responder() *Responder {
	return l.responder
}

func (l *Link) SetUnresponsive(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unresponsive = v
}

// Write accepts request bytes and queues a response for each complete line.
func (l *Link) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	now := l.clock.Now()
	for _, c := range p {
		if c == '\r' {
			continue
		}
		if c != '\n' {
			l.partial = append(l.partial, c)
			continue
		}

		line := l.partial
		l.partial = nil
		if len(line) == 0 || l.unresponsive {
			continue
		}

		busy := l.inFlight(now)
		response := l.responder.Respond(line, now, busy)
		due := now.Add(l.latency)
		if busy {
			due = now
		}
		l.outbox = append(l.outbox, queued{due: due, line: string(response)})
	}
	return len(p), nil
}

func (l *Link) inFlight(now time.Time) bool {
	for _, q := range l.outbox {
		if q.due.After(now) {
			return true
		}
	}
	return false
}

// Poll returns the responses that are due.
func (l *Link) Poll() ([]ports.Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	var frames []ports.Frame
	pending := l.outbox[:0]
	for _, q := range l.outbox {
		if q.due.After(now) {
			pending = append(pending, q)
			continue
		}
		frames = append(frames, ports.Frame{Line: q.line})
	}
	l.outbox = pending
	return frames, nil
}

func (l *Link) Reopen(cfg domain.LinkConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg.Driver = domain.DriverEmulator
	l.cfg = cfg
	l.partial = nil
	l.outbox = nil
	l.closed = false
	return nil
}

func (l *Link) Config() domain.LinkConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
