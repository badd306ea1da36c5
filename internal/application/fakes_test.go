package application

import (
	"io"
	"strings"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/rs/zerolog"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: testEpoch}
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type recordingTransport struct {
	writes []string
	err    error
}

func (t *recordingTransport) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	t.writes = append(t.writes, string(p))
	return len(p), nil
}

func (t *recordingTransport) last() string {
	if len(t.writes) == 0 {
		return ""
	}
	return t.writes[len(t.writes)-1]
}

type eventRecorder struct {
	events []domain.Event
}

func (r *eventRecorder) Publish(event domain.Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) kinds() []domain.EventKind {
	out := make([]domain.EventKind, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Kind)
	}
	return out
}

func (r *eventRecorder) lastOf(kind domain.EventKind) (domain.Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return domain.Event{}, false
}

type captureDisplay struct {
	lines []string
}

func (d *captureDisplay) Println(line string) {
	d.lines = append(d.lines, line)
}

func (d *captureDisplay) joined() string {
	return strings.Join(d.lines, "\n")
}

func (d *captureDisplay) reset() {
	d.lines = nil
}

// scriptedConsole hands out one batch of lines per Poll and io.EOF once drained when eof
// is set.
type scriptedConsole struct {
	captureDisplay
	batches [][]string
	eof     bool
}

func (c *scriptedConsole) Poll() ([]string, error) {
	if len(c.batches) == 0 {
		if c.eof {
			return nil, io.EOF
		}
		return nil, nil
	}
	batch := c.batches[0]
	c.batches = c.batches[1:]
	return batch, nil
}

func (c *scriptedConsole) push(lines ...string) {
	c.batches = append(c.batches, lines)
}

type fakeLink struct {
	recordingTransport
	cfg       domain.LinkConfig
	frames    []ports.Frame
	pollErr   error
	reopenErr error
	reopened  []domain.LinkConfig
}

func newFakeLink() *fakeLink {
	return &fakeLink{cfg: domain.LinkConfig{Driver: domain.DriverBugst, Device: "/dev/ttyUSB0", Baud: domain.DefaultBaud}}
}

func (l *fakeLink) Poll() ([]ports.Frame, error) {
	frames := l.frames
	l.frames = nil
	err := l.pollErr
	l.pollErr = nil
	return frames, err
}

func (l *fakeLink) deliver(lines ...string) {
	for _, line := range lines {
		l.frames = append(l.frames, ports.Frame{Line: line})
	}
}

func (l *fakeLink) Reopen(cfg domain.LinkConfig) error {
	if l.reopenErr != nil {
		return l.reopenErr
	}
	l.cfg = cfg
	l.reopened = append(l.reopened, cfg)
	return nil
}

func (l *fakeLink) Config() domain.LinkConfig {
	return l.cfg
}

func (l *fakeLink) Close() error {
	return nil
}

type staticLister struct {
	ports []ports.SerialPort
	err   error
}

func (s staticLister) List() ([]ports.SerialPort, error) {
	return s.ports, s.err
}

func newTestSession(transport ports.Transport, clock ports.Clock) (*Session, *eventRecorder) {
	session := NewSession(transport, clock, zerolog.Nop())
	recorder := &eventRecorder{}
	session.Subscribe(recorder)
	return session, recorder
}
