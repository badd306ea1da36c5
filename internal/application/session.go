package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/bnema/camlink/internal/protocol"
	"github.com/rs/zerolog"
)

// Session owns the single outstanding request, the statistics register and the request
// id counter. It is not safe for concurrent use; the bridge loop is its only caller.
type Session struct {
	transport ports.Transport
	clock     ports.Clock
	log       zerolog.Logger
	sinks     []ports.EventSink

	timeout time.Duration
	lastID  uint64
	pending domain.PendingRequest
	stats   domain.Stats
}

func NewSession(transport ports.Transport, clock ports.Clock, log zerolog.Logger) *Session {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Session{
		transport: transport,
		clock:     clock,
		log:       log.With().Str("component", "session").Logger(),
		timeout:   domain.DefaultTimeout,
	}
}

// Subscribe registers sink for every event published after the call.
func (s *Session) Subscribe(sink ports.EventSink) {
	if sink == nil {
		return
	}
	s.sinks = append(s.sinks, sink)
}

func (s *Session) Submit(command string, args protocol.Args) (domain.RequestID, error) {
	if s.pending.Active {
		return "", domain.ErrBusy
	}

	id := s.nextID()
	line := protocol.BuildRequest(command, args, id)
	if err := s.send(id, command, line); err != nil {
		return "", err
	}
	return id, nil
}

// SubmitRaw sends an operator supplied JSON object. A missing or empty req_id is
// allocated and spliced in; the command name is taken from the cmd field.
func (s *Session) SubmitRaw(line string) (domain.RequestID, error) {
	if s.pending.Active {
		return "", domain.ErrBusy
	}

	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
		return "", domain.ErrMalformedRaw
	}

	id, ok := protocol.ExtractString(line, "req_id")
	if !ok || id == "" {
		id = string(s.nextID())
		line = protocol.SpliceRequestID(line, domain.RequestID(id))
	}

	command, ok := protocol.ExtractString(line, "cmd")
	if !ok || command == "" {
		command = domain.RawCommand
	}

	if err := s.send(domain.RequestID(id), command, line+"\n"); err != nil {
		return "", err
	}
	return domain.RequestID(id), nil
}

func (s *Session) send(id domain.RequestID, command, line string) error {
	if _, err := s.transport.Write([]byte(line)); err != nil {
		return fmt.Errorf("write request %s: %w", id, err)
	}

	now := s.clock.Now()
	s.pending = domain.PendingRequest{Active: true, ID: id, Command: command, SentAt: now}
	s.stats.Sent++

	s.log.Debug().Str("req_id", string(id)).Str("cmd", command).Msg("request sent")
	s.publish(domain.Event{
		Kind:      domain.EventSent,
		At:        now,
		RequestID: id,
		Command:   command,
		Line:      strings.TrimSuffix(line, "\n"),
	})
	return nil
}

// OnLineReceived classifies one line from the module and, when it answers the pending
// request, updates the statistics and returns the session to idle.
func (s *Session) OnLineReceived(line string) domain.Classification {
	now := s.clock.Now()
	s.stats.Received++

	class := domain.Classification{
		Success:        protocol.OKTrue(line),
		HasErrorField:  protocol.HasErrorField(line),
		IsDetectionHit: protocol.IsDetectionHit(line),
	}
	responseID, hasID := protocol.ExtractString(line, "req_id")
	s.publish(domain.Event{Kind: domain.EventReceived, At: now, Line: line, Class: class})

	if !s.pending.Active || !hasID || domain.RequestID(responseID) != s.pending.ID {
		s.log.Debug().Str("req_id", responseID).Bool("ok", class.Success).Msg("unsolicited line")
		s.publish(domain.Event{
			Kind:      domain.EventUnsolicited,
			At:        now,
			RequestID: domain.RequestID(responseID),
			Line:      line,
			Class:     class,
		})
		return class
	}

	class.MatchesPending = true
	pending := s.pending
	rtt := now.Sub(pending.SentAt)
	s.stats.LastRoundTrip = rtt

	switch {
	case class.Success:
		s.stats.RecordSuccess(pending.Command)
		if class.IsDetectionHit {
			s.stats.DetectionHits++
		}
	case class.HasErrorField:
		s.stats.ProtocolErrors++
	}

	s.pending = domain.PendingRequest{}
	s.log.Debug().
		Str("req_id", string(pending.ID)).
		Str("cmd", pending.Command).
		Dur("rtt", rtt).
		Bool("ok", class.Success).
		Msg("response matched")
	s.publish(domain.Event{
		Kind:      domain.EventMatched,
		At:        now,
		RequestID: pending.ID,
		Command:   pending.Command,
		Line:      line,
		RoundTrip: rtt,
		Class:     class,
	})
	return class
}

// RecordOverflow accounts for a link line that was discarded for being too long.
func (s *Session) RecordOverflow() {
	s.stats.ProtocolErrors++
	s.log.Warn().Int("limit", domain.MaxLinkLine).Msg("link line overflow")
	s.publish(domain.Event{Kind: domain.EventOverflow, At: s.clock.Now()})
}

// Tick expires the pending request once it has been outstanding longer than the
// timeout. It reports whether a timeout fired.
func (s *Session) Tick(now time.Time) bool {
	if !s.pending.Expired(now, s.timeout) {
		return false
	}

	pending := s.pending
	s.pending = domain.PendingRequest{}
	s.stats.Timeouts++

	s.log.Debug().Str("req_id", string(pending.ID)).Str("cmd", pending.Command).Msg("request timed out")
	s.publish(domain.Event{
		Kind:      domain.EventTimedOut,
		At:        now,
		RequestID: pending.ID,
		Command:   pending.Command,
		Timeout:   s.timeout,
	})
	return true
}

// ReconfigureLink runs apply only while no request is outstanding.
func (s *Session) ReconfigureLink(apply func() error) error {
	if s.pending.Active {
		return domain.ErrLinkBusy
	}
	return apply()
}

func (s *Session) SetTimeout(d time.Duration) error {
	if d < domain.MinTimeout {
		return domain.ErrTimeoutTooSmall
	}
	s.timeout = d
	return nil
}

func (s *Session) Timeout() time.Duration {
	return s.timeout
}

func (s *Session) Busy() bool {
	return s.pending.Active
}

func (s *Session) Pending() domain.PendingRequest {
	return s.pending
}

func (s *Session) Stats() domain.Stats {
	return s.stats.Snapshot()
}

// ClearStats zeroes the counters. Pending state is left alone.
func (s *Session) ClearStats() {
	s.stats.Clear()
}

func (s *Session) nextID() domain.RequestID {
	s.lastID++
	return domain.RequestID(strconv.FormatUint(s.lastID, 10))
}

func (s *Session) publish(event domain.Event) {
	for _, sink := range s.sinks {
		sink.Publish(event)
	}
}
