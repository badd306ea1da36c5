package domain

import (
	"strings"
	"time"
)

type Stats struct {
	Sent           uint32
	Received       uint32
	Timeouts       uint32
	ProtocolErrors uint32
	DetectionHits  uint32
	CommandOK      map[string]uint32
	LastRoundTrip  time.Duration
}

func (s *Stats) RecordSuccess(command string) {
	if s.CommandOK == nil {
		s.CommandOK = map[string]uint32{}
	}
	s.CommandOK[strings.ToUpper(command)]++
}

// OK returns the success counter for command, case-insensitively.
func (s Stats) OK(command string) uint32 {
	return s.CommandOK[strings.ToUpper(command)]
}

func (s *Stats) Clear() {
	*s = Stats{}
}

func (s Stats) Snapshot() Stats {
	out := s
	out.CommandOK = make(map[string]uint32, len(s.CommandOK))
	for command, count := range s.CommandOK {
		out.CommandOK[command] = count
	}
	return out
}
