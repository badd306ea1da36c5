package domain

import "time"

const (
	DefaultTimeout = 1800 * time.Millisecond
	MinTimeout     = 200 * time.Millisecond

	// RawCommand names raw requests that carry no cmd field.
	RawCommand = "RAW"
)

type RequestID string

type PendingRequest struct {
	Active  bool
	ID      RequestID
	Command string
	SentAt  time.Time
}

// Expired reports whether the request has been outstanding longer than timeout.
func (p PendingRequest) Expired(now time.Time, timeout time.Duration) bool {
	return p.Active && now.Sub(p.SentAt) > timeout
}

type Classification struct {
	MatchesPending bool
	Success        bool
	HasErrorField  bool
	IsDetectionHit bool
}
