package domain

import (
	"strings"
	"time"
)

type EventKind string

const (
	EventSent        EventKind = "sent"
	EventReceived    EventKind = "received"
	EventMatched     EventKind = "matched"
	EventUnsolicited EventKind = "unsolicited"
	EventTimedOut    EventKind = "timed_out"
	EventOverflow    EventKind = "overflow"
)

// Event is what the session publishes for each observable step of a request.
type Event struct {
	Kind      EventKind
	At        time.Time
	RequestID RequestID
	Command   string
	Line      string
	RoundTrip time.Duration
	Timeout   time.Duration
	Class     Classification
}

// Outcome labels how a matched or timed out request ended.
func (e Event) Outcome() string {
	switch e.Kind {
	case EventTimedOut:
		return "timeout"
	case EventMatched:
		switch {
		case e.Class.Success && e.Class.IsDetectionHit:
			return "hit"
		case e.Class.Success:
			return "ok"
		case e.Class.HasErrorField:
			return "error"
		default:
			return "failed"
		}
	default:
		return string(e.Kind)
	}
}

type Indicator int

const (
	IndicatorBoot Indicator = iota
	IndicatorIdle
	IndicatorPending
	IndicatorLinkOK
	IndicatorScanOK
	IndicatorDetectHit
	IndicatorError
	IndicatorTimeout
)

func (i Indicator) String() string {
	switch i {
	case IndicatorBoot:
		return "boot"
	case IndicatorIdle:
		return "idle"
	case IndicatorPending:
		return "pending"
	case IndicatorLinkOK:
		return "link-ok"
	case IndicatorScanOK:
		return "scan-ok"
	case IndicatorDetectHit:
		return "hit"
	case IndicatorError:
		return "error"
	case IndicatorTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// IndicatorFor returns the indicator state an event leads to. The second result is
// false when the event leaves the indicator unchanged.
func IndicatorFor(e Event) (Indicator, bool) {
	switch e.Kind {
	case EventSent:
		return IndicatorPending, true
	case EventMatched:
		if !e.Class.Success {
			return IndicatorError, true
		}
		if e.Class.IsDetectionHit {
			return IndicatorDetectHit, true
		}
		switch strings.ToUpper(e.Command) {
		case "PING", "INFO":
			return IndicatorLinkOK, true
		default:
			return IndicatorScanOK, true
		}
	case EventUnsolicited:
		if e.Class.Success {
			return IndicatorScanOK, true
		}
		if e.Class.HasErrorField {
			return IndicatorError, true
		}
		return 0, false
	case EventTimedOut:
		return IndicatorTimeout, true
	case EventOverflow:
		return IndicatorError, true
	default:
		return 0, false
	}
}
