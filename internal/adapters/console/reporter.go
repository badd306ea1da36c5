package console

import (
	"fmt"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
)

const overflowNotice = "link line too long; buffer cleared"

// Reporter prints the exchange log the operator watches and drives the status
// indicator. Timestamps are milliseconds since start.
type Reporter struct {
	display   ports.Display
	indicator ports.Indicator
	start     time.Time
}

var _ ports.EventSink = (*Reporter)(nil)

// NewReporter builds a Reporter. indicator may be nil.
func NewReporter(display ports.Display, indicator ports.Indicator, start time.Time) *Reporter {
	return &Reporter{display: display, indicator: indicator, start: start}
}

func (r *Reporter) Publish(event domain.Event) {
	stamp := r.stamp(event.At)

	switch event.Kind {
	case domain.EventSent:
		r.display.Println(fmt.Sprintf("%s TX->LINK %s", stamp, event.Line))
	case domain.EventReceived:
		r.display.Println(fmt.Sprintf("%s RX<-LINK %s", stamp, event.Line))
	case domain.EventMatched:
		if event.Class.Success && event.Class.IsDetectionHit {
			r.display.Println(stamp + " HIT: module produced non-empty recognition result")
		}
	case domain.EventTimedOut:
		r.display.Println(fmt.Sprintf("%s TIMEOUT waiting response: req_id=%s cmd=%s (>%d ms)",
			stamp, event.RequestID, event.Command, event.Timeout.Milliseconds()))
	case domain.EventOverflow:
		r.display.Println(overflowNotice)
	}

	if r.indicator == nil {
		return
	}
	if state, ok := domain.IndicatorFor(event); ok {
		r.indicator.Show(state)
	}
}

func (r *Reporter) stamp(at time.Time) string {
	ms := at.Sub(r.start).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("[%10d]", ms)
}
