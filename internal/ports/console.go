package ports

import "github.com/bnema/camlink/internal/domain"

// Console is the operator side of the bridge.
type Console interface {
	// Poll returns the lines entered since the previous call without blocking. It
	// returns io.EOF once input is exhausted.
	Poll() ([]string, error)
	Display
}

type Display interface {
	Println(line string)
}

// EventSink observes session events. Publish runs on the loop goroutine and must not block.
type EventSink interface {
	Publish(event domain.Event)
}

type Indicator interface {
	Show(state domain.Indicator)
}
