package ports

import "github.com/bnema/camlink/internal/domain"

// Transport accepts request bytes for the module. Writes must not block for long.
type Transport interface {
	Write(p []byte) (int, error)
}

// Frame is one line received from the module. Overflow marks a line that exceeded the
// link limit and was discarded; Line is empty in that case.
type Frame struct {
	Line     string
	Overflow bool
}

// LinkControl reopens the link with new parameters.
type LinkControl interface {
	Config() domain.LinkConfig
	Reopen(cfg domain.LinkConfig) error
}

// Link is a line oriented, reconfigurable connection to the module.
type Link interface {
	Transport
	LinkControl
	// Poll returns the frames received since the previous call without blocking.
	Poll() ([]Frame, error)
	Close() error
}

type SerialPort struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

type PortLister interface {
	List() ([]SerialPort, error)
}
