package domain

import "fmt"

const (
	DriverBugst    = "bugst"
	DriverTarm     = "tarm"
	DriverEmulator = "emulator"

	DefaultBaud = 115200

	MaxConsoleLine = 512
	MaxLinkLine    = 1024
)

type LinkConfig struct {
	Driver string
	Device string
	Baud   int
}

func (c LinkConfig) String() string {
	return fmt.Sprintf("%s @ %d (%s)", c.Device, c.Baud, c.Driver)
}
