package emulator

import "errors"

var ErrClosed = errors.New("emulated link is closed")
