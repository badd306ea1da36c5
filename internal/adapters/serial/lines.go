package serial

import "github.com/bnema/camlink/internal/ports"

// lineAssembler splits a byte stream into newline terminated lines. Carriage returns
// are dropped and empty lines are skipped. A line longer than max is reported once as
// an overflow frame and the rest of it is discarded up to the next newline.
type lineAssembler struct {
	max      int
	buf      []byte
	skipping bool
}

func newLineAssembler(max int) *lineAssembler {
	return &lineAssembler{max: max, buf: make([]byte, 0, max)}
}

func (a *lineAssembler) Feed(p []byte) []ports.Frame {
	var frames []ports.Frame
	for _, c := range p {
		switch {
		case c == '\r':
			continue
		case c == '\n':
			if !a.skipping && len(a.buf) > 0 {
				frames = append(frames, ports.Frame{Line: string(a.buf)})
			}
			a.buf = a.buf[:0]
			a.skipping = false
		case a.skipping:
			continue
		case len(a.buf) >= a.max:
			a.buf = a.buf[:0]
			a.skipping = true
			frames = append(frames, ports.Frame{Overflow: true})
		default:
			a.buf = append(a.buf, c)
		}
	}
	return frames
}
