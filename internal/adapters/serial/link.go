package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/rs/zerolog"
)

const (
	readBufferSize = 256
	readTimeout    = 50 * time.Millisecond
	idleBackoff    = 10 * time.Millisecond
)

var ErrLinkClosed = errors.New("link is closed")

// Opener opens the byte stream for cfg.
type Opener func(cfg domain.LinkConfig) (io.ReadWriteCloser, error)

// Link turns a serial byte stream into line frames. A background goroutine reads the
// port; Poll hands the assembled frames to the loop without blocking.
type Link struct {
	open Opener
	log  zerolog.Logger

	mu         sync.Mutex
	cfg        domain.LinkConfig
	port       io.ReadWriteCloser
	stop       chan struct{}
	readerDone chan struct{}
	frames     []ports.Frame
	readErr    error
}

var _ ports.Link = (*Link)(nil)

func NewLink(cfg domain.LinkConfig, open Opener, log zerolog.Logger) (*Link, error) {
	l := &Link{open: open, log: log.With().Str("component", "link").Logger()}
	if err := l.start(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Link) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return 0, ErrLinkClosed
	}
	n, err := l.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", l.cfg.Device, err)
	}
	return n, nil
}

// Poll returns buffered frames and any read error seen since the last call. A read
// error is reported once; the link stays closed until Reopen.
func (l *Link) Poll() ([]ports.Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	frames := l.frames
	l.frames = nil
	err := l.readErr
	l.readErr = nil
	return frames, err
}

func (l *Link) Config() domain.LinkConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// Reopen closes the current port and opens cfg. When cfg cannot be opened the
// previous configuration is restored if possible.
func (l *Link) Reopen(cfg domain.LinkConfig) error {
	previous := l.Config()
	if err := l.halt(); err != nil {
		l.log.Warn().Err(err).Str("device", previous.Device).Msg("close link before reopen")
	}

	if err := l.start(cfg); err != nil {
		if restoreErr := l.start(previous); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restore %s: %w", previous.Device, restoreErr))
		}
		return err
	}

	l.log.Info().Str("device", cfg.Device).Int("baud", cfg.Baud).Msg("link reopened")
	return nil
}

func (l *Link) Close() error {
	return l.halt()
}

func (l *Link) start(cfg domain.LinkConfig) error {
	port, err := l.open(cfg)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	l.mu.Lock()
	l.cfg = cfg
	l.port = port
	l.stop = stop
	l.readerDone = done
	l.readErr = nil
	l.mu.Unlock()

	go l.read(port, cfg.Device, stop, done)
	return nil
}

func (l *Link) halt() error {
	l.mu.Lock()
	port, stop, done := l.port, l.stop, l.readerDone
	l.port = nil
	l.mu.Unlock()

	if port == nil {
		return nil
	}

	close(stop)
	err := port.Close()
	<-done
	if err != nil {
		return fmt.Errorf("close link: %w", err)
	}
	return nil
}

func (l *Link) read(port io.Reader, device string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	assembler := newLineAssembler(domain.MaxLinkLine)
	buf := make([]byte, readBufferSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			if frames := assembler.Feed(buf[:n]); len(frames) > 0 {
				l.mu.Lock()
				l.frames = append(l.frames, frames...)
				l.mu.Unlock()
			}
		}

		select {
		case <-stop:
			return
		default:
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			// Some drivers report an expired read timeout as EOF.
			time.Sleep(idleBackoff)
		default:
			l.log.Error().Err(err).Str("device", device).Msg("read link")
			l.mu.Lock()
			l.readErr = fmt.Errorf("read %s: %w", device, err)
			l.mu.Unlock()
			return
		}
	}
}

// OpenerFor returns the opener for a hardware driver name.
func OpenerFor(driver string) (Opener, error) {
	switch driver {
	case domain.DriverBugst, "":
		return OpenBugst, nil
	case domain.DriverTarm:
		return OpenTarm, nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}
