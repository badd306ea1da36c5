package serial

import (
	"io"

	"github.com/bnema/camlink/internal/domain"
	tarm "github.com/tarm/serial"
)

// OpenTarm opens cfg with github.com/tarm/serial, 8N1. Expired reads surface as io.EOF.
func OpenTarm(cfg domain.LinkConfig) (io.ReadWriteCloser, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: readTimeout,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}
