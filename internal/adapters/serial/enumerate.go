package serial

import (
	"fmt"
	"sort"

	"github.com/bnema/camlink/internal/ports"
	"go.bug.st/serial/enumerator"
)

// Enumerator lists the serial ports visible to the host.
type Enumerator struct{}

var _ ports.PortLister = Enumerator{}

func (Enumerator) List() ([]ports.SerialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	out := make([]ports.SerialPort, 0, len(details))
	for _, detail := range details {
		out = append(out, ports.SerialPort{
			Name:         detail.Name,
			IsUSB:        detail.IsUSB,
			VID:          detail.VID,
			PID:          detail.PID,
			SerialNumber: detail.SerialNumber,
			Product:      detail.Product,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
