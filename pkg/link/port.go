package link

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate matches the pedal box sketch.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds one blocking line read and thereby stop latency.
	DefaultReadTimeout = time.Second
)

// Port is the part of a serial connection the link needs.
// go.bug.st/serial ports satisfy it.
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

var _ Port = (serial.Port)(nil)

// Opener opens the connection described by cfg.
type Opener func(cfg Config) (Port, error)

// OpenSerial opens a real serial port with 8N1 framing.
func OpenSerial(cfg Config) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// fall back to the plain list, which works without USB metadata
		names, lerr := serial.GetPortsList()
		if lerr != nil {
			return nil, errors.Wrap(lerr, "failed to list serial ports")
		}
		result := make([]PortInfo, 0, len(names))
		for _, name := range names {
			result = append(result, PortInfo{Name: name, Description: name})
		}
		return result, nil
	}

	result := make([]PortInfo, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("USB %s:%s", d.VID, d.PID)
			if d.Product != "" {
				desc = fmt.Sprintf("%s (%s)", d.Product, desc)
			}
		}
		result = append(result, PortInfo{Name: d.Name, Description: desc})
	}
	return result, nil
}
