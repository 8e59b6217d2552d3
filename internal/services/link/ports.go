package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// PortProvider enumerates and opens candidate ports.
type PortProvider interface {
	List() ([]string, error)
	Open(name string) (Port, error)
}

// SerialPorts opens system serial ports with go.bug.st/serial.
type SerialPorts struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// List returns the serial ports known to the operating system.
func (p SerialPorts) List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Open opens a port at the configured baud rate with a short read timeout.
func (p SerialPorts) Open(name string) (Port, error) {
	baud := p.BaudRate
	if baud <= 0 {
		baud = 9600
	}
	timeout := p.ReadTimeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	// Drop anything the device printed before we were listening
	_ = port.ResetInputBuffer()

	return port, nil
}
