// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	bugserial "go.bug.st/serial"
)

// PortOptions describes the serial line the sensor hub is attached to.
type PortOptions struct {
	PortName string
	BaudRate int
	// ReadTimeout makes reads return after this long without data. Zero
	// blocks until data arrives or the port is closed.
	ReadTimeout time.Duration
}

// PortOpener opens the byte stream the reader consumes. Tests and the
// mock mode substitute their own.
type PortOpener func(opts PortOptions) (io.ReadWriteCloser, error)

// OpenSerialPort opens a real serial device, 8N1.
func OpenSerialPort(opts PortOptions) (io.ReadWriteCloser, error) {
	serialOpts := serial.OpenOptions{
		PortName:        opts.PortName,
		BaudRate:        uint(opts.BaudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	if ms := opts.ReadTimeout.Milliseconds(); ms > 0 {
		// termios VTIME has 100 ms resolution and tops out at 25.5 s
		ms = min(max(ms/100*100, 100), 25500)
		serialOpts.MinimumReadSize = 0
		serialOpts.InterCharacterTimeout = uint(ms)
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", opts.PortName, opts.BaudRate, err)
	}
	return port, nil
}

// ListPorts returns the serial devices present on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugserial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
