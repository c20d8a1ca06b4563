// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package conn provides the byte transports the driver runs over: a local
// serial port, a WebSocket tunnel for remote registers, and an in-memory
// pipe used by tests.
package conn

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Connection is a byte stream with a settable read deadline. Read returns
// (0, nil) when the deadline elapses with no data.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer

	// SetReadTimeout bounds subsequent Reads. Zero means non-blocking.
	SetReadTimeout(d time.Duration) error
}

// SerialConnection wraps a serial port opened at 8-N-1 with no handshake.
type SerialConnection struct {
	port serial.Port
}

// OpenSerial opens the named port at the given baud rate.
func OpenSerial(portName string, baudRate int) (*SerialConnection, error) {
	switch baudRate {
	case 9600, 19200, 38400:
	default:
		return nil, fmt.Errorf("unsupported baud rate %d (use 9600, 19200 or 38400)", baudRate)
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return &SerialConnection{port: port}, nil
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

func (s *SerialConnection) SetReadTimeout(d time.Duration) error {
	return s.port.SetReadTimeout(d)
}

// ResetInputBuffer discards unread input held by the OS driver.
func (s *SerialConnection) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// ResetOutputBuffer discards unwritten output held by the OS driver.
func (s *SerialConnection) ResetOutputBuffer() error {
	return s.port.ResetOutputBuffer()
}
