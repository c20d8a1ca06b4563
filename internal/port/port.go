// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package port implements the framed serial port driver: timed packet
// sends and receives over a Connection, discard primitives, and an optional
// wire transcript.
package port

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/internal/conn"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// Default timeouts for blocking port operations.
const (
	DefaultReceiveTimeout = 5000 * time.Millisecond
	DefaultSendTimeout    = 5000 * time.Millisecond
)

// readSliceTimeout bounds each individual blocking read while a frame is
// being assembled, so the overall receive deadline is honoured.
const readSliceTimeout = 50 * time.Millisecond

// Driver owns a Connection and drives the framer over it. At most one
// operation holds the driver at any time; serialization is the operation
// manager's job.
type Driver struct {
	conn    conn.Connection
	layer   smart3.PhysicalLayer
	framer  *smart3.Framer
	pending []byte // bytes read ahead while polling

	ReceiveTimeout time.Duration
	SendTimeout    time.Duration

	transcript io.Writer
	log        zerolog.Logger
}

// NewDriver wraps an open connection.
func NewDriver(c conn.Connection, layer smart3.PhysicalLayer, log zerolog.Logger) *Driver {
	return &Driver{
		conn:           c,
		layer:          layer,
		framer:         smart3.NewFramer(layer),
		ReceiveTimeout: DefaultReceiveTimeout,
		SendTimeout:    DefaultSendTimeout,
		log:            log,
	}
}

// SetTranscript attaches a best-effort textual transcript sink. Every
// transmitted frame is prefixed by "> " and every received frame by "< ".
func (d *Driver) SetTranscript(w io.Writer) { d.transcript = w }

func (d *Driver) logFrame(prefix string, frame []byte) {
	if d.transcript == nil {
		return
	}
	fmt.Fprintf(d.transcript, "%s% X\n", prefix, frame)
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.conn.Close() }

// Send encodes and transmits a packet.
func (d *Driver) Send(p smart3.Packet) error {
	frame := p.Encode()
	if _, err := d.conn.Write(frame); err != nil {
		return smart3.WrapE(smart3.KindIO, err, "write failed after %d bytes", len(frame))
	}
	d.logFrame("> ", frame)
	d.log.Trace().Hex("frame", frame).Msg("sent")
	return nil
}

// Receive reads one framed packet, waiting up to the receive timeout.
func (d *Driver) Receive() (smart3.Packet, error) {
	return d.ReceiveWithTimeout(d.ReceiveTimeout)
}

// ReceiveWithTimeout reads one framed packet with an explicit deadline. On
// expiry it fails with a Timeout error carrying the framer's progress
// counters.
func (d *Driver) ReceiveWithTimeout(timeout time.Duration) (smart3.Packet, error) {
	d.framer.Reset()
	deadline := time.Now().Add(timeout)
	frame := make([]byte, 0, 64)
	buf := make([]byte, 1)

	for {
		b, ok, err := d.nextByte(deadline, buf)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &smart3.Error{
				Kind:     smart3.KindTimeout,
				Reason:   "receive timeout exceeded",
				Snapshot: d.framer.Snapshot(),
			}
		}
		frame = append(frame, b)
		packet, err := d.framer.FeedByte(b)
		if err != nil {
			d.logFrame("< ", frame)
			return nil, err
		}
		if packet != nil {
			d.logFrame("< ", frame)
			d.log.Trace().Hex("frame", frame).Msg("received")
			return packet, nil
		}
	}
}

// nextByte yields the next input byte, honouring read-ahead from polling.
func (d *Driver) nextByte(deadline time.Time, buf []byte) (byte, bool, error) {
	if len(d.pending) > 0 {
		b := d.pending[0]
		d.pending = d.pending[1:]
		return b, true, nil
	}
	for {
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, false, nil
		}
		if wait > readSliceTimeout {
			wait = readSliceTimeout
		}
		if err := d.conn.SetReadTimeout(wait); err != nil {
			return 0, false, smart3.WrapE(smart3.KindIO, err, "cannot set read timeout")
		}
		n, err := d.conn.Read(buf)
		if err != nil {
			return 0, false, smart3.WrapE(smart3.KindIO, err, "read failed")
		}
		if n > 0 {
			return buf[0], true, nil
		}
	}
}

// InBufferEmpty polls for buffered input, waiting at most wait for a byte
// to arrive. A byte read while polling is kept for the next Receive.
func (d *Driver) InBufferEmpty(wait time.Duration) (bool, error) {
	if len(d.pending) > 0 {
		return false, nil
	}
	if p, ok := d.conn.(interface{ Pending() bool }); ok && p.Pending() {
		return false, nil
	}
	if err := d.conn.SetReadTimeout(wait); err != nil {
		return true, smart3.WrapE(smart3.KindIO, err, "cannot set read timeout")
	}
	buf := make([]byte, 1)
	n, err := d.conn.Read(buf)
	if err != nil {
		return true, smart3.WrapE(smart3.KindIO, err, "poll read failed")
	}
	if n > 0 {
		d.pending = append(d.pending, buf[0])
		return false, nil
	}
	return true, nil
}

// DiscardInBuffer drops read-ahead and any unread input held by the OS.
func (d *Driver) DiscardInBuffer() error {
	d.pending = nil
	if r, ok := d.conn.(interface{ ResetInputBuffer() error }); ok {
		return r.ResetInputBuffer()
	}
	return nil
}

// DiscardOutBuffer drops unwritten output held by the OS.
func (d *Driver) DiscardOutBuffer() error {
	if r, ok := d.conn.(interface{ ResetOutputBuffer() error }); ok {
		return r.ResetOutputBuffer()
	}
	return nil
}
