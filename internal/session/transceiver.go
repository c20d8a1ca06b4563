// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package session implements the request/acknowledgement layer and the
// typed dialogue console on top of the port driver.
package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/internal/port"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// RS-485 enquiry polling parameters.
const (
	enqPollWait        = 20 * time.Millisecond
	enqReceiveOverride = 200 * time.Millisecond
)

// Transceiver constructs outbound packets, mirrors the last received
// sequence and cash register number into replies, and on RS-485 polls the
// paired register with ENQ while waiting for inbound data.
type Transceiver struct {
	drv   *port.Driver
	layer smart3.PhysicalLayer
	addr  byte // paired register address (RS-485 only)
	log   zerolog.Logger

	lastSequence int
	lastCRNumber int

	broadcastAnnounced bool
}

// NewTransceiver binds a driver. addr is the paired register's RS-485
// address; it is ignored on RS-232.
func NewTransceiver(drv *port.Driver, layer smart3.PhysicalLayer, addr byte, log zerolog.Logger) *Transceiver {
	return &Transceiver{drv: drv, layer: layer, addr: addr, log: log}
}

// Driver exposes the underlying port driver.
func (t *Transceiver) Driver() *port.Driver { return t.drv }

// LastSequence returns the sequence number of the last received message.
func (t *Transceiver) LastSequence() int { return t.lastSequence }

// LastCRNumber returns the CRN of the last received message.
func (t *Transceiver) LastCRNumber() int { return t.lastCRNumber }

// ReceiveMessage reads one message packet. On RS-232 this is a single
// blocking framed read. On RS-485, while the input buffer is empty, the
// paired register is polled with an addressed ENQ every 20 ms until data
// arrives or the driver's receive timeout elapses; the frame is then read
// with a short override timeout.
func (t *Transceiver) ReceiveMessage() (*smart3.MessagePacket, error) {
	var packet smart3.Packet
	var err error
	if t.layer == smart3.RS485 {
		packet, err = t.receivePolled()
	} else {
		packet, err = t.drv.Receive()
	}
	if err != nil {
		return nil, err
	}
	msg, ok := packet.(*smart3.MessagePacket)
	if !ok {
		return nil, smart3.E(smart3.KindProtocol, "expected a message packet, received an indicator")
	}
	t.lastSequence = msg.Sequence()
	t.lastCRNumber = msg.CRNumber()
	t.broadcastAnnounced = false
	return msg, nil
}

func (t *Transceiver) receivePolled() (smart3.Packet, error) {
	deadline := time.Now().Add(t.drv.ReceiveTimeout)
	for {
		empty, err := t.drv.InBufferEmpty(0)
		if err != nil {
			return nil, err
		}
		if !empty {
			break
		}
		if time.Now().After(deadline) {
			return nil, smart3.E(smart3.KindTimeout, "no data while polling with ENQ")
		}
		if err := t.drv.Send(smart3.NewAddressedIndicatorPacket(smart3.ENQ, t.addr)); err != nil {
			return nil, err
		}
		if _, err := t.drv.InBufferEmpty(enqPollWait); err != nil {
			return nil, err
		}
	}
	return t.drv.ReceiveWithTimeout(enqReceiveOverride)
}

// ReceiveIndicator reads one frame that must be an indicator packet.
func (t *Transceiver) ReceiveIndicator() (*smart3.IndicatorPacket, error) {
	packet, err := t.drv.Receive()
	if err != nil {
		return nil, err
	}
	ind, ok := packet.(*smart3.IndicatorPacket)
	if !ok {
		return nil, smart3.E(smart3.KindProtocol, "expected an indicator packet, received a message")
	}
	return ind, nil
}

// SendMessage transmits a message payload, mirroring back the sequence and
// CRN of the last received message.
func (t *Transceiver) SendMessage(msg *smart3.MessageData) error {
	var packet smart3.Packet
	if t.layer == smart3.RS485 {
		packet = smart3.NewAddressedMessagePacket(t.lastSequence, t.lastCRNumber, msg, t.addr)
	} else {
		packet = smart3.NewMessagePacket(t.lastSequence, t.lastCRNumber, msg)
	}
	return t.drv.Send(packet)
}

// SendHelloRequest transmits a DLE (normal) or DC1 (immediate) indicator.
func (t *Transceiver) SendHelloRequest(immediate bool) error {
	control := byte(smart3.DLE)
	if immediate {
		control = smart3.DC1
	}
	return t.sendIndicator(control)
}

// SendACK acknowledges the last received message.
func (t *Transceiver) SendACK() error { return t.sendIndicator(smart3.ACK) }

// SendNAK requests a retransmission.
func (t *Transceiver) SendNAK() error { return t.sendIndicator(smart3.NAK) }

func (t *Transceiver) sendIndicator(control byte) error {
	if t.layer == smart3.RS485 {
		return t.drv.Send(smart3.NewAddressedIndicatorPacket(control, t.addr))
	}
	return t.drv.Send(smart3.NewIndicatorPacket(control))
}

// BroadcastSequence transmits a broadcast frame. On RS-485, the first
// broadcast after any received message is preceded by a broadcast ENQ
// announcement.
func (t *Transceiver) BroadcastSequence(payload []byte) error {
	if t.layer == smart3.RS485 {
		if !t.broadcastAnnounced {
			announce := smart3.NewAddressedIndicatorPacket(smart3.ENQ, smart3.AddressBroadcast)
			if err := t.drv.Send(announce); err != nil {
				return err
			}
			t.broadcastAnnounced = true
		}
		return t.drv.Send(smart3.NewAddressedBroadcastPacket(payload))
	}
	return t.drv.Send(smart3.NewBroadcastPacket(payload))
}
