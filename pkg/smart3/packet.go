// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

// Packet is the transport unit. Concrete variants are IndicatorPacket,
// MessagePacket and BroadcastPacket.
type Packet interface {
	// Encode serializes the packet to wire bytes.
	Encode() []byte
}

// IndicatorPacket is a one-control-byte frame. On RS-485 the control byte is
// suffixed by the destination address repeated twice.
type IndicatorPacket struct {
	control   byte
	address   byte
	addressed bool
}

// NewIndicatorPacket creates an unaddressed (RS-232) indicator.
func NewIndicatorPacket(control byte) *IndicatorPacket {
	return &IndicatorPacket{control: control}
}

// NewAddressedIndicatorPacket creates an RS-485 indicator for one register.
func NewAddressedIndicatorPacket(control, address byte) *IndicatorPacket {
	return &IndicatorPacket{control: control, address: address, addressed: true}
}

// Control returns the indicator's control byte.
func (p *IndicatorPacket) Control() byte { return p.control }

// Address returns the RS-485 destination address, or 0 when unaddressed.
func (p *IndicatorPacket) Address() byte { return p.address }

// Addressed reports whether the indicator carries an RS-485 address.
func (p *IndicatorPacket) Addressed() bool { return p.addressed }

// MessagePacket is a framed message: preamble, optional address, length,
// sequence, CRN, payload, postamble, parity, terminator.
type MessagePacket struct {
	sequence  int // raw sequence, reduced mod SequenceModulo on the wire
	crn       int
	msg       *MessageData
	address   byte
	addressed bool
}

// NewMessagePacket creates an unaddressed (RS-232) message packet.
func NewMessagePacket(sequence, crn int, msg *MessageData) *MessagePacket {
	return &MessagePacket{sequence: sequence, crn: crn, msg: msg}
}

// NewAddressedMessagePacket creates an RS-485 message packet.
func NewAddressedMessagePacket(sequence, crn int, msg *MessageData, address byte) *MessagePacket {
	return &MessagePacket{sequence: sequence, crn: crn, msg: msg, address: address, addressed: true}
}

// Sequence returns the packet sequence number reduced modulo SequenceModulo.
func (p *MessagePacket) Sequence() int { return p.sequence % SequenceModulo }

// CRNumber returns the cash register number.
func (p *MessagePacket) CRNumber() int { return p.crn }

// Message returns the message payload.
func (p *MessagePacket) Message() *MessageData { return p.msg }

// Address returns the RS-485 address, or 0 when unaddressed.
func (p *MessagePacket) Address() byte { return p.address }

// Addressed reports whether the packet carries an RS-485 address.
func (p *MessagePacket) Addressed() bool { return p.addressed }

// BroadcastPacket is an unaddressed frame carrying raw payload bytes, used
// only for bulk PLU loading. Its parity is computed by addition rather than
// XOR. The RS-485 variant carries the fixed broadcast address byte.
type BroadcastPacket struct {
	payload   []byte
	addressed bool
}

// NewBroadcastPacket creates an RS-232 broadcast frame.
func NewBroadcastPacket(payload []byte) *BroadcastPacket {
	return &BroadcastPacket{payload: payload}
}

// NewAddressedBroadcastPacket creates an RS-485 broadcast frame carrying the
// universal address byte.
func NewAddressedBroadcastPacket(payload []byte) *BroadcastPacket {
	return &BroadcastPacket{payload: payload, addressed: true}
}

// Payload returns the raw broadcast payload.
func (p *BroadcastPacket) Payload() []byte { return p.payload }
