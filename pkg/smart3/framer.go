// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

// Framer states
const (
	stateReadPreamble = iota
	stateReadIndicatorAddress
	stateReadIndicatorAddressDup
	stateReadAddress
	stateReadLength
	stateReadSequence
	stateReadCRNumber
	stateReadMessage
	stateReadParity
	stateTerminateReady
	stateTerminateWait
	stateTerminated
)

// Framer is the inbound packet state machine. Bytes are delivered one at a
// time through FeedByte; the framer emits either an IndicatorPacket or a
// fully validated MessagePacket.
//
// The framer never fails mid-frame: the first validation error within a
// frame is recorded and raised once the frame terminator has been consumed,
// keeping the receiver aligned with the next frame boundary. The RS-485
// variant additionally reads per-destination address bytes.
type Framer struct {
	layer PhysicalLayer
	state int

	payload    []byte
	payloadLen int
	parity     byte
	sequence   int
	crn        int
	address    byte
	addressed  bool
	control    byte

	pending error
	packet  Packet

	expected  int
	received  int
	discarded int
}

// NewFramer creates a framer for one physical layer. A framer handles a
// single frame; call Reset before reusing it.
func NewFramer(layer PhysicalLayer) *Framer {
	return &Framer{layer: layer}
}

// Reset prepares the framer for the next frame.
func (f *Framer) Reset() {
	*f = Framer{layer: f.layer}
}

// BytesExpected returns the total frame size once known, or 0 before the
// length byte has been read. Best-effort hint for timeout diagnostics.
func (f *Framer) BytesExpected() int { return f.expected }

// BytesReceived returns the count of bytes accepted as part of the frame.
func (f *Framer) BytesReceived() int { return f.received }

// BytesDiscarded returns the count of bytes dropped outside any frame.
func (f *Framer) BytesDiscarded() int { return f.discarded }

// CurrentPacket returns the completed packet, or nil.
func (f *Framer) CurrentPacket() Packet { return f.packet }

// Snapshot captures the progress counters for timeout diagnostics.
func (f *Framer) Snapshot() *FrameSnapshot {
	return &FrameSnapshot{
		BytesExpected:  f.expected,
		BytesReceived:  f.received,
		BytesDiscarded: f.discarded,
	}
}

// fail records the first validation error of the frame and moves to the
// drain state so the stream re-synchronizes at the next terminator.
func (f *Framer) fail(format string, args ...interface{}) {
	if f.pending == nil {
		f.pending = E(KindPacketValidation, format, args...)
	}
	f.state = stateTerminateWait
}

// FeedByte advances the state machine by one byte. It returns a completed
// packet, or nil while the frame is incomplete. A validation failure is
// returned once, after the frame terminator has been consumed.
func (f *Framer) FeedByte(b byte) (Packet, error) {
	switch f.state {
	case stateReadPreamble:
		switch {
		case isIndicatorPreamble(b):
			f.received++
			f.control = b
			if f.layer == RS485 {
				f.expected = 3
				f.state = stateReadIndicatorAddress
				return nil, nil
			}
			f.expected = 1
			f.state = stateTerminated
			f.packet = NewIndicatorPacket(b)
			return f.packet, nil
		case b == EOT:
			f.received++
			f.parity = EOT
			if f.layer == RS485 {
				f.state = stateReadAddress
			} else {
				f.state = stateReadLength
			}
			return nil, nil
		default:
			f.discarded++
			return nil, nil
		}

	case stateReadIndicatorAddress:
		f.received++
		if !IsUnitAddress(b) {
			// Keep reading the duplicate so the stream stays aligned.
			if f.pending == nil {
				f.pending = E(KindPacketValidation, "indicator address 0x%02X outside [0xA0, 0xAF]", b)
			}
		}
		f.address = b
		f.state = stateReadIndicatorAddressDup
		return nil, nil

	case stateReadIndicatorAddressDup:
		f.received++
		if b != f.address && f.pending == nil {
			f.pending = E(KindPacketValidation, "indicator address bytes differ: 0x%02X then 0x%02X", f.address, b)
		}
		f.state = stateTerminated
		if f.pending != nil {
			return nil, f.pending
		}
		f.packet = NewAddressedIndicatorPacket(f.control, f.address)
		return f.packet, nil

	case stateReadAddress:
		f.received++
		f.parity ^= b
		if !IsUnitAddress(b) {
			f.fail("message address 0x%02X outside [0xA0, 0xAF]", b)
			return nil, nil
		}
		f.address = b
		f.addressed = true
		f.state = stateReadLength
		return nil, nil

	case stateReadLength:
		f.received++
		length := int(b) - LengthOffset
		minLen, maxLen := minFrameLength232, maxFrameLength232
		if f.layer == RS485 {
			minLen, maxLen = minFrameLength485, maxFrameLength485
		}
		if length < minLen || length > maxLen {
			f.fail("length byte 0x%02X decodes to %d, outside [%d, %d]", b, length, minLen, maxLen)
			return nil, nil
		}
		f.payloadLen = length - minLen
		f.payload = make([]byte, 0, f.payloadLen)
		f.parity ^= b
		f.expected = length
		f.state = stateReadSequence
		return nil, nil

	case stateReadSequence:
		f.received++
		if b < SequenceOffset || b > SequenceOffset+SequenceModulo-1 {
			f.fail("sequence byte 0x%02X outside [0x20, 0x7F]", b)
			return nil, nil
		}
		f.sequence = int(b) - SequenceOffset
		f.parity ^= b
		f.state = stateReadCRNumber
		return nil, nil

	case stateReadCRNumber:
		f.received++
		if b < CRNumberOffset || b > CRNumberOffset+MaxCRNumber {
			f.fail("cash register number byte 0x%02X outside [0x20, 0x83]", b)
			return nil, nil
		}
		f.crn = int(b) - CRNumberOffset
		f.parity ^= b
		f.state = stateReadMessage
		return nil, nil

	case stateReadMessage:
		f.received++
		if len(f.payload) < f.payloadLen {
			if IsControlByte(b) {
				f.fail("control byte 0x%02X at payload position %d", b, len(f.payload))
				return nil, nil
			}
			// Parity folds to 7 bits, so bit 7 of a payload byte is checked here.
			if b > 0x7F {
				f.fail("payload byte 0x%02X at position %d has bit 7 set", b, len(f.payload))
				return nil, nil
			}
			f.payload = append(f.payload, b)
			f.parity ^= b
			return nil, nil
		}
		// Payload complete; this byte must be the postamble.
		if b != STX {
			f.fail("expected postamble STX, got 0x%02X", b)
			return nil, nil
		}
		f.parity ^= b
		f.state = stateReadParity
		return nil, nil

	case stateReadParity:
		f.received++
		if want := foldParity(f.parity); b != want {
			f.fail("parity mismatch: expected 0x%02X, got 0x%02X", want, b)
			return nil, nil
		}
		f.state = stateTerminateReady
		return nil, nil

	case stateTerminateReady:
		f.received++
		if b != ETX {
			f.state = stateTerminated
			return nil, E(KindPacketValidation, "expected terminator ETX, got 0x%02X", b)
		}
		msg, err := NewMessageData(f.payload)
		if err != nil {
			f.state = stateTerminated
			return nil, WrapE(KindPacketValidation, err, "invalid message payload")
		}
		f.state = stateTerminated
		if f.addressed {
			f.packet = NewAddressedMessagePacket(f.sequence, f.crn, msg, f.address)
		} else {
			f.packet = NewMessagePacket(f.sequence, f.crn, msg)
		}
		return f.packet, nil

	case stateTerminateWait:
		f.received++
		if b != ETX {
			return nil, nil
		}
		f.state = stateTerminated
		return nil, f.pending

	case stateTerminated:
		f.discarded++
		return nil, nil
	}
	return nil, E(KindPacketValidation, "framer in invalid state %d", f.state)
}
