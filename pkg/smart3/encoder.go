// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

// Encode serializes an indicator frame.
func (p *IndicatorPacket) Encode() []byte {
	if p.addressed {
		return []byte{p.control, p.address, p.address}
	}
	return []byte{p.control}
}

// Encode serializes a message frame:
//
//	EOT [address] length+0x28 (seq mod 96)+0x20 crn+0x20 payload... STX parity ETX
//
// The length byte encodes the total frame byte count. Parity is the XOR of
// every byte from the preamble through the postamble, folded to 7 bits and
// rebased by 0x28.
func (p *MessagePacket) Encode() []byte {
	payload := p.msg.raw
	overhead := minFrameLength232
	if p.addressed {
		overhead = minFrameLength485
	}
	total := len(payload) + overhead

	frame := make([]byte, 0, total)
	frame = append(frame, EOT)
	if p.addressed {
		frame = append(frame, p.address)
	}
	frame = append(frame, byte(total)+LengthOffset)
	frame = append(frame, byte(p.sequence%SequenceModulo)+SequenceOffset)
	frame = append(frame, byte(p.crn)+CRNumberOffset)
	frame = append(frame, payload...)
	frame = append(frame, STX)
	frame = append(frame, XorParity(frame))
	frame = append(frame, ETX)
	return frame
}

// Encode serializes a broadcast frame. The RS-485 variant carries the fixed
// universal address byte after the preamble; parity is additive.
func (p *BroadcastPacket) Encode() []byte {
	overhead := 5
	if p.addressed {
		overhead = 6
	}
	total := len(p.payload) + overhead

	frame := make([]byte, 0, total)
	frame = append(frame, EOT)
	if p.addressed {
		frame = append(frame, AddressBroadcast)
	}
	frame = append(frame, byte(total)+LengthOffset)
	frame = append(frame, p.payload...)
	frame = append(frame, STX)
	frame = append(frame, SumParity(frame))
	frame = append(frame, ETX)
	return frame
}
