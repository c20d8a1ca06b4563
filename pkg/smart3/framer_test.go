// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

import (
	"testing"
)

// feedFrame runs a byte slice through a framer and returns the first
// completed packet or error.
func feedFrame(t *testing.T, f *Framer, frame []byte) (Packet, error) {
	t.Helper()
	for i, b := range frame {
		packet, err := f.FeedByte(b)
		if err != nil {
			return nil, err
		}
		if packet != nil {
			if i != len(frame)-1 {
				t.Fatalf("packet completed at byte %d of %d", i, len(frame))
			}
			return packet, nil
		}
	}
	return nil, nil
}

func encodeMessage(t *testing.T, payload string, seq, crn int) []byte {
	t.Helper()
	msg, err := NewMessageData([]byte(payload))
	if err != nil {
		t.Fatalf("payload rejected: %v", err)
	}
	return NewMessagePacket(seq, crn, msg).Encode()
}

func TestFramer_MessageRoundTrip(t *testing.T) {
	payloads := []string{
		"A01:068:128:192:3112991159:SMARTIII:R000001:",
		"B23:1",
		"C08:1:1:COFFEE:0150:3:COFFEE BEANS",
		"x",
	}
	for _, payload := range payloads {
		for _, seq := range []int{0, 1, 95, 96, 200, 255} {
			for _, crn := range []int{0, 7, 99} {
				f := NewFramer(RS232)
				packet, err := feedFrame(t, f, encodeMessage(t, payload, seq, crn))
				if err != nil {
					t.Fatalf("payload %q seq %d crn %d: %v", payload, seq, crn, err)
				}
				msg, ok := packet.(*MessagePacket)
				if !ok {
					t.Fatalf("payload %q: expected message packet, got %T", payload, packet)
				}
				if got := msg.Message().String(); got != payload {
					t.Errorf("payload mismatch: expected %q, got %q", payload, got)
				}
				if got := msg.Sequence(); got != seq%SequenceModulo {
					t.Errorf("sequence mismatch: expected %d, got %d", seq%SequenceModulo, got)
				}
				if got := msg.CRNumber(); got != crn {
					t.Errorf("crn mismatch: expected %d, got %d", crn, got)
				}
			}
		}
	}
}

func TestFramer_IndicatorPackets(t *testing.T) {
	for _, control := range []byte{ENQ, ACK, BEL, DLE, DC1, NAK, SYN, CAN} {
		f := NewFramer(RS232)
		packet, err := f.FeedByte(control)
		if err != nil {
			t.Fatalf("control 0x%02X: %v", control, err)
		}
		ind, ok := packet.(*IndicatorPacket)
		if !ok {
			t.Fatalf("control 0x%02X: expected indicator, got %T", control, packet)
		}
		if ind.Control() != control {
			t.Errorf("control mismatch: expected 0x%02X, got 0x%02X", control, ind.Control())
		}
	}
}

func TestFramer_LeadingJunkDiscarded(t *testing.T) {
	frame := encodeMessage(t, "A01:4:0:0101120000:X:Y:", 3, 1)
	junk := []byte{0x41, 0x7A, 0xFF, 0x20}

	f := NewFramer(RS232)
	packet, err := feedFrame(t, f, append(append([]byte{}, junk...), frame...))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if packet == nil {
		t.Fatal("no packet after junk prefix")
	}
	if got := f.BytesDiscarded(); got != len(junk) {
		t.Errorf("discarded count: expected %d, got %d", len(junk), got)
	}
	if got := f.BytesReceived(); got != len(frame) {
		t.Errorf("received count: expected %d, got %d", len(frame), got)
	}
}

func TestFramer_BitFlipAlwaysDetected(t *testing.T) {
	frame := encodeMessage(t, "B14:2:COFFEE", 10, 5)
	// Flip every bit of the sequence, CRN, payload and parity bytes. The
	// preamble and terminator bytes resynchronize instead of validating,
	// and a length flip changes the expected frame shape, so those bytes
	// are exercised elsewhere.
	for pos := 2; pos < len(frame)-1; pos++ {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte{}, frame...)
			mutated[pos] ^= 1 << bit

			f := NewFramer(RS232)
			var packet Packet
			var err error
			for _, b := range mutated {
				packet, err = f.FeedByte(b)
				if err != nil || packet != nil {
					break
				}
			}
			if packet != nil {
				t.Fatalf("byte %d bit %d: corrupted frame produced a packet", pos, bit)
			}
			if err == nil {
				// The error may only surface at the terminator; feed one.
				_, err = f.FeedByte(ETX)
			}
			if err == nil {
				t.Errorf("byte %d bit %d: corruption not detected", pos, bit)
			} else if !IsKind(err, KindPacketValidation) {
				t.Errorf("byte %d bit %d: expected packet validation, got %v", pos, bit, err)
			}
		}
	}
}

func TestFramer_RS485IndicatorAddress(t *testing.T) {
	f := NewFramer(RS485)
	packet, err := feedFrame(t, f, []byte{ACK, 0xA3, 0xA3})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	ind := packet.(*IndicatorPacket)
	if !ind.Addressed() || ind.Address() != 0xA3 {
		t.Errorf("expected addressed indicator for 0xA3, got %+v", ind)
	}
}

func TestFramer_RS485IndicatorAddressMismatch(t *testing.T) {
	f := NewFramer(RS485)
	if _, err := f.FeedByte(ACK); err != nil {
		t.Fatal(err)
	}
	if _, err := f.FeedByte(0xA1); err != nil {
		t.Fatal(err)
	}
	_, err := f.FeedByte(0xA2)
	if !IsKind(err, KindPacketValidation) {
		t.Fatalf("expected packet validation, got %v", err)
	}

	// The third byte was consumed; after a reset the next frame decodes.
	f.Reset()
	packet, err := feedFrame(t, f, []byte{NAK, 0xA1, 0xA1})
	if err != nil || packet == nil {
		t.Fatalf("framer not ready after address mismatch: %v", err)
	}
}

func TestFramer_RS485IndicatorAddressOutOfRange(t *testing.T) {
	f := NewFramer(RS485)
	f.FeedByte(ACK)
	f.FeedByte(0x42)
	_, err := f.FeedByte(0x42)
	if !IsKind(err, KindPacketValidation) {
		t.Fatalf("expected packet validation, got %v", err)
	}
}

func TestFramer_RS485MessageRoundTrip(t *testing.T) {
	msg, err := NewMessageData([]byte("A01:4:0:0101120000:X:Y:"))
	if err != nil {
		t.Fatal(err)
	}
	frame := NewAddressedMessagePacket(17, 2, msg, 0xA5).Encode()

	f := NewFramer(RS485)
	packet, err := feedFrame(t, f, frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	mp := packet.(*MessagePacket)
	if !mp.Addressed() || mp.Address() != 0xA5 {
		t.Errorf("expected address 0xA5, got 0x%02X", mp.Address())
	}
	if mp.Sequence() != 17 || mp.CRNumber() != 2 {
		t.Errorf("seq/crn mismatch: got %d/%d", mp.Sequence(), mp.CRNumber())
	}
}

func TestFramer_InvalidLengthResynchronizes(t *testing.T) {
	f := NewFramer(RS232)
	// EOT then a length byte far below the minimum.
	f.FeedByte(EOT)
	if _, err := f.FeedByte(LengthOffset); err != nil {
		t.Fatalf("error should be deferred to the terminator, got %v", err)
	}
	// Drain garbage until the terminator.
	for _, b := range []byte{0x55, 0x56} {
		if _, err := f.FeedByte(b); err != nil {
			t.Fatalf("error surfaced mid-drain: %v", err)
		}
	}
	_, err := f.FeedByte(ETX)
	if !IsKind(err, KindPacketValidation) {
		t.Fatalf("expected packet validation at terminator, got %v", err)
	}

	f.Reset()
	packet, err := feedFrame(t, f, encodeMessage(t, "B10:1", 0, 0))
	if err != nil || packet == nil {
		t.Fatalf("framer not usable after resync: %v", err)
	}
}

func TestFramer_BytesExpectedHint(t *testing.T) {
	frame := encodeMessage(t, "B10:1", 0, 0)
	f := NewFramer(RS232)
	f.FeedByte(frame[0])
	if f.BytesExpected() != 0 {
		t.Errorf("expected unknown size before length, got %d", f.BytesExpected())
	}
	f.FeedByte(frame[1])
	if f.BytesExpected() != len(frame) {
		t.Errorf("expected %d after length byte, got %d", len(frame), f.BytesExpected())
	}
}

func TestFramer_ControlByteInPayload(t *testing.T) {
	frame := encodeMessage(t, "B10:1", 0, 0)
	// Replace the first payload byte with a control byte and fix nothing
	// else; the framer must reject and resynchronize at the terminator.
	mutated := append([]byte{}, frame...)
	mutated[4] = ENQ

	f := NewFramer(RS232)
	var lastErr error
	for _, b := range mutated {
		_, lastErr = f.FeedByte(b)
		if lastErr != nil {
			break
		}
	}
	if !IsKind(lastErr, KindPacketValidation) {
		t.Fatalf("expected packet validation, got %v", lastErr)
	}
}
