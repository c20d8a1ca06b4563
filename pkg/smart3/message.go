// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

import (
	"strconv"
	"strings"
)

// MessageData is an immutable message payload, viewed both as a raw byte
// sequence and as an ordered sequence of fields separated by ':' or ';'.
// Field 0 is the message type, a 3-character tag beginning with A, B or C.
type MessageData struct {
	raw    []byte
	fields []string
}

// NewMessageData validates raw payload bytes and wraps them. The payload
// must not exceed MaxPayloadSize and must not contain protocol control bytes.
func NewMessageData(raw []byte) (*MessageData, error) {
	if len(raw) > MaxPayloadSize {
		return nil, E(KindInvalidArgument, "payload length %d exceeds %d bytes", len(raw), MaxPayloadSize)
	}
	for i, b := range raw {
		if IsControlByte(b) {
			return nil, E(KindInvalidArgument, "payload byte %d is control byte 0x%02X", i, b)
		}
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return &MessageData{raw: buf, fields: splitFields(buf)}, nil
}

// NewMessage wraps a command string. It panics on payloads that violate the
// wire constraints; commands are assembled by this module and are expected
// to be valid by construction.
func NewMessage(s string) *MessageData {
	m, err := NewMessageData([]byte(s))
	if err != nil {
		panic("smart3: " + err.Error())
	}
	return m
}

// splitFields keeps empty fields so positional access stays stable.
func splitFields(raw []byte) []string {
	s := string(raw)
	fields := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == ';' {
			fields = append(fields, s[start:i])
			start = i + 1
		}
	}
	return append(fields, s[start:])
}

// Bytes returns a copy of the raw payload.
func (m *MessageData) Bytes() []byte {
	buf := make([]byte, len(m.raw))
	copy(buf, m.raw)
	return buf
}

func (m *MessageData) String() string { return string(m.raw) }

// Len returns the raw payload length in bytes.
func (m *MessageData) Len() int { return len(m.raw) }

// Type returns the 3-character message type tag (field 0), or "" when the
// payload carries no fields.
func (m *MessageData) Type() string {
	if len(m.fields) == 0 {
		return ""
	}
	return m.fields[0]
}

// FieldCount returns the number of fields including the type field.
func (m *MessageData) FieldCount() int { return len(m.fields) }

// Field returns field i. Field 0 is the message type; data fields follow.
func (m *MessageData) Field(i int) (string, error) {
	if i < 0 || i >= len(m.fields) {
		return "", E(KindProtocol, "message %q has no field %d", m.Type(), i)
	}
	return m.fields[i], nil
}

// IntField parses field i as a decimal integer.
func (m *MessageData) IntField(i int) (int, error) {
	f, err := m.Field(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(f))
	if err != nil {
		return 0, WrapE(KindProtocol, err, "message %q field %d is not an integer", m.Type(), i)
	}
	return n, nil
}
