// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

import (
	"testing"
)

func TestEncodeKeyboardSequence(t *testing.T) {
	tests := []struct {
		name     string
		sequence string
		hello    bool
		expected string
	}{
		{
			name:     "clear twice and sell",
			sequence: "$CLEAR$$CLEAR$3*A$PLU$",
			expected: "0;#S3:3:51:42:65:62",
		},
		{
			name:     "subtotal",
			sequence: "$SUBTOTAL$",
			expected: "0;#S101",
		},
		{
			name:     "payment total",
			sequence: "10.00$TOTAL$",
			expected: "0;#S49:48:46:48:48:102",
		},
		{
			name:     "hello on completion",
			sequence: "$KEY$",
			hello:    true,
			expected: "0;#S1;#A",
		},
		{
			name:     "documented tokens",
			sequence: "$KEY$$RETURN$$000$$00$$SHIFT$$KEYBOARD$",
			expected: "0;#S1:27:46:47:95:109",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := EncodeKeyboardSequence(tt.sequence, tt.hello)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if msg.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, msg.String())
			}
		})
	}
}

func TestEncodeKeyboardSequence_UnknownToken(t *testing.T) {
	if _, err := EncodeKeyboardSequence("$VOID$", false); !IsKind(err, KindInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestEncodeKeyboardSequence_Unterminated(t *testing.T) {
	if _, err := EncodeKeyboardSequence("$CLEAR", false); !IsKind(err, KindInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestEncodeKeyboardSequence_Empty(t *testing.T) {
	if _, err := EncodeKeyboardSequence("", false); !IsKind(err, KindInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}
