// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

import (
	"strconv"
	"strings"
)

// Key codes for the $-escaped keyboard simulation tokens. Only the
// documented tokens are mapped; anything else fails.
var keyTokens = map[string]int{
	"KEY":      1,
	"CLEAR":    3,
	"RETURN":   27,
	"000":      46,
	"00":       47,
	"PLU":      62,
	"SHIFT":    95,
	"SUBTOTAL": 101,
	"TOTAL":    102,
	"KEYBOARD": 109,
}

// EncodeKeyboardSequence expands a textual key sequence like
// "$CLEAR$3*ABC$PLU$" into a #S keyboard simulation command. Each plain
// character maps to its ASCII code; each $-escaped token maps through the
// token table. When requestHello is set, a #A command is appended so the
// register emits a hello once the injected keys have been consumed.
func EncodeKeyboardSequence(sequence string, requestHello bool) (*MessageData, error) {
	codes, err := keyCodes(sequence)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(DefaultCommand)
	sb.WriteString(";#S")
	for i, c := range codes {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strconv.Itoa(c))
	}
	if requestHello {
		sb.WriteString(";#A")
	}
	return NewMessage(sb.String()), nil
}

func keyCodes(sequence string) ([]int, error) {
	codes := make([]int, 0, len(sequence))
	for i := 0; i < len(sequence); {
		if sequence[i] != '$' {
			ch := sequence[i]
			if ch < 0x20 || ch > 0x7E {
				return nil, E(KindInvalidArgument, "key sequence character 0x%02X is not printable ASCII", ch)
			}
			codes = append(codes, int(ch))
			i++
			continue
		}
		end := strings.IndexByte(sequence[i+1:], '$')
		if end < 0 {
			return nil, E(KindInvalidArgument, "unterminated key token at position %d", i)
		}
		token := sequence[i+1 : i+1+end]
		code, ok := keyTokens[token]
		if !ok {
			return nil, E(KindInvalidArgument, "unknown key token %q", token)
		}
		codes = append(codes, code)
		i += end + 2
	}
	if len(codes) == 0 {
		return nil, E(KindInvalidArgument, "empty key sequence")
	}
	return codes, nil
}
