// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

import (
	"errors"
	"fmt"
)

// Kind classifies a protocol failure.
type Kind int

const (
	KindTimeout Kind = iota
	KindIO
	KindPacketValidation
	KindProtocol
	KindProtocolContract
	KindCashRegister
	KindInvalidArgument
	KindInvalidOperation
	KindTransactionOpen
	KindFiscalDayOpen
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindIO:
		return "i/o"
	case KindPacketValidation:
		return "packet validation"
	case KindProtocol:
		return "protocol"
	case KindProtocolContract:
		return "protocol contract"
	case KindCashRegister:
		return "cash register"
	case KindInvalidArgument:
		return "invalid argument"
	case KindInvalidOperation:
		return "invalid operation"
	case KindTransactionOpen:
		return "transaction open"
	case KindFiscalDayOpen:
		return "fiscal day open"
	}
	return "unknown"
}

// FrameSnapshot carries the framer's progress counters at the moment a
// receive timed out.
type FrameSnapshot struct {
	BytesExpected  int
	BytesReceived  int
	BytesDiscarded int
}

// Error is the protocol error type. All failures raised by this module are
// *Error values; use KindOf or errors.As to classify them.
type Error struct {
	Kind     Kind
	Reason   string
	Snapshot *FrameSnapshot
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Snapshot != nil {
		msg += fmt.Sprintf(" (expected %d, received %d, discarded %d)",
			e.Snapshot.BytesExpected, e.Snapshot.BytesReceived, e.Snapshot.BytesDiscarded)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches an *Error of the same Kind whose Reason equals the target's; a
// target with an empty Reason matches on Kind alone. Sentinel values like
// ErrTicketOpen therefore compare by kind and reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// E constructs a protocol error.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// WrapE wraps err with a kind and reason.
func WrapE(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of err, or -1 when err is not a protocol error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return -1
}

// IsKind reports whether err is a protocol error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Cash register condition errors, raised when the corresponding status flag
// is first observed in a hello block.
var (
	ErrOperating          = E(KindCashRegister, "operating error reported by the register")
	ErrHardwareFault      = E(KindCashRegister, "hardware fault reported by the register")
	ErrTicketOpen         = E(KindCashRegister, "a ticket is open on the register")
	ErrKeyStrikingStarted = E(KindCashRegister, "key striking has started on the register")
	ErrFiscalMemoryError  = E(KindCashRegister, "fiscal memory error reported by the register")
	ErrFiscalMemoryFull   = E(KindCashRegister, "fiscal memory is full")

	// ErrRefused is raised when the register answers CAN.
	ErrRefused = E(KindCashRegister, "unable to complete the request")
)
