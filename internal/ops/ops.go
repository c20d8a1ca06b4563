// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package ops contains the scripted protocol conversations (startup,
// shutdown, keepalive, PLU transfer, reports, sale transactions), the
// serialised operation manager that owns the port for a session, and the
// multi-phase sale transaction controller.
package ops

import (
	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// Session is the state shared by every operation executed on one worker:
// the dialogue console plus the status and connectability blocks updated by
// the A01 and C24 handlers.
type Session struct {
	Console        *session.Console
	Status         *smart3.CashRegisterStatus
	Connectability *smart3.ConnectabilityProgramming
	Log            zerolog.Logger
}

// Operation is one scripted conversation with the register.
type Operation interface {
	Name() string
	Execute(s *Session) error
}

// ProgressKind classifies a progress event.
type ProgressKind int

const (
	Reading ProgressKind = iota
	Writing
	Selling
)

func (k ProgressKind) String() string {
	switch k {
	case Writing:
		return "writing"
	case Selling:
		return "selling"
	}
	return "reading"
}

// Progress is one progress event. Total is 0 when the total is unknown.
type Progress struct {
	Item    string
	Current int
	Total   int
	Kind    ProgressKind
}

// ProgressFunc observes progress events. A nil ProgressFunc is allowed.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(p Progress) {
	if f != nil {
		f(p)
	}
}

// a01Handler builds the common hello handler: parse the status block into
// the session, translate error flags into typed errors, and reply with the
// operation's command. extra adds operation-specific flag checks.
func (s *Session) a01Handler(reply string, extra func(*smart3.CashRegisterStatus) error) session.Handler {
	return session.Handler{
		Types: []string{smart3.MsgHello},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			status, err := smart3.ParseStatus(msg)
			if err != nil {
				return nil, err
			}
			*s.Status = *status
			s.Log.Debug().
				Stringer("mode", status.Mode).
				Str("device", status.DeviceName).
				Str("serial", status.SerialNumber).
				Msg("hello received")
			if err := status.Check(); err != nil {
				return nil, err
			}
			if extra != nil {
				if err := extra(status); err != nil {
					return nil, err
				}
			}
			return smart3.NewMessage(reply), nil
		},
	}
}

// b23Handler answers a mode-change interactivity request.
func (s *Session) b23Handler(reply string) session.Handler {
	return session.Handler{
		Types: []string{smart3.MsgModeChange},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			return smart3.NewMessage(reply), nil
		},
	}
}

// defaultB23 answers a mode change with the empty command.
func (s *Session) defaultB23() session.Handler {
	return s.b23Handler(smart3.DefaultCommand)
}
