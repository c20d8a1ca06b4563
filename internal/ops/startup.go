// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// startupCommand locks the keyboard with deferred effect, enters
// Programming mode and requests the connectability block.
const startupCommand = "0;*2;+4;&m"

// Startup opens a session: it requests a hello, answers the status block
// and consumes the C24 connectability series.
type Startup struct{}

func (*Startup) Name() string { return "startup" }

func (*Startup) Execute(s *Session) error {
	if err := s.Console.Hello(false); err != nil {
		return err
	}

	a01 := s.a01Handler(startupCommand, func(status *smart3.CashRegisterStatus) error {
		if status.Has(smart3.FlagTicketOpen) || status.Has(smart3.FlagNonFiscalTicketOpen) {
			return smart3.ErrTicketOpen
		}
		if status.Has(smart3.FlagKeyStrikingStarted) {
			return smart3.ErrKeyStrikingStarted
		}
		return nil
	})
	if err := s.Console.AnswerAny(a01, s.defaultB23()); err != nil {
		return err
	}

	*s.Connectability = smart3.ConnectabilityProgramming{}
	c24 := listener(smart3.MsgConnectability, func(msg *smart3.MessageData) error {
		return s.Connectability.Apply(msg)
	})
	for !s.Connectability.Complete() {
		if err := s.Console.Listen(c24); err != nil {
			return err
		}
	}
	s.Log.Info().
		Int("crn", s.Connectability.CRNumber).
		Int("baud", s.Connectability.BaudRate).
		Msg("session started")
	return nil
}

// listener wraps a listen-only handler for one message type.
func listener(msgType string, fn func(*smart3.MessageData) error) session.Handler {
	return session.Handler{
		Types: []string{msgType},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			return nil, fn(msg)
		},
	}
}
