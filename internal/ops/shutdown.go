// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"time"

	"github.com/teknel/smart3ctl/pkg/smart3"
)

// Shutdown closes a session: it moves the register to Inactive mode,
// removes the keyboard lock, requests an immediate final hello, absorbs the
// register's retransmits and lets its disconnection timer elapse.
type Shutdown struct{}

func (*Shutdown) Name() string { return "shutdown" }

func (*Shutdown) Execute(s *Session) error {
	if err := s.Console.Hello(false); err != nil {
		return err
	}
	if err := s.Console.Answer(s.a01Handler("0;+0;*3", nil)); err != nil {
		return err
	}
	if err := s.Console.Answer(s.b23Handler("0;#A")); err != nil {
		return err
	}

	// The final hello is never acknowledged, so the register retransmits
	// it. Absorb every retransmit to keep the line quiet.
	for i := 0; i <= s.Connectability.Retransmissions; i++ {
		if err := s.Console.Swallow(); err != nil {
			s.Log.Debug().Err(err).Int("swallow", i).Msg("final hello absorption ended early")
			break
		}
	}

	// Empirically the register only releases the session once its own
	// disconnection timer has elapsed.
	time.Sleep(time.Duration(s.Connectability.TimeoutMilliseconds) * time.Millisecond)
	return nil
}

// Keepalive requests a hello and answers it with the empty command, so the
// register's connection timer is refreshed without side effects.
type Keepalive struct {
	// Status receives the parsed hello block after execution.
	Status *smart3.CashRegisterStatus
}

func (*Keepalive) Name() string { return "keepalive" }

func (k *Keepalive) Execute(s *Session) error {
	if err := s.Console.Hello(false); err != nil {
		return err
	}
	if err := s.Console.AnswerAny(s.a01Handler(smart3.DefaultCommand, nil), s.defaultB23()); err != nil {
		return err
	}
	status := *s.Status
	k.Status = &status
	return nil
}
