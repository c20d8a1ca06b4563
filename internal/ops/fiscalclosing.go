// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// FiscalClosing runs the end-of-day settlement. The register refuses to
// close when its fiscal memory is faulted or full, so those flags are
// checked before the closing command is issued.
type FiscalClosing struct{}

func (*FiscalClosing) Name() string { return "fiscal closing" }

func (*FiscalClosing) Execute(s *Session) error {
	if err := s.Console.Hello(false); err != nil {
		return err
	}
	a01 := s.a01Handler("0;+3;#Z", func(status *smart3.CashRegisterStatus) error {
		if status.Has(smart3.FlagFiscalMemoryError) {
			return smart3.ErrFiscalMemoryError
		}
		if status.Has(smart3.FlagFiscalMemoryFull) {
			return smart3.ErrFiscalMemoryFull
		}
		return nil
	})
	if err := s.Console.AnswerAny(a01, s.defaultB23()); err != nil {
		return err
	}

	b45 := session.Handler{
		Types: []string{smart3.MsgFiscalClosing},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			return smart3.NewMessage(smart3.DefaultCommand), nil
		},
	}
	return s.Console.Answer(b45)
}
