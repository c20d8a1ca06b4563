// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"fmt"

	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// WritePLU programs articles one at a time through the B81 interactivity
// loop the register runs while in Programming mode.
type WritePLU struct {
	PLUs     []*plu.Info
	Progress ProgressFunc
}

func (*WritePLU) Name() string { return "write plu" }

func (op *WritePLU) Execute(s *Session) error {
	if err := s.Console.Hello(false); err != nil {
		return err
	}
	if err := s.Console.AnswerAny(s.a01Handler("0;+4;*G", nil), s.defaultB23()); err != nil {
		return err
	}

	queue := append([]*plu.Info(nil), op.PLUs...)
	total := len(queue)
	done := false
	b81 := session.Handler{
		Types: []string{smart3.MsgPLUWrite},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			if len(queue) == 0 {
				done = true
				return smart3.NewMessage(smart3.TerminatorField), nil
			}
			next := queue[0]
			queue = queue[1:]
			reply := fmt.Sprintf("%s:%d:%d:%s:0:0:0:%d:%d",
				next.ID(), next.PriceCents(), next.Department(), next.Name(), next.Tax(), next.Macro())
			op.Progress.report(Progress{Item: next.ID(), Current: total - len(queue), Total: total, Kind: Writing})
			return smart3.NewMessage(reply), nil
		},
	}
	for !done {
		if err := s.Console.Answer(b81); err != nil {
			return err
		}
	}
	return nil
}
