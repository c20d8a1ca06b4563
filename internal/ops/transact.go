// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// Transact drives one sale through keyboard simulation: the register is put
// into Registering mode, each article is keyed in as "qty*id PLU", a
// subtotal closes the item chain and the payment total closes the ticket.
type Transact struct {
	Items    []*plu.Info
	Payment  decimal.Decimal
	Progress ProgressFunc
}

func (*Transact) Name() string { return "transact" }

func (op *Transact) Execute(s *Session) error {
	if len(op.Items) == 0 {
		return smart3.E(smart3.KindInvalidArgument, "a sale needs at least one article")
	}

	if err := s.Console.Hello(false); err != nil {
		return err
	}
	if err := s.Console.AnswerAny(s.a01Handler("0;+1", nil)); err != nil {
		return err
	}

	queue := append([]*plu.Info(nil), op.Items...)
	total := len(queue)
	first := queue[0]
	queue = queue[1:]

	// The mode change reply clears any stale register input and sells the
	// first article in one keyboard sequence.
	b23 := session.Handler{
		Types: []string{smart3.MsgModeChange},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			seq := fmt.Sprintf("$CLEAR$$CLEAR$%s", saleKeys(first))
			op.Progress.report(Progress{Item: first.ID(), Current: 1, Total: total, Kind: Selling})
			return smart3.EncodeKeyboardSequence(seq, false)
		},
	}
	if err := s.Console.Answer(b23); err != nil {
		return err
	}

	b10 := defaultAnswer(smart3.MsgTicketStart)
	chainDone := false
	b14 := session.Handler{
		Types: []string{smart3.MsgItemSale},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			if len(queue) > 0 {
				next := queue[0]
				queue = queue[1:]
				op.Progress.report(Progress{Item: next.ID(), Current: total - len(queue), Total: total, Kind: Selling})
				return smart3.EncodeKeyboardSequence(saleKeys(next), false)
			}
			chainDone = true
			return smart3.EncodeKeyboardSequence("$SUBTOTAL$", false)
		},
	}
	for !chainDone {
		if err := s.Console.AnswerAny(b10, b14); err != nil {
			return err
		}
	}

	b15 := session.Handler{
		Types: []string{smart3.MsgSubtotal},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			return smart3.EncodeKeyboardSequence(op.Payment.StringFixed(2)+"$TOTAL$", false)
		},
	}
	if err := s.Console.Answer(b15); err != nil {
		return err
	}
	if err := s.Console.Answer(defaultAnswer(smart3.MsgPaymentStart)); err != nil {
		return err
	}
	return s.Console.Answer(defaultAnswer(smart3.MsgTicketEnd))
}

// saleKeys renders the keyboard shorthand selling one article.
func saleKeys(p *plu.Info) string {
	return fmt.Sprintf("%d*%s$PLU$", p.Quantity(), p.ID())
}

// defaultAnswer replies to one interactivity type with the empty command.
func defaultAnswer(msgType string) session.Handler {
	return session.Handler{
		Types: []string{msgType},
		Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
			return smart3.NewMessage(smart3.DefaultCommand), nil
		},
	}
}
