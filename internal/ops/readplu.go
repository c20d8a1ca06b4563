// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// ReadPLU requests the article records in the id range [From, To] and
// collects them into Found. The range bounds are normalised to ordinal
// ascending order before the request is issued.
type ReadPLU struct {
	From     string
	To       string
	Progress ProgressFunc

	Found []*plu.Info
}

func (*ReadPLU) Name() string { return "read plu" }

func (op *ReadPLU) Execute(s *Session) error {
	from, to := op.From, op.To
	if strings.Compare(from, to) > 0 {
		from, to = to, from
	}

	if err := s.Console.Hello(false); err != nil {
		return err
	}
	command := fmt.Sprintf("0;+4;&M%s:%s", from, to)
	if err := s.Console.AnswerAny(s.a01Handler(command, nil), s.defaultB23()); err != nil {
		return err
	}

	done := false
	c08 := listener(smart3.MsgPLURecord, func(msg *smart3.MessageData) error {
		id, err := msg.Field(3)
		if err != nil {
			return err
		}
		if id == smart3.TerminatorField {
			done = true
			return nil
		}
		info, err := parsePLURecord(msg, id)
		if err != nil {
			return err
		}
		op.Found = append(op.Found, info)
		op.Progress.report(Progress{Item: id, Current: len(op.Found), Total: 0, Kind: Reading})
		return nil
	})
	for !done {
		if err := s.Console.Listen(c08); err != nil {
			return err
		}
	}
	return nil
}

// parsePLURecord extracts an article from one C08 record.
func parsePLURecord(msg *smart3.MessageData, id string) (*plu.Info, error) {
	name, err := msg.Field(6)
	if err != nil {
		return nil, err
	}
	department, err := msg.IntField(5)
	if err != nil {
		return nil, err
	}
	tax, err := msg.IntField(10)
	if err != nil {
		return nil, err
	}
	macro, err := msg.IntField(11)
	if err != nil {
		return nil, err
	}
	price, err := centsField(msg, 4)
	if err != nil {
		return nil, err
	}
	info, err := plu.New(id, name, price, department, tax, macro, plu.MinQuantity)
	if err != nil {
		return nil, smart3.WrapE(smart3.KindProtocol, err, "invalid article record %q", id)
	}
	return info, nil
}

// centsField parses a field holding an integer-cent amount: a decimal
// point is inserted two positions from the right before parsing.
func centsField(msg *smart3.MessageData, i int) (decimal.Decimal, error) {
	raw, err := msg.Field(i)
	if err != nil {
		return decimal.Zero, err
	}
	raw = strings.TrimSpace(raw)
	for len(raw) < 3 {
		raw = "0" + raw
	}
	v, err := decimal.NewFromString(raw[:len(raw)-2] + "." + raw[len(raw)-2:])
	if err != nil {
		return decimal.Zero, smart3.WrapE(smart3.KindProtocol, err, "message %q field %d is not an amount", msg.Type(), i)
	}
	return v, nil
}
