// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/pkg/smart3"
)

// FinancialReport aggregates the C22 record series of a financial report.
type FinancialReport struct {
	TicketsIssued    int
	ItemsSold        int
	PaymentAmount    decimal.Decimal
	InflowAmount     decimal.Decimal
	OutflowAmount    decimal.Decimal
	DrawerAmount     decimal.Decimal
	PaymentsInPeriod decimal.Decimal
}

// FinancialReportOp runs a financial report in Reading mode and collects
// the C22 record series into Report.
type FinancialReportOp struct {
	Report *FinancialReport
}

func (*FinancialReportOp) Name() string { return "financial report" }

func (op *FinancialReportOp) Execute(s *Session) error {
	op.Report = &FinancialReport{}

	if err := s.Console.Hello(false); err != nil {
		return err
	}
	if err := s.Console.AnswerAny(s.a01Handler("0;+2;*f", nil), s.defaultB23()); err != nil {
		return err
	}

	done := false
	c22 := listener(smart3.MsgFinancialRecord, func(msg *smart3.MessageData) error {
		recordID, err := msg.Field(3)
		if err != nil {
			return err
		}
		switch recordID {
		case smart3.TerminatorField:
			done = true
			return nil
		case "0":
			if op.Report.TicketsIssued, err = msg.IntField(4); err != nil {
				return err
			}
			op.Report.ItemsSold, err = msg.IntField(5)
			return err
		case "4*":
			return sumAmounts(msg, &op.Report.PaymentAmount)
		case "6*":
			return sumAmounts(msg, &op.Report.InflowAmount)
		case "7*":
			return sumAmounts(msg, &op.Report.OutflowAmount)
		case "8*":
			return sumAmounts(msg, &op.Report.DrawerAmount)
		case "9*":
			return sumAmounts(msg, &op.Report.PaymentsInPeriod)
		}
		// Unknown record ids are ignored.
		return nil
	})
	for !done {
		if err := s.Console.Listen(c22); err != nil {
			return err
		}
	}
	return nil
}

// sumAmounts adds every amount field of a C22 record into dst. Amounts sit
// at fields 5, 7, 9, ... up to the last two fields, which carry the
// operator and the document number.
func sumAmounts(msg *smart3.MessageData, dst *decimal.Decimal) error {
	for i := 5; i < msg.FieldCount()-2; i += 2 {
		v, err := centsField(msg, i)
		if err != nil {
			return err
		}
		*dst = dst.Add(v)
	}
	return nil
}
