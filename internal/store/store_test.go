// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package store

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/internal/ops"
	"github.com/teknel/smart3ctl/pkg/plu"
)

func TestCatalogRoundTrip(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	a, err := plu.New("A1", "Coffee", decimal.RequireFromString("1.50"), 3, 1, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := plu.New("B2", "Tea", decimal.RequireFromString("0.80"), 3, 2, 1, 5)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.SaveCatalog([]*plu.Info{a, b}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	plus, taken, err := st.LoadCatalog()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if taken.IsZero() {
		t.Error("snapshot time lost")
	}
	if len(plus) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(plus))
	}
	if plus[0].ID() != "A1" || !plus[0].Price().Equal(decimal.RequireFromString("1.50")) {
		t.Errorf("first article corrupted: %s %s", plus[0].ID(), plus[0].Price())
	}
	if plus[1].Tax() != 2 || plus[1].Quantity() != 5 {
		t.Errorf("second article corrupted: tax %d qty %d", plus[1].Tax(), plus[1].Quantity())
	}
}

func TestReportRoundTrip(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	report := &ops.FinancialReport{
		TicketsIssued:    12,
		ItemsSold:        40,
		PaymentAmount:    decimal.RequireFromString("123.45"),
		InflowAmount:     decimal.RequireFromString("10.00"),
		OutflowAmount:    decimal.RequireFromString("5.50"),
		DrawerAmount:     decimal.RequireFromString("127.95"),
		PaymentsInPeriod: decimal.RequireFromString("1023.40"),
	}
	if err := st.SaveReport(report); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, _, err := st.LoadReport()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.TicketsIssued != 12 || loaded.ItemsSold != 40 {
		t.Errorf("counts corrupted: %d/%d", loaded.TicketsIssued, loaded.ItemsSold)
	}
	if !loaded.PaymentAmount.Equal(report.PaymentAmount) {
		t.Errorf("payment corrupted: %s", loaded.PaymentAmount)
	}
	if !loaded.PaymentsInPeriod.Equal(report.PaymentsInPeriod) {
		t.Errorf("period corrupted: %s", loaded.PaymentsInPeriod)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := st.LoadCatalog(); err == nil {
		t.Error("missing catalog snapshot must fail")
	}
}
