// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package store persists register snapshots (article catalogues, financial
// reports) as CBOR files and loads the last one back. The CLI only writes
// snapshots; no command reads them.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/internal/ops"
	"github.com/teknel/smart3ctl/pkg/plu"
)

const (
	catalogFile = "plu-catalog.cbor"
	reportFile  = "financial-report.cbor"
)

// Store writes snapshots under one directory.
type Store struct {
	dir string
}

// New creates the snapshot directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create snapshot dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

type catalogRecord struct {
	ID         string `cbor:"1,keyasint"`
	Name       string `cbor:"2,keyasint"`
	PriceCents int64  `cbor:"3,keyasint"`
	Department int    `cbor:"4,keyasint"`
	Tax        int    `cbor:"5,keyasint"`
	Macro      int    `cbor:"6,keyasint"`
	Quantity   int    `cbor:"7,keyasint"`
}

type catalogSnapshot struct {
	Taken   time.Time       `cbor:"1,keyasint"`
	Records []catalogRecord `cbor:"2,keyasint"`
}

type reportSnapshot struct {
	Taken         time.Time `cbor:"1,keyasint"`
	TicketsIssued int       `cbor:"2,keyasint"`
	ItemsSold     int       `cbor:"3,keyasint"`
	PaymentCents  int64     `cbor:"4,keyasint"`
	InflowCents   int64     `cbor:"5,keyasint"`
	OutflowCents  int64     `cbor:"6,keyasint"`
	DrawerCents   int64     `cbor:"7,keyasint"`
	PeriodCents   int64     `cbor:"8,keyasint"`
}

// SaveCatalog snapshots an article list.
func (s *Store) SaveCatalog(plus []*plu.Info) error {
	snap := catalogSnapshot{Taken: time.Now()}
	for _, p := range plus {
		snap.Records = append(snap.Records, catalogRecord{
			ID:         p.ID(),
			Name:       p.Name(),
			PriceCents: p.PriceCents(),
			Department: p.Department(),
			Tax:        p.Tax(),
			Macro:      p.Macro(),
			Quantity:   p.Quantity(),
		})
	}
	return s.write(catalogFile, snap)
}

// LoadCatalog restores the last article snapshot.
func (s *Store) LoadCatalog() ([]*plu.Info, time.Time, error) {
	var snap catalogSnapshot
	if err := s.read(catalogFile, &snap); err != nil {
		return nil, time.Time{}, err
	}
	plus := make([]*plu.Info, 0, len(snap.Records))
	for _, r := range snap.Records {
		price := decimal.New(r.PriceCents, -2)
		p, err := plu.New(r.ID, r.Name, price, r.Department, r.Tax, r.Macro, r.Quantity)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("corrupt catalog snapshot: %w", err)
		}
		plus = append(plus, p)
	}
	return plus, snap.Taken, nil
}

// SaveReport snapshots a financial report.
func (s *Store) SaveReport(r *ops.FinancialReport) error {
	return s.write(reportFile, reportSnapshot{
		Taken:         time.Now(),
		TicketsIssued: r.TicketsIssued,
		ItemsSold:     r.ItemsSold,
		PaymentCents:  cents(r.PaymentAmount),
		InflowCents:   cents(r.InflowAmount),
		OutflowCents:  cents(r.OutflowAmount),
		DrawerCents:   cents(r.DrawerAmount),
		PeriodCents:   cents(r.PaymentsInPeriod),
	})
}

// LoadReport restores the last financial report snapshot.
func (s *Store) LoadReport() (*ops.FinancialReport, time.Time, error) {
	var snap reportSnapshot
	if err := s.read(reportFile, &snap); err != nil {
		return nil, time.Time{}, err
	}
	return &ops.FinancialReport{
		TicketsIssued:    snap.TicketsIssued,
		ItemsSold:        snap.ItemsSold,
		PaymentAmount:    decimal.New(snap.PaymentCents, -2),
		InflowAmount:     decimal.New(snap.InflowCents, -2),
		OutflowAmount:    decimal.New(snap.OutflowCents, -2),
		DrawerAmount:     decimal.New(snap.DrawerCents, -2),
		PaymentsInPeriod: decimal.New(snap.PeriodCents, -2),
	}, snap.Taken, nil
}

func cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *Store) write(name string, v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot encode failed: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot write failed (%s): %w", path, err)
	}
	return nil
}

func (s *Store) read(name string, v interface{}) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("snapshot read failed (%s): %w", path, err)
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("snapshot decode failed (%s): %w", path, err)
	}
	return nil
}
