// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package register is the public service façade over the Smart3 driver:
// one Service per configured register, offering the catalogue, report and
// sale entry points the application layers consume.
package register

import (
	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/internal/config"
	"github.com/teknel/smart3ctl/internal/conn"
	"github.com/teknel/smart3ctl/internal/ops"
	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// Service exposes the driver's operations. Methods block until the
// underlying operation completes; run them from a goroutine for
// fire-and-forget semantics. Every entry point refuses while a sale
// transaction holds the queue.
type Service struct {
	mgr *ops.Manager
	log zerolog.Logger
}

// New builds a service from configuration.
func New(cfg config.Config, log zerolog.Logger) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	layer, err := config.ParseLayer(cfg.PhysicalLayer)
	if err != nil {
		return nil, err
	}

	dial := func() (conn.Connection, error) {
		if cfg.WebSocket.URL != "" {
			password := ""
			if cfg.WebSocket.Username != "" {
				if password, err = conn.GetPassword(); err != nil {
					return nil, err
				}
			}
			return conn.OpenWebSocket(cfg.WebSocket.URL, cfg.WebSocket.Username, password, cfg.WebSocket.InsecureSkipTLS)
		}
		return conn.OpenSerial(cfg.Port, cfg.Baud)
	}

	opts := ops.Options{
		Layer:          layer,
		Address:        smart3.UnitAddress(cfg.Unit),
		ReceiveTimeout: msToDuration(cfg.ReceiveTimeoutMs),
		SendTimeout:    msToDuration(cfg.SendTimeoutMs),
	}
	if cfg.TranscriptPath != "" {
		w, err := openTranscript(cfg.TranscriptPath)
		if err != nil {
			return nil, err
		}
		opts.Transcript = w
	}
	return &Service{mgr: ops.NewManager(dial, opts, log), log: log}, nil
}

// NewWithManager wires a service over an existing manager. Used by tests
// and embedders that construct their own transport.
func NewWithManager(mgr *ops.Manager, log zerolog.Logger) *Service {
	return &Service{mgr: mgr, log: log}
}

func (s *Service) guard() error {
	if ops.TransactionActive() {
		return ops.ErrTransactionOpen
	}
	return nil
}

// ReadPLU fetches the article records in the id range [from, to].
func (s *Service) ReadPLU(from, to string, progress ops.ProgressFunc) ([]*plu.Info, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	op := &ops.ReadPLU{From: from, To: to, Progress: progress}
	if err := s.mgr.Enqueue(op).Wait(); err != nil {
		return nil, err
	}
	return op.Found, nil
}

// WritePLU programs articles through the interactivity loop.
func (s *Service) WritePLU(plus []*plu.Info, progress ops.ProgressFunc) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.mgr.Enqueue(&ops.WritePLU{PLUs: plus, Progress: progress}).Wait()
}

// BroadcastPLU bulk-loads articles over the broadcast channel.
func (s *Service) BroadcastPLU(plus []*plu.Info, progress ops.ProgressFunc) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.mgr.Enqueue(&ops.BroadcastPLU{PLUs: plus, Progress: progress}).Wait()
}

// FinancialReport runs a financial report.
func (s *Service) FinancialReport() (*ops.FinancialReport, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	op := &ops.FinancialReportOp{}
	if err := s.mgr.Enqueue(op).Wait(); err != nil {
		return nil, err
	}
	return op.Report, nil
}

// FiscalClosing runs the end-of-day settlement.
func (s *Service) FiscalClosing() error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.mgr.Enqueue(&ops.FiscalClosing{}).Wait()
}

// Status refreshes and returns the register status block.
func (s *Service) Status() (*smart3.CashRegisterStatus, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	op := &ops.Keepalive{}
	if err := s.mgr.Enqueue(op).Wait(); err != nil {
		return nil, err
	}
	return op.Status, nil
}

// NewTransaction creates a sale controller bound to this service's queue.
func (s *Service) NewTransaction(items []ops.SaleItem, progress ops.ProgressFunc) (*ops.Transaction, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return ops.NewTransaction(s.mgr, items, progress, s.log), nil
}
