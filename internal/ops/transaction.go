// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// keepaliveInterval paces the hello loop that keeps the register session
// alive while a sale waits for user confirmation.
const keepaliveInterval = 1000 * time.Millisecond

// TransactionStatus is the sale controller's phase.
type TransactionStatus int

const (
	TransactionInitialized TransactionStatus = iota
	TransactionStarting
	TransactionWaiting
	TransactionCompleting
	TransactionCompleted
	TransactionCanceled
	TransactionRejected
	TransactionFaulted
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionInitialized:
		return "initialized"
	case TransactionStarting:
		return "starting"
	case TransactionWaiting:
		return "waiting"
	case TransactionCompleting:
		return "completing"
	case TransactionCompleted:
		return "completed"
	case TransactionCanceled:
		return "canceled"
	case TransactionRejected:
		return "rejected"
	case TransactionFaulted:
		return "faulted"
	}
	return "unknown"
}

// terminal reports whether the phase can no longer change.
func (s TransactionStatus) terminal() bool {
	switch s {
	case TransactionCompleted, TransactionCanceled, TransactionRejected, TransactionFaulted:
		return true
	}
	return false
}

// SaleItem names an article by id with a sale quantity.
type SaleItem struct {
	ID       string
	Quantity int
}

// Domain errors of the sale controller.
var (
	ErrTransactionOpen     = smart3.E(smart3.KindTransactionOpen, "another transaction is active")
	ErrTransactionCanceled = smart3.E(smart3.KindInvalidOperation, "transaction canceled")
)

// The active-transaction slot is process-wide: whichever controller holds
// it has exclusive use of the operation queue for sale sub-operations.
var (
	activeMu sync.Mutex
	active   *Transaction
)

func claimActive(t *Transaction) error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil && active != t {
		return ErrTransactionOpen
	}
	active = t
	return nil
}

func releaseActive(t *Transaction) {
	activeMu.Lock()
	if active == t {
		active = nil
	}
	activeMu.Unlock()
}

// TransactionActive reports whether a sale currently holds the queue.
func TransactionActive() bool {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active != nil
}

// Transaction is the multi-phase controller for a single sale. It resolves
// the requested articles against the register, keeps the session alive
// while the caller waits for confirmation, and completes the sale with a
// Transact operation.
type Transaction struct {
	mgr      *Manager
	items    []SaleItem
	progress ProgressFunc
	log      zerolog.Logger

	mu              sync.Mutex
	cond            *sync.Cond
	status          TransactionStatus
	cancelRequested bool

	continued    []*plu.Info
	discontinued []SaleItem

	keepaliveStop chan struct{}
	keepaliveDone chan struct{}
	keepaliveErr  error
}

// NewTransaction creates a sale controller over the manager's queue.
func NewTransaction(mgr *Manager, items []SaleItem, progress ProgressFunc, log zerolog.Logger) *Transaction {
	t := &Transaction{
		mgr:      mgr,
		items:    items,
		progress: progress,
		log:      log,
		status:   TransactionInitialized,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Status returns the controller's phase.
func (t *Transaction) Status() TransactionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Continued returns the articles found on the register, carrying the
// caller's quantities.
func (t *Transaction) Continued() []*plu.Info { return t.continued }

// Discontinued returns the requested items the register does not know.
func (t *Transaction) Discontinued() []SaleItem { return t.discontinued }

// Begin resolves the sale items against the register. It returns true when
// every article was found and the controller is waiting for confirmation,
// false when the sale was rejected because of unknown articles.
func (t *Transaction) Begin() (bool, error) {
	t.mu.Lock()
	if t.status != TransactionInitialized {
		t.mu.Unlock()
		return false, smart3.E(smart3.KindInvalidOperation, "transaction already started (%s)", t.status)
	}
	t.status = TransactionStarting
	t.mu.Unlock()

	if err := claimActive(t); err != nil {
		t.setStatus(TransactionFaulted)
		return false, err
	}

	for _, item := range groupItems(t.items) {
		if err := t.checkpoint(); err != nil {
			releaseActive(t)
			return false, err
		}
		read := &ReadPLU{From: item.ID, To: item.ID, Progress: t.progress}
		if err := t.mgr.Enqueue(read).Wait(); err != nil {
			t.setStatus(TransactionFaulted)
			releaseActive(t)
			return false, err
		}
		if len(read.Found) == 0 {
			t.discontinued = append(t.discontinued, item)
			continue
		}
		found := read.Found[0]
		if err := found.SetQuantity(item.Quantity); err != nil {
			t.setStatus(TransactionFaulted)
			releaseActive(t)
			return false, err
		}
		found.Thaw() // reading populated it; the caller's edits start clean
		t.continued = append(t.continued, found)
	}

	if len(t.discontinued) > 0 {
		t.setStatus(TransactionRejected)
		releaseActive(t)
		return false, nil
	}

	t.mu.Lock()
	t.status = TransactionWaiting
	t.keepaliveStop = make(chan struct{})
	t.keepaliveDone = make(chan struct{})
	go t.keepaliveLoop(t.keepaliveStop, t.keepaliveDone)
	t.mu.Unlock()
	return true, nil
}

// keepaliveLoop refreshes the register session while the sale waits for
// confirmation. A failing keepalive ends the loop; its error is re-raised
// by End.
func (t *Transaction) keepaliveLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		p := t.mgr.Enqueue(&Keepalive{})
		if err := p.Wait(); err != nil {
			t.mu.Lock()
			t.keepaliveErr = err
			t.mu.Unlock()
			return
		}
		select {
		case <-stop:
			return
		case <-time.After(keepaliveInterval):
		}
	}
}

// stopKeepalive ends the loop and returns any stored keepalive error.
func (t *Transaction) stopKeepalive() error {
	t.mu.Lock()
	stop, done := t.keepaliveStop, t.keepaliveDone
	t.keepaliveStop, t.keepaliveDone = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	t.mu.Lock()
	err := t.keepaliveErr
	t.keepaliveErr = nil
	t.mu.Unlock()
	return err
}

// End completes the sale: it writes back the articles the caller changed
// and runs the Transact conversation with the given payment.
func (t *Transaction) End(payment decimal.Decimal) error {
	t.mu.Lock()
	if t.status != TransactionWaiting {
		t.mu.Unlock()
		return smart3.E(smart3.KindInvalidOperation, "transaction is %s, not waiting", t.status)
	}
	t.status = TransactionCompleting
	t.mu.Unlock()

	defer func() {
		releaseActive(t)
		for _, p := range t.continued {
			p.Thaw()
		}
	}()

	if err := t.stopKeepalive(); err != nil {
		t.setStatus(TransactionFaulted)
		return err
	}

	for _, p := range t.continued {
		p.Freeze()
	}

	if err := t.checkpoint(); err != nil {
		return err
	}

	total := t.Total()
	if !payment.IsPositive() || payment.LessThan(total) {
		t.setStatus(TransactionFaulted)
		return smart3.E(smart3.KindInvalidOperation, "payment %s does not cover the total %s", payment, total)
	}

	var changed []*plu.Info
	for _, p := range t.continued {
		if p.Dirty() {
			changed = append(changed, p)
		}
	}
	if len(changed) > 0 {
		if err := t.checkpoint(); err != nil {
			return err
		}
		if err := t.mgr.Enqueue(&WritePLU{PLUs: changed, Progress: t.progress}).Wait(); err != nil {
			t.setStatus(TransactionFaulted)
			return err
		}
	}

	if err := t.checkpoint(); err != nil {
		return err
	}

	// Past this point cancellation requests are denied.
	transact := &Transact{Items: t.continued, Payment: payment, Progress: t.progress}
	if err := t.mgr.Enqueue(transact).Wait(); err != nil {
		t.setStatus(TransactionFaulted)
		return err
	}
	t.setStatus(TransactionCompleted)
	return nil
}

// Total sums price times quantity over the continued articles.
func (t *Transaction) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.continued {
		total = total.Add(p.Price().Mul(decimal.NewFromInt(int64(p.Quantity()))))
	}
	return total
}

// Cancel aborts the sale cooperatively. It returns true when the
// transaction ends up canceled. Cancelling a Starting or Completing
// transaction blocks until the running task acknowledges the request at
// its next checkpoint.
func (t *Transaction) Cancel() bool {
	t.mu.Lock()
	switch t.status {
	case TransactionInitialized:
		t.status = TransactionCanceled
		t.mu.Unlock()
		return true

	case TransactionStarting, TransactionCompleting:
		t.cancelRequested = true
		for !t.status.terminal() {
			t.cond.Wait()
		}
		canceled := t.status == TransactionCanceled
		t.mu.Unlock()
		return canceled

	case TransactionWaiting:
		t.status = TransactionCanceled
		t.mu.Unlock()
		if err := t.stopKeepalive(); err != nil {
			t.log.Debug().Err(err).Msg("keepalive error swallowed by cancel")
		}
		releaseActive(t)
		return true

	case TransactionCanceled:
		t.mu.Unlock()
		return true

	default:
		t.mu.Unlock()
		return false
	}
}

// CancelAsync offloads Cancel.
func (t *Transaction) CancelAsync() <-chan bool {
	result := make(chan bool, 1)
	go func() { result <- t.Cancel() }()
	return result
}

// checkpoint samples a pending cancellation request between
// sub-operations, acknowledging it with a status transition and a pulse.
func (t *Transaction) checkpoint() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelRequested {
		t.cancelRequested = false
		t.status = TransactionCanceled
		t.cond.Broadcast()
		return ErrTransactionCanceled
	}
	return nil
}

func (t *Transaction) setStatus(status TransactionStatus) {
	t.mu.Lock()
	t.status = status
	t.cond.Broadcast()
	t.mu.Unlock()
}

// groupItems merges duplicate ids, summing quantities, preserving first
// appearance order.
func groupItems(items []SaleItem) []SaleItem {
	index := make(map[string]int, len(items))
	grouped := make([]SaleItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ID]; ok {
			grouped[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(grouped)
		grouped = append(grouped, item)
	}
	return grouped
}
