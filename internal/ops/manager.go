// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/internal/conn"
	"github.com/teknel/smart3ctl/internal/port"
	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// idleWait is how long the worker lingers after draining the queue, so a
// continuation caller can enqueue its next operation without the session
// being torn down and respun.
const idleWait = 250 * time.Millisecond

// Pending is the completion handle of an enqueued operation.
type Pending struct {
	op   Operation
	done chan struct{}
	err  error
}

// Done is closed once the operation has completed or been aborted.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the operation's error. Only valid after Done is closed.
func (p *Pending) Err() error { return p.err }

// Wait blocks until completion and returns the operation's error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

func (p *Pending) complete(err error) {
	p.err = err
	close(p.done)
}

// Options configures a Manager.
type Options struct {
	Layer          smart3.PhysicalLayer
	Address        byte // paired register address, RS-485 only
	ReceiveTimeout time.Duration
	SendTimeout    time.Duration
	Transcript     io.Writer
}

// Manager is the process-wide serialised operation executor. It owns the
// connection for an entire session: a single worker goroutine opens the
// port, runs a startup operation, executes queued operations strictly one
// at a time, and closes the session with a shutdown operation once the
// queue stays empty.
type Manager struct {
	dial func() (conn.Connection, error)
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Pending
	running bool
}

// NewManager creates a manager dialing connections through dial.
func NewManager(dial func() (conn.Connection, error), opts Options, log zerolog.Logger) *Manager {
	if opts.ReceiveTimeout == 0 {
		opts.ReceiveTimeout = port.DefaultReceiveTimeout
	}
	if opts.SendTimeout == 0 {
		opts.SendTimeout = port.DefaultSendTimeout
	}
	m := &Manager{dial: dial, opts: opts, log: log}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Enqueue appends an operation to the session queue, spinning up the
// worker when none is live, and returns its completion handle.
func (m *Manager) Enqueue(op Operation) *Pending {
	p := &Pending{op: op, done: make(chan struct{})}
	m.mu.Lock()
	m.queue = append(m.queue, p)
	if !m.running {
		m.running = true
		go m.worker()
	} else {
		m.cond.Signal()
	}
	m.mu.Unlock()
	return p
}

// worker is the session lifecycle: dial, startup, drain the queue,
// shutdown. An operation error aborts every queued operation with the same
// error; shutdown still runs on the way out.
func (m *Manager) worker() {
	defer m.finish()

	c, err := m.dial()
	if err != nil {
		m.abortAll(smart3.WrapE(smart3.KindIO, err, "cannot open the register connection"))
		return
	}
	drv := port.NewDriver(c, m.opts.Layer, m.log)
	drv.ReceiveTimeout = m.opts.ReceiveTimeout
	drv.SendTimeout = m.opts.SendTimeout
	if m.opts.Transcript != nil {
		drv.SetTranscript(m.opts.Transcript)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			m.log.Warn().Err(err).Msg("port close failed")
		}
	}()

	tr := session.NewTransceiver(drv, m.opts.Layer, m.opts.Address, m.log)
	sess := &Session{
		Console:        session.NewConsole(tr, m.log),
		Status:         &smart3.CashRegisterStatus{},
		Connectability: &smart3.ConnectabilityProgramming{},
		Log:            m.log,
	}

	defer func() {
		if err := m.execute(sess, &Shutdown{}); err != nil {
			m.log.Warn().Err(err).Msg("shutdown operation failed")
		}
	}()

	if err := m.execute(sess, &Startup{}); err != nil {
		m.abortAll(err)
		return
	}

	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			condWaitTimeout(m.cond, idleWait)
			if len(m.queue) == 0 {
				m.mu.Unlock()
				return
			}
		}
		p := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		err := m.execute(sess, p.op)
		p.complete(err)
		if err != nil {
			m.abortAll(err)
			return
		}
	}
}

// execute runs one operation, normalising the error for propagation: a
// packet validation failure that escapes the console's retry loop is a
// protocol failure from the caller's point of view.
func (m *Manager) execute(sess *Session, op Operation) error {
	m.log.Debug().Str("operation", op.Name()).Msg("executing")
	err := op.Execute(sess)
	if err != nil && smart3.IsKind(err, smart3.KindPacketValidation) {
		err = smart3.WrapE(smart3.KindProtocol, err, "operation %q failed on packet validation", op.Name())
	}
	if err != nil {
		m.log.Error().Err(err).Str("operation", op.Name()).Msg("operation failed")
	}
	return err
}

// abortAll fails every queued operation with the same error.
func (m *Manager) abortAll(err error) {
	m.mu.Lock()
	aborted := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, p := range aborted {
		p.complete(err)
	}
}

// finish hands over to a fresh worker when operations arrived while this
// one was shutting down.
func (m *Manager) finish() {
	m.mu.Lock()
	if len(m.queue) > 0 {
		go m.worker()
	} else {
		m.running = false
	}
	m.mu.Unlock()
}

// condWaitTimeout waits on c for at most d; c.L must be held.
func condWaitTimeout(c *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	defer timer.Stop()
	c.Wait()
}
