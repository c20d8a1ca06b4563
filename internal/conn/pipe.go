package conn

import (
	"io"
	"sync"
	"time"
)

// Pipe returns two connected in-memory endpoints. Bytes written on one end
// are readable on the other. Both ends honour read timeouts, which makes
// the pair a drop-in register simulator transport for tests.
func Pipe() (*PipeConnection, *PipeConnection) {
	a := newPipeEnd()
	b := newPipeEnd()
	return &PipeConnection{in: a, out: b}, &PipeConnection{in: b, out: a}
}

type pipeBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	closed bool
}

func newPipeEnd() *pipeBuffer {
	b := &pipeBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// PipeConnection is one end of an in-memory duplex byte stream.
type PipeConnection struct {
	in      *pipeBuffer
	out     *pipeBuffer
	timeout time.Duration
}

func (p *PipeConnection) Read(buf []byte) (int, error) {
	deadline := time.Time{}
	if p.timeout > 0 {
		deadline = time.Now().Add(p.timeout)
	}

	p.in.mu.Lock()
	defer p.in.mu.Unlock()
	for len(p.in.data) == 0 {
		if p.in.closed {
			return 0, io.EOF
		}
		if p.timeout == 0 {
			return 0, nil
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, nil
		}
		waitCond(p.in.cond, wait)
	}
	n := copy(buf, p.in.data)
	p.in.data = p.in.data[n:]
	return n, nil
}

func (p *PipeConnection) Write(buf []byte) (int, error) {
	p.out.mu.Lock()
	defer p.out.mu.Unlock()
	if p.out.closed {
		return 0, io.ErrClosedPipe
	}
	p.out.data = append(p.out.data, buf...)
	p.out.cond.Broadcast()
	return len(buf), nil
}

func (p *PipeConnection) Close() error {
	for _, b := range []*pipeBuffer{p.in, p.out} {
		b.mu.Lock()
		b.closed = true
		b.cond.Broadcast()
		b.mu.Unlock()
	}
	return nil
}

func (p *PipeConnection) SetReadTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

// Pending reports whether unread bytes are buffered on this end.
func (p *PipeConnection) Pending() bool {
	p.in.mu.Lock()
	defer p.in.mu.Unlock()
	return len(p.in.data) > 0
}

// waitCond waits on c for at most d. sync.Cond has no timed wait, so a
// timer pulses the condition.
func waitCond(c *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	defer timer.Stop()
	c.Wait()
}
