// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/internal/conn"
	"github.com/teknel/smart3ctl/internal/observability"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

func testLogger() zerolog.Logger {
	return observability.Discard()
}

// pluRecord is one catalogue entry of the simulated register.
type pluRecord struct {
	name       string
	priceCents int
	department int
	tax        int
	macro      int
}

// fakeDevice simulates a Smart3 register over in-memory pipes. Every dial
// spawns a fresh serving goroutine, so the manager can open and close as
// many sessions as its scheduling produces.
type fakeDevice struct {
	tb    testing.TB
	layer smart3.PhysicalLayer

	// Status bytes reported in every hello.
	statusField1 int
	statusField2 int
	statusField3 int

	mu               sync.Mutex
	catalog          map[string]pluRecord
	c22Records       []string
	b99Responses     []int
	commands         []string // every command the host sent in reply to a hello
	written          []string // B81 replies received
	b99Replies       []string
	keySequences     []string // keyboard simulation replies received
	broadcastRecords [][]byte
	shutdowns        int

	wg sync.WaitGroup
}

func newFakeDevice(tb testing.TB) *fakeDevice {
	d := &fakeDevice{
		tb:           tb,
		layer:        smart3.RS232,
		statusField1: 68, // Programming mode, reconnection flag
		statusField2: 128,
		statusField3: 192,
		catalog:      map[string]pluRecord{},
	}
	tb.Cleanup(d.wg.Wait)
	return d
}

func (d *fakeDevice) dial() (conn.Connection, error) {
	hostEnd, regEnd := conn.Pipe()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.serve(regEnd)
	}()
	return hostEnd, nil
}

// manager builds an operation manager over this device with fast timeouts.
func (d *fakeDevice) manager() *Manager {
	return NewManager(d.dial, Options{
		Layer:          d.layer,
		ReceiveTimeout: 2 * time.Second,
		SendTimeout:    2 * time.Second,
	}, testLogger())
}

func (d *fakeDevice) statusPayload() string {
	return fmt.Sprintf("A01:%03d:%03d:%03d:3112991159:SMARTIII:R000001:",
		d.statusField1, d.statusField2, d.statusField3)
}

func (d *fakeDevice) shutdownCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdowns
}

// waitForShutdown blocks until every session so far has been closed.
func (d *fakeDevice) waitForShutdown(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for d.shutdownCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("register never saw a shutdown")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// serveState is the per-session line state.
type serveState struct {
	d           *fakeDevice
	c           *conn.PipeConnection
	seq         int
	inBroadcast bool
	closed      bool
}

func (d *fakeDevice) serve(c *conn.PipeConnection) {
	s := &serveState{d: d, c: c}
	defer c.Close()
	for !s.closed {
		b, ok := s.readByte()
		if !ok {
			return
		}
		switch {
		case b == smart3.DLE || b == smart3.DC1:
			s.handleHello()
		case b == smart3.EOT:
			s.handleFrame()
		default:
			d.tb.Errorf("register: unexpected byte 0x%02X outside a dialogue", b)
			return
		}
	}
}

// readByte reads one byte with a generous deadline; false means the host
// closed the line or the test stalled.
func (s *serveState) readByte() (byte, bool) {
	_ = s.c.SetReadTimeout(3 * time.Second)
	buf := make([]byte, 1)
	n, err := s.c.Read(buf)
	if err != nil {
		s.closed = true
		return 0, false
	}
	if n == 0 {
		s.closed = true
		return 0, false
	}
	return buf[0], true
}

// readFrame decodes one framed packet, the first byte having already been
// identified as EOT by the caller when preRead is set.
func (s *serveState) readFrame(preRead bool) smart3.Packet {
	framer := smart3.NewFramer(s.d.layer)
	if preRead {
		if _, err := framer.FeedByte(smart3.EOT); err != nil {
			s.d.tb.Errorf("register framer: %v", err)
			return nil
		}
	}
	for {
		b, ok := s.readByte()
		if !ok {
			return nil
		}
		packet, err := framer.FeedByte(b)
		if err != nil {
			s.d.tb.Errorf("register framer: %v", err)
			return nil
		}
		if packet != nil {
			return packet
		}
	}
}

// readReply reads the host's reply message; an incoming hello request is
// surfaced instead when the host abandoned the dialogue.
func (s *serveState) readReply() (*smart3.MessageData, byte) {
	packet := s.readFrame(false)
	if packet == nil {
		return nil, 0
	}
	switch p := packet.(type) {
	case *smart3.MessagePacket:
		return p.Message(), 0
	case *smart3.IndicatorPacket:
		return nil, p.Control()
	}
	return nil, 0
}

func (s *serveState) expectReply(expected string) bool {
	reply, _ := s.readReply()
	if reply == nil {
		if !s.closed {
			s.d.tb.Errorf("register: no reply, expected %q", expected)
		}
		return false
	}
	s.ack()
	if reply.String() != expected {
		s.d.tb.Errorf("register: expected reply %q, got %q", expected, reply)
		return false
	}
	return true
}

func (s *serveState) sendMessage(payload string) {
	s.seq++
	msg, err := smart3.NewMessageData([]byte(payload))
	if err != nil {
		s.d.tb.Errorf("register: bad payload %q: %v", payload, err)
		return
	}
	if _, err := s.c.Write(smart3.NewMessagePacket(s.seq, 1, msg).Encode()); err != nil {
		s.closed = true
	}
}

func (s *serveState) ack() {
	if _, err := s.c.Write(smart3.NewIndicatorPacket(smart3.ACK).Encode()); err != nil {
		s.closed = true
	}
}

func (s *serveState) expectACK() {
	b, ok := s.readByte()
	if !ok {
		return
	}
	if b != smart3.ACK {
		s.d.tb.Errorf("register: expected ACK, got 0x%02X", b)
	}
}

// transmit sends one message and waits for the host's acknowledgement, the
// Listen side of a transmission series.
func (s *serveState) transmit(payload string) bool {
	s.sendMessage(payload)
	s.expectACK()
	return !s.closed
}

// handleHello answers a hello request with the status block and dispatches
// on the host's command reply.
func (s *serveState) handleHello() {
	d := s.d
	s.sendMessage(d.statusPayload())
	reply, control := s.readReply()
	if reply == nil {
		if control == smart3.DLE || control == smart3.DC1 {
			// The host abandoned this dialogue and opened a new one.
			s.handleHello()
		}
		return
	}
	s.ack()

	command := reply.String()
	d.mu.Lock()
	d.commands = append(d.commands, command)
	d.mu.Unlock()

	switch {
	case command == "0;*2;+4;&m":
		s.sendConnectability()
	case command == "0":
		// Keepalive; nothing follows.
	case command == "0;+0;*3":
		s.handleShutdown()
	case strings.HasPrefix(command, "0;+4;&M"):
		s.sendCatalog(strings.TrimPrefix(command, "0;+4;&M"))
	case command == "0;+4;*G":
		s.handleWriteLoop()
	case strings.HasPrefix(command, "0;+4;#z"):
		s.inBroadcast = true
	case command == "0;+2;*f":
		s.sendFinancialReport()
	case command == "0;+3;#Z":
		s.handleFiscalClosing()
	case command == "0;+1":
		s.handleTransact()
	default:
		d.tb.Errorf("register: unhandled command %q", command)
	}
}

func (s *serveState) sendConnectability() {
	// Zero ack timeout and zero retransmissions keep the tests quick.
	records := []string{
		"C24:1:4:0:10:6:4:0:0:0",
		"C24:2:4:1:2:1:7:16:4",
		"C24:3:4:2:0:100:10:160:0:0",
		"C24:4:4:*",
	}
	for _, record := range records {
		if !s.transmit(record) {
			return
		}
	}
}

func (s *serveState) handleShutdown() {
	s.sendMessage("B23:1")
	if !s.expectReply("0;#A") {
		return
	}
	// The final hello is swallowed without acknowledgement.
	s.sendMessage(s.d.statusPayload())
	s.d.mu.Lock()
	s.d.shutdowns++
	s.d.mu.Unlock()
}

func (s *serveState) sendCatalog(request string) {
	bounds := strings.SplitN(request, ":", 2)
	from, to := bounds[0], bounds[0]
	if len(bounds) == 2 {
		to = bounds[1]
	}

	d := s.d
	d.mu.Lock()
	ids := make([]string, 0, len(d.catalog))
	for id := range d.catalog {
		if id >= from && id <= to {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	records := make([]string, 0, len(ids))
	for _, id := range ids {
		r := d.catalog[id]
		records = append(records, fmt.Sprintf("C08:1:1:%s:%d:%d:%s:0:0:0:%d:%d",
			id, r.priceCents, r.department, r.name, r.tax, r.macro))
	}
	d.mu.Unlock()

	for _, record := range records {
		if !s.transmit(record) {
			return
		}
	}
	s.transmit("C08:1:1:*")
}

func (s *serveState) handleWriteLoop() {
	for {
		s.sendMessage("B81:1")
		reply, _ := s.readReply()
		if reply == nil {
			return
		}
		s.ack()
		s.d.mu.Lock()
		s.d.written = append(s.d.written, reply.String())
		s.d.mu.Unlock()
		if reply.String() == smart3.TerminatorField {
			return
		}
	}
}

func (s *serveState) sendFinancialReport() {
	s.d.mu.Lock()
	records := append([]string(nil), s.d.c22Records...)
	s.d.mu.Unlock()
	for _, record := range records {
		if !s.transmit(record) {
			return
		}
	}
	s.transmit("C22:1:1:*")
}

func (s *serveState) handleFiscalClosing() {
	s.sendMessage("B45:1")
	s.expectReply("0")
}

func (s *serveState) handleTransact() {
	s.sendMessage("B23:1")
	if !s.recordKeySequence() {
		return
	}
	s.sendMessage("B10:1")
	if !s.expectReply("0") {
		return
	}
	for {
		s.sendMessage("B14:1")
		seq, ok := s.takeKeySequence()
		if !ok {
			return
		}
		if seq == "0;#S101" { // subtotal
			break
		}
	}
	s.sendMessage("B15:1")
	if !s.recordKeySequence() {
		return
	}
	s.sendMessage("B17:1")
	if !s.expectReply("0") {
		return
	}
	s.sendMessage("B18:1")
	s.expectReply("0")
}

func (s *serveState) recordKeySequence() bool {
	_, ok := s.takeKeySequence()
	return ok
}

func (s *serveState) takeKeySequence() (string, bool) {
	reply, _ := s.readReply()
	if reply == nil {
		return "", false
	}
	s.ack()
	s.d.mu.Lock()
	s.d.keySequences = append(s.d.keySequences, reply.String())
	s.d.mu.Unlock()
	return reply.String(), true
}

// handleFrame consumes an EOT-opened frame outside a hello dialogue; in
// broadcast mode these are broadcast records and control bytes.
func (s *serveState) handleFrame() {
	if !s.inBroadcast {
		s.d.tb.Errorf("register: unexpected message frame outside broadcast mode")
		s.closed = true
		return
	}
	payload, ok := s.readBroadcastBody()
	if !ok {
		return
	}
	switch {
	case len(payload) == 1 && payload[0] == 0x3F:
		s.reportLoad()
	case len(payload) == 1 && payload[0] == 0x2A:
		s.inBroadcast = false
	default:
		s.d.mu.Lock()
		s.d.broadcastRecords = append(s.d.broadcastRecords, payload)
		s.d.mu.Unlock()
	}
}

// readBroadcastBody reads the remainder of a broadcast frame after its EOT
// preamble and validates the additive parity.
func (s *serveState) readBroadcastBody() ([]byte, bool) {
	lengthByte, ok := s.readByte()
	if !ok {
		return nil, false
	}
	total := int(lengthByte) - smart3.LengthOffset
	if total < 5 {
		s.d.tb.Errorf("register: broadcast length %d too small", total)
		return nil, false
	}
	rest := make([]byte, total-2)
	for i := range rest {
		if rest[i], ok = s.readByte(); !ok {
			return nil, false
		}
	}
	payload := rest[:len(rest)-3]
	stx, parity, etx := rest[len(rest)-3], rest[len(rest)-2], rest[len(rest)-1]
	if stx != smart3.STX || etx != smart3.ETX {
		s.d.tb.Errorf("register: malformed broadcast frame")
		return nil, false
	}
	frame := append([]byte{smart3.EOT, lengthByte}, rest[:len(rest)-2]...)
	if want := smart3.SumParity(frame); parity != want {
		s.d.tb.Errorf("register: broadcast parity mismatch: expected 0x%02X, got 0x%02X", want, parity)
		return nil, false
	}
	return payload, true
}

// reportLoad answers the load query with the next scripted B99 count.
func (s *serveState) reportLoad() {
	s.d.mu.Lock()
	if len(s.d.b99Responses) == 0 {
		s.d.mu.Unlock()
		s.d.tb.Errorf("register: no scripted B99 response left")
		return
	}
	accepted := s.d.b99Responses[0]
	s.d.b99Responses = s.d.b99Responses[1:]
	s.d.mu.Unlock()

	s.sendMessage(fmt.Sprintf("B99:%d", accepted))
	reply, _ := s.readReply()
	if reply == nil {
		return
	}
	s.ack()
	s.d.mu.Lock()
	s.d.b99Replies = append(s.d.b99Replies, reply.String())
	s.d.mu.Unlock()
}
