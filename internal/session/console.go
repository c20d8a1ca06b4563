// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package session

import (
	"github.com/rs/zerolog"

	"github.com/teknel/smart3ctl/pkg/smart3"
)

// MaxRetries bounds the console's transparent retry loops, both the
// NAK-and-reread cycle of Listen and the retransmit cycle of Answer.
const MaxRetries = 3

// Handler pairs the set of message types a dialogue step may handle with
// the function that handles them. Handle returns the reply to transmit, or
// nil for listen-only steps.
type Handler struct {
	Types  []string
	Handle func(msg *smart3.MessageData) (*smart3.MessageData, error)
}

// Accepts reports whether the handler's contract covers the message type.
func (h Handler) Accepts(msgType string) bool {
	for _, t := range h.Types {
		if t == msgType {
			return true
		}
	}
	return false
}

// Console exposes the contract-checked dialogue primitives. Every handler
// declares the message types it is permitted to handle; the console refuses
// to invoke a handler with a mismatching type.
type Console struct {
	tr  *Transceiver
	log zerolog.Logger
}

// NewConsole binds a transceiver.
func NewConsole(tr *Transceiver, log zerolog.Logger) *Console {
	return &Console{tr: tr, log: log}
}

// Transceiver exposes the underlying transceiver.
func (c *Console) Transceiver() *Transceiver { return c.tr }

// Hello sends a status request. No reply is consumed here; the register
// answers with an A01 message on its own schedule.
func (c *Console) Hello(immediate bool) error {
	return c.tr.SendHelloRequest(immediate)
}

// receive reads one message, retrying with NAK on packet validation errors
// up to MaxRetries times.
func (c *Console) receive() (*smart3.MessageData, error) {
	for attempt := 0; ; attempt++ {
		msg, err := c.tr.ReceiveMessage()
		if err == nil {
			return msg.Message(), nil
		}
		if !smart3.IsKind(err, smart3.KindPacketValidation) {
			return nil, err
		}
		c.log.Debug().Err(err).Int("attempt", attempt+1).Msg("packet validation failed, sending NAK")
		if attempt >= MaxRetries {
			return nil, smart3.WrapE(smart3.KindProtocol, err, "read retry timeout exceeded")
		}
		if err := c.tr.SendNAK(); err != nil {
			return nil, err
		}
	}
}

// checkContract verifies that a handler may see this message type.
func checkContract(h Handler, msg *smart3.MessageData) error {
	if !h.Accepts(msg.Type()) {
		return smart3.E(smart3.KindProtocolContract,
			"handler for %v cannot handle %q message", h.Types, msg.Type())
	}
	return nil
}

// Listen receives a message, verifies the listener's contract, acknowledges
// the message and invokes the listener.
func (c *Console) Listen(listener Handler) error {
	msg, err := c.receive()
	if err != nil {
		return err
	}
	if err := checkContract(listener, msg); err != nil {
		return err
	}
	if err := c.tr.SendACK(); err != nil {
		return err
	}
	_, err = listener.Handle(msg)
	return err
}

// Answer receives a message, invokes the answerer and transmits the reply,
// driving the acknowledgement loop: ACK completes the step, NAK causes a
// retransmission up to MaxRetries+1 total transmits, SYN and BEL keep the
// console waiting without retransmitting, CAN means the register refused
// the request, and anything else is a protocol violation.
func (c *Console) Answer(answerer Handler) error {
	msg, err := c.receive()
	if err != nil {
		return err
	}
	return c.answer(answerer, msg)
}

func (c *Console) answer(answerer Handler, msg *smart3.MessageData) error {
	if err := checkContract(answerer, msg); err != nil {
		return err
	}
	reply, err := answerer.Handle(msg)
	if err != nil {
		return err
	}
	if reply == nil {
		return smart3.E(smart3.KindProtocolContract,
			"answerer for %q returned no reply", msg.Type())
	}
	return c.sendLoop(reply)
}

func (c *Console) sendLoop(reply *smart3.MessageData) error {
	transmits := 0
	for {
		if err := c.tr.SendMessage(reply); err != nil {
			return err
		}
		transmits++

	indicators:
		for {
			ind, err := c.tr.ReceiveIndicator()
			if err != nil {
				return err
			}
			switch ind.Control() {
			case smart3.ACK:
				return nil
			case smart3.NAK:
				if transmits > MaxRetries {
					return smart3.E(smart3.KindProtocol, "write retry timeout exceeded")
				}
				break indicators
			case smart3.SYN, smart3.BEL:
				// Busy or paper out; the register will indicate again.
				continue
			case smart3.CAN:
				return smart3.ErrRefused
			default:
				return smart3.E(smart3.KindProtocol, "invalid control byte 0x%02X", ind.Control())
			}
		}
	}
}

// AnswerAny receives a message and dispatches it to the first handler whose
// contract accepts its type.
func (c *Console) AnswerAny(answerers ...Handler) error {
	msg, err := c.receive()
	if err != nil {
		return err
	}
	for _, h := range answerers {
		if h.Accepts(msg.Type()) {
			return c.answer(h, msg)
		}
	}
	return smart3.E(smart3.KindProtocolContract, "no handler accepts %q message", msg.Type())
}

// Broadcast transmits a broadcast frame.
func (c *Console) Broadcast(payload []byte) error {
	return c.tr.BroadcastSequence(payload)
}

// Swallow receives one message and drops it.
func (c *Console) Swallow() error {
	_, err := c.receive()
	return err
}
