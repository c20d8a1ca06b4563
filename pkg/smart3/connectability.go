// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

// CommunicationFlag is one bit of the C24 communication flag set, assembled
// from two bytes in the extended connectability variant.
type CommunicationFlag uint16

// ConnectabilityProgramming is the register's communication configuration,
// transmitted as a series of C24 records during startup. The struct is
// populated incrementally; Complete reports whether the terminator record
// has been seen.
type ConnectabilityProgramming struct {
	// Record "0": timing
	HelloIntervalSeconds9600  int
	HelloIntervalSeconds19200 int
	HelloIntervalSeconds38400 int
	TimeoutMilliseconds       int // ACK timeout, converted from decaseconds
	BeepOnTimeout             bool
	Retransmissions           int

	// Record "1": dialogue
	InteractivityLevel int
	HistoryLevel       int
	CRNumber           int
	PageCount          int
	CustomerPageCount  int

	// Record "2": line
	BaudRate           int
	PLUCapacity        int
	CustomerCapacity   int
	Address            byte
	CommunicationFlags CommunicationFlag
	ExtendedFlags      bool

	complete bool
}

// baud code mapping used by record "2"
var baudByCode = map[int]int{0: 9600, 1: 19200, 2: 38400}

// Complete reports whether the C24 terminator record has arrived.
func (c *ConnectabilityProgramming) Complete() bool { return c.complete }

// HelloIntervalSeconds returns the hello interval configured for the given
// baud rate.
func (c *ConnectabilityProgramming) HelloIntervalSeconds(baud int) int {
	switch baud {
	case 19200:
		return c.HelloIntervalSeconds19200
	case 38400:
		return c.HelloIntervalSeconds38400
	default:
		return c.HelloIntervalSeconds9600
	}
}

// Apply folds one C24 record into the configuration. Records are keyed by
// field 3; the series ends with a record whose key is "*".
func (c *ConnectabilityProgramming) Apply(msg *MessageData) error {
	if msg.Type() != MsgConnectability {
		return E(KindProtocol, "expected %s message, got %q", MsgConnectability, msg.Type())
	}
	key, err := msg.Field(3)
	if err != nil {
		return err
	}
	switch key {
	case TerminatorField:
		c.complete = true
		return nil

	case "0":
		if c.HelloIntervalSeconds9600, err = msg.IntField(4); err != nil {
			return err
		}
		if c.HelloIntervalSeconds19200, err = msg.IntField(5); err != nil {
			return err
		}
		if c.HelloIntervalSeconds38400, err = msg.IntField(6); err != nil {
			return err
		}
		deca, err := msg.IntField(7)
		if err != nil {
			return err
		}
		c.TimeoutMilliseconds = deca * 10000
		beep, err := msg.IntField(8)
		if err != nil {
			return err
		}
		c.BeepOnTimeout = beep != 0
		if c.Retransmissions, err = msg.IntField(9); err != nil {
			return err
		}
		return nil

	case "1":
		if c.InteractivityLevel, err = msg.IntField(4); err != nil {
			return err
		}
		if c.HistoryLevel, err = msg.IntField(5); err != nil {
			return err
		}
		if c.CRNumber, err = msg.IntField(6); err != nil {
			return err
		}
		if c.CRNumber < 0 || c.CRNumber > MaxCRNumber {
			return E(KindProtocol, "connectability CRN %d outside [0, %d]", c.CRNumber, MaxCRNumber)
		}
		if c.PageCount, err = msg.IntField(7); err != nil {
			return err
		}
		if c.CustomerPageCount, err = msg.IntField(8); err != nil {
			return err
		}
		return nil

	case "2":
		code, err := msg.IntField(4)
		if err != nil {
			return err
		}
		baud, ok := baudByCode[code]
		if !ok {
			return E(KindProtocol, "connectability baud code %d is not 0, 1 or 2", code)
		}
		c.BaudRate = baud
		if c.PLUCapacity, err = msg.IntField(5); err != nil {
			return err
		}
		if c.CustomerCapacity, err = msg.IntField(6); err != nil {
			return err
		}
		addr, err := msg.IntField(7)
		if err != nil {
			return err
		}
		c.Address = byte(addr)
		// Two trailing flag bytes in the extended variant.
		if msg.FieldCount() > 9 {
			lo, err := msg.IntField(8)
			if err != nil {
				return err
			}
			hi, err := msg.IntField(9)
			if err != nil {
				return err
			}
			c.CommunicationFlags = CommunicationFlag(lo) | CommunicationFlag(hi)<<8
			c.ExtendedFlags = true
		}
		return nil
	}

	// Unknown record ids are ignored so newer firmware stays compatible.
	return nil
}
