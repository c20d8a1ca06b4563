// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package smart3

import (
	"testing"
)

func applyRecord(t *testing.T, c *ConnectabilityProgramming, payload string) {
	t.Helper()
	msg, err := NewMessageData([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Apply(msg); err != nil {
		t.Fatalf("apply %q: %v", payload, err)
	}
}

func TestConnectability_RecordSeries(t *testing.T) {
	c := &ConnectabilityProgramming{}

	applyRecord(t, c, "C24:1:4:0:10:6:4:3:1:2")
	applyRecord(t, c, "C24:2:4:1:2:1:7:16:4")
	applyRecord(t, c, "C24:3:4:2:1:1500:200:161:12:1")
	if c.Complete() {
		t.Fatal("series complete before terminator")
	}
	applyRecord(t, c, "C24:4:4:*")
	if !c.Complete() {
		t.Fatal("terminator record not recognized")
	}

	if c.HelloIntervalSeconds9600 != 10 || c.HelloIntervalSeconds19200 != 6 || c.HelloIntervalSeconds38400 != 4 {
		t.Errorf("hello intervals: got %d/%d/%d",
			c.HelloIntervalSeconds9600, c.HelloIntervalSeconds19200, c.HelloIntervalSeconds38400)
	}
	if c.TimeoutMilliseconds != 30000 {
		t.Errorf("ack timeout: expected 30000 ms from 3 decaseconds, got %d", c.TimeoutMilliseconds)
	}
	if !c.BeepOnTimeout {
		t.Error("beep flag lost")
	}
	if c.Retransmissions != 2 {
		t.Errorf("retransmissions: expected 2, got %d", c.Retransmissions)
	}

	if c.InteractivityLevel != 2 || c.HistoryLevel != 1 {
		t.Errorf("levels: got %d/%d", c.InteractivityLevel, c.HistoryLevel)
	}
	if c.CRNumber != 7 {
		t.Errorf("crn: expected 7, got %d", c.CRNumber)
	}
	if c.PageCount != 16 || c.CustomerPageCount != 4 {
		t.Errorf("pages: got %d/%d", c.PageCount, c.CustomerPageCount)
	}

	if c.BaudRate != 19200 {
		t.Errorf("baud: expected 19200, got %d", c.BaudRate)
	}
	if c.PLUCapacity != 1500 || c.CustomerCapacity != 200 {
		t.Errorf("capacities: got %d/%d", c.PLUCapacity, c.CustomerCapacity)
	}
	if c.Address != 0xA1 {
		t.Errorf("address: expected 0xA1, got 0x%02X", c.Address)
	}
	if !c.ExtendedFlags {
		t.Error("extended flag bytes not detected")
	}
	if c.CommunicationFlags != 0x010C {
		t.Errorf("communication flags: expected 0x010C, got 0x%04X", c.CommunicationFlags)
	}
}

func TestConnectability_HelloIntervalByBaud(t *testing.T) {
	c := &ConnectabilityProgramming{
		HelloIntervalSeconds9600:  10,
		HelloIntervalSeconds19200: 6,
		HelloIntervalSeconds38400: 4,
	}
	if c.HelloIntervalSeconds(9600) != 10 || c.HelloIntervalSeconds(19200) != 6 || c.HelloIntervalSeconds(38400) != 4 {
		t.Error("interval selection by baud rate failed")
	}
}

func TestConnectability_UnknownRecordIgnored(t *testing.T) {
	c := &ConnectabilityProgramming{}
	applyRecord(t, c, "C24:1:4:9:1:2:3")
	if c.Complete() {
		t.Error("unknown record must not complete the series")
	}
}

func TestConnectability_InvalidBaudCode(t *testing.T) {
	c := &ConnectabilityProgramming{}
	msg, err := NewMessageData([]byte("C24:1:4:2:9:1:1:160"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Apply(msg); !IsKind(err, KindProtocol) {
		t.Errorf("expected protocol error, got %v", err)
	}
}
