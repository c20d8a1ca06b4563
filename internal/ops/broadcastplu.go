// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package ops

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/teknel/smart3ctl/internal/session"
	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

// Broadcast loading parameters.
const (
	broadcastRecordSize = 61
	broadcastBlockSize  = 100
	broadcastQueryByte  = 0x3F // '?', ask for a B99 load report
	broadcastEndByte    = 0x2A // '*', end of the broadcast session
)

// broadcastEndPause lets the register commit the loaded records before the
// session moves on.
var broadcastEndPause = 3000 * time.Millisecond

// BroadcastPLU bulk-loads articles as fixed-size broadcast records in
// blocks of up to 100, confirming each block against the register's B99
// load report and retransmitting blocks the register did not fully accept.
type BroadcastPLU struct {
	PLUs     []*plu.Info
	Progress ProgressFunc
}

func (*BroadcastPLU) Name() string { return "broadcast plu" }

func (op *BroadcastPLU) Execute(s *Session) error {
	plus := dedupeSorted(op.PLUs)
	total := len(plus)

	if err := s.Console.Hello(false); err != nil {
		return err
	}
	command := fmt.Sprintf("0;+4;#z%d", total)
	if err := s.Console.AnswerAny(s.a01Handler(command, nil), s.defaultB23()); err != nil {
		return err
	}

	confirmed := 0
	for confirmed < total {
		blockEnd := confirmed + broadcastBlockSize
		if blockEnd > total {
			blockEnd = total
		}
		for i := confirmed; i < blockEnd; i++ {
			if err := s.Console.Broadcast(encodeBroadcastRecord(plus[i])); err != nil {
				return err
			}
			op.Progress.report(Progress{Item: plus[i].ID(), Current: i + 1, Total: total, Kind: Writing})
		}
		if err := s.Console.Broadcast([]byte{broadcastQueryByte}); err != nil {
			return err
		}

		sent := blockEnd - confirmed
		loaded := confirmed
		b99 := session.Handler{
			Types: []string{smart3.MsgBroadcastReport},
			Handle: func(msg *smart3.MessageData) (*smart3.MessageData, error) {
				accepted, err := msg.IntField(1)
				if err != nil {
					return nil, err
				}
				if accepted < confirmed+sent {
					// The register lost part of the block; rewind to the
					// last confirmed position and retransmit it whole.
					loaded = confirmed
				} else {
					loaded = confirmed + sent
				}
				return smart3.NewMessage(strconv.Itoa(loaded)), nil
			},
		}
		if err := s.Console.Answer(b99); err != nil {
			return err
		}
		if loaded == confirmed {
			s.Log.Warn().Int("confirmed", confirmed).Int("sent", sent).Msg("broadcast block rejected, retransmitting")
		}
		confirmed = loaded
	}

	if err := s.Console.Broadcast([]byte{broadcastEndByte}); err != nil {
		return err
	}
	time.Sleep(broadcastEndPause)
	return nil
}

// dedupeSorted drops nils, deduplicates by id and orders ordinal ascending.
func dedupeSorted(plus []*plu.Info) []*plu.Info {
	seen := make(map[string]bool, len(plus))
	out := make([]*plu.Info, 0, len(plus))
	for _, p := range plus {
		if p == nil || seen[p.ID()] {
			continue
		}
		seen[p.ID()] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return plu.Compare(out[i], out[j]) < 0 })
	return out
}

// encodeBroadcastRecord packs one article into the fixed 61-byte broadcast
// layout: id (13, zero padded), price cents (4, little-endian signed),
// department (1), name (21, zero padded), 16 unused, tax-1 (1), macro (1),
// 4 trailing zero bytes.
func encodeBroadcastRecord(p *plu.Info) []byte {
	record := make([]byte, broadcastRecordSize)
	copy(record[0:13], p.ID())
	binary.LittleEndian.PutUint32(record[13:17], uint32(int32(p.PriceCents())))
	record[17] = byte(p.Department())
	copy(record[18:39], p.Name())
	record[55] = byte(p.Tax() - 1)
	record[56] = byte(p.Macro())
	return record
}
