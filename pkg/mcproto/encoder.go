// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package mcproto

import (
	"encoding/binary"
	"fmt"
)

// NewReadWords builds a batch read request for count word devices
// starting at head.
func NewReadWords(head Device, count uint16) *Request {
	return &Request{
		Command:    CmdBatchRead,
		Subcommand: SubcmdWord,
		Device:     head,
		Count:      count,
	}
}

// NewWriteWords builds a batch write request for the given words
// starting at head.
func NewWriteWords(head Device, words []uint16) *Request {
	return &Request{
		Command:    CmdBatchWrite,
		Subcommand: SubcmdWord,
		Device:     head,
		Count:      uint16(len(words)),
		Data:       WordsToBytes(words),
	}
}

// NewReadBits builds a bit-unit batch read request.
func NewReadBits(head Device, count uint16) *Request {
	return &Request{
		Command:    CmdBatchRead,
		Subcommand: SubcmdBit,
		Device:     head,
		Count:      count,
	}
}

// NewWriteBits builds a bit-unit batch write request.
func NewWriteBits(head Device, bits []bool) *Request {
	return &Request{
		Command:    CmdBatchWrite,
		Subcommand: SubcmdBit,
		Device:     head,
		Count:      uint16(len(bits)),
		Data:       PackBits(bits),
	}
}

// Encode serializes the request into a complete 3E frame ready for
// transmission.
func (r *Request) Encode() ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	timer := r.MonitoringTimer
	if timer == 0 {
		timer = DefaultMonitoringTimer
	}

	frame := make([]byte, requestHeaderSize+len(r.Data))

	binary.LittleEndian.PutUint16(frame[0:2], SubheaderRequest)
	frame[2] = NetworkNo
	frame[3] = PCNo
	binary.LittleEndian.PutUint16(frame[4:6], DestModuleIO)
	frame[6] = DestModuleSta

	// Request data length counts everything after the length field
	// itself: timer, command, subcommand, device, count and payload.
	binary.LittleEndian.PutUint16(frame[7:9], uint16(12+len(r.Data)))
	binary.LittleEndian.PutUint16(frame[9:11], timer)
	binary.LittleEndian.PutUint16(frame[11:13], r.Command)
	binary.LittleEndian.PutUint16(frame[13:15], r.Subcommand)

	// Head device: 3-byte little-endian number + class code.
	frame[15] = byte(r.Device.Number)
	frame[16] = byte(r.Device.Number >> 8)
	frame[17] = byte(r.Device.Number >> 16)
	frame[18] = byte(r.Device.Class)

	binary.LittleEndian.PutUint16(frame[19:21], r.Count)
	copy(frame[requestHeaderSize:], r.Data)

	return frame, nil
}

func (r *Request) validate() error {
	switch r.Command {
	case CmdBatchRead, CmdBatchWrite:
	default:
		return fmt.Errorf("unsupported command 0x%04X", r.Command)
	}

	switch r.Subcommand {
	case SubcmdWord:
		if r.Device.Class.IsBit() {
			return fmt.Errorf("word access to bit device %s", r.Device)
		}
		if r.Count == 0 || r.Count > MaxWordPoints {
			return fmt.Errorf("word point count %d out of range [1, %d]", r.Count, MaxWordPoints)
		}
		if r.Command == CmdBatchWrite && len(r.Data) != int(r.Count)*2 {
			return fmt.Errorf("word write payload %d bytes for %d points", len(r.Data), r.Count)
		}
	case SubcmdBit:
		if !r.Device.Class.IsBit() {
			return fmt.Errorf("bit access to word device %s", r.Device)
		}
		if r.Count == 0 || r.Count > MaxBitPoints {
			return fmt.Errorf("bit point count %d out of range [1, %d]", r.Count, MaxBitPoints)
		}
		if r.Command == CmdBatchWrite && len(r.Data) != (int(r.Count)+1)/2 {
			return fmt.Errorf("bit write payload %d bytes for %d points", len(r.Data), r.Count)
		}
	default:
		return fmt.Errorf("unsupported subcommand 0x%04X", r.Subcommand)
	}

	if r.Command == CmdBatchRead && len(r.Data) != 0 {
		return fmt.Errorf("read request carries %d payload bytes", len(r.Data))
	}
	return nil
}

// ExpectedDataLen returns the response payload size in bytes a
// successful exchange for this request must carry.
func (r *Request) ExpectedDataLen() int {
	if r.Command != CmdBatchRead {
		return 0
	}
	if r.Subcommand == SubcmdBit {
		return (int(r.Count) + 1) / 2
	}
	return int(r.Count) * 2
}

// WordsToBytes packs 16-bit words into little-endian wire bytes.
func WordsToBytes(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[2*i:], w)
	}
	return out
}

// PackBits packs bit values one nibble per point, first point in the
// high nibble, as the bit-unit subcommand requires.
func PackBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+1)/2)
	for i, b := range bits {
		if !b {
			continue
		}
		if i%2 == 0 {
			out[i/2] |= 0x10
		} else {
			out[i/2] |= 0x01
		}
	}
	return out
}

// DwordToWords splits a signed 32-bit value into two consecutive words,
// low word first, matching how the CPU stores 32-bit data registers.
func DwordToWords(v int32) (low, high uint16) {
	return uint16(uint32(v)), uint16(uint32(v) >> 16)
}

// WordsToDword reassembles a signed 32-bit value from a low/high word
// pair.
func WordsToDword(low, high uint16) int32 {
	return int32(uint32(low) | uint32(high)<<16)
}
