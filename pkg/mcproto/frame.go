// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package mcproto

import (
	"fmt"
	"time"
)

// Request describes one batch read or write exchange before encoding.
type Request struct {
	Command    uint16
	Subcommand uint16
	Device     Device
	Count      uint16

	// Data carries the write payload, already packed into wire bytes
	// (see WordsToBytes and PackBits). Nil for reads.
	Data []byte

	// MonitoringTimer overrides DefaultMonitoringTimer when non-zero,
	// in 250 ms units.
	MonitoringTimer uint16
}

// Response is one decoded 3E response frame.
type Response struct {
	EndCode   uint16
	Data      []byte
	Timestamp time.Time
}

// OK reports whether the CPU completed the request.
func (r *Response) OK() bool {
	return r.EndCode == EndOK
}

// EndError returns nil on success, or an *EndCodeError describing the
// CPU-reported failure.
func (r *Response) EndError() error {
	if r.EndCode == EndOK {
		return nil
	}
	return &EndCodeError{Code: r.EndCode}
}

// EndCodeError is a non-zero end code reported by the CPU module.
type EndCodeError struct {
	Code uint16
}

func (e *EndCodeError) Error() string {
	if name, ok := endCodeNames[e.Code]; ok {
		return fmt.Sprintf("PLC end code 0x%04X: %s", e.Code, name)
	}
	return fmt.Sprintf("PLC end code 0x%04X", e.Code)
}

// Words interprets the response data as little-endian 16-bit words.
func (r *Response) Words() ([]uint16, error) {
	if len(r.Data)%2 != 0 {
		return nil, fmt.Errorf("odd word data length %d", len(r.Data))
	}
	words := make([]uint16, len(r.Data)/2)
	for i := range words {
		words[i] = uint16(r.Data[2*i]) | uint16(r.Data[2*i+1])<<8
	}
	return words, nil
}

// Bits interprets the response data as nibble-packed bit values and
// returns exactly count booleans.
func (r *Response) Bits(count int) ([]bool, error) {
	if need := (count + 1) / 2; len(r.Data) < need {
		return nil, fmt.Errorf("bit data too short: %d bytes for %d points", len(r.Data), count)
	}
	bits := make([]bool, count)
	for i := range bits {
		b := r.Data[i/2]
		if i%2 == 0 {
			bits[i] = b>>4 != 0
		} else {
			bits[i] = b&0x0F != 0
		}
	}
	return bits, nil
}
