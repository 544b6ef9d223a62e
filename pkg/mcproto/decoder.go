// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package mcproto

import (
	"fmt"
	"time"
)

// routingSize is the network/PC/module/station byte count that follows
// the subheader in both frame directions.
const routingSize = 5

// Decoder is an incremental state machine for 3E response frames. Feed
// it transport bytes as they arrive; it returns a complete Response
// when one has been assembled.
//
// A Decoder carries state between calls and is not safe for concurrent
// use.
type Decoder struct {
	state       int
	routingLeft int
	lengthBytes int
	length      uint16
	endBytes    int
	resp        *Response
}

// NewDecoder creates a response decoder in its initial state.
func NewDecoder() *Decoder {
	return &Decoder{state: stateSubheader1}
}

// Reset returns the decoder to its initial state, discarding any
// partially assembled frame.
func (d *Decoder) Reset() {
	d.state = stateSubheader1
	d.routingLeft = 0
	d.lengthBytes = 0
	d.length = 0
	d.endBytes = 0
	d.resp = nil
}

// DecodeByte processes one byte. It returns a completed response, or
// nil while the frame is still incomplete. A framing error resets the
// decoder and is returned to the caller.
func (d *Decoder) DecodeByte(b byte) (*Response, error) {
	switch d.state {
	case stateSubheader1:
		if b != byte(SubheaderResponse&0xFF) {
			return nil, fmt.Errorf("bad response subheader byte 0x%02X", b)
		}
		d.state = stateSubheader2
		return nil, nil

	case stateSubheader2:
		if b != byte(SubheaderResponse>>8) {
			d.Reset()
			return nil, fmt.Errorf("bad response subheader byte 0x%02X", b)
		}
		d.routingLeft = routingSize
		d.state = stateRouting
		return nil, nil

	case stateRouting:
		// Network/PC/module/station echo; values are not checked
		// because a single directly connected CPU is assumed.
		d.routingLeft--
		if d.routingLeft == 0 {
			d.state = stateLength
		}
		return nil, nil

	case stateLength:
		d.length |= uint16(b) << (8 * d.lengthBytes)
		d.lengthBytes++
		if d.lengthBytes < 2 {
			return nil, nil
		}
		if d.length < 2 {
			err := fmt.Errorf("response data length %d too short for end code", d.length)
			d.Reset()
			return nil, err
		}
		d.resp = &Response{Data: make([]byte, 0, d.length-2)}
		d.state = stateEndCode
		return nil, nil

	case stateEndCode:
		d.resp.EndCode |= uint16(b) << (8 * d.endBytes)
		d.endBytes++
		if d.endBytes < 2 {
			return nil, nil
		}
		if d.length == 2 {
			return d.finish()
		}
		d.state = stateData
		return nil, nil

	case stateData:
		d.resp.Data = append(d.resp.Data, b)
		if len(d.resp.Data) >= int(d.length)-2 {
			return d.finish()
		}
		return nil, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid decoder state %d", d.state)
	}
}

// Decode processes a byte slice and returns any responses completed
// within it. Partial trailing frames remain buffered in the decoder.
func (d *Decoder) Decode(data []byte) ([]*Response, error) {
	var out []*Response
	for _, b := range data {
		resp, err := d.DecodeByte(b)
		if err != nil {
			return out, err
		}
		if resp != nil {
			out = append(out, resp)
		}
	}
	return out, nil
}

func (d *Decoder) finish() (*Response, error) {
	resp := d.resp
	resp.Timestamp = time.Now()
	d.Reset()
	return resp, nil
}
