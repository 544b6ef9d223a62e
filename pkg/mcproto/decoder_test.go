// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package mcproto

import (
	"errors"
	"testing"
)

// respFrame builds a response frame around an end code and payload.
func respFrame(endCode uint16, data []byte) []byte {
	frame := []byte{
		0xD0, 0x00,
		0x00, 0xFF, 0xFF, 0x03, 0x00,
	}
	length := uint16(2 + len(data))
	frame = append(frame, byte(length), byte(length>>8))
	frame = append(frame, byte(endCode), byte(endCode>>8))
	return append(frame, data...)
}

func TestDecoder_ReadResponse(t *testing.T) {
	d := NewDecoder()
	frame := respFrame(EndOK, []byte{0xF4, 0x01, 0x00, 0x00})

	var resp *Response
	for i, b := range frame {
		r, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
		if r != nil && i != len(frame)-1 {
			t.Fatalf("response completed early at byte %d", i)
		}
		if r != nil {
			resp = r
		}
	}
	if resp == nil {
		t.Fatal("no response after full frame")
	}
	if !resp.OK() {
		t.Errorf("EndCode = 0x%04X, want success", resp.EndCode)
	}

	words, err := resp.Words()
	if err != nil {
		t.Fatalf("Words: %v", err)
	}
	if len(words) != 2 || words[0] != 500 || words[1] != 0 {
		t.Errorf("Words() = %v, want [500 0]", words)
	}
}

func TestDecoder_WriteAck(t *testing.T) {
	d := NewDecoder()
	resps, err := d.Decode(respFrame(EndOK, nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(resps) != 1 {
		t.Fatalf("got %d responses, want 1", len(resps))
	}
	if len(resps[0].Data) != 0 {
		t.Errorf("write ack carries %d data bytes", len(resps[0].Data))
	}
}

func TestDecoder_EndCodeError(t *testing.T) {
	d := NewDecoder()
	resps, err := d.Decode(respFrame(EndWrongCommand, nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(resps) != 1 {
		t.Fatalf("got %d responses, want 1", len(resps))
	}

	endErr := resps[0].EndError()
	if endErr == nil {
		t.Fatal("EndError() = nil for end code 0xC059")
	}
	var ec *EndCodeError
	if !errors.As(endErr, &ec) || ec.Code != EndWrongCommand {
		t.Errorf("EndError() = %v, want EndCodeError 0xC059", endErr)
	}
}

func TestDecoder_SplitFeed(t *testing.T) {
	// Frames arriving fragmented across reads must still assemble.
	d := NewDecoder()
	frame := respFrame(EndOK, []byte{0x01, 0x00, 0x02, 0x00})

	var got []*Response
	for _, chunk := range [][]byte{frame[:3], frame[3:8], frame[8:]} {
		resps, err := d.Decode(chunk)
		if err != nil {
			t.Fatalf("Decode chunk: %v", err)
		}
		got = append(got, resps...)
	}
	if len(got) != 1 {
		t.Fatalf("got %d responses, want 1", len(got))
	}
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	d := NewDecoder()
	stream := append(respFrame(EndOK, nil), respFrame(EndOK, []byte{0x10})...)
	resps, err := d.Decode(stream)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(resps) != 2 {
		t.Fatalf("got %d responses, want 2", len(resps))
	}
	bits, err := resps[1].Bits(1)
	if err != nil {
		t.Fatalf("Bits: %v", err)
	}
	if !bits[0] {
		t.Error("Bits()[0] = false, want true")
	}
}

func TestDecoder_BadSubheader(t *testing.T) {
	d := NewDecoder()
	if _, err := d.DecodeByte(0x7E); err == nil {
		t.Error("DecodeByte(0x7E) accepted as subheader")
	}
	// Decoder must recover and accept a valid frame afterwards.
	resps, err := d.Decode(respFrame(EndOK, nil))
	if err != nil {
		t.Fatalf("Decode after error: %v", err)
	}
	if len(resps) != 1 {
		t.Fatalf("got %d responses after recovery, want 1", len(resps))
	}
}

func TestDecoder_ShortLength(t *testing.T) {
	d := NewDecoder()
	frame := []byte{0xD0, 0x00, 0x00, 0xFF, 0xFF, 0x03, 0x00, 0x01, 0x00}
	if _, err := d.Decode(frame); err == nil {
		t.Error("length 1 accepted, cannot hold an end code")
	}
}

func TestResponseBits_TooShort(t *testing.T) {
	r := &Response{Data: []byte{0x10}}
	if _, err := r.Bits(3); err == nil {
		t.Error("Bits(3) succeeded with one data byte")
	}
}
