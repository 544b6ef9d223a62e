// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package mcproto

import (
	"bytes"
	"testing"
)

func TestRequestEncode_Golden(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		want []byte
	}{
		{
			name: "read two words from D100",
			req:  NewReadWords(MustDevice("D100"), 2),
			want: []byte{
				0x50, 0x00, // subheader
				0x00, 0xFF, 0xFF, 0x03, 0x00, // routing
				0x0C, 0x00, // request data length
				0x04, 0x00, // monitoring timer
				0x01, 0x04, // batch read
				0x00, 0x00, // word units
				0x64, 0x00, 0x00, 0xA8, // D100
				0x02, 0x00, // 2 points
			},
		},
		{
			name: "write four words at D100",
			req:  NewWriteWords(MustDevice("D100"), []uint16{500, 0, 300, 0}),
			want: []byte{
				0x50, 0x00,
				0x00, 0xFF, 0xFF, 0x03, 0x00,
				0x14, 0x00,
				0x04, 0x00,
				0x01, 0x14,
				0x00, 0x00,
				0x64, 0x00, 0x00, 0xA8,
				0x04, 0x00,
				0xF4, 0x01, 0x00, 0x00, 0x2C, 0x01, 0x00, 0x00,
			},
		},
		{
			name: "set bit M4",
			req:  NewWriteBits(MustDevice("M4"), []bool{true}),
			want: []byte{
				0x50, 0x00,
				0x00, 0xFF, 0xFF, 0x03, 0x00,
				0x0D, 0x00,
				0x04, 0x00,
				0x01, 0x14,
				0x01, 0x00,
				0x04, 0x00, 0x00, 0x90,
				0x01, 0x00,
				0x10,
			},
		},
		{
			name: "read fault bit M6",
			req:  NewReadBits(MustDevice("M6"), 1),
			want: []byte{
				0x50, 0x00,
				0x00, 0xFF, 0xFF, 0x03, 0x00,
				0x0C, 0x00,
				0x04, 0x00,
				0x01, 0x04,
				0x01, 0x00,
				0x06, 0x00, 0x00, 0x90,
				0x01, 0x00,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = % X\nwant      % X", got, tt.want)
			}
		})
	}
}

func TestRequestEncode_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
	}{
		{"word access to bit device", NewReadWords(MustDevice("M0"), 1)},
		{"bit access to word device", NewReadBits(MustDevice("D0"), 1)},
		{"zero word count", NewReadWords(MustDevice("D0"), 0)},
		{"word count over limit", NewReadWords(MustDevice("D0"), MaxWordPoints+1)},
		{"bit count over limit", NewReadBits(MustDevice("M0"), MaxBitPoints+1)},
		{
			"payload size mismatch",
			&Request{Command: CmdBatchWrite, Subcommand: SubcmdWord, Device: MustDevice("D0"), Count: 2, Data: []byte{1}},
		},
		{
			"unsupported command",
			&Request{Command: 0x0619, Subcommand: SubcmdWord, Device: MustDevice("D0"), Count: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.req.Encode(); err == nil {
				t.Error("Encode() succeeded, want validation error")
			}
		})
	}
}

func TestPackBits(t *testing.T) {
	tests := []struct {
		name string
		bits []bool
		want []byte
	}{
		{"single on", []bool{true}, []byte{0x10}},
		{"single off", []bool{false}, []byte{0x00}},
		{"pair", []bool{true, true}, []byte{0x11}},
		{"odd tail", []bool{false, true, true}, []byte{0x01, 0x10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PackBits(tt.bits); !bytes.Equal(got, tt.want) {
				t.Errorf("PackBits(%v) = % X, want % X", tt.bits, got, tt.want)
			}
		})
	}
}

func TestDwordRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 500, -6400, 2147483647, -2147483648} {
		low, high := DwordToWords(v)
		if got := WordsToDword(low, high); got != v {
			t.Errorf("WordsToDword(DwordToWords(%d)) = %d", v, got)
		}
	}
}

func TestExpectedDataLen(t *testing.T) {
	if got := NewReadWords(MustDevice("D100"), 4).ExpectedDataLen(); got != 8 {
		t.Errorf("word read expected len = %d, want 8", got)
	}
	if got := NewReadBits(MustDevice("M0"), 3).ExpectedDataLen(); got != 2 {
		t.Errorf("bit read expected len = %d, want 2", got)
	}
	if got := NewWriteWords(MustDevice("D100"), []uint16{1}).ExpectedDataLen(); got != 0 {
		t.Errorf("write expected len = %d, want 0", got)
	}
}
