// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package stream

import (
	"testing"

	"github.com/scaraworks/plotstream/pkg/mcproto"
	"github.com/scaraworks/plotstream/pkg/trajectory"
)

func TestEncode_CoalescesContiguousRegisters(t *testing.T) {
	enc, err := NewEncoder(DefaultLayout())
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	cmd, err := enc.Encode(trajectory.MotionRecord{
		Seq: 7,
		Pos: []int32{500, -300},
		Vel: []int32{250, 125},
		Pen: trajectory.PenDown,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if cmd.Seq != 7 || cmd.Pen != trajectory.PenDown {
		t.Errorf("command = %+v", cmd)
	}

	// D100..D107 coalesce into one batch; the token at D112 stays a
	// separate write because D108..D111 are not part of the layout.
	if len(cmd.Writes) != 2 {
		t.Fatalf("got %d writes, want 2: %+v", len(cmd.Writes), cmd.Writes)
	}

	motion := cmd.Writes[0]
	if motion.Head != mcproto.MustDevice("D100") || len(motion.Words) != 8 {
		t.Fatalf("motion write = %s x%d, want D100 x8", motion.Head, len(motion.Words))
	}
	wantDwords := []int32{500, 250, -300, 125}
	for i, want := range wantDwords {
		got := mcproto.WordsToDword(motion.Words[2*i], motion.Words[2*i+1])
		if got != want {
			t.Errorf("motion dword %d = %d, want %d", i, got, want)
		}
	}

	token := cmd.Writes[1]
	if token.Head != mcproto.MustDevice("D112") || len(token.Words) != 2 {
		t.Fatalf("token write = %s x%d, want D112 x2", token.Head, len(token.Words))
	}
	if got := mcproto.WordsToDword(token.Words[0], token.Words[1]); got != 7 {
		t.Errorf("token value = %d, want 7", got)
	}
}

func TestEncode_FullyContiguousLayoutIsOneWrite(t *testing.T) {
	layout := DefaultLayout()
	layout.Token = mcproto.MustDevice("D108")
	layout.TokenEcho = mcproto.MustDevice("D110")

	enc, err := NewEncoder(layout)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	cmd, err := enc.Encode(trajectory.MotionRecord{
		Seq: 3,
		Pos: []int32{1, 2},
		Vel: []int32{3, 4},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(cmd.Writes) != 1 || len(cmd.Writes[0].Words) != 10 {
		t.Fatalf("writes = %+v, want one D100 x10 batch", cmd.Writes)
	}
}

func TestEncode_TokenWriteIsLast(t *testing.T) {
	// A layout may wire the token below the motion block. The token
	// write must still be dispatched after the motion registers, or
	// the controller would consume the new token against the previous
	// command's positions.
	layout := DefaultLayout()
	layout.Token = mcproto.MustDevice("D10")
	layout.TokenEcho = mcproto.MustDevice("D12")

	enc, err := NewEncoder(layout)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	cmd, err := enc.Encode(trajectory.MotionRecord{
		Seq: 4,
		Pos: []int32{500, -300},
		Vel: []int32{250, 125},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if len(cmd.Writes) != 2 {
		t.Fatalf("got %d writes, want 2: %+v", len(cmd.Writes), cmd.Writes)
	}
	if cmd.Writes[0].Head != mcproto.MustDevice("D100") || len(cmd.Writes[0].Words) != 8 {
		t.Errorf("first write = %s x%d, want motion block D100 x8",
			cmd.Writes[0].Head, len(cmd.Writes[0].Words))
	}
	last := cmd.Writes[len(cmd.Writes)-1]
	if last.Head != mcproto.MustDevice("D10") || len(last.Words) != 2 {
		t.Fatalf("last write = %s x%d, want token D10 x2", last.Head, len(last.Words))
	}
	if got := mcproto.WordsToDword(last.Words[0], last.Words[1]); got != 4 {
		t.Errorf("token value = %d, want 4", got)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	enc, _ := NewEncoder(DefaultLayout())
	rec := trajectory.MotionRecord{Seq: 1, Pos: []int32{9, 8}, Vel: []int32{7, 6}}

	a, err := enc.Encode(rec)
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.Encode(rec)
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Writes) != len(b.Writes) {
		t.Fatalf("write counts differ: %d vs %d", len(a.Writes), len(b.Writes))
	}
	for i := range a.Writes {
		if a.Writes[i].Head != b.Writes[i].Head {
			t.Errorf("write %d head differs: %s vs %s", i, a.Writes[i].Head, b.Writes[i].Head)
		}
		for j := range a.Writes[i].Words {
			if a.Writes[i].Words[j] != b.Writes[i].Words[j] {
				t.Errorf("write %d word %d differs", i, j)
			}
		}
	}
}

func TestEncode_ArityMismatch(t *testing.T) {
	enc, _ := NewEncoder(DefaultLayout())

	tests := []struct {
		name string
		rec  trajectory.MotionRecord
	}{
		{"too few axes", trajectory.MotionRecord{Pos: []int32{1}, Vel: []int32{1}}},
		{"too many axes", trajectory.MotionRecord{Pos: []int32{1, 2, 3}, Vel: []int32{1, 2, 3}}},
		{"velocity arity differs", trajectory.MotionRecord{Pos: []int32{1, 2}, Vel: []int32{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Encode(tt.rec); err == nil {
				t.Error("Encode accepted mismatched arity")
			}
		})
	}
}
