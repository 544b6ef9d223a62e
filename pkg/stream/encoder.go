// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package stream

import (
	"fmt"
	"sort"

	"github.com/scaraworks/plotstream/pkg/mcproto"
	"github.com/scaraworks/plotstream/pkg/trajectory"
)

// RegisterWrite is one batch word write: consecutive words starting at
// Head.
type RegisterWrite struct {
	Head  mcproto.Device
	Words []uint16
}

// Command is the encoded form of one motion record, ready for
// transmission. It is derived and stateless; the engine recomputes it
// per record and never persists it.
type Command struct {
	Seq int
	Pen trajectory.PenState

	// Writes carries the motion registers and the sequence token,
	// coalesced into as few batch writes as the layout permits. The
	// token is always in the final write: the controller consumes a
	// command when the token changes, so the token must never land
	// before the motion registers it describes.
	Writes []RegisterWrite
}

// Encoder maps motion records onto a register layout. Encoding is
// pure: deterministic, no I/O, and its only failure mode is a
// caller contract violation (axis arity mismatch).
type Encoder struct {
	layout Layout
}

// NewEncoder validates the layout and returns an encoder for it.
func NewEncoder(layout Layout) (*Encoder, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{layout: layout}, nil
}

// Axes returns the axis count the encoder accepts.
func (e *Encoder) Axes() int { return len(e.layout.Axes) }

// Encode produces the device command for one record.
func (e *Encoder) Encode(rec trajectory.MotionRecord) (Command, error) {
	if err := rec.Validate(len(e.layout.Axes)); err != nil {
		return Command{}, fmt.Errorf("encode: %w", err)
	}

	motion := make([]RegisterWrite, 0, 2*len(e.layout.Axes))
	addDword := func(head mcproto.Device, v int32) {
		low, high := mcproto.DwordToWords(v)
		motion = append(motion, RegisterWrite{Head: head, Words: []uint16{low, high}})
	}

	for i, axis := range e.layout.Axes {
		addDword(axis.Pos, rec.Pos[i])
		addDword(axis.Vel, rec.Vel[i])
	}

	writes := coalesce(motion)

	// The token is appended after all motion writes, never
	// address-sorted with them: a token arriving ahead of its motion
	// registers would let the controller consume stale positions. It
	// still folds into the last batch when the layout is contiguous.
	low, high := mcproto.DwordToWords(int32(rec.Seq))
	token := RegisterWrite{Head: e.layout.Token, Words: []uint16{low, high}}
	if n := len(writes); n > 0 &&
		writes[n-1].Head.Class == token.Head.Class &&
		writes[n-1].Head.Number+uint32(len(writes[n-1].Words)) == token.Head.Number {
		writes[n-1].Words = append(writes[n-1].Words, token.Words...)
	} else {
		writes = append(writes, token)
	}

	return Command{
		Seq:    rec.Seq,
		Pen:    rec.Pen,
		Writes: writes,
	}, nil
}

// coalesce merges motion writes to adjacent registers of the same
// device class into single batch writes, the way the ladder program
// expects the whole D100 block to arrive in one request. Only motion
// registers go through here; the token is ordered by Encode.
func coalesce(writes []RegisterWrite) []RegisterWrite {
	sort.Slice(writes, func(i, j int) bool {
		a, b := writes[i].Head, writes[j].Head
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Number < b.Number
	})

	out := writes[:0]
	for _, w := range writes {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.Head.Class == w.Head.Class &&
				prev.Head.Number+uint32(len(prev.Words)) == w.Head.Number {
				prev.Words = append(prev.Words, w.Words...)
				continue
			}
		}
		out = append(out, w)
	}
	return out
}
