// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package trajectory

import (
	"fmt"
	"io"
)

// Source produces a finite, ordered, restartable sequence of motion
// records. Next returns io.EOF when the trajectory is exhausted, which
// is distinct from a production error. Sequence indexes start at 0 and
// increase strictly; axis arity is constant across one trajectory.
type Source interface {
	Next() (MotionRecord, error)
	Reset() error
	Axes() int
}

// Points is an in-memory Source backed by a slice of records. It is
// used for synthesized trajectories and in tests.
type Points struct {
	records []MotionRecord
	axes    int
	next    int
}

// NewPoints builds a Points source, renumbering the records so their
// sequence indexes start at 0 and increase by one.
func NewPoints(records []MotionRecord) (*Points, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty trajectory")
	}
	axes := len(records[0].Pos)
	out := make([]MotionRecord, len(records))
	for i, r := range records {
		r.Seq = i
		if err := r.Validate(axes); err != nil {
			return nil, err
		}
		out[i] = r
	}
	return &Points{records: out, axes: axes}, nil
}

func (p *Points) Next() (MotionRecord, error) {
	if p.next >= len(p.records) {
		return MotionRecord{}, io.EOF
	}
	r := p.records[p.next]
	p.next++
	return r, nil
}

func (p *Points) Reset() error {
	p.next = 0
	return nil
}

func (p *Points) Axes() int { return p.axes }

// Len returns the total record count.
func (p *Points) Len() int { return len(p.records) }

// SinglePoint synthesizes the two-record trajectory used by the
// single-point run mode: move to the target with the pen down, then
// lift the pen at the same position.
func SinglePoint(pos, vel []int32) (*Points, error) {
	if len(pos) != len(vel) {
		return nil, fmt.Errorf("position has %d axes, velocity %d", len(pos), len(vel))
	}
	return NewPoints([]MotionRecord{
		{Pos: pos, Vel: vel, Pen: PenDown},
		{Pos: pos, Vel: vel, Pen: PenUp},
	})
}

// Jog synthesizes the one-record trajectory used by the manual jog
// mode. The pen is left up so the move never draws.
func Jog(pos, vel []int32) (*Points, error) {
	if len(pos) != len(vel) {
		return nil, fmt.Errorf("position has %d axes, velocity %d", len(pos), len(vel))
	}
	return NewPoints([]MotionRecord{
		{Pos: pos, Vel: vel, Pen: PenUp},
	})
}
