// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

// Package trajectory defines motion waypoints and the sources that
// produce them: CSV files exported by the toolpath pipeline, the
// generated grid test pattern, and small synthesized trajectories for
// single-point and jog moves.
package trajectory

import "fmt"

// PenState is the discrete pen actuator position.
type PenState uint8

const (
	PenUp PenState = iota
	PenDown
)

func (p PenState) String() string {
	if p == PenDown {
		return "DOWN"
	}
	return "UP"
}

// MotionRecord is one waypoint: target joint positions and velocities
// in device pulses, plus the pen state to hold while moving there.
// Records are immutable once produced.
type MotionRecord struct {
	Seq int
	Pos []int32
	Vel []int32
	Pen PenState
}

// Validate checks the record's internal consistency against the
// expected axis count.
func (r MotionRecord) Validate(axes int) error {
	if r.Seq < 0 {
		return fmt.Errorf("record %d: negative sequence index", r.Seq)
	}
	if len(r.Pos) != axes {
		return fmt.Errorf("record %d: %d position axes, want %d", r.Seq, len(r.Pos), axes)
	}
	if len(r.Vel) != axes {
		return fmt.Errorf("record %d: %d velocity axes, want %d", r.Seq, len(r.Vel), axes)
	}
	return nil
}
