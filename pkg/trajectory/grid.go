// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package trajectory

import "fmt"

// GridConfig describes the calibration grid test pattern: a lattice of
// pen marks used to verify plotter precision across the workspace.
// All coordinates are joint-space device pulses; the grid generator
// does no kinematics.
type GridConfig struct {
	Rows, Cols int

	// Origin is the joint position of the first (row 0, col 0) mark;
	// Pitch is the per-column and per-row joint offset between marks.
	Origin [2]int32
	Pitch  [2]int32

	// TravelVel paces pen-up moves between marks, MarkVel the pen-down
	// dwell at each mark.
	TravelVel int32
	MarkVel   int32

	// Interp is the number of interpolated waypoints per travel move.
	// Dwell is the number of pen-down records held at each mark.
	Interp int
	Dwell  int
}

// DefaultGrid is the 3x3 bench calibration pattern.
func DefaultGrid() GridConfig {
	return GridConfig{
		Rows:      3,
		Cols:      3,
		Origin:    [2]int32{-3200, -3200},
		Pitch:     [2]int32{3200, 3200},
		TravelVel: 1000,
		MarkVel:   250,
		Interp:    25,
		Dwell:     5,
	}
}

func (g GridConfig) validate() error {
	if g.Rows < 1 || g.Cols < 1 {
		return fmt.Errorf("grid %dx%d: needs at least one row and column", g.Rows, g.Cols)
	}
	if g.Interp < 1 {
		return fmt.Errorf("grid: interpolation steps must be >= 1, got %d", g.Interp)
	}
	if g.Dwell < 1 {
		return fmt.Errorf("grid: dwell steps must be >= 1, got %d", g.Dwell)
	}
	return nil
}

// NewGrid generates the grid trajectory: rows are visited in a
// serpentine order to minimize travel, each mark is approached pen-up,
// dwelled on pen-down, and left pen-up.
func NewGrid(cfg GridConfig) (*Points, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var records []MotionRecord
	cur := [2]int32{0, 0} // runs start from the homed position

	appendMove := func(target [2]int32) {
		from := cur
		for step := 1; step <= cfg.Interp; step++ {
			records = append(records, MotionRecord{
				Pos: []int32{
					lerp(from[0], target[0], step, cfg.Interp),
					lerp(from[1], target[1], step, cfg.Interp),
				},
				Vel: []int32{cfg.TravelVel, cfg.TravelVel},
				Pen: PenUp,
			})
		}
		cur = target
	}

	for row := 0; row < cfg.Rows; row++ {
		for i := 0; i < cfg.Cols; i++ {
			col := i
			if row%2 == 1 {
				col = cfg.Cols - 1 - i
			}
			target := [2]int32{
				cfg.Origin[0] + int32(col)*cfg.Pitch[0],
				cfg.Origin[1] + int32(row)*cfg.Pitch[1],
			}
			appendMove(target)
			for d := 0; d < cfg.Dwell; d++ {
				records = append(records, MotionRecord{
					Pos: []int32{target[0], target[1]},
					Vel: []int32{cfg.MarkVel, cfg.MarkVel},
					Pen: PenDown,
				})
			}
		}
	}

	// Return home pen-up so the run parks the arm where it started.
	appendMove([2]int32{0, 0})

	return NewPoints(records)
}

func lerp(from, to int32, step, steps int) int32 {
	return from + int32(int64(to-from)*int64(step)/int64(steps))
}
