// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

// Package runctl selects a waypoint source for one run mode, drives
// the streaming engine to a terminal state, and reports the outcome.
// It never retries: retry policy lives inside the engine's handshake.
package runctl

import (
	"context"
	"fmt"

	"github.com/scaraworks/plotstream/pkg/stream"
	"github.com/scaraworks/plotstream/pkg/trajectory"
)

// Mode selects what one run streams.
type Mode int

const (
	// FullTrajectory streams every record from a CSV file or the grid
	// preset.
	FullTrajectory Mode = iota

	// SinglePoint moves to an operator-supplied point with the pen
	// down, then lifts it.
	SinglePoint

	// ManualJog issues one pen-up move to an operator-supplied
	// position and velocity.
	ManualJog
)

func (m Mode) String() string {
	switch m {
	case FullTrajectory:
		return "full trajectory"
	case SinglePoint:
		return "single point"
	case ManualJog:
		return "manual jog"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Params carries the operator inputs for one run. Only the fields for
// the selected mode are consulted.
type Params struct {
	// FullTrajectory: path to a trajectory CSV, or a grid preset when
	// Grid is non-nil. Grid takes precedence.
	CSVPath string
	Grid    *trajectory.GridConfig

	// SinglePoint / ManualJog: joint-space position and velocity,
	// one entry per axis.
	Pos []int32
	Vel []int32
}

// Controller runs one mode at a time against a link session. It owns
// the engine for the duration of each run; the session stays with the
// caller, which opens and closes it around the run.
type Controller struct {
	Port   stream.Port
	Layout stream.Layout

	// Notify is forwarded to the engine's progress hook.
	Notify func(stream.Progress)
}

// Run builds the waypoint source for the mode, streams it, and returns
// the engine's terminal state untranslated. The error return covers
// setup and contract failures; controller-side faults are in the
// Result.
func (c *Controller) Run(ctx context.Context, mode Mode, params Params) (stream.Result, error) {
	src, cleanup, err := c.source(mode, params)
	if err != nil {
		return stream.Result{State: stream.Idle, LastAcked: -1}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	engine, err := stream.New(c.Port, c.Layout)
	if err != nil {
		return stream.Result{State: stream.Idle, LastAcked: -1}, err
	}
	engine.Notify = c.Notify

	return engine.Stream(ctx, src)
}

func (c *Controller) source(mode Mode, params Params) (trajectory.Source, func() error, error) {
	switch mode {
	case FullTrajectory:
		if params.Grid != nil {
			src, err := trajectory.NewGrid(*params.Grid)
			return src, nil, err
		}
		if params.CSVPath == "" {
			return nil, nil, fmt.Errorf("full trajectory mode needs a CSV path or grid preset")
		}
		src, err := trajectory.OpenCSV(params.CSVPath)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil

	case SinglePoint:
		src, err := trajectory.SinglePoint(params.Pos, params.Vel)
		return src, nil, err

	case ManualJog:
		src, err := trajectory.Jog(params.Pos, params.Vel)
		return src, nil, err
	}

	return nil, nil, fmt.Errorf("unknown run mode %d", int(mode))
}
