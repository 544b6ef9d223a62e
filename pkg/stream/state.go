// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

// Package stream contains the trajectory streaming core: the command
// encoder that maps motion records onto the controller's register
// layout, and the engine that paces dispatch against the controller's
// token echo with at-most-one command in flight.
package stream

import (
	"fmt"

	"github.com/scaraworks/plotstream/pkg/trajectory"
)

// RunState is the engine's run lifecycle state.
type RunState int

const (
	Idle RunState = iota
	Streaming
	Completed
	Aborted
	Faulted
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Streaming:
		return "Streaming"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	case Faulted:
		return "Faulted"
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// FaultKind classifies a Faulted terminal state.
type FaultKind int

const (
	FaultNone FaultKind = iota

	// FaultStall: the controller stopped acknowledging commands and
	// the retry budget is exhausted.
	FaultStall

	// FaultDevice: the controller asserted its fault flag, or the link
	// returned a protocol-level failure.
	FaultDevice
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "none"
	case FaultStall:
		return "StallTimeout"
	case FaultDevice:
		return "DeviceFault"
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

// Result is the terminal outcome of one run. Every non-Completed state
// carries the last acknowledged sequence index so an operator can
// diagnose or resume without replaying the trajectory.
type Result struct {
	State     RunState
	Fault     FaultKind
	LastAcked int
	Err       error
}

func (r Result) String() string {
	switch r.State {
	case Completed:
		return fmt.Sprintf("Completed (%d commands acknowledged)", r.LastAcked+1)
	case Aborted:
		return fmt.Sprintf("Aborted (last acknowledged index %d)", r.LastAcked)
	case Faulted:
		return fmt.Sprintf("Faulted: %s (last acknowledged index %d)", r.Fault, r.LastAcked)
	}
	return r.State.String()
}

// Progress is delivered to the engine's Notify hook after each
// acknowledged command.
type Progress struct {
	Acked int
	Pen   trajectory.PenState
}

// streamState is the engine's per-run mutable state.
type streamState struct {
	current   int
	lastAcked int
	pen       trajectory.PenState
}
