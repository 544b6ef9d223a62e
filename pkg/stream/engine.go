// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/scaraworks/plotstream/pkg/mcproto"
	"github.com/scaraworks/plotstream/pkg/plclink"
	"github.com/scaraworks/plotstream/pkg/trajectory"
)

// ErrBusy is returned when Stream is invoked while a run is already
// active on the same engine. The engine is not reentrant: overlapping
// runs on one link session would break the in-flight invariant.
var ErrBusy = errors.New("stream: a run is already active on this session")

// Port is the register access the engine needs from a link session.
// *plclink.Session satisfies it; tests substitute a scripted fake.
type Port interface {
	WriteWords(head mcproto.Device, words []uint16) error
	ReadDwords(head mcproto.Device, count int) ([]int32, error)
	WriteBits(head mcproto.Device, bits []bool) error
	ReadBits(head mcproto.Device, count int) ([]bool, error)
	Timeout() time.Duration
	Retries() int
}

var _ Port = (*plclink.Session)(nil)

// Engine streams encoded commands over a link, pacing dispatch against
// the controller's token echo. At most one command is ever awaiting
// acknowledgement; pen transitions are synchronous barriers.
type Engine struct {
	port Port
	enc  *Encoder

	layout Layout

	// Notify, when set, receives a Progress after each acknowledged
	// command. Called from the streaming goroutine.
	Notify func(Progress)

	// PollInterval is the delay between token echo polls within one
	// attempt window. Tests set it to zero.
	PollInterval time.Duration

	running atomic.Bool
}

// New builds an engine for the given port and register layout.
func New(port Port, layout Layout) (*Engine, error) {
	enc, err := NewEncoder(layout)
	if err != nil {
		return nil, err
	}
	return &Engine{
		port:         port,
		enc:          enc,
		layout:       layout,
		PollInterval: 10 * time.Millisecond,
	}, nil
}

// Stream runs one trajectory to a terminal state. The returned error
// is non-nil only for contract violations (engine busy, axis arity,
// sequence ordering, closed link) and source failures; controller
// stalls and faults are reported through the Result.
//
// Cancelling ctx is the operator abort: it is honored between
// handshake steps, never by interrupting an exchange in flight.
func (e *Engine) Stream(ctx context.Context, src trajectory.Source) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Result{State: Idle, LastAcked: -1}, ErrBusy
	}
	defer e.running.Store(false)

	if src.Axes() != e.enc.Axes() {
		return Result{State: Idle, LastAcked: -1},
			fmt.Errorf("stream: source has %d axes, layout %d", src.Axes(), e.enc.Axes())
	}

	st := &streamState{lastAcked: -1, pen: trajectory.PenUp}

	// Drive enable frames the run, like the ladder program's M3 gate.
	if res, ok := e.driveEnable(st); !ok {
		return res, contractErr(res)
	}
	defer e.port.WriteBits(e.layout.Drive, []bool{false}) // best effort

	for {
		// Operator abort, honored between completed handshake steps.
		if ctx.Err() != nil {
			return e.abort(st), nil
		}

		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			e.penUpBestEffort(st)
			return Result{State: Aborted, LastAcked: st.lastAcked, Err: err},
				fmt.Errorf("stream: waypoint source: %w", err)
		}
		if rec.Seq != st.current {
			return Result{State: Faulted, Fault: FaultNone, LastAcked: st.lastAcked},
				fmt.Errorf("stream: source produced index %d, want %d", rec.Seq, st.current)
		}

		cmd, err := e.enc.Encode(rec)
		if err != nil {
			return Result{State: Faulted, Fault: FaultNone, LastAcked: st.lastAcked}, err
		}

		// Pen transitions are barriers: never overlap a pen change
		// with a motion write.
		if cmd.Pen != st.pen {
			if res, ok := e.penBarrier(st, cmd.Pen); !ok {
				return res, contractErr(res)
			}
			st.pen = cmd.Pen

			if ctx.Err() != nil {
				return e.abort(st), nil
			}
		}

		if res, ok := e.dispatch(st, cmd); !ok {
			return res, contractErr(res)
		}

		st.lastAcked = cmd.Seq
		st.current++
		if e.Notify != nil {
			e.Notify(Progress{Acked: st.lastAcked, Pen: st.pen})
		}
	}

	// Never leave the pen down at rest.
	if st.pen != trajectory.PenUp {
		if res, ok := e.penBarrier(st, trajectory.PenUp); !ok {
			return res, contractErr(res)
		}
		st.pen = trajectory.PenUp
	}

	return Result{State: Completed, LastAcked: st.lastAcked}, nil
}

// driveEnable sets the drive bit under the same retry budget as motion
// commands: a controller that never accepts the enable is a stall, not
// a device fault.
func (e *Engine) driveEnable(st *streamState) (Result, bool) {
	for attempt := 0; attempt <= e.port.Retries(); attempt++ {
		err := e.port.WriteBits(e.layout.Drive, []bool{true})
		if err == nil {
			return Result{}, true
		}
		if plclink.IsTimeout(err) {
			continue
		}
		return e.failed(st, err), false
	}
	return Result{State: Faulted, Fault: FaultStall, LastAcked: st.lastAcked}, false
}

// dispatch performs the motion handshake for one command: write the
// registers, then poll the token echo until the controller reports the
// command consumed. Each retry is a fresh write/read pair; the write
// is idempotent because the token is unchanged.
func (e *Engine) dispatch(st *streamState, cmd Command) (Result, bool) {
	for attempt := 0; attempt <= e.port.Retries(); attempt++ {
		var timedOut bool
		for _, w := range cmd.Writes {
			if err := e.port.WriteWords(w.Head, w.Words); err != nil {
				if plclink.IsTimeout(err) {
					timedOut = true
					break
				}
				return e.failed(st, err), false
			}
		}
		if timedOut {
			continue
		}

		acked, res, ok := e.awaitToken(st, cmd.Seq)
		if !ok {
			return res, false
		}
		if acked {
			return Result{}, true
		}
	}

	return Result{State: Faulted, Fault: FaultStall, LastAcked: st.lastAcked}, false
}

// awaitToken polls the fault flag and token echo for one attempt
// window. acked=false with ok=true means the window elapsed and the
// caller may retry.
func (e *Engine) awaitToken(st *streamState, seq int) (acked bool, res Result, ok bool) {
	deadline := time.Now().Add(e.port.Timeout())
	for {
		faulted, err := e.readFault()
		if err != nil {
			if plclink.IsTimeout(err) {
				return false, Result{}, true
			}
			return false, e.failed(st, err), false
		}
		if faulted {
			return false, Result{State: Faulted, Fault: FaultDevice, LastAcked: st.lastAcked}, false
		}

		echo, err := e.port.ReadDwords(e.layout.TokenEcho, 1)
		if err != nil {
			if plclink.IsTimeout(err) {
				return false, Result{}, true
			}
			return false, e.failed(st, err), false
		}
		if int(echo[0]) == seq {
			return true, Result{}, true
		}

		if time.Now().After(deadline) {
			return false, Result{}, true
		}
		time.Sleep(e.PollInterval)
	}
}

// penBarrier writes the pen flag and waits for the pen-settled echo
// before any further motion write, retrying within the same budget as
// motion commands.
func (e *Engine) penBarrier(st *streamState, target trajectory.PenState) (Result, bool) {
	want := target == trajectory.PenDown

	for attempt := 0; attempt <= e.port.Retries(); attempt++ {
		if err := e.port.WriteBits(e.layout.PenFlag, []bool{want}); err != nil {
			if plclink.IsTimeout(err) {
				continue
			}
			return e.failed(st, err), false
		}

		deadline := time.Now().Add(e.port.Timeout())
		for {
			faulted, err := e.readFault()
			if err != nil {
				if plclink.IsTimeout(err) {
					break
				}
				return e.failed(st, err), false
			}
			if faulted {
				return Result{State: Faulted, Fault: FaultDevice, LastAcked: st.lastAcked}, false
			}

			echo, err := e.port.ReadBits(e.layout.PenEcho, 1)
			if err != nil {
				if plclink.IsTimeout(err) {
					break
				}
				return e.failed(st, err), false
			}
			if echo[0] == want {
				return Result{}, true
			}

			if time.Now().After(deadline) {
				break
			}
			time.Sleep(e.PollInterval)
		}
	}

	return Result{State: Faulted, Fault: FaultStall, LastAcked: st.lastAcked}, false
}

func (e *Engine) readFault() (bool, error) {
	bits, err := e.port.ReadBits(e.layout.Fault, 1)
	if err != nil {
		return false, err
	}
	return bits[0], nil
}

// abort is the operator-cancel path: lift the pen best-effort and stop
// issuing motion writes.
func (e *Engine) abort(st *streamState) Result {
	e.penUpBestEffort(st)
	return Result{State: Aborted, LastAcked: st.lastAcked}
}

func (e *Engine) penUpBestEffort(st *streamState) {
	if st.pen == trajectory.PenUp {
		return
	}
	// Outcome deliberately ignored: the run is already ending and the
	// actuator state may be untrusted.
	_ = e.port.WriteBits(e.layout.PenFlag, []bool{false})
	st.pen = trajectory.PenUp
}

// failed classifies a non-timeout link error into a terminal result.
// Timeouts never reach here; they are consumed by the retry budget.
// Protocol errors leave the controller state untrusted and get the
// same handling as a hardware fault flag.
func (e *Engine) failed(st *streamState, err error) Result {
	res := Result{State: Faulted, Fault: FaultDevice, LastAcked: st.lastAcked, Err: err}
	if errors.Is(err, plclink.ErrLinkClosed) {
		res.Fault = FaultNone
	}
	return res
}

// contractErr surfaces caller contract violations (a closed link)
// through Stream's error return; device-side faults stay in the Result.
func contractErr(res Result) error {
	if res.Err != nil && errors.Is(res.Err, plclink.ErrLinkClosed) {
		return res.Err
	}
	return nil
}
