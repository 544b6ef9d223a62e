// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package plclink

import (
	"errors"
	"fmt"
	"time"
)

// ErrLinkClosed is returned when an exchange is attempted on a session
// that has been closed. This is a caller contract violation, not a
// transient fault.
var ErrLinkClosed = errors.New("link session is closed")

// ConnectionError wraps a failure to establish the transport.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports an exchange that received no complete response
// within the configured deadline. The Streaming Engine decides whether
// to retry; the link never retries on its own.
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s timed out after %s: %v", e.Op, e.Elapsed, e.Err)
	}
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Elapsed)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout marks the error for net.Error-style checks.
func (e *TimeoutError) Timeout() bool { return true }

// ProtocolError reports a malformed or unexpected response frame,
// including CPU-reported end codes.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) an exchange timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is (or wraps) a protocol error.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
