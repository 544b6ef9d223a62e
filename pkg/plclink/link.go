// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

// Package plclink provides the device link to the PLC: session
// lifecycle, blocking register read/write exchanges, and the error
// taxonomy the streaming engine bases its retry decisions on.
//
// The link is deliberately mechanical. It performs exactly one
// request/response exchange per call, bounded by the configured
// timeout, and never retries; retry policy belongs to pkg/stream.
package plclink

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/scaraworks/plotstream/pkg/mcproto"
)

// Defaults matching the plotter's bench setup.
const (
	DefaultPort    = 5007
	DefaultBaud    = 115200
	DefaultTimeout = 500 * time.Millisecond
	DefaultRetries = 3

	// drainWindow bounds the read used to flush a late response after
	// a failed exchange.
	drainWindow = 5 * time.Millisecond
)

// Config enumerates the endpoint parameters for one link.
type Config struct {
	// TCP endpoint (primary).
	Host string
	Port int

	// Serial endpoint, used when SerialPort is non-empty.
	SerialPort string
	BaudRate   int

	// WebSocket gateway, used when GatewayURL is non-empty.
	GatewayURL      string
	GatewayUser     string
	GatewayPassword string
	SkipSSLVerify   bool

	// Timeout bounds each write/read exchange.
	Timeout time.Duration

	// Retries is the per-command retry budget consumed by the
	// streaming engine; the link itself never retries.
	Retries int
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Port == 0 {
		out.Port = DefaultPort
	}
	if out.BaudRate == 0 {
		out.BaudRate = DefaultBaud
	}
	if out.Timeout == 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Retries == 0 {
		out.Retries = DefaultRetries
	}
	return out
}

// Endpoint returns a printable description of the configured endpoint.
func (c *Config) Endpoint() string {
	switch {
	case c.GatewayURL != "":
		return fmt.Sprintf("gateway %s", c.GatewayURL)
	case c.SerialPort != "":
		return fmt.Sprintf("serial %s @ %d baud", c.SerialPort, c.BaudRate)
	default:
		return fmt.Sprintf("tcp %s:%d", c.Host, c.Port)
	}
}

// Session is one open link to the controller. It exclusively owns its
// transport and serializes exchanges; it must not be shared across
// concurrent runs.
type Session struct {
	mu      sync.Mutex
	tr      Transport
	dec     *mcproto.Decoder
	timeout time.Duration
	retries int
	closed  bool

	// stale marks that the last exchange ended without consuming its
	// response, which may therefore still arrive and must be flushed
	// before the next request goes out.
	stale bool
}

// Open establishes the transport selected by cfg and returns an open
// session. The caller owns the session and must Close it on every
// exit path.
func Open(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	var tr Transport
	var err error
	switch {
	case cfg.GatewayURL != "":
		tr, err = DialWebSocket(cfg.GatewayURL, cfg.GatewayUser, cfg.GatewayPassword, cfg.SkipSSLVerify)
	case cfg.SerialPort != "":
		tr, err = OpenSerial(cfg.SerialPort, cfg.BaudRate)
	case cfg.Host != "":
		tr, err = DialTCP(cfg.Host, cfg.Port, cfg.Timeout)
	default:
		return nil, &ConnectionError{Endpoint: "(none)", Err: errors.New("no endpoint configured")}
	}
	if err != nil {
		return nil, err
	}

	return NewSession(tr, cfg.Timeout, cfg.Retries), nil
}

// NewSession wraps an already-open transport. Used by Open and by
// tests that substitute an in-memory transport.
func NewSession(tr Transport, timeout time.Duration, retries int) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Session{
		tr:      tr,
		dec:     mcproto.NewDecoder(),
		timeout: timeout,
		retries: retries,
	}
}

// Retries returns the configured per-command retry budget.
func (s *Session) Retries() int { return s.retries }

// Timeout returns the per-exchange deadline duration.
func (s *Session) Timeout() time.Duration { return s.timeout }

// Close releases the transport. It is idempotent; closing an
// already-closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tr.Close()
}

// exchange performs one request/response round trip. The raw transport
// error is preserved through wrapping so callers can classify it.
func (s *Session) exchange(req *mcproto.Request) (*mcproto.Response, error) {
	op := fmt.Sprintf("%s %s x%d", cmdName(req.Command), req.Device, req.Count)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrLinkClosed
	}

	frame, err := req.Encode()
	if err != nil {
		return nil, &ProtocolError{Op: op, Err: err}
	}

	// Drop any stale partial frame from a previously timed-out read,
	// and flush a complete late response still buffered in the
	// transport so it is never taken for this request's reply.
	s.dec.Reset()
	if s.stale {
		s.drainStale()
	}

	start := time.Now()
	deadline := start.Add(s.timeout)

	// Stale until this request's own response is consumed.
	s.stale = true

	if _, err := s.tr.Write(frame); err != nil {
		return nil, fmt.Errorf("%s: write: %w", op, err)
	}

	if err := s.tr.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%s: set deadline: %w", op, err)
	}

	buf := make([]byte, 256)
	for {
		n, err := s.tr.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, &TimeoutError{Op: op, Elapsed: time.Since(start), Err: err}
			}
			return nil, fmt.Errorf("%s: read: %w", op, err)
		}
		if n == 0 {
			// Serial ports signal an expired read timeout with a
			// zero-byte read instead of an error.
			return nil, &TimeoutError{Op: op, Elapsed: time.Since(start)}
		}

		for _, b := range buf[:n] {
			resp, derr := s.dec.DecodeByte(b)
			if derr != nil {
				return nil, &ProtocolError{Op: op, Err: derr}
			}
			if resp == nil {
				continue
			}
			if endErr := resp.EndError(); endErr != nil {
				return nil, &ProtocolError{Op: op, Err: endErr}
			}
			if want := req.ExpectedDataLen(); len(resp.Data) != want {
				return nil, &ProtocolError{
					Op:  op,
					Err: fmt.Errorf("response carries %d data bytes, want %d", len(resp.Data), want),
				}
			}
			s.stale = false
			return resp, nil
		}
	}
}

// drainStale reads and discards whatever the transport buffered after
// a failed exchange. Bounded by a short deadline so an idle line costs
// at most one drain window.
func (s *Session) drainStale() {
	s.stale = false
	if err := s.tr.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
		return
	}
	buf := make([]byte, 256)
	for {
		n, err := s.tr.Read(buf)
		if err != nil || n == 0 {
			return
		}
	}
}

func cmdName(cmd uint16) string {
	switch cmd {
	case mcproto.CmdBatchRead:
		return "read"
	case mcproto.CmdBatchWrite:
		return "write"
	}
	return fmt.Sprintf("cmd 0x%04X", cmd)
}

// ReadWords reads count consecutive word devices starting at head.
func (s *Session) ReadWords(head mcproto.Device, count int) ([]uint16, error) {
	resp, err := s.exchange(mcproto.NewReadWords(head, uint16(count)))
	if err != nil {
		return nil, err
	}
	return resp.Words()
}

// WriteWords writes consecutive word devices starting at head.
func (s *Session) WriteWords(head mcproto.Device, words []uint16) error {
	_, err := s.exchange(mcproto.NewWriteWords(head, words))
	return err
}

// ReadBits reads count consecutive bit devices starting at head.
func (s *Session) ReadBits(head mcproto.Device, count int) ([]bool, error) {
	resp, err := s.exchange(mcproto.NewReadBits(head, uint16(count)))
	if err != nil {
		return nil, err
	}
	return resp.Bits(count)
}

// WriteBits writes consecutive bit devices starting at head.
func (s *Session) WriteBits(head mcproto.Device, bits []bool) error {
	_, err := s.exchange(mcproto.NewWriteBits(head, bits))
	return err
}

// ReadDwords reads count signed 32-bit values stored low word first.
func (s *Session) ReadDwords(head mcproto.Device, count int) ([]int32, error) {
	words, err := s.ReadWords(head, count*2)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = mcproto.WordsToDword(words[2*i], words[2*i+1])
	}
	return out, nil
}

// WriteDwords writes signed 32-bit values low word first.
func (s *Session) WriteDwords(head mcproto.Device, values []int32) error {
	words := make([]uint16, 0, len(values)*2)
	for _, v := range values {
		low, high := mcproto.DwordToWords(v)
		words = append(words, low, high)
	}
	return s.WriteWords(head, words)
}

// Ping probes the link with a one-word read of D0.
func (s *Session) Ping() error {
	_, err := s.ReadWords(mcproto.Device{Class: mcproto.ClassD, Number: 0}, 1)
	return err
}
