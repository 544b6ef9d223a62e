// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package plclink

import (
	"errors"
	"testing"
	"time"

	"github.com/scaraworks/plotstream/pkg/mcproto"
)

// fakeTransport replays canned response frames and records writes.
// Frames in queue are readable immediately; onWrite can enqueue the
// response only once the request has gone out, the way a real
// controller answers.
type fakeTransport struct {
	writes    [][]byte
	pending   []byte
	queue     [][]byte
	chunkSize int // fragment reads to exercise reassembly; 0 = all at once
	readErr   error
	timeouts  int    // number of zero-byte reads to serve first (serial-style timeout)
	onWrite   func() // invoked after each request write
	closed    bool
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.writes = append(f.writes, append([]byte(nil), p...))
	if f.onWrite != nil {
		f.onWrite()
	}
	return len(p), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.timeouts > 0 {
		f.timeouts--
		return 0, nil
	}
	if len(f.pending) == 0 {
		if len(f.queue) == 0 {
			return 0, nil // nothing scripted: behaves like a timeout
		}
		f.pending = f.queue[0]
		f.queue = f.queue[1:]
	}
	n := len(f.pending)
	if f.chunkSize > 0 && n > f.chunkSize {
		n = f.chunkSize
	}
	n = copy(p, f.pending[:n])
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) SetReadDeadline(time.Time) error { return nil }

// respFrame builds a canned 3E response frame.
func respFrame(endCode uint16, data []byte) []byte {
	frame := []byte{0xD0, 0x00, 0x00, 0xFF, 0xFF, 0x03, 0x00}
	length := uint16(2 + len(data))
	frame = append(frame, byte(length), byte(length>>8))
	frame = append(frame, byte(endCode), byte(endCode>>8))
	return append(frame, data...)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestSession(tr *fakeTransport) *Session {
	return NewSession(tr, 50*time.Millisecond, 3)
}

func TestSession_ReadWords(t *testing.T) {
	tr := &fakeTransport{queue: [][]byte{respFrame(mcproto.EndOK, []byte{0xF4, 0x01, 0x2C, 0x01})}}
	s := newTestSession(tr)

	words, err := s.ReadWords(mcproto.MustDevice("D100"), 2)
	if err != nil {
		t.Fatalf("ReadWords: %v", err)
	}
	if len(words) != 2 || words[0] != 500 || words[1] != 300 {
		t.Errorf("ReadWords = %v, want [500 300]", words)
	}
	if len(tr.writes) != 1 {
		t.Fatalf("issued %d writes, want 1", len(tr.writes))
	}
}

func TestSession_ReadWords_Fragmented(t *testing.T) {
	tr := &fakeTransport{
		queue:     [][]byte{respFrame(mcproto.EndOK, []byte{0x01, 0x00})},
		chunkSize: 3,
	}
	s := newTestSession(tr)

	words, err := s.ReadWords(mcproto.MustDevice("D0"), 1)
	if err != nil {
		t.Fatalf("ReadWords: %v", err)
	}
	if words[0] != 1 {
		t.Errorf("ReadWords = %v, want [1]", words)
	}
}

func TestSession_WriteDwords(t *testing.T) {
	tr := &fakeTransport{queue: [][]byte{respFrame(mcproto.EndOK, nil)}}
	s := newTestSession(tr)

	if err := s.WriteDwords(mcproto.MustDevice("D100"), []int32{500, -300}); err != nil {
		t.Fatalf("WriteDwords: %v", err)
	}

	// The encoded frame must carry 4 words: 500 then -300, low first.
	frame := tr.writes[0]
	payload := frame[len(frame)-8:]
	want := []byte{0xF4, 0x01, 0x00, 0x00, 0xD4, 0xFE, 0xFF, 0xFF}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("dword payload = % X, want % X", payload, want)
		}
	}
}

func TestSession_ReadDwords(t *testing.T) {
	// -300 encodes as 0xFFFFFED4.
	tr := &fakeTransport{queue: [][]byte{respFrame(mcproto.EndOK, []byte{0xD4, 0xFE, 0xFF, 0xFF})}}
	s := newTestSession(tr)

	vals, err := s.ReadDwords(mcproto.MustDevice("D104"), 1)
	if err != nil {
		t.Fatalf("ReadDwords: %v", err)
	}
	if vals[0] != -300 {
		t.Errorf("ReadDwords = %v, want [-300]", vals)
	}
}

func TestSession_Timeout(t *testing.T) {
	tests := []struct {
		name string
		tr   *fakeTransport
	}{
		{"transport deadline error", &fakeTransport{readErr: timeoutErr{}}},
		{"serial zero-byte read", &fakeTransport{timeouts: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(tt.tr)
			_, err := s.ReadWords(mcproto.MustDevice("D0"), 1)
			if !IsTimeout(err) {
				t.Errorf("error = %v, want TimeoutError", err)
			}
		})
	}
}

func TestSession_EndCodeIsProtocolError(t *testing.T) {
	tr := &fakeTransport{queue: [][]byte{respFrame(mcproto.EndDeviceRange, nil)}}
	s := newTestSession(tr)

	err := s.WriteWords(mcproto.MustDevice("D100"), []uint16{1})
	if !IsProtocol(err) {
		t.Fatalf("error = %v, want ProtocolError", err)
	}
	var ec *mcproto.EndCodeError
	if !errors.As(err, &ec) || ec.Code != mcproto.EndDeviceRange {
		t.Errorf("error = %v, want wrapped end code 0xC056", err)
	}
}

func TestSession_ShortResponseIsProtocolError(t *testing.T) {
	// Two words requested, one returned.
	tr := &fakeTransport{queue: [][]byte{respFrame(mcproto.EndOK, []byte{0x01, 0x00})}}
	s := newTestSession(tr)

	if _, err := s.ReadWords(mcproto.MustDevice("D0"), 2); !IsProtocol(err) {
		t.Errorf("error = %v, want ProtocolError", err)
	}
}

func TestSession_ClosedSession(t *testing.T) {
	tr := &fakeTransport{}
	s := newTestSession(tr)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !tr.closed {
		t.Error("transport not closed")
	}

	if _, err := s.ReadWords(mcproto.MustDevice("D0"), 1); !errors.Is(err, ErrLinkClosed) {
		t.Errorf("error = %v, want ErrLinkClosed", err)
	}
}

func TestSession_StaleFrameDropped(t *testing.T) {
	// A leftover partial frame from a timed-out exchange must not
	// corrupt the next one.
	tr := &fakeTransport{timeouts: 1}
	s := newTestSession(tr)

	if _, err := s.ReadWords(mcproto.MustDevice("D0"), 1); !IsTimeout(err) {
		t.Fatalf("first exchange: %v, want timeout", err)
	}

	tr.onWrite = func() {
		tr.queue = append(tr.queue, respFrame(mcproto.EndOK, []byte{0x2A, 0x00}))
	}
	words, err := s.ReadWords(mcproto.MustDevice("D0"), 1)
	if err != nil {
		t.Fatalf("second exchange: %v", err)
	}
	if words[0] != 42 {
		t.Errorf("second exchange = %v, want [42]", words)
	}
}

func TestSession_LateResponseFlushed(t *testing.T) {
	// A complete response arriving after its exchange already timed
	// out must be discarded, not decoded as the reply to the next
	// request. Here the late frame is a write-ack (no data); without
	// the flush it would fail the next read's data-length check.
	tr := &fakeTransport{timeouts: 1}
	s := newTestSession(tr)

	if err := s.WriteWords(mcproto.MustDevice("D100"), []uint16{1}); !IsTimeout(err) {
		t.Fatalf("first exchange: %v, want timeout", err)
	}

	// The ack for the timed-out write finally shows up, buffered
	// ahead of the next request.
	tr.queue = [][]byte{respFrame(mcproto.EndOK, nil)}
	tr.onWrite = func() {
		tr.queue = append(tr.queue, respFrame(mcproto.EndOK, []byte{0x2A, 0x00}))
	}

	words, err := s.ReadWords(mcproto.MustDevice("D114"), 1)
	if err != nil {
		t.Fatalf("second exchange: %v", err)
	}
	if words[0] != 42 {
		t.Errorf("second exchange = %v, want [42]", words)
	}
}

func TestConfig_Endpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"tcp", Config{Host: "192.168.3.250", Port: 5007}, "tcp 192.168.3.250:5007"},
		{"serial", Config{SerialPort: "/dev/ttyUSB0", BaudRate: 115200}, "serial /dev/ttyUSB0 @ 115200 baud"},
		{"gateway", Config{GatewayURL: "ws://lab/plc"}, "gateway ws://lab/plc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Endpoint(); got != tt.want {
				t.Errorf("Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}
