// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package plclink

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Transport carries raw 3E frame bytes to and from the controller.
// Implementations must support a read deadline so the link can bound
// each request/response exchange.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// TCPTransport is the primary transport: MC protocol over the CPU
// module's built-in Ethernet port.
type TCPTransport struct {
	conn net.Conn
}

// DialTCP connects to the PLC's MC protocol TCP port.
func DialTCP(host string, port int, timeout time.Duration) (*TCPTransport, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &ConnectionError{Endpoint: addr, Err: err}
	}
	return &TCPTransport{conn: conn}, nil
}

func (t *TCPTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TCPTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *TCPTransport) Close() error                { return t.conn.Close() }

func (t *TCPTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

// SerialTransport tunnels 3E frames through a serial adapter.
type SerialTransport struct {
	port serial.Port
}

// OpenSerial opens a serial port in 8N1 mode.
func OpenSerial(portName string, baudRate int) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, &ConnectionError{Endpoint: portName, Err: err}
	}
	return &SerialTransport{port: port}, nil
}

func (s *SerialTransport) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialTransport) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialTransport) Close() error                { return s.port.Close() }

// SetReadDeadline maps the absolute deadline onto the port's relative
// read timeout. A timed-out serial read returns (0, nil); the session
// treats a zero-byte read as a timeout.
func (s *SerialTransport) SetReadDeadline(deadline time.Time) error {
	return s.port.SetReadTimeout(time.Until(deadline))
}

// WebSocketTransport reaches a PLC through a gateway that relays
// binary frames over WebSocket, for plotters on remote networks.
type WebSocketTransport struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

// DialWebSocket opens a WebSocket gateway connection with optional
// HTTP Basic auth.
func DialWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocketTransport, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, &ConnectionError{Endpoint: wsURL, Err: err}
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, &ConnectionError{
			Endpoint: wsURL,
			Err:      fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme),
		}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("gateway handshake failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, &ConnectionError{Endpoint: wsURL, Err: err}
	}

	return &WebSocketTransport{conn: conn}, nil
}

func (w *WebSocketTransport) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrLinkClosed
	}

	// Drain buffered message bytes first.
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}
		// The gateway relays frames as binary messages only.
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketTransport) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketTransport) Close() error {
	w.closed = true
	return w.conn.Close()
}

func (w *WebSocketTransport) SetReadDeadline(deadline time.Time) error {
	return w.conn.SetReadDeadline(deadline)
}
