// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"go.uber.org/zap"
)

// WebSocketChannel talks to a serial interface through a serial-over-websocket
// bridge. Incoming messages are buffered by a reader goroutine so Receive
// never blocks.
type WebSocketChannel struct {
	url           string
	username      string
	password      string
	skipSSLVerify bool

	mu     sync.Mutex
	conn   *websocket.Conn
	buf    []byte
	closed bool // Reader hit an error
	err    error
}

// NewWebSocketChannel creates an unopened websocket channel with optional
// HTTP Basic auth
func NewWebSocketChannel(wsURL, username, password string, skipSSLVerify bool) *WebSocketChannel {
	return &WebSocketChannel{url: wsURL, username: username, password: password, skipSSLVerify: skipSSLVerify}
}

// Open dials the bridge
func (w *WebSocketChannel) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}

	u, err := url.Parse(w.url)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: w.skipSSLVerify}
	}

	headers := http.Header{}
	if w.username != "" && w.password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(w.username + ":" + w.password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, w.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("WebSocket connection failed: %w", err)
	}

	w.conn = conn
	w.buf = w.buf[:0]
	w.closed = false
	w.err = nil
	go w.readLoop(conn)

	logging.Info("WebSocket connection opened", zap.String("url", w.url))
	return nil
}

// readLoop buffers incoming messages until the connection fails
func (w *WebSocketChannel) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			if w.conn == conn {
				w.closed = true
				w.err = err
			}
			w.mu.Unlock()
			logging.Debug("WebSocket reader stopped", zap.Error(err))
			return
		}

		// Bridges may forward the ASCII stream as either message type
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}

		w.mu.Lock()
		w.buf = append(w.buf, data...)
		w.mu.Unlock()
	}
}

// Close closes the connection
func (w *WebSocketChannel) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// IsOpen reports whether the connection is open and healthy
func (w *WebSocketChannel) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil && !w.closed
}

// Send writes p as one binary message
func (w *WebSocketChannel) Send(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return 0, ErrNotOpen
	}
	if w.closed {
		return 0, ErrConnectionClosed
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Receive drains buffered bytes. Once the reader has failed and the buffer
// is empty it returns ErrConnectionClosed.
func (w *WebSocketChannel) Receive(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return 0, ErrNotOpen
	}
	if len(w.buf) == 0 {
		if w.closed {
			return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, w.err)
		}
		return 0, nil
	}
	n := copy(p, w.buf)
	w.buf = w.buf[:copy(w.buf, w.buf[n:])]
	return n, nil
}

// Flush is a no-op; each Send is one message
func (w *WebSocketChannel) Flush() error {
	return nil
}

// String describes the channel
func (w *WebSocketChannel) String() string {
	return fmt.Sprintf("WebSocket: %s", w.url)
}
