// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"go.uber.org/zap"
)

// DefaultTCPPort is the port C-Bus network interfaces listen on
const DefaultTCPPort = 10001

// TCPChannel connects to a C-Bus network interface
type TCPChannel struct {
	address     string
	dialTimeout time.Duration
	pollTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPChannel creates an unopened TCP channel. A missing port in address
// selects DefaultTCPPort.
func NewTCPChannel(address string) *TCPChannel {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, fmt.Sprint(DefaultTCPPort))
	}
	return &TCPChannel{address: address, dialTimeout: 10 * time.Second, pollTimeout: DefaultPollTimeout}
}

// Open dials the network interface
func (t *TCPChannel) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp", t.address, t.dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.address, err)
	}
	t.conn = conn
	logging.Info("TCP connection opened", zap.String("address", t.address))
	return nil
}

// Close closes the connection
func (t *TCPChannel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// IsOpen reports whether the connection is open
func (t *TCPChannel) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Send writes p to the connection
func (t *TCPChannel) Send(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	return conn.Write(p)
}

// Receive reads whatever arrives within the poll timeout
func (t *TCPChannel) Receive(p []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(t.pollTimeout)); err != nil {
		return 0, err
	}

	n, err := conn.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, nil
		}
		if errors.Is(err, io.EOF) {
			return n, ErrConnectionClosed
		}
		return n, err
	}
	return n, nil
}

// Flush is a no-op; writes go straight to the socket
func (t *TCPChannel) Flush() error {
	_, err := t.current()
	return err
}

// String describes the channel
func (t *TCPChannel) String() string {
	return fmt.Sprintf("TCP: %s", t.address)
}

func (t *TCPChannel) current() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotOpen
	}
	return t.conn, nil
}
