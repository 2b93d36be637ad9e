// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte channels that connect a session to a
// C-Bus serial interface: serial ports, TCP network interfaces, serial over
// websocket bridges and an in-memory channel for tests.
package transport

import (
	"errors"
	"time"
)

// Channel is a bidirectional byte channel to a serial interface
type Channel interface {
	Open() error
	Close() error
	IsOpen() bool
	Send(p []byte) (int, error)
	// Receive returns immediately with whatever is available, 0 when nothing is
	Receive(p []byte) (int, error)
	Flush() error
}

var (
	// ErrNotOpen is returned when using a channel that has not been opened
	ErrNotOpen = errors.New("channel not open")

	// ErrConnectionClosed is returned when the remote end went away
	ErrConnectionClosed = errors.New("connection closed")
)

// DefaultPollTimeout bounds how long Receive waits on blocking transports
const DefaultPollTimeout = 10 * time.Millisecond
