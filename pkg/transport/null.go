// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import "sync"

// Responder produces the interface's reply to one Send
type Responder func(sent []byte) []byte

// NullChannel is an in-memory channel. Bytes passed to Inject are returned
// by Receive, and every Send is recorded. An optional Responder emulates the
// serial interface.
type NullChannel struct {
	mu        sync.Mutex
	open      bool
	openErr   error
	rx        []byte
	sent      [][]byte
	responder Responder
}

// NewNullChannel creates an unopened in-memory channel
func NewNullChannel(responder Responder) *NullChannel {
	return &NullChannel{responder: responder}
}

// FailOpen makes the next Open calls return err (nil clears it)
func (n *NullChannel) FailOpen(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.openErr = err
}

// Open marks the channel open
func (n *NullChannel) Open() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.openErr != nil {
		return n.openErr
	}
	n.open = true
	return nil
}

// Close marks the channel closed and drops pending input
func (n *NullChannel) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.open = false
	n.rx = nil
	return nil
}

// IsOpen reports whether the channel is open
func (n *NullChannel) IsOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.open
}

// Send records p and queues the responder's reply
func (n *NullChannel) Send(p []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open {
		return 0, ErrNotOpen
	}
	n.sent = append(n.sent, append([]byte(nil), p...))
	if n.responder != nil {
		n.rx = append(n.rx, n.responder(p)...)
	}
	return len(p), nil
}

// Receive returns injected bytes
func (n *NullChannel) Receive(p []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open {
		return 0, ErrNotOpen
	}
	c := copy(p, n.rx)
	n.rx = n.rx[c:]
	return c, nil
}

// Flush does nothing
func (n *NullChannel) Flush() error {
	return nil
}

// Inject queues data for Receive
func (n *NullChannel) Inject(data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rx = append(n.rx, data...)
}

// Sent returns a copy of every Send so far
func (n *NullChannel) Sent() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([][]byte, len(n.sent))
	copy(out, n.sent)
	return out
}

// String describes the channel
func (n *NullChannel) String() string {
	return "Null"
}
