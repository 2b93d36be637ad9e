// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"sync"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/capture"
)

// ReplayChannel plays back the received side of a capture. With realtime
// set, records are released at their original pace; otherwise one record is
// released per Receive. Sends are accepted and discarded.
type ReplayChannel struct {
	mu       sync.Mutex
	records  []capture.Record
	next     int
	pending  []byte
	realtime bool
	start    time.Time
	open     bool
	now      func() time.Time
}

// NewReplayChannel creates a replay of the rx records in records
func NewReplayChannel(records []capture.Record, realtime bool) *ReplayChannel {
	var rx []capture.Record
	for _, r := range records {
		if r.Direction == capture.DirectionRx {
			rx = append(rx, r)
		}
	}
	return &ReplayChannel{records: rx, realtime: realtime, now: time.Now}
}

// Open starts the playback clock
func (r *ReplayChannel) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = true
	r.start = r.now()
	return nil
}

// Close stops playback
func (r *ReplayChannel) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	return nil
}

// IsOpen reports whether playback is running
func (r *ReplayChannel) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Send discards p
func (r *ReplayChannel) Send(p []byte) (int, error) {
	if !r.IsOpen() {
		return 0, ErrNotOpen
	}
	return len(p), nil
}

// Receive returns the next due record. Once every record has been delivered
// it returns ErrConnectionClosed.
func (r *ReplayChannel) Receive(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return 0, ErrNotOpen
	}

	if len(r.pending) == 0 {
		if r.next >= len(r.records) {
			return 0, ErrConnectionClosed
		}
		rec := r.records[r.next]
		if r.realtime {
			offset := rec.Time.Sub(r.records[0].Time)
			if r.now().Sub(r.start) < offset {
				return 0, nil
			}
		}
		r.pending = rec.Data
		r.next++
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Flush does nothing
func (r *ReplayChannel) Flush() error {
	return nil
}

// Done reports whether every record has been delivered
func (r *ReplayChannel) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next >= len(r.records) && len(r.pending) == 0
}

// String describes the channel
func (r *ReplayChannel) String() string {
	return "Replay"
}
