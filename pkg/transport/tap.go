// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/capture"
	"go.uber.org/zap"
)

// Recorder receives a copy of every chunk crossing a Tap
type Recorder interface {
	Record(dir capture.Direction, data []byte) error
}

// Tap wraps a Channel and records its traffic. Recording failures are logged
// and never interrupt the channel.
type Tap struct {
	Channel
	rec Recorder
}

// NewTap wraps ch, recording to rec
func NewTap(ch Channel, rec Recorder) *Tap {
	return &Tap{Channel: ch, rec: rec}
}

// Send forwards p and records what was sent
func (t *Tap) Send(p []byte) (int, error) {
	n, err := t.Channel.Send(p)
	if n > 0 {
		t.record(capture.DirectionTx, p[:n])
	}
	return n, err
}

// Receive forwards to the wrapped channel and records what arrived
func (t *Tap) Receive(p []byte) (int, error) {
	n, err := t.Channel.Receive(p)
	if n > 0 {
		t.record(capture.DirectionRx, p[:n])
	}
	return n, err
}

func (t *Tap) record(dir capture.Direction, data []byte) {
	if err := t.rec.Record(dir, data); err != nil {
		logging.Warn("Failed to record traffic", zap.Stringer("direction", dir), zap.Error(err))
	}
}
