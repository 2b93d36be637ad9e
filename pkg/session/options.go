// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
)

// Options tune the session timing and buffers
type Options struct {
	LogonAttempts     int           // Mode resets tried before giving up
	ResponseDelay     time.Duration // Wait after each logon step before reading the reply
	ReconnectDelay    time.Duration // Pause between connection attempts
	KeepAliveInterval time.Duration // Idle time before a keep-alive is sent
	AckTimeout        time.Duration // Pending commands are dropped after this long
	PollInterval      time.Duration // Receive poll period
	QueueSize         int           // Outbound command queue depth
	BufferSize        int           // Parser payload capacity
	ConfirmationChars string        // Confirmation character rotation
	SmartMode         bool          // Request SMART mode (long form monitored SAL)
}

// DefaultOptions returns the settings used with a PC Interface
func DefaultOptions() Options {
	return Options{
		LogonAttempts:     3,
		ResponseDelay:     200 * time.Millisecond,
		ReconnectDelay:    5 * time.Second,
		KeepAliveInterval: 10 * time.Second,
		AckTimeout:        2 * time.Second,
		PollInterval:      20 * time.Millisecond,
		QueueSize:         32,
		BufferSize:        cbus.DefaultBufferSize,
		ConfirmationChars: cbus.DefaultConfirmationChars,
		SmartMode:         true,
	}
}

// withDefaults fills zero fields from DefaultOptions
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LogonAttempts <= 0 {
		o.LogonAttempts = d.LogonAttempts
	}
	if o.ResponseDelay <= 0 {
		o.ResponseDelay = d.ResponseDelay
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = d.ReconnectDelay
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = d.KeepAliveInterval
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = d.AckTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	if o.ConfirmationChars == "" {
		o.ConfirmationChars = d.ConfirmationChars
	}
	return o
}
