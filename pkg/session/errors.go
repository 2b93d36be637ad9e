// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import "errors"

var (
	// ErrUnknownPreset is returned for preset names that are not configured
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrQueueFull is returned when the outbound queue cannot take another command
	ErrQueueFull = errors.New("command queue full")

	// ErrLogonFailed is returned when the serial interface does not complete setup
	ErrLogonFailed = errors.New("logon failed")

	// ErrUnsupported is returned for operations a preset's domain cannot perform
	ErrUnsupported = errors.New("operation not supported")
)
