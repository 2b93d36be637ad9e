// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "errors"

var (
	// ErrAddressConflict is returned when an application address is already
	// bound to a different domain
	ErrAddressConflict = errors.New("application address bound to a different domain")

	// ErrUnknownCommand is returned when a sub-command id is outside the
	// closed set of its domain
	ErrUnknownCommand = errors.New("unknown command id")

	// ErrUnknownDomain is returned when parsing an unrecognised domain name
	ErrUnknownDomain = errors.New("unknown application domain")
)
