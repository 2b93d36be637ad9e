// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyChecksumError AnomalyType = iota
	AnomalyTooShort
	AnomalyUnlocatable
	AnomalyUnboundApplication
	AnomalyDecodeError
	AnomalyNak
)

// String returns the anomaly name
func (a AnomalyType) String() string {
	switch a {
	case AnomalyChecksumError:
		return "CHECKSUM_ERROR"
	case AnomalyTooShort:
		return "TOO_SHORT"
	case AnomalyUnlocatable:
		return "UNLOCATABLE"
	case AnomalyUnboundApplication:
		return "UNBOUND_APPLICATION"
	case AnomalyDecodeError:
		return "DECODE_ERROR"
	case AnomalyNak:
		return "NAK"
	default:
		return "UNKNOWN"
	}
}

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// minSALFrame is the shortest SAL frame that can carry a sub-command:
// address byte(s), one id, one group and the checksum
const minSALFrame = 4

// ValidateFrame checks a completed parser result against the address map.
// Returns a slice of validation errors (empty if the frame is valid).
func ValidateFrame(frame []byte, mt MessageType, m *AddressMap, shortForm bool) []ValidationError {
	errors := []ValidationError{}

	if mt.IsNak() {
		return append(errors, ValidationError{
			Type:    AnomalyNak,
			Message: fmt.Sprintf("Interface replied %s", mt),
			Details: map[string]interface{}{"type": mt.String()},
		})
	}
	if !mt.IsSAL() {
		return errors
	}

	if len(frame) < minSALFrame {
		return append(errors, ValidationError{
			Type:    AnomalyTooShort,
			Message: fmt.Sprintf("Frame too short (%d bytes, minimum %d)", len(frame), minSALFrame),
			Details: map[string]interface{}{"length": len(frame), "minimum": minSALFrame},
		})
	}

	if !VerifyChecksum(frame) {
		errors = append(errors, ValidationError{
			Type:    AnomalyChecksumError,
			Message: fmt.Sprintf("Checksum mismatch: frame ends 0x%02X, expected 0x%02X", frame[len(frame)-1], Checksum(frame[:len(frame)-1])),
			Details: map[string]interface{}{"received": frame[len(frame)-1], "expected": Checksum(frame[:len(frame)-1])},
		})
	}

	monitored := mt == MessageMonitoredSALReceived
	app, _, ok := LocateApplicationID(frame, monitored, shortForm)
	if !ok {
		return append(errors, ValidationError{
			Type:    AnomalyUnlocatable,
			Message: "Cannot locate application address",
			Details: map[string]interface{}{"monitored": monitored, "short_form": shortForm},
		})
	}

	if _, bound := m.Lookup(app); !bound {
		return append(errors, ValidationError{
			Type:    AnomalyUnboundApplication,
			Message: fmt.Sprintf("Application 0x%02X is not mapped", app),
			Details: map[string]interface{}{"application": app},
		})
	}

	if _, ok := m.TryParseCommand(frame, monitored, shortForm); !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyDecodeError,
			Message: fmt.Sprintf("Sub-commands for application 0x%02X failed to decode", app),
			Details: map[string]interface{}{"application": app},
		})
	}

	return errors
}
