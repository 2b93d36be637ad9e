// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "fmt"

// CALCommand sets one serial interface parameter
type CALCommand struct {
	parameter       Parameter
	value           byte
	includeChecksum bool
}

// NewCALCommand creates a parameter-set command. Some interface firmware
// rejects the checksum on particular parameters; pass includeChecksum=false
// to send the short form.
func NewCALCommand(parameter Parameter, value byte, includeChecksum bool) CALCommand {
	return CALCommand{parameter: parameter, value: value, includeChecksum: includeChecksum}
}

// Parameter returns the parameter number
func (c CALCommand) Parameter() Parameter {
	return c.parameter
}

// Value returns the parameter value
func (c CALCommand) Value() byte {
	return c.value
}

// IncludesChecksum reports whether the wire form carries the checksum byte
func (c CALCommand) IncludesChecksum() bool {
	return c.includeChecksum
}

// Bytes returns [0xA3, parameter, 0x00, value, checksum]
func (c CALCommand) Bytes() []byte {
	out := []byte{calPrefix, byte(c.parameter), 0x00, c.value, 0}
	out[4] = Checksum(out[:4])
	return out
}

// Wire returns the direct CAL form: '@', the hex bytes and a carriage return
func (c CALCommand) Wire() []byte {
	raw := c.Bytes()
	if !c.includeChecksum {
		raw = raw[:4]
	}
	out := make([]byte, 0, 2*len(raw)+2)
	out = append(out, DirectCALChar)
	out = appendHex(out, raw)
	return append(out, PrimaryEndChar)
}

// String returns a human-readable representation of the command
func (c CALCommand) String() string {
	return fmt.Sprintf("CAL %s=0x%02X", c.parameter, c.value)
}

// ResetCommand puts the serial interface back into basic mode
type ResetCommand struct{}

// Wire returns the single mode-reset character
func (ResetCommand) Wire() []byte {
	return []byte{ModeResetChar}
}

// String returns "RESET"
func (ResetCommand) String() string {
	return "RESET"
}

// ParseCALResponse extracts the parameter and value from decoded CAL bytes
func ParseCALResponse(frame []byte) (Parameter, byte, bool) {
	if len(frame) < 4 || frame[0] != calPrefix || frame[2] != 0x00 {
		return 0, 0, false
	}
	return Parameter(frame[1]), frame[3], true
}
