// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"fmt"
	"time"
)

// LightingCommandID identifies a short form lighting sub-command
type LightingCommandID byte

// Lighting sub-commands
const (
	LightingOff           LightingCommandID = 0x01
	LightingOn            LightingCommandID = 0x79
	LightingTerminateRamp LightingCommandID = 0x09

	LightingRampInstant LightingCommandID = 0x02
	LightingRamp4s      LightingCommandID = 0x0A
	LightingRamp8s      LightingCommandID = 0x12
	LightingRamp12s     LightingCommandID = 0x1A
	LightingRamp20s     LightingCommandID = 0x22
	LightingRamp30s     LightingCommandID = 0x2A
	LightingRamp40s     LightingCommandID = 0x32
	LightingRamp1m      LightingCommandID = 0x3A
	LightingRamp1m30s   LightingCommandID = 0x42
	LightingRamp2m      LightingCommandID = 0x4A
	LightingRamp3m      LightingCommandID = 0x52
	LightingRamp5m      LightingCommandID = 0x5A
	LightingRamp7m      LightingCommandID = 0x62
	LightingRamp10m     LightingCommandID = 0x6A
	LightingRamp15m     LightingCommandID = 0x72
	LightingRamp17m     LightingCommandID = 0x7A

	LightingUnknown LightingCommandID = 0xFF
)

// rampDurations lists every ramp command, fastest first
var rampDurations = [...]struct {
	id       LightingCommandID
	duration time.Duration
}{
	{LightingRampInstant, 0},
	{LightingRamp4s, 4 * time.Second},
	{LightingRamp8s, 8 * time.Second},
	{LightingRamp12s, 12 * time.Second},
	{LightingRamp20s, 20 * time.Second},
	{LightingRamp30s, 30 * time.Second},
	{LightingRamp40s, 40 * time.Second},
	{LightingRamp1m, time.Minute},
	{LightingRamp1m30s, 90 * time.Second},
	{LightingRamp2m, 2 * time.Minute},
	{LightingRamp3m, 3 * time.Minute},
	{LightingRamp5m, 5 * time.Minute},
	{LightingRamp7m, 7 * time.Minute},
	{LightingRamp10m, 10 * time.Minute},
	{LightingRamp15m, 15 * time.Minute},
	{LightingRamp17m, 17 * time.Minute},
}

// ParseLightingCommandID maps a wire byte to its command id, returning
// LightingUnknown for bytes outside the closed set
func ParseLightingCommandID(b byte) LightingCommandID {
	id := LightingCommandID(b)
	switch id {
	case LightingOff, LightingOn, LightingTerminateRamp:
		return id
	}
	if id.IsRamp() {
		return id
	}
	return LightingUnknown
}

// IsRamp reports whether id is one of the ramp-to-level commands
func (id LightingCommandID) IsRamp() bool {
	for _, r := range rampDurations {
		if r.id == id {
			return true
		}
	}
	return false
}

// RampDuration returns the ramp time for a ramp command
func (id LightingCommandID) RampDuration() (time.Duration, bool) {
	for _, r := range rampDurations {
		if r.id == id {
			return r.duration, true
		}
	}
	return 0, false
}

// RampForDuration returns the fastest ramp command that takes at least d,
// or the slowest ramp when d exceeds every rate
func RampForDuration(d time.Duration) LightingCommandID {
	for _, r := range rampDurations {
		if r.duration >= d {
			return r.id
		}
	}
	return rampDurations[len(rampDurations)-1].id
}

// paramCount returns the number of bytes following the id, or -1 for unknown ids
func (id LightingCommandID) paramCount() int {
	switch {
	case id == LightingOff, id == LightingOn, id == LightingTerminateRamp:
		return 1
	case id.IsRamp():
		return 2
	default:
		return -1
	}
}

// String returns the command name
func (id LightingCommandID) String() string {
	switch id {
	case LightingOff:
		return "OFF"
	case LightingOn:
		return "ON"
	case LightingTerminateRamp:
		return "TERMINATE_RAMP"
	case LightingUnknown:
		return "UNKNOWN"
	}
	if d, ok := id.RampDuration(); ok {
		return fmt.Sprintf("RAMP_%s", d)
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(id))
}

// LightingCommand is one lighting sub-command. Level is only carried on the
// wire for ramp commands.
type LightingCommand struct {
	ID    LightingCommandID
	Group byte
	Level byte
}

// TargetLevel returns the level the group ends up at after the command
func (c LightingCommand) TargetLevel() byte {
	switch {
	case c.ID == LightingOn:
		return 0xFF
	case c.ID.IsRamp():
		return c.Level
	default:
		return 0
	}
}

// String returns a human-readable representation of the command
func (c LightingCommand) String() string {
	if c.ID.IsRamp() {
		return fmt.Sprintf("%s group=0x%02X level=0x%02X", c.ID, c.Group, c.Level)
	}
	return fmt.Sprintf("%s group=0x%02X", c.ID, c.Group)
}

func (c LightingCommand) appendTo(dst []byte) []byte {
	dst = append(dst, byte(c.ID), c.Group)
	if c.ID.IsRamp() {
		dst = append(dst, c.Level)
	}
	return dst
}

// NewLightingCommand creates a lighting SAL command for the given application
func NewLightingCommand(header Header, application byte, commands ...LightingCommand) (*SALCommand, error) {
	for i, c := range commands {
		if ParseLightingCommandID(byte(c.ID)) == LightingUnknown {
			return nil, fmt.Errorf("lighting command %d: id 0x%02X: %w", i, byte(c.ID), ErrUnknownCommand)
		}
	}
	return &SALCommand{
		domain:      DomainLighting,
		header:      header,
		application: application,
		lighting:    append([]LightingCommand(nil), commands...),
	}, nil
}

// NewLightingOn creates an ON command for a single group
func NewLightingOn(application, group byte) *SALCommand {
	cmd, _ := NewLightingCommand(HeaderPM, application, LightingCommand{ID: LightingOn, Group: group})
	return cmd
}

// NewLightingOff creates an OFF command for a single group
func NewLightingOff(application, group byte) *SALCommand {
	cmd, _ := NewLightingCommand(HeaderPM, application, LightingCommand{ID: LightingOff, Group: group})
	return cmd
}

// NewLightingRamp creates a ramp command for a single group, picking the
// ramp rate closest to d
func NewLightingRamp(application, group, level byte, d time.Duration) *SALCommand {
	cmd, _ := NewLightingCommand(HeaderPM, application, LightingCommand{ID: RampForDuration(d), Group: group, Level: level})
	return cmd
}

// decodeLighting decodes the sub-command area of a lighting frame
func decodeLighting(payload []byte) ([]LightingCommand, bool) {
	var out []LightingCommand
	ok := walkSubCommands(payload,
		func(b byte) int { return ParseLightingCommandID(b).paramCount() },
		func(id byte, params []byte) {
			c := LightingCommand{ID: LightingCommandID(id), Group: params[0]}
			if len(params) > 1 {
				c.Level = params[1]
			}
			out = append(out, c)
		})
	if !ok {
		return nil, false
	}
	return out, true
}
