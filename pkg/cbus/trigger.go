// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "fmt"

// TriggerCommandID identifies a short form trigger control sub-command
type TriggerCommandID byte

// Trigger sub-commands
const (
	TriggerMin     TriggerCommandID = 0x01
	TriggerMax     TriggerCommandID = 0x79
	TriggerEvent   TriggerCommandID = 0x02
	TriggerKill    TriggerCommandID = 0x09
	TriggerUnknown TriggerCommandID = 0xFF
)

// TriggerActionAny is the default action selector for trigger presets. A
// preset with this action fires on every action of its group.
const TriggerActionAny = 0xFF

// ParseTriggerCommandID maps a wire byte to its command id, returning
// TriggerUnknown for bytes outside the closed set
func ParseTriggerCommandID(b byte) TriggerCommandID {
	switch id := TriggerCommandID(b); id {
	case TriggerMin, TriggerMax, TriggerEvent, TriggerKill:
		return id
	}
	return TriggerUnknown
}

func (id TriggerCommandID) paramCount() int {
	switch id {
	case TriggerMin, TriggerMax, TriggerKill:
		return 1
	case TriggerEvent:
		return 2
	default:
		return -1
	}
}

// String returns the command name
func (id TriggerCommandID) String() string {
	switch id {
	case TriggerMin:
		return "MIN"
	case TriggerMax:
		return "MAX"
	case TriggerEvent:
		return "EVENT"
	case TriggerKill:
		return "KILL"
	case TriggerUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(id))
	}
}

// TriggerCommand is one trigger control sub-command. Action is only carried
// on the wire for events.
type TriggerCommand struct {
	ID     TriggerCommandID
	Group  byte
	Action byte
}

// String returns a human-readable representation of the command
func (c TriggerCommand) String() string {
	if c.ID == TriggerEvent {
		return fmt.Sprintf("%s group=0x%02X action=0x%02X", c.ID, c.Group, c.Action)
	}
	return fmt.Sprintf("%s group=0x%02X", c.ID, c.Group)
}

func (c TriggerCommand) appendTo(dst []byte) []byte {
	dst = append(dst, byte(c.ID), c.Group)
	if c.ID == TriggerEvent {
		dst = append(dst, c.Action)
	}
	return dst
}

// NewTriggerCommand creates a trigger control SAL command
func NewTriggerCommand(header Header, application byte, commands ...TriggerCommand) (*SALCommand, error) {
	for i, c := range commands {
		if ParseTriggerCommandID(byte(c.ID)) == TriggerUnknown {
			return nil, fmt.Errorf("trigger command %d: id 0x%02X: %w", i, byte(c.ID), ErrUnknownCommand)
		}
	}
	return &SALCommand{
		domain:      DomainTrigger,
		header:      header,
		application: application,
		trigger:     append([]TriggerCommand(nil), commands...),
	}, nil
}

// NewTriggerEvent creates an EVENT command for a single trigger group
func NewTriggerEvent(application, group, action byte) *SALCommand {
	cmd, _ := NewTriggerCommand(HeaderPM, application, TriggerCommand{ID: TriggerEvent, Group: group, Action: action})
	return cmd
}

func decodeTrigger(payload []byte) ([]TriggerCommand, bool) {
	var out []TriggerCommand
	ok := walkSubCommands(payload,
		func(b byte) int { return ParseTriggerCommandID(b).paramCount() },
		func(id byte, params []byte) {
			c := TriggerCommand{ID: TriggerCommandID(id), Group: params[0]}
			if len(params) > 1 {
				c.Action = params[1]
			}
			out = append(out, c)
		})
	if !ok {
		return nil, false
	}
	return out, true
}
