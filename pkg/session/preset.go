// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"fmt"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
)

// Preset names a lighting group or trigger action
type Preset struct {
	Name        string
	Domain      cbus.Domain
	Application byte
	Group       byte
	Action      byte // Trigger presets only
}

// String returns a short description of the preset
func (p Preset) String() string {
	if p.Domain == cbus.DomainTrigger {
		return fmt.Sprintf("%s (%s app=0x%02X group=0x%02X action=0x%02X)", p.Name, p.Domain, p.Application, p.Group, p.Action)
	}
	return fmt.Sprintf("%s (%s app=0x%02X group=0x%02X)", p.Name, p.Domain, p.Application, p.Group)
}

// PresetStatus is the last known state of a preset
type PresetStatus struct {
	Preset
	Known   bool // A command for the preset has been seen since startup
	Active  bool
	Level   byte
	Updated time.Time
}

// Event reports a preset state change
type Event struct {
	Time   time.Time
	Preset string
	Active bool
	Level  byte
}

// presetCommand builds the command that drives p to the requested state
func presetCommand(p Preset, active bool) (*cbus.SALCommand, error) {
	switch p.Domain {
	case cbus.DomainLighting:
		if active {
			return cbus.NewLightingOn(p.Application, p.Group), nil
		}
		return cbus.NewLightingOff(p.Application, p.Group), nil
	case cbus.DomainTrigger:
		if !active {
			return nil, fmt.Errorf("preset %q: %w", p.Name, ErrUnsupported)
		}
		return cbus.NewTriggerEvent(p.Application, p.Group, p.Action), nil
	default:
		return nil, fmt.Errorf("preset %q: domain %s: %w", p.Name, p.Domain, ErrUnsupported)
	}
}

// matchLighting reports whether a lighting sub-command addresses p
func (p Preset) matchLighting(app byte, c cbus.LightingCommand) bool {
	return p.Domain == cbus.DomainLighting && p.Application == app && p.Group == c.Group
}

// matchTrigger reports whether a trigger sub-command fires p
func (p Preset) matchTrigger(app byte, c cbus.TriggerCommand) bool {
	if p.Domain != cbus.DomainTrigger || p.Application != app || p.Group != c.Group {
		return false
	}
	return p.Action == cbus.TriggerActionAny || p.Action == c.Action
}
