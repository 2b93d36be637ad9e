// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
)

// commandUsage describes the positional arguments accepted by send and encode
const commandUsage = `Commands:
  on <group>                      Lighting ON
  off <group>                     Lighting OFF
  ramp <group> <level> [duration] Lighting ramp, duration defaults to 0 (instant)
  terminate <group>               Stop a running ramp
  trigger <group> <action>        Trigger EVENT

Numbers accept decimal or 0x prefixed hex.`

// parseByte parses a decimal or 0x prefixed byte value
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte value %q", s)
	}
	return byte(v), nil
}

// parseHeader parses a header name: pm, ppm or pp
func parseHeader(s string) (cbus.Header, error) {
	switch strings.ToLower(s) {
	case "pm", "":
		return cbus.HeaderPM, nil
	case "ppm":
		return cbus.HeaderPPM, nil
	case "pp":
		return cbus.HeaderPP, nil
	}
	return cbus.Header{}, fmt.Errorf("unknown header %q, want pm, ppm or pp", s)
}

// buildCommand turns positional arguments into a SAL command for app.
// A zero app selects the default for the command's domain.
func buildCommand(args []string, header cbus.Header, app byte) (*cbus.SALCommand, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected a command and a group\n\n%s", commandUsage)
	}
	group, err := parseByte(args[1])
	if err != nil {
		return nil, err
	}

	lighting := func(l cbus.LightingCommand) (*cbus.SALCommand, error) {
		if app == 0 {
			app = cbus.AppLightingDefault
		}
		return cbus.NewLightingCommand(header, app, l)
	}

	switch verb := strings.ToLower(args[0]); verb {
	case "on", "off", "terminate":
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes exactly one group", verb)
		}
		id := cbus.LightingOn
		switch verb {
		case "off":
			id = cbus.LightingOff
		case "terminate":
			id = cbus.LightingTerminateRamp
		}
		return lighting(cbus.LightingCommand{ID: id, Group: group})

	case "ramp":
		if len(args) < 3 || len(args) > 4 {
			return nil, fmt.Errorf("ramp takes a group, a level and an optional duration")
		}
		level, err := parseByte(args[2])
		if err != nil {
			return nil, err
		}
		var d time.Duration
		if len(args) == 4 {
			if d, err = time.ParseDuration(args[3]); err != nil {
				return nil, fmt.Errorf("invalid ramp duration %q: %w", args[3], err)
			}
		}
		return lighting(cbus.LightingCommand{ID: cbus.RampForDuration(d), Group: group, Level: level})

	case "trigger":
		if len(args) != 3 {
			return nil, fmt.Errorf("trigger takes a group and an action")
		}
		action, err := parseByte(args[2])
		if err != nil {
			return nil, err
		}
		if app == 0 {
			app = cbus.AppTrigger
		}
		return cbus.NewTriggerCommand(header, app, cbus.TriggerCommand{ID: cbus.TriggerEvent, Group: group, Action: action})
	}

	return nil, fmt.Errorf("unknown command %q\n\n%s", args[0], commandUsage)
}
