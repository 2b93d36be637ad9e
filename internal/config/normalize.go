// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"strings"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
)

// Normalize fills preset defaults. It must be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	m, err := cfg.AddressMap()
	if err != nil {
		return
	}

	for i := range cfg.Presets {
		p := &cfg.Presets[i]

		if p.Application == nil {
			app := uint8(cbus.AppLightingDefault)
			p.Application = &app
		}

		domain, _ := m.Lookup(*p.Application)
		p.Domain = strings.ToLower(domain.String())

		if domain == cbus.DomainTrigger && p.Action == nil {
			action := uint8(cbus.TriggerActionAny)
			p.Action = &action
		}
	}
}
