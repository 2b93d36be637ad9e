// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/cbus"
)

// Validate checks configuration correctness.
// It performs declarative validation only and never mutates cfg.
func Validate(cfg *Config) error {
	if cfg.LogLevel != "" {
		if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	// ---- connection ----

	c := cfg.Connection
	set := 0
	for _, v := range []string{c.Port, c.TCP, c.URL} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("connection: only one of port, tcp and url may be set")
	}
	if c.Baud < 0 {
		return fmt.Errorf("connection: baud must be positive, got %d", c.Baud)
	}

	// ---- session ----

	s := cfg.Session
	if s.LogonAttempts < 0 || s.QueueSize < 0 || s.BufferSize < 0 {
		return fmt.Errorf("session: counts must not be negative")
	}
	for name, d := range map[string]int64{
		"response_delay":      int64(s.ResponseDelay),
		"reconnect_delay":     int64(s.ReconnectDelay),
		"keep_alive_interval": int64(s.KeepAliveInterval),
		"ack_timeout":         int64(s.AckTimeout),
	} {
		if d < 0 {
			return fmt.Errorf("session: %s must not be negative", name)
		}
	}
	for i := 0; i < len(s.ConfirmationChars); i++ {
		ch := s.ConfirmationChars[i]
		if ch < 'g' || ch > 'z' {
			return fmt.Errorf("session: confirmation character %q is outside g-z", ch)
		}
	}

	// ---- applications ----

	m, err := cfg.AddressMap()
	if err != nil {
		return err
	}

	// ---- presets ----

	names := make(map[string]struct{})
	for i, p := range cfg.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset %d: name is required", i)
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("preset %q: duplicate name", p.Name)
		}
		names[p.Name] = struct{}{}

		app := presetApplication(p)
		bound, ok := m.Lookup(app)
		if !ok {
			return fmt.Errorf("preset %q: application 0x%02X is not listed under applications", p.Name, app)
		}
		if p.Domain != "" {
			d, err := cbus.ParseDomain(p.Domain)
			if err != nil {
				return fmt.Errorf("preset %q: %w", p.Name, err)
			}
			if d != bound {
				return fmt.Errorf("preset %q: domain %s does not match application 0x%02X (%s)", p.Name, d, app, bound)
			}
		}
		if p.Action != nil && bound != cbus.DomainTrigger {
			return fmt.Errorf("preset %q: action is only valid for trigger presets", p.Name)
		}
	}

	return nil
}

func presetApplication(p PresetConfig) byte {
	if p.Application == nil {
		return cbus.AppLightingDefault
	}
	return *p.Application
}
