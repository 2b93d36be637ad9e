// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/session"
)

// AddressMap binds the configured applications
func (c *Config) AddressMap() (*cbus.AddressMap, error) {
	m := cbus.NewAddressMap()
	for _, a := range c.Applications {
		d, err := cbus.ParseDomain(a.Domain)
		if err != nil {
			return nil, fmt.Errorf("application 0x%02X: %w", a.Address, err)
		}
		if err := m.AddMapping(d, a.Address); err != nil {
			return nil, fmt.Errorf("application 0x%02X: %w", a.Address, err)
		}
	}
	return m, nil
}

// SessionPresets converts the normalized presets
func (c *Config) SessionPresets() ([]session.Preset, error) {
	out := make([]session.Preset, 0, len(c.Presets))
	for _, p := range c.Presets {
		d, err := cbus.ParseDomain(p.Domain)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		sp := session.Preset{
			Name:        p.Name,
			Domain:      d,
			Application: presetApplication(p),
			Group:       p.Group,
		}
		if p.Action != nil {
			sp.Action = *p.Action
		}
		out = append(out, sp)
	}
	return out, nil
}

// SessionOptions returns the session settings, defaults filling zero values
func (c *Config) SessionOptions() session.Options {
	s := c.Session
	opts := session.DefaultOptions()
	if s.LogonAttempts > 0 {
		opts.LogonAttempts = s.LogonAttempts
	}
	if s.ResponseDelay > 0 {
		opts.ResponseDelay = s.ResponseDelay
	}
	if s.ReconnectDelay > 0 {
		opts.ReconnectDelay = s.ReconnectDelay
	}
	if s.KeepAliveInterval > 0 {
		opts.KeepAliveInterval = s.KeepAliveInterval
	}
	if s.AckTimeout > 0 {
		opts.AckTimeout = s.AckTimeout
	}
	if s.QueueSize > 0 {
		opts.QueueSize = s.QueueSize
	}
	if s.BufferSize > 0 {
		opts.BufferSize = s.BufferSize
	}
	if s.ConfirmationChars != "" {
		opts.ConfirmationChars = s.ConfirmationChars
	}
	if s.SmartMode != nil {
		opts.SmartMode = *s.SmartMode
	}
	return opts
}
