// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the cbusstat YAML configuration file
package config

import (
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/session"
	"github.com/Thermoquad/cbusstat/pkg/transport"
)

type Config struct {
	LogLevel     string              `yaml:"log_level"`
	Connection   ConnectionConfig    `yaml:"connection"`
	Session      SessionConfig       `yaml:"session"`
	API          APIConfig           `yaml:"api"`
	Applications []ApplicationConfig `yaml:"applications"`
	Presets      []PresetConfig      `yaml:"presets"`
}

// ---- CONNECTION ----

// At most one of Port, TCP and URL is set
type ConnectionConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	TCP         string `yaml:"tcp"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// ---- SESSION ----

type SessionConfig struct {
	LogonAttempts     int           `yaml:"logon_attempts"`
	ResponseDelay     time.Duration `yaml:"response_delay"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	AckTimeout        time.Duration `yaml:"ack_timeout"`
	QueueSize         int           `yaml:"queue_size"`
	BufferSize        int           `yaml:"buffer_size"`
	ConfirmationChars string        `yaml:"confirmation_chars"`
	SmartMode         *bool         `yaml:"smart_mode"`
}

// ---- HTTP API ----

type APIConfig struct {
	Listen string `yaml:"listen"`
}

// ---- APPLICATIONS ----

type ApplicationConfig struct {
	Domain  string `yaml:"domain"`
	Address uint8  `yaml:"address"`
}

// ---- PRESETS ----

// Application defaults to the default lighting application and Action to
// any action (0xFF). Domain is taken from the application binding when empty.
type PresetConfig struct {
	Name        string `yaml:"name"`
	Domain      string `yaml:"domain"`
	Application *uint8 `yaml:"application"`
	Group       uint8  `yaml:"group"`
	Action      *uint8 `yaml:"action"`
}

// DefaultListen is the HTTP API address used when none is configured
const DefaultListen = "127.0.0.1:8080"

// Default returns the configuration used when no file exists
func Default() *Config {
	opts := session.DefaultOptions()
	smart := opts.SmartMode
	return &Config{
		Connection: ConnectionConfig{
			Baud: transport.DefaultBaudRate,
		},
		Session: SessionConfig{
			LogonAttempts:     opts.LogonAttempts,
			ResponseDelay:     opts.ResponseDelay,
			ReconnectDelay:    opts.ReconnectDelay,
			KeepAliveInterval: opts.KeepAliveInterval,
			AckTimeout:        opts.AckTimeout,
			QueueSize:         opts.QueueSize,
			BufferSize:        opts.BufferSize,
			ConfirmationChars: opts.ConfirmationChars,
			SmartMode:         &smart,
		},
		API: APIConfig{
			Listen: DefaultListen,
		},
		Applications: []ApplicationConfig{
			{Domain: "lighting", Address: cbus.AppLightingDefault},
			{Domain: "trigger", Address: cbus.AppTrigger},
		},
	}
}
