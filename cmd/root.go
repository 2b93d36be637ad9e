// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/cbusstat/internal/config"
	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// TCP connection flags
	tcpAddress string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	logLevel   string

	// Resolved configuration, flags applied
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cbusstat",
	Short: "C-Bus Serial Interface Tool",
	Long: `cbusstat - A CLI tool for monitoring and controlling C-Bus networks through a
PC Interface (5500PC, 5500CN or a serial bridge).

Provides commands for raw frame logging, error detection, preset control,
traffic capture and an HTTP control API.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  TCP:       --tcp 192.168.1.50[:10001]
  WebSocket: --url ws://host/path [--username user]

Settings are read from the configuration file (--config, default
$XDG_CONFIG_HOME/cbusstat/config.yaml) and overridden by flags.

For WebSocket authentication, the password is read from the CBUSSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// TCP connection flags
	rootCmd.PersistentFlags().StringVar(&tcpAddress, "tcp", "", "Network interface address (host[:port])")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadSettings reads the configuration file and applies flag overrides
func loadSettings(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	conn := &loaded.Connection
	if flags.Changed("port") || flags.Changed("tcp") || flags.Changed("url") {
		conn.Port, conn.TCP, conn.URL = portName, tcpAddress, wsURL
	}
	if flags.Changed("baud") {
		conn.Baud = baudRate
	}
	if flags.Changed("username") {
		conn.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		conn.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := logging.Initialize(loaded.LogLevel); err != nil {
		return err
	}

	cfg = loaded
	return nil
}

// Execute runs the root command
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}
