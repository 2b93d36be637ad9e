// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/cbusstat/internal/config"
	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/session"
	"github.com/Thermoquad/cbusstat/pkg/transport"
	"golang.org/x/term"
)

// PasswordEnvVar holds the WebSocket password
const PasswordEnvVar = "CBUSSTAT_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// NewChannel builds the transport selected by the connection settings.
// The channel is not opened.
func NewChannel(c config.ConnectionConfig) (transport.Channel, string, error) {
	switch {
	case c.URL != "":
		password := ""
		if c.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		return transport.NewWebSocketChannel(c.URL, c.Username, password, c.NoSSLVerify),
			fmt.Sprintf("WebSocket: %s", c.URL), nil

	case c.TCP != "":
		ch := transport.NewTCPChannel(c.TCP)
		return ch, fmt.Sprintf("TCP: %s", ch), nil

	case c.Port != "":
		baud := c.Baud
		if baud == 0 {
			baud = transport.DefaultBaudRate
		}
		return transport.NewSerialChannel(c.Port, baud),
			fmt.Sprintf("Serial: %s @ %d baud", c.Port, baud), nil
	}

	return nil, "", fmt.Errorf("one of --port, --tcp or --url must be specified")
}

// OpenConnection builds and opens the configured channel
func OpenConnection() (transport.Channel, string, error) {
	ch, info, err := NewChannel(cfg.Connection)
	if err != nil {
		return nil, "", err
	}
	if err := ch.Open(); err != nil {
		return nil, "", err
	}
	return ch, info, nil
}

// NewSession builds a session over ch from the configuration
func NewSession(ch transport.Channel) (*session.Session, *cbus.AddressMap, error) {
	m, err := cfg.AddressMap()
	if err != nil {
		return nil, nil, err
	}
	presets, err := cfg.SessionPresets()
	if err != nil {
		return nil, nil, err
	}
	s, err := session.New(ch, m, presets, cfg.SessionOptions())
	if err != nil {
		return nil, nil, err
	}
	return s, m, nil
}

// LogonOnce runs the interface setup on an already open channel
func LogonOnce(ctx context.Context, ch transport.Channel) (*cbus.AddressMap, error) {
	s, m, err := NewSession(ch)
	if err != nil {
		return nil, err
	}
	if err := s.Logon(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// shortForm reports whether monitored frames use the short form
func shortForm() bool {
	return !cfg.SessionOptions().SmartMode
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// waitConnected blocks until s completes its logon or timeout passes
func waitConnected(ctx context.Context, s *session.Session, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for !s.Connected() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("timed out waiting for logon")
		case <-tick.C:
		}
	}
	return nil
}
