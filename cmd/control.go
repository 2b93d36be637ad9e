// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var controlRamp time.Duration

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for switching lighting groups and triggers",
	Long: `Control configured presets via an interactive terminal UI.

The session logs on to the PC interface, keeps the link alive and reconnects
after a failure. Preset state follows both acknowledged commands and the
monitored traffic of other units on the network.

Keys:
  up/down, j/k  select a preset
  o / enter     switch on or fire the selected preset
  f             switch off
  tab           edit the ramp level (0-255), enter sends it
  q             quit

Supports serial, TCP and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().DurationVar(&controlRamp, "ramp", 4*time.Second, "Ramp duration used for level changes")
}

func runControl(cmd *cobra.Command, args []string) error {
	ch, connInfo, err := NewChannel(cfg.Connection)
	if err != nil {
		return err
	}
	s, _, err := NewSession(ch)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	events, unsubscribe := s.Subscribe(64)
	defer unsubscribe()

	m := initialControlModel(s, connInfo, controlRamp)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()
	go forwardEvents(ctx, p, events)
	go watchConnection(ctx, p, s)

	_, err = p.Run()
	cancel()
	if rerr := <-runErr; rerr != nil && !errors.Is(rerr, context.Canceled) {
		logging.Warn("Session stopped", zap.Error(rerr))
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// forwardEvents delivers preset events to the TUI
func forwardEvents(ctx context.Context, p *tea.Program, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			p.Send(presetEventMsg(ev))
		}
	}
}

// watchConnection reports logon and link loss transitions to the TUI
func watchConnection(ctx context.Context, p *tea.Program, s *session.Session) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	connected := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if now := s.Connected(); now != connected {
				connected = now
				p.Send(connectionMsg{connected: now})
			}
		}
	}
}
