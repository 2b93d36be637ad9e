// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/spf13/cobra"
)

var (
	sendApp     string
	sendHeader  string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <command> <group> [args...] | send preset <name> <on|off>",
	Short: "Send one command and wait for the acknowledgement",
	Long: `Log on to the PC interface, send one SAL command with a confirmation
character and wait for the interface to acknowledge it.

` + commandUsage + `

Configured presets can be switched by name with "send preset <name> on|off".

Examples:
  cbusstat send on 0x22 --port /dev/ttyUSB0
  cbusstat send ramp 0x22 128 8s --tcp 192.168.1.50
  cbusstat send preset kitchen off

Exit status is non-zero when the command is rejected or not acknowledged.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendApp, "app", "", "Application address (default 0x38 for lighting, 0xCA for trigger)")
	sendCmd.Flags().StringVar(&sendHeader, "header", "pm", "SAL header: pm, ppm or pp")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "Time allowed for logon and acknowledgement")
}

func runSend(cmd *cobra.Command, args []string) error {
	var submit func(rs *runningSession) error
	describe := ""

	if args[0] == "preset" {
		if len(args) != 3 || (args[2] != "on" && args[2] != "off") {
			return fmt.Errorf("usage: send preset <name> <on|off>")
		}
		name, active := args[1], args[2] == "on"
		describe = fmt.Sprintf("preset %s %s", name, args[2])
		submit = func(rs *runningSession) error { return rs.SetPreset(name, active) }
	} else {
		c, err := commandFromFlags(args, sendHeader, sendApp)
		if err != nil {
			return err
		}
		describe = c.String()
		submit = func(rs *runningSession) error { return rs.Send(c) }
	}

	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, sendTimeout)
	defer cancel()

	rs, err := startSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cancel()
		_ = rs.wait()
	}()

	fmt.Printf("Connection: %s\n", rs.connInfo)
	if err := waitConnected(ctx, rs.Session, sendTimeout); err != nil {
		return fmt.Errorf("logon: %w", err)
	}

	before := rs.Statistics()
	if err := submit(rs); err != nil {
		return err
	}
	fmt.Printf("Sent: %s\n", describe)

	result, err := awaitConfirmation(ctx, rs, before)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no acknowledgement within %s", sendTimeout)
		}
		return err
	}
	if result != cbus.MessageAck {
		return fmt.Errorf("command rejected by the interface (%s)", result)
	}
	fmt.Printf("Acknowledged\n")
	return nil
}

// awaitConfirmation waits until the session counts a new ACK or NAK
func awaitConfirmation(ctx context.Context, rs *runningSession, before cbus.Statistics) (cbus.MessageType, error) {
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return cbus.MessageNone, ctx.Err()
		case <-tick.C:
			now := rs.Statistics()
			switch {
			case now.Acks > before.Acks:
				return cbus.MessageAck, nil
			case now.Naks > before.Naks:
				return cbus.MessageNak, nil
			}
		}
	}
}
