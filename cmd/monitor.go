// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
	monitorLogon  bool
)

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"error_detection"},
	Short:   "Detect and analyze malformed frames and errors",
	Long: `Track frame errors, checksum failures and NAKs with statistics.

This command validates each frame and detects:
  - Checksum mismatches
  - Frames too short to carry a SAL command
  - Applications missing from the address map
  - Sub-commands that fail to decode
  - Negative acknowledgements from the interface

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().BoolVar(&monitorLogon, "logon", true, "Configure the interface before monitoring")
}

// frameMsg is one completed parser result, detached from the parser state
type frameMsg struct {
	time             time.Time
	messageType      cbus.MessageType
	payload          []byte
	formatted        string
	command          *cbus.SALCommand
	validationErrors []cbus.ValidationError
}

func newFrameMsg(st *cbus.State, m *cbus.AddressMap, short bool) frameMsg {
	now := time.Now()
	mt := st.MessageType()
	msg := frameMsg{
		time:             now,
		messageType:      mt,
		payload:          append([]byte(nil), st.Payload()...),
		formatted:        cbus.FormatFrame(now, st, m, short),
		validationErrors: cbus.ValidateFrame(st.Payload(), mt, m, short),
	}
	if mt.IsSAL() {
		msg.command, _ = m.TryParseCommand(msg.payload, mt == cbus.MessageMonitoredSALReceived, short)
	}
	return msg
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := signalContext()
	defer cancel()

	m, err := cfg.AddressMap()
	if err != nil {
		return err
	}
	if monitorLogon {
		if m, err = LogonOnce(ctx, conn); err != nil {
			return err
		}
	}

	frames := make(chan frameMsg, 64)
	readErr := make(chan error, 1)
	short := shortForm()
	go func() {
		readErr <- readFrames(ctx, conn, cfg.SessionOptions().BufferSize, func(st *cbus.State) {
			select {
			case frames <- newFrameMsg(st, m, short):
			case <-ctx.Done():
			}
		})
	}()

	if useTUI {
		return runTUIMode(ctx, cancel, connInfo, frames, readErr)
	}
	err = runTextMode(ctx, connInfo, frames, readErr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(msg frameMsg) {
	timestamp := msg.time.Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s %s\n", timestamp, msg.messageType, cbus.FormatHex(msg.payload))

	for i, err := range msg.validationErrors {
		switch err.Type {
		case cbus.AnomalyChecksumError:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case cbus.AnomalyUnboundApplication:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if app, ok := err.Details["application"].(byte); ok {
				fmt.Printf("    add {domain, address: 0x%02X} under applications to decode it\n", app)
			}

		case cbus.AnomalyNak:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(ctx context.Context, cancel context.CancelFunc, connInfo string, frames <-chan frameMsg, readErr <-chan error) error {
	p := tea.NewProgram(initialModel(connInfo, statsInterval, showAll))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-frames:
				p.Send(msg)
			case err := <-readErr:
				p.Send(readErrorMsg{err: err})
				return
			}
		}
	}()

	_, err := p.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(ctx context.Context, connInfo string, frames <-chan frameMsg, readErr <-chan error) error {
	fmt.Printf("cbusstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := cbus.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(stats.String())
			return ctx.Err()

		case err := <-readErr:
			fmt.Print(stats.String())
			return err

		case msg := <-frames:
			stats.Update(msg.messageType, msg.validationErrors)

			if len(msg.validationErrors) > 0 {
				printValidationErrors(msg)
			} else if showAll {
				fmt.Println(msg.formatted)
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
