// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
	packetTestLogon   bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid C-Bus frame",
	Long: `Wait for a SAL frame with a valid checksum until timeout.

Partial frames, acknowledgements and frames failing the checksum are
ignored. With --logon the interface is configured first, so monitored
traffic from the network is relayed to the serial port.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for testing connectivity to a PC interface or a serial bridge.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	packetTestCmd.Flags().BoolVar(&packetTestLogon, "logon", true, "Configure the interface before waiting")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("cbusstat - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)

	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	m, err := cfg.AddressMap()
	if err != nil {
		return err
	}
	if packetTestLogon {
		if m, err = LogonOnce(ctx, conn); err != nil {
			fmt.Fprintf(os.Stderr, "Logon error: %v\n", err)
			os.Exit(2)
		}
	}
	fmt.Printf("Waiting for valid C-Bus frame...\n\n")

	var (
		found   bool
		skipped int
		report  string
	)
	short := shortForm()
	err = readFrames(ctx, conn, cbus.DefaultBufferSize, func(st *cbus.State) {
		if found {
			return
		}
		if !st.ChecksumValid() {
			skipped++
			return
		}
		found = true
		report = cbus.FormatFrame(time.Now(), st, m, short)
		cancel()
	})

	switch {
	case found:
		if skipped > 0 {
			fmt.Printf("(skipped %d frames before a valid one)\n", skipped)
		}
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Print(report)
		os.Exit(0)

	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)

	case errors.Is(err, context.Canceled):
		return nil

	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	return nil
}
