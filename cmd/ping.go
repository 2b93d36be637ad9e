// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/transport"
	"github.com/spf13/cobra"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the PC interface by sending a mode reset and waiting for its echo",
	Long: `Send '~' mode reset characters to the PC interface and wait for the echo.

A PC interface in basic mode echoes every character, so the reset comes
straight back. This verifies:
  - The serial port, TCP gateway or WebSocket bridge is up
  - HTTP Basic authentication works (WebSocket)
  - Characters flow in both directions

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 2, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("cbusstat - Interface Ping Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		_ = conn.Flush()
		if _, err := conn.Send([]byte{cbus.ModeResetChar}); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		rtt, err := awaitEcho(conn, cbus.ModeResetChar, time.Duration(pingTimeout)*time.Second)
		switch {
		case err != nil:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount++
		case rtt < 0:
			fmt.Printf("TIMEOUT (no echo in %ds)\n", pingTimeout)
			failCount++
		default:
			fmt.Printf("echo from interface, rtt=%v\n", rtt.Round(time.Millisecond))
			successCount++
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d echoes received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// awaitEcho polls ch until c is received. It returns a negative duration
// when timeout passes first.
func awaitEcho(ch transport.Channel, c byte, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	buf := make([]byte, 128)
	for time.Since(start) < timeout {
		n, err := ch.Receive(buf)
		if err != nil {
			return 0, err
		}
		if bytes.IndexByte(buf[:n], c) >= 0 {
			return time.Since(start), nil
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	return -1, nil
}
