// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rawLogLogon bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display C-Bus frames as they arrive.

Each completed frame is shown with timestamp, classification, checksum state
and the decoded lighting or trigger commands. Acknowledgements and NAKs are
shown with their confirmation character.

Without --logon the interface is left as it is, which suits a port that is
already configured or a passive tap on another controller's traffic.

Supports serial, TCP and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogLogon, "logon", false, "Configure the interface before logging")
}

func runRawLog(cmd *cobra.Command, args []string) error {
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
	if rawLogLogon {
		if m, err = LogonOnce(ctx, conn); err != nil {
			return err
		}
	}

	fmt.Printf("cbusstat - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	short := shortForm()
	err = readFrames(ctx, conn, cbus.DefaultBufferSize, func(st *cbus.State) {
		fmt.Println(cbus.FormatFrame(time.Now(), st, m, short))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readFrames polls ch and calls onFrame for every terminal parser result
// until ctx is done or the channel fails. The state is reset after each call.
func readFrames(ctx context.Context, ch transport.Channel, bufferSize int, onFrame func(st *cbus.State)) error {
	parser := cbus.NewParser(cbus.Config{BufferSize: bufferSize})
	st := parser.NewState()
	buf := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := ch.Receive(buf)
		if err != nil {
			if errors.Is(err, transport.ErrConnectionClosed) {
				logging.Info("Connection closed")
			}
			return err
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		logging.LogRawBytes("RX", buf[:n])

		cursor := 0
		for cursor < n {
			if parser.ProcessChunk(buf[:n], &cursor, st) {
				logging.Debug("Frame complete", zap.Stringer("state", st))
				onFrame(st)
				st.Reset()
			}
		}
	}
}
