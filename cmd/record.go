// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/capture"
	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/transport"
	"github.com/spf13/cobra"
)

var (
	recordLogon bool
	recordQuiet bool
)

var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Record link traffic to a capture file",
	Long: `Record every chunk sent and received on the connection to a CBOR capture
file, printing decoded frames while recording. The capture can be played back
with the replay command.

With --logon the setup sequence is recorded too, so the capture shows how the
interface answered it.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().BoolVar(&recordLogon, "logon", true, "Configure the interface before recording")
	recordCmd.Flags().BoolVarP(&recordQuiet, "quiet", "q", false, "Do not print frames while recording")
}

func runRecord(cmd *cobra.Command, args []string) error {
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	w := capture.NewWriter(f)
	tap := transport.NewTap(conn, w)
	defer tap.Close()

	ctx, cancel := signalContext()
	defer cancel()

	m, err := cfg.AddressMap()
	if err != nil {
		return err
	}
	if recordLogon {
		if m, err = LogonOnce(ctx, tap); err != nil {
			return err
		}
	}

	fmt.Printf("cbusstat - Recording to %s\n", args[0])
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	short := shortForm()
	err = readFrames(ctx, tap, cbus.DefaultBufferSize, func(st *cbus.State) {
		if !recordQuiet {
			fmt.Println(cbus.FormatFrame(time.Now(), st, m, short))
		}
	})
	fmt.Printf("\n%d records written\n", w.Count())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
