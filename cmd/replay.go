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
	replayRealtime bool
	replayStats    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a capture file recorded with record",
	Long: `Play back the received side of a capture file through the frame parser
and print each frame, as raw_log would have shown it live.

The chunk boundaries of the original link are preserved, so the replay
reproduces parser behaviour that depends on how data was split.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Replay at the original pace")
	replayCmd.Flags().BoolVar(&replayStats, "stats", true, "Print statistics at the end")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	records, err := capture.ReadAll(f)
	f.Close()
	if err != nil {
		return err
	}

	m, err := cfg.AddressMap()
	if err != nil {
		return err
	}

	ch := transport.NewReplayChannel(records, replayRealtime)
	if err := ch.Open(); err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("cbusstat - Replay of %s (%d records)\n\n", args[0], len(records))

	stats := cbus.NewStatistics()
	short := shortForm()
	err = readFrames(ctx, ch, cbus.DefaultBufferSize, func(st *cbus.State) {
		mt := st.MessageType()
		stats.Update(mt, cbus.ValidateFrame(st.Payload(), mt, m, short))
		fmt.Println(cbus.FormatFrame(time.Now(), st, m, short))
	})
	if replayStats {
		fmt.Print(stats.String())
	}
	if errors.Is(err, transport.ErrConnectionClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
