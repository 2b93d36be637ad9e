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
	"github.com/Thermoquad/cbusstat/pkg/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runStatsInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a headless session and print preset events",
	Long: `Log on to the PC interface and track the configured presets, printing
one line per state change. The session keeps the link alive and reconnects
after a failure until interrupted.

Use --log-level info (or CBUSSTAT_LOG_LEVEL) to see connection events.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runStatsInterval, "stats-interval", 0, "Print statistics at this interval, 0 disables")
}

// runningSession is a session whose Run loop executes in the background
type runningSession struct {
	*session.Session
	connInfo string
	done     chan error
}

// startSession builds the configured session and starts its Run loop
func startSession(ctx context.Context) (*runningSession, error) {
	ch, connInfo, err := NewChannel(cfg.Connection)
	if err != nil {
		return nil, err
	}
	s, _, err := NewSession(ch)
	if err != nil {
		return nil, err
	}

	rs := &runningSession{Session: s, connInfo: connInfo, done: make(chan error, 1)}
	go func() {
		rs.done <- s.Run(ctx)
	}()
	return rs, nil
}

// wait blocks until the Run loop returns, treating cancellation as success
func (rs *runningSession) wait() error {
	err := <-rs.done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rs, err := startSession(ctx)
	if err != nil {
		return err
	}
	events, unsubscribe := rs.Subscribe(64)
	defer unsubscribe()

	fmt.Printf("cbusstat - Session\n")
	fmt.Printf("Connection: %s\n", rs.connInfo)
	fmt.Printf("Presets: %d\n", len(rs.Presets()))
	fmt.Printf("Press Ctrl+C to exit\n\n")

	var statsTick <-chan time.Time
	if runStatsInterval > 0 {
		t := time.NewTicker(runStatsInterval)
		defer t.Stop()
		statsTick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return rs.wait()
		case ev := <-events:
			fmt.Println(formatEvent(ev))
		case <-statsTick:
			stats := rs.Statistics()
			fmt.Print(stats.String())
			logging.Debug("Statistics", zap.Uint64("frames", stats.TotalFrames), zap.Bool("connected", rs.Connected()))
		}
	}
}

// formatEvent formats a preset event as one line
func formatEvent(ev session.Event) string {
	state := "OFF"
	if ev.Active {
		state = "ON " + cbus.FormatLevel(ev.Level)
	}
	return fmt.Sprintf("[%s] %s %s", ev.Time.Format("15:04:05.000"), ev.Preset, state)
}
