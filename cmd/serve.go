// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a session behind the HTTP control API",
	Long: `Log on to the PC interface and expose the configured presets over HTTP.

Endpoints:
  GET  /presets                 State of every preset
  GET  /presets/{name}          State of one preset
  PUT  /presets/{name}          {"active": true} or {"level": 128, "ramp": "4s"}
  POST /presets/{name}/on|off   Switch a preset
  GET  /stats                   Frame counters and rates
  GET  /status                  Connection state
  GET  /events                  WebSocket stream of preset changes

Commands are accepted with 202 once queued. State changes follow the
interface acknowledgement or the monitored traffic.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides api.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	listen := cfg.API.Listen
	if serveListen != "" {
		listen = serveListen
	}

	rs, err := startSession(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("cbusstat - HTTP API\n")
	fmt.Printf("Connection: %s\n", rs.connInfo)
	fmt.Printf("Listening: http://%s\n", listen)

	serveErr := api.New(rs.Session).ListenAndServe(ctx, listen)
	cancel()
	if err := rs.wait(); err != nil {
		logging.Warn("Session stopped", zap.Error(err))
	}
	return serveErr
}
