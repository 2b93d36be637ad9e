// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/transport"
	"github.com/spf13/cobra"
)

var discoverTimeout int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the groups active on the network",
	Long: `Log on to the PC interface and collect the lighting groups and trigger
actions seen in monitored traffic until the timeout passes.

Groups only show up when some unit on the network sends a command for them,
so operate a few switches while discovery runs. The output can be used to
write the presets section of the configuration file.

Examples:
  cbusstat discover --port /dev/ttyUSB0 --timeout 60
  cbusstat discover --tcp 192.168.1.50:10001

Exit codes:
  0 - Discovery successful (at least one group found)
  1 - No groups seen before the timeout
  2 - Connection error`,
	RunE: runDiscover,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(portsCmd)
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 30, "Timeout in seconds for discovery")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("cbusstat - Group Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", discoverTimeout)

	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, time.Duration(discoverTimeout)*time.Second)
	defer cancel()

	m, err := LogonOnce(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logon error: %v\n", err)
		os.Exit(2)
	}

	survey := newGroupSurvey()
	short := shortForm()
	err = readFrames(ctx, conn, cbus.DefaultBufferSize, func(st *cbus.State) {
		if !st.ChecksumValid() {
			return
		}
		c, ok := m.TryParseCommand(st.Payload(), st.MessageType() == cbus.MessageMonitoredSALReceived, short)
		if !ok {
			return
		}
		for _, row := range survey.add(c, time.Now()) {
			fmt.Printf("Group found: %s\n", row)
		}
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		fmt.Printf("READ FAILED: %v\n", err)
		os.Exit(2)
	}

	rows := survey.rows()
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Groups found: %d\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %s\n", r)
	}

	if len(rows) == 0 {
		fmt.Printf("No groups seen. Operate a switch on the network while discovery runs.\n")
		os.Exit(1)
	}
	return nil
}

// surveyRow is one group or trigger action seen on the network
type surveyRow struct {
	domain      cbus.Domain
	application byte
	group       byte
	action      byte // trigger only
	last        string
	count       int
	seen        time.Time
}

func (r surveyRow) String() string {
	if r.domain == cbus.DomainTrigger {
		return fmt.Sprintf("%s app=0x%02X group=0x%02X action=0x%02X (%d, last %s)",
			r.domain, r.application, r.group, r.action, r.count, r.last)
	}
	return fmt.Sprintf("%s app=0x%02X group=0x%02X (%d, last %s)",
		r.domain, r.application, r.group, r.count, r.last)
}

type surveyKey struct {
	application byte
	group       byte
	action      byte
}

// groupSurvey collects the groups addressed by decoded commands
type groupSurvey struct {
	rowsByKey map[surveyKey]*surveyRow
}

func newGroupSurvey() *groupSurvey {
	return &groupSurvey{rowsByKey: make(map[surveyKey]*surveyRow)}
}

// add records every sub-command of c and returns the rows seen for the first time
func (g *groupSurvey) add(c *cbus.SALCommand, now time.Time) []surveyRow {
	var added []surveyRow
	touch := func(k surveyKey, last string) {
		r, ok := g.rowsByKey[k]
		if !ok {
			r = &surveyRow{domain: c.Domain(), application: k.application, group: k.group, action: k.action}
			g.rowsByKey[k] = r
		}
		r.last = last
		r.count++
		r.seen = now
		if !ok {
			added = append(added, *r)
		}
	}

	switch c.Domain() {
	case cbus.DomainLighting:
		for _, l := range c.Lighting() {
			touch(surveyKey{application: c.Application(), group: l.Group}, l.String())
		}
	case cbus.DomainTrigger:
		for _, t := range c.Trigger() {
			touch(surveyKey{application: c.Application(), group: t.Group, action: t.Action}, t.String())
		}
	}
	return added
}

// rows returns the survey ordered by application, group and action
func (g *groupSurvey) rows() []surveyRow {
	out := make([]surveyRow, 0, len(g.rowsByKey))
	for _, r := range g.rowsByKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.application != b.application {
			return a.application < b.application
		}
		if a.group != b.group {
			return a.group < b.group
		}
		return a.action < b.action
	})
	return out
}
