// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/spf13/cobra"
)

var (
	calSend       bool
	calChecksum   bool
	calWait       time.Duration
)

var calCmd = &cobra.Command{
	Use:   "cal <parameter> <value> | cal reset",
	Short: "Build or send a serial interface parameter command",
	Long: `Build a CAL parameter-set command for the PC interface and print its wire
form. With --send the command is written to the connection and the reply is
shown.

Parameters:
  app1, app2         Monitored application addresses (0xFF for all)
  options1           Interface Options 1 bits
  options1-powerup   Interface Options 1 applied at power up
  options3           Interface Options 3 bits
  baud               Baud selector (0xFF=9600, 0x01=4800, 0x02=2400)

Examples:
  cbusstat cal app1 0x38
  cbusstat cal options1 0x59 --send --port /dev/ttyUSB0
  cbusstat cal reset --send --tcp 192.168.1.50`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCAL,
}

func init() {
	rootCmd.AddCommand(calCmd)
	calCmd.Flags().BoolVar(&calSend, "send", false, "Send the command and print the reply")
	calCmd.Flags().BoolVar(&calChecksum, "checksum", false, "Append a checksum byte (for interfaces with SRCHK set)")
	calCmd.Flags().DurationVar(&calWait, "wait", 500*time.Millisecond, "Time to collect the reply")
}

// wireCommand is anything with a wire form, such as cbus.CALCommand and cbus.ResetCommand
type wireCommand interface {
	Wire() []byte
	String() string
}

// buildCAL turns positional arguments into a CAL or reset command
func buildCAL(args []string, checksum bool) (wireCommand, error) {
	b := cbus.NewCALBuilder()
	if strings.ToLower(args[0]) == "reset" {
		if len(args) != 1 {
			return nil, fmt.Errorf("reset takes no value")
		}
		return b.Reset(), nil
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("expected a parameter and a value")
	}
	value, err := parseByte(args[1])
	if err != nil {
		return nil, err
	}

	var c cbus.CALCommand
	switch strings.ToLower(args[0]) {
	case "app1":
		c = b.RegisterApplication1Monitor(value)
	case "app2":
		c = b.RegisterApplication2Monitor(value)
	case "options1":
		c = b.SetOptions1(cbus.Options1(value))
	case "options1-powerup":
		c = b.SetOptions1PowerUp(cbus.Options1(value))
	case "options3":
		c = b.SetOptions3(cbus.Options3(value))
	case "baud":
		return b.SetBaud(value), nil
	default:
		return nil, fmt.Errorf("unknown parameter %q", args[0])
	}
	if checksum {
		c = cbus.NewCALCommand(c.Parameter(), c.Value(), true)
	}
	return c, nil
}

func runCAL(cmd *cobra.Command, args []string) error {
	c, err := buildCAL(args, calChecksum)
	if err != nil {
		return err
	}

	fmt.Printf("Command: %s\n", c)
	fmt.Printf("Wire:    %s\n", cbus.FormatWire(c.Wire()))
	if !calSend {
		return nil
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Printf("Connection: %s\n", connInfo)

	_ = conn.Flush()
	if _, err := conn.Send(c.Wire()); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	var reply []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(calWait)
	for time.Now().Before(deadline) {
		n, err := conn.Receive(buf)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		reply = append(reply, buf[:n]...)
	}

	if len(reply) == 0 {
		fmt.Printf("Reply:   (none)\n")
		return nil
	}
	fmt.Printf("Reply:   %s\n", cbus.FormatWire(reply))
	for _, line := range describeCALReply(reply, c.Wire()) {
		fmt.Printf("         %s\n", line)
	}
	return nil
}

// describeCALReply decodes parameter reports found in a reply. The echo of
// the sent command is skipped.
func describeCALReply(reply, sent []byte) []string {
	var out []string
	echo := bytes.TrimRight(sent, "\r")
	for _, line := range bytes.FieldsFunc(reply, func(r rune) bool { return r == '\r' || r == '\n' }) {
		if bytes.Equal(line, echo) {
			out = append(out, "echo")
			continue
		}
		raw, err := hex.DecodeString(string(bytes.TrimLeft(line, "@\\")))
		if err != nil {
			continue
		}
		if p, v, ok := cbus.ParseCALResponse(raw); ok {
			out = append(out, fmt.Sprintf("%s=0x%02X", p, v))
		}
	}
	return out
}
