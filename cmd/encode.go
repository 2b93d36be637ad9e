// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/spf13/cobra"
)

var (
	encodeApp    string
	encodeHeader string
	encodeAck    string

	decodeMonitored bool
	decodeOutbound  bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <command> <group> [args...]",
	Short: "Print the wire form of a SAL command without connecting",
	Long: `Encode a lighting or trigger command and print the characters that
would be sent to the PC interface, along with the decoded bytes.

` + commandUsage + `

Examples:
  cbusstat encode on 0x22
  cbusstat encode ramp 0x22 128 4s --ack g
  cbusstat encode trigger 0x25 1 --header ppm`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a frame given as hex characters",
	Long: `Decode the hex characters of one frame, including the checksum byte,
using the configured application bindings.

Received frames are decoded with the local header by default. Use --monitored
for frames relayed from the network and --outbound for frames in the layout
produced by encode.

Examples:
  cbusstat decode 05CA0002250109
  cbusstat decode 056438007922C4 --monitored
  cbusstat decode 053800792228 --outbound`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	encodeCmd.Flags().StringVar(&encodeApp, "app", "", "Application address (default 0x38 for lighting, 0xCA for trigger)")
	encodeCmd.Flags().StringVar(&encodeHeader, "header", "pm", "SAL header: pm, ppm or pp")
	encodeCmd.Flags().StringVar(&encodeAck, "ack", "", "Confirmation character to request an acknowledgement")
	decodeCmd.Flags().BoolVar(&decodeMonitored, "monitored", false, "Frame was relayed from the network")
	decodeCmd.Flags().BoolVar(&decodeOutbound, "outbound", false, "Frame uses the outbound layout")
}

func runEncode(cmd *cobra.Command, args []string) error {
	c, err := commandFromFlags(args, encodeHeader, encodeApp)
	if err != nil {
		return err
	}
	if encodeAck != "" {
		if len(encodeAck) != 1 || !cbus.NewConfirmationSet("").Contains(encodeAck[0]) {
			return fmt.Errorf("confirmation character must be one of %s", cbus.DefaultConfirmationChars)
		}
		c.SetAckCharacter(encodeAck[0])
	}

	fmt.Printf("Command: %s\n", c)
	fmt.Printf("Bytes:   %s\n", cbus.FormatHex(c.Bytes()))
	fmt.Printf("Wire:    %s\n", cbus.FormatWire(c.Wire()))
	return nil
}

// commandFromFlags builds a command from positional arguments and the
// --header and --app flag values
func commandFromFlags(args []string, header, app string) (*cbus.SALCommand, error) {
	h, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	var a byte
	if app != "" {
		if a, err = parseByte(app); err != nil {
			return nil, err
		}
	}
	return buildCommand(args, h, a)
}

func runDecode(cmd *cobra.Command, args []string) error {
	frame, err := decodeHexFrame(args[0])
	if err != nil {
		return err
	}

	m, err := cfg.AddressMap()
	if err != nil {
		return err
	}

	fmt.Printf("Bytes:    %s\n", cbus.FormatHex(frame))
	if cbus.VerifyChecksum(frame) {
		fmt.Printf("Checksum: OK\n")
	} else {
		fmt.Printf("Checksum: INVALID (expected 0x%02X)\n", cbus.Checksum(frame[:len(frame)-1]))
	}

	var (
		c  *cbus.SALCommand
		ok bool
	)
	if decodeOutbound {
		c, ok = m.TryParseOutbound(frame)
	} else {
		c, ok = m.TryParseCommand(frame, decodeMonitored, shortForm())
	}
	if !ok {
		return fmt.Errorf("frame could not be decoded with the configured applications")
	}
	fmt.Print(cbus.FormatCommand(c))
	return nil
}

// decodeHexFrame parses hex characters, ignoring framing characters and whitespace
func decodeHexFrame(s string) ([]byte, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), `\n`)
	s = strings.TrimSuffix(s, `\r`)
	s = strings.Map(func(r rune) rune {
		switch r {
		case cbus.StartChar, cbus.PrimaryEndChar, cbus.MonitoredEndChar, ' ', '\t':
			return -1
		}
		return r
	}, s)
	frame, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	return frame, nil
}
