// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a parser result into a human-readable string
func FormatFrame(ts time.Time, st *State, m *AddressMap, shortForm bool) string {
	timestamp := ts.Format("15:04:05.000")
	mt := st.MessageType()

	switch {
	case mt == MessageAck || mt.IsNak():
		ch, _ := st.AckCharacter()
		return fmt.Sprintf("[%s] %s confirm=%s\n", timestamp, mt, FormatAckCharacter(ch))
	case !mt.IsSAL():
		return fmt.Sprintf("[%s] %s\n", timestamp, mt)
	}

	frame := st.Payload()
	result := fmt.Sprintf("[%s] %s len=%d %s\n", timestamp, mt, len(frame), FormatHex(frame))
	if !st.ChecksumValid() {
		result += "  checksum: INVALID\n"
	}

	cmd, ok := m.TryParseCommand(frame, mt == MessageMonitoredSALReceived, shortForm)
	if !ok {
		return result + "  (not decoded)\n"
	}
	return result + FormatCommand(cmd)
}

// FormatCommand formats a SAL command's sub-commands, one per line
func FormatCommand(c *SALCommand) string {
	result := fmt.Sprintf("  %s app=0x%02X hdr=%s\n", c.Domain(), c.Application(), c.Header())
	switch c.Domain() {
	case DomainLighting:
		for _, l := range c.Lighting() {
			result += fmt.Sprintf("    %s\n", FormatLightingCommand(l))
		}
	case DomainTrigger:
		for _, t := range c.Trigger() {
			result += fmt.Sprintf("    %s\n", t)
		}
	}
	return result
}

// FormatLightingCommand formats a lighting sub-command with its level as a percentage
func FormatLightingCommand(l LightingCommand) string {
	if !l.ID.IsRamp() {
		return l.String()
	}
	return fmt.Sprintf("%s (%s)", l, FormatLevel(l.Level))
}

// FormatLevel renders a 0-255 level as a percentage
func FormatLevel(level byte) string {
	return fmt.Sprintf("%.0f%%", float64(level)*100.0/255.0)
}

// FormatHex renders bytes as space separated uppercase hex pairs
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// FormatAckCharacter renders a confirmation character
func FormatAckCharacter(c byte) string {
	if c >= 0x20 && c < 0x7F {
		return fmt.Sprintf("'%c'", c)
	}
	return fmt.Sprintf("0x%02X", c)
}

// FormatWire renders an outbound wire form with control characters escaped
func FormatWire(wire []byte) string {
	var b strings.Builder
	for _, c := range wire {
		switch c {
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			if c < 0x20 || c >= 0x7F {
				fmt.Fprintf(&b, `\x%02X`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
