// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"fmt"
	"strings"
)

// Domain is an application category carried in SAL frames
type Domain int

// Supported domains
const (
	DomainLighting Domain = iota
	DomainTrigger
)

// String returns the domain name
func (d Domain) String() string {
	switch d {
	case DomainLighting:
		return "LIGHTING"
	case DomainTrigger:
		return "TRIGGER"
	default:
		return fmt.Sprintf("DOMAIN(%d)", int(d))
	}
}

// ParseDomain parses a domain name, case-insensitively
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lighting":
		return DomainLighting, nil
	case "trigger":
		return DomainTrigger, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownDomain)
}

// SALCommand is a decoded or outbound SAL frame for one application.
// Exactly one of Lighting or Trigger is populated, selected by Domain.
type SALCommand struct {
	domain      Domain
	header      Header
	application byte
	lighting    []LightingCommand
	trigger     []TriggerCommand
	ackChar     byte
	hasAckChar  bool
}

// Domain returns the application domain
func (c *SALCommand) Domain() Domain {
	return c.domain
}

// Header returns the frame header
func (c *SALCommand) Header() Header {
	return c.header
}

// Application returns the application address
func (c *SALCommand) Application() byte {
	return c.application
}

// Lighting returns the lighting sub-commands (nil for other domains)
func (c *SALCommand) Lighting() []LightingCommand {
	return c.lighting
}

// Trigger returns the trigger sub-commands (nil for other domains)
func (c *SALCommand) Trigger() []TriggerCommand {
	return c.trigger
}

// SetAckCharacter attaches a confirmation character, requesting an ACK from
// the interface that echoes it back
func (c *SALCommand) SetAckCharacter(ch byte) {
	c.ackChar = ch
	c.hasAckChar = true
}

// AckCharacter returns the attached confirmation character
func (c *SALCommand) AckCharacter() (byte, bool) {
	return c.ackChar, c.hasAckChar
}

// Bytes encodes the command as [header, application, 0x00, sub-commands..., checksum]
func (c *SALCommand) Bytes() []byte {
	out := make([]byte, 0, 16)
	out = append(out, c.header.Byte(), c.application, 0x00)
	switch c.domain {
	case DomainLighting:
		for _, l := range c.lighting {
			out = l.appendTo(out)
		}
	case DomainTrigger:
		for _, t := range c.trigger {
			out = t.appendTo(out)
		}
	}
	return append(out, Checksum(out))
}

// Wire returns the ASCII form sent to the serial interface
func (c *SALCommand) Wire() []byte {
	raw := c.Bytes()
	out := make([]byte, 0, 2*len(raw)+3)
	out = append(out, StartChar)
	out = appendHex(out, raw)
	if c.hasAckChar {
		out = append(out, c.ackChar)
	}
	return append(out, PrimaryEndChar)
}

// String returns a human-readable representation of the command
func (c *SALCommand) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s app=0x%02X hdr=%s", c.domain, c.application, c.header)
	switch c.domain {
	case DomainLighting:
		for _, l := range c.lighting {
			b.WriteString(" [")
			b.WriteString(l.String())
			b.WriteString("]")
		}
	case DomainTrigger:
		for _, t := range c.trigger {
			b.WriteString(" [")
			b.WriteString(t.String())
			b.WriteString("]")
		}
	}
	if c.hasAckChar {
		fmt.Fprintf(&b, " ack=%c", c.ackChar)
	}
	return b.String()
}

// LocateApplicationID finds the application address in a received frame and
// the offset where its sub-commands begin.
//
// Monitored frames carry no local header. In short form the address follows a
// zero byte, or a bridge byte when the frame crossed a network bridge. In long
// form the frame opens with 0x05 and a route count byte. Local frames are
// addressed by their header: point-to-point frames carry CAL only and never
// resolve.
func LocateApplicationID(frame []byte, monitored, shortForm bool) (appID byte, offset int, ok bool) {
	if len(frame) == 0 {
		return 0, 0, false
	}

	idx := -1
	switch {
	case monitored && shortForm:
		if frame[0] == 0x00 {
			idx, offset = 1, 2
		} else {
			idx, offset = 2, 3
		}

	case monitored:
		if frame[0] != byte(AddressPointToMultipoint) || len(frame) < 4 {
			return 0, 0, false
		}
		routes := int(frame[3]) / RouteHeaderDivisor
		idx, offset = 2, 4+routes

	default:
		switch DecodeHeader(frame[0]).AddressType {
		case AddressPointToMultipoint:
			idx, offset = 1, 3
		case AddressPointToPointToMultipoint:
			if len(frame) < 3 {
				return 0, 0, false
			}
			// First-hop target and route header, then the route list
			routes := int(frame[2]) / RouteHeaderDivisor
			idx, offset = 3+routes, 5+routes
		default:
			return 0, 0, false
		}
	}

	if idx >= len(frame) || offset > len(frame) {
		return 0, 0, false
	}
	return frame[idx], offset, true
}

// DecodeOutbound decodes a frame produced by SALCommand.Bytes: application at
// byte 1 and sub-commands from byte 3, whatever the header address type.
func DecodeOutbound(frame []byte, domain Domain) (*SALCommand, bool) {
	if len(frame) < 4 {
		return nil, false
	}
	return decodeSAL(domain, DecodeHeader(frame[0]), frame[1], frame, 3)
}

// decodeSAL decodes frame[offset:len(frame)-1]; the last byte is the checksum
func decodeSAL(domain Domain, header Header, application byte, frame []byte, offset int) (*SALCommand, bool) {
	if offset > len(frame)-1 {
		return nil, false
	}
	payload := frame[offset : len(frame)-1]

	cmd := &SALCommand{domain: domain, header: header, application: application}
	var ok bool
	switch domain {
	case DomainLighting:
		cmd.lighting, ok = decodeLighting(payload)
	case DomainTrigger:
		cmd.trigger, ok = decodeTrigger(payload)
	default:
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return cmd, true
}

// walkSubCommands runs the shared sub-command loop. paramCount returns the
// number of bytes following a short form id, or -1 when the id is unknown.
// Long form commands (high bit set) are skipped. Any unknown id or truncated
// command fails the whole walk.
func walkSubCommands(payload []byte, paramCount func(id byte) int, emit func(id byte, params []byte)) bool {
	i := 0
	for i < len(payload) {
		id := payload[i]
		if id&longFormFlag != 0 {
			i += 1 + int(id&longFormLengthMask)
			if i > len(payload) {
				return false
			}
			continue
		}

		n := paramCount(id)
		if n < 0 {
			return false
		}
		end := i + 1 + n
		if end > len(payload) {
			return false
		}
		emit(id, payload[i+1:end])
		i = end
	}
	return true
}

const hexDigits = "0123456789ABCDEF"

// appendHex appends the uppercase hex form of src to dst
func appendHex(dst, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return dst
}
