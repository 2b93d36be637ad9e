// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"bytes"
	"testing"
)

func TestCALCommand_Wire(t *testing.T) {
	tests := []struct {
		name     string
		cmd      CALCommand
		bytes    []byte
		expected string
	}{
		{
			name:     "options 3 local SAL",
			cmd:      NewCALCommand(ParamInterfaceOptions3, byte(Options3LocalSAL), true),
			bytes:    []byte{0xA3, 0x42, 0x00, 0x02, 0x19},
			expected: "@A342000219\r",
		},
		{
			name:     "options 1 smart",
			cmd:      NewCALCommand(ParamInterfaceOptions1, byte(Options1Connect|Options1SRCHK|Options1Smart|Options1Idiom), true),
			bytes:    []byte{0xA3, 0x30, 0x00, 0x59, 0xD4},
			expected: "@A3300059D4\r",
		},
		{
			name:     "app address 1",
			cmd:      NewCALCommand(ParamAppAddress1, AppLightingDefault, true),
			bytes:    []byte{0xA3, 0x21, 0x00, 0x38, 0x04},
			expected: "@A321003804\r",
		},
		{
			name:     "without checksum",
			cmd:      NewCALCommand(ParamInterfaceOptions3, byte(Options3LocalSAL), false),
			bytes:    []byte{0xA3, 0x42, 0x00, 0x02, 0x19},
			expected: "@A3420002\r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.cmd.Bytes(), tt.bytes) {
				t.Errorf("Bytes() = % X, expected % X", tt.cmd.Bytes(), tt.bytes)
			}
			if got := string(tt.cmd.Wire()); got != tt.expected {
				t.Errorf("Wire() = %q, expected %q", got, tt.expected)
			}
			if !VerifyChecksum(tt.cmd.Bytes()) {
				t.Error("CAL bytes should verify")
			}
		})
	}
}

func TestResetCommand_Wire(t *testing.T) {
	if got := string(ResetCommand{}.Wire()); got != "~" {
		t.Errorf("Wire() = %q, expected \"~\"", got)
	}
}

func TestParseCALResponse(t *testing.T) {
	param, value, ok := ParseCALResponse([]byte{0xA3, 0x30, 0x00, 0x59, 0xD4})
	if !ok || param != ParamInterfaceOptions1 || value != 0x59 {
		t.Errorf("ParseCALResponse = %s 0x%02X %v", param, value, ok)
	}
	if _, _, ok := ParseCALResponse([]byte{0x05, 0x38, 0x00, 0x79}); ok {
		t.Error("SAL frame should not parse as CAL")
	}
}

func TestCALBuilder(t *testing.T) {
	b := NewCALBuilder()
	if !b.ShortForm() {
		t.Error("fresh interface should report short form")
	}

	cmd := b.SetOptions1(Options1Connect | Options1Smart)
	if cmd.Parameter() != ParamInterfaceOptions1 || cmd.Value() != 0x11 {
		t.Errorf("SetOptions1 = %s", cmd)
	}
	if b.ShortForm() {
		t.Error("SMART mode should report long form")
	}
	if !b.Options1().Has(Options1Smart) {
		t.Error("Options1() should include SMART")
	}

	b.SetOptions3(Options3LocalSAL)
	if b.Options3() != Options3LocalSAL {
		t.Errorf("Options3() = 0x%02X", byte(b.Options3()))
	}

	b.RegisterApplication1Monitor(0x38)
	b.RegisterApplication2Monitor(0xCA)
	if a1, a2 := b.MonitoredApplications(); a1 != 0x38 || a2 != 0xCA {
		t.Errorf("MonitoredApplications() = 0x%02X 0x%02X", a1, a2)
	}

	if got := string(b.Reset().Wire()); got != "~" {
		t.Errorf("Reset().Wire() = %q", got)
	}
	if !b.ShortForm() || b.Options3() != 0 {
		t.Error("Reset should forget the tracked options")
	}

	wires := []struct {
		cmd  CALCommand
		wire string
	}{
		{b.RegisterApplication1Monitor(0x38), "@A3210038\r"},
		{b.RegisterApplication2Monitor(0xFF), "@A32200FF\r"},
		{b.SetOptions3(Options3LocalSAL), "@A3420002\r"},
		{b.SetOptions1(Options1Connect | Options1SRCHK | Options1Smart | Options1Idiom), "@A3300059\r"},
		{b.SetOptions1PowerUp(Options1Connect), "@A3410001\r"},
	}
	for _, w := range wires {
		if w.cmd.IncludesChecksum() {
			t.Errorf("%s should omit the checksum", w.cmd)
		}
		if got := string(w.cmd.Wire()); got != w.wire {
			t.Errorf("%s Wire() = %q, expected %q", w.cmd, got, w.wire)
		}
	}

	baud := b.SetBaud(Baud9600)
	if baud.IncludesChecksum() {
		t.Error("baud selector should omit the checksum")
	}
}

func TestConfirmationSet(t *testing.T) {
	s := NewConfirmationSet("")
	if s.Len() != 19 {
		t.Fatalf("Len() = %d, expected 19", s.Len())
	}

	seen := make(map[byte]bool)
	for i := 0; i < s.Len(); i++ {
		c := s.Next()
		if c == 'w' {
			t.Error("'w' is reserved")
		}
		if isHex(c) {
			t.Errorf("%q is a hex digit", c)
		}
		seen[c] = true
	}
	if len(seen) != 19 {
		t.Errorf("expected 19 distinct characters, got %d", len(seen))
	}
	if c := s.Next(); c != 'g' {
		t.Errorf("rotation should wrap to 'g', got %q", c)
	}
	if !s.Contains('z') || s.Contains('w') {
		t.Error("Contains mismatch")
	}
}
