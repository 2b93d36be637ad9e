// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// withChecksum appends the frame checksum
func withChecksum(data ...byte) []byte {
	return append(data, Checksum(data))
}

// ============================================================
// Encoding Tests
// ============================================================

func TestSALCommand_LightingWire(t *testing.T) {
	cmd, err := NewLightingCommand(HeaderPM, AppLightingDefault, LightingCommand{ID: LightingOn, Group: 0x88})
	if err != nil {
		t.Fatalf("NewLightingCommand failed: %v", err)
	}

	expected := []byte{0x05, 0x38, 0x00, 0x79, 0x88, 0xC2}
	if !bytes.Equal(cmd.Bytes(), expected) {
		t.Errorf("Bytes() = % X, expected % X", cmd.Bytes(), expected)
	}
	if got := string(cmd.Wire()); got != "\\0538007988C2\r" {
		t.Errorf("Wire() = %q", got)
	}

	cmd.SetAckCharacter('g')
	if got := string(cmd.Wire()); got != "\\0538007988C2g\r" {
		t.Errorf("Wire() with ack = %q", got)
	}
	if ch, ok := cmd.AckCharacter(); !ok || ch != 'g' {
		t.Errorf("AckCharacter() = %q/%v", ch, ok)
	}
}

func TestSALCommand_RampCarriesLevel(t *testing.T) {
	cmd, err := NewLightingCommand(HeaderPM, AppLightingDefault,
		LightingCommand{ID: LightingRamp4s, Group: 0x07, Level: 0x80},
		LightingCommand{ID: LightingOff, Group: 0x08, Level: 0x55})
	if err != nil {
		t.Fatalf("NewLightingCommand failed: %v", err)
	}

	expected := withChecksum(0x05, 0x38, 0x00, 0x0A, 0x07, 0x80, 0x01, 0x08)
	if !bytes.Equal(cmd.Bytes(), expected) {
		t.Errorf("Bytes() = % X, expected % X", cmd.Bytes(), expected)
	}
}

func TestSALCommand_TriggerEventBytes(t *testing.T) {
	cmd := NewTriggerEvent(AppTrigger, 0x25, 0x01)
	expected := []byte{0x05, 0xCA, 0x00, 0x02, 0x25, 0x01, 0x09}
	if !bytes.Equal(cmd.Bytes(), expected) {
		t.Errorf("Bytes() = % X, expected % X", cmd.Bytes(), expected)
	}
}

func TestNewCommand_RejectsUnknownIDs(t *testing.T) {
	_, err := NewLightingCommand(HeaderPM, AppLightingDefault, LightingCommand{ID: LightingCommandID(0x03), Group: 1})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("lighting: expected ErrUnknownCommand, got %v", err)
	}
	_, err = NewLightingCommand(HeaderPM, AppLightingDefault, LightingCommand{ID: LightingUnknown, Group: 1})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("lighting unknown: expected ErrUnknownCommand, got %v", err)
	}
	_, err = NewTriggerCommand(HeaderPM, AppTrigger, TriggerCommand{ID: TriggerCommandID(0x05), Group: 1})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("trigger: expected ErrUnknownCommand, got %v", err)
	}
}

func TestSALCommand_RoundTripPPM(t *testing.T) {
	header := Header{Priority: PriorityClass4, AddressType: AddressPointToPointToMultipoint}
	cmd, err := NewLightingCommand(header, AppLightingDefault, LightingCommand{ID: LightingOn, Group: 0x88})
	if err != nil {
		t.Fatalf("NewLightingCommand failed: %v", err)
	}

	decoded, ok := referenceMap().TryParseOutbound(cmd.Bytes())
	if !ok {
		t.Fatalf("TryParseOutbound(% X) failed", cmd.Bytes())
	}
	if decoded.Domain() != DomainLighting || decoded.Application() != AppLightingDefault {
		t.Errorf("decoded %s", decoded)
	}
	if decoded.Header() != header {
		t.Errorf("Header() = %s, expected %s", decoded.Header(), header)
	}
	l := decoded.Lighting()
	if len(l) != 1 || l[0].ID != LightingOn || l[0].Group != 0x88 {
		t.Errorf("lighting = %+v", l)
	}
}

// ============================================================
// Locate / Decode Tests
// ============================================================

func TestLocateApplicationID(t *testing.T) {
	tests := []struct {
		name      string
		frame     []byte
		monitored bool
		shortForm bool
		app       byte
		offset    int
		ok        bool
	}{
		{"local PM", []byte{0x05, 0x38, 0x00, 0x79, 0x88, 0xC2}, false, false, 0x38, 3, true},
		{"local PPM no routes", []byte{0x03, 0x12, 0x00, 0x38, 0x00, 0x79, 0x01, 0x00}, false, false, 0x38, 5, true},
		{"local PPM one route", []byte{0x03, 0x12, 0x09, 0xAA, 0x38, 0x00, 0x79, 0x01, 0x00}, false, false, 0x38, 6, true},
		{"local PP unsupported", []byte{0x06, 0x01, 0x38, 0x00}, false, false, 0, 0, false},
		{"local PM truncated", []byte{0x05}, false, false, 0, 0, false},
		{"local PPM truncated", []byte{0x03, 0x12}, false, false, 0, 0, false},
		{"local PPM routes past end", []byte{0x03, 0x12, 0x2D, 0x38}, false, false, 0, 0, false},
		{"monitored short", []byte{0x00, 0x38, 0x79, 0x01, 0x4E}, true, true, 0x38, 2, true},
		{"monitored short bridged", []byte{0x12, 0x34, 0x38, 0x79, 0x01, 0x00}, true, true, 0x38, 3, true},
		{"monitored long", []byte{0x05, 0x64, 0x38, 0x00, 0x79, 0x22, 0xC4}, true, false, 0x38, 4, true},
		{"monitored long one route", []byte{0x05, 0x64, 0x38, 0x09, 0xAA, 0x79, 0x22, 0x00}, true, false, 0x38, 5, true},
		{"monitored long wrong lead", []byte{0x06, 0x64, 0x38, 0x00, 0x79}, true, false, 0, 0, false},
		{"monitored long truncated", []byte{0x05, 0x64, 0x38}, true, false, 0, 0, false},
		{"empty", nil, false, false, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, offset, ok := LocateApplicationID(tt.frame, tt.monitored, tt.shortForm)
			if ok != tt.ok {
				t.Fatalf("ok = %v, expected %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if app != tt.app || offset != tt.offset {
				t.Errorf("got app=0x%02X offset=%d, expected app=0x%02X offset=%d", app, offset, tt.app, tt.offset)
			}
		})
	}
}

func TestDecode_LongFormSkipped(t *testing.T) {
	frame := withChecksum(0x05, 0x38, 0x00, 0x82, 0xAA, 0xBB, 0x79, 0x10)
	cmd, ok := referenceMap().TryParseCommand(frame, false, false)
	if !ok {
		t.Fatal("TryParseCommand failed")
	}
	l := cmd.Lighting()
	if len(l) != 1 || l[0] != (LightingCommand{ID: LightingOn, Group: 0x10}) {
		t.Errorf("lighting = %+v", l)
	}
}

func TestDecode_FailuresReturnNothing(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"unknown lighting id", withChecksum(0x05, 0x38, 0x00, 0x79, 0x10, 0x03, 0x10)},
		{"truncated on", withChecksum(0x05, 0x38, 0x00, 0x79)},
		{"truncated ramp", withChecksum(0x05, 0x38, 0x00, 0x0A, 0x10)},
		{"long form past end", withChecksum(0x05, 0x38, 0x00, 0x85, 0x01)},
		{"unknown trigger id", withChecksum(0x05, 0xCA, 0x00, 0x03, 0x25)},
		{"truncated trigger event", withChecksum(0x05, 0xCA, 0x00, 0x02, 0x25)},
		{"unbound application", withChecksum(0x05, 0x39, 0x00, 0x79, 0x10)},
		{"point to point", withChecksum(0x06, 0x38, 0x00, 0x79, 0x10)},
		{"header only", []byte{0x05, 0x38, 0x00}},
	}

	m := referenceMap()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if cmd, ok := m.TryParseCommand(tt.frame, false, false); ok || cmd != nil {
				t.Errorf("expected failure, got %v", cmd)
			}
		})
	}
}

func TestDecode_TriggerCommands(t *testing.T) {
	frame := withChecksum(0x05, 0xCA, 0x00, 0x01, 0x10, 0x79, 0x11, 0x09, 0x12, 0x02, 0x13, 0x04)
	cmd, ok := referenceMap().TryParseCommand(frame, false, false)
	if !ok {
		t.Fatal("TryParseCommand failed")
	}
	expected := []TriggerCommand{
		{ID: TriggerMin, Group: 0x10},
		{ID: TriggerMax, Group: 0x11},
		{ID: TriggerKill, Group: 0x12},
		{ID: TriggerEvent, Group: 0x13, Action: 0x04},
	}
	got := cmd.Trigger()
	if len(got) != len(expected) {
		t.Fatalf("got %d commands, expected %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("command %d = %+v, expected %+v", i, got[i], expected[i])
		}
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	cmd, ok := referenceMap().TryParseCommand(withChecksum(0x05, 0x38, 0x00), false, false)
	if !ok {
		t.Fatal("frame without sub-commands should decode")
	}
	if len(cmd.Lighting()) != 0 {
		t.Errorf("expected no commands, got %+v", cmd.Lighting())
	}
}

// ============================================================
// Lighting ID Tests
// ============================================================

func TestParseLightingCommandID(t *testing.T) {
	valid := []LightingCommandID{LightingOff, LightingOn, LightingTerminateRamp}
	for _, r := range rampDurations {
		valid = append(valid, r.id)
	}
	for _, id := range valid {
		if got := ParseLightingCommandID(byte(id)); got != id {
			t.Errorf("ParseLightingCommandID(0x%02X) = %s", byte(id), got)
		}
	}
	for _, b := range []byte{0x00, 0x03, 0x78, 0x80, 0xFE} {
		if got := ParseLightingCommandID(b); got != LightingUnknown {
			t.Errorf("ParseLightingCommandID(0x%02X) = %s, expected UNKNOWN", b, got)
		}
	}
}

func TestRampDurations(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected LightingCommandID
	}{
		{0, LightingRampInstant},
		{time.Second, LightingRamp4s},
		{4 * time.Second, LightingRamp4s},
		{time.Minute, LightingRamp1m},
		{61 * time.Second, LightingRamp1m30s},
		{time.Hour, LightingRamp17m},
	}
	for _, tt := range tests {
		if got := RampForDuration(tt.d); got != tt.expected {
			t.Errorf("RampForDuration(%s) = %s, expected %s", tt.d, got, tt.expected)
		}
	}

	if d, ok := LightingRamp17m.RampDuration(); !ok || d != 17*time.Minute {
		t.Errorf("LightingRamp17m.RampDuration() = %s/%v", d, ok)
	}
	if _, ok := LightingOn.RampDuration(); ok {
		t.Error("ON is not a ramp")
	}
}

func TestLightingCommand_TargetLevel(t *testing.T) {
	tests := []struct {
		cmd      LightingCommand
		expected byte
	}{
		{LightingCommand{ID: LightingOn}, 0xFF},
		{LightingCommand{ID: LightingOff, Level: 0x40}, 0x00},
		{LightingCommand{ID: LightingRamp8s, Level: 0x40}, 0x40},
		{LightingCommand{ID: LightingTerminateRamp}, 0x00},
	}
	for _, tt := range tests {
		if got := tt.cmd.TargetLevel(); got != tt.expected {
			t.Errorf("%s TargetLevel() = 0x%02X, expected 0x%02X", tt.cmd, got, tt.expected)
		}
	}
}

func TestParseDomain(t *testing.T) {
	if d, err := ParseDomain("Lighting"); err != nil || d != DomainLighting {
		t.Errorf("ParseDomain(Lighting) = %s, %v", d, err)
	}
	if d, err := ParseDomain(" trigger "); err != nil || d != DomainTrigger {
		t.Errorf("ParseDomain(trigger) = %s, %v", d, err)
	}
	if _, err := ParseDomain("hvac"); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("expected ErrUnknownDomain, got %v", err)
	}
}
