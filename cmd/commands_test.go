// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
)

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		app  byte
		wire string
	}{
		{"on default app", []string{"on", "0x22"}, 0, "\\053800792228\r"},
		{"trigger default app", []string{"trigger", "0x25", "1"}, 0, "\\05CA0002250109\r"},
		{"decimal group", []string{"on", "34"}, 0, "\\053800792228\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := buildCommand(tt.args, cbus.HeaderPM, tt.app)
			if err != nil {
				t.Fatalf("buildCommand() error = %v", err)
			}
			if got := string(c.Wire()); got != tt.wire {
				t.Errorf("Wire() = %q, want %q", got, tt.wire)
			}
		})
	}
}

func TestBuildCommand_Lighting(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		id    cbus.LightingCommandID
		level byte
	}{
		{"off", []string{"off", "0x22"}, cbus.LightingOff, 0},
		{"terminate", []string{"terminate", "0x22"}, cbus.LightingTerminateRamp, 0},
		{"instant ramp", []string{"ramp", "0x22", "128"}, cbus.LightingRampInstant, 128},
		{"4s ramp", []string{"ramp", "0x22", "0x80", "4s"}, cbus.LightingRamp4s, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := buildCommand(tt.args, cbus.HeaderPM, 0x39)
			if err != nil {
				t.Fatalf("buildCommand() error = %v", err)
			}
			if c.Domain() != cbus.DomainLighting || c.Application() != 0x39 {
				t.Fatalf("domain/app = %s/0x%02X", c.Domain(), c.Application())
			}
			l := c.Lighting()
			if len(l) != 1 || l[0].ID != tt.id || l[0].Group != 0x22 || l[0].Level != tt.level {
				t.Errorf("Lighting() = %+v", l)
			}
		})
	}
}

func TestBuildCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing group", []string{"on"}},
		{"unknown command", []string{"blink", "1"}},
		{"group out of range", []string{"on", "0x122"}},
		{"extra argument", []string{"off", "1", "2"}},
		{"ramp without level", []string{"ramp", "1"}},
		{"bad duration", []string{"ramp", "1", "2", "soon"}},
		{"trigger without action", []string{"trigger", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildCommand(tt.args, cbus.HeaderPM, 0); err == nil {
				t.Errorf("buildCommand(%v) expected error", tt.args)
			}
		})
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in   string
		want cbus.Header
	}{
		{"", cbus.HeaderPM},
		{"pm", cbus.HeaderPM},
		{"PPM", cbus.HeaderPPM},
		{"pp", cbus.HeaderPP},
	}
	for _, tt := range tests {
		got, err := parseHeader(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseHeader(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := parseHeader("broadcast"); err == nil {
		t.Error("parseHeader(broadcast) expected error")
	}
}

func TestDecodeHexFrame(t *testing.T) {
	want := []byte{0x05, 0x38, 0x00, 0x79, 0x22, 0x28}
	for _, in := range []string{
		"053800792228",
		`\053800792228\r`,
		"05 38 00 79 22 28",
		"\\053800792228\r\n",
	} {
		got, err := decodeHexFrame(in)
		if err != nil {
			t.Errorf("decodeHexFrame(%q) error = %v", in, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("decodeHexFrame(%q) = % X", in, got)
		}
	}

	for _, in := range []string{"", "zz", "053"} {
		if _, err := decodeHexFrame(in); err == nil {
			t.Errorf("decodeHexFrame(%q) expected error", in)
		}
	}
}

func TestBuildCAL(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		checksum bool
		wire     string
	}{
		{"reset", []string{"reset"}, false, "~"},
		{"app1", []string{"app1", "0x38"}, false, "@A3210038\r"},
		{"app2 wildcard", []string{"app2", "0xFF"}, false, "@A32200FF\r"},
		{"options1", []string{"options1", "0x59"}, false, "@A3300059\r"},
		{"options3", []string{"options3", "2"}, false, "@A3420002\r"},
		{"baud never has checksum", []string{"baud", "0xFF"}, true, "@A33D00FF\r"},
		{"with checksum", []string{"app1", "0x38"}, true, "@A321003804\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := buildCAL(tt.args, tt.checksum)
			if err != nil {
				t.Fatalf("buildCAL() error = %v", err)
			}
			if got := string(c.Wire()); got != tt.wire {
				t.Errorf("Wire() = %q, want %q", got, tt.wire)
			}
		})
	}

	for _, args := range [][]string{{"bogus", "1"}, {"app1"}, {"reset", "1"}, {"app1", "x"}} {
		if _, err := buildCAL(args, false); err == nil {
			t.Errorf("buildCAL(%v) expected error", args)
		}
	}
}

func TestDescribeCALReply(t *testing.T) {
	sent := []byte("@A3300059\r")
	reply := []byte("@A3300059\rA342000219\r\n8600\r\n")

	got := describeCALReply(reply, sent)
	want := []string{"echo", "INTERFACE_OPTIONS_3=0x02"}
	if len(got) != len(want) {
		t.Fatalf("describeCALReply() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGroupSurvey(t *testing.T) {
	g := newGroupSurvey()
	now := time.Now()

	if added := g.add(cbus.NewLightingOn(0x38, 0x22), now); len(added) != 1 {
		t.Fatalf("first command added %d rows, want 1", len(added))
	}
	if added := g.add(cbus.NewLightingOff(0x38, 0x22), now); len(added) != 0 {
		t.Errorf("repeat group added %d rows, want 0", len(added))
	}
	g.add(cbus.NewTriggerEvent(0xCA, 0x25, 0x01), now)
	g.add(cbus.NewLightingOn(0x38, 0x10), now)

	rows := g.rows()
	if len(rows) != 3 {
		t.Fatalf("rows() = %d, want 3", len(rows))
	}
	wantOrder := []struct{ app, group byte }{{0x38, 0x10}, {0x38, 0x22}, {0xCA, 0x25}}
	for i, w := range wantOrder {
		if rows[i].application != w.app || rows[i].group != w.group {
			t.Errorf("row %d = 0x%02X/0x%02X, want 0x%02X/0x%02X", i, rows[i].application, rows[i].group, w.app, w.group)
		}
	}
	if rows[1].count != 2 {
		t.Errorf("0x22 count = %d, want 2", rows[1].count)
	}
	if rows[2].domain != cbus.DomainTrigger || rows[2].action != 0x01 {
		t.Errorf("trigger row = %+v", rows[2])
	}
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		ev   session.Event
		want string
	}{
		{session.Event{Time: ts, Preset: "kitchen", Active: true, Level: 255}, "[03:04:05.000] kitchen ON 100%"},
		{session.Event{Time: ts, Preset: "kitchen"}, "[03:04:05.000] kitchen OFF"},
	}
	for _, tt := range tests {
		if got := formatEvent(tt.ev); got != tt.want {
			t.Errorf("formatEvent() = %q, want %q", got, tt.want)
		}
	}
}

// fakeController records the commands issued by the control TUI
type fakeController struct {
	presets []session.PresetStatus
	sets    []string
	levels  []byte
	err     error
}

func (f *fakeController) Presets() []session.PresetStatus { return f.presets }

func (f *fakeController) SetPreset(name string, active bool) error {
	if f.err != nil {
		return f.err
	}
	state := "off"
	if active {
		state = "on"
	}
	f.sets = append(f.sets, name+" "+state)
	return nil
}

func (f *fakeController) SetLevel(name string, level byte, d time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, level)
	return nil
}

func (f *fakeController) Statistics() cbus.Statistics { return *cbus.NewStatistics() }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m controlModel, keys ...string) controlModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(controlModel)
	}
	return m
}

func TestControlModel_Commands(t *testing.T) {
	ctrl := &fakeController{presets: []session.PresetStatus{
		{Preset: session.Preset{Name: "kitchen", Domain: cbus.DomainLighting, Application: 0x38, Group: 0x22}},
	}}
	m := initialControlModel(ctrl, "test", 4*time.Second)

	m = press(m, "o", "f", "enter")
	want := []string{"kitchen on", "kitchen off", "kitchen on"}
	if len(ctrl.sets) != len(want) {
		t.Fatalf("SetPreset calls = %v, want %v", ctrl.sets, want)
	}
	for i := range want {
		if ctrl.sets[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, ctrl.sets[i], want[i])
		}
	}

	m = press(m, "tab")
	if m.focused != focusLevelInput {
		t.Fatalf("focus = %d, want level input", m.focused)
	}
	m.levelInput.SetValue("128")
	m = press(m, "enter")
	if len(ctrl.levels) != 1 || ctrl.levels[0] != 128 {
		t.Errorf("SetLevel calls = %v, want [128]", ctrl.levels)
	}

	m.levelInput.SetValue("300")
	m = press(m, "enter")
	if len(ctrl.levels) != 1 {
		t.Errorf("out of range level was sent: %v", ctrl.levels)
	}
	if last := m.eventLog[len(m.eventLog)-1]; !last.isError {
		t.Errorf("last log entry = %+v, want an error", last)
	}
}

func TestControlModel_CommandError(t *testing.T) {
	ctrl := &fakeController{
		presets: []session.PresetStatus{
			{Preset: session.Preset{Name: "scene", Domain: cbus.DomainTrigger, Application: 0xCA, Group: 0x25, Action: 1}},
		},
		err: session.ErrUnsupported,
	}
	m := press(initialControlModel(ctrl, "test", time.Second), "f")

	if len(m.eventLog) != 1 || !m.eventLog[0].isError {
		t.Fatalf("eventLog = %+v, want one error", m.eventLog)
	}
}

func TestPresetItem_Description(t *testing.T) {
	base := session.Preset{Name: "kitchen", Domain: cbus.DomainLighting, Application: 0x38, Group: 0x22}
	tests := []struct {
		name   string
		status session.PresetStatus
		want   string
	}{
		{"unknown", session.PresetStatus{Preset: base}, "LIGHTING 0x38/0x22 unknown"},
		{"off", session.PresetStatus{Preset: base, Known: true}, "LIGHTING 0x38/0x22 off"},
		{"on", session.PresetStatus{Preset: base, Known: true, Active: true, Level: 255}, "LIGHTING 0x38/0x22 on 100%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (presetItem{status: tt.status}).Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}
}
