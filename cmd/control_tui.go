// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/session"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusPresetList = iota
	focusLevelInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// presetController is the part of the session the control TUI drives
type presetController interface {
	Presets() []session.PresetStatus
	SetPreset(name string, active bool) error
	SetLevel(name string, level byte, d time.Duration) error
	Statistics() cbus.Statistics
}

// presetItem adapts a preset status to list.Item
type presetItem struct {
	status session.PresetStatus
}

func (p presetItem) Title() string { return p.status.Name }

func (p presetItem) Description() string {
	s := p.status
	state := "unknown"
	switch {
	case !s.Known:
	case s.Domain == cbus.DomainTrigger:
		state = "fired " + s.Updated.Format("15:04:05")
	case s.Active:
		state = "on " + cbus.FormatLevel(s.Level)
	default:
		state = "off"
	}
	return fmt.Sprintf("%s 0x%02X/0x%02X %s", s.Domain, s.Application, s.Group, state)
}

func (p presetItem) FilterValue() string { return p.status.Name }

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctrl     presetController
	connInfo string
	ramp     time.Duration

	presetList list.Model
	levelInput textinput.Model
	focused    int

	stats         cbus.Statistics
	eventLog      []errorLogEntry
	maxLogEntries int
	connected     bool

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type presetEventMsg session.Event

type connectionMsg struct {
	connected bool
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctrl presetController, connInfo string, ramp time.Duration) controlModel {
	ti := textinput.New()
	ti.Placeholder = "255"
	ti.CharLimit = 3
	ti.Width = 5

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	presetList := list.New([]list.Item{}, delegate, 40, 10)
	presetList.Title = "Presets"
	presetList.SetShowStatusBar(false)
	presetList.SetShowHelp(false)
	presetList.SetFilteringEnabled(false)

	m := controlModel{
		ctrl:          ctrl,
		connInfo:      connInfo,
		ramp:          ramp,
		presetList:    presetList,
		levelInput:    ti,
		focused:       focusPresetList,
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
	m.refreshPresets()
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		m.stats = m.ctrl.Statistics()
		m.refreshPresets()
		return m, controlTickCmd()

	case presetEventMsg:
		state := "off"
		if msg.Active {
			state = "on " + cbus.FormatLevel(msg.Level)
		}
		m.addLogEntry(fmt.Sprintf("%s: %s", msg.Preset, state), false)
		m.refreshPresets()

	case connectionMsg:
		m.connected = msg.connected
		if msg.connected {
			m.addLogEntry("Logon complete", false)
		} else {
			m.addLogEntry("Connection lost - reconnecting...", true)
		}
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focused == focusPresetList {
			m.focused = focusLevelInput
			m.levelInput.Focus()
		} else {
			m.focused = focusPresetList
			m.levelInput.Blur()
		}
		return m, nil
	}

	if m.focused == focusLevelInput {
		if msg.String() == "enter" {
			m.sendLevel()
			return m, nil
		}
		var cmd tea.Cmd
		m.levelInput, cmd = m.levelInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "o", "enter":
		m.sendPreset(true)
		return m, nil
	case "f":
		m.sendPreset(false)
		return m, nil
	}

	var cmd tea.Cmd
	m.presetList, cmd = m.presetList.Update(msg)
	return m, cmd
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	s.WriteString(titleStyle.Render("CBUSSTAT CONTROL"))
	s.WriteString(" ")
	connStatus := warningStyle.Render("CONNECTING...")
	if m.connected {
		connStatus = m.connInfo
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit o=on f=off Tab=level", connStatus)))
	s.WriteString("\n\n")

	leftWidth := 40
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 20 {
		rightWidth = 20
	}

	listStyle := boxStyle.Width(leftWidth)
	panelStyle := boxStyle.Width(rightWidth)
	if m.focused == focusPresetList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	} else {
		panelStyle = focusedBoxStyle.Width(rightWidth)
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(m.presetList.View()),
		" ",
		panelStyle.Render(m.renderPresetPanel(labelStyle, valueStyle, headerStyle))))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(labelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderPresetPanel(labelStyle, valueStyle, headerStyle lipgloss.Style) string {
	selected, ok := m.selectedPreset()
	if !ok {
		return headerStyle.Render("No presets configured")
	}

	var s strings.Builder
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Preset:"), valueStyle.Render(selected.Name)))
	s.WriteString(fmt.Sprintf("%s %s app=0x%02X group=0x%02X\n", labelStyle.Render("Address:"),
		selected.Domain, selected.Application, selected.Group))

	if selected.Domain == cbus.DomainTrigger {
		s.WriteString(fmt.Sprintf("%s 0x%02X\n\n", labelStyle.Render("Action:"), selected.Action))
		s.WriteString(headerStyle.Render("o fires the trigger"))
		return s.String()
	}

	state := "unknown"
	if selected.Known {
		state = "off"
		if selected.Active {
			state = "on " + cbus.FormatLevel(selected.Level)
		}
	}
	s.WriteString(fmt.Sprintf("%s %s\n\n", labelStyle.Render("State:"), valueStyle.Render(state)))

	s.WriteString(labelStyle.Render("Level: "))
	if m.focused == focusLevelInput {
		s.WriteString(m.levelInput.View())
	} else {
		val := m.levelInput.Value()
		if val == "" {
			val = m.levelInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString(fmt.Sprintf("  ramp %s", m.ramp))
	return s.String()
}

func (m controlModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	errCount := m.stats.ChecksumErrors + m.stats.DecodeErrors
	errorText := valueStyle.Render("0")
	if errCount > 0 {
		errorText = errorStyle.Render(fmt.Sprintf("%d", errCount))
	}
	nakText := valueStyle.Render("0")
	if m.stats.Naks > 0 {
		nakText = errorStyle.Render(fmt.Sprintf("%d", m.stats.Naks))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Sent:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.SentCommands)),
		labelStyle.Render("Acks:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Acks)),
		labelStyle.Render("Naks:"), nakText,
		labelStyle.Render("Errors:"), errorText,
		labelStyle.Render("Uptime:"), valueStyle.Render(formatUptime(time.Since(m.stats.StartTime))),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(labelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
		return boxStyle.Width(m.width - 4).Render(s.String())
	}

	start := len(m.eventLog) - 8
	if start < 0 {
		start = 0
	}
	for _, entry := range m.eventLog[start:] {
		icon, style := "i", warningStyle
		if entry.isError {
			icon, style = "x", errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *controlModel) sendPreset(active bool) {
	selected, ok := m.selectedPreset()
	if !ok {
		return
	}
	if err := m.ctrl.SetPreset(selected.Name, active); err != nil {
		m.addLogEntry(fmt.Sprintf("%s: %v", selected.Name, err), true)
		return
	}

	verb := "off"
	switch {
	case selected.Domain == cbus.DomainTrigger:
		verb = "fire"
	case active:
		verb = "on"
	}
	m.addLogEntry(fmt.Sprintf("Sent %s to %s", verb, selected.Name), false)
}

func (m *controlModel) sendLevel() {
	selected, ok := m.selectedPreset()
	if !ok {
		return
	}

	val := m.levelInput.Value()
	if val == "" {
		val = m.levelInput.Placeholder
	}
	level, err := strconv.ParseUint(val, 10, 8)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Level must be between 0 and 255: %s", val), true)
		return
	}

	if err := m.ctrl.SetLevel(selected.Name, byte(level), m.ramp); err != nil {
		m.addLogEntry(fmt.Sprintf("%s: %v", selected.Name, err), true)
		return
	}
	m.addLogEntry(fmt.Sprintf("Sent ramp to %s for %s", cbus.FormatLevel(byte(level)), selected.Name), false)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m controlModel) selectedPreset() (session.PresetStatus, bool) {
	item, ok := m.presetList.SelectedItem().(presetItem)
	if !ok {
		return session.PresetStatus{}, false
	}
	return item.status, true
}

func (m *controlModel) refreshPresets() {
	presets := m.ctrl.Presets()
	items := make([]list.Item, len(presets))
	for i, p := range presets {
		items[i] = presetItem{status: p}
	}
	m.presetList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 5 {
		listHeight = 5
	}
	m.presetList.SetSize(38, listHeight)
}
