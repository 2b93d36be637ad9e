// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session drives a C-Bus PC Interface: it opens the transport, runs
// the logon handshake, keeps the link alive and maps received commands onto
// named presets.
package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/transport"
	"go.uber.org/zap"
)

// keepAlive is sent when the link has been idle for KeepAliveInterval
var keepAlive = []byte{cbus.PrimaryEndChar, cbus.MonitoredEndChar}

// pendingCommand is a transmitted command waiting for its acknowledgement
type pendingCommand struct {
	cmd    *cbus.SALCommand
	sentAt time.Time
}

// Session owns one connection to a serial interface
type Session struct {
	ch      transport.Channel
	addrMap *cbus.AddressMap
	opts    Options

	// Loop goroutine only
	parser  *cbus.Parser
	state   *cbus.State
	cal     *cbus.CALBuilder
	confirm *cbus.ConfirmationSet
	pending map[byte]pendingCommand
	lastTx  time.Time

	queue chan *cbus.SALCommand

	mu          sync.Mutex
	presets     []*PresetStatus
	byName      map[string]*PresetStatus
	stats       *cbus.Statistics
	connected   bool
	subscribers map[chan Event]struct{}
}

// New creates a session. Preset names must be unique and every preset's
// application must be bound in addrMap.
func New(ch transport.Channel, addrMap *cbus.AddressMap, presets []Preset, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	s := &Session{
		ch:          ch,
		addrMap:     addrMap,
		opts:        opts,
		cal:         cbus.NewCALBuilder(),
		confirm:     cbus.NewConfirmationSet(opts.ConfirmationChars),
		pending:     make(map[byte]pendingCommand),
		queue:       make(chan *cbus.SALCommand, opts.QueueSize),
		byName:      make(map[string]*PresetStatus),
		stats:       cbus.NewStatistics(),
		subscribers: make(map[chan Event]struct{}),
	}
	s.parser = cbus.NewParser(cbus.Config{BufferSize: opts.BufferSize})
	s.state = s.parser.NewState()

	for _, p := range presets {
		if _, dup := s.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		domain, ok := addrMap.Lookup(p.Application)
		if !ok {
			return nil, fmt.Errorf("preset %q: application 0x%02X is not bound", p.Name, p.Application)
		}
		if domain != p.Domain {
			return nil, fmt.Errorf("preset %q: application 0x%02X is bound to %s, not %s: %w",
				p.Name, p.Application, domain, p.Domain, cbus.ErrAddressConflict)
		}
		ps := &PresetStatus{Preset: p}
		s.presets = append(s.presets, ps)
		s.byName[p.Name] = ps
	}

	return s, nil
}

// Run connects, logs on and serves the link until ctx is cancelled.
// A failed open or logon is retried after ReconnectDelay.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.connectAndServe(ctx)
		s.setConnected(false)
		_ = s.ch.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn("Connection lost",
			zap.String("channel", fmt.Sprint(s.ch)),
			zap.Error(err),
			zap.Duration("retry_in", s.opts.ReconnectDelay))

		if err := sleep(ctx, s.opts.ReconnectDelay); err != nil {
			return err
		}
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	if err := s.ch.Open(); err != nil {
		return fmt.Errorf("open %s: %w", s.ch, err)
	}
	if err := s.Logon(ctx); err != nil {
		return err
	}
	s.setConnected(true)
	logging.Info("Logon complete", zap.String("channel", fmt.Sprint(s.ch)), zap.Bool("short_form", s.cal.ShortForm()))
	return s.serve(ctx)
}

// Logon runs the interface setup sequence on an open channel: mode resets
// until the interface echoes '~', then application registration and the
// interface options.
func (s *Session) Logon(ctx context.Context) error {
	s.state.Reset()
	s.pending = make(map[byte]pendingCommand)

	reset := s.cal.Reset()
	ready := false
	for attempt := 1; attempt <= s.opts.LogonAttempts && !ready; attempt++ {
		for i := 0; i < 2; i++ {
			if err := s.send(reset.Wire()); err != nil {
				return err
			}
		}
		resp, err := s.awaitResponse(ctx)
		if err != nil {
			return err
		}
		logging.LogRawBytes("Reset response", resp)
		ready = bytes.IndexByte(resp, cbus.ModeResetChar) >= 0
	}
	if !ready {
		return fmt.Errorf("%w: no reply to mode reset after %d attempts", ErrLogonFailed, s.opts.LogonAttempts)
	}

	app1, app2 := s.monitoredApplications()
	options := cbus.Options1Connect | cbus.Options1SRCHK | cbus.Options1Idiom
	if s.opts.SmartMode {
		options |= cbus.Options1Smart
	}
	steps := []cbus.CALCommand{
		s.cal.RegisterApplication1Monitor(app1),
		s.cal.RegisterApplication2Monitor(app2),
		s.cal.SetOptions3(cbus.Options3LocalSAL),
		s.cal.SetOptions1(options),
	}
	for _, step := range steps {
		wire := step.Wire()
		if err := s.send(wire); err != nil {
			return err
		}
		resp, err := s.awaitResponse(ctx)
		if err != nil {
			return err
		}
		logging.Debug("CAL step", zap.Stringer("command", step), zap.String("response", cbus.FormatWire(resp)))
		if !calAccepted(resp, wire) {
			return fmt.Errorf("%w: %s rejected (response %q)", ErrLogonFailed, step, resp)
		}
	}

	s.state.Reset()
	return nil
}

// monitoredApplications picks the App_Address values: the bound
// applications when there are at most two, the wildcard otherwise.
func (s *Session) monitoredApplications() (byte, byte) {
	apps := s.addrMap.Addresses()
	switch len(apps) {
	case 1:
		return apps[0], apps[0]
	case 2:
		return apps[0], apps[1]
	default:
		return cbus.AppAddressWildcard, cbus.AppAddressWildcard
	}
}

// calAccepted reports whether resp acknowledges a CAL command: either the
// echoed command or, once echo is off, a hex reply.
func calAccepted(resp, wire []byte) bool {
	if bytes.HasPrefix(resp, wire) {
		return true
	}
	if len(resp) == 0 {
		return false
	}
	c := resp[0]
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

// awaitResponse waits ResponseDelay and then drains the channel
func (s *Session) awaitResponse(ctx context.Context) ([]byte, error) {
	if err := sleep(ctx, s.opts.ResponseDelay); err != nil {
		return nil, err
	}
	var resp []byte
	buf := make([]byte, 256)
	for {
		n, err := s.ch.Receive(buf)
		if err != nil {
			return resp, fmt.Errorf("receive: %w", err)
		}
		if n == 0 {
			return resp, nil
		}
		resp = append(resp, buf[:n]...)
	}
}

func (s *Session) serve(ctx context.Context) error {
	buf := make([]byte, 256)
	poll := time.NewTicker(s.opts.PollInterval)
	defer poll.Stop()
	s.lastTx = time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-s.queue:
			if err := s.transmit(cmd); err != nil {
				return err
			}

		case now := <-poll.C:
			if err := s.receive(buf); err != nil {
				return err
			}
			s.expirePending(now)
			if now.Sub(s.lastTx) >= s.opts.KeepAliveInterval {
				logging.Debug("Sending keep-alive")
				if err := s.send(keepAlive); err != nil {
					return err
				}
			}
		}
	}
}

// receive drains the channel through the parser
func (s *Session) receive(buf []byte) error {
	for {
		n, err := s.ch.Receive(buf)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if n == 0 {
			return nil
		}
		logging.LogRawBytes("RX", buf[:n])

		cursor := 0
		for cursor < n {
			if s.parser.ProcessChunk(buf[:n], &cursor, s.state) {
				s.handle()
				s.state.Reset()
			}
		}
	}
}

// handle dispatches one terminal parser result
func (s *Session) handle() {
	mt := s.state.MessageType()
	shortForm := s.cal.ShortForm()
	payload := s.state.Payload()

	errs := cbus.ValidateFrame(payload, mt, s.addrMap, shortForm)
	s.mu.Lock()
	s.stats.Update(mt, errs)
	s.mu.Unlock()

	switch {
	case mt == cbus.MessageAck:
		c, _ := s.state.AckCharacter()
		p, ok := s.pending[c]
		if !ok {
			logging.Debug("Acknowledgement for unknown command", zap.String("ack", cbus.FormatAckCharacter(c)))
			return
		}
		delete(s.pending, c)
		logging.Debug("Command acknowledged", zap.Stringer("command", p.cmd))
		s.apply(p.cmd)

	case mt.IsNak():
		c, _ := s.state.AckCharacter()
		if p, ok := s.pending[c]; ok {
			delete(s.pending, c)
			logging.Warn("Command rejected", zap.Stringer("result", mt), zap.Stringer("command", p.cmd))
			return
		}
		logging.Warn("Negative acknowledgement", zap.Stringer("result", mt), zap.String("ack", cbus.FormatAckCharacter(c)))

	case mt.IsSAL():
		if !s.state.ChecksumValid() {
			logging.Warn("Checksum mismatch", zap.String("frame", cbus.FormatHex(payload)))
			return
		}
		cmd, ok := s.addrMap.TryParseCommand(payload, mt == cbus.MessageMonitoredSALReceived, shortForm)
		if !ok {
			logging.Debug("Frame not decoded", zap.String("frame", cbus.FormatHex(payload)))
			return
		}
		logging.Debug("Command received", zap.Stringer("command", cmd))
		s.apply(cmd)
	}
}

// transmit sends cmd with the next confirmation character
func (s *Session) transmit(cmd *cbus.SALCommand) error {
	c := s.confirm.Next()
	if old, ok := s.pending[c]; ok {
		logging.Warn("Dropping unacknowledged command", zap.Stringer("command", old.cmd))
	}
	cmd.SetAckCharacter(c)
	if err := s.send(cmd.Wire()); err != nil {
		return err
	}
	s.pending[c] = pendingCommand{cmd: cmd, sentAt: time.Now()}

	s.mu.Lock()
	s.stats.RecordSent()
	s.mu.Unlock()
	return nil
}

func (s *Session) expirePending(now time.Time) {
	for c, p := range s.pending {
		if now.Sub(p.sentAt) > s.opts.AckTimeout {
			delete(s.pending, c)
			logging.Warn("Acknowledgement timeout", zap.Stringer("command", p.cmd))
		}
	}
}

func (s *Session) send(wire []byte) error {
	logging.LogFrame("TX", wire)
	if _, err := s.ch.Send(wire); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	s.lastTx = time.Now()
	return nil
}

// apply updates the presets addressed by cmd
func (s *Session) apply(cmd *cbus.SALCommand) {
	now := time.Now()
	app := cmd.Application()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Domain() {
	case cbus.DomainLighting:
		for _, l := range cmd.Lighting() {
			var active bool
			switch {
			case l.ID == cbus.LightingOn || l.ID == cbus.LightingOff:
				active = l.ID == cbus.LightingOn
			case l.ID.IsRamp():
				active = l.Level > 0
			default:
				continue
			}
			for _, p := range s.presets {
				if p.matchLighting(app, l) {
					s.updateLocked(p, active, l.TargetLevel(), false, now)
				}
			}
		}

	case cbus.DomainTrigger:
		for _, t := range cmd.Trigger() {
			if t.ID != cbus.TriggerEvent {
				continue
			}
			for _, p := range s.presets {
				if p.matchTrigger(app, t) {
					s.updateLocked(p, true, 0, true, now)
				}
			}
		}
	}
}

// updateLocked records a preset state and publishes an event when it
// changed (or always, when force is set)
func (s *Session) updateLocked(p *PresetStatus, active bool, level byte, force bool, now time.Time) {
	changed := force || !p.Known || p.Active != active || p.Level != level
	p.Known = true
	p.Active = active
	p.Level = level
	p.Updated = now
	if !changed {
		return
	}

	logging.Info("Preset changed", zap.String("preset", p.Name), zap.Bool("active", active), zap.Uint8("level", level))
	ev := Event{Time: now, Preset: p.Name, Active: active, Level: level}
	for sub := range s.subscribers {
		select {
		case sub <- ev:
		default:
			logging.Warn("Event subscriber full, dropping event", zap.String("preset", p.Name))
		}
	}
}

// Send queues a command for transmission
func (s *Session) Send(cmd *cbus.SALCommand) error {
	select {
	case s.queue <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// SetPreset switches a lighting preset on or off, or fires a trigger preset
func (s *Session) SetPreset(name string, active bool) error {
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	cmd, err := presetCommand(p, active)
	if err != nil {
		return err
	}
	return s.Send(cmd)
}

// SetLevel ramps a lighting preset to level over d
func (s *Session) SetLevel(name string, level byte, d time.Duration) error {
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	if p.Domain != cbus.DomainLighting {
		return fmt.Errorf("preset %q: %w", name, ErrUnsupported)
	}
	return s.Send(cbus.NewLightingRamp(p.Application, p.Group, level, d))
}

func (s *Session) lookup(name string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%q: %w", name, ErrUnknownPreset)
	}
	return p.Preset, nil
}

// Presets returns the state of every preset in configuration order
func (s *Session) Presets() []PresetStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PresetStatus, len(s.presets))
	for i, p := range s.presets {
		out[i] = *p
	}
	return out
}

// Preset returns the state of one preset
func (s *Session) Preset(name string) (PresetStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byName[name]
	if !ok {
		return PresetStatus{}, fmt.Errorf("%q: %w", name, ErrUnknownPreset)
	}
	return *p, nil
}

// Statistics returns a snapshot of the frame counters
func (s *Session) Statistics() cbus.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.CalculateRates()
	return *s.stats
}

// Connected reports whether the logon has completed on the current connection
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// Subscribe returns a channel of preset events. Events are dropped when
// the channel is full. The returned function unsubscribes.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
