// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package api exposes a session's presets over HTTP
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"github.com/Thermoquad/cbusstat/pkg/cbus"
	"github.com/Thermoquad/cbusstat/pkg/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Controller is the session surface served by the API
type Controller interface {
	Presets() []session.PresetStatus
	Preset(name string) (session.PresetStatus, error)
	SetPreset(name string, active bool) error
	SetLevel(name string, level byte, d time.Duration) error
	Statistics() cbus.Statistics
	Connected() bool
	Subscribe(buffer int) (<-chan session.Event, func())
}

// Preset is the JSON form of a preset and its state
type Preset struct {
	Name        string     `json:"name"`
	Domain      string     `json:"domain"`
	Application string     `json:"application"`
	Group       byte       `json:"group"`
	Action      *byte      `json:"action,omitempty"`
	Known       bool       `json:"known"`
	Active      bool       `json:"active"`
	Level       byte       `json:"level"`
	Updated     *time.Time `json:"updated,omitempty"`
}

// PresetUpdate is the PUT body. Level switches to a ramp over Ramp
// (a Go duration string, instant when empty).
type PresetUpdate struct {
	Active *bool  `json:"active,omitempty"`
	Level  *byte  `json:"level,omitempty"`
	Ramp   string `json:"ramp,omitempty"`
}

// Status is the GET /status body
type Status struct {
	Connected bool `json:"connected"`
}

// Event is one websocket event message
type Event struct {
	Time   time.Time `json:"time"`
	Preset string    `json:"preset"`
	Active bool      `json:"active"`
	Level  byte      `json:"level"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to a Controller
type Server struct {
	ctrl     Controller
	router   *mux.Router
	upgrader websocket.Upgrader
}

// New creates the API router
func New(ctrl Controller) *Server {
	s := &Server{ctrl: ctrl, router: mux.NewRouter()}

	s.router.HandleFunc("/presets", s.getPresets).Methods(http.MethodGet)
	s.router.HandleFunc("/presets/{name}", s.getPreset).Methods(http.MethodGet)
	s.router.HandleFunc("/presets/{name}", s.putPreset).Methods(http.MethodPut)
	s.router.HandleFunc("/presets/{name}/{action:on|off}", s.postAction).Methods(http.MethodPost)
	s.router.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/events", s.events).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	h := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- h.ListenAndServe() }()
	logging.Info("HTTP API listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.Shutdown(shutdownCtx)
	}
}

func (s *Server) getPresets(w http.ResponseWriter, r *http.Request) {
	presets := s.ctrl.Presets()
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = toPreset(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.ctrl.Preset(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreset(p))
}

func (s *Server) putPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var u PresetUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}

	var err error
	switch {
	case u.Level != nil:
		var d time.Duration
		if u.Ramp != "" {
			if d, err = time.ParseDuration(u.Ramp); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid ramp: %v", err)})
				return
			}
		}
		err = s.ctrl.SetLevel(name, *u.Level, d)
	case u.Active != nil:
		err = s.ctrl.SetPreset(name, *u.Active)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body needs active or level"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ctrl.SetPreset(vars["name"], vars["action"] == "on"); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Statistics())
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Status{Connected: s.ctrl.Connected()})
}

// events streams preset events over a websocket until the client leaves
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.ctrl.Subscribe(32)
	defer unsubscribe()

	// Reader detects the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			msg := Event{Time: ev.Time, Preset: ev.Preset, Active: ev.Active, Level: ev.Level}
			if err := conn.WriteJSON(msg); err != nil {
				logging.Debug("Websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func toPreset(p session.PresetStatus) Preset {
	out := Preset{
		Name:        p.Name,
		Domain:      strings.ToLower(p.Domain.String()),
		Application: fmt.Sprintf("0x%02X", p.Application),
		Group:       p.Group,
		Known:       p.Known,
		Active:      p.Active,
		Level:       p.Level,
	}
	if p.Domain == cbus.DomainTrigger {
		action := p.Action
		out.Action = &action
	}
	if !p.Updated.IsZero() {
		updated := p.Updated
		out.Updated = &updated
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrUnknownPreset):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrUnsupported):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Response write failed", zap.Error(err))
	}
}
