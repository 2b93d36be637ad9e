// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/Thermoquad/cbusstat/internal/logging"
	"go.uber.org/zap"
)

// DefaultBaudRate is the C-Bus serial interface rate
const DefaultBaudRate = 9600

// SerialChannel wraps a serial port
type SerialChannel struct {
	portName    string
	baudRate    int
	pollTimeout time.Duration

	mu   sync.Mutex
	port serial.Port
}

// NewSerialChannel creates an unopened serial channel (8N1)
func NewSerialChannel(portName string, baudRate int) *SerialChannel {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialChannel{portName: portName, baudRate: baudRate, pollTimeout: DefaultPollTimeout}
}

// Open opens the serial port
func (s *SerialChannel) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.portName, err)
	}
	if err := port.SetReadTimeout(s.pollTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", s.portName, err)
	}

	s.port = port
	logging.Info("Serial port opened", zap.String("port", s.portName), zap.Int("baud", s.baudRate))
	return nil
}

// Close closes the serial port
func (s *SerialChannel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// IsOpen reports whether the port is open
func (s *SerialChannel) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Send writes p to the port
func (s *SerialChannel) Send(p []byte) (int, error) {
	port, err := s.current()
	if err != nil {
		return 0, err
	}
	return port.Write(p)
}

// Receive reads whatever arrives within the poll timeout
func (s *SerialChannel) Receive(p []byte) (int, error) {
	port, err := s.current()
	if err != nil {
		return 0, err
	}
	return port.Read(p)
}

// Flush waits until all written bytes have been transmitted
func (s *SerialChannel) Flush() error {
	port, err := s.current()
	if err != nil {
		return err
	}
	return port.Drain()
}

// String describes the channel
func (s *SerialChannel) String() string {
	return fmt.Sprintf("Serial: %s @ %d baud", s.portName, s.baudRate)
}

func (s *SerialChannel) current() (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, ErrNotOpen
	}
	return s.port, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
