// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "fmt"

// Parser phases (internal)
const (
	phaseIdle = iota
	phaseAckPending
	phaseStxFound
	phaseHighNibble // Expecting a high nibble or the terminator
	phaseLowNibble  // Expecting the low nibble of the current byte
	phaseComplete
)

// Config configures a Parser
type Config struct {
	// BufferSize is the payload capacity of every State created by the
	// parser. Zero selects DefaultBufferSize.
	BufferSize int
}

// Parser implements the C-Bus incremental frame parser.
//
// The parser holds no per-conversation data; all progress lives in the State
// passed to ProcessChunk, so one Parser can serve any number of links.
type Parser struct {
	bufferSize int
}

// NewParser creates a new frame parser
func NewParser(cfg Config) *Parser {
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Parser{bufferSize: size}
}

// NewState creates a parser state with a payload buffer of the configured size
func (p *Parser) NewState() *State {
	return &State{
		phase:       phaseIdle,
		buffer:      make([]byte, p.bufferSize),
		messageType: MessagePending,
	}
}

// State is the caller-owned progress of one conversation
type State struct {
	phase       int
	buffer      []byte
	length      int
	previous    byte
	ackChar     byte
	hasAckChar  bool
	messageType MessageType
	checksum    byte
	processed   int
}

// Reset returns the state to idle and discards any partial frame
func (s *State) Reset() {
	s.phase = phaseIdle
	s.length = 0
	s.previous = 0
	s.ackChar = 0
	s.hasAckChar = false
	s.messageType = MessagePending
	s.checksum = 0
}

// Payload returns the decoded frame bytes, including the trailing checksum.
// The slice aliases the state buffer and is only valid until the next call
// to ProcessChunk or Reset.
func (s *State) Payload() []byte {
	return s.buffer[:s.length]
}

// MessageType returns the current classification
func (s *State) MessageType() MessageType {
	return s.messageType
}

// AckCharacter returns the confirmation character preceding an ACK or NAK
func (s *State) AckCharacter() (byte, bool) {
	return s.ackChar, s.hasAckChar
}

// Checksum returns the checksum calculated over the completed payload.
// A correctly received frame yields zero.
func (s *State) Checksum() byte {
	return s.checksum
}

// ChecksumValid reports whether a completed frame passed checksum verification
func (s *State) ChecksumValid() bool {
	return s.messageType.IsSAL() && s.length > 0 && s.checksum == 0
}

// BytesProcessed returns the number of characters consumed by the last ProcessChunk call
func (s *State) BytesProcessed() int {
	return s.processed
}

// Capacity returns the payload buffer capacity
func (s *State) Capacity() int {
	return len(s.buffer)
}

// String returns a short debug description of the state
func (s *State) String() string {
	return fmt.Sprintf("phase=%s type=%s len=%d/%d checksum=0x%02X",
		phaseName(s.phase), s.messageType, s.length, len(s.buffer), s.checksum)
}

// ProcessChunk feeds data[*cursor:] through the parser, advancing *cursor past
// every consumed character.
//
// It returns true as soon as st reaches a terminal classification, possibly
// leaving characters unconsumed, and false when the chunk is exhausted while
// the frame is still pending. Callers keep st and pass the next chunk.
//
// After a frame completes with '\r' the parser looks at one more character of
// the current chunk: a '\n' upgrades the frame to monitored and is consumed.
// A '\n' that only arrives with the next chunk does not change a result that
// has already been returned.
func (p *Parser) ProcessChunk(data []byte, cursor *int, st *State) bool {
	start := *cursor
	defer func() { st.processed = *cursor - start }()

	for *cursor < len(data) {
		c := data[*cursor]
		*cursor++

		if st.step(c) {
			if st.messageType == MessageSALReceived && *cursor < len(data) && data[*cursor] == MonitoredEndChar {
				st.messageType = MessageMonitoredSALReceived
				*cursor++
			}
			return true
		}
	}
	return false
}

// step runs one character through the state machine and reports whether a
// terminal classification was reached
func (s *State) step(c byte) bool {
	defer func() { s.previous = c }()

	switch s.phase {
	case phaseIdle, phaseComplete:
		return s.stepIdle(c)

	case phaseStxFound:
		if _, ok := hexValue(c); ok {
			s.phase = phaseLowNibble
			return false
		}
		s.fail()
		return false

	case phaseAckPending:
		if mt, ok := ackMessageType(c); ok {
			s.ackChar = s.previous
			s.hasAckChar = true
			s.messageType = mt
			s.phase = phaseComplete
			return true
		}
		// Unknown code: the candidate and c are both discarded
		s.fail()
		return false

	case phaseHighNibble:
		if c == PrimaryEndChar {
			s.checksum = Checksum(s.buffer[:s.length])
			s.messageType = MessageSALReceived
			s.phase = phaseComplete
			return true
		}
		if _, ok := hexValue(c); ok {
			s.phase = phaseLowNibble
			return false
		}
		s.fail()
		return false

	case phaseLowNibble:
		lo, ok := hexValue(c)
		if !ok {
			s.fail()
			return false
		}
		if s.length >= len(s.buffer) {
			s.fail()
			return false
		}
		hi, _ := hexValue(s.previous)
		s.buffer[s.length] = hi<<4 | lo
		s.length++
		s.phase = phaseHighNibble
		return false

	default:
		s.fail()
		return false
	}
}

// stepIdle handles a character while no frame is in progress
func (s *State) stepIdle(c byte) bool {
	if s.phase == phaseComplete {
		s.Reset()
	}

	switch {
	case c == StartChar:
		s.phase = phaseStxFound
	case isHex(c):
		// Some interfaces strip the framing-start character; treat the digit
		// as the high nibble of the first byte.
		s.phase = phaseLowNibble
	default:
		s.phase = phaseAckPending
	}
	s.messageType = MessagePending
	return false
}

// fail discards the candidate frame
func (s *State) fail() {
	s.Reset()
}

// ackMessageType maps an acknowledgement character to its classification
func ackMessageType(c byte) (MessageType, bool) {
	switch c {
	case AckChar:
		return MessageAck, true
	case NakChar:
		return MessageNak, true
	case NakCorruptedChar:
		return MessageNakCorrupted, true
	case NakNoClockChar:
		return MessageNakNoClock, true
	case NakTooLongChar:
		return MessageNakTooLong, true
	}
	return MessageNone, false
}

func isHex(c byte) bool {
	_, ok := hexValue(c)
	return ok
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

func phaseName(phase int) string {
	switch phase {
	case phaseIdle:
		return "IDLE"
	case phaseAckPending:
		return "ACK_PENDING"
	case phaseStxFound:
		return "STX_FOUND"
	case phaseHighNibble:
		return "HIGH_NIBBLE"
	case phaseLowNibble:
		return "LOW_NIBBLE"
	case phaseComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}
