// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

// MessageType classifies what the parser has received
type MessageType int

// Message classifications
const (
	MessageNone                 MessageType = iota // Nothing received
	MessageAck                                     // '.'
	MessageNak                                     // '#'
	MessageNakCorrupted                            // '$'
	MessageNakNoClock                              // '%'
	MessageNakTooLong                              // '\''
	MessageSALReceived                             // Complete SAL frame
	MessageMonitoredSALReceived                    // Complete SAL frame terminated by CR LF
	MessagePending                                 // Partially received, more data needed
)

// String returns the classification name
func (m MessageType) String() string {
	switch m {
	case MessageNone:
		return "NONE"
	case MessageAck:
		return "ACK"
	case MessageNak:
		return "NAK"
	case MessageNakCorrupted:
		return "NAK_CORRUPTED"
	case MessageNakNoClock:
		return "NAK_NO_CLOCK"
	case MessageNakTooLong:
		return "NAK_TOO_LONG"
	case MessageSALReceived:
		return "SAL_RECEIVED"
	case MessageMonitoredSALReceived:
		return "MONITORED_SAL_RECEIVED"
	case MessagePending:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

// IsNak reports whether m is one of the negative acknowledgements
func (m MessageType) IsNak() bool {
	switch m {
	case MessageNak, MessageNakCorrupted, MessageNakNoClock, MessageNakTooLong:
		return true
	}
	return false
}

// IsSAL reports whether m carries a SAL frame payload
func (m MessageType) IsSAL() bool {
	return m == MessageSALReceived || m == MessageMonitoredSALReceived
}
