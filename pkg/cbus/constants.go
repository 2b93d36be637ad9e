// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package cbus provides a Go implementation of the C-Bus serial interface protocol.
//
// C-Bus frames are ASCII-hex encoded: each byte travels as two hex digits between
// a framing-start character and a carriage return. This package provides the
// incremental frame parser, checksum and header codecs, the SAL command model for
// the lighting and trigger applications, CAL (device management) commands and the
// application address map that routes received frames to the right decoder.
//
// The package performs no I/O and does no logging. Transports live in
// pkg/transport and the device orchestration in pkg/session.
package cbus

// Framing characters
const (
	StartChar        = '\\' // Frame start for SAL commands
	DirectCALChar    = '@'  // Direct CAL access, bypasses addressing
	ModeResetChar    = '~'  // Serial interface mode reset
	CancelChar       = '?'  // Discards the partially received command
	PrimaryEndChar   = '\r' // Frame terminator
	MonitoredEndChar = '\n' // Follows the terminator on monitored frames
)

// Acknowledgement characters, sent by the interface after a confirmation character
const (
	AckChar          = '.'  // Positive acknowledgement
	NakChar          = '#'  // Too many retries
	NakCorruptedChar = '$'  // Corruption
	NakNoClockChar   = '%'  // Loss of C-Bus clock
	NakTooLongChar   = '\'' // Maximum message length exceeded
)

// Size limits
const (
	// MaxMessageLength is the number of characters allowed between the
	// framing-start character and the terminator.
	MaxMessageLength  = 45
	DefaultBufferSize = 128
)

// RouteHeaderDivisor converts a route header byte into a route count.
const RouteHeaderDivisor = 0x09

// calPrefix opens every CAL parameter-set command.
const calPrefix = 0xA3

// longFormFlag marks an extended (long form) SAL sub-command.
const longFormFlag = 0x80

// longFormLengthMask extracts the length of a long form sub-command.
const longFormLengthMask = 0x1F

// Application addresses
const (
	AppLightingBase      = 0x30
	AppLightingDefault   = 0x38
	AppLightingMax       = 0x5F
	AppTrigger           = 0xCA
	AppHeating           = 0x88
	AppRoomControl       = 0x26
	AppSecurity          = 0xD0
	AppMetering          = 0xD1
	AppTemperature       = 0x19
	AppNetworkManagement = 0xFF
)

// IsLightingApplication reports whether addr falls in the lighting range.
func IsLightingApplication(addr byte) bool {
	return addr >= AppLightingBase && addr <= AppLightingMax
}

// Parameter is a serial interface CAL parameter number
type Parameter byte

// CAL parameters
const (
	ParamAppAddress1              Parameter = 0x21
	ParamAppAddress2              Parameter = 0x22
	ParamInterfaceOptions1        Parameter = 0x30
	ParamBaudSelector             Parameter = 0x3D
	ParamInterfaceOptions2        Parameter = 0x3E
	ParamInterfaceOptions1PowerUp Parameter = 0x41
	ParamInterfaceOptions3        Parameter = 0x42
	ParamCustomManufacturer       Parameter = 0xEB
	ParamSerialNumber             Parameter = 0xF3
	ParamManagement               Parameter = 0xF7
)

// String returns the parameter name
func (p Parameter) String() string {
	switch p {
	case ParamAppAddress1:
		return "APP_ADDRESS_1"
	case ParamAppAddress2:
		return "APP_ADDRESS_2"
	case ParamInterfaceOptions1:
		return "INTERFACE_OPTIONS_1"
	case ParamBaudSelector:
		return "BAUD_SELECTOR"
	case ParamInterfaceOptions2:
		return "INTERFACE_OPTIONS_2"
	case ParamInterfaceOptions1PowerUp:
		return "INTERFACE_OPTIONS_1_POWER_UP"
	case ParamInterfaceOptions3:
		return "INTERFACE_OPTIONS_3"
	case ParamCustomManufacturer:
		return "CUSTOM_MANUFACTURER"
	case ParamSerialNumber:
		return "SERIAL_NUMBER"
	case ParamManagement:
		return "MANAGEMENT"
	default:
		return "UNKNOWN"
	}
}

// AppAddressWildcard makes the interface monitor every application.
const AppAddressWildcard = 0xFF

// BaudSelector values for ParamBaudSelector
const (
	Baud9600 = 0xFF
	Baud4800 = 0x01
	Baud2400 = 0x02
)

// Options1 are the Interface Options 1 bits (parameter 0x30)
type Options1 byte

// Interface Options 1 bits
const (
	Options1Connect Options1 = 0x01 // Logical connection between C-Bus and the serial port
	Options1XonXoff Options1 = 0x04 // XON/XOFF handshaking
	Options1SRCHK   Options1 = 0x08 // Checksums on all received serial data
	Options1Smart   Options1 = 0x10 // No echo, full path information in monitored SAL
	Options1Monitor Options1 = 0x20 // Relay status reports for applications 0x21/0x22
	Options1Idiom   Options1 = 0x40 // Smart-mode formatting for command replies
)

// Options3 are the Interface Options 3 bits (parameter 0x42)
type Options3 byte

// Interface Options 3 bits
const (
	Options3PCN      Options3 = 0x01 // Notify configuration changes made over C-Bus
	Options3LocalSAL Options3 = 0x02 // Recommended setting
	Options3PUN      Options3 = 0x04 // Power up notification
	Options3ExStat   Options3 = 0x08 // Long form status replies
)
