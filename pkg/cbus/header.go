// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "fmt"

// Priority makes up the top 2 bits of a SAL header
type Priority byte

// Priority classes, lowest first
const (
	PriorityClass4 Priority = 0x00
	PriorityClass3 Priority = 0x01
	PriorityClass2 Priority = 0x02
	PriorityClass1 Priority = 0x03
)

// AddressType makes up the low 3 bits of a SAL header and determines how many
// address bytes follow the header
type AddressType byte

// Address types
const (
	AddressPointToPointToMultipoint AddressType = 0x03 // 2 byte address + route list
	AddressPointToMultipoint        AddressType = 0x05 // No address
	AddressPointToPoint             AddressType = 0x06 // 1 byte address
)

// String returns the address type name
func (a AddressType) String() string {
	switch a {
	case AddressPointToPointToMultipoint:
		return "PPM"
	case AddressPointToMultipoint:
		return "PM"
	case AddressPointToPoint:
		return "PP"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(a))
	}
}

// Header is the first byte of a locally originated SAL frame
type Header struct {
	Priority    Priority
	AddressType AddressType
}

// Predefined lowest-priority headers
var (
	HeaderPPM = Header{Priority: PriorityClass4, AddressType: AddressPointToPointToMultipoint}
	HeaderPM  = Header{Priority: PriorityClass4, AddressType: AddressPointToMultipoint}
	HeaderPP  = Header{Priority: PriorityClass4, AddressType: AddressPointToPoint}
)

// EncodeHeader packs a priority and address type into a header byte
func EncodeHeader(p Priority, t AddressType) byte {
	return byte(p&0x03)<<6 | byte(t)
}

// Byte returns the wire form of the header
func (h Header) Byte() byte {
	return EncodeHeader(h.Priority, h.AddressType)
}

// DecodeHeader unpacks a header byte.
//
// An unrecognised address type degrades to AddressPointToPoint instead of
// failing, matching what serial interfaces in the field expect.
func DecodeHeader(b byte) Header {
	h := Header{Priority: Priority(b >> 6)}
	switch t := AddressType(b & 0x07); t {
	case AddressPointToPointToMultipoint, AddressPointToMultipoint, AddressPointToPoint:
		h.AddressType = t
	default:
		h.AddressType = AddressPointToPoint
	}
	return h
}

// String returns a short description of the header
func (h Header) String() string {
	return fmt.Sprintf("%s/P%d", h.AddressType, h.Priority)
}
