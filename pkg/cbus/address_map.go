// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"fmt"
	"sort"
)

// AddressMap binds application addresses to the domain that decodes them.
//
// Mappings are added during setup by a single goroutine. Once shared, the map
// is read-only and safe for concurrent lookups.
type AddressMap struct {
	domains map[byte]Domain
}

// NewAddressMap creates an empty map
func NewAddressMap() *AddressMap {
	return &AddressMap{domains: make(map[byte]Domain)}
}

// AddMapping binds address to domain. Binding an address to the domain it
// already has is a no-op; binding it to another domain fails with
// ErrAddressConflict.
func (m *AddressMap) AddMapping(domain Domain, address byte) error {
	if existing, ok := m.domains[address]; ok {
		if existing == domain {
			return nil
		}
		return fmt.Errorf("address 0x%02X is %s, cannot bind to %s: %w", address, existing, domain, ErrAddressConflict)
	}
	m.domains[address] = domain
	return nil
}

// MustAddMapping is like AddMapping but panics on conflict
func (m *AddressMap) MustAddMapping(domain Domain, address byte) {
	if err := m.AddMapping(domain, address); err != nil {
		panic(err)
	}
}

// Lookup returns the domain bound to address
func (m *AddressMap) Lookup(address byte) (Domain, bool) {
	d, ok := m.domains[address]
	return d, ok
}

// Addresses returns every bound address in ascending order
func (m *AddressMap) Addresses() []byte {
	out := make([]byte, 0, len(m.domains))
	for a := range m.domains {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of bound addresses
func (m *AddressMap) Len() int {
	return len(m.domains)
}

// TryParseCommand decodes a received frame (including its checksum byte).
// It returns false when the application cannot be located, is not bound, or
// its sub-commands fail to decode.
func (m *AddressMap) TryParseCommand(frame []byte, monitored, shortForm bool) (*SALCommand, bool) {
	app, offset, ok := LocateApplicationID(frame, monitored, shortForm)
	if !ok {
		return nil, false
	}
	domain, ok := m.domains[app]
	if !ok {
		return nil, false
	}

	header := HeaderPM
	if !(monitored && shortForm) {
		header = DecodeHeader(frame[0])
	}
	return decodeSAL(domain, header, app, frame, offset)
}

// TryParseOutbound decodes a frame in the layout produced by SALCommand.Bytes
func (m *AddressMap) TryParseOutbound(frame []byte) (*SALCommand, bool) {
	if len(frame) < 2 {
		return nil, false
	}
	domain, ok := m.domains[frame[1]]
	if !ok {
		return nil, false
	}
	return DecodeOutbound(frame, domain)
}
