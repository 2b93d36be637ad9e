// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

// CALBuilder creates the interface setup commands and remembers the last
// options it produced, so receivers know how the interface formats replies.
// Setup commands carry no checksum byte.
type CALBuilder struct {
	options1 Options1
	options3 Options3
	app1     byte
	app2     byte
}

// NewCALBuilder creates a builder for a freshly reset interface
func NewCALBuilder() *CALBuilder {
	return &CALBuilder{app1: AppAddressWildcard, app2: AppAddressWildcard}
}

// Reset returns the mode-reset command and forgets the tracked options
func (b *CALBuilder) Reset() ResetCommand {
	b.options1 = 0
	b.options3 = 0
	b.app1 = AppAddressWildcard
	b.app2 = AppAddressWildcard
	return ResetCommand{}
}

// RegisterApplication1Monitor selects the first application relayed to the host
func (b *CALBuilder) RegisterApplication1Monitor(app byte) CALCommand {
	b.app1 = app
	return NewCALCommand(ParamAppAddress1, app, false)
}

// RegisterApplication2Monitor selects the second application relayed to the host
func (b *CALBuilder) RegisterApplication2Monitor(app byte) CALCommand {
	b.app2 = app
	return NewCALCommand(ParamAppAddress2, app, false)
}

// SetOptions1 sets Interface Options 1
func (b *CALBuilder) SetOptions1(opts Options1) CALCommand {
	b.options1 = opts
	return NewCALCommand(ParamInterfaceOptions1, byte(opts), false)
}

// SetOptions1PowerUp sets the Interface Options 1 applied at power up
func (b *CALBuilder) SetOptions1PowerUp(opts Options1) CALCommand {
	return NewCALCommand(ParamInterfaceOptions1PowerUp, byte(opts), false)
}

// SetOptions3 sets Interface Options 3
func (b *CALBuilder) SetOptions3(opts Options3) CALCommand {
	b.options3 = opts
	return NewCALCommand(ParamInterfaceOptions3, byte(opts), false)
}

// SetBaud selects the interface baud rate
func (b *CALBuilder) SetBaud(selector byte) CALCommand {
	return NewCALCommand(ParamBaudSelector, selector, false)
}

// Options1 returns the last Interface Options 1 value
func (b *CALBuilder) Options1() Options1 {
	return b.options1
}

// Options3 returns the last Interface Options 3 value
func (b *CALBuilder) Options3() Options3 {
	return b.options3
}

// MonitoredApplications returns the registered application addresses
func (b *CALBuilder) MonitoredApplications() (byte, byte) {
	return b.app1, b.app2
}

// ShortForm reports whether monitored SAL arrives in short form, which is the
// case unless SMART mode is enabled
func (b *CALBuilder) ShortForm() bool {
	return b.options1&Options1Smart == 0
}

// Has reports whether every bit of flag is set
func (o Options1) Has(flag Options1) bool {
	return o&flag == flag
}
