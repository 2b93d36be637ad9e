// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import "testing"

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{name: "lighting on", data: []byte{0x05, 0x38, 0x00, 0x79, 0x88}, expected: 0xC2},
		{name: "with checksum appended", data: []byte{0x05, 0x38, 0x00, 0x79, 0x88, 0xC2}, expected: 0x00},
		{name: "trigger event", data: []byte{0x05, 0xCA, 0x00, 0x02, 0x25, 0x01}, expected: 0x09},
		{name: "empty", data: []byte{}, expected: 0x00},
		{name: "single 0x01", data: []byte{0x01}, expected: 0xFF},
		{name: "wraps past 256", data: []byte{0xFF, 0xFF}, expected: 0x02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.expected {
				t.Errorf("Checksum(% X) = 0x%02X, expected 0x%02X", tt.data, got, tt.expected)
			}
		})
	}
}

func TestChecksum_AppendedSumsToZero(t *testing.T) {
	rng := newFuzzRng(t)
	for i := 0; i < getFuzzRounds(); i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)
		frame := append(data, Checksum(data))
		if Checksum(frame) != 0 {
			t.Fatalf("round %d: Checksum(% X) != 0", i, frame)
		}
		if !VerifyChecksum(frame) {
			t.Fatalf("round %d: VerifyChecksum(% X) = false", i, frame)
		}
	}
}

func TestVerifyChecksum(t *testing.T) {
	if VerifyChecksum(nil) {
		t.Error("empty frame should not verify")
	}
	if !VerifyChecksum([]byte{0x05, 0x38, 0x00, 0x79, 0x88, 0xC2}) {
		t.Error("reference frame should verify")
	}
	if VerifyChecksum([]byte{0x05, 0x38, 0x00, 0x79, 0x88, 0xC3}) {
		t.Error("corrupted frame should not verify")
	}
}
