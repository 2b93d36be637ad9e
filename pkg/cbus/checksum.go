// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

// Checksum computes the C-Bus frame checksum: the two's complement of the
// modulo-256 sum of data. Appending the result to data makes the whole range
// sum to zero.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// VerifyChecksum reports whether frame, including its trailing checksum byte,
// sums to zero. An empty frame never verifies.
func VerifyChecksum(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	return Checksum(frame) == 0
}
