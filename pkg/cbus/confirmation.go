// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

// DefaultConfirmationChars are the characters a serial interface accepts as
// acknowledgement requests ('w' is reserved)
const DefaultConfirmationChars = "ghijklmnopqrstuvxyz"

// ConfirmationSet hands out confirmation characters in rotation
type ConfirmationSet struct {
	chars []byte
	next  int
}

// NewConfirmationSet creates a rotation over chars, falling back to
// DefaultConfirmationChars when chars is empty
func NewConfirmationSet(chars string) *ConfirmationSet {
	if chars == "" {
		chars = DefaultConfirmationChars
	}
	return &ConfirmationSet{chars: []byte(chars)}
}

// Next returns the next character, wrapping around after the last one
func (s *ConfirmationSet) Next() byte {
	c := s.chars[s.next]
	s.next = (s.next + 1) % len(s.chars)
	return c
}

// Contains reports whether c belongs to the set
func (s *ConfirmationSet) Contains(c byte) bool {
	for _, x := range s.chars {
		if x == c {
			return true
		}
	}
	return false
}

// Len returns the number of characters in the rotation
func (s *ConfirmationSet) Len() int {
	return len(s.chars)
}
