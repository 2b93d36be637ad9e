// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time `json:"start_time"`
	LastUpdateTime time.Time `json:"last_update_time"`

	// Counters
	TotalFrames         uint64 `json:"total_frames"`
	ValidFrames         uint64 `json:"valid_frames"`
	MonitoredFrames     uint64 `json:"monitored_frames"`
	Acks                uint64 `json:"acks"`
	Naks                uint64 `json:"naks"`
	ChecksumErrors      uint64 `json:"checksum_errors"`
	DecodeErrors        uint64 `json:"decode_errors"`
	UnboundApplications uint64 `json:"unbound_applications"`
	SentCommands        uint64 `json:"sent_commands"`

	// Rates (calculated)
	FrameRate float64 `json:"frame_rate"` // frames/sec
	ErrorRate float64 `json:"error_rate"` // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics for one parser result and its validation errors
func (s *Statistics) Update(mt MessageType, validationErrors []ValidationError) {
	switch {
	case mt == MessageAck:
		s.Acks++
		s.LastUpdateTime = time.Now()
		return
	case mt.IsNak():
		s.Naks++
		s.LastUpdateTime = time.Now()
		return
	case !mt.IsSAL():
		return
	}

	s.TotalFrames++
	if mt == MessageMonitoredSALReceived {
		s.MonitoredFrames++
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
	}
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyChecksumError:
			s.ChecksumErrors++
		case AnomalyTooShort, AnomalyUnlocatable, AnomalyDecodeError:
			s.DecodeErrors++
		case AnomalyUnboundApplication:
			s.UnboundApplications++
		}
	}

	s.LastUpdateTime = time.Now()
}

// RecordSent counts an outbound command
func (s *Statistics) RecordSent() {
	s.SentCommands++
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		errorCount := s.ChecksumErrors + s.DecodeErrors + s.Naks
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, checksumPercent, decodePercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
		decodePercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)
	result += fmt.Sprintf("Monitored:       %8d\n", s.MonitoredFrames)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodePercent)
	}
	if s.UnboundApplications > 0 {
		result += fmt.Sprintf("Unmapped Apps:   %8d\n", s.UnboundApplications)
	}
	if s.SentCommands > 0 {
		result += fmt.Sprintf("Sent Commands:   %8d\n", s.SentCommands)
		result += fmt.Sprintf("  ACK:              %5d\n", s.Acks)
		result += fmt.Sprintf("  NAK:              %5d\n", s.Naks)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
