// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cbus

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

var validLightingIDs = func() []LightingCommandID {
	ids := []LightingCommandID{LightingOff, LightingOn, LightingTerminateRamp}
	for _, r := range rampDurations {
		ids = append(ids, r.id)
	}
	return ids
}()

var validTriggerIDs = []TriggerCommandID{TriggerMin, TriggerMax, TriggerEvent, TriggerKill}

// randomCommand builds a random lighting or trigger SAL command
func randomCommand(rng *rand.Rand) *SALCommand {
	n := 1 + rng.Intn(4)
	if rng.Intn(2) == 0 {
		cmds := make([]LightingCommand, n)
		for i := range cmds {
			cmds[i] = LightingCommand{
				ID:    validLightingIDs[rng.Intn(len(validLightingIDs))],
				Group: byte(rng.Intn(256)),
			}
			if cmds[i].ID.IsRamp() {
				cmds[i].Level = byte(rng.Intn(256))
			}
		}
		cmd, err := NewLightingCommand(HeaderPM, AppLightingDefault, cmds...)
		if err != nil {
			panic(err)
		}
		return cmd
	}

	cmds := make([]TriggerCommand, n)
	for i := range cmds {
		cmds[i] = TriggerCommand{
			ID:    validTriggerIDs[rng.Intn(len(validTriggerIDs))],
			Group: byte(rng.Intn(256)),
		}
		if cmds[i].ID == TriggerEvent {
			cmds[i].Action = byte(rng.Intn(256))
		}
	}
	cmd, err := NewTriggerCommand(HeaderPM, AppTrigger, cmds...)
	if err != nil {
		panic(err)
	}
	return cmd
}

// ============================================================
// Parser Fuzz Tests
// ============================================================

// TestFuzz_RandomBytesNeverOverflow feeds random garbage through the parser
func TestFuzz_RandomBytesNeverOverflow(t *testing.T) {
	rng := newFuzzRng(t)
	p := NewParser(Config{BufferSize: 8})
	st := p.NewState()

	for i := 0; i < getFuzzRounds(); i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)

		cursor := 0
		for cursor < len(data) {
			before := cursor
			p.ProcessChunk(data, &cursor, st)
			if cursor <= before {
				t.Fatalf("round %d: cursor did not advance from %d", i, before)
			}
			if len(st.Payload()) > st.Capacity() {
				t.Fatalf("round %d: payload %d exceeds capacity %d", i, len(st.Payload()), st.Capacity())
			}
		}
	}
}

// TestFuzz_RoundTripRandomChunks encodes random commands, splits the wire form
// into random chunks and checks the decoded result
func TestFuzz_RoundTripRandomChunks(t *testing.T) {
	rng := newFuzzRng(t)
	m := referenceMap()
	p := NewParser(Config{})
	st := p.NewState()

	for i := 0; i < getFuzzRounds(); i++ {
		cmd := randomCommand(rng)
		wire := cmd.Wire()

		var chunks []string
		rest := wire
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			chunks = append(chunks, string(rest[:n]))
			rest = rest[n:]
		}

		st.Reset()
		done, completions := feed(p, st, chunks...)
		if !done || completions != 1 {
			t.Fatalf("round %d: %q in %d chunks: done=%v completions=%d", i, wire, len(chunks), done, completions)
		}
		if !bytes.Equal(st.Payload(), cmd.Bytes()) {
			t.Fatalf("round %d: Payload() = % X, expected % X", i, st.Payload(), cmd.Bytes())
		}
		if !st.ChecksumValid() {
			t.Fatalf("round %d: checksum invalid", i)
		}

		decoded, ok := m.TryParseCommand(st.Payload(), false, false)
		if !ok {
			t.Fatalf("round %d: TryParseCommand(% X) failed", i, st.Payload())
		}
		if !bytes.Equal(decoded.Bytes(), cmd.Bytes()) {
			t.Fatalf("round %d: re-encoded % X, expected % X", i, decoded.Bytes(), cmd.Bytes())
		}
	}
}

// TestFuzz_CorruptedFramesNeverPanic flips and truncates bytes in valid frames
func TestFuzz_CorruptedFramesNeverPanic(t *testing.T) {
	rng := newFuzzRng(t)
	m := referenceMap()

	for i := 0; i < getFuzzRounds(); i++ {
		frame := randomCommand(rng).Bytes()
		frame[rng.Intn(len(frame))] ^= byte(1 + rng.Intn(255))
		frame = frame[:rng.Intn(len(frame)+1)]

		for _, monitored := range []bool{false, true} {
			for _, short := range []bool{false, true} {
				m.TryParseCommand(frame, monitored, short)
				ValidateFrame(frame, MessageSALReceived, m, short)
			}
		}
	}
}
