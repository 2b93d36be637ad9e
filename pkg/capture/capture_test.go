// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	start := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	records := []Record{
		{Time: start, Direction: DirectionTx, Data: []byte("~~")},
		{Time: start.Add(200 * time.Millisecond), Direction: DirectionRx, Data: []byte("~~")},
		{Time: start.Add(time.Second), Direction: DirectionRx, Data: []byte("0538007988C2\r\n")},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if w.Count() != len(records) {
		t.Errorf("Count() = %d, expected %d", w.Count(), len(records))
	}

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, expected %d", len(got), len(records))
	}
	for i := range records {
		if !got[i].Time.Equal(records[i].Time) {
			t.Errorf("record %d time = %s, expected %s", i, got[i].Time, records[i].Time)
		}
		if got[i].Direction != records[i].Direction {
			t.Errorf("record %d direction = %s", i, got[i].Direction)
		}
		if !bytes.Equal(got[i].Data, records[i].Data) {
			t.Errorf("record %d data = %q", i, got[i].Data)
		}
	}
}

func TestWriter_RecordCopiesData(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	data := []byte("g.")
	if err := w.Record(DirectionRx, data); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	data[0] = 'h'

	r := NewReader(&buf)
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if string(rec.Data) != "g." {
		t.Errorf("Data = %q, expected \"g.\"", rec.Data)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_Corrupt(t *testing.T) {
	_, err := ReadAll(bytes.NewReader([]byte{0xFF, 0x00, 0x13}))
	if err == nil {
		t.Error("expected error for corrupt stream")
	}
}

func TestDirection_String(t *testing.T) {
	if DirectionRx.String() != "rx" || DirectionTx.String() != "tx" {
		t.Error("unexpected direction names")
	}
}
