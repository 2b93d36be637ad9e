// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Thermoquad/cbusstat/pkg/capture"
)

// Interface conformance
var (
	_ Channel = (*SerialChannel)(nil)
	_ Channel = (*TCPChannel)(nil)
	_ Channel = (*WebSocketChannel)(nil)
	_ Channel = (*NullChannel)(nil)
	_ Channel = (*Tap)(nil)
	_ Channel = (*ReplayChannel)(nil)
)

// receiveUntil polls ch until want bytes arrived or the deadline passes
func receiveUntil(t *testing.T, ch Channel, want int) []byte {
	t.Helper()
	var got []byte
	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want && time.Now().Before(deadline) {
		n, err := ch.Receive(buf)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		got = append(got, buf[:n]...)
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	return got
}

func TestNullChannel(t *testing.T) {
	ch := NewNullChannel(func(sent []byte) []byte {
		if bytes.Equal(sent, []byte("~")) {
			return []byte("~")
		}
		return nil
	})

	if _, err := ch.Send([]byte("~")); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Send before Open: expected ErrNotOpen, got %v", err)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ch.Send([]byte("~"))
	ch.Inject([]byte("g."))

	buf := make([]byte, 2)
	n, _ := ch.Receive(buf)
	if string(buf[:n]) != "~g" {
		t.Errorf("first Receive = %q", buf[:n])
	}
	n, _ = ch.Receive(buf)
	if string(buf[:n]) != "." {
		t.Errorf("second Receive = %q", buf[:n])
	}
	if n, _ = ch.Receive(buf); n != 0 {
		t.Errorf("empty Receive = %d", n)
	}
	if sent := ch.Sent(); len(sent) != 1 || string(sent[0]) != "~" {
		t.Errorf("Sent() = %q", sent)
	}

	ch.FailOpen(errors.New("no port"))
	ch.Close()
	if err := ch.Open(); err == nil {
		t.Error("expected Open failure")
	}
}

func TestTap_RecordsBothDirections(t *testing.T) {
	var buf bytes.Buffer
	w := capture.NewWriter(&buf)

	inner := NewNullChannel(nil)
	tap := NewTap(inner, w)
	tap.Open()
	tap.Send([]byte("\\0538007988C2g\r"))
	inner.Inject([]byte("g."))
	rx := make([]byte, 8)
	tap.Receive(rx)
	tap.Receive(rx) // nothing pending, nothing recorded

	records, err := capture.ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Direction != capture.DirectionTx || records[1].Direction != capture.DirectionRx {
		t.Errorf("directions = %s, %s", records[0].Direction, records[1].Direction)
	}
	if string(records[1].Data) != "g." {
		t.Errorf("rx data = %q", records[1].Data)
	}
}

func TestReplayChannel(t *testing.T) {
	start := time.Now()
	records := []capture.Record{
		{Time: start, Direction: capture.DirectionTx, Data: []byte("~")},
		{Time: start, Direction: capture.DirectionRx, Data: []byte("0538")},
		{Time: start.Add(time.Second), Direction: capture.DirectionRx, Data: []byte("007988C2\r")},
	}

	t.Run("stepped", func(t *testing.T) {
		r := NewReplayChannel(records, false)
		r.Open()
		buf := make([]byte, 64)

		n, _ := r.Receive(buf)
		if string(buf[:n]) != "0538" {
			t.Errorf("first = %q", buf[:n])
		}
		n, _ = r.Receive(buf)
		if string(buf[:n]) != "007988C2\r" {
			t.Errorf("second = %q", buf[:n])
		}
		if !r.Done() {
			t.Error("expected Done")
		}
		if _, err := r.Receive(buf); !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("expected ErrConnectionClosed, got %v", err)
		}
	})

	t.Run("realtime", func(t *testing.T) {
		r := NewReplayChannel(records, true)
		clock := start
		r.now = func() time.Time { return clock }
		r.Open()
		buf := make([]byte, 64)

		if n, _ := r.Receive(buf); n != 4 {
			t.Fatalf("first record should be due, got %d bytes", n)
		}
		if n, _ := r.Receive(buf); n != 0 {
			t.Fatalf("second record is not due yet, got %d bytes", n)
		}
		clock = clock.Add(time.Second)
		if n, _ := r.Receive(buf); n != 9 {
			t.Fatalf("second record should be due, got %d bytes", n)
		}
	})
}

func TestTCPChannel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		conn.Write(bytes.ToUpper(buf[:n]))
	}()

	ch := NewTCPChannel(ln.Addr().String())
	if _, err := ch.Receive(make([]byte, 4)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ch.Close()

	if n, err := ch.Receive(make([]byte, 4)); n != 0 || err != nil {
		t.Errorf("idle Receive = %d, %v", n, err)
	}
	if _, err := ch.Send([]byte("g.")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := receiveUntil(t, ch, 2); string(got) != "G." {
		t.Errorf("received %q", got)
	}
}

func TestTCPChannel_DefaultPort(t *testing.T) {
	ch := NewTCPChannel("192.0.2.1")
	if !strings.HasSuffix(ch.String(), ":10001") {
		t.Errorf("String() = %q", ch.String())
	}
}

func TestWebSocketChannel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(mt, data)
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	bad := NewWebSocketChannel(wsURL, "admin", "wrong", false)
	if err := bad.Open(); err == nil {
		t.Error("expected auth failure")
	}

	ch := NewWebSocketChannel(wsURL, "admin", "secret", false)
	if err := ch.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !ch.IsOpen() {
		t.Fatal("expected open channel")
	}
	if _, err := ch.Send([]byte("~~")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := receiveUntil(t, ch, 2); string(got) != "~~" {
		t.Errorf("received %q", got)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := ch.Receive(make([]byte, 4)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after Close, got %v", err)
	}
}

func TestWebSocketChannel_BadScheme(t *testing.T) {
	ch := NewWebSocketChannel("http://localhost", "", "", false)
	if err := ch.Open(); err == nil {
		t.Error("expected scheme error")
	}
}
