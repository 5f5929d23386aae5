package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFormat(t *testing.T) {
	ok := format(Event{Identity: "A", Index: "000", Transcription: "מה זה מחרוזת", Answer: "רצף תווים"})
	if !strings.Contains(ok, "OK") || !strings.Contains(ok, "A/000") || !strings.Contains(ok, "מחרוזת") {
		t.Errorf("unexpected exchange line: %s", ok)
	}

	fail := format(Event{Identity: "A", Index: "001", Step: "generate", Error: "model overloaded"})
	if !strings.Contains(fail, "FAIL") || !strings.Contains(fail, "at generate") {
		t.Errorf("unexpected failure line: %s", fail)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("שלום עולם", 4); got != "שלום..." {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := newHub()
	srv := httptest.NewServer(wsHandler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.count() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.count())
	}

	hub.broadcast(Event{EventType: "ivr.exchange.completed", Identity: "A", Index: "000"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Identity != "A" || got.Index != "000" {
		t.Errorf("unexpected event %+v", got)
	}
}
