// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"audiostream/pkg/utils"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	m := Multi{a, b}

	if err := m.Send("hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	for i, mt := range []*utils.MockTransport{a, b} {
		if got := mt.Messages(); len(got) != 1 || got[0] != "hello" {
			t.Errorf("transport %d got %v, want [hello]", i, got)
		}
	}

	// A closed member reports its error but does not stop delivery.
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Send("again"); !errors.Is(err, utils.ErrTransportClosed) {
		t.Errorf("Send() error = %v, want %v", err, utils.ErrTransportClosed)
	}
	if got := len(b.Messages()); got != 2 {
		t.Errorf("second transport has %d messages, want 2", got)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !b.Closed() {
		t.Error("Close() did not reach every transport")
	}
}

func TestLoggingTransportCounts(t *testing.T) {
	lt := NewLoggingTransport()
	for i := range 3 {
		if err := lt.Send(i); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if got := lt.Sent(); got != 3 {
		t.Errorf("Sent() = %d, want 3", got)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return wst.ClientCount() == 1 })

	msg := map[string]any{"type": "kick", "position": 640}
	if err := wst.Send(msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got map[string]any
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got["type"] != "kick" || got["position"] != float64(640) {
		t.Errorf("received %v, want %v", got, msg)
	}

	conn.Close()
	waitFor(t, func() bool { return wst.ClientCount() == 0 })
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wst.Send("late"); err == nil {
		t.Error("Send() after Close() succeeded")
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWebSocketListenError(t *testing.T) {
	if _, err := NewWebSocketTransport("256.0.0.1:bogus"); err == nil {
		t.Error("NewWebSocketTransport() with a bad address succeeded")
	}
}
