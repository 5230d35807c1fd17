package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func dial(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if session != "" {
		url += "?session=" + session
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHubGreetsNewClients(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer srv.Close()

	conn := dial(t, srv, "")

	greeting := readEvent(t, conn)
	assert.Equal(t, TypeConnection, greeting.Type)
	assert.False(t, greeting.Timestamp.IsZero())
}

func TestHubBroadcast(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer srv.Close()

	conn := dial(t, srv, "")
	readEvent(t, conn) // greeting

	hub.Broadcast(Event{Type: TypeStepApplied, Session: "s1", Payload: map[string]string{"id": "x"}})

	event := readEvent(t, conn)
	assert.Equal(t, TypeStepApplied, event.Type)
	assert.Equal(t, "s1", event.Session)
}

// TestHubSessionScoping: a client subscribed to one session must not see
// another session's events.
func TestHubSessionScoping(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer srv.Close()

	mine := dial(t, srv, "session-a")
	readEvent(t, mine) // greeting

	hub.Broadcast(Event{Type: TypeStepApplied, Session: "session-b"})
	hub.Broadcast(Event{Type: TypeStepApplied, Session: "session-a"})

	event := readEvent(t, mine)
	assert.Equal(t, "session-a", event.Session)
}

func TestHubClientCount(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer srv.Close()

	conn := dial(t, srv, "")
	readEvent(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

// TestHubBroadcastNeverBlocks fills the buffer without a running hub loop
// and checks the publisher returns anyway.
// TestHubImmediateDisconnectChurn hammers connect/disconnect while events
// flow. Clients that vanish right after registering must not crash the hub.
func TestHubImmediateDisconnectChurn(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	for i := 0; i < 50; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		hub.Broadcast(Event{Type: TypeStepApplied})
		conn.Close()
	}

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil) // Run not started; nothing drains the buffer.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(Event{Type: TypeStepApplied})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full hub buffer")
	}
}
