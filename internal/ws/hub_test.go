package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
)

var testUpgrader = websocket.Upgrader{}

// dialHub spins up a server that registers every incoming connection on
// the hub under the given user, then dials it once.
func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		if !hub.Add(userID, conn) {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubSendToUser(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)
	client := dialHub(t, hub, "alice")

	// Wait for the server side to register the session.
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.Lock()
		n := len(hub.conns["alice"])
		hub.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.SendToUser("alice", []byte("task failed"))
	hub.SendToUser("nobody", []byte("dropped")) // no sessions, no-op

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "task failed" {
		t.Errorf("message = %q", msg)
	}
}

func TestHubRemove(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)

	conn := &websocket.Conn{}
	if !hub.Add("alice", conn) {
		t.Fatal("Add rejected first connection")
	}
	hub.Remove("alice", conn)

	hub.mu.Lock()
	_, ok := hub.conns["alice"]
	hub.mu.Unlock()
	if ok {
		t.Error("user entry should be gone after last session is removed")
	}
}

func TestHubPerUserCap(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)

	for i := 0; i < maxConnsPerUser; i++ {
		if !hub.Add("alice", &websocket.Conn{}) {
			t.Fatalf("connection %d rejected below the cap", i)
		}
	}
	if hub.Add("alice", &websocket.Conn{}) {
		t.Error("connection above the cap should be rejected")
	}
	if !hub.Add("bob", &websocket.Conn{}) {
		t.Error("another user's connection should be unaffected")
	}
}
