package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/juanlo017/cerves-app/internal/auth"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message for %s: %s", c.userID, data)
	default:
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// second unregister must not panic on the closed channel
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())
	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)

	hub.Broadcast(NewMessage("drink", "updated", "d-1", nil))

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != "drink_updated" || got.ID != "d-1" {
			t.Errorf("got %+v", got)
		}
	}
}

func TestSendToTargetsUsers(t *testing.T) {
	hub := NewHub(slog.Default())
	phone := mockClient(hub, "u1")
	tablet := mockClient(hub, "u1")
	other := mockClient(hub, "u2")
	for _, c := range []*Client{phone, tablet, other} {
		hub.Register(c)
		defer hub.Unregister(c)
	}

	n := hub.SendTo(NewMessage("invitation", "received", "inv-1", map[string]any{"pending": float64(2)}), "u1")
	if n != 2 {
		t.Errorf("sent = %d, want 2", n)
	}

	for _, c := range []*Client{phone, tablet} {
		got := receive(t, c)
		if got.Type != "invitation_received" {
			t.Errorf("type = %q", got.Type)
		}
		if got.Extra["pending"] != float64(2) {
			t.Errorf("extra = %v", got.Extra)
		}
	}
	assertEmpty(t, other)

	if n := hub.SendTo(NewMessage("x", "y", "", nil)); n != 0 {
		t.Errorf("no recipients should send nothing, got %d", n)
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "u1")
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", "", nil))
	}
	if n := hub.SendTo(NewMessage("test", "dropped", "", nil), "u1"); n != 0 {
		t.Errorf("full buffer should drop, sent = %d", n)
	}

	count := 0
	for len(c.send) > 0 {
		<-c.send
		count++
	}
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("group", "leaderboard", "g-1", nil)
	if msg.Type != "group_leaderboard" || msg.Entity != "group" || msg.Action != "leaderboard" || msg.ID != "g-1" {
		t.Errorf("got %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "u")
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", "", nil))
			hub.SendTo(NewMessage("test", "targeted", "", nil), "u")
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketRequiresAuth(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// an authenticated request without upgrade headers fails the handshake
	req := httptest.NewRequest("GET", "/ws", nil)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{PlayerID: "p1", UserID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK || rec.Code == http.StatusSwitchingProtocols {
		t.Errorf("status = %d, expected handshake failure", rec.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("no client should be registered")
	}
}
