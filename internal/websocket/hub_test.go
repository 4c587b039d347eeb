package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/stockypocky/stockyweb/internal/auth"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "alice")
	c2 := mockClient(hub, "bob")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(""); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	if got := hub.ClientCount("alice"); got != 1 {
		t.Fatalf("expected 1 client for alice, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount("alice"); got != 0 {
		t.Fatalf("expected 0 clients for alice after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(""); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "alice")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(""); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	phone := mockClient(hub, "alice")
	laptop := mockClient(hub, "alice")
	other := mockClient(hub, "bob")
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	hub.BroadcastTo("alice", NewMessage(EntityStock, ActionUpdated, 42, nil))

	for _, c := range []*Client{phone, laptop} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "stock_updated" {
				t.Errorf("expected type stock_updated, got %s", got.Type)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-other.send:
		t.Error("another user received the message")
	default:
	}
}

func TestBroadcastUnknownUser(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.BroadcastTo("nobody", NewMessage(EntityMemo, ActionDeleted, 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "alice")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastTo("alice", NewMessage("test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.BroadcastTo("alice", NewMessage("test", "dropped", 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(EntityShoppingRecord, ActionCreated, 5, nil)
	if msg.Type != "shopping_record_created" {
		t.Errorf("expected type shopping_record_created, got %s", msg.Type)
	}
	if msg.Entity != EntityShoppingRecord || msg.Action != ActionCreated || msg.ID != 5 {
		t.Errorf("message = %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "alice")
			hub.Register(c)
			hub.BroadcastTo("alice", NewMessage("test", "concurrent", 0, nil))
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

	if got := hub.ClientCount(""); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketDelivers(t *testing.T) {
	hub := NewHub(slog.Default())
	handler := HandleWebSocket(hub, nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: "alice"})
		handler(w, r.WithContext(ctx))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// Registration happens after the handshake completes.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("alice") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastTo("alice", NewMessage(EntityItem, ActionCreated, 7, nil))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	json.Unmarshal(data, &got)
	if got.Type != "item_created" || got.ID != 7 {
		t.Errorf("message = %+v", got)
	}
}

func TestHandleWebSocketRequiresUser(t *testing.T) {
	hub := NewHub(slog.Default())
	rec := httptest.NewRecorder()
	HandleWebSocket(hub, nil)(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleWebSocketClosesAtSessionExpiry(t *testing.T) {
	hub := NewHub(slog.Default())
	handler := HandleWebSocket(hub, nil)
	expires := time.Now().Add(200 * time.Millisecond)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: "alice", ExpiresAt: expires})
		handler(w, r.WithContext(ctx))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	_, _, err = conn.Read(ctx)
	if got := ws.CloseStatus(err); got != ws.StatusPolicyViolation {
		t.Errorf("close status = %v (err %v), want %v", got, err, ws.StatusPolicyViolation)
	}
}
