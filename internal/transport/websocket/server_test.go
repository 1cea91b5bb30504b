package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub, userID int64) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := userID
		if v := r.URL.Query().Get("user_id"); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				id = parsed
			}
		}
		hub.HandleWebSocket(w, r, id)
	}))

	wsURL := "ws" + server.URL[4:]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to connect: %v", err)
	}
	return server, conn
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server, conn := dialHub(t, hub, 1)
	defer server.Close()

	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	connections, exists := hub.connections[1]
	hub.mu.RUnlock()

	if !exists {
		t.Fatal("connection should be registered")
	}
	if len(connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(connections))
	}

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	_, exists = hub.connections[1]
	hub.mu.RUnlock()

	if exists {
		t.Fatal("connection should be unregistered after close")
	}
}

func TestHubBroadcastPaymentEvent(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server, conn := dialHub(t, hub, 1)
	defer server.Close()
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)

	message := &Message{
		Type:    "payment_confirmed",
		Channel: "notify_user_of_payment#1",
		Data:    map[string]interface{}{"payment_id": "pay-1", "debt_status": "paid"},
	}
	hub.Broadcast(1, message)

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var received Message
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	if received.Type != "payment_confirmed" {
		t.Errorf("expected type 'payment_confirmed', got %q", received.Type)
	}
	if received.Channel != "notify_user_of_payment#1" {
		t.Errorf("expected payment channel, got %q", received.Channel)
	}
	if received.UserID != 1 {
		t.Errorf("expected userID 1, got %d", received.UserID)
	}
}

func TestHubMultipleConnectionsSameUser(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, 1)
	}))
	defer server.Close()

	// a guardian with the dashboard open in several tabs
	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		wsURL := "ws" + server.URL[4:]
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("failed to connect: %v", err)
		}
		conns = append(conns, conn)
		defer conn.Close()
	}

	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	connections := hub.connections[1]
	hub.mu.RUnlock()
	if len(connections) != 3 {
		t.Fatalf("expected 3 connections, got %d", len(connections))
	}

	hub.Broadcast(1, &Message{
		Type:    "payment_confirmed",
		Channel: "notify_user_of_payment#1",
		Data:    map[string]interface{}{"payment_id": "pay-2"},
	})

	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(idx int, c *websocket.Conn) {
			defer wg.Done()
			c.SetReadDeadline(time.Now().Add(1 * time.Second))
			var received Message
			if err := c.ReadJSON(&received); err != nil {
				t.Errorf("connection %d failed to read message: %v", idx, err)
				return
			}
			if received.Type != "payment_confirmed" {
				t.Errorf("connection %d: expected type 'payment_confirmed', got %q", idx, received.Type)
			}
		}(i, conn)
	}
	wg.Wait()
}

func TestHubBroadcastIsolatedPerUser(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		hub.HandleWebSocket(w, r, id)
	}))
	defer server.Close()

	dial := func(userID int64) *websocket.Conn {
		wsURL := "ws" + server.URL[4:] + "?user_id=" + strconv.FormatInt(userID, 10)
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("failed to connect user %d: %v", userID, err)
		}
		return conn
	}

	conn1 := dial(1)
	defer conn1.Close()
	conn2 := dial(2)
	defer conn2.Close()

	time.Sleep(100 * time.Millisecond)

	hub.Broadcast(1, &Message{
		Type:    "payment_confirmed",
		Channel: "notify_user_of_payment#1",
		Data:    map[string]interface{}{"payment_id": "pay-3"},
	})

	conn1.SetReadDeadline(time.Now().Add(1 * time.Second))
	var received Message
	if err := conn1.ReadJSON(&received); err != nil {
		t.Fatalf("user 1 should receive the event: %v", err)
	}

	conn2.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var stray Message
	if err := conn2.ReadJSON(&stray); err == nil {
		t.Fatalf("user 2 should not receive user 1 events, got %+v", stray)
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// unbuffered and never read: the first broadcast cannot be queued
	conn := &Connection{userID: 7, send: make(chan *Message), hub: hub}
	hub.register <- conn
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(7, &Message{Type: "payment_confirmed"})
	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	_, exists := hub.connections[7]
	hub.mu.RUnlock()
	if exists {
		t.Fatal("a connection that cannot keep up must be dropped")
	}

	select {
	case _, ok := <-conn.send:
		if ok {
			t.Fatal("send channel should be closed, not carrying messages")
		}
	default:
		t.Fatal("send channel should be closed after the drop")
	}
}
