package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testClient creates a Client with a send channel but no real connection.
func testClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestClientLifecycle(t *testing.T) {
	hub := testHub()

	c1 := testClient(hub)
	c2 := testClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("client count = %d, want 2", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("client count = %d, want 1", got)
	}

	// Unregistering twice must not panic on the closed channel.
	hub.Unregister(c1)
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("client count = %d, want 0", got)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := testHub()

	clients := []*Client{testClient(hub), testClient(hub)}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage("score", "updated", "fan-42", map[string]any{"new_total_score": float64(150)}))

	for i, c := range clients {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("client %d: unmarshal: %v", i, err)
			}
			if got.Type != "score_updated" || got.Entity != "score" || got.UserID != "fan-42" {
				t.Errorf("client %d: unexpected message %+v", i, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client %d: no message within 100ms", i)
		}
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := testHub()
	hub.Broadcast(NewMessage("achievement", "earned", "fan-1", nil))
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := testHub()

	c := testClient(hub)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("score", "updated", strconv.Itoa(i), nil))
	}
	// Buffer is full; this frame is dropped rather than blocking the award path.
	hub.Broadcast(NewMessage("score", "updated", "overflow", nil))

	count := 0
	draining := true
	for draining {
		select {
		case <-c.send:
			count++
		default:
			draining = false
		}
	}
	if count != sendBufferSize {
		t.Errorf("drained %d messages, want %d", count, sendBufferSize)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("streak", "updated", "fan-5", nil)
	if msg.Type != "streak_updated" {
		t.Errorf("type = %q, want streak_updated", msg.Type)
	}
	if msg.Entity != "streak" || msg.Action != "updated" || msg.UserID != "fan-5" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := testHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := testClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("score", "updated", "", nil))
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
		t.Errorf("client count after concurrency = %d, want 0", got)
	}
}
