package polymarket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// fakeUpstream serves one WebSocket connection and, once it observes a
// subscribe command for "book", pushes a single book frame then closes.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(msg), `"channel":"book"`) {
				frame := []byte(`{
					"msg_type": "book",
					"asset_id": "token-xyz",
					"market": "cond-xyz",
					"timestamp": "1700000000000",
					"bids": [{"price": "0.3", "size": "10"}],
					"asks": [{"price": "0.7", "size": "5"}],
					"hash": "abc"
				}`)
				_ = conn.WriteMessage(websocket.TextMessage, frame)
				return
			}
		}
	}))
}

func TestFeed_DecodesUpstreamBookFrame(t *testing.T) {
	server := fakeUpstream(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	f := New(wsURL, nil)

	var mu sync.Mutex
	var received domain.Event
	done := make(chan struct{})

	f.SetOnEvent(func(e domain.Event) {
		mu.Lock()
		received = e
		mu.Unlock()
		close(done)
	})

	go f.Start()
	defer f.Stop()

	if err := f.Subscribe("token-xyz"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decoded event")
	}

	mu.Lock()
	defer mu.Unlock()
	snap, ok := received.(domain.BookSnapshot)
	if !ok {
		t.Fatalf("expected domain.BookSnapshot, got %T", received)
	}
	if snap.Header().Asset.TokenID != "token-xyz" {
		t.Errorf("token ID = %s", snap.Header().Asset.TokenID)
	}
}
