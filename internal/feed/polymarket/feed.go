// Package polymarket implements feed.Feed over the Polymarket CLOB
// WebSocket, adapted from the teacher's internal/platform/polymarket/ws.go
// (connection lifecycle, ping/pong keep-alive, exponential-backoff
// reconnect, subscription replay) and internal/feed/polymarket_ws.go
// (feed-level reconnect loop). Where the teacher dispatched to
// domain.OrderbookSnapshot/PriceChange handlers, this adapter decodes
// every frame through internal/ingest/wire into a domain.Event and drives
// it through the installed feed.OnEvent callback instead.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/orderbookcore/internal/feed"
	"github.com/alanyoungcy/orderbookcore/internal/ingest/wire"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

var channels = []string{"book", "price_change", "last_trade_price"}

type subscribeCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// Feed connects to the Polymarket CLOB WebSocket and decodes every frame
// into a domain.Event, invoking the installed feed.OnEvent callback.
// Reconnects with exponential backoff on disconnect, replaying all
// subscriptions accumulated so far.
type Feed struct {
	wsURL  string
	logger *slog.Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	subscriptions map[string]struct{} // tokenIDs
	onEvent       feed.OnEvent

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Feed targeting wsURL (e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market").
func New(wsURL string, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		wsURL:         wsURL,
		logger:        logger.With(slog.String("component", "polymarket_feed")),
		subscriptions: make(map[string]struct{}),
		done:          make(chan struct{}),
	}
}

// SetOnEvent installs the ingestion callback.
func (f *Feed) SetOnEvent(cb feed.OnEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEvent = cb
}

// Subscribe registers tokenID for book/price_change/last_trade_price
// delivery. If already connected, the subscription is sent immediately;
// otherwise it is replayed on the next successful connect.
func (f *Feed) Subscribe(tokenID string) error {
	f.mu.Lock()
	f.subscriptions[tokenID] = struct{}{}
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	return f.sendSubscribe(conn, []string{tokenID})
}

// Start connects and runs the reconnect loop until Stop is called. Blocks
// the calling goroutine, matching the teacher's PolymarketWSFeed.Run.
func (f *Feed) Start() error {
	delay := reconnectDelay
	for {
		select {
		case <-f.done:
			return nil
		default:
		}

		connCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := f.runConnection(connCtx)
		cancel()

		select {
		case <-f.done:
			return nil
		default:
		}
		if err == nil {
			return nil
		}

		f.logger.Warn("disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-f.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Stop closes the connection and ends the reconnect loop. Safe to call
// more than once.
func (f *Feed) Stop() error {
	f.closeOnce.Do(func() { close(f.done) })

	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (f *Feed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	f.mu.Lock()
	f.conn = conn
	tokenIDs := make([]string, 0, len(f.subscriptions))
	for id := range f.subscriptions {
		tokenIDs = append(tokenIDs, id)
	}
	f.mu.Unlock()

	if len(tokenIDs) > 0 {
		if err := f.sendSubscribe(conn, tokenIDs); err != nil {
			return fmt.Errorf("polymarket: replay subscriptions: %w", err)
		}
	}

	readErr := make(chan error, 1)
	go f.pingLoop(conn)
	go f.readLoop(conn, readErr)

	select {
	case <-f.done:
		return nil
	case err := <-readErr:
		return err
	}
}

func (f *Feed) sendSubscribe(conn *websocket.Conn, tokenIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range channels {
		cmd := subscribeCommand{Type: "subscribe", Channel: ch, Assets: tokenIDs}
		data, err := json.Marshal(cmd)
		if err != nil {
			return fmt.Errorf("polymarket: marshal subscribe: %w", err)
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return fmt.Errorf("polymarket: send subscribe %s: %w", ch, err)
		}
	}
	return nil
}

func (f *Feed) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) readLoop(conn *websocket.Conn, errc chan<- error) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
				errc <- nil
			default:
				errc <- fmt.Errorf("polymarket: read: %w", err)
			}
			return
		}
		f.handleMessage(message)
	}
}

func (f *Feed) handleMessage(raw []byte) {
	event, err := wire.Decode(raw)
	if err != nil {
		f.logger.Debug("dropping unparseable frame", slog.String("error", err.Error()))
		return
	}

	f.mu.Lock()
	cb := f.onEvent
	f.mu.Unlock()
	if cb != nil {
		cb(event)
	}
}

var _ feed.Feed = (*Feed)(nil)
