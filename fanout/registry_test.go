package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"streambet/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, registry *Registry, onMessage InboundHandler) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		marketID, err := uuid.Parse(r.URL.Query().Get("market"))
		if err != nil {
			http.Error(w, "bad market", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registry.Serve(marketID, conn, onMessage)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, marketID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?market=" + marketID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitForClients(t *testing.T, registry *Registry, marketID uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return registry.Count(marketID) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_BroadcastReachesOnlyMarketClients(t *testing.T) {
	registry := NewRegistry()
	server := newTestServer(t, registry, nil)

	market, other := uuid.New(), uuid.New()
	first := dial(t, server, market)
	second := dial(t, server, market)
	outsider := dial(t, server, other)
	waitForClients(t, registry, market, 2)
	waitForClients(t, registry, other, 1)

	registry.Broadcast(market, Message{Type: "ping", Data: map[string]int{"n": 1}})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, "ping", msg["type"])
	}

	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := outsider.ReadMessage()
	assert.Error(t, err)
}

func TestRegistry_ClosedClientIsRemoved(t *testing.T) {
	registry := NewRegistry()
	server := newTestServer(t, registry, nil)

	market := uuid.New()
	conn := dial(t, server, market)
	waitForClients(t, registry, market, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, registry, market, 0)

	assert.NotPanics(t, func() {
		registry.Broadcast(market, Message{Type: "late"})
	})
}

func TestRegistry_AddRemove(t *testing.T) {
	registry := NewRegistry()
	market := uuid.New()
	c := &Client{send: make(chan []byte, 1), done: make(chan struct{})}

	registry.Add(market, c)
	assert.Equal(t, 1, registry.Count(market))

	registry.Remove(market, c)
	assert.Equal(t, 0, registry.Count(market))

	// removing twice is harmless
	registry.Remove(market, c)
}

func TestSubscribe_ForwardsMarketEvents(t *testing.T) {
	registry := NewRegistry()
	server := newTestServer(t, registry, nil)
	bus := events.NewBus()
	Subscribe(bus, registry)

	market := uuid.New()
	conn := dial(t, server, market)
	waitForClients(t, registry, market, 1)

	bus.Emit(context.Background(), events.ChatMessageCreatedEvent{
		MessageID: uuid.New(),
		MarketID:  market,
		Username:  "alice",
		Message:   "gl hf",
	})

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeChat, msg["type"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "gl hf", data["message"])

	bus.Emit(context.Background(), events.MarketSettledEvent{MarketID: market, TotalPool: 10})

	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeMarketSettled, msg["type"])
}

func TestRegistry_InboundMessagesReachHandler(t *testing.T) {
	registry := NewRegistry()
	server := newTestServer(t, registry, func(c *Client, data []byte) {
		c.Send(Message{Type: "echo", Data: string(data)})
	})

	market := uuid.New()
	sender := dial(t, server, market)
	listener := dial(t, server, market)
	waitForClients(t, registry, market, 2)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("hello")))

	msg := readMessage(t, sender)
	assert.Equal(t, "echo", msg["type"])
	assert.Equal(t, "hello", msg["data"])

	// replies go to the sender only
	require.NoError(t, listener.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := listener.ReadMessage()
	assert.Error(t, err)
}
