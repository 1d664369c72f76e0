package fanout

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxReadSize    = 512
	sendBufferSize = 32
)

// Message is the frame written to websocket clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// InboundHandler receives text frames sent by a client
type InboundHandler func(c *Client, data []byte)

// Client is one websocket connection subscribed to a market.
// Only its write pump writes to the connection.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Send queues a message for this client only
func (c *Client) Send(msg Message) bool {
	frame, err := json.Marshal(msg)
	if err != nil {
		log.WithFields(log.Fields{
			"type":  msg.Type,
			"error": err,
		}).Error("Failed to marshal websocket message")
		return false
	}
	return c.enqueue(frame)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump hands text frames to onMessage and returns when the connection goes away
func (c *Client) readPump(onMessage InboundHandler) {
	c.conn.SetReadLimit(maxReadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage && onMessage != nil {
			onMessage(c, data)
		}
	}
}

// Registry tracks websocket clients per market
type Registry struct {
	mu      sync.RWMutex
	markets map[uuid.UUID]map[*Client]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Add subscribes a client to a market
func (r *Registry) Add(marketID uuid.UUID, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.markets[marketID]; !ok {
		r.markets[marketID] = make(map[*Client]struct{})
	}
	r.markets[marketID][c] = struct{}{}
}

// Remove unsubscribes a client from a market
func (r *Registry) Remove(marketID uuid.UUID, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.markets[marketID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.markets, marketID)
		}
	}
}

// Count returns the number of clients subscribed to a market
func (r *Registry) Count(marketID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets[marketID])
}

// Broadcast sends a message to every client of a market. Clients whose
// buffer is full are disconnected.
func (r *Registry) Broadcast(marketID uuid.UUID, msg Message) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.markets[marketID]))
	for c := range r.markets[marketID] {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		log.WithFields(log.Fields{
			"marketId": marketID,
			"type":     msg.Type,
			"error":    err,
		}).Error("Failed to marshal fan-out message")
		return
	}

	for _, c := range clients {
		if !c.enqueue(frame) {
			log.WithField("marketId", marketID).Debug("Dropping slow websocket client")
			r.Remove(marketID, c)
			c.close()
		}
	}
}

// Serve registers the connection under the market and blocks until it closes.
// onMessage may be nil for read-only subscribers.
func (r *Registry) Serve(marketID uuid.UUID, conn *websocket.Conn, onMessage InboundHandler) {
	c := newClient(conn)
	r.Add(marketID, c)
	defer func() {
		r.Remove(marketID, c)
		c.close()
	}()

	go c.writePump()
	c.readPump(onMessage)
}
