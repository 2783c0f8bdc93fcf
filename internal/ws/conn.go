package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"enclave-chat/internal/models"
)

// ConnInfo carries the identity and telemetry context bound to a live
// connection at handshake time.
type ConnInfo struct {
	ConnID      string
	UserID      string
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Conn wraps a websocket connection. Writes are serialized through the
// mutex; gorilla connections do not allow concurrent writers.
type Conn struct {
	ws   *websocket.Conn
	info ConnInfo

	writeMu sync.Mutex
}

// NewConn wraps an upgraded websocket connection.
func NewConn(ws *websocket.Conn, info ConnInfo) *Conn {
	return &Conn{ws: ws, info: info}
}

// Info returns the handshake-time connection context.
func (c *Conn) Info() ConnInfo {
	return c.info
}

// Send writes one server event to the peer.
func (c *Conn) Send(event models.ServerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close tears down the underlying websocket.
func (c *Conn) Close() error {
	return c.ws.Close()
}
