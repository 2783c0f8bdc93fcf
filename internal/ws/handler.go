package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"enclave-chat/internal/auth"
	"enclave-chat/internal/middleware"
	"enclave-chat/internal/models"
	"enclave-chat/internal/observability"
	"enclave-chat/internal/repositories"
)

const lifecycleRoutingKey = "ws_events.connections"

// Handler owns the websocket endpoint: session-gated upgrade, then a
// read loop dispatching room events until the peer goes away.
type Handler struct {
	hub      *Hub
	relay    *Relay
	chats    repositories.ChatRepository
	sessions *auth.Sessions
}

// NewHandler constructs the websocket handler.
func NewHandler(hub *Hub, relay *Relay, chats repositories.ChatRepository, sessions *auth.Sessions) *Handler {
	return &Handler{hub: hub, relay: relay, chats: chats, sessions: sessions}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection after verifying the session cookie and
// registers the client with the hub.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("enclave-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	cookie, err := c.Cookie(middleware.SessionCookie)
	if err != nil || cookie == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	claims, err := h.sessions.Verify(cookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      claims.UserID,
		Username:    claims.Username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.OriginFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	conn := NewConn(wsConn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", info, "")

	go h.readLoop(ctx, conn)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	info := conn.Info()
	var closeReason string
	defer func() {
		h.hub.Disconnect(conn)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, "ws_disconnect", info, closeReason)
	}()

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, "ws_error", info, closeReason)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			conn.Send(models.ServerEvent{Event: models.EventError, Error: "malformed event"})
			continue
		}
		h.dispatch(ctx, conn, event)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *Conn, event models.ClientEvent) {
	observability.IncWSEvent(event.Event)

	switch event.Event {
	case models.EventJoinChat:
		h.handleJoin(ctx, conn, event)
	case models.EventIdentify:
		// Identity always comes from the verified session; any id in the
		// payload is ignored.
		h.hub.Identify(conn, conn.Info().UserID)
	case models.EventSendMessage:
		h.handleSend(ctx, conn, event)
	case models.EventBroadcastDelete:
		h.handleBroadcastDelete(ctx, conn, event)
	default:
		conn.Send(models.ServerEvent{Event: models.EventError, Ref: event.Ref, Error: "unknown event"})
	}
}

func (h *Handler) handleJoin(ctx context.Context, conn *Conn, event models.ClientEvent) {
	var data models.JoinChatData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.ChatID == "" {
		conn.Send(models.ServerEvent{Event: models.EventError, Ref: event.Ref, Error: "malformed event"})
		return
	}

	grant, err := h.chats.Authorize(ctx, data.ChatID, conn.Info().UserID)
	if err != nil {
		// Membership failure and unknown chat look the same on purpose.
		conn.Send(models.ServerEvent{Event: models.EventError, Ref: event.Ref, ChatID: data.ChatID, Error: "chat not found"})
		return
	}
	h.hub.JoinChat(conn, grant)
	conn.Send(models.ServerEvent{Event: models.EventAck, Ref: event.Ref, ChatID: data.ChatID, Status: "ok"})
}

func (h *Handler) handleSend(ctx context.Context, conn *Conn, event models.ClientEvent) {
	var data models.SendMessageData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.ChatID == "" || data.Content == "" {
		conn.Send(models.ServerEvent{Event: models.EventError, Ref: event.Ref, Error: "malformed event"})
		return
	}

	grant, err := h.chats.Authorize(ctx, data.ChatID, conn.Info().UserID)
	if err != nil {
		conn.Send(models.ServerEvent{Event: models.EventAck, Ref: event.Ref, ChatID: data.ChatID, Status: "error", Error: "chat not found"})
		return
	}

	msg, err := h.relay.SendMessage(ctx, grant, data.Content, data.Kind, data.TTLSeconds)
	if err != nil {
		log.Printf("send message failed chat=%s: %v", data.ChatID, err)
		// The caller owns the retry decision.
		conn.Send(models.ServerEvent{Event: models.EventAck, Ref: event.Ref, ChatID: data.ChatID, Status: "error", Error: "failed to store message"})
		return
	}
	conn.Send(models.ServerEvent{Event: models.EventAck, Ref: event.Ref, ChatID: data.ChatID, Status: "ok", Message: &msg})
}

func (h *Handler) handleBroadcastDelete(ctx context.Context, conn *Conn, event models.ClientEvent) {
	var data models.BroadcastDeleteData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.ChatID == "" {
		conn.Send(models.ServerEvent{Event: models.EventError, Ref: event.Ref, Error: "malformed event"})
		return
	}

	// Only relay a closure for a chat the directory no longer has; a
	// client cannot spoof closure of a live chat.
	if _, err := h.chats.GetChat(ctx, data.ChatID); !errors.Is(err, repositories.ErrChatNotFound) {
		conn.Send(models.ServerEvent{Event: models.EventError, Ref: event.Ref, ChatID: data.ChatID, Error: "chat not found"})
		return
	}

	h.relay.ChatDeleted(data.ChatID, data.MemberIDs)
	conn.Send(models.ServerEvent{Event: models.EventAck, Ref: event.Ref, ChatID: data.ChatID, Status: "ok"})
}

func (h *Handler) publishLifecycle(ctx context.Context, name string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, lifecycleRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]any{
			"ws": map[string]any{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]any{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	})
}
