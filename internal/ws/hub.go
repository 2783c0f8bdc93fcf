package ws

import (
	"log"
	"sync"
	"time"

	"enclave-chat/internal/models"
	"enclave-chat/internal/observability"
	"enclave-chat/internal/repositories"
)

// Hub maintains the live-connection registry: one broadcast room per
// chat plus one identity room per user. Nothing in here survives a
// restart and nothing needs to.
type Hub struct {
	mu        sync.RWMutex
	chatRooms map[string]map[*Conn]bool
	userRooms map[string]map[*Conn]bool

	// reverse indices so disconnects tear down entry by entry
	connChats map[*Conn]map[string]struct{}
	connUser  map[*Conn]string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		chatRooms: make(map[string]map[*Conn]bool),
		userRooms: make(map[string]map[*Conn]bool),
		connChats: make(map[*Conn]map[string]struct{}),
		connUser:  make(map[*Conn]string),
	}
}

// JoinChat adds the connection to a chat's broadcast room. The grant is
// the proof a membership check happened; there is no way to join without
// one.
func (h *Hub) JoinChat(conn *Conn, grant repositories.ChatGrant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chatRooms[grant.ChatID]; !ok {
		h.chatRooms[grant.ChatID] = make(map[*Conn]bool)
	}
	h.chatRooms[grant.ChatID][conn] = true
	if _, ok := h.connChats[conn]; !ok {
		h.connChats[conn] = make(map[string]struct{})
	}
	h.connChats[conn][grant.ChatID] = struct{}{}
}

// Identify puts the connection in the user's identity room, used for
// out-of-band per-user notices. A connection holds at most one identity.
func (h *Hub) Identify(conn *Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.connUser[conn]; ok {
		h.removeFromUserRoomLocked(prev, conn)
	}
	if _, ok := h.userRooms[userID]; !ok {
		h.userRooms[userID] = make(map[*Conn]bool)
	}
	h.userRooms[userID][conn] = true
	h.connUser[conn] = userID
}

// Disconnect drops every room membership the connection holds.
func (h *Hub) Disconnect(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID := range h.connChats[conn] {
		h.removeFromChatRoomLocked(chatID, conn)
	}
	delete(h.connChats, conn)
	if userID, ok := h.connUser[conn]; ok {
		h.removeFromUserRoomLocked(userID, conn)
		delete(h.connUser, conn)
	}
}

func (h *Hub) removeFromChatRoomLocked(chatID string, conn *Conn) {
	if conns, ok := h.chatRooms[chatID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.chatRooms, chatID)
		}
	}
}

func (h *Hub) removeFromUserRoomLocked(userID string, conn *Conn) {
	if conns, ok := h.userRooms[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userRooms, userID)
		}
	}
}

// BroadcastNewMessage fans a persisted message out to every connection in
// the chat's room, the sender's own connections included so all of a
// user's tabs converge on the confirmed record.
func (h *Hub) BroadcastNewMessage(msg models.Message) {
	if msg.Expired(time.Now()) {
		return
	}

	event := models.ServerEvent{Event: models.EventNewMessage, ChatID: msg.ChatID, Message: &msg}
	for _, conn := range h.chatRoomConns(msg.ChatID) {
		h.deliver(conn, msg.ChatID, event)
	}
}

// BroadcastChatClosed tells everyone still joined that the chat is gone,
// then drops the room.
func (h *Hub) BroadcastChatClosed(chatID string) {
	event := models.ServerEvent{Event: models.EventChatClosed, ChatID: chatID}
	conns := h.chatRoomConns(chatID)
	for _, conn := range conns {
		h.deliver(conn, chatID, event)
	}

	h.mu.Lock()
	for _, conn := range conns {
		h.removeFromChatRoomLocked(chatID, conn)
		delete(h.connChats[conn], chatID)
	}
	h.mu.Unlock()
}

// NotifyChatRemoved tells each member's identity room to drop the chat
// from its list, covering members not currently viewing it.
func (h *Hub) NotifyChatRemoved(chatID string, memberIDs []string) {
	event := models.ServerEvent{Event: models.EventChatRemoved, ChatID: chatID}
	for _, userID := range memberIDs {
		for _, conn := range h.userRoomConns(userID) {
			h.deliver(conn, chatID, event)
		}
	}
}

func (h *Hub) chatRoomConns(chatID string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.chatRooms[chatID]))
	for conn := range h.chatRooms[chatID] {
		conns = append(conns, conn)
	}
	return conns
}

func (h *Hub) userRoomConns(userID string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.userRooms[userID]))
	for conn := range h.userRooms[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// deliver writes one event to one peer. A dead peer is dropped; it never
// fails the broadcast for everyone else.
func (h *Hub) deliver(conn *Conn, chatID string, event models.ServerEvent) {
	if err := conn.Send(event); err != nil {
		log.Printf("websocket write error chat=%s: %v", chatID, err)
		conn.Close()
		h.Disconnect(conn)
		observability.IncWSEvent("ws_error")
	}
}
