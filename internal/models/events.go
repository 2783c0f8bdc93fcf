package models

import "encoding/json"

// Client-to-server websocket events.
const (
	EventJoinChat        = "join_chat"
	EventIdentify        = "identify"
	EventSendMessage     = "send_message"
	EventBroadcastDelete = "broadcast_delete_chat"
)

// Server-to-client websocket events.
const (
	EventNewMessage  = "new_message"
	EventChatClosed  = "chat_closed"
	EventChatRemoved = "chat_removed"
	EventAck         = "ack"
	EventError       = "error"
)

// ClientEvent is the envelope read from a websocket connection.
type ClientEvent struct {
	Event string          `json:"event"`
	Ref   string          `json:"ref,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// JoinChatData carries a join_chat request.
type JoinChatData struct {
	ChatID string `json:"chat_id"`
}

// SendMessageData carries a send_message request. The sender identity is
// taken from the authenticated connection, never from the payload.
type SendMessageData struct {
	ChatID     string `json:"chat_id"`
	Content    string `json:"content"`
	Kind       string `json:"kind,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// BroadcastDeleteData carries a broadcast_delete_chat request, issued by
// a client after its REST deletion call succeeded.
type BroadcastDeleteData struct {
	ChatID    string   `json:"chat_id"`
	MemberIDs []string `json:"member_ids"`
}

// ServerEvent is the envelope written to websocket connections.
type ServerEvent struct {
	Event   string   `json:"event"`
	Ref     string   `json:"ref,omitempty"`
	ChatID  string   `json:"chat_id,omitempty"`
	Message *Message `json:"message,omitempty"`
	Status  string   `json:"status,omitempty"`
	Error   string   `json:"error,omitempty"`
}
