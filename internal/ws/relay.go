package ws

import (
	"context"
	"log"
	"sync"

	"enclave-chat/internal/models"
	"enclave-chat/internal/observability"
	"enclave-chat/internal/repositories"
)

// Relay is the append-then-broadcast pipeline. Sends to one chat are
// serialized by a per-chat lock so broadcast order always matches
// persisted creation order.
type Relay struct {
	hub      *Hub
	messages repositories.MessageRepository
	chats    repositories.ChatRepository

	locks sync.Map // chat id -> *sync.Mutex
}

// NewRelay constructs the relay over the hub and stores.
func NewRelay(hub *Hub, messages repositories.MessageRepository, chats repositories.ChatRepository) *Relay {
	return &Relay{hub: hub, messages: messages, chats: chats}
}

func (r *Relay) lockFor(chatID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// SendMessage persists a message and fans it out to the chat room. The
// grant is required so an unauthorized send cannot reach this path. A
// storage failure is returned to the caller; nothing is buffered or
// retried on the server's behalf.
func (r *Relay) SendMessage(ctx context.Context, grant repositories.ChatGrant, content, kind string, ttlSeconds int64) (models.Message, error) {
	mu := r.lockFor(grant.ChatID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := r.messages.Append(ctx, grant.ChatID, grant.UserID, content, kind, ttlSeconds)
	if err != nil {
		return models.Message{}, err
	}

	r.hub.BroadcastNewMessage(msg)

	if err := r.chats.TouchActivity(ctx, grant.ChatID); err != nil {
		log.Printf("touch chat activity failed chat=%s: %v", grant.ChatID, err)
	}

	observability.IncMessageSent(msg.Kind)
	return msg, nil
}

// ChatDeleted runs the two-pronged deletion notice: chat_closed to the
// room, chat_removed to each member's identity room.
func (r *Relay) ChatDeleted(chatID string, memberIDs []string) {
	r.hub.BroadcastChatClosed(chatID)
	r.hub.NotifyChatRemoved(chatID, memberIDs)
	r.locks.Delete(chatID)
}
