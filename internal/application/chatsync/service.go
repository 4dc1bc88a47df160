// Package chatsync keeps the conversation directory and the open
// conversation's message log consistent across REST snapshots, push events
// and local actions.
package chatsync

import (
	"context"

	"github.com/playarena/chat-sync/internal/domain/chat"
)

// State is the controller's position in the chat surface state machine.
type State string

const (
	StateDisconnected     State = "disconnected"
	StateNoConversation   State = "connected_no_conversation"
	StateConversationOpen State = "connected_conversation_open"
)

// Transport is the push channel as seen by the controller.
type Transport interface {
	Connect(token string)
	Disconnect()
	Connected() bool
	JoinChat(conversationID string) error
	LeaveChat(conversationID string) error
	SendMessage(conversationID, content string) error
	OnDirectoryChanged(fn func()) chat.Subscription
	OnMessageReceived(fn func(chat.Message)) chat.Subscription
	OnConnectionChanged(fn func(chat.ConnectionEvent)) chat.Subscription
}

// Service is the chat surface exposed to callers such as the HTTP bridge.
type Service interface {
	Snapshot() Snapshot
	Refresh(ctx context.Context) error
	Open(ctx context.Context, conversationID string) ([]chat.Message, error)
	OpenWithUser(ctx context.Context, targetUserID string) (*chat.Conversation, []chat.Message, error)
	Close(ctx context.Context) error
	Send(ctx context.Context, content string) error
	AcknowledgeRead(ctx context.Context, conversationID string) error
}

// ConversationView is a directory row with derived display state.
type ConversationView struct {
	chat.Conversation
	Unread  int          `json:"unread"`
	Receipt chat.Receipt `json:"receipt"`
}

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	Version            uint64             `json:"version"`
	State              State              `json:"state"`
	UserID             string             `json:"user_id"`
	Conversations      []ConversationView `json:"conversations"`
	OpenConversationID string             `json:"open_conversation_id,omitempty"`
	Loading            bool               `json:"loading"`
	Messages           []chat.Message     `json:"messages"`
	Receipt            chat.Receipt       `json:"receipt"`
}

// Update notifies that a new snapshot is available.
type Update struct {
	Version uint64
	State   State
}
