// Package chat contains chat bridge response DTOs.
package chat

import (
	"time"

	"github.com/playarena/chat-sync/internal/application/chatsync"
	domain "github.com/playarena/chat-sync/internal/domain/chat"
)

// ConversationResponse is one directory row.
type ConversationResponse struct {
	ID           string               `json:"id"`
	Object       string               `json:"object"`
	Participants []domain.Participant `json:"participants"`
	LastMessage  *domain.LastMessage  `json:"last_message,omitempty"`
	Unread       int                  `json:"unread"`
	Receipt      domain.Receipt       `json:"receipt"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ListConversationsResponse is the directory.
type ListConversationsResponse struct {
	Object  string                 `json:"object"`
	State   chatsync.State         `json:"state"`
	Version uint64                 `json:"version"`
	Data    []ConversationResponse `json:"data"`
}

// MessageResponse is one message of the open conversation.
type MessageResponse struct {
	ID             string             `json:"id"`
	Object         string             `json:"object"`
	ConversationID string             `json:"conversation_id"`
	Sender         domain.Participant `json:"sender"`
	Content        string             `json:"content"`
	CreatedAt      time.Time          `json:"created_at"`
}

// MessagesResponse is the open conversation's log.
type MessagesResponse struct {
	Object         string            `json:"object"`
	ConversationID string            `json:"conversation_id"`
	Loading        bool              `json:"loading"`
	Receipt        domain.Receipt    `json:"receipt"`
	Data           []MessageResponse `json:"data"`
}

// OpenResponse is returned after a conversation was opened.
type OpenResponse struct {
	Conversation *ConversationResponse `json:"conversation,omitempty"`
	Messages     MessagesResponse      `json:"messages"`
}

// StatusResponse describes the engine state.
type StatusResponse struct {
	State              chatsync.State `json:"state"`
	UserID             string         `json:"user_id"`
	Version            uint64         `json:"version"`
	Conversations      int            `json:"conversations"`
	OpenConversationID string         `json:"open_conversation_id,omitempty"`
	Loading            bool           `json:"loading"`
	Receipt            domain.Receipt `json:"receipt"`
}

// AcceptedResponse acknowledges an action with no payload.
type AcceptedResponse struct {
	Object string `json:"object"`
	Status string `json:"status"`
}

// NewConversationResponse converts a directory view.
func NewConversationResponse(v chatsync.ConversationView) ConversationResponse {
	return ConversationResponse{
		ID:           v.ID,
		Object:       "chat.conversation",
		Participants: v.Participants,
		LastMessage:  v.LastMessage,
		Unread:       v.Unread,
		Receipt:      v.Receipt,
		UpdatedAt:    v.UpdatedAt,
	}
}

// NewListConversationsResponse converts a snapshot's directory.
func NewListConversationsResponse(s chatsync.Snapshot) ListConversationsResponse {
	data := make([]ConversationResponse, 0, len(s.Conversations))
	for _, v := range s.Conversations {
		data = append(data, NewConversationResponse(v))
	}
	return ListConversationsResponse{
		Object:  "list",
		State:   s.State,
		Version: s.Version,
		Data:    data,
	}
}

// NewMessagesResponse converts a message sequence.
func NewMessagesResponse(conversationID string, msgs []domain.Message, loading bool, receipt domain.Receipt) MessagesResponse {
	data := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		data = append(data, MessageResponse{
			ID:             m.ID,
			Object:         "chat.message",
			ConversationID: m.ConversationID,
			Sender:         m.Sender,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
		})
	}
	return MessagesResponse{
		Object:         "list",
		ConversationID: conversationID,
		Loading:        loading,
		Receipt:        receipt,
		Data:           data,
	}
}

// NewStatusResponse summarises a snapshot.
func NewStatusResponse(s chatsync.Snapshot) StatusResponse {
	return StatusResponse{
		State:              s.State,
		UserID:             s.UserID,
		Version:            s.Version,
		Conversations:      len(s.Conversations),
		OpenConversationID: s.OpenConversationID,
		Loading:            s.Loading,
		Receipt:            s.Receipt,
	}
}

// FindConversation returns the snapshot row for id.
func FindConversation(s chatsync.Snapshot, id string) (*ConversationResponse, bool) {
	for _, v := range s.Conversations {
		if v.ID == id {
			out := NewConversationResponse(v)
			return &out, true
		}
	}
	return nil, false
}
