package handlers

import (
	"context"

	"github.com/playarena/chat-sync/internal/application/chatsync"
	"github.com/playarena/chat-sync/internal/domain/chat"
)

// ChatHandler handles chat surface HTTP requests.
type ChatHandler struct {
	service chatsync.Service
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service chatsync.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// Snapshot returns the current engine state.
func (h *ChatHandler) Snapshot() chatsync.Snapshot {
	return h.service.Snapshot()
}

// Refresh forces a directory refresh.
func (h *ChatHandler) Refresh(ctx context.Context) (chatsync.Snapshot, error) {
	if err := h.service.Refresh(ctx); err != nil {
		return chatsync.Snapshot{}, err
	}
	return h.service.Snapshot(), nil
}

// Open opens a conversation by id.
func (h *ChatHandler) Open(ctx context.Context, conversationID string) ([]chat.Message, error) {
	return h.service.Open(ctx, conversationID)
}

// OpenWithUser creates or fetches the conversation with a user and opens it.
func (h *ChatHandler) OpenWithUser(ctx context.Context, targetUserID string) (*chat.Conversation, []chat.Message, error) {
	return h.service.OpenWithUser(ctx, targetUserID)
}

// Close closes the open conversation.
func (h *ChatHandler) Close(ctx context.Context) error {
	return h.service.Close(ctx)
}

// Send sends a message to the open conversation.
func (h *ChatHandler) Send(ctx context.Context, content string) error {
	return h.service.Send(ctx, content)
}

// AcknowledgeRead marks a conversation read.
func (h *ChatHandler) AcknowledgeRead(ctx context.Context, conversationID string) error {
	return h.service.AcknowledgeRead(ctx, conversationID)
}
