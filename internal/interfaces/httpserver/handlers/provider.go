package handlers

import (
	"github.com/google/wire"

	"github.com/playarena/chat-sync/internal/application/chatsync"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Chat *ChatHandler
}

// NewProvider creates a new handler provider.
func NewProvider(service chatsync.Service) *Provider {
	return &Provider{
		Chat: NewChatHandler(service),
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewProvider,
)
