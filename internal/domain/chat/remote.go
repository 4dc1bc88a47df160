package chat

import "context"

// Remote is the REST collaborator that owns authoritative chat state.
type Remote interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	CreateOrFetchConversation(ctx context.Context, targetUserID string) (*Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	ReadAcknowledger
}

// ReadAcknowledger clears the caller's unread counter server-side.
type ReadAcknowledger interface {
	AcknowledgeRead(ctx context.Context, conversationID string) error
}
