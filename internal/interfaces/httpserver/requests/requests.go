// Package requests contains HTTP request DTOs for the chat bridge.
package requests

// OpenWithUserRequest opens (creating if needed) the conversation with a user.
type OpenWithUserRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required"`
}

// SendMessageRequest sends content to the open conversation.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
