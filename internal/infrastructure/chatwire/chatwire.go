// Package chatwire holds the JSON shapes exchanged with the chat service over
// REST and the push channel, and their conversion to domain types.
package chatwire

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/playarena/chat-sync/internal/domain/chat"
)

// User is a participant as serialized by the chat service.
type User struct {
	MongoID  string `json:"_id,omitempty"`
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Key returns whichever identifier the service populated.
func (u User) Key() string {
	if u.MongoID != "" {
		return u.MongoID
	}
	return u.ID
}

// ToDomain converts the user to a chat.Participant.
func (u User) ToDomain() chat.Participant {
	return chat.Participant{
		ID:          u.Key(),
		DisplayName: u.Username,
		Avatar:      u.Avatar,
	}
}

// UserRef is a sender field that is either a populated user object or a bare id.
type UserRef struct {
	User
}

// UnmarshalJSON accepts `"id"` as well as `{"_id": "...", ...}`.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = UserRef{User: User{MongoID: id}}
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*r = UserRef{User: u}
	return nil
}

// MarshalJSON writes the populated object form.
func (r UserRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.User)
}

// LastMessage is the conversation summary of the newest message.
type LastMessage struct {
	Sender    UserRef   `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a chat as serialized by the chat service.
type Conversation struct {
	MongoID      string         `json:"_id,omitempty"`
	ID           string         `json:"id,omitempty"`
	Participants []User         `json:"participants"`
	LastMessage  *LastMessage   `json:"lastMessage,omitempty"`
	UnreadCounts map[string]int `json:"unreadCounts"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Key returns whichever identifier the service populated.
func (c Conversation) Key() string {
	if c.MongoID != "" {
		return c.MongoID
	}
	return c.ID
}

// ToDomain converts the chat to a chat.Conversation. Negative counters are
// clamped to zero.
func (c Conversation) ToDomain() chat.Conversation {
	out := chat.Conversation{
		ID:           c.Key(),
		Participants: make([]chat.Participant, 0, len(c.Participants)),
		UnreadCounts: make(map[string]int, len(c.UnreadCounts)),
		UpdatedAt:    c.UpdatedAt,
	}
	for _, p := range c.Participants {
		out.Participants = append(out.Participants, p.ToDomain())
	}
	for id, n := range c.UnreadCounts {
		if n < 0 {
			n = 0
		}
		out.UnreadCounts[id] = n
	}
	if c.LastMessage != nil {
		out.LastMessage = &chat.LastMessage{
			SenderID:  c.LastMessage.Sender.Key(),
			Content:   c.LastMessage.Content,
			CreatedAt: c.LastMessage.CreatedAt,
		}
	}
	return out
}

// Message is a chat message as serialized by the chat service.
type Message struct {
	MongoID   string    `json:"_id,omitempty"`
	ID        string    `json:"id,omitempty"`
	ChatID    string    `json:"chatId"`
	Sender    UserRef   `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key returns whichever identifier the service populated.
func (m Message) Key() string {
	if m.MongoID != "" {
		return m.MongoID
	}
	return m.ID
}

// ToDomain converts the message to a chat.Message.
func (m Message) ToDomain() chat.Message {
	return chat.Message{
		ID:             m.Key(),
		ConversationID: m.ChatID,
		Sender:         m.Sender.ToDomain(),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// ConversationsToDomain converts a list of chats.
func ConversationsToDomain(in []Conversation) []chat.Conversation {
	out := make([]chat.Conversation, 0, len(in))
	for _, c := range in {
		out = append(out, c.ToDomain())
	}
	return out
}

// MessagesToDomain converts a list of messages, filling in conversationID
// where the service omitted it.
func MessagesToDomain(in []Message, conversationID string) []chat.Message {
	out := make([]chat.Message, 0, len(in))
	for _, m := range in {
		msg := m.ToDomain()
		if msg.ConversationID == "" {
			msg.ConversationID = conversationID
		}
		out = append(out, msg)
	}
	return out
}

// ListConversationsResponse is the body of GET /chats.
type ListConversationsResponse struct {
	Success bool           `json:"success"`
	Chats   []Conversation `json:"chats"`
}

// ConversationResponse is the body of POST /chats.
type ConversationResponse struct {
	Success bool          `json:"success"`
	Chat    *Conversation `json:"chat"`
}

// ListMessagesResponse is the body of GET /chats/:id/messages.
type ListMessagesResponse struct {
	Success  bool      `json:"success"`
	Messages []Message `json:"messages"`
}

// CreateConversationRequest is the body of POST /chats.
type CreateConversationRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// ErrorResponse is the body the chat service returns on failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Envelope frames every push channel event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendMessagePayload is the data of an outbound send_message event.
type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	ClientID string `json:"clientId,omitempty"`
}

// NewEnvelope marshals data into an envelope for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}
