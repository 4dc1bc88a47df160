package chat

import "time"

// Participant is one side of a two-party conversation.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

// LastMessage is the denormalized summary of a conversation's newest message.
type LastMessage struct {
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a two-party chat thread and its summary state.
type Conversation struct {
	ID           string         `json:"id"`
	Participants []Participant  `json:"participants"`
	LastMessage  *LastMessage   `json:"last_message,omitempty"`
	UnreadCounts map[string]int `json:"unread_counts"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Message is a single chat message scoped to a conversation.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Sender         Participant `json:"sender"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Identity is the local session user.
type Identity struct {
	UserID string
	Token  string
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	if c.Participants != nil {
		out.Participants = append([]Participant(nil), c.Participants...)
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		out.LastMessage = &lm
	}
	if c.UnreadCounts != nil {
		out.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
		for k, v := range c.UnreadCounts {
			out.UnreadCounts[k] = v
		}
	}
	return out
}

// Counterpart returns the participant that is not userID.
func (c Conversation) Counterpart(userID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// HasParticipant reports whether userID takes part in the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// Unread returns the unread count recorded for userID.
func (c Conversation) Unread(userID string) int {
	return c.UnreadCounts[userID]
}

// UnreadCount returns the unread count for userID and whether the service
// reported one at all.
func (c Conversation) UnreadCount(userID string) (int, bool) {
	n, ok := c.UnreadCounts[userID]
	return n, ok
}

// IsMine reports whether the message was authored by userID.
func (m Message) IsMine(userID string) bool {
	return m.Sender.ID == userID
}
