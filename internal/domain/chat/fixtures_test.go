package chat

import "time"

var (
	alice = Participant{ID: "u-alice", DisplayName: "alice"}
	bob   = Participant{ID: "u-bob", DisplayName: "bob"}
	carol = Participant{ID: "u-carol", DisplayName: "carol"}

	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func conversation(id string, a, b Participant, unread map[string]int) Conversation {
	if unread == nil {
		unread = map[string]int{}
	}
	return Conversation{
		ID:           id,
		Participants: []Participant{a, b},
		UnreadCounts: unread,
		UpdatedAt:    baseTime,
	}
}

func message(id, convID string, sender Participant, content string, offset int) Message {
	return Message{
		ID:             id,
		ConversationID: convID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      baseTime.Add(time.Duration(offset) * time.Second),
	}
}
