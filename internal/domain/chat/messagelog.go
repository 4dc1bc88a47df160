package chat

// AppendResult reports what MessageLog.Append did.
type AppendResult int

const (
	// Appended means the message was added to the tail of the log.
	Appended AppendResult = iota
	// Buffered means the log is loading and the message will be merged after the history.
	Buffered
	// DuplicateMessage means a message with the same id is already held.
	DuplicateMessage
	// OtherConversation means the message belongs to a different conversation.
	OtherConversation
)

// MessageLog holds the ordered history of the single open conversation.
// Like Directory it is owned by the synchronization controller and is not
// safe for concurrent use.
type MessageLog struct {
	conversationID string
	loading        bool
	messages       []Message
	pending        []Message
	ids            map[string]struct{}
}

// NewMessageLog creates an empty log with no conversation open.
func NewMessageLog() *MessageLog {
	return &MessageLog{ids: make(map[string]struct{})}
}

// Begin discards any held log and starts loading conversationID. Messages
// appended while loading are kept and merged behind the fetched history.
func (l *MessageLog) Begin(conversationID string) {
	l.conversationID = conversationID
	l.loading = true
	l.messages = nil
	l.pending = nil
	l.ids = make(map[string]struct{})
}

// Load installs the fetched history and returns the ordered sequence.
func (l *MessageLog) Load(history []Message) []Message {
	l.messages = make([]Message, 0, len(history)+len(l.pending))
	l.ids = make(map[string]struct{}, len(history)+len(l.pending))
	for _, msg := range history {
		l.add(msg)
	}
	for _, msg := range l.pending {
		l.add(msg)
	}
	l.pending = nil
	l.loading = false
	return l.Messages()
}

// Merge appends the messages of a re-fetched history that are not held yet,
// preserving server order. It returns how many were added.
func (l *MessageLog) Merge(history []Message) int {
	if l.loading {
		l.Load(history)
		return len(l.messages)
	}
	added := 0
	for _, msg := range history {
		if l.add(msg) {
			added++
		}
	}
	return added
}

// Append adds msg to the tail when it belongs to the open conversation.
// Duplicate ids are dropped.
func (l *MessageLog) Append(msg Message) AppendResult {
	if l.conversationID == "" || msg.ConversationID != l.conversationID {
		return OtherConversation
	}
	if l.loading {
		for _, p := range l.pending {
			if msg.ID != "" && p.ID == msg.ID {
				return DuplicateMessage
			}
		}
		l.pending = append(l.pending, msg)
		return Buffered
	}
	if !l.add(msg) {
		return DuplicateMessage
	}
	return Appended
}

// Close discards the log.
func (l *MessageLog) Close() {
	l.conversationID = ""
	l.loading = false
	l.messages = nil
	l.pending = nil
	l.ids = make(map[string]struct{})
}

// ConversationID returns the open conversation or "".
func (l *MessageLog) ConversationID() string {
	return l.conversationID
}

// Loading reports whether the history fetch is outstanding.
func (l *MessageLog) Loading() bool {
	return l.loading
}

// Messages returns a copy of the held sequence.
func (l *MessageLog) Messages() []Message {
	return append([]Message(nil), l.messages...)
}

// Len returns the number of held messages.
func (l *MessageLog) Len() int {
	return len(l.messages)
}

// Last returns the final message of the log.
func (l *MessageLog) Last() (Message, bool) {
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

func (l *MessageLog) add(msg Message) bool {
	if msg.ConversationID != "" && msg.ConversationID != l.conversationID {
		return false
	}
	if msg.ID != "" {
		if _, dup := l.ids[msg.ID]; dup {
			return false
		}
		l.ids[msg.ID] = struct{}{}
	}
	if msg.ConversationID == "" {
		msg.ConversationID = l.conversationID
	}
	l.messages = append(l.messages, msg)
	return true
}
