package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/playarena/chat-sync/internal/domain/chat"
)

var (
	me   = chat.Participant{ID: "u-me", DisplayName: "me"}
	bob  = chat.Participant{ID: "u-bob", DisplayName: "bob"}
	dave = chat.Participant{ID: "u-dave", DisplayName: "dave"}

	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func conversation(id string, other chat.Participant, unread map[string]int) chat.Conversation {
	if unread == nil {
		unread = map[string]int{}
	}
	return chat.Conversation{
		ID:           id,
		Participants: []chat.Participant{me, other},
		UnreadCounts: unread,
		UpdatedAt:    baseTime,
	}
}

func message(id, convID string, sender chat.Participant, content string) chat.Message {
	return chat.Message{ID: id, ConversationID: convID, Sender: sender, Content: content, CreatedAt: baseTime}
}

type mockRemote struct {
	ListConversationsFunc         func(ctx context.Context) ([]chat.Conversation, error)
	CreateOrFetchConversationFunc func(ctx context.Context, targetUserID string) (*chat.Conversation, error)
	ListMessagesFunc              func(ctx context.Context, conversationID string) ([]chat.Message, error)
	AcknowledgeReadFunc           func(ctx context.Context, conversationID string) error

	mu    sync.Mutex
	lists int
	acks  []string
}

func (m *mockRemote) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	m.mu.Lock()
	m.lists++
	m.mu.Unlock()
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRemote) CreateOrFetchConversation(ctx context.Context, targetUserID string) (*chat.Conversation, error) {
	if m.CreateOrFetchConversationFunc != nil {
		return m.CreateOrFetchConversationFunc(ctx, targetUserID)
	}
	return nil, chat.ErrConversationNotFound
}

func (m *mockRemote) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *mockRemote) AcknowledgeRead(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	m.acks = append(m.acks, conversationID)
	m.mu.Unlock()
	if m.AcknowledgeReadFunc != nil {
		return m.AcknowledgeReadFunc(ctx, conversationID)
	}
	return nil
}

func (m *mockRemote) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

func (m *mockRemote) ackCount(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.acks {
		if id == conversationID {
			n++
		}
	}
	return n
}

type sentSignal struct {
	Event          string
	ConversationID string
	Content        string
}

// fakeTransport is a push channel driven by the test.
type fakeTransport struct {
	mu         sync.Mutex
	connected  bool
	token      string
	signals    []sentSignal
	directory  []func()
	messages   []func(chat.Message)
	connection []func(chat.ConnectionEvent)
	disconnect int
	lifecycle  []string
}

type fakeSubscription struct{ remove func() }

func (s fakeSubscription) Unsubscribe() { s.remove() }

func (f *fakeTransport) Connect(token string) {
	f.mu.Lock()
	f.token = token
	f.lifecycle = append(f.lifecycle, "connect")
	f.mu.Unlock()
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.disconnect++
	f.lifecycle = append(f.lifecycle, "disconnect")
	f.mu.Unlock()
}

func (f *fakeTransport) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lifecycle...)
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) JoinChat(conversationID string) error {
	return f.emit(sentSignal{Event: chat.EventJoinChat, ConversationID: conversationID})
}

func (f *fakeTransport) LeaveChat(conversationID string) error {
	return f.emit(sentSignal{Event: chat.EventLeaveChat, ConversationID: conversationID})
}

func (f *fakeTransport) SendMessage(conversationID, content string) error {
	return f.emit(sentSignal{Event: chat.EventSendMessage, ConversationID: conversationID, Content: content})
}

func (f *fakeTransport) emit(sig sentSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return chat.ErrNotConnected
	}
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeTransport) OnDirectoryChanged(fn func()) chat.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directory = append(f.directory, fn)
	return fakeSubscription{remove: func() {
		f.mu.Lock()
		f.directory = nil
		f.mu.Unlock()
	}}
}

func (f *fakeTransport) OnMessageReceived(fn func(chat.Message)) chat.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, fn)
	return fakeSubscription{remove: func() {
		f.mu.Lock()
		f.messages = nil
		f.mu.Unlock()
	}}
}

func (f *fakeTransport) OnConnectionChanged(fn func(chat.ConnectionEvent)) chat.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connection = append(f.connection, fn)
	return fakeSubscription{remove: func() {
		f.mu.Lock()
		f.connection = nil
		f.mu.Unlock()
	}}
}

func (f *fakeTransport) goUp(reconnect bool) {
	f.mu.Lock()
	f.connected = true
	handlers := append([]func(chat.ConnectionEvent){}, f.connection...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(chat.ConnectionEvent{State: chat.ConnectionConnected, Reconnect: reconnect})
	}
}

func (f *fakeTransport) goDown() {
	f.mu.Lock()
	f.connected = false
	handlers := append([]func(chat.ConnectionEvent){}, f.connection...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(chat.ConnectionEvent{State: chat.ConnectionDisconnected})
	}
}

func (f *fakeTransport) push(msg chat.Message) {
	f.mu.Lock()
	handlers := append([]func(chat.Message){}, f.messages...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(msg)
	}
}

func (f *fakeTransport) directoryChanged() {
	f.mu.Lock()
	handlers := append([]func(){}, f.directory...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (f *fakeTransport) count(event, conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sig := range f.signals {
		if sig.Event == event && sig.ConversationID == conversationID {
			n++
		}
	}
	return n
}

func (f *fakeTransport) sent() []sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSignal(nil), f.signals...)
}
