package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/playarena/chat-sync/internal/infrastructure/chatwire"
)

const writeWait = 5 * time.Second

// Signal is an outbound push signal received from a client.
type Signal struct {
	UserID string
	Event  string
	ChatID string
}

// ChatServer is an in-process chat service: REST under /api and a websocket
// push endpoint at /ws with per-chat rooms.
type ChatServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	// EmitDirectoryChanged sends chat_updated to participants after every
	// message and read acknowledgement.
	EmitDirectoryChanged bool
	// RoomOnlyDelivery restricts receive_message to connections that joined
	// the chat room. By default every participant connection gets it too.
	RoomOnlyDelivery bool

	mu         sync.Mutex
	users      map[string]chatwire.User
	chats      map[string]*serverChat
	messages   map[string][]chatwire.Message
	conns      map[*serverConn]struct{}
	signals    []Signal
	reads      []Signal
	listGate   chan struct{}
	msgGates   map[string]chan struct{}
	rejectPush bool
	dials      int
}

type serverChat struct {
	id           string
	participants []string
	lastMessage  *chatwire.LastMessage
	unread       map[string]int
	updatedAt    time.Time
}

type serverConn struct {
	userID string
	ws     *websocket.Conn
	wmu    sync.Mutex
	rooms  map[string]struct{}
}

func (c *serverConn) send(env chatwire.Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(env)
}

// NewChatServer starts a fake chat service and registers cleanup on t.
func NewChatServer(t testing.TB) *ChatServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &ChatServer{
		EmitDirectoryChanged: true,
		users:                make(map[string]chatwire.User),
		chats:                make(map[string]*serverChat),
		messages:             make(map[string][]chatwire.Message),
		conns:                make(map[*serverConn]struct{}),
		msgGates:             make(map[string]chan struct{}),
	}

	engine := gin.New()
	api := engine.Group("/api", s.authenticate)
	api.GET("/chats", s.listChats)
	api.POST("/chats", s.createChat)
	api.GET("/chats/:id/messages", s.listMessages)
	api.POST("/chats/:id/read", s.markRead)
	engine.GET("/ws", s.serveWS)

	s.srv = httptest.NewServer(engine)
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the REST base URL.
func (s *ChatServer) APIURL() string {
	return s.srv.URL + "/api"
}

// PushURL returns the websocket URL.
func (s *ChatServer) PushURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

// Close drops all push connections and stops the server.
func (s *ChatServer) Close() {
	s.DropConnections()
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// AddUser registers a user and returns a bearer token for it.
func (s *ChatServer) AddUser(id, username string) string {
	s.mu.Lock()
	s.users[id] = chatwire.User{MongoID: id, Username: username}
	s.mu.Unlock()
	return IssueToken(id)
}

// SeedConversation creates (or returns) the chat between a and b.
func (s *ChatServer) SeedConversation(a, b string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOrCreateLocked(a, b).id
}

// PostMessage stores a message from senderID and delivers it as if the
// sender had emitted send_message.
func (s *ChatServer) PostMessage(senderID, chatID, content string) chatwire.Message {
	msg, err := s.deliver(senderID, chatID, content)
	if err != nil {
		panic(err)
	}
	return msg
}

// Unread returns the server-side unread counter.
func (s *ChatServer) Unread(chatID, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[chatID]; ok {
		return c.unread[userID]
	}
	return 0
}

// Signals returns the push signals received from userID.
func (s *ChatServer) Signals(userID string) []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Signal
	for _, sig := range s.signals {
		if sig.UserID == userID {
			out = append(out, sig)
		}
	}
	return out
}

// CountSignals counts signals of event for chatID sent by userID.
func (s *ChatServer) CountSignals(userID, event, chatID string) int {
	n := 0
	for _, sig := range s.Signals(userID) {
		if sig.Event == event && sig.ChatID == chatID {
			n++
		}
	}
	return n
}

// ReadAcks returns the read acknowledgements received, in order.
func (s *ChatServer) ReadAcks() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Signal(nil), s.reads...)
}

// Connections returns the number of live push connections for userID.
func (s *ChatServer) Connections(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for c := range s.conns {
		if c.userID == userID {
			n++
		}
	}
	return n
}

// Dials returns the number of accepted websocket handshakes.
func (s *ChatServer) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// InRoom reports whether any connection of userID has joined chatID.
func (s *ChatServer) InRoom(userID, chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		if _, ok := c.rooms[chatID]; ok && c.userID == userID {
			return true
		}
	}
	return false
}

// SetRejectPush makes the websocket endpoint answer 401.
func (s *ChatServer) SetRejectPush(reject bool) {
	s.mu.Lock()
	s.rejectPush = reject
	s.mu.Unlock()
}

// DropConnections closes every push connection from the server side.
func (s *ChatServer) DropConnections() {
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*serverConn]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close()
	}
}

// HoldConversations blocks GET /chats until the returned release is called.
func (s *ChatServer) HoldConversations() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.listGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.listGate == gate {
				s.listGate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// HoldMessages blocks GET /chats/:id/messages for chatID until release.
func (s *ChatServer) HoldMessages(chatID string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.msgGates[chatID] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.msgGates[chatID] == gate {
				delete(s.msgGates, chatID)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *ChatServer) authenticate(c *gin.Context) {
	userID, err := ParseBearer(c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, chatwire.ErrorResponse{Message: "Not authorized"})
		return
	}
	c.Set("user_id", userID)
	c.Next()
}

func (s *ChatServer) listChats(c *gin.Context) {
	userID := c.GetString("user_id")

	s.mu.Lock()
	gate := s.listGate
	s.mu.Unlock()
	if !wait(c, gate) {
		return
	}

	s.mu.Lock()
	var out []*serverChat
	for _, chat := range s.chats {
		if contains(chat.participants, userID) {
			out = append(out, chat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].updatedAt.Equal(out[j].updatedAt) {
			return out[i].id < out[j].id
		}
		return out[i].updatedAt.After(out[j].updatedAt)
	})
	chats := make([]chatwire.Conversation, 0, len(out))
	for _, chat := range out {
		chats = append(chats, s.toWireLocked(chat))
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, chatwire.ListConversationsResponse{Success: true, Chats: chats})
}

func (s *ChatServer) createChat(c *gin.Context) {
	userID := c.GetString("user_id")

	var req chatwire.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetUserID == "" {
		c.JSON(http.StatusBadRequest, chatwire.ErrorResponse{Message: "Target user ID is required"})
		return
	}

	s.mu.Lock()
	if _, ok := s.users[req.TargetUserID]; !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, chatwire.ErrorResponse{Message: "User not found"})
		return
	}
	chat := s.findOrCreateLocked(userID, req.TargetUserID)
	wire := s.toWireLocked(chat)
	s.mu.Unlock()

	c.JSON(http.StatusOK, chatwire.ConversationResponse{Success: true, Chat: &wire})
}

func (s *ChatServer) listMessages(c *gin.Context) {
	userID := c.GetString("user_id")
	chatID := c.Param("id")

	s.mu.Lock()
	gate := s.msgGates[chatID]
	s.mu.Unlock()
	if !wait(c, gate) {
		return
	}

	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok || !contains(chat.participants, userID) {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, chatwire.ErrorResponse{Message: "Chat not found"})
		return
	}
	chat.unread[userID] = 0
	msgs := append([]chatwire.Message{}, s.messages[chatID]...)
	participants := append([]string(nil), chat.participants...)
	s.mu.Unlock()

	s.notifyDirectoryChanged(participants)
	c.JSON(http.StatusOK, chatwire.ListMessagesResponse{Success: true, Messages: msgs})
}

func (s *ChatServer) markRead(c *gin.Context) {
	userID := c.GetString("user_id")
	chatID := c.Param("id")

	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok || !contains(chat.participants, userID) {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, chatwire.ErrorResponse{Message: "Chat not found"})
		return
	}
	chat.unread[userID] = 0
	s.reads = append(s.reads, Signal{UserID: userID, Event: "read", ChatID: chatID})
	participants := append([]string(nil), chat.participants...)
	s.mu.Unlock()

	s.notifyDirectoryChanged(participants)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *ChatServer) serveWS(c *gin.Context) {
	userID, err := ParseBearer(c.GetHeader("Authorization"))
	s.mu.Lock()
	reject := s.rejectPush
	s.mu.Unlock()
	if err != nil || reject {
		c.AbortWithStatusJSON(http.StatusUnauthorized, chatwire.ErrorResponse{Message: "Not authorized"})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := &serverConn{userID: userID, ws: ws, rooms: make(map[string]struct{})}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.dials++
	s.mu.Unlock()

	go s.readLoop(conn)
}

func (s *ChatServer) readLoop(conn *serverConn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.ws.Close()
	}()

	for {
		var env chatwire.Envelope
		if err := conn.ws.ReadJSON(&env); err != nil {
			return
		}

		switch env.Event {
		case "join_chat", "leave_chat":
			var chatID string
			if err := json.Unmarshal(env.Data, &chatID); err != nil {
				continue
			}
			s.mu.Lock()
			if env.Event == "join_chat" {
				conn.rooms[chatID] = struct{}{}
			} else {
				delete(conn.rooms, chatID)
			}
			s.signals = append(s.signals, Signal{UserID: conn.userID, Event: env.Event, ChatID: chatID})
			s.mu.Unlock()
		case "send_message":
			var payload chatwire.SendMessagePayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				continue
			}
			s.mu.Lock()
			s.signals = append(s.signals, Signal{UserID: conn.userID, Event: env.Event, ChatID: payload.ChatID})
			s.mu.Unlock()
			_, _ = s.deliver(conn.userID, payload.ChatID, payload.Content)
		}
	}
}

func (s *ChatServer) deliver(senderID, chatID, content string) (chatwire.Message, error) {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok || !contains(chat.participants, senderID) {
		s.mu.Unlock()
		return chatwire.Message{}, fmt.Errorf("chat %s not found for %s", chatID, senderID)
	}

	now := time.Now().UTC()
	msg := chatwire.Message{
		MongoID:   uuid.NewString(),
		ChatID:    chatID,
		Sender:    chatwire.UserRef{User: s.users[senderID]},
		Content:   content,
		CreatedAt: now,
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	chat.lastMessage = &chatwire.LastMessage{
		Sender:    chatwire.UserRef{User: chatwire.User{MongoID: senderID}},
		Content:   content,
		CreatedAt: now,
	}
	chat.updatedAt = now
	for _, p := range chat.participants {
		if p != senderID {
			chat.unread[p]++
		}
	}

	var targets []*serverConn
	for conn := range s.conns {
		_, inRoom := conn.rooms[chatID]
		if inRoom || (!s.RoomOnlyDelivery && contains(chat.participants, conn.userID)) {
			targets = append(targets, conn)
		}
	}
	participants := append([]string(nil), chat.participants...)
	s.mu.Unlock()

	env, err := chatwire.NewEnvelope("receive_message", msg)
	if err != nil {
		return chatwire.Message{}, err
	}
	for _, conn := range targets {
		_ = conn.send(env)
	}
	s.notifyDirectoryChanged(participants)
	return msg, nil
}

func (s *ChatServer) notifyDirectoryChanged(participants []string) {
	if !s.EmitDirectoryChanged {
		return
	}
	s.mu.Lock()
	var targets []*serverConn
	for conn := range s.conns {
		if contains(participants, conn.userID) {
			targets = append(targets, conn)
		}
	}
	s.mu.Unlock()

	env := chatwire.Envelope{Event: "chat_updated"}
	for _, conn := range targets {
		_ = conn.send(env)
	}
}

func (s *ChatServer) findOrCreateLocked(a, b string) *serverChat {
	for _, chat := range s.chats {
		if contains(chat.participants, a) && contains(chat.participants, b) {
			return chat
		}
	}
	chat := &serverChat{
		id:           uuid.NewString(),
		participants: []string{a, b},
		unread:       map[string]int{a: 0, b: 0},
		updatedAt:    time.Now().UTC(),
	}
	s.chats[chat.id] = chat
	return chat
}

func (s *ChatServer) toWireLocked(chat *serverChat) chatwire.Conversation {
	out := chatwire.Conversation{
		MongoID:      chat.id,
		UnreadCounts: make(map[string]int, len(chat.unread)),
		UpdatedAt:    chat.updatedAt,
	}
	for _, p := range chat.participants {
		out.Participants = append(out.Participants, s.users[p])
	}
	for k, v := range chat.unread {
		out.UnreadCounts[k] = v
	}
	if chat.lastMessage != nil {
		lm := *chat.lastMessage
		out.LastMessage = &lm
	}
	return out
}

func wait(c *gin.Context, gate chan struct{}) bool {
	if gate == nil {
		return true
	}
	select {
	case <-gate:
		return true
	case <-c.Request.Context().Done():
		return false
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
