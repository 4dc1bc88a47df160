// Package pushconn owns the persistent websocket push channel to the chat
// service: authentication, automatic reconnection and typed event fan-out.
package pushconn

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/playarena/chat-sync/internal/domain/chat"
	"github.com/playarena/chat-sync/internal/domain/retry"
	"github.com/playarena/chat-sync/internal/infrastructure/chatwire"
	"github.com/playarena/chat-sync/internal/infrastructure/metrics"
)

const maxMessageSize = 1 << 20

// Options configures a Connection.
type Options struct {
	URL              string
	Policy           retry.Policy
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
}

// Connection is one authenticated, long-lived push channel. Rooms joined
// before a reconnect are not rejoined; that is left to the subscriber.
type Connection struct {
	opts   Options
	dialer *websocket.Dialer
	log    zerolog.Logger
	events bus

	mu            sync.Mutex
	cancel        context.CancelFunc
	done          chan struct{}
	ws            *websocket.Conn
	everConnected bool

	wmu sync.Mutex
}

// New creates a disconnected Connection.
func New(opts Options, log zerolog.Logger) *Connection {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Connection{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		log: log.With().Str("component", "push-connection").Logger(),
	}
}

// Connect starts the connection loop using token as the bearer credential.
// It returns immediately. Calling it while a loop is already running is a
// no-op, and an empty token is logged and ignored.
func (c *Connection) Connect(token string) {
	if strings.TrimSpace(token) == "" {
		c.log.Warn().Msg("no auth token, push connection not started")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, token, c.done)
}

// Disconnect tears the channel down and waits for the loop to exit.
// It is safe to call when not connected.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	cancel, done, ws := c.cancel, c.done, c.ws
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if ws != nil {
		_ = ws.Close()
	}
	<-done
	c.log.Info().Msg("push connection closed")
}

// Connected reports whether a websocket is currently established.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// OnDirectoryChanged registers fn for chat_updated events.
func (c *Connection) OnDirectoryChanged(fn func()) chat.Subscription {
	return c.events.directory.add(fn)
}

// OnMessageReceived registers fn for receive_message events.
func (c *Connection) OnMessageReceived(fn func(chat.Message)) chat.Subscription {
	return c.events.messages.add(fn)
}

// OnConnectionChanged registers fn for connect and disconnect transitions.
func (c *Connection) OnConnectionChanged(fn func(chat.ConnectionEvent)) chat.Subscription {
	return c.events.connection.add(fn)
}

// JoinChat subscribes the connection to a conversation room.
func (c *Connection) JoinChat(conversationID string) error {
	return c.emit(chat.EventJoinChat, conversationID)
}

// LeaveChat unsubscribes the connection from a conversation room.
func (c *Connection) LeaveChat(conversationID string) error {
	return c.emit(chat.EventLeaveChat, conversationID)
}

// SendMessage emits send_message. Nothing is queued while disconnected.
func (c *Connection) SendMessage(conversationID, content string) error {
	return c.emit(chat.EventSendMessage, chatwire.SendMessagePayload{
		ChatID:   conversationID,
		Content:  content,
		ClientID: uuid.NewString(),
	})
}

func (c *Connection) emit(event string, data any) (err error) {
	defer func() { metrics.RecordPushSent(event, err) }()

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return chat.ErrNotConnected
	}

	env, err := chatwire.NewEnvelope(event, data)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := ws.WriteJSON(env); err != nil {
		c.log.Warn().Err(err).Str("event", event).Msg("push write failed")
		_ = ws.Close()
		return err
	}
	return nil
}

func (c *Connection) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	backoff := retry.NewBackoff(c.opts.Policy)
	for {
		established, err := c.session(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if established {
			backoff.Reset()
		}

		delay := backoff.Next()
		metrics.PushReconnects.Inc()
		c.log.Warn().
			Err(err).
			Int("attempt", backoff.Attempt()).
			Dur("retry_in", delay).
			Msg("push connection lost, reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session dials once and pumps events until the websocket fails.
func (c *Connection) session(ctx context.Context, token string) (bool, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialCtx, cancelDial := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	ws, resp, err := c.dialer.DialContext(dialCtx, c.opts.URL, header)
	cancelDial()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.log.Error().Int("status", resp.StatusCode).Msg("push authentication rejected")
		}
		return false, err
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = ws.Close()
		return false, ctx.Err()
	}
	c.ws = ws
	reconnect := c.everConnected
	c.everConnected = true
	c.mu.Unlock()

	metrics.SetPushConnected(true)
	c.log.Info().Bool("reconnect", reconnect).Msg("push connection established")
	c.events.publishConnection(chat.ConnectionEvent{State: chat.ConnectionConnected, Reconnect: reconnect})

	connCtx, cancelConn := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.keepAlive(connCtx, ws)
	}()

	err = c.readLoop(ws)

	cancelConn()
	_ = ws.Close()
	wg.Wait()

	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.mu.Unlock()

	metrics.SetPushConnected(false)
	c.events.publishConnection(chat.ConnectionEvent{State: chat.ConnectionDisconnected})
	return true, err
}

// keepAlive pings on an interval and closes the socket when ctx ends so the
// blocked reader returns.
func (c *Connection) keepAlive(ctx context.Context, ws *websocket.Conn) {
	if c.opts.PingInterval <= 0 {
		<-ctx.Done()
		_ = ws.Close()
		return
	}

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = ws.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				_ = ws.Close()
				return
			}
		}
	}
}

func (c *Connection) readLoop(ws *websocket.Conn) error {
	ws.SetReadLimit(maxMessageSize)
	if c.opts.PingInterval > 0 {
		wait := 2 * c.opts.PingInterval
		_ = ws.SetReadDeadline(time.Now().Add(wait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		if c.opts.PingInterval > 0 {
			_ = ws.SetReadDeadline(time.Now().Add(2 * c.opts.PingInterval))
		}
		c.dispatch(data)
	}
}

func (c *Connection) dispatch(data []byte) {
	var env chatwire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Warn().Err(err).Msg("malformed push frame")
		return
	}
	metrics.PushEventsReceived.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case chat.EventDirectoryChanged, chat.EventDirectoryAlias:
		c.events.publishDirectoryChanged()
	case chat.EventReceiveMessage:
		var wire chatwire.Message
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			c.log.Warn().Err(err).Msg("malformed receive_message payload")
			return
		}
		msg := wire.ToDomain()
		if msg.ConversationID == "" {
			c.log.Warn().Str("message_id", msg.ID).Msg("receive_message without chat id")
			return
		}
		c.events.publishMessage(msg)
	default:
		c.log.Debug().Str("event", env.Event).Msg("ignoring push event")
	}
}
