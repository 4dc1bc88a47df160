package chatsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/playarena/chat-sync/internal/domain/chat"
)

const opQueueSize = 256

var _ Service = (*Controller)(nil)

// Options tunes the controller.
type Options struct {
	RequestTimeout time.Duration
	DedupCacheSize int
	UpdateBuffer   int
}

// Controller is the synchronization controller. Every mutation of the
// directory and message log runs on a single goroutine; REST calls run
// elsewhere and post their results back to it.
type Controller struct {
	identity  chat.Identity
	remote    chat.Remote
	transport Transport
	receipts  *chat.ReceiptTracker
	opts      Options
	log       zerolog.Logger

	ops      chan func()
	stopped  chan struct{}
	loopDone chan struct{}
	updates  chan Update
	subs     []chat.Subscription

	baseCtx    context.Context
	cancelBase context.CancelFunc
	bg         sync.WaitGroup

	lifecycle sync.Mutex
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	snapshot  atomic.Pointer[Snapshot]

	// Owned by the loop goroutine.
	directory    *chat.Directory
	messages     *chat.MessageLog
	connected    bool
	openGen      uint64
	refreshing   int
	refreshAgain bool
	version      uint64
	lastState    State
}

// New creates a controller. Start must be called before any operation.
func New(identity chat.Identity, remote chat.Remote, transport Transport, opts Options, log zerolog.Logger) (*Controller, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.DedupCacheSize <= 0 {
		opts.DedupCacheSize = 1024
	}
	if opts.UpdateBuffer < 0 {
		opts.UpdateBuffer = 0
	}

	directory, err := chat.NewDirectory(opts.DedupCacheSize)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "chat-sync-controller").Str("user_id", identity.UserID).Logger()
	baseCtx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		identity:   identity,
		remote:     remote,
		transport:  transport,
		receipts:   chat.NewReceiptTracker(remote, log),
		opts:       opts,
		log:        logger,
		ops:        make(chan func(), opQueueSize),
		stopped:    make(chan struct{}),
		loopDone:   make(chan struct{}),
		updates:    make(chan Update, opts.UpdateBuffer),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		directory:  directory,
		messages:   chat.NewMessageLog(),
		lastState:  StateDisconnected,
	}
	c.snapshot.Store(&Snapshot{State: StateDisconnected, UserID: identity.UserID})
	return c, nil
}

// Start subscribes to the transport, starts the event loop, requests the
// first directory snapshot and connects the push channel. The controller
// stops when ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.lifecycle.Lock()
		defer c.lifecycle.Unlock()
		select {
		case <-c.stopped:
			return
		default:
		}
		c.started.Store(true)
		c.subs = []chat.Subscription{
			c.transport.OnConnectionChanged(func(ev chat.ConnectionEvent) {
				_ = c.enqueue(func() { c.handleConnection(ev) })
			}),
			c.transport.OnDirectoryChanged(func() {
				_ = c.enqueue(c.handleDirectoryChanged)
			}),
			c.transport.OnMessageReceived(func(msg chat.Message) {
				_ = c.enqueue(func() { c.handleMessage(msg) })
			}),
		}

		go c.run()
		_ = c.enqueue(func() { c.startRefresh(nil) })
		c.transport.Connect(c.identity.Token)

		// Stop waits on the lifecycle lock, so Disconnect follows Connect.
		go func() {
			select {
			case <-ctx.Done():
				c.Stop()
			case <-c.stopped:
			}
		}()
		c.log.Info().Msg("chat sync controller started")
	})
}

// Stop disconnects the transport and shuts the loop down. Safe to call
// multiple times.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.lifecycle.Lock()
		for _, sub := range c.subs {
			sub.Unsubscribe()
		}
		c.transport.Disconnect()
		c.cancelBase()
		close(c.stopped)
		c.lifecycle.Unlock()
		if c.started.Load() {
			<-c.loopDone
		}
		c.bg.Wait()
		c.log.Info().Msg("chat sync controller stopped")
	})
}

// Updates delivers a notification after every state change. Notifications
// are dropped when the buffer is full; Snapshot always has the latest state.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// State returns the current state machine position.
func (c *Controller) State() State {
	return c.snapshot.Load().State
}

// Refresh replaces the directory with a fresh snapshot and waits for it to
// be applied.
func (c *Controller) Refresh(ctx context.Context) error {
	done := make(chan error, 1)
	if err := c.enqueue(func() {
		c.startRefresh(func(err error) { done <- err })
	}); err != nil {
		return err
	}
	return c.await(ctx, done)
}

// Open loads conversationID into the message log, joins its room and
// acknowledges read. It returns the ordered history.
func (c *Controller) Open(ctx context.Context, conversationID string) ([]chat.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, chat.ErrEmptyConversationID
	}

	type result struct {
		msgs []chat.Message
		err  error
	}
	done := make(chan result, 1)
	if err := c.enqueue(func() {
		c.beginOpen(conversationID, func(msgs []chat.Message, err error) {
			done <- result{msgs: msgs, err: err}
		})
	}); err != nil {
		return nil, err
	}

	select {
	case r := <-done:
		return r.msgs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stopped:
		return nil, chat.ErrStopped
	}
}

// OpenWithUser creates or fetches the conversation with targetUserID and
// opens it.
func (c *Controller) OpenWithUser(ctx context.Context, targetUserID string) (*chat.Conversation, []chat.Message, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return nil, nil, chat.ErrEmptyTargetUser
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	conv, err := c.remote.CreateOrFetchConversation(reqCtx, targetUserID)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("create or fetch conversation: %w", err)
	}

	if err := c.enqueue(func() {
		if c.directory.Insert(*conv) {
			c.requestRefresh()
		}
	}); err != nil {
		return nil, nil, err
	}

	msgs, err := c.Open(ctx, conv.ID)
	if err != nil {
		return conv, nil, err
	}
	return conv, msgs, nil
}

// Close leaves the open conversation's room and discards its log. Closing
// with nothing open is a no-op.
func (c *Controller) Close(ctx context.Context) error {
	return c.call(ctx, c.closeConversation)
}

// Send emits content to the open conversation over the push channel. The
// log is updated when the message is echoed back. Sends while disconnected
// are dropped.
func (c *Controller) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return chat.ErrEmptyMessage
	}

	var (
		conversationID string
		connected      bool
	)
	if err := c.call(ctx, func() {
		conversationID = c.messages.ConversationID()
		connected = c.connected
	}); err != nil {
		return err
	}

	if conversationID == "" {
		return chat.ErrNoConversationOpen
	}
	if !connected {
		c.log.Warn().Str("conversation_id", conversationID).Msg("send dropped, push channel not connected")
		return chat.ErrNotConnected
	}
	if err := c.transport.SendMessage(conversationID, content); err != nil {
		c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("send failed")
		return err
	}
	return nil
}

// AcknowledgeRead marks conversationID read locally and on the server.
func (c *Controller) AcknowledgeRead(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return chat.ErrEmptyConversationID
	}
	if err := c.call(ctx, func() {
		c.directory.MarkRead(conversationID, c.identity.UserID)
	}); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	err := c.receipts.AcknowledgeRead(reqCtx, conversationID)
	recordAck(err)
	return err
}

func (c *Controller) run() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.stopped:
			return
		case op := <-c.ops:
			op()
			c.publish()
		}
	}
}

func (c *Controller) enqueue(op func()) error {
	select {
	case <-c.stopped:
		return chat.ErrStopped
	default:
	}
	select {
	case c.ops <- op:
		return nil
	case <-c.stopped:
		return chat.ErrStopped
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(ctx context.Context, fn func()) error {
	done := make(chan error, 1)
	if err := c.enqueue(func() {
		fn()
		done <- nil
	}); err != nil {
		return err
	}
	return c.await(ctx, done)
}

func (c *Controller) await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return chat.ErrStopped
	}
}

// spawn runs fn off the loop with a request timeout bound to the
// controller's lifetime.
func (c *Controller) spawn(fn func(ctx context.Context)) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(c.baseCtx, c.opts.RequestTimeout)
		defer cancel()
		fn(ctx)
	}()
}
