package chatsync

import (
	"context"

	"github.com/playarena/chat-sync/internal/domain/chat"
	"github.com/playarena/chat-sync/internal/infrastructure/metrics"
)

// Everything in this file runs on the loop goroutine.

func (c *Controller) handleConnection(ev chat.ConnectionEvent) {
	switch ev.State {
	case chat.ConnectionConnected:
		c.connected = true
		c.log.Info().Bool("reconnect", ev.Reconnect).Msg("push channel up, refreshing directory")
		c.startRefresh(nil)

		openID := c.messages.ConversationID()
		if openID == "" {
			return
		}
		if err := c.transport.JoinChat(openID); err != nil {
			c.log.Warn().Err(err).Str("conversation_id", openID).Msg("rejoin failed")
		}
		c.resync(openID)
	case chat.ConnectionDisconnected:
		c.connected = false
		c.log.Warn().Msg("push channel down, serving cached state")
	}
}

func (c *Controller) handleDirectoryChanged() {
	if !c.connected {
		return
	}
	c.requestRefresh()
}

func (c *Controller) handleMessage(msg chat.Message) {
	if !c.connected {
		c.log.Debug().Str("message_id", msg.ID).Msg("dropping push message while disconnected")
		return
	}

	if openID := c.messages.ConversationID(); openID != "" && msg.ConversationID == openID {
		switch c.messages.Append(msg) {
		case chat.Appended, chat.Buffered:
			// Keep the preview current; the local counter stays at zero
			// because the message is read as it arrives.
			c.directory.ApplyIncomingMessage(msg)
			c.directory.MarkRead(openID, c.identity.UserID)
			c.acknowledge(openID)
		case chat.DuplicateMessage:
			c.log.Debug().Str("message_id", msg.ID).Msg("duplicate message ignored")
		}
		return
	}

	switch c.directory.ApplyIncomingMessage(msg) {
	case chat.Unknown:
		c.log.Debug().Str("conversation_id", msg.ConversationID).Msg("message for unknown conversation, refreshing")
		c.requestRefresh()
	case chat.Duplicate:
		c.log.Debug().Str("message_id", msg.ID).Msg("duplicate message ignored")
	}
}

// requestRefresh coalesces event-driven refreshes: while one is in flight a
// single follow-up is scheduled for when it completes.
func (c *Controller) requestRefresh() {
	if c.refreshing > 0 {
		c.refreshAgain = true
		return
	}
	c.startRefresh(nil)
}

func (c *Controller) startRefresh(done func(error)) {
	seq := c.directory.BeginRefresh()
	c.refreshing++
	c.spawn(func(ctx context.Context) {
		convs, err := c.remote.ListConversations(ctx)
		_ = c.enqueue(func() {
			c.finishRefresh(seq, convs, err)
			if done != nil {
				done(err)
			}
		})
	})
}

func (c *Controller) finishRefresh(seq uint64, convs []chat.Conversation, err error) {
	c.refreshing--

	switch {
	case err != nil:
		metrics.DirectoryRefreshes.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Uint64("seq", seq).Msg("directory refresh failed")
	case !c.directory.Replace(seq, convs):
		metrics.DirectoryRefreshes.WithLabelValues("stale").Inc()
		metrics.StaleResultsDiscarded.WithLabelValues("directory").Inc()
		c.log.Debug().Uint64("seq", seq).Msg("discarding stale directory snapshot")
	default:
		metrics.DirectoryRefreshes.WithLabelValues("applied").Inc()
		c.log.Debug().Uint64("seq", seq).Int("conversations", len(convs)).Msg("directory refreshed")
	}

	if c.refreshing == 0 && c.refreshAgain {
		c.refreshAgain = false
		c.startRefresh(nil)
	}
}

func (c *Controller) beginOpen(conversationID string, done func([]chat.Message, error)) {
	if prev := c.messages.ConversationID(); prev != "" && prev != conversationID && c.connected {
		if err := c.transport.LeaveChat(prev); err != nil {
			c.log.Warn().Err(err).Str("conversation_id", prev).Msg("leave failed")
		}
	}

	c.openGen++
	gen := c.openGen
	c.messages.Begin(conversationID)

	if c.connected {
		if err := c.transport.JoinChat(conversationID); err != nil {
			c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("join failed")
		}
	}

	c.spawn(func(ctx context.Context) {
		history, err := c.remote.ListMessages(ctx, conversationID)
		_ = c.enqueue(func() {
			c.finishOpen(gen, conversationID, history, err, done)
		})
	})
}

func (c *Controller) finishOpen(gen uint64, conversationID string, history []chat.Message, err error, done func([]chat.Message, error)) {
	if gen != c.openGen || c.messages.ConversationID() != conversationID {
		metrics.StaleResultsDiscarded.WithLabelValues("messages").Inc()
		c.log.Debug().Str("conversation_id", conversationID).Msg("discarding messages for superseded open")
		done(nil, chat.ErrSuperseded)
		return
	}

	if err != nil {
		c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("message history fetch failed")
		if c.messages.Loading() {
			c.messages.Load(nil)
		}
		done(nil, err)
		return
	}

	if c.messages.Loading() {
		c.messages.Load(history)
	} else {
		c.messages.Merge(history)
	}
	c.directory.MarkRead(conversationID, c.identity.UserID)
	c.acknowledge(conversationID)
	done(c.messages.Messages(), nil)
}

// resync re-fetches the open conversation after a reconnect and merges
// anything delivered while the push channel was down.
func (c *Controller) resync(conversationID string) {
	gen := c.openGen
	c.spawn(func(ctx context.Context) {
		history, err := c.remote.ListMessages(ctx, conversationID)
		_ = c.enqueue(func() {
			if gen != c.openGen || c.messages.ConversationID() != conversationID {
				metrics.StaleResultsDiscarded.WithLabelValues("resync").Inc()
				return
			}
			if err != nil {
				c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("resync failed")
				return
			}
			if added := c.messages.Merge(history); added > 0 {
				c.log.Info().Int("added", added).Str("conversation_id", conversationID).Msg("recovered messages after reconnect")
				c.acknowledge(conversationID)
			}
		})
	})
}

func (c *Controller) closeConversation() {
	openID := c.messages.ConversationID()
	if openID == "" {
		return
	}
	c.openGen++
	if c.connected {
		if err := c.transport.LeaveChat(openID); err != nil {
			c.log.Warn().Err(err).Str("conversation_id", openID).Msg("leave failed")
		}
	}
	c.messages.Close()
}

func (c *Controller) acknowledge(conversationID string) {
	c.spawn(func(ctx context.Context) {
		recordAck(c.receipts.AcknowledgeRead(ctx, conversationID))
	})
}

func (c *Controller) currentState() State {
	switch {
	case !c.connected:
		return StateDisconnected
	case c.messages.ConversationID() != "":
		return StateConversationOpen
	default:
		return StateNoConversation
	}
}

func (c *Controller) publish() {
	state := c.currentState()
	if state != c.lastState {
		metrics.RecordStateTransition(string(c.lastState), string(state))
		c.log.Debug().Str("from", string(c.lastState)).Str("to", string(state)).Msg("state transition")
		c.lastState = state
	}

	c.version++
	me := c.identity.UserID
	convs := c.directory.List()
	views := make([]ConversationView, 0, len(convs))
	for _, conv := range convs {
		views = append(views, ConversationView{
			Conversation: conv,
			Unread:       conv.Unread(me),
			Receipt:      chat.SummaryReceipt(conv, me),
		})
	}

	snap := &Snapshot{
		Version:            c.version,
		State:              state,
		UserID:             me,
		Conversations:      views,
		OpenConversationID: c.messages.ConversationID(),
		Loading:            c.messages.Loading(),
		Messages:           c.messages.Messages(),
		Receipt:            c.receipts.Status(c.directory, c.messages, me),
	}
	c.snapshot.Store(snap)

	select {
	case c.updates <- Update{Version: snap.Version, State: state}:
	default:
	}
}

func recordAck(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ReadAcknowledgements.WithLabelValues(status).Inc()
}
