package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// ReceiptStatus is the display state of the local user's last outgoing message.
type ReceiptStatus string

const (
	// ReceiptNone means there is no outgoing message to annotate.
	ReceiptNone ReceiptStatus = "none"
	// ReceiptSent means the counterpart still has unread messages.
	ReceiptSent ReceiptStatus = "sent"
	// ReceiptSeen means the counterpart's unread counter is zero.
	ReceiptSeen ReceiptStatus = "seen"
)

// Receipt annotates one message with its seen state.
type Receipt struct {
	Status    ReceiptStatus `json:"status"`
	MessageID string        `json:"message_id,omitempty"`
}

// DeriveReceipt computes the seen state of lastOutgoing in conv. A message is
// seen exactly when the counterpart's unread counter is reported and zero.
func DeriveReceipt(conv Conversation, lastOutgoing *Message, userID string) Receipt {
	if lastOutgoing == nil {
		return Receipt{Status: ReceiptNone}
	}
	counterpart, ok := conv.Counterpart(userID)
	if !ok {
		return Receipt{Status: ReceiptNone}
	}
	status := ReceiptSent
	if n, ok := conv.UnreadCount(counterpart.ID); ok && n == 0 {
		status = ReceiptSeen
	}
	return Receipt{Status: status, MessageID: lastOutgoing.ID}
}

// SummaryReceipt derives the seen state for a directory row, where only the
// last-message summary is known.
func SummaryReceipt(conv Conversation, userID string) Receipt {
	if conv.LastMessage == nil || conv.LastMessage.SenderID != userID {
		return Receipt{Status: ReceiptNone}
	}
	return DeriveReceipt(conv, &Message{}, userID)
}

// ReceiptTracker issues read acknowledgements and derives seen state.
type ReceiptTracker struct {
	remote ReadAcknowledger
	log    zerolog.Logger
}

// NewReceiptTracker creates a tracker backed by remote.
func NewReceiptTracker(remote ReadAcknowledger, log zerolog.Logger) *ReceiptTracker {
	return &ReceiptTracker{
		remote: remote,
		log:    log.With().Str("component", "receipt-tracker").Logger(),
	}
}

// AcknowledgeRead tells the chat service the user has read conversationID up to now.
func (t *ReceiptTracker) AcknowledgeRead(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrEmptyConversationID
	}
	if err := t.remote.AcknowledgeRead(ctx, conversationID); err != nil {
		t.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("read acknowledgement failed")
		return err
	}
	t.log.Debug().Str("conversation_id", conversationID).Msg("read acknowledged")
	return nil
}

// Status derives the receipt for the open conversation from the directory
// and log state. Only a final message authored by userID carries a receipt.
func (t *ReceiptTracker) Status(dir *Directory, log *MessageLog, userID string) Receipt {
	convID := log.ConversationID()
	if convID == "" {
		return Receipt{Status: ReceiptNone}
	}
	conv, ok := dir.Get(convID)
	if !ok {
		return Receipt{Status: ReceiptNone}
	}
	last, ok := log.Last()
	if !ok || !last.IsMine(userID) {
		return Receipt{Status: ReceiptNone}
	}
	return DeriveReceipt(conv, &last, userID)
}
