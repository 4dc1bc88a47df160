package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAcknowledger struct {
	AcknowledgeReadFunc func(ctx context.Context, conversationID string) error
	calls               []string
}

func (m *mockAcknowledger) AcknowledgeRead(ctx context.Context, conversationID string) error {
	m.calls = append(m.calls, conversationID)
	if m.AcknowledgeReadFunc != nil {
		return m.AcknowledgeReadFunc(ctx, conversationID)
	}
	return nil
}

func TestDeriveReceipt(t *testing.T) {
	mine := message("m1", "c1", alice, "hi", 1)

	tests := []struct {
		name     string
		conv     Conversation
		last     *Message
		expected ReceiptStatus
	}{
		{
			name:     "no outgoing message",
			conv:     conversation("c1", alice, bob, nil),
			last:     nil,
			expected: ReceiptNone,
		},
		{
			name:     "counterpart has unread",
			conv:     conversation("c1", alice, bob, map[string]int{"u-bob": 1}),
			last:     &mine,
			expected: ReceiptSent,
		},
		{
			name:     "counterpart caught up",
			conv:     conversation("c1", alice, bob, map[string]int{"u-bob": 0, "u-alice": 3}),
			last:     &mine,
			expected: ReceiptSeen,
		},
		{
			name:     "counterpart missing from mapping is not seen",
			conv:     conversation("c1", alice, bob, nil),
			last:     &mine,
			expected: ReceiptSent,
		},
		{
			name:     "no counterpart",
			conv:     Conversation{ID: "c1", Participants: []Participant{alice}},
			last:     &mine,
			expected: ReceiptNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveReceipt(tt.conv, tt.last, "u-alice")
			assert.Equal(t, tt.expected, got.Status)
		})
	}
}

func TestSummaryReceipt(t *testing.T) {
	conv := conversation("c1", alice, bob, map[string]int{"u-bob": 0})
	assert.Equal(t, ReceiptNone, SummaryReceipt(conv, "u-alice").Status)

	conv.LastMessage = &LastMessage{SenderID: "u-alice", Content: "hi"}
	assert.Equal(t, ReceiptSeen, SummaryReceipt(conv, "u-alice").Status)
	assert.Equal(t, ReceiptNone, SummaryReceipt(conv, "u-bob").Status)
}

func TestReceiptTracker_Status(t *testing.T) {
	tracker := NewReceiptTracker(&mockAcknowledger{}, zerolog.Nop())
	d, err := NewDirectory(8)
	require.NoError(t, err)
	l := NewMessageLog()

	assert.Equal(t, ReceiptNone, tracker.Status(d, l, "u-alice").Status)

	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 1})})
	l.Begin("c1")
	l.Load([]Message{message("m1", "c1", alice, "hi", 1)})

	got := tracker.Status(d, l, "u-alice")
	assert.Equal(t, ReceiptSent, got.Status)
	assert.Equal(t, "m1", got.MessageID)

	d.MarkRead("c1", "u-bob")
	assert.Equal(t, ReceiptSeen, tracker.Status(d, l, "u-alice").Status)

	// A reply from the counterpart leaves nothing of ours to annotate.
	require.Equal(t, Appended, l.Append(message("m2", "c1", bob, "yo", 2)))
	assert.Equal(t, Receipt{Status: ReceiptNone}, tracker.Status(d, l, "u-alice"))
}

func TestReceiptTracker_StatusWithoutCounterpartCount(t *testing.T) {
	tracker := NewReceiptTracker(&mockAcknowledger{}, zerolog.Nop())
	d, err := NewDirectory(8)
	require.NoError(t, err)
	l := NewMessageLog()

	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, nil)})
	l.Begin("c1")
	l.Load([]Message{message("m1", "c1", alice, "hi", 1)})

	assert.Equal(t, Receipt{Status: ReceiptSent, MessageID: "m1"}, tracker.Status(d, l, "u-alice"))
}

func TestReceiptTracker_AcknowledgeRead(t *testing.T) {
	ack := &mockAcknowledger{}
	tracker := NewReceiptTracker(ack, zerolog.Nop())

	require.NoError(t, tracker.AcknowledgeRead(context.Background(), "c1"))
	assert.ErrorIs(t, tracker.AcknowledgeRead(context.Background(), " "), ErrEmptyConversationID)
	assert.Equal(t, []string{"c1"}, ack.calls)

	ack.AcknowledgeReadFunc = func(ctx context.Context, conversationID string) error {
		return errors.New("boom")
	}
	assert.EqualError(t, tracker.AcknowledgeRead(context.Background(), "c1"), "boom")
}
