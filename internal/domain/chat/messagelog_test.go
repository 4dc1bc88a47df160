package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contents(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestMessageLog_LoadIsIdempotent(t *testing.T) {
	history := []Message{
		message("m1", "c1", alice, "one", 1),
		message("m2", "c1", bob, "two", 2),
	}
	l := NewMessageLog()

	l.Begin("c1")
	first := l.Load(history)
	l.Begin("c1")
	second := l.Load(history)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"one", "two"}, contents(second))
	assert.False(t, l.Loading())
}

func TestMessageLog_AppendDedupsByID(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")
	l.Load(nil)

	msg := message("m1", "c1", alice, "hi", 1)
	assert.Equal(t, Appended, l.Append(msg))
	assert.Equal(t, DuplicateMessage, l.Append(msg))
	assert.Equal(t, 1, l.Len())
}

func TestMessageLog_AppendRejectsOtherConversation(t *testing.T) {
	l := NewMessageLog()
	assert.Equal(t, OtherConversation, l.Append(message("m1", "c1", alice, "hi", 1)))

	l.Begin("c1")
	l.Load(nil)
	assert.Equal(t, OtherConversation, l.Append(message("m2", "c2", alice, "hi", 1)))
	assert.Zero(t, l.Len())
}

func TestMessageLog_AppendPreservesDeliveryOrder(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")
	l.Load(nil)

	l.Append(message("m2", "c1", alice, "later", 10))
	l.Append(message("m1", "c1", bob, "earlier", 1))

	assert.Equal(t, []string{"later", "earlier"}, contents(l.Messages()))
}

func TestMessageLog_BuffersWhileLoading(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")

	live := message("m3", "c1", bob, "live", 3)
	assert.Equal(t, Buffered, l.Append(live))
	assert.Equal(t, DuplicateMessage, l.Append(live))

	got := l.Load([]Message{
		message("m1", "c1", alice, "one", 1),
		message("m3", "c1", bob, "live", 3),
	})
	assert.Equal(t, []string{"one", "live"}, contents(got))

	l.Begin("c1")
	l.Append(message("m9", "c1", bob, "new", 9))
	got = l.Load([]Message{message("m1", "c1", alice, "one", 1)})
	assert.Equal(t, []string{"one", "new"}, contents(got))
}

func TestMessageLog_BeginDiscardsPrevious(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")
	l.Load([]Message{message("m1", "c1", alice, "one", 1)})

	l.Begin("c2")
	assert.Equal(t, "c2", l.ConversationID())
	assert.True(t, l.Loading())
	assert.Empty(t, l.Messages())
}

func TestMessageLog_Merge(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")
	l.Load([]Message{message("m1", "c1", alice, "one", 1)})
	l.Append(message("m3", "c1", bob, "three", 3))

	added := l.Merge([]Message{
		message("m1", "c1", alice, "one", 1),
		message("m2", "c1", bob, "two", 2),
		message("m3", "c1", bob, "three", 3),
		message("m4", "c1", alice, "four", 4),
	})
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"one", "three", "two", "four"}, contents(l.Messages()))
}

func TestMessageLog_Close(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")
	l.Load([]Message{message("m1", "c1", alice, "one", 1)})

	l.Close()
	assert.Empty(t, l.ConversationID())
	assert.Empty(t, l.Messages())
	assert.Equal(t, OtherConversation, l.Append(message("m2", "c1", alice, "x", 2)))
}

func TestMessageLog_Last(t *testing.T) {
	l := NewMessageLog()
	_, ok := l.Last()
	assert.False(t, ok)

	l.Begin("c1")
	l.Load([]Message{
		message("m1", "c1", alice, "mine", 1),
		message("m2", "c1", bob, "theirs", 2),
	})

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "m2", last.ID)
}

func TestMessageLog_FillsMissingConversationID(t *testing.T) {
	l := NewMessageLog()
	l.Begin("c1")
	got := l.Load([]Message{{ID: "m1", Sender: alice, Content: "bare"}})
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ConversationID)
}
