package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := NewDirectory(16)
	require.NoError(t, err)
	return d
}

func TestNewDirectory_InvalidSize(t *testing.T) {
	_, err := NewDirectory(0)
	assert.Error(t, err)
}

func TestDirectory_ReplaceKeepsServerOrder(t *testing.T) {
	d := newTestDirectory(t)

	ok := d.Replace(d.BeginRefresh(), []Conversation{
		conversation("c2", alice, carol, nil),
		conversation("c1", alice, bob, nil),
		conversation("c2", alice, carol, nil),
		{ID: ""},
	})
	require.True(t, ok)

	list := d.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)
	assert.NotNil(t, list[1].UnreadCounts)
}

func TestDirectory_ReplaceDiscardsStaleSnapshot(t *testing.T) {
	d := newTestDirectory(t)

	first := d.BeginRefresh()
	second := d.BeginRefresh()

	require.True(t, d.Replace(second, []Conversation{conversation("fresh", alice, bob, nil)}))
	assert.False(t, d.Replace(first, []Conversation{conversation("stale", alice, bob, nil)}))

	assert.True(t, d.Contains("fresh"))
	assert.False(t, d.Contains("stale"))
	assert.Equal(t, second, d.AppliedSeq())
}

func TestDirectory_Insert(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 4})})

	assert.False(t, d.Insert(conversation("c1", alice, bob, nil)))
	assert.Equal(t, 4, d.UnreadFor("c1", "u-bob"))
	assert.False(t, d.Insert(Conversation{}))

	require.True(t, d.Insert(conversation("c2", alice, carol, nil)))
	list := d.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[1].ID)
	assert.Equal(t, Applied, d.ApplyIncomingMessage(message("m1", "c2", carol, "hey", 1)))

	require.True(t, d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, nil)}))
	assert.False(t, d.Contains("c2"))
}

func TestDirectory_ApplyIncomingMessage(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{
		conversation("c1", alice, bob, map[string]int{"u-alice": 0, "u-bob": 2}),
	})

	res := d.ApplyIncomingMessage(message("m1", "c1", alice, "hi", 5))
	assert.Equal(t, Applied, res)

	conv, ok := d.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 3, conv.Unread("u-bob"))
	assert.Equal(t, 0, conv.Unread("u-alice"))
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "hi", conv.LastMessage.Content)
	assert.Equal(t, "u-alice", conv.LastMessage.SenderID)
	assert.Equal(t, baseTime.Add(5e9), conv.UpdatedAt)
}

func TestDirectory_ApplyIncomingMessage_DuplicateAndUnknown(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, nil)})

	msg := message("m1", "c1", alice, "hi", 1)
	assert.Equal(t, Applied, d.ApplyIncomingMessage(msg))
	assert.Equal(t, Duplicate, d.ApplyIncomingMessage(msg))
	assert.Equal(t, 1, d.UnreadFor("c1", "u-bob"))

	assert.Equal(t, Unknown, d.ApplyIncomingMessage(message("m2", "c9", alice, "?", 2)))
	assert.Equal(t, "unknown", Unknown.String())
}

func TestDirectory_ListReturnsCopies(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 1})})

	list := d.List()
	list[0].UnreadCounts["u-bob"] = 99
	list[0].Participants[0].DisplayName = "mallory"

	conv, _ := d.Get("c1")
	assert.Equal(t, 1, conv.Unread("u-bob"))
	assert.Equal(t, "alice", conv.Participants[0].DisplayName)
}

func TestDirectory_MarkReadIsSpeculative(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 4})})

	assert.False(t, d.MarkRead("missing", "u-bob"))
	require.True(t, d.MarkRead("c1", "u-bob"))
	assert.Equal(t, 0, d.UnreadFor("c1", "u-bob"))
	assert.True(t, d.Speculative("c1", "u-bob"))

	// A snapshot requested after the mark supersedes it.
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 4})})
	assert.Equal(t, 4, d.UnreadFor("c1", "u-bob"))
	assert.False(t, d.Speculative("c1", "u-bob"))
}

func TestDirectory_MarkReadSurvivesSnapshotRequestedEarlier(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 4})})

	inFlight := d.BeginRefresh()
	d.MarkRead("c1", "u-bob")

	d.Replace(inFlight, []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 4})})
	assert.Equal(t, 0, d.UnreadFor("c1", "u-bob"))

	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 0})})
	assert.Equal(t, 0, d.UnreadFor("c1", "u-bob"))
	assert.False(t, d.Speculative("c1", "u-bob"))
}

func TestDirectory_ArrivalAfterMarkReadCountsFromZero(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 7})})

	d.MarkRead("c1", "u-bob")
	d.ApplyIncomingMessage(message("m1", "c1", alice, "again", 1))

	assert.Equal(t, 1, d.UnreadFor("c1", "u-bob"))
	assert.False(t, d.Speculative("c1", "u-bob"))
}

// Interleaving arrivals with snapshots never zeroes a counter unless the
// snapshot itself says zero or MarkRead was called.
func TestDirectory_ArrivalNeverResetsUnread(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": 1})})

	prev := d.UnreadFor("c1", "u-bob")
	for i := 0; i < 20; i++ {
		if i%5 == 4 {
			d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, map[string]int{"u-bob": prev})})
		} else {
			d.ApplyIncomingMessage(message(string(rune('a'+i)), "c1", alice, "x", i))
		}
		cur := d.UnreadFor("c1", "u-bob")
		assert.GreaterOrEqual(t, cur, prev, "step %d", i)
		assert.NotZero(t, cur)
		prev = cur
	}
}

func TestDirectory_ReplaceDropsMarksForVanishedConversations(t *testing.T) {
	d := newTestDirectory(t)
	d.Replace(d.BeginRefresh(), []Conversation{conversation("c1", alice, bob, nil)})
	inFlight := d.BeginRefresh()
	d.MarkRead("c1", "u-alice")

	d.Replace(inFlight, []Conversation{conversation("c2", alice, carol, nil)})
	assert.False(t, d.Speculative("c1", "u-alice"))
	assert.Equal(t, 1, d.Len())
}
