package chat

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// ApplyResult reports what ApplyIncomingMessage did.
type ApplyResult int

const (
	// Applied means the summary and unread counters were patched.
	Applied ApplyResult = iota
	// Duplicate means the message id was already applied.
	Duplicate
	// Unknown means the conversation is not in the directory and needs a refresh.
	Unknown
)

func (r ApplyResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("ApplyResult(%d)", int(r))
	}
}

// readMark is a speculative zero for one participant's unread counter.
// issued is the newest refresh sequence handed out when the mark was placed;
// snapshots from refreshes issued after it supersede the mark.
type readMark struct {
	issued uint64
}

// Directory is the local view of every conversation the user takes part in.
//
// State is two-tier: an authoritative base replaced wholesale by snapshots,
// and a speculative overlay of read marks. Directory is not safe for
// concurrent use; the synchronization controller owns it.
type Directory struct {
	base    []Conversation
	index   map[string]int
	overlay map[string]map[string]readMark

	issued  uint64
	applied uint64

	seen *lru.Cache
}

// NewDirectory creates an empty directory that remembers up to dedupSize
// applied message ids.
func NewDirectory(dedupSize int) (*Directory, error) {
	seen, err := lru.New(dedupSize)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return &Directory{
		index:   make(map[string]int),
		overlay: make(map[string]map[string]readMark),
		seen:    seen,
	}, nil
}

// BeginRefresh allocates the sequence number for a new snapshot request.
func (d *Directory) BeginRefresh() uint64 {
	d.issued++
	return d.issued
}

// Replace installs a snapshot fetched by the refresh numbered seq. Snapshots
// older than the last applied one are discarded and false is returned.
func (d *Directory) Replace(seq uint64, conversations []Conversation) bool {
	if seq <= d.applied {
		return false
	}
	d.applied = seq
	if seq > d.issued {
		d.issued = seq
	}

	d.base = make([]Conversation, 0, len(conversations))
	d.index = make(map[string]int, len(conversations))
	for _, conv := range conversations {
		if conv.ID == "" {
			continue
		}
		if _, dup := d.index[conv.ID]; dup {
			continue
		}
		conv = conv.Clone()
		if conv.UnreadCounts == nil {
			conv.UnreadCounts = map[string]int{}
		}
		d.index[conv.ID] = len(d.base)
		d.base = append(d.base, conv)
	}

	for convID, marks := range d.overlay {
		if _, ok := d.index[convID]; !ok {
			delete(d.overlay, convID)
			continue
		}
		for participantID, mark := range marks {
			if mark.issued < seq {
				delete(marks, participantID)
			}
		}
		if len(marks) == 0 {
			delete(d.overlay, convID)
		}
	}
	return true
}

// Insert adds conv ahead of the next snapshot, which stays authoritative.
// Known conversations are left untouched and false is returned.
func (d *Directory) Insert(conv Conversation) bool {
	if conv.ID == "" {
		return false
	}
	if _, ok := d.index[conv.ID]; ok {
		return false
	}
	conv = conv.Clone()
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int{}
	}
	d.index[conv.ID] = len(d.base)
	d.base = append(d.base, conv)
	return true
}

// ApplyIncomingMessage patches the conversation's last-message summary and
// increments the unread counter of every participant except the sender.
func (d *Directory) ApplyIncomingMessage(msg Message) ApplyResult {
	i, ok := d.index[msg.ConversationID]
	if !ok {
		return Unknown
	}
	if msg.ID != "" {
		if found, _ := d.seen.ContainsOrAdd(msg.ID, struct{}{}); found {
			return Duplicate
		}
	}

	conv := &d.base[i]
	for _, p := range conv.Participants {
		if p.ID == msg.Sender.ID {
			continue
		}
		conv.UnreadCounts[p.ID] = d.effectiveUnread(conv, p.ID) + 1
		d.clearMark(conv.ID, p.ID)
	}

	conv.LastMessage = &LastMessage{
		SenderID:  msg.Sender.ID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if msg.CreatedAt.After(conv.UpdatedAt) {
		conv.UpdatedAt = msg.CreatedAt
	}
	return Applied
}

// MarkRead speculatively zeroes participantID's unread counter until a
// newer snapshot arrives. It returns false for unknown conversations.
func (d *Directory) MarkRead(conversationID, participantID string) bool {
	if _, ok := d.index[conversationID]; !ok {
		return false
	}
	marks, ok := d.overlay[conversationID]
	if !ok {
		marks = make(map[string]readMark)
		d.overlay[conversationID] = marks
	}
	marks[participantID] = readMark{issued: d.issued}
	return true
}

// Get returns the effective view of one conversation.
func (d *Directory) Get(conversationID string) (Conversation, bool) {
	i, ok := d.index[conversationID]
	if !ok {
		return Conversation{}, false
	}
	return d.effective(&d.base[i]), true
}

// List returns the effective conversations in server order.
func (d *Directory) List() []Conversation {
	out := make([]Conversation, 0, len(d.base))
	for i := range d.base {
		out = append(out, d.effective(&d.base[i]))
	}
	return out
}

// UnreadFor returns the effective unread count of participantID.
func (d *Directory) UnreadFor(conversationID, participantID string) int {
	i, ok := d.index[conversationID]
	if !ok {
		return 0
	}
	return d.effectiveUnread(&d.base[i], participantID)
}

// Speculative reports whether participantID's counter is an unconfirmed local zero.
func (d *Directory) Speculative(conversationID, participantID string) bool {
	_, ok := d.overlay[conversationID][participantID]
	return ok
}

// Contains reports whether the conversation is known.
func (d *Directory) Contains(conversationID string) bool {
	_, ok := d.index[conversationID]
	return ok
}

// Len returns the number of known conversations.
func (d *Directory) Len() int {
	return len(d.base)
}

// AppliedSeq returns the sequence number of the snapshot in effect.
func (d *Directory) AppliedSeq() uint64 {
	return d.applied
}

func (d *Directory) effective(conv *Conversation) Conversation {
	out := conv.Clone()
	for participantID := range d.overlay[conv.ID] {
		out.UnreadCounts[participantID] = 0
	}
	return out
}

func (d *Directory) effectiveUnread(conv *Conversation, participantID string) int {
	if _, ok := d.overlay[conv.ID][participantID]; ok {
		return 0
	}
	return conv.UnreadCounts[participantID]
}

func (d *Directory) clearMark(conversationID, participantID string) {
	marks, ok := d.overlay[conversationID]
	if !ok {
		return
	}
	delete(marks, participantID)
	if len(marks) == 0 {
		delete(d.overlay, conversationID)
	}
}
