package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// contentMatchWindow bounds how far apart an optimistic entry and a live
// server record may be in time and still be treated as the same send.
const contentMatchWindow = 30 * time.Second

// Buffer is the single source of truth for which messages exist, in what
// order, for one conversation. Every mutating operation deduplicates by ID
// and re-validates the ordering invariant afterwards.
//
// Buffer is not safe for concurrent use; all mutations happen on the UI
// event loop.
type Buffer struct {
	chatID    string
	msgs      []Message
	index     map[string]int
	canonical map[string]string // temp id -> server-assigned id
	seen      map[string]struct{}
	strict    bool
	log       zerolog.Logger
}

// NewBuffer creates an empty buffer for one conversation. In strict mode
// invariant violations panic instead of being repaired; strict is meant for
// development builds and tests.
func NewBuffer(chatID string, strict bool, log zerolog.Logger) *Buffer {
	return &Buffer{
		chatID:    chatID,
		index:     make(map[string]int),
		canonical: make(map[string]string),
		seen:      make(map[string]struct{}),
		strict:    strict,
		log:       log,
	}
}

// ChatID returns the owning conversation id.
func (b *Buffer) ChatID() string {
	return b.chatID
}

// Len returns the number of messages in the buffer.
func (b *Buffer) Len() int {
	return len(b.msgs)
}

// Messages returns a copy of the ordered snapshot, oldest first.
func (b *Buffer) Messages() []Message {
	out := make([]Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// Get looks a message up by id, following the temp-to-canonical mapping so
// callers holding a stale temp id still find the reconciled entry.
func (b *Buffer) Get(id string) (Message, bool) {
	if canon, ok := b.canonical[id]; ok {
		id = canon
	}
	idx, ok := b.index[id]
	if !ok {
		return Message{}, false
	}
	return b.msgs[idx], true
}

// ByServerID resolves a reply reference against already-loaded messages.
// Best effort: the referenced message may not be in the loaded window.
func (b *Buffer) ByServerID(serverID int64) (Message, bool) {
	if serverID == 0 {
		return Message{}, false
	}
	for i := range b.msgs {
		if b.msgs[i].ServerID == serverID {
			return b.msgs[i], true
		}
	}
	return Message{}, false
}

// WasSeen reports whether an id has ever been present in this buffer, so
// callers can tell freshly arrived messages apart from re-merged ones.
func (b *Buffer) WasSeen(id string) bool {
	_, ok := b.seen[id]
	return ok
}

// PrependPage merges a page of older history. Pages arrive newest-first from
// the cursor store; entries whose id is already present are dropped, the
// remainder is inserted at its sort position. Returns how many messages were
// actually added, so callers can tell a fully-overlapping redelivery apart
// from real progress.
func (b *Buffer) PrependPage(items []Message) int {
	added := 0
	for _, msg := range items {
		if b.insert(msg) {
			added++
		}
	}
	b.validate("prepend page")
	return added
}

// ApplyNew merges a live "message.new" event. If the record matches a
// pending optimistic entry (either through the canonical map or by content
// and timestamp), the pending entry is replaced instead of duplicated.
func (b *Buffer) ApplyNew(msg Message) bool {
	if _, ok := b.index[msg.ID]; ok {
		return false
	}
	if tempID, ok := b.matchPending(msg); ok {
		b.replace(tempID, msg)
		b.validate("apply new (reconcile)")
		return true
	}
	inserted := b.insert(msg)
	b.validate("apply new")
	return inserted
}

// ApplyDelete removes a message by id. Unknown ids are ignored; the event
// may refer to history that is not loaded.
func (b *Buffer) ApplyDelete(id string) bool {
	if canon, ok := b.canonical[id]; ok {
		id = canon
	}
	idx, ok := b.index[id]
	if !ok {
		return false
	}
	b.msgs = append(b.msgs[:idx], b.msgs[idx+1:]...)
	b.reindex()
	b.validate("apply delete")
	return true
}

// ApplyPatch updates an existing message's fields in place without changing
// its identity or position.
func (b *Buffer) ApplyPatch(msg Message) bool {
	id := msg.ID
	if canon, ok := b.canonical[id]; ok {
		id = canon
	}
	idx, ok := b.index[id]
	if !ok {
		return false
	}
	cur := b.msgs[idx]
	cur.Text = msg.Text
	cur.IsEdited = msg.IsEdited
	if len(msg.Attachments) > 0 {
		cur.Attachments = msg.Attachments
	}
	if len(msg.InlineButtons) > 0 {
		cur.InlineButtons = msg.InlineButtons
	}
	if msg.ServerID != 0 {
		cur.ServerID = msg.ServerID
	}
	b.msgs[idx] = cur
	b.validate("apply patch")
	return true
}

// ApplyOptimistic inserts a locally originated pending message at the
// newest end.
func (b *Buffer) ApplyOptimistic(pending Message) {
	pending.Pending = true
	b.insert(pending)
	b.validate("apply optimistic")
}

// Reconcile resolves an optimistic send. With a server record it replaces
// the temporary entry in place; with nil it removes the entry entirely and
// returns its contents so the caller can restore the composer. The second
// return reports whether the temp entry was still present (a live event may
// have reconciled it already).
func (b *Buffer) Reconcile(tempID string, server *Message) (Message, bool) {
	if canon, ok := b.canonical[tempID]; ok {
		// Already reconciled through the live channel.
		idx, present := b.index[canon]
		if present {
			return b.msgs[idx], false
		}
		return Message{}, false
	}

	idx, ok := b.index[tempID]
	if !ok {
		return Message{}, false
	}
	removed := b.msgs[idx]

	if server == nil {
		b.msgs = append(b.msgs[:idx], b.msgs[idx+1:]...)
		b.reindex()
		b.validate("reconcile failure")
		return removed, true
	}

	if _, dup := b.index[server.ID]; dup {
		// The live channel delivered the confirmed record before the send
		// response; drop the temp entry instead of duplicating.
		b.msgs = append(b.msgs[:idx], b.msgs[idx+1:]...)
		b.canonical[tempID] = server.ID
		b.reindex()
		b.validate("reconcile duplicate")
		return removed, true
	}

	b.replace(tempID, *server)
	b.validate("reconcile success")
	return removed, true
}

// insert places msg at its sort position unless the id already exists.
func (b *Buffer) insert(msg Message) bool {
	if canon, ok := b.canonical[msg.ID]; ok {
		if _, present := b.index[canon]; present {
			return false
		}
	}
	if _, ok := b.index[msg.ID]; ok {
		return false
	}
	pos := sort.Search(len(b.msgs), func(i int) bool {
		return less(msg, b.msgs[i])
	})
	b.msgs = append(b.msgs, Message{})
	copy(b.msgs[pos+1:], b.msgs[pos:])
	b.msgs[pos] = msg
	b.reindex()
	b.seen[msg.ID] = struct{}{}
	return true
}

// replace swaps the temp entry for the server record, keeping a canonical
// mapping so late references to the temp id still resolve.
func (b *Buffer) replace(tempID string, server Message) {
	idx, ok := b.index[tempID]
	if !ok {
		return
	}
	server.Pending = false
	b.msgs[idx] = server
	b.canonical[tempID] = server.ID
	b.seen[server.ID] = struct{}{}
	// The server timestamp may differ from the optimistic one; restore
	// order by position rather than trusting the slot.
	sort.SliceStable(b.msgs, func(i, j int) bool { return less(b.msgs[i], b.msgs[j]) })
	b.reindex()
}

// matchPending finds a pending entry that corresponds to a server record by
// content and timestamp proximity.
func (b *Buffer) matchPending(server Message) (string, bool) {
	for i := len(b.msgs) - 1; i >= 0; i-- {
		cur := b.msgs[i]
		if !cur.Pending || cur.Direction != server.Direction {
			continue
		}
		if cur.Text != server.Text || len(cur.Attachments) != len(server.Attachments) {
			continue
		}
		delta := server.CreatedAt.Sub(cur.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= contentMatchWindow {
			return cur.ID, true
		}
	}
	return "", false
}

func (b *Buffer) reindex() {
	b.index = make(map[string]int, len(b.msgs))
	for i := range b.msgs {
		b.index[b.msgs[i].ID] = i
	}
}

// validate enforces the uniqueness and ordering invariants after every
// mutation. Violations are programming errors: strict mode panics, release
// mode repairs last-write-wins by id and logs the defect.
func (b *Buffer) validate(op string) {
	err := b.checkInvariants()
	if err == nil {
		return
	}
	if b.strict {
		panic(fmt.Sprintf("timeline buffer invariant violated after %s: %v", op, err))
	}
	b.log.Error().Str("chat_id", b.chatID).Str("op", op).Err(err).Msg("timeline buffer invariant violated; repairing")
	b.repair()
}

func (b *Buffer) checkInvariants() error {
	ids := make(map[string]struct{}, len(b.msgs))
	for i := range b.msgs {
		id := b.msgs[i].ID
		if id == "" {
			return fmt.Errorf("empty id at index %d", i)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("duplicate id %s", id)
		}
		ids[id] = struct{}{}
		if i > 0 && less(b.msgs[i], b.msgs[i-1]) {
			return fmt.Errorf("out of order at index %d (%s)", i, id)
		}
	}
	return nil
}

// repair drops older duplicates by id and re-sorts into canonical order.
func (b *Buffer) repair() {
	kept := make([]Message, 0, len(b.msgs))
	lastByID := make(map[string]int, len(b.msgs))
	for i := range b.msgs {
		lastByID[b.msgs[i].ID] = i
	}
	for i := range b.msgs {
		if b.msgs[i].ID == "" {
			continue
		}
		if lastByID[b.msgs[i].ID] != i {
			continue
		}
		kept = append(kept, b.msgs[i])
	}
	sort.SliceStable(kept, func(i, j int) bool { return less(kept[i], kept[j]) })
	b.msgs = kept
	b.reindex()
}
