/*
Package transcript keeps the append-only message history between two identities.

Both participants address the same transcript: the key is derived from the unordered
pair of names. The store trusts its caller; friendship checks happen in the router.
*/
package transcript

import (
	"sync"
	"time"

	"buddychat/internal/pkg/randx"
)

// Entry is one accepted chat message.
type Entry struct {
	ID string `json:"id"`

	// From is the identity that sent the message.
	From string `json:"from"`

	Text string `json:"text"`

	// Timestamp is Unix milliseconds, non-decreasing in append order.
	Timestamp int64 `json:"timestamp"`
}

// Store holds every transcript in memory for the life of the process.
type Store struct {
	mu   sync.RWMutex
	logs map[ConversationKey][]Entry

	// last is the newest timestamp handed out; clock steps backwards are clamped to it.
	last  int64
	nowFn func() time.Time
}

// NewStore creates an empty transcript store.
func NewStore() *Store {
	return &Store{
		logs:  make(map[ConversationKey][]Entry),
		nowFn: time.Now,
	}
}

// ConversationKey identifies the transcript of an unordered pair. Names are kept
// as separate fields, so no choice of name can make two pairs share a key.
type ConversationKey struct {
	Lo, Hi string
}

// Key returns the canonical conversation key for the unordered pair (a, b).
func Key(a, b string) ConversationKey {
	if b < a {
		a, b = b, a
	}
	return ConversationKey{Lo: a, Hi: b}
}

// Append records text sent by sender in the conversation between a and b.
func (s *Store) Append(a, b, sender, text string) Entry {
	key := Key(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.nowFn().UnixMilli()
	if ts < s.last {
		ts = s.last
	}
	s.last = ts

	entry := Entry{
		ID:        randx.EntryID(),
		From:      sender,
		Text:      text,
		Timestamp: ts,
	}
	s.logs[key] = append(s.logs[key], entry)
	return entry
}

// History returns a copy of the conversation between a and b in append order.
// A conversation that never received a message reads as empty; reading does not create it.
func (s *Store) History(a, b string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[Key(a, b)]
	out := make([]Entry, len(log))
	copy(out, log)
	return out
}

// Conversations returns how many conversations hold at least one entry.
func (s *Store) Conversations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}
