// ABOUTME: Replay guard that drops inbound messages whose @id was already seen on a connection
// ABOUTME: Backed by a size-bounded LRU whose entries carry their own expiry time

package dedupe

import (
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// key identifies one message on one connection. The same @id on two
// connections is two different messages.
type key struct {
	conn string
	id   string
}

// Guard remembers recently dispatched message IDs per connection.
// Safe for concurrent use. Expired entries are pruned lazily on Admit and
// Len, so a Guard runs no background goroutine.
type Guard struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen *simplelru.LRU[key, time.Time] // value is the expiry deadline
}

// New creates a Guard that remembers message IDs for ttl, holding at most
// maxSize entries (oldest evicted first). A maxSize of zero means unbounded;
// a ttl of zero or less means entries only leave by eviction or Forget.
func New(ttl time.Duration, maxSize int) *Guard {
	if maxSize <= 0 {
		maxSize = math.MaxInt
	}
	// only fails for a non-positive size
	seen, _ := simplelru.NewLRU[key, time.Time](maxSize, nil)
	return &Guard{ttl: ttl, seen: seen}
}

// Admit reports whether the message should be dispatched. The first call for
// a (connection, message ID) pair within the TTL returns true and records it;
// later calls return false. An empty message ID is always admitted.
func (g *Guard) Admit(connectionID, messageID string) bool {
	if messageID == "" {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.pruneLocked(now)

	k := key{conn: connectionID, id: messageID}
	if _, ok := g.seen.Peek(k); ok {
		return false
	}
	g.seen.Add(k, g.deadline(now))
	return true
}

// Forget drops every remembered ID for a connection, typically when its
// stream closes.
func (g *Guard) Forget(connectionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, k := range g.seen.Keys() {
		if k.conn == connectionID {
			g.seen.Remove(k)
		}
	}
}

// Len returns the number of remembered, unexpired IDs.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(time.Now())
	return g.seen.Len()
}

// Close drops every entry.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seen.Purge()
}

func (g *Guard) deadline(now time.Time) time.Time {
	if g.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(g.ttl)
}

// pruneLocked removes expired entries from the old end of the list. Entries
// are only added, never refreshed, so deadlines grow from oldest to newest.
func (g *Guard) pruneLocked(now time.Time) {
	for {
		_, expires, ok := g.seen.GetOldest()
		if !ok || expires.IsZero() || now.Before(expires) {
			return
		}
		g.seen.RemoveOldest()
	}
}
