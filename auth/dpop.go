package auth

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// DefaultDPoPReplayCacheSize is the default bound on ReplayCache (env
// DPOP_REPLAY_CACHE_SIZE per SPEC_FULL.md §4.F).
const DefaultDPoPReplayCacheSize = 10000

// ErrDPoPReplayed is returned when a DPoP proof's jti has already been
// seen, whether still live or evicted for overflow (the cache cannot
// distinguish the two, so both are treated as replay per spec.md's "reject
// re-use").
var ErrDPoPReplayed = errors.New("auth: dpop proof replayed")

type dpopEntry struct {
	jti string
	exp time.Time
}

// ReplayCache is a bounded LRU tracking (jti, exp) pairs from presented
// DPoP proofs, rejecting a jti seen twice. Entries past their own exp are
// evicted lazily on the next Check call that encounters them, in addition
// to plain LRU eviction on overflow (spec.md §4.F / SPEC_FULL.md §4.F).
type ReplayCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

// NewReplayCache builds a ReplayCache bounded at capacity entries.
func NewReplayCache(capacity int) *ReplayCache {
	if capacity <= 0 {
		capacity = DefaultDPoPReplayCacheSize
	}
	return &ReplayCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Check records (jti, exp) if jti has not been seen, returning
// ErrDPoPReplayed if it has. Call once per verified DPoP proof, after
// signature and htm/htu validation — this only guards against replay.
func (c *ReplayCache) Check(jti string, exp time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if el, ok := c.index[jti]; ok {
		entry := el.Value.(*dpopEntry)
		if entry.exp.Before(now) {
			// The prior sighting already expired; treat this as a fresh
			// presentation of an otherwise-expired jti rather than replay.
			c.order.Remove(el)
			delete(c.index, jti)
		} else {
			return ErrDPoPReplayed
		}
	}

	el := c.order.PushFront(&dpopEntry{jti: jti, exp: exp})
	c.index[jti] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*dpopEntry).jti)
	}
	return nil
}
