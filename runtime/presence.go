// Package runtime owns the realtime routing core: presence, the channel
// subscriber registry, and the router that fans events out to sessions.
// It contains no transport code and no storage schema knowledge.
package runtime

import (
	"sort"
	"sync"
)

// Presence tracks the number of live sessions per username. A username is
// online iff its count is > 0, so a user with several simultaneous
// connections appears in the snapshot exactly once and drops out only when
// the last connection closes.
//
// All mutations go through one mutex: the 0->1 and 1->0 transitions are
// check-then-act and must be serialized.
type Presence struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewPresence() *Presence {
	return &Presence{counts: make(map[string]int)}
}

// Register increments the live-session count. It returns true on the 0->1
// transition, i.e. when the online set actually changed.
func (p *Presence) Register(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[username]++
	return p.counts[username] == 1
}

// Unregister decrements the count and prunes the entry on the 1->0
// transition, returning true in that case.
func (p *Presence) Unregister(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	count, ok := p.counts[username]
	if !ok {
		return false
	}
	if count <= 1 {
		delete(p.counts, username)
		return true
	}
	p.counts[username] = count - 1
	return false
}

// Snapshot returns the sorted set of online usernames.
func (p *Presence) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	online := make([]string, 0, len(p.counts))
	for username := range p.counts {
		online = append(online, username)
	}
	sort.Strings(online)
	return online
}
