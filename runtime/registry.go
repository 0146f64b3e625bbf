package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
)

type Set map[string]struct{}

// Registry owns the only process-wide mutable routing state: the session
// directory and the subscriber set of each channel. Channels are implicit:
// an entry appears on first Subscribe and is removed when its last member
// leaves, so the maps never accumulate empty sets.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink         // session id -> live sink
	members  map[domain.ChannelKey]Set             // channel -> session ids
	joined   map[string]map[domain.ChannelKey]bool // session id -> channels it subscribed
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.EventSink),
		members:  make(map[domain.ChannelKey]Set),
		joined:   make(map[string]map[domain.ChannelKey]bool),
	}
}

// Attach records a live connection before it joins any channel, so global
// broadcasts (presence snapshots) reach it immediately.
func (r *Registry) Attach(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = sink
	r.joined[sessionID] = make(map[domain.ChannelKey]bool)
}

// Subscribe adds a session to a channel's subscriber set, creating the set
// on the fly. Subscribing twice is a no-op for the set.
func (r *Registry) Subscribe(sessionID string, channel domain.ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	if _, ok := r.members[channel]; !ok {
		r.members[channel] = make(Set)
	}
	r.members[channel][sessionID] = struct{}{}
	r.joined[sessionID][channel] = true
}

// Unsubscribe removes a session from one channel and prunes the subscriber
// set if it became empty.
func (r *Registry) Unsubscribe(sessionID string, channel domain.ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeMember(sessionID, channel)
	if joined, ok := r.joined[sessionID]; ok {
		delete(joined, channel)
	}
}

// Detach removes a session from the directory and from every channel it
// subscribed to. It must run synchronously on disconnect, before any further
// broadcast is computed, so no fan-out ever targets a dead transport.
func (r *Registry) Detach(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel := range r.joined[sessionID] {
		r.removeMember(sessionID, channel)
	}
	delete(r.joined, sessionID)
	delete(r.sessions, sessionID)
}

// removeMember assumes r.mu is held.
func (r *Registry) removeMember(sessionID string, channel domain.ChannelKey) {
	members, ok := r.members[channel]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.members, channel)
	}
}

// SinkOf resolves one session's sink, used for history replay to the
// joining session only.
func (r *Registry) SinkOf(sessionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[sessionID]
	return sink, ok
}

// SinksFor retrieves all active sinks subscribed to a channel.
// Returns nil if the channel doesn't exist or has no members.
func (r *Registry) SinksFor(channel domain.ChannelKey) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.members[channel]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for sessionID := range members {
		if sink, exists := r.sessions[sessionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// SinksForOthers is SinksFor minus one session, for join announcements and
// typing indicators which exclude their originator.
func (r *Registry) SinksForOthers(channel domain.ChannelKey, exceptSessionID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.members[channel]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for sessionID := range members {
		if sessionID == exceptSessionID {
			continue
		}
		if sink, exists := r.sessions[sessionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// AllSinks returns every attached session's sink, subscribed or not.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

