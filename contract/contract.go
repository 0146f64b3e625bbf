package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
)

// EventSink is the outbound side of one connected session. Implementations
// must never block the router: delivery is best-effort against a bounded
// buffer, a slow consumer loses events rather than stalling the fan-out.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry owns the channel -> subscriber-set mapping and the session
// directory. All mutations are serialized behind a single lock.
type IRegistry interface {
	Attach(sessionID string, sink EventSink)
	Subscribe(sessionID string, channel domain.ChannelKey)
	Unsubscribe(sessionID string, channel domain.ChannelKey)
	Detach(sessionID string)
	SinkOf(sessionID string) (EventSink, bool)
	SinksFor(channel domain.ChannelKey) []EventSink
	SinksForOthers(channel domain.ChannelKey, exceptSessionID string) []EventSink
	AllSinks() []EventSink
}

// IPresence tracks usernames with at least one live session. Register and
// Unregister report whether the online set actually changed, so the caller
// knows when to broadcast a fresh snapshot.
type IPresence interface {
	Register(username string) bool
	Unregister(username string) bool
	Snapshot() []string
}
