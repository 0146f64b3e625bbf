package event

import (
	"chat-relay/domain"
)

// DomainEvent is anything the router pushes to connected sessions.
type DomainEvent interface {
	Channel() domain.ChannelKey
}

// MessageBroadcast carries one live message to the subscribers of a channel.
// Name is the wire event to emit ("room_message" or "private_message").
type MessageBroadcast struct {
	Name    string
	Message domain.Message
}

func (e MessageBroadcast) Channel() domain.ChannelKey {
	return e.Message.Channel
}

// HistoryReplay is sent once to a joining session, before any live event
// for that channel. Name is "room_history" or "dm_history".
type HistoryReplay struct {
	Name     string
	Target   domain.ChannelKey
	Messages []domain.Message
}

func (e HistoryReplay) Channel() domain.ChannelKey {
	return e.Target
}

// PresenceChanged broadcasts the full online snapshot. It is addressed to
// every connected session, not to one channel.
type PresenceChanged struct {
	Online []string
}

func (e PresenceChanged) Channel() domain.ChannelKey {
	return ""
}

// Typing is fire-and-forget: delivered to the other subscribers of the
// channel, never persisted.
type Typing struct {
	Target   domain.ChannelKey
	Username string
	Started  bool
}

func (e Typing) Channel() domain.ChannelKey {
	return e.Target
}
