package domain

import (
	"sort"
	"strings"
)

// ChannelKey addresses a routing target: a public room or a two-party DM.
// Channels have no standalone object. They exist as entries in the registry's
// subscriber map, created on first join and pruned when the last subscriber
// leaves. Persisted history outlives them.
type ChannelKey string

const (
	roomPrefix = "room:"
	dmPrefix   = "dm:"
)

// RoomKey builds the channel key of a public room.
func RoomKey(name string) ChannelKey {
	return ChannelKey(roomPrefix + name)
}

// DMKey builds the canonical channel key for an unordered pair of usernames.
// The pair is sorted, so DMKey(a, b) == DMKey(b, a).
func DMKey(userA, userB string) ChannelKey {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return ChannelKey(dmPrefix + strings.Join(pair, "_"))
}

func (k ChannelKey) IsDM() bool {
	return strings.HasPrefix(string(k), dmPrefix)
}

func (k ChannelKey) IsRoom() bool {
	return strings.HasPrefix(string(k), roomPrefix)
}

// RoomName returns the room part of a room key, or "" for a DM key.
func (k ChannelKey) RoomName() string {
	if !k.IsRoom() {
		return ""
	}
	return strings.TrimPrefix(string(k), roomPrefix)
}
