package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_DMKey_Is_Symmetric(t *testing.T) {
	req := require.New(t)

	req.Equal(DMKey("alice", "bob"), DMKey("bob", "alice"))
	req.Equal(ChannelKey("dm:alice_bob"), DMKey("bob", "alice"))
}

func Test_DMKey_Distinct_Pairs_Distinct_Keys(t *testing.T) {
	req := require.New(t)

	req.NotEqual(DMKey("alice", "bob"), DMKey("alice", "clara"))
}

func Test_RoomKey_And_Kind_Checks(t *testing.T) {
	req := require.New(t)

	room := RoomKey("general")
	req.Equal(ChannelKey("room:general"), room)
	req.True(room.IsRoom())
	req.False(room.IsDM())
	req.Equal("general", room.RoomName())

	dm := DMKey("alice", "bob")
	req.True(dm.IsDM())
	req.False(dm.IsRoom())
	req.Empty(dm.RoomName())
}

func Test_KnownType_Rejects_System(t *testing.T) {
	req := require.New(t)

	req.True(KnownType(TypeText))
	req.True(KnownType(TypeImage))
	req.True(KnownType(TypeFile))
	req.True(KnownType(TypeVoice))
	req.False(KnownType(TypeSystem))
	req.False(KnownType(MessageType("gif")))
}
