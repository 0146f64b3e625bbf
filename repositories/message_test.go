package repositories

import (
	"chat-relay/domain"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestMessageRepository(t *testing.T, limit *int) MessageRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMessageRepository(db, slog.New(slog.DiscardHandler), limit)
}

func roomMessage(room, sender, body string, at time.Time) DiskMessage {
	return DiskMessage{
		ID:      uuid.New(),
		Channel: domain.RoomKey(room),
		Sender:  sender,
		Type:    domain.TypeText,
		Body:    body,
		At:      at,
	}
}

func TestMessageRepository_Store_And_Query_Roundtrip(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	// Given a persisted message
	at := time.Now().UTC()
	message := DiskMessage{
		ID:      uuid.New(),
		Channel: domain.RoomKey("general"),
		Sender:  "alice",
		Type:    domain.TypeImage,
		Body:    "holiday pic",
		FileURL: "/uploads/1693567200000-pic.png",
		At:      at,
	}
	req.NoError(repo.StoreMessage(message))

	// When the room is queried
	history, err := repo.QueryRoom("general")
	req.NoError(err)

	// Then every field survives the disk roundtrip
	req.Len(history, 1)
	req.Equal(message.ID, history[0].ID)
	req.Equal(message.Channel, history[0].Channel)
	req.Equal("alice", history[0].Sender)
	req.Equal(domain.TypeImage, history[0].Type)
	req.Equal("holiday pic", history[0].Body)
	req.Equal(message.FileURL, history[0].FileURL)
	req.True(at.Equal(history[0].At))
}

func TestMessageRepository_Query_Returns_Ascending_Order(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	base := time.Now().UTC()
	for i, body := range []string{"first", "second", "third"} {
		req.NoError(repo.StoreMessage(roomMessage("general", "alice", body, base.Add(time.Duration(i)*time.Second))))
	}

	history, err := repo.QueryRoom("general")
	req.NoError(err)
	req.Len(history, 3)
	req.Equal("first", history[0].Body)
	req.Equal("second", history[1].Body)
	req.Equal("third", history[2].Body)
}

func TestMessageRepository_Limit_Keeps_Newest_Messages(t *testing.T) {
	req := require.New(t)
	limit := 2
	repo := newTestMessageRepository(t, &limit)

	base := time.Now().UTC()
	for i, body := range []string{"old", "recent", "newest"} {
		req.NoError(repo.StoreMessage(roomMessage("general", "alice", body, base.Add(time.Duration(i)*time.Second))))
	}

	// Then the cap drops the oldest entries, not the newest
	history, err := repo.QueryRoom("general")
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("recent", history[0].Body)
	req.Equal("newest", history[1].Body)
}

func TestMessageRepository_Rooms_Are_Isolated(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	now := time.Now().UTC()
	req.NoError(repo.StoreMessage(roomMessage("general", "alice", "hello general", now)))
	req.NoError(repo.StoreMessage(roomMessage("random", "bob", "hello random", now)))

	history, err := repo.QueryRoom("general")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hello general", history[0].Body)
}

func TestMessageRepository_Room_Name_Extending_Another_Does_Not_Leak(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	now := time.Now().UTC()
	req.NoError(repo.StoreMessage(roomMessage("general", "alice", "public note", now)))
	req.NoError(repo.StoreMessage(roomMessage("general:2024", "alice", "archived secret", now)))

	// "general:2024" keys share the byte prefix of "general"'s scan; none of
	// its messages may surface in the shorter room's history
	history, err := repo.QueryRoom("general")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("public note", history[0].Body)

	// The extending room still reads its own history
	history, err = repo.QueryRoom("general:2024")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("archived secret", history[0].Body)
}

func TestMessageRepository_DM_History_Is_Symmetric(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	// Given messages in both directions of the same pair
	base := time.Now().UTC()
	req.NoError(repo.StoreMessage(DiskMessage{
		ID: uuid.New(), Channel: domain.DMKey("alice", "bob"),
		Sender: "alice", Receiver: "bob", Type: domain.TypeText, Body: "ping", At: base,
	}))
	req.NoError(repo.StoreMessage(DiskMessage{
		ID: uuid.New(), Channel: domain.DMKey("bob", "alice"),
		Sender: "bob", Receiver: "alice", Type: domain.TypeText, Body: "pong", At: base.Add(time.Second),
	}))

	// Then both participants read the same combined history
	forAlice, err := repo.QueryDM("alice", "bob")
	req.NoError(err)
	forBob, err := repo.QueryDM("bob", "alice")
	req.NoError(err)
	req.Equal(forAlice, forBob)
	req.Len(forAlice, 2)
	req.Equal("ping", forAlice[0].Body)
	req.Equal("pong", forAlice[1].Body)
}

func TestMessageRepository_Same_Timestamp_Keeps_Both_Messages(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	// Given two messages stamped at the identical nanosecond
	at := time.Now().UTC()
	req.NoError(repo.StoreMessage(roomMessage("general", "alice", "a", at)))
	req.NoError(repo.StoreMessage(roomMessage("general", "bob", "b", at)))

	// Then the UUID suffix in the key keeps them from colliding
	history, err := repo.QueryRoom("general")
	req.NoError(err)
	req.Len(history, 2)
}

func TestMessageRepository_Empty_Channel_Returns_No_Messages(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)

	history, err := repo.QueryRoom("ghost-town")
	req.NoError(err)
	req.Empty(history)
}
