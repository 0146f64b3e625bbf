package ws

import (
	"chat-relay/auth"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *auth.TokenManager) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.DiscardHandler)
	store := repositories.NewMessageRepository(db, log, nil)
	router := runtime.NewRouter(log, runtime.NewRegistry(), runtime.NewPresence(), store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	tokens := auth.NewTokenManager(testSecret, time.Hour)
	server := NewServer(ctx, log, auth.NewVerifier(tokens), router, 64)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, tokens
}

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil drains frames until the wanted event arrives. Presence snapshots
// from concurrently connecting clients interleave freely, everything else is
// FIFO per connection.
func readUntil(t *testing.T, conn *websocket.Conn, want string) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var envelope Envelope
		require.NoError(t, conn.ReadJSON(&envelope))
		if envelope.Event == want {
			return envelope
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: eventName, Data: raw}))
}

func TestServer_Rejects_Connection_Without_Token(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Nil(conn)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServer_Rejects_Forged_Token(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t)
	forged := auth.NewTokenManager("wrong-secret", time.Hour)
	token, err := forged.Generate("user-1", "mallory")
	req.NoError(err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Nil(conn)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServer_Accepts_Token_In_Authorization_Header(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)
	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	req.NoError(err)
	_ = resp.Body.Close()
	defer conn.Close()

	envelope := readUntil(t, conn, EventOnlineUsers)
	req.JSONEq(`["alice"]`, string(envelope.Data))
}

func TestServer_Connect_Join_Send_Echo(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)
	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)
	conn := dial(t, ts, token)

	// The first thing a new session sees is the online snapshot
	envelope := readUntil(t, conn, EventOnlineUsers)
	req.JSONEq(`["alice"]`, string(envelope.Data))

	// Joining a fresh room replays an empty history
	send(t, conn, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	envelope = readUntil(t, conn, EventRoomHistory)
	req.JSONEq(`[]`, string(envelope.Data))

	// The sender's own message comes back as the server echo
	send(t, conn, EventSendRoomMessage, SendRoomMessagePayload{RoomName: "general", Message: "hi"})
	envelope = readUntil(t, conn, EventRoomMessage)
	var wire WireMessage
	req.NoError(json.Unmarshal(envelope.Data, &wire))
	req.Equal("alice", wire.User)
	req.Equal("hi", wire.Message)
	req.Equal("text", wire.Type)
	req.False(wire.ISO.IsZero())
}

func TestServer_Join_Announcement_And_Fan_Out_Between_Clients(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)

	aliceToken, err := tokens.Generate("user-1", "alice")
	req.NoError(err)
	bobToken, err := tokens.Generate("user-2", "bob")
	req.NoError(err)

	alice := dial(t, ts, aliceToken)
	send(t, alice, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	readUntil(t, alice, EventRoomHistory)

	bob := dial(t, ts, bobToken)
	send(t, bob, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	readUntil(t, bob, EventRoomHistory)

	// Alice sees the system announcement for bob's join
	envelope := readUntil(t, alice, EventRoomMessage)
	var wire WireMessage
	req.NoError(json.Unmarshal(envelope.Data, &wire))
	req.Equal("System", wire.User)
	req.Equal("bob joined the room", wire.Message)
	req.Equal("system", wire.Type)

	// And bob's chat message reaches her live
	send(t, bob, EventSendRoomMessage, SendRoomMessagePayload{RoomName: "general", Message: "hello all"})
	envelope = readUntil(t, alice, EventRoomMessage)
	req.NoError(json.Unmarshal(envelope.Data, &wire))
	req.Equal("bob", wire.User)
	req.Equal("hello all", wire.Message)
}

func TestServer_History_Replay_On_Rejoin(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)
	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)

	first := dial(t, ts, token)
	send(t, first, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	readUntil(t, first, EventRoomHistory)
	send(t, first, EventSendRoomMessage, SendRoomMessagePayload{RoomName: "general", Message: "for the record"})
	readUntil(t, first, EventRoomMessage)
	_ = first.Close()

	// Persistence is asynchronous; poll with fresh connections until the
	// message shows up in the replay
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?token=" + token
	req.Eventually(func() bool {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return false
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		raw, _ := json.Marshal(JoinRoomPayload{RoomName: "general"})
		if err := conn.WriteJSON(Envelope{Event: EventJoinRoom, Data: raw}); err != nil {
			return false
		}
		for {
			var envelope Envelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return false
			}
			if envelope.Event != EventRoomHistory {
				continue
			}
			var history []WireMessage
			if err := json.Unmarshal(envelope.Data, &history); err != nil {
				return false
			}
			return len(history) == 1 && history[0].Message == "for the record"
		}
	}, 5*time.Second, 100*time.Millisecond)
}

func TestServer_Typing_Indicator_Between_Clients(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)

	aliceToken, err := tokens.Generate("user-1", "alice")
	req.NoError(err)
	bobToken, err := tokens.Generate("user-2", "bob")
	req.NoError(err)

	alice := dial(t, ts, aliceToken)
	send(t, alice, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	readUntil(t, alice, EventRoomHistory)

	bob := dial(t, ts, bobToken)
	send(t, bob, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	readUntil(t, bob, EventRoomHistory)

	send(t, bob, EventUserTyping, TypingPayload{Channel: "general"})
	envelope := readUntil(t, alice, EventUserTyping)
	var notice TypingNotice
	req.NoError(json.Unmarshal(envelope.Data, &notice))
	req.Equal("bob", notice.User)
	req.Equal("room:general", notice.Channel)

	send(t, bob, EventStopTyping, TypingPayload{Channel: "general"})
	readUntil(t, alice, EventStopTyping)
}

func TestServer_Private_Message_Between_Subscribed_Clients(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)

	aliceToken, err := tokens.Generate("user-1", "alice")
	req.NoError(err)
	bobToken, err := tokens.Generate("user-2", "bob")
	req.NoError(err)

	alice := dial(t, ts, aliceToken)
	bob := dial(t, ts, bobToken)

	send(t, alice, EventJoinDM, JoinDMPayload{WithUser: "bob"})
	readUntil(t, alice, EventDMHistory)
	send(t, bob, EventJoinDM, JoinDMPayload{WithUser: "alice"})
	readUntil(t, bob, EventDMHistory)

	send(t, alice, EventPrivateMessage, PrivateMessagePayload{To: "bob", Message: "psst"})

	envelope := readUntil(t, bob, EventPrivateMessage)
	var wire WireMessage
	req.NoError(json.Unmarshal(envelope.Data, &wire))
	req.Equal("alice", wire.User)
	req.Equal("psst", wire.Message)
}

func TestServer_Malformed_Frame_Keeps_Connection_Open(t *testing.T) {
	req := require.New(t)
	ts, tokens := newTestServer(t)
	token, err := tokens.Generate("user-1", "alice")
	req.NoError(err)
	conn := dial(t, ts, token)
	readUntil(t, conn, EventOnlineUsers)

	// Garbage, an unknown event, and payloads failing validation
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	req.NoError(conn.WriteJSON(Envelope{Event: "no_such_event"}))
	send(t, conn, EventJoinRoom, JoinRoomPayload{RoomName: ""})
	send(t, conn, EventJoinRoom, JoinRoomPayload{RoomName: "general:2024"})

	// The session is still fully functional afterwards
	send(t, conn, EventJoinRoom, JoinRoomPayload{RoomName: "general"})
	envelope := readUntil(t, conn, EventRoomHistory)
	req.JSONEq(`[]`, string(envelope.Data))
}
