package ws

import (
	"chat-relay/domain"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Session is the server-side state of one authenticated connection: the
// identity fixed at the handshake, the outbound sink the router writes to,
// and the goroutine pair draining both directions of the socket.
type Session struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	sink     *sink.Buffered
	router   *runtime.Router
	log      *slog.Logger
	validate *validator.Validate
	cancel   context.CancelFunc
}

// readLoop consumes inbound frames until the peer disconnects. Its deferred
// cleanup is the single Closed transition: detach from every subscriber set
// and from presence before the connection object dies.
func (s *Session) readLoop(ctx context.Context) {
	defer func() {
		s.router.Detach(ctx, s.id, s.identity.Username)
		s.cancel()
		_ = s.conn.Close()
		s.log.Info("Session closed", "username", s.identity.Username)
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Unexpected close", "username", s.identity.Username, "error", err)
			}
			return
		}
		s.handle(ctx, raw)
	}
}

// handle decodes and dispatches one inbound frame. A malformed payload is
// rejected per-event: the connection stays open, nothing is broadcast.
func (s *Session) handle(ctx context.Context, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		s.log.Warn("Malformed frame", "username", s.identity.Username, "error", err)
		return
	}

	switch envelope.Event {
	case EventJoinRoom:
		var payload JoinRoomPayload
		if !s.decode(envelope.Data, &payload) {
			return
		}
		s.router.JoinRoom(ctx, s.id, s.identity.Username, payload.RoomName)

	case EventJoinDM:
		var payload JoinDMPayload
		if !s.decode(envelope.Data, &payload) {
			return
		}
		s.router.JoinDM(ctx, s.id, s.identity.Username, payload.WithUser)

	case EventSendRoomMessage:
		var payload SendRoomMessagePayload
		if !s.decode(envelope.Data, &payload) {
			return
		}
		s.router.RouteRoomMessage(ctx, s.identity.Username, payload.RoomName,
			payload.Message, messageTypeOrText(payload.Type), payload.FileURL)

	case EventPrivateMessage:
		var payload PrivateMessagePayload
		if !s.decode(envelope.Data, &payload) {
			return
		}
		s.router.RoutePrivateMessage(ctx, s.identity.Username, payload.To,
			payload.Message, messageTypeOrText(payload.Type), payload.FileURL)

	case EventUserTyping, EventStopTyping:
		var payload TypingPayload
		if !s.decode(envelope.Data, &payload) {
			return
		}
		s.router.RouteTyping(ctx, s.id, s.identity.Username,
			channelFromWire(payload.Channel), envelope.Event == EventUserTyping)

	default:
		s.log.Debug("Unknown event", "event", envelope.Event, "username", s.identity.Username)
	}
}

func (s *Session) decode(raw json.RawMessage, payload any) bool {
	if err := json.Unmarshal(raw, payload); err != nil {
		s.log.Warn("Malformed payload", "username", s.identity.Username, "error", err)
		return false
	}
	if err := s.validate.Struct(payload); err != nil {
		s.log.Warn("Invalid payload", "username", s.identity.Username, "error", err)
		return false
	}
	return true
}

// writePump drains the sink into the socket and keeps the connection alive
// with pings. It owns all writes; the router never touches the socket.
func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case evt := <-s.sink.Events:
			envelope, err := toEnvelope(evt)
			if err != nil || envelope.Event == "" {
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(envelope); err != nil {
				s.log.Debug("Write failed", "username", s.identity.Username, "error", err)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
