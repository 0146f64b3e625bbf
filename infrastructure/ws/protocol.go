package ws

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Inbound and outbound event names. These are the logical transport events
// of the system; the envelope below is their JSON framing.
const (
	EventJoinRoom        = "join_room"
	EventJoinDM          = "join_dm"
	EventSendRoomMessage = "send_room_message"
	EventPrivateMessage  = "private_message"
	EventUserTyping      = "user_typing"
	EventStopTyping      = "stop_typing"

	EventRoomHistory = "room_history"
	EventDMHistory   = "dm_history"
	EventRoomMessage = "room_message"
	EventOnlineUsers = "online_users"
)

// Envelope frames every message in both directions as a JSON text frame.
// Normalization happens here, once, at the trust boundary: handlers past
// the decode only ever see canonical typed payloads.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Room names feed the storage key scheme, where ":" separates segments, so
// a name containing ":" could alias another room's key prefix. It is
// rejected here, at the decode boundary. DM counterparts are held to the
// same charset usernames are registered under.
type JoinRoomPayload struct {
	RoomName string `json:"roomName" validate:"required,excludesall=:"`
}

type JoinDMPayload struct {
	WithUser string `json:"withUser" validate:"required,alphanumunicode"`
}

type SendRoomMessagePayload struct {
	RoomName string `json:"roomName" validate:"required,excludesall=:"`
	Message  string `json:"message"`
	Type     string `json:"type" validate:"omitempty,oneof=text image file voice"`
	FileURL  string `json:"fileUrl"`
}

type PrivateMessagePayload struct {
	To      string `json:"to" validate:"required,alphanumunicode"`
	Message string `json:"message"`
	Type    string `json:"type" validate:"omitempty,oneof=text image file voice"`
	FileURL string `json:"fileUrl"`
}

type TypingPayload struct {
	Channel string `json:"channel" validate:"required"`
}

// WireMessage is the outbound shape of one chat message.
type WireMessage struct {
	User    string    `json:"user"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	FileURL string    `json:"fileUrl,omitempty"`
	ISO     time.Time `json:"iso"`
}

// TypingNotice tells the recipient who is typing and where.
type TypingNotice struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// messageTypeOrText defaults the optional type field like the wire contract
// promises: an absent or unknown type means plain text.
func messageTypeOrText(t string) domain.MessageType {
	messageType := domain.MessageType(t)
	if !domain.KnownType(messageType) {
		return domain.TypeText
	}
	return messageType
}

// channelFromWire resolves the channel key a typing event addresses.
// Clients send either a plain room name or a full "dm:a_b" key.
func channelFromWire(raw string) domain.ChannelKey {
	if strings.HasPrefix(raw, "dm:") {
		return domain.ChannelKey(raw)
	}
	return domain.RoomKey(raw)
}

func toWireMessage(m domain.Message) WireMessage {
	return WireMessage{
		User:    m.Sender,
		Message: m.Body,
		Type:    string(m.Type),
		FileURL: m.FileURL,
		ISO:     m.CreatedAt,
	}
}

// toEnvelope converts a domain event into its outbound frame.
func toEnvelope(e event.DomainEvent) (Envelope, error) {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		return marshalEnvelope(evt.Name, toWireMessage(evt.Message))
	case event.HistoryReplay:
		messages := lo.Map(evt.Messages, func(item domain.Message, _ int) WireMessage {
			return toWireMessage(item)
		})
		if messages == nil {
			messages = []WireMessage{}
		}
		return marshalEnvelope(evt.Name, messages)
	case event.PresenceChanged:
		return marshalEnvelope(EventOnlineUsers, evt.Online)
	case event.Typing:
		name := EventStopTyping
		if evt.Started {
			name = EventUserTyping
		}
		return marshalEnvelope(name, TypingNotice{User: evt.Username, Channel: string(evt.Target)})
	}
	return Envelope{}, nil
}

func marshalEnvelope(name string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: name, Data: raw}, nil
}
