// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates the payload carried in Body/FileURL.
type MessageType string

const (
	TypeText   MessageType = "text"
	TypeImage  MessageType = "image"
	TypeFile   MessageType = "file"
	TypeVoice  MessageType = "voice"
	TypeSystem MessageType = "system"
)

// KnownType reports whether t is one of the client-sendable message types.
// System messages are minted by the server only.
func KnownType(t MessageType) bool {
	switch t {
	case TypeText, TypeImage, TypeFile, TypeVoice:
		return true
	}
	return false
}

// Message represents an immutable chat event. CreatedAt is assigned by the
// server at routing time, never taken from the client.
type Message struct {
	ID        uuid.UUID
	Sender    string
	Receiver  string // DM counterpart username, empty for room messages
	Channel   ChannelKey
	Type      MessageType
	Body      string
	FileURL   string
	CreatedAt time.Time
}
