package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	QueryRoom(room string) ([]DiskMessage, error)
	QueryDM(userA, userB string) ([]DiskMessage, error)
}

// DiskMessage is the storage shape of a message. Values are JSON-encoded,
// which matches the wire codec end-to-end.
type DiskMessage struct {
	ID       uuid.UUID          `json:"id"`
	Channel  domain.ChannelKey  `json:"channel"`
	Sender   string             `json:"sender"`
	Receiver string             `json:"receiver,omitempty"`
	Type     domain.MessageType `json:"type"`
	Body     string             `json:"message"`
	FileURL  string             `json:"fileUrl,omitempty"`
	At       time.Time          `json:"at"`
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{channel}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// The channel part is either "room:{name}" or the canonical "dm:{a}_{b}" key,
// so a prefix scan per channel returns exactly that channel's history.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.Channel,
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// QueryRoom returns the history of a public room in ascending createdAt order.
func (m MessageRepository) QueryRoom(room string) ([]DiskMessage, error) {
	return m.queryChannel(domain.RoomKey(room))
}

// QueryDM returns the history of the unordered pair (userA, userB) in
// ascending createdAt order. Both send directions land under the same
// canonical key, so no post-filtering is needed.
func (m MessageRepository) QueryDM(userA, userB string) ([]DiskMessage, error) {
	return m.queryChannel(domain.DMKey(userA, userB))
}

// queryChannel iterates the channel prefix in reverse so an optional limit
// keeps the newest messages, then flips the slice back to ascending order.
func (m MessageRepository) queryChannel(channel domain.ChannelKey) ([]DiskMessage, error) {
	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", channel))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this prefix, then walk back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(diskMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				// The ":"-separated prefix overmatches a channel whose name
				// extends the queried one ("general" vs "general:2024").
				// The stored channel is authoritative.
				if message.Channel != channel {
					return nil
				}
				diskMessages = append(diskMessages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(diskMessages), nil
}
