package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
)

// MessageIndex is a full-text index over persisted messages, fed at
// persistence time and queried by the search API. Losing an index entry is
// acceptable: BadgerDB remains the source of truth, the index is a
// projection.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// SearchHit is one indexed message matched by a query.
type SearchHit struct {
	ID      string    `json:"id"`
	Channel string    `json:"channel"`
	Sender  string    `json:"sender"`
	Body    string    `json:"message"`
	At      time.Time `json:"at"`
}

func NewMessageIndex(path string, log *slog.Logger) (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &MessageIndex{writer: writer, log: log}, nil
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}

// Index adds one message to the search index. System messages are not
// persisted and therefore never reach the index.
func (i *MessageIndex) Index(message DiskMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("body", message.Body).StoreValue()).
		AddField(bluge.NewKeywordField("channel", string(message.Channel)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.Sender).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.At).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search matches terms against message bodies, optionally restricted to one
// channel key, newest-first by score order as returned by bluge.
func (i *MessageIndex) Search(ctx context.Context, terms, channel string, limit int) ([]SearchHit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	match := bluge.NewMatchQuery(terms).SetField("body")
	var query bluge.Query = match
	if channel != "" {
		query = bluge.NewBooleanQuery().
			AddMust(match).
			AddMust(bluge.NewTermQuery(channel).SetField("channel"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		next, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		var hit SearchHit
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "channel":
				hit.Channel = string(value)
			case "sender":
				hit.Sender = string(value)
			case "body":
				hit.Body = string(value)
			case "at":
				if at, err := bluge.DecodeDateTime(value); err == nil {
					hit.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
