// Package sink provides the outbound delivery buffers sitting between the
// router and each transport connection.
package sink

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
)

// Buffered decouples the router's fan-out from the websocket write pump.
// The router pushes into a bounded channel and the connection's writer
// drains it. A full buffer drops the event instead of stalling the router:
// a consumer that cannot keep up loses realtime events, history replay on
// the next join catches it up.
type Buffered struct {
	Events chan event.DomainEvent
	log    *slog.Logger
}

func NewBuffered(log *slog.Logger, bufferSize int) *Buffered {
	return &Buffered{
		Events: make(chan event.DomainEvent, bufferSize),
		log:    log,
	}
}

// Consume implements contract.EventSink. The returned error reports a
// dropped event; the router counts it and moves on.
func (s *Buffered) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("Sink buffer full, dropping event")
		return errors.ErrSinkFull
	}
}
