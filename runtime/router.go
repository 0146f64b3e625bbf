package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const systemUser = "System"

// Router maps sessions to the channels they subscribe to and fans inbound
// events out to the right recipients. Delivery runs under a per-channel
// lock, so every subscriber of one channel observes broadcasts in the order
// the router processed them; no ordering is promised across channels.
//
// Persistence is asynchronous and best-effort relative to delivery: a
// message is broadcast first, the durable write happens in the background,
// and a write failure is logged, never surfaced to subscribers or allowed
// to close the connection.
type Router struct {
	log        *slog.Logger
	registry   contract.IRegistry
	presence   contract.IPresence
	store      repositories.IMessageRepository
	index      *repositories.MessageIndex // optional, nil disables indexing
	monitoring *observability.Monitoring

	mu        sync.Mutex
	chanLocks map[domain.ChannelKey]*sync.Mutex
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, presence contract.IPresence,
	store repositories.IMessageRepository, index *repositories.MessageIndex,
	monitoring *observability.Monitoring) *Router {
	if monitoring == nil {
		monitoring = observability.NewMonitoring()
	}
	return &Router{
		log:        log,
		registry:   registry,
		presence:   presence,
		store:      store,
		index:      index,
		monitoring: monitoring,
		chanLocks:  make(map[domain.ChannelKey]*sync.Mutex),
	}
}

// Attach registers an authenticated session: it enters the session
// directory and the presence registry, and every connected session gets a
// fresh online snapshot if the online set changed.
func (r *Router) Attach(ctx context.Context, sessionID, username string, sink contract.EventSink) {
	r.registry.Attach(sessionID, sink)
	r.presence.Register(username)
	// The snapshot goes out on every transition, including N>1 connections
	// of the same user: the joining session needs its initial list anyway.
	r.broadcastPresence(ctx)
	r.monitoring.ConnectionOpened()
}

// Detach removes the session from every subscriber set and from presence,
// synchronously, before any further broadcast can be computed.
func (r *Router) Detach(ctx context.Context, sessionID, username string) {
	r.registry.Detach(sessionID)
	if r.presence.Unregister(username) {
		r.broadcastPresence(ctx)
	}
	r.monitoring.ConnectionClosed()
}

// JoinRoom subscribes the session to a public room. The joiner gets the
// room history; the other current subscribers get a system-typed
// announcement which is never persisted. Joining twice re-sends history.
func (r *Router) JoinRoom(ctx context.Context, sessionID, username, room string) {
	channel := domain.RoomKey(room)
	r.registry.Subscribe(sessionID, channel)

	history, err := r.store.QueryRoom(room)
	if err != nil {
		// A failed replay surfaces as an empty history, not a failed join.
		r.log.Error("Room history query failed", "room", room, "error", err)
		history = nil
	}
	r.replay(ctx, sessionID, "room_history", channel, history)

	lock := r.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()
	announcement := domain.Message{
		ID:        uuid.New(),
		Sender:    systemUser,
		Channel:   channel,
		Type:      domain.TypeSystem,
		Body:      fmt.Sprintf("%s joined the room", username),
		CreatedAt: time.Now().UTC(),
	}
	r.deliver(ctx, r.registry.SinksForOthers(channel, sessionID),
		event.MessageBroadcast{Name: "room_message", Message: announcement})
}

// JoinDM subscribes the session to the canonical channel of the unordered
// pair (username, withUser) and replays both directions of the pair's
// history. DMs have no join announcement.
func (r *Router) JoinDM(ctx context.Context, sessionID, username, withUser string) {
	channel := domain.DMKey(username, withUser)
	r.registry.Subscribe(sessionID, channel)

	history, err := r.store.QueryDM(username, withUser)
	if err != nil {
		r.log.Error("DM history query failed", "channel", channel, "error", err)
		history = nil
	}
	r.replay(ctx, sessionID, "dm_history", channel, history)
}

// RouteRoomMessage stamps the message server-side, broadcasts it to every
// current subscriber of the room including the sender (the server echo is
// the single source of truth), then persists it in the background.
func (r *Router) RouteRoomMessage(ctx context.Context, username, room, body string,
	messageType domain.MessageType, fileURL string) {
	channel := domain.RoomKey(room)
	message := domain.Message{
		ID:        uuid.New(),
		Sender:    username,
		Channel:   channel,
		Type:      messageType,
		Body:      body,
		FileURL:   fileURL,
		CreatedAt: time.Now().UTC(),
	}

	lock := r.channelLock(channel)
	lock.Lock()
	r.deliver(ctx, r.registry.SinksFor(channel),
		event.MessageBroadcast{Name: "room_message", Message: message})
	lock.Unlock()

	r.monitoring.MessageRouted()
	r.persistAsync(message)
}

// RoutePrivateMessage delivers to the current subscribers of the DM channel
// only. A recipient who never joined the channel misses the live event but
// finds the message in history on the next join: liveness requires explicit
// subscription, durability does not.
func (r *Router) RoutePrivateMessage(ctx context.Context, username, to, body string,
	messageType domain.MessageType, fileURL string) {
	channel := domain.DMKey(username, to)
	message := domain.Message{
		ID:        uuid.New(),
		Sender:    username,
		Receiver:  to,
		Channel:   channel,
		Type:      messageType,
		Body:      body,
		FileURL:   fileURL,
		CreatedAt: time.Now().UTC(),
	}

	lock := r.channelLock(channel)
	lock.Lock()
	r.deliver(ctx, r.registry.SinksFor(channel),
		event.MessageBroadcast{Name: "private_message", Message: message})
	lock.Unlock()

	r.monitoring.MessageRouted()
	r.persistAsync(message)
}

// RouteTyping is fire-and-forget: the other subscribers of the channel get
// the indicator, nothing is persisted, and a missing stop_typing is the
// client's problem to expire.
func (r *Router) RouteTyping(ctx context.Context, sessionID, username string,
	channel domain.ChannelKey, started bool) {
	r.deliver(ctx, r.registry.SinksForOthers(channel, sessionID),
		event.Typing{Target: channel, Username: username, Started: started})
}

func (r *Router) replay(ctx context.Context, sessionID, name string,
	channel domain.ChannelKey, history []repositories.DiskMessage) {
	sink, ok := r.registry.SinkOf(sessionID)
	if !ok {
		return
	}
	messages := lo.Map(history, func(item repositories.DiskMessage, _ int) domain.Message {
		return fromDiskMessage(item)
	})
	r.consume(ctx, sink, event.HistoryReplay{Name: name, Target: channel, Messages: messages})
	r.monitoring.HistoryReplayed()
}

func (r *Router) broadcastPresence(ctx context.Context) {
	snapshot := event.PresenceChanged{Online: r.presence.Snapshot()}
	r.deliver(ctx, r.registry.AllSinks(), snapshot)
}

func (r *Router) deliver(ctx context.Context, sinks []contract.EventSink, e event.DomainEvent) {
	for _, sink := range sinks {
		r.consume(ctx, sink, e)
	}
}

// consume pushes one event into one sink. Sinks are non-blocking; an error
// here means a dead or saturated consumer, which is that consumer's loss,
// never a routing failure.
func (r *Router) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		r.monitoring.EventDropped()
		r.log.Debug("Event dropped", "error", err)
	}
}

// persistAsync writes the durable log entry without blocking delivery.
// Failures are logged and counted, never retried indefinitely and never
// escalated to the connection.
func (r *Router) persistAsync(message domain.Message) {
	go func() {
		disk := toDiskMessage(message)
		if err := r.store.StoreMessage(disk); err != nil {
			r.monitoring.PersistFailed()
			r.log.Error("Failed to persist message",
				"channel", message.Channel, "sender", message.Sender, "error", err)
			return
		}
		r.monitoring.MessagePersisted()
		if r.index == nil {
			return
		}
		if err := r.index.Index(disk); err != nil {
			r.log.Warn("Failed to index message", "channel", message.Channel, "error", err)
		}
	}()
}

func (r *Router) channelLock(channel domain.ChannelKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.chanLocks[channel]
	if !ok {
		lock = &sync.Mutex{}
		r.chanLocks[channel] = lock
	}
	return lock
}

func toDiskMessage(message domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:       message.ID,
		Channel:  message.Channel,
		Sender:   message.Sender,
		Receiver: message.Receiver,
		Type:     message.Type,
		Body:     message.Body,
		FileURL:  message.FileURL,
		At:       message.CreatedAt,
	}
}

func fromDiskMessage(disk repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:        disk.ID,
		Channel:   disk.Channel,
		Sender:    disk.Sender,
		Receiver:  disk.Receiver,
		Type:      disk.Type,
		Body:      disk.Body,
		FileURL:   disk.FileURL,
		CreatedAt: disk.At,
	}
}
