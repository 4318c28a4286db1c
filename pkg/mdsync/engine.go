// Copyright 2026 UF Open Source Club

package mdsync

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/ufosc/matrix-discord-sync/pkg/mdsync/store"
	"maunium.net/go/mautrix/id"
)

// Registry is the persistent bridge/subscriber store the engine writes to.
// Implemented by store.Store; tests inject fakes.
type Registry interface {
	ListBridges(ctx context.Context) ([]store.Bridge, error)
	AddBridge(ctx context.Context, bridge store.Bridge) error
	DeleteBridge(ctx context.Context, guildID, channelID int64) error
	ListSubscribers(ctx context.Context) ([]string, error)
	AddSubscriber(ctx context.Context, userID string) error
	DeleteSubscriber(ctx context.Context, userID string) error
}

// DestinationClient is the narrow Matrix surface the engine calls. It hides
// the transport; implemented by MatrixClient, mocked in tests.
type DestinationClient interface {
	ResolveRoom(ctx context.Context, alias id.RoomAlias) (id.RoomID, error)
	JoinRoom(ctx context.Context, roomID id.RoomID) error
	InviteUser(ctx context.Context, roomID id.RoomID, userID id.UserID) error
	SendMessage(ctx context.Context, roomID id.RoomID, plainBody, htmlBody string) error
}

// Engine is the single-consumer synchronization loop. It is the only writer
// to the bridges table and the only component issuing room mutations, which
// serializes duplicate-bridge creation and index-message updates through one
// goroutine. It holds no state across events beyond what it reads fresh from
// the registry each cycle.
type Engine struct {
	registry Registry
	matrix   DestinationClient
	queue    *EventQueue

	homeserver  string
	indexRoom   id.RoomID
	autoInvite  bool
	callTimeout time.Duration

	log zerolog.Logger
}

// NewEngine constructs the sync engine. All collaborators are owned values
// passed in here; the engine keeps no package-level state.
func NewEngine(registry Registry, matrix DestinationClient, queue *EventQueue, cfg *Config, log zerolog.Logger) *Engine {
	return &Engine{
		registry:    registry,
		matrix:      matrix,
		queue:       queue,
		homeserver:  cfg.Homeserver,
		indexRoom:   id.RoomID(cfg.IndexRoomID),
		autoInvite:  cfg.EnableAutoInvite,
		callTimeout: cfg.RequestTimeout(),
		log:         log.With().Str("component", "sync_engine").Logger(),
	}
}

// Run drains the event queue until ctx is cancelled or the queue is closed.
// Must be called from exactly one goroutine. The in-flight cycle finishes
// before Run returns.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info().Msg("Sync engine started")
	for {
		evt, ok := e.queue.Dequeue(ctx)
		if !ok {
			e.log.Info().Msg("Sync engine stopped")
			return
		}
		e.process(ctx, evt)
	}
}

// process handles one dequeued event. Failures never propagate out; a failed
// event is dropped after one logged attempt and the loop stays live.
func (e *Engine) process(ctx context.Context, evt ChannelEvent) {
	log := e.log.With().
		Stringer("event_type", evt.Type).
		Int64("guild_id", evt.Bridge.GuildID).
		Int64("channel_id", evt.Bridge.ChannelID).
		Logger()

	switch evt.Type {
	case EventNewChannel, EventManualSync:
		e.handleNewChannel(ctx, log, evt.Bridge)
	case EventUpdateChannel, EventDeletedChannel:
		// Accepted by the type system but not acted on. Logged so the gap
		// stays observable to operators.
		log.Info().Str("channel_name", evt.Bridge.ChannelName).Msg("Ignoring unhandled channel event")
	default:
		log.Warn().Msg("Dropping event of unknown type")
	}
}

func (e *Engine) handleNewChannel(ctx context.Context, log zerolog.Logger, bridge store.Bridge) {
	log.Debug().Str("channel_name", bridge.ChannelName).Msg("Adding bridge")
	if err := e.registry.AddBridge(ctx, bridge); err != nil {
		// No invite or index render on top of unpersisted state.
		log.Error().Err(err).Str("channel_name", bridge.ChannelName).Msg("Failed to add bridge, aborting cycle")
		return
	}
	log.Debug().Msg("Bridge added")

	if e.autoInvite {
		e.inviteSubscribers(ctx, log, bridge)
	}

	e.publishIndex(ctx, log)
}

// inviteSubscribers resolves the bridged room and invites every subscriber.
// All failures here are absorbed: partial progress is preferable to none,
// and the index render still runs afterwards.
func (e *Engine) inviteSubscribers(ctx context.Context, log zerolog.Logger, bridge store.Bridge) {
	alias := BridgeAlias(bridge, e.homeserver)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	roomID, err := e.matrix.ResolveRoom(callCtx, alias)
	cancel()
	if err != nil {
		log.Warn().Err(err).Stringer("alias", alias).Msg("Failed to resolve bridged room, skipping invites")
		return
	}

	callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
	err = e.matrix.JoinRoom(callCtx, roomID)
	cancel()
	if err != nil {
		log.Warn().Err(err).Stringer("room_id", roomID).Msg("Failed to join bridged room, skipping invites")
		return
	}

	subscribers, err := e.registry.ListSubscribers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list subscribers, skipping invites")
		return
	}

	for _, userID := range subscribers {
		callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
		err = e.matrix.InviteUser(callCtx, roomID, id.UserID(userID))
		cancel()
		if err != nil {
			// One subscriber's failure must not stop the rest. There is no
			// retry; the log line is the operator's signal.
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to invite subscriber")
		}
	}
}

// publishIndex re-renders the full bridge list and sends it to the index
// room as a new message. Earlier index messages are left in place.
func (e *Engine) publishIndex(ctx context.Context, log zerolog.Logger) {
	bridges, err := e.registry.ListBridges(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list bridges for index message")
		return
	}
	log.Debug().Int("bridge_count", len(bridges)).Msg("Rendering index message")

	plain := RenderPlainIndex(bridges, e.homeserver)
	html := RenderHTMLIndex(bridges, e.homeserver)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	err = e.matrix.SendMessage(callCtx, e.indexRoom, plain, html)
	cancel()
	if err != nil {
		// The next event naturally re-renders; no retry here.
		log.Error().Err(err).Stringer("room_id", e.indexRoom).Msg("Failed to send index message")
		return
	}
	log.Info().Int("bridge_count", len(bridges)).Msg("Index message updated")
}
