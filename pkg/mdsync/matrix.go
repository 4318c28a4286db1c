// Copyright 2026 UF Open Source Club

package mdsync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// MatrixClient wraps the homeserver connection. It implements the engine's
// DestinationClient interface and carries the thin subscribe/unsubscribe
// command glue, which calls into the registry directly rather than through
// the event queue (subscriber CRUD is atomic and commutative per call).
type MatrixClient struct {
	client   *mautrix.Client
	registry Registry
	cfg      *Config

	startTime time.Time
	log       zerolog.Logger
}

var _ DestinationClient = (*MatrixClient)(nil)

// NewMatrixClient creates a client for the configured bot account and wires
// up the command and membership handlers.
func NewMatrixClient(cfg *Config, registry Registry, log zerolog.Logger) (*MatrixClient, error) {
	client, err := mautrix.NewClient(cfg.HomeserverURL, id.UserID(cfg.MatrixUserID), cfg.MatrixAccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}

	mc := &MatrixClient{
		client:    client,
		registry:  registry,
		cfg:       cfg,
		startTime: time.Now(),
		log:       log.With().Str("component", "matrix_client").Logger(),
	}

	syncer := client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, mc.handleMessage)
	syncer.OnEventType(event.StateMember, mc.handleMembership)

	return mc, nil
}

// Run starts the sync loop and blocks until ctx is cancelled.
func (m *MatrixClient) Run(ctx context.Context) error {
	m.log.Info().Str("user_id", m.cfg.MatrixUserID).Msg("Matrix sync started")
	return m.client.SyncWithContext(ctx)
}

// ResolveRoom resolves a room alias to its room ID.
func (m *MatrixClient) ResolveRoom(ctx context.Context, alias id.RoomAlias) (id.RoomID, error) {
	resp, err := m.client.ResolveAlias(ctx, alias)
	if err != nil {
		return "", fmt.Errorf("resolve alias %s: %w", alias, err)
	}
	return resp.RoomID, nil
}

// JoinRoom joins the given room as the bot account.
func (m *MatrixClient) JoinRoom(ctx context.Context, roomID id.RoomID) error {
	if _, err := m.client.JoinRoomByID(ctx, roomID); err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}
	return nil
}

// InviteUser invites a single user into the given room.
func (m *MatrixClient) InviteUser(ctx context.Context, roomID id.RoomID, userID id.UserID) error {
	if _, err := m.client.InviteUser(ctx, roomID, &mautrix.ReqInviteUser{UserID: userID}); err != nil {
		return fmt.Errorf("invite %s to %s: %w", userID, roomID, err)
	}
	return nil
}

// SendMessage sends one message with a plain body and an HTML formatted body.
func (m *MatrixClient) SendMessage(ctx context.Context, roomID id.RoomID, plainBody, htmlBody string) error {
	_, err := m.client.SendMessageEvent(ctx, roomID, event.EventMessage, &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plainBody,
		Format:        event.FormatHTML,
		FormattedBody: htmlBody,
	})
	if err != nil {
		return fmt.Errorf("send message to %s: %w", roomID, err)
	}
	return nil
}

// handleMembership accepts invites addressed to the bot so operators can
// drag it into the index room.
func (m *MatrixClient) handleMembership(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != string(m.client.UserID) {
		return
	}
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return
	}
	m.log.Info().Stringer("room_id", evt.RoomID).Stringer("sender", evt.Sender).Msg("Accepting room invite")
	if _, err := m.client.JoinRoomByID(ctx, evt.RoomID); err != nil {
		m.log.Error().Err(err).Stringer("room_id", evt.RoomID).Msg("Failed to accept invite")
	}
}

// matrixCommand is a parsed !-prefixed command from a Matrix message.
type matrixCommand struct {
	Name string
	Args []string
}

// parseMatrixCommand extracts a command from a message body. Returns false
// for ordinary messages.
func parseMatrixCommand(body string) (matrixCommand, bool) {
	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") || len(fields[0]) == 1 {
		return matrixCommand{}, false
	}
	return matrixCommand{
		Name: strings.ToLower(strings.TrimPrefix(fields[0], "!")),
		Args: fields[1:],
	}, true
}

func (m *MatrixClient) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == m.client.UserID {
		return
	}
	// Sync backfill replays history; only react to messages sent after boot.
	if evt.Timestamp < m.startTime.UnixMilli() {
		return
	}

	content := evt.Content.AsMessage()
	if content == nil {
		return
	}
	cmd, ok := parseMatrixCommand(content.Body)
	if !ok {
		return
	}

	log := m.log.With().
		Stringer("sender", evt.Sender).
		Stringer("room_id", evt.RoomID).
		Str("command", cmd.Name).
		Logger()

	switch cmd.Name {
	case "subscribe":
		// Idempotent: re-subscribing replies success either way.
		if err := m.registry.AddSubscriber(ctx, string(evt.Sender)); err != nil {
			log.Error().Err(err).Msg("Failed to add subscriber")
			m.reply(ctx, evt.RoomID, "Failed to subscribe, try again later.")
			return
		}
		log.Info().Msg("Subscriber added")
		m.reply(ctx, evt.RoomID, fmt.Sprintf("%s will be invited to newly bridged rooms.", evt.Sender))
	case "unsubscribe":
		if err := m.registry.DeleteSubscriber(ctx, string(evt.Sender)); err != nil {
			log.Error().Err(err).Msg("Failed to delete subscriber")
			m.reply(ctx, evt.RoomID, "Failed to unsubscribe, try again later.")
			return
		}
		log.Info().Msg("Subscriber removed")
		m.reply(ctx, evt.RoomID, fmt.Sprintf("%s will no longer be invited to newly bridged rooms.", evt.Sender))
	case "unbridge":
		m.handleUnbridge(ctx, log, evt, cmd.Args)
	}
}

func (m *MatrixClient) handleUnbridge(ctx context.Context, log zerolog.Logger, evt *event.Event, args []string) {
	if !m.cfg.IsAdmin(string(evt.Sender)) {
		log.Warn().Msg("Unbridge denied for non-admin")
		m.reply(ctx, evt.RoomID, "You are not allowed to unbridge channels.")
		return
	}
	if len(args) != 2 {
		m.reply(ctx, evt.RoomID, "Usage: !unbridge <guild id> <channel id>")
		return
	}
	guildID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		m.reply(ctx, evt.RoomID, "Usage: !unbridge <guild id> <channel id>")
		return
	}
	channelID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		m.reply(ctx, evt.RoomID, "Usage: !unbridge <guild id> <channel id>")
		return
	}

	if err := m.registry.DeleteBridge(ctx, guildID, channelID); err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Int64("channel_id", channelID).Msg("Failed to delete bridge")
		m.reply(ctx, evt.RoomID, "Failed to unbridge, try again later.")
		return
	}
	log.Info().Int64("guild_id", guildID).Int64("channel_id", channelID).Msg("Bridge deleted")
	m.reply(ctx, evt.RoomID, "Bridge removed. The index will reflect it on the next sync.")
}

func (m *MatrixClient) reply(ctx context.Context, roomID id.RoomID, text string) {
	if _, err := m.client.SendText(ctx, roomID, text); err != nil {
		m.log.Warn().Err(err).Stringer("room_id", roomID).Msg("Failed to send command reply")
	}
}
