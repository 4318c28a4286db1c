// Copyright 2026 UF Open Source Club

package mdsync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/ufosc/matrix-discord-sync/pkg/mdsync/store"
)

// eventEnqueuer is the queue surface the watcher needs. Tests inject a mock
// instead of a full EventQueue.
type eventEnqueuer interface {
	Enqueue(evt ChannelEvent) bool
}

// DiscordWatcher observes the Discord gateway and enqueues channel lifecycle
// events for the sync engine. It never touches the registry or Matrix; the
// queue is its only output besides command replies.
type DiscordWatcher struct {
	session *discordgo.Session
	queue   eventEnqueuer

	prefix   string
	syncRole string
	log      zerolog.Logger
}

// NewDiscordWatcher creates a gateway session with the guild and message
// intents the watcher needs, and registers its handlers.
func NewDiscordWatcher(cfg *Config, queue eventEnqueuer, log zerolog.Logger) (*DiscordWatcher, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	w := &DiscordWatcher{
		session:  session,
		queue:    queue,
		prefix:   cfg.CommandPrefix,
		syncRole: cfg.SyncRole,
		log:      log.With().Str("component", "discord_watcher").Logger(),
	}
	session.AddHandler(w.onReady)
	session.AddHandler(w.onChannelCreate)
	session.AddHandler(w.onChannelUpdate)
	session.AddHandler(w.onChannelDelete)
	session.AddHandler(w.onMessageCreate)
	return w, nil
}

// Open connects to the gateway.
func (w *DiscordWatcher) Open() error {
	if err := w.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (w *DiscordWatcher) Close() error {
	return w.session.Close()
}

func (w *DiscordWatcher) onReady(_ *discordgo.Session, evt *discordgo.Ready) {
	w.log.Info().Str("username", evt.User.Username).Int("guilds", len(evt.Guilds)).Msg("Discord gateway ready")
}

func (w *DiscordWatcher) onChannelCreate(_ *discordgo.Session, evt *discordgo.ChannelCreate) {
	w.enqueueChannel(EventNewChannel, evt.Channel)
}

func (w *DiscordWatcher) onChannelUpdate(_ *discordgo.Session, evt *discordgo.ChannelUpdate) {
	w.enqueueChannel(EventUpdateChannel, evt.Channel)
}

func (w *DiscordWatcher) onChannelDelete(_ *discordgo.Session, evt *discordgo.ChannelDelete) {
	w.enqueueChannel(EventDeletedChannel, evt.Channel)
}

func (w *DiscordWatcher) enqueueChannel(eventType EventType, ch *discordgo.Channel) {
	if ch.Type != discordgo.ChannelTypeGuildText {
		return
	}
	bridge, err := channelBridge(ch)
	if err != nil {
		w.log.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to parse channel identifiers")
		return
	}
	if !w.queue.Enqueue(ChannelEvent{Type: eventType, Bridge: bridge}) {
		w.log.Warn().Stringer("event_type", eventType).Str("channel_id", ch.ID).Msg("Queue closed, dropping event")
		return
	}
	w.log.Debug().
		Stringer("event_type", eventType).
		Int64("guild_id", bridge.GuildID).
		Int64("channel_id", bridge.ChannelID).
		Str("channel_name", bridge.ChannelName).
		Msg("Enqueued channel event")
}

func (w *DiscordWatcher) onMessageCreate(s *discordgo.Session, evt *discordgo.MessageCreate) {
	if evt.Author == nil || evt.Author.Bot {
		return
	}
	if !isSyncCommand(evt.Content, w.prefix) {
		return
	}

	log := w.log.With().
		Str("guild_id", evt.GuildID).
		Str("channel_id", evt.ChannelID).
		Str("author", evt.Author.Username).
		Logger()

	if !w.memberHasSyncRole(s, evt) {
		log.Warn().Str("role", w.syncRole).Msg("Sync command denied")
		if _, err := s.ChannelMessageSend(evt.ChannelID, fmt.Sprintf("You need the %s role to run sync.", w.syncRole)); err != nil {
			log.Warn().Err(err).Msg("Failed to send permission reply")
		}
		return
	}

	ch, err := s.State.Channel(evt.ChannelID)
	if err != nil {
		ch, err = s.Channel(evt.ChannelID)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch channel for manual sync")
		return
	}

	bridge, err := channelBridge(ch)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse channel identifiers")
		return
	}
	if !w.queue.Enqueue(ChannelEvent{Type: EventManualSync, Bridge: bridge}) {
		log.Warn().Msg("Queue closed, dropping manual sync")
		return
	}
	log.Info().Int64("parsed_channel_id", bridge.ChannelID).Msg("Manual sync enqueued")
}

func (w *DiscordWatcher) memberHasSyncRole(s *discordgo.Session, evt *discordgo.MessageCreate) bool {
	if evt.Member == nil {
		return false
	}
	roles, err := guildRoles(s, evt.GuildID)
	if err != nil {
		w.log.Error().Err(err).Str("guild_id", evt.GuildID).Msg("Failed to fetch guild roles")
		return false
	}
	return memberHasRole(roles, evt.Member.Roles, w.syncRole)
}

func guildRoles(s *discordgo.Session, guildID string) ([]*discordgo.Role, error) {
	if guild, err := s.State.Guild(guildID); err == nil {
		return guild.Roles, nil
	}
	return s.GuildRoles(guildID)
}

// memberHasRole reports whether any of the member's role IDs maps to the
// named guild role. Role names are matched case-insensitively.
func memberHasRole(roles []*discordgo.Role, memberRoleIDs []string, name string) bool {
	for _, role := range roles {
		if !strings.EqualFold(role.Name, name) {
			continue
		}
		for _, roleID := range memberRoleIDs {
			if roleID == role.ID {
				return true
			}
		}
	}
	return false
}

// isSyncCommand reports whether a message invokes the prefixed sync command.
func isSyncCommand(content, prefix string) bool {
	fields := strings.Fields(content)
	return len(fields) > 0 && strings.EqualFold(fields[0], prefix+"sync")
}

// channelBridge converts a Discord channel to a bridge record, parsing the
// snowflake identifiers and defaulting an empty topic to the sentinel.
func channelBridge(ch *discordgo.Channel) (store.Bridge, error) {
	guildID, err := strconv.ParseInt(ch.GuildID, 10, 64)
	if err != nil {
		return store.Bridge{}, fmt.Errorf("parse guild id %q: %w", ch.GuildID, err)
	}
	channelID, err := strconv.ParseInt(ch.ID, 10, 64)
	if err != nil {
		return store.Bridge{}, fmt.Errorf("parse channel id %q: %w", ch.ID, err)
	}
	return store.Bridge{
		GuildID:      guildID,
		ChannelID:    channelID,
		ChannelName:  ch.Name,
		ChannelTopic: TopicOrDefault(ch.Topic),
	}, nil
}
