// Copyright 2026 UF Open Source Club

package mdsync

import (
	"fmt"

	"github.com/ufosc/matrix-discord-sync/pkg/mdsync/store"
	"maunium.net/go/mautrix/id"
)

// DefaultTopic is stored for channels without a topic.
const DefaultTopic = "No Topic"

// TopicOrDefault substitutes the sentinel topic for empty topics.
func TopicOrDefault(topic string) string {
	if topic == "" {
		return DefaultTopic
	}
	return topic
}

// RoomAlias derives the Matrix room alias for a bridged Discord channel,
// matching the naming scheme of the Discord appservice. The mapping is
// injective for unique (guildID, channelID) pairs.
func RoomAlias(guildID, channelID int64, homeserver string) id.RoomAlias {
	return id.RoomAlias(fmt.Sprintf("#_discord_%d_%d:%s", guildID, channelID, homeserver))
}

// BridgeAlias is RoomAlias applied to a bridge record.
func BridgeAlias(bridge store.Bridge, homeserver string) id.RoomAlias {
	return RoomAlias(bridge.GuildID, bridge.ChannelID, homeserver)
}

// EventType identifies a channel lifecycle event.
type EventType int

const (
	// EventNewChannel is emitted when a guild text channel is created.
	EventNewChannel EventType = iota + 1
	// EventUpdateChannel is emitted when a channel's attributes change.
	EventUpdateChannel
	// EventDeletedChannel is emitted when a channel is removed.
	EventDeletedChannel
	// EventManualSync is emitted by the ~sync command for the invoking channel.
	EventManualSync
)

// String returns the event type name for log output.
func (t EventType) String() string {
	switch t {
	case EventNewChannel:
		return "new_channel"
	case EventUpdateChannel:
		return "update_channel"
	case EventDeletedChannel:
		return "deleted_channel"
	case EventManualSync:
		return "manual_sync"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ChannelEvent is one message on the event queue: a lifecycle event type and
// the channel's attributes at event time. Events are consumed exactly once
// and never persisted.
type ChannelEvent struct {
	Type   EventType
	Bridge store.Bridge
}
