// Copyright 2026 UF Open Source Club

package mdsync

import (
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// mockEnqueuer captures enqueued events for assertions.
type mockEnqueuer struct {
	mu     sync.Mutex
	events []ChannelEvent
	closed bool
}

func (m *mockEnqueuer) Enqueue(evt ChannelEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.events = append(m.events, evt)
	return true
}

func (m *mockEnqueuer) Events() []ChannelEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ChannelEvent, len(m.events))
	copy(cp, m.events)
	return cp
}

func testWatcher(t *testing.T, queue eventEnqueuer) *DiscordWatcher {
	t.Helper()
	cfg := &Config{DiscordToken: "token", CommandPrefix: "~", SyncRole: "officer"}
	w, err := NewDiscordWatcher(cfg, queue, testLogger())
	if err != nil {
		t.Fatalf("NewDiscordWatcher: %v", err)
	}
	return w
}

func TestChannelBridge(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		channel   *discordgo.Channel
		wantGuild int64
		wantTopic string
		wantErr   bool
	}{
		{
			name:      "with topic",
			channel:   &discordgo.Channel{ID: "456", GuildID: "123", Name: "general", Topic: "Chat"},
			wantGuild: 123,
			wantTopic: "Chat",
		},
		{
			name:      "empty topic gets sentinel",
			channel:   &discordgo.Channel{ID: "456", GuildID: "123", Name: "general"},
			wantGuild: 123,
			wantTopic: DefaultTopic,
		},
		{
			name:    "malformed guild id",
			channel: &discordgo.Channel{ID: "456", GuildID: "not-a-snowflake", Name: "general"},
			wantErr: true,
		},
		{
			name:    "malformed channel id",
			channel: &discordgo.Channel{ID: "abc", GuildID: "123", Name: "general"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bridge, err := channelBridge(tt.channel)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("channelBridge: %v", err)
			}
			if bridge.GuildID != tt.wantGuild {
				t.Errorf("GuildID = %d, want %d", bridge.GuildID, tt.wantGuild)
			}
			if bridge.ChannelTopic != tt.wantTopic {
				t.Errorf("ChannelTopic = %q, want %q", bridge.ChannelTopic, tt.wantTopic)
			}
		})
	}
}

func TestEnqueueChannelSkipsNonTextChannels(t *testing.T) {
	t.Parallel()
	queue := &mockEnqueuer{}
	w := testWatcher(t, queue)

	w.enqueueChannel(EventNewChannel, &discordgo.Channel{
		ID: "456", GuildID: "123", Name: "voice", Type: discordgo.ChannelTypeGuildVoice,
	})
	if len(queue.Events()) != 0 {
		t.Error("voice channel enqueued")
	}

	w.enqueueChannel(EventNewChannel, &discordgo.Channel{
		ID: "456", GuildID: "123", Name: "general", Type: discordgo.ChannelTypeGuildText,
	})
	events := queue.Events()
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	if events[0].Type != EventNewChannel || events[0].Bridge.ChannelID != 456 {
		t.Errorf("event = %+v", events[0])
	}
}

func TestEnqueueChannelLifecycleTypes(t *testing.T) {
	t.Parallel()
	queue := &mockEnqueuer{}
	w := testWatcher(t, queue)
	ch := &discordgo.Channel{ID: "2", GuildID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText}

	w.enqueueChannel(EventNewChannel, ch)
	w.enqueueChannel(EventUpdateChannel, ch)
	w.enqueueChannel(EventDeletedChannel, ch)

	events := queue.Events()
	want := []EventType{EventNewChannel, EventUpdateChannel, EventDeletedChannel}
	if len(events) != len(want) {
		t.Fatalf("event count = %d, want %d", len(events), len(want))
	}
	for i, eventType := range want {
		if events[i].Type != eventType {
			t.Errorf("events[%d].Type = %v, want %v", i, events[i].Type, eventType)
		}
	}
}

func TestIsSyncCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		content string
		prefix  string
		want    bool
	}{
		{"~sync", "~", true},
		{"  ~sync  ", "~", true},
		{"~SYNC", "~", true},
		{"~sync now", "~", true},
		{"~synchronize", "~", false},
		{"sync", "~", false},
		{"!sync", "~", false},
		{"!sync", "!", true},
		{"", "~", false},
	}
	for _, tt := range tests {
		if got := isSyncCommand(tt.content, tt.prefix); got != tt.want {
			t.Errorf("isSyncCommand(%q, %q) = %v, want %v", tt.content, tt.prefix, got, tt.want)
		}
	}
}

func TestMemberHasRole(t *testing.T) {
	t.Parallel()
	roles := []*discordgo.Role{
		{ID: "100", Name: "officer"},
		{ID: "101", Name: "member"},
	}
	tests := []struct {
		name        string
		memberRoles []string
		roleName    string
		want        bool
	}{
		{"has role", []string{"100"}, "officer", true},
		{"case insensitive", []string{"100"}, "Officer", true},
		{"other role only", []string{"101"}, "officer", false},
		{"no roles", nil, "officer", false},
		{"unknown role name", []string{"100"}, "admin", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := memberHasRole(roles, tt.memberRoles, tt.roleName); got != tt.want {
				t.Errorf("memberHasRole = %v, want %v", got, tt.want)
			}
		})
	}
}
