// Copyright 2026 UF Open Source Club

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestAddListBridges(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	inputs := []Bridge{
		{GuildID: 1, ChannelID: 10, ChannelName: "general", ChannelTopic: "Chat"},
		{GuildID: 1, ChannelID: 11, ChannelName: "random", ChannelTopic: "No Topic"},
		{GuildID: 2, ChannelID: 10, ChannelName: "announcements", ChannelTopic: "News"},
	}
	for _, b := range inputs {
		if err := s.AddBridge(ctx, b); err != nil {
			t.Fatalf("add bridge %d/%d: %v", b.GuildID, b.ChannelID, err)
		}
	}

	got, err := s.ListBridges(ctx)
	if err != nil {
		t.Fatalf("list bridges: %v", err)
	}
	if len(got) != len(inputs) {
		t.Fatalf("bridge count = %d, want %d", len(got), len(inputs))
	}
	for i, b := range inputs {
		if got[i] != b {
			t.Errorf("bridge[%d] = %+v, want %+v", i, got[i], b)
		}
	}
}

func TestAddBridgeDuplicateKey(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	b := Bridge{GuildID: 5, ChannelID: 6, ChannelName: "dev", ChannelTopic: "No Topic"}
	if err := s.AddBridge(ctx, b); err != nil {
		t.Fatalf("first add: %v", err)
	}

	b.ChannelName = "dev-renamed"
	err := s.AddBridge(ctx, b)
	if !errors.Is(err, ErrBridgeExists) {
		t.Fatalf("duplicate add error = %v, want ErrBridgeExists", err)
	}

	// The original row must be untouched.
	got, err := s.ListBridges(ctx)
	if err != nil {
		t.Fatalf("list bridges: %v", err)
	}
	if len(got) != 1 || got[0].ChannelName != "dev" {
		t.Fatalf("bridges after duplicate add = %+v", got)
	}
}

func TestDeleteBridgeRestoresPriorState(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	before, err := s.ListBridges(ctx)
	if err != nil {
		t.Fatalf("list bridges: %v", err)
	}

	b := Bridge{GuildID: 7, ChannelID: 8, ChannelName: "temp", ChannelTopic: "No Topic"}
	if err := s.AddBridge(ctx, b); err != nil {
		t.Fatalf("add bridge: %v", err)
	}
	if err := s.DeleteBridge(ctx, b.GuildID, b.ChannelID); err != nil {
		t.Fatalf("delete bridge: %v", err)
	}

	after, err := s.ListBridges(ctx)
	if err != nil {
		t.Fatalf("list bridges: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("bridges after add+delete = %+v, want %+v", after, before)
	}
}

func TestDeleteBridgeAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	if err := s.DeleteBridge(context.Background(), 999, 999); err != nil {
		t.Fatalf("delete absent bridge: %v", err)
	}
}

func TestSubscriberLifecycle(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()

	if err := s.AddSubscriber(ctx, "@b:example.org"); err != nil {
		t.Fatalf("add subscriber: %v", err)
	}
	if err := s.AddSubscriber(ctx, "@a:example.org"); err != nil {
		t.Fatalf("add subscriber: %v", err)
	}
	// Re-subscribing must succeed without duplicating the row.
	if err := s.AddSubscriber(ctx, "@a:example.org"); err != nil {
		t.Fatalf("re-add subscriber: %v", err)
	}

	subs, err := s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	want := []string{"@a:example.org", "@b:example.org"}
	if len(subs) != len(want) {
		t.Fatalf("subscribers = %v, want %v", subs, want)
	}
	for i := range want {
		if subs[i] != want[i] {
			t.Errorf("subscribers[%d] = %q, want %q", i, subs[i], want[i])
		}
	}

	if err := s.DeleteSubscriber(ctx, "@b:example.org"); err != nil {
		t.Fatalf("delete subscriber: %v", err)
	}
	// Deleting an absent subscriber is idempotent.
	if err := s.DeleteSubscriber(ctx, "@b:example.org"); err != nil {
		t.Fatalf("delete absent subscriber: %v", err)
	}

	subs, err = s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0] != "@a:example.org" {
		t.Fatalf("subscribers = %v, want [@a:example.org]", subs)
	}
}

func TestAddSubscriberRequiresUserID(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	if err := s.AddSubscriber(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank user id")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	b := Bridge{GuildID: 1, ChannelID: 2, ChannelName: "general", ChannelTopic: "No Topic"}
	if err := s.AddBridge(ctx, b); err != nil {
		t.Fatalf("add bridge: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.ListBridges(ctx)
	if err != nil {
		t.Fatalf("list bridges: %v", err)
	}
	if len(got) != 1 || got[0] != b {
		t.Fatalf("bridges after reopen = %+v, want [%+v]", got, b)
	}
}
