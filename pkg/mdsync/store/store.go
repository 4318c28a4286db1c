// Copyright 2026 UF Open Source Club

// Package store persists the bridge registry: one table of bridged Discord
// channels and one table of Matrix users subscribed to auto-invites. Each
// operation is a single implicit transaction; there is no cross-call state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ufosc/matrix-discord-sync/pkg/mdsync/store/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Bridge maps one Discord guild channel to its Matrix room. The composite
// (GuildID, ChannelID) pair is the primary key.
type Bridge struct {
	GuildID      int64
	ChannelID    int64
	ChannelName  string
	ChannelTopic string
}

// ErrBridgeExists is returned by AddBridge when a bridge with the same
// (guild_id, channel_id) pair is already registered.
var ErrBridgeExists = errors.New("bridge already exists")

// Store is a SQLite-backed registry.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the registry database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ListBridges returns all registered bridges in insertion order.
func (s *Store) ListBridges(ctx context.Context) ([]Bridge, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT guild_id, channel_id, channel_name, channel_topic
		 FROM bridges
		 ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list bridges: %w", err)
	}
	defer rows.Close()

	var bridges []Bridge
	for rows.Next() {
		var b Bridge
		if err := rows.Scan(&b.GuildID, &b.ChannelID, &b.ChannelName, &b.ChannelTopic); err != nil {
			return nil, fmt.Errorf("scan bridge: %w", err)
		}
		bridges = append(bridges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bridges: %w", err)
	}
	return bridges, nil
}

// AddBridge inserts one bridge record. A duplicate (guild_id, channel_id)
// pair is reported as ErrBridgeExists.
func (s *Store) AddBridge(ctx context.Context, bridge Bridge) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO bridges (guild_id, channel_id, channel_name, channel_topic)
		 VALUES (?, ?, ?, ?)`,
		bridge.GuildID,
		bridge.ChannelID,
		bridge.ChannelName,
		bridge.ChannelTopic,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add bridge %d/%d: %w", bridge.GuildID, bridge.ChannelID, ErrBridgeExists)
		}
		return fmt.Errorf("add bridge %d/%d: %w", bridge.GuildID, bridge.ChannelID, err)
	}
	return nil
}

// DeleteBridge removes the bridge for the given key. Deleting an absent
// bridge is a no-op so retries stay idempotent.
func (s *Store) DeleteBridge(ctx context.Context, guildID, channelID int64) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM bridges WHERE guild_id = ? AND channel_id = ?`,
		guildID, channelID,
	)
	if err != nil {
		return fmt.Errorf("delete bridge %d/%d: %w", guildID, channelID, err)
	}
	return nil
}

// ListSubscribers returns all auto-invite subscriber user IDs.
func (s *Store) ListSubscribers(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT user_id FROM invite_subscribers ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subscribers, nil
}

// AddSubscriber inserts a subscriber. Re-subscribing an existing user is a
// no-op, not an error, so re-issued subscribe commands succeed.
func (s *Store) AddSubscriber(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("subscriber user id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO invite_subscribers (user_id) VALUES (?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("add subscriber %s: %w", userID, err)
	}
	return nil
}

// DeleteSubscriber removes a subscriber. Absent user IDs are a no-op.
func (s *Store) DeleteSubscriber(ctx context.Context, userID string) error {
	_, err := s.sqlDB.ExecContext(ctx, `DELETE FROM invite_subscribers WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete subscriber %s: %w", userID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
