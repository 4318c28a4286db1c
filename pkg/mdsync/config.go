// Copyright 2026 UF Open Source Club

package mdsync

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the bot configuration.
type Config struct {
	DiscordToken string `yaml:"discord_token"`

	// Homeserver is the domain used to derive bridge room aliases. It must
	// match the domain the destination homeserver serves.
	Homeserver        string `yaml:"homeserver"`
	HomeserverURL     string `yaml:"homeserver_url"`
	MatrixUserID      string `yaml:"matrix_user_id"`
	MatrixAccessToken string `yaml:"matrix_access_token"`

	// IndexRoomID is the room that receives the rendered index message.
	IndexRoomID string `yaml:"index_room_id"`

	// EnableAutoInvite gates the subscriber invite step of the sync cycle.
	EnableAutoInvite bool `yaml:"enable_auto_invite"`

	CommandPrefix string `yaml:"command_prefix"`
	SyncRole      string `yaml:"sync_role"`
	// AdminUsers lists Matrix user IDs allowed to run !unbridge.
	AdminUsers []string `yaml:"admin_users"`

	DatabasePath string `yaml:"database_path"`

	// RequestTimeoutSeconds bounds each outbound Matrix call. The engine is
	// single-consumer, so a stuck call would otherwise stall every
	// subsequent event.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess applies defaults and validates required fields.
func (c *Config) PostProcess() error {
	if c.CommandPrefix == "" {
		c.CommandPrefix = "~"
	}
	if c.SyncRole == "" {
		c.SyncRole = "officer"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "mdsync.db"
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 30
	}
	if c.DiscordToken == "" {
		return fmt.Errorf("discord_token is required")
	}
	if c.Homeserver == "" {
		return fmt.Errorf("homeserver is required")
	}
	if c.HomeserverURL == "" {
		return fmt.Errorf("homeserver_url is required")
	}
	if c.MatrixUserID == "" {
		return fmt.Errorf("matrix_user_id is required")
	}
	if c.MatrixAccessToken == "" {
		return fmt.Errorf("matrix_access_token is required")
	}
	if c.IndexRoomID == "" {
		return fmt.Errorf("index_room_id is required")
	}
	return nil
}

// RequestTimeout returns the per-call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// IsAdmin reports whether the given Matrix user ID may run admin commands.
func (c *Config) IsAdmin(userID string) bool {
	for _, admin := range c.AdminUsers {
		if admin == userID {
			return true
		}
	}
	return false
}

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
