// Package config loads server configuration: defaults set in code,
// overridden by an optional YAML file, then by environment variables,
// then by the CLI's broadcast-interval argument, which always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Roles    RolesConfig    `yaml:"roles"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	AuditLog AuditLogConfig `yaml:"audit_log"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr        string `yaml:"listen_addr"`
	BroadcastInterval int    `yaml:"broadcast_interval_ms"`
	SessionCapacity   int    `yaml:"session_capacity"`
	QueueCapacity     int    `yaml:"queue_capacity"`
}

type RolesConfig struct {
	Path string `yaml:"path"`
}

type SnapshotConfig struct {
	Path string `yaml:"path"`
}

type AuditLogConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// BroadcastIntervalDuration returns Server.BroadcastInterval as a time.Duration.
func (c Config) BroadcastIntervalDuration() time.Duration {
	return time.Duration(c.Server.BroadcastInterval) * time.Millisecond
}

// Load reads configuration from an optional YAML file and environment
// variables, then applies cliIntervalMS (the single positional startup
// argument, milliseconds) over the broadcast interval if it is > 0.
func Load(cliIntervalMS int) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			ListenAddr:        "0.0.0.0:7070",
			BroadcastInterval: 200,
			SessionCapacity:   100,
			QueueCapacity:     10000,
		},
		Roles:    RolesConfig{Path: "roles.txt"},
		Snapshot: SnapshotConfig{Path: "document.snapshot"},
		AuditLog: AuditLogConfig{Path: "audit.log"},
		Log:      LogConfig{Level: "info"},
	}

	if path := os.Getenv("COLLABMD_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if addr := os.Getenv("COLLABMD_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if intervalStr := os.Getenv("COLLABMD_BROADCAST_INTERVAL_MS"); intervalStr != "" {
		interval, err := strconv.Atoi(intervalStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COLLABMD_BROADCAST_INTERVAL_MS: %w", err)
		}
		cfg.Server.BroadcastInterval = interval
	}
	if capStr := os.Getenv("COLLABMD_SESSION_CAPACITY"); capStr != "" {
		capacity, err := strconv.Atoi(capStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COLLABMD_SESSION_CAPACITY: %w", err)
		}
		cfg.Server.SessionCapacity = capacity
	}
	if queueCapStr := os.Getenv("COLLABMD_QUEUE_CAPACITY"); queueCapStr != "" {
		queueCap, err := strconv.Atoi(queueCapStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COLLABMD_QUEUE_CAPACITY: %w", err)
		}
		cfg.Server.QueueCapacity = queueCap
	}
	if path := os.Getenv("COLLABMD_ROLES_PATH"); path != "" {
		cfg.Roles.Path = path
	}
	if path := os.Getenv("COLLABMD_SNAPSHOT_PATH"); path != "" {
		cfg.Snapshot.Path = path
	}
	if path := os.Getenv("COLLABMD_AUDIT_LOG_PATH"); path != "" {
		cfg.AuditLog.Path = path
	}
	if level := os.Getenv("COLLABMD_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if cliIntervalMS > 0 {
		cfg.Server.BroadcastInterval = cliIntervalMS
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
