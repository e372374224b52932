// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the application configuration. Durations are seconds
// in the file and converted at the call sites.
type Config struct {
	Version string

	ListenAddr    string `toml:"listen_addr" mapstructure:"listen_addr"`
	LogLevel      string `toml:"log_level" mapstructure:"log_level"`
	LogPath       string `toml:"log_path" mapstructure:"log_path"`
	LogMaxSize    int    `toml:"log_max_size" mapstructure:"log_max_size"`
	LogMaxBackups int    `toml:"log_max_backups" mapstructure:"log_max_backups"`

	// Upstream origin and fetch behavior.
	URL            string `toml:"url" mapstructure:"url"`
	UserAgent      string `toml:"user_agent" mapstructure:"user_agent"`
	UpdateInterval int    `toml:"update_interval" mapstructure:"update_interval"`
	WindowRequests int    `toml:"window_requests" mapstructure:"window_requests"`
	WindowSeconds  int    `toml:"window_size" mapstructure:"window_size"`
	ConnectTimeout int    `toml:"connect_timeout" mapstructure:"connect_timeout"`
	Timeout        int    `toml:"timeout" mapstructure:"timeout"`
	MaxRetries     int    `toml:"max_retries" mapstructure:"max_retries"`

	// LocalAddress and Interface are mutually exclusive outbound bindings;
	// the address wins when both are set.
	LocalAddress string `toml:"local_address" mapstructure:"local_address"`
	Interface    string `toml:"interface" mapstructure:"interface"`

	CacheDir    string `toml:"cache_dir" mapstructure:"cache_dir"`
	CacheSize   int64  `toml:"cache_size" mapstructure:"cache_size"`
	ListTTL     int    `toml:"list_ttl" mapstructure:"list_ttl"`
	ViewTTL     int    `toml:"view_ttl" mapstructure:"view_ttl"`
	DownloadTTL int    `toml:"download_ttl" mapstructure:"download_ttl"`

	DatabasePath string `toml:"database_path" mapstructure:"database_path"`

	CORSAllowEveryone bool `toml:"cors_allow_everyone" mapstructure:"cors_allow_everyone"`
	MetricsEnabled    bool `toml:"metrics_enabled" mapstructure:"metrics_enabled"`

	Mirrors []MirrorConfig `toml:"mirrors" mapstructure:"mirrors"`
}

// MirrorConfig is one named upstream of the mirror façade. Zero-valued
// fetch settings inherit the top-level values.
type MirrorConfig struct {
	ID     string `toml:"id" mapstructure:"id"`
	Name   string `toml:"name" mapstructure:"name"`
	URL    string `toml:"url" mapstructure:"url"`
	Hidden bool   `toml:"hidden" mapstructure:"hidden"`
	Type   string `toml:"type" mapstructure:"type"`

	WindowRequests int    `toml:"window_requests" mapstructure:"window_requests"`
	WindowSeconds  int    `toml:"window_size" mapstructure:"window_size"`
	CacheDir       string `toml:"cache_dir" mapstructure:"cache_dir"`
	CacheSize      int64  `toml:"cache_size" mapstructure:"cache_size"`
}

// MinInterval is the average spacing the rate window allows between
// requests, floored at one second. The retry wrapper waits this plus one
// second between attempts.
func (c *Config) MinInterval() time.Duration {
	return minInterval(c.WindowRequests, c.WindowSeconds)
}

// MinInterval is the per-mirror equivalent of Config.MinInterval. The
// caller resolves inherited window settings first.
func (m *MirrorConfig) MinInterval() time.Duration {
	return minInterval(m.WindowRequests, m.WindowSeconds)
}

func minInterval(requests, windowSeconds int) time.Duration {
	if requests <= 0 || windowSeconds <= 0 {
		return time.Second
	}
	interval := time.Duration(windowSeconds) * time.Second / time.Duration(requests)
	if interval < time.Second {
		return time.Second
	}
	return interval
}

// Validate checks the settings the fetch pipeline cannot default its way
// around.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.WindowRequests <= 0 {
		return errors.New("window_requests must be positive")
	}
	if c.WindowSeconds <= 0 {
		return errors.New("window_size must be positive")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache_size must be positive")
	}
	seen := make(map[string]struct{}, len(c.Mirrors))
	for _, m := range c.Mirrors {
		if m.ID == "" || m.URL == "" {
			return fmt.Errorf("mirror %q needs both id and url", m.ID)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("duplicate mirror id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
