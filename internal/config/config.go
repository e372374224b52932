// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the TOML configuration file, layering defaults,
// file values and NYAPROXY__ environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/autobrr/nyaproxy/internal/domain"
)

// Trailing underscore so env vars read NYAPROXY__URL, NYAPROXY__CACHE_DIR.
const envPrefix = "NYAPROXY_"

type AppConfig struct {
	Config *domain.Config

	viper *viper.Viper
}

// New loads the configuration. configPath may be a file, a directory
// containing config.toml, or empty for defaults plus environment.
func New(configPath, version string) (*AppConfig, error) {
	c := &AppConfig{
		Config: &domain.Config{Version: version},
		viper:  viper.New(),
	}

	c.defaults()

	c.viper.SetEnvPrefix(envPrefix)
	c.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	c.viper.AutomaticEnv()

	if configPath != "" {
		if err := c.readFile(configPath); err != nil {
			return nil, err
		}
	}

	// Environment values arrive as strings; weak typing lets them decode
	// into the numeric and boolean fields.
	weaklyTyped := func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}
	if err := c.viper.Unmarshal(c.Config, weaklyTyped); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *AppConfig) defaults() {
	v := c.viper

	v.SetDefault("listen_addr", "127.0.0.1:7700")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_path", "")
	v.SetDefault("log_max_size", 50)
	v.SetDefault("log_max_backups", 3)

	v.SetDefault("url", "https://nyaa.si")
	v.SetDefault("user_agent", "nyaproxy")
	v.SetDefault("update_interval", 600)
	v.SetDefault("window_requests", 30)
	v.SetDefault("window_size", 60)
	v.SetDefault("connect_timeout", 10)
	v.SetDefault("timeout", 30)
	v.SetDefault("max_retries", 2)

	v.SetDefault("cache_dir", "cache")
	v.SetDefault("cache_size", int64(100*1024*1024))
	v.SetDefault("list_ttl", 60)
	v.SetDefault("view_ttl", 600)
	v.SetDefault("download_ttl", 600)

	v.SetDefault("database_path", "nyaproxy.db")

	v.SetDefault("cors_allow_everyone", false)
	v.SetDefault("metrics_enabled", true)
}

func (c *AppConfig) readFile(configPath string) error {
	info, err := os.Stat(configPath)
	if err != nil {
		return fmt.Errorf("config path: %w", err)
	}
	if info.IsDir() {
		configPath = filepath.Join(configPath, "config.toml")
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}

	c.viper.SetConfigFile(configPath)
	c.viper.SetConfigType("toml")
	if err := c.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}
