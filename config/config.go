// Copyright (c) 2026 by Koanworks.

// Package config loads runtime settings for a presence session from YAML,
// falling back to built-in defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Network controls the peer link and the signaling channel.
	Network Network `yaml:"network"`

	// Sim controls the reconciliation loop.
	Sim Sim `yaml:"sim"`

	// Avatar identifies the model used for remote peers.
	Avatar Avatar `yaml:"avatar"`

	// Discovery controls LAN peer announcement.
	Discovery Discovery `yaml:"discovery"`
}

type Network struct {
	SignalingURL   string        `yaml:"signaling_url"`
	Room           string        `yaml:"room"`
	STUNServers    []string      `yaml:"stun_servers"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type Sim struct {
	TickRate  int           `yaml:"tick_rate"`
	Smoothing float64       `yaml:"smoothing"`
	Crossfade time.Duration `yaml:"crossfade"`
}

type Avatar struct {
	ModelID string  `yaml:"model_id"`
	Scale   float64 `yaml:"scale"`
}

type Discovery struct {
	Enabled        bool          `yaml:"enabled"`
	Group          string        `yaml:"group"`
	AnnouncePeriod time.Duration `yaml:"announce_period"`
}

func Default() Config {
	return Config{
		Network: Network{
			SignalingURL: "ws://localhost:8080/ws",
			Room:         "lobby",
			STUNServers: []string{
				"stun:stun.l.google.com:19302",
				"stun:stun1.l.google.com:19302",
				"stun:stun2.l.google.com:19302",
				"stun:stun3.l.google.com:19302",
				"stun:stun4.l.google.com:19302",
			},
			ConnectTimeout: 10 * time.Second,
		},
		Sim: Sim{
			TickRate:  60,
			Smoothing: 0.1,
			Crossfade: 200 * time.Millisecond,
		},
		Avatar: Avatar{
			ModelID: "default-avatar",
			Scale:   1,
		},
		Discovery: Discovery{
			Enabled:        false,
			Group:          "239.255.73.42:45777",
			AnnouncePeriod: 2 * time.Second,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Network.Room) == "" {
		return fmt.Errorf("network.room must not be empty")
	}
	if c.Network.ConnectTimeout <= 0 {
		return fmt.Errorf("network.connect_timeout must be > 0")
	}
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tick_rate must be > 0")
	}
	if c.Sim.Smoothing <= 0 || c.Sim.Smoothing > 1 {
		return fmt.Errorf("sim.smoothing must be in (0, 1]")
	}
	if c.Sim.Crossfade < 0 {
		return fmt.Errorf("sim.crossfade must be >= 0")
	}
	if strings.TrimSpace(c.Avatar.ModelID) == "" {
		return fmt.Errorf("avatar.model_id must not be empty")
	}
	if c.Avatar.Scale <= 0 {
		return fmt.Errorf("avatar.scale must be > 0")
	}
	if c.Discovery.Enabled {
		if strings.TrimSpace(c.Discovery.Group) == "" {
			return fmt.Errorf("discovery.group must not be empty")
		}
		if c.Discovery.AnnouncePeriod <= 0 {
			return fmt.Errorf("discovery.announce_period must be > 0")
		}
	}
	return nil
}

// TickInterval converts the configured tick rate to a frame duration. A
// config that skipped Validate may carry a non-positive rate; the default
// rate is used then, so the result is always a usable ticker interval.
func (c Config) TickInterval() time.Duration {
	rate := c.Sim.TickRate
	if rate <= 0 {
		rate = Default().Sim.TickRate
	}
	return time.Second / time.Duration(rate)
}
