// Package config loads the daemon's TOML configuration using
// github.com/BurntSushi/toml, covering the directories, default firmware
// compatibility, and throttling knobs the execution core needs at start-up
// (everything else — IPC socket paths, plugin sandboxing, supervisor
// policy — lives outside this module's scope).
package config

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/joeycumines/mctl/channel"
)

// Directories maps the virtual roots named in §6 (M20/M23/M30/M36/M38/M471)
// to physical paths on disk.
type Directories struct {
	GCodes  string `toml:"gcodes"`
	Macros  string `toml:"macros"`
	System  string `toml:"system"`
	Filters string `toml:"filaments"`
	Web     string `toml:"web"`
	Scans   string `toml:"scans"`
}

// RateLimit configures one ratelimit.Limiter window/count pair.
type RateLimit struct {
	Window string `toml:"window"`
	Count  int    `toml:"count"`
}

// Batch configures a batch.Batcher. FlushInterval is a duration string
// (e.g. "10ms"), parsed via FlushIntervalDuration since
// github.com/BurntSushi/toml has no built-in time.Duration support.
type Batch struct {
	MaxSize        int    `toml:"max_size"`
	FlushInterval  string `toml:"flush_interval"`
	MaxConcurrency int    `toml:"max_concurrency"`
}

// FlushIntervalDuration parses Batch.FlushInterval, returning 0 if unset.
func (b *Batch) FlushIntervalDuration() (time.Duration, error) {
	if b.FlushInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(b.FlushInterval)
}

// Config is the root of the daemon's configuration file.
type Config struct {
	Directories Directories `toml:"directories"`
	Compat      string      `toml:"compatibility"`
	RateLimits  []RateLimit `toml:"rate_limits"`
	Batch       Batch       `toml:"batch"`
}

// Compatibility parses Compat into a channel.Compatibility, defaulting to
// channel.Me if unset or unrecognised.
func (c *Config) Compatibility() channel.Compatibility {
	switch c.Compat {
	case "RepRapFirmware":
		return channel.RepRapFirmware
	case "Marlin":
		return channel.Marlin
	case "NanoDLP":
		return channel.NanoDLP
	case "Teacup":
		return channel.Teacup
	case "Sprinter":
		return channel.Sprinter
	case "Repetier":
		return channel.Repetier
	default:
		return channel.Me
	}
}

// Load decodes the TOML file at path into a Config.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// RateMap converts RateLimits into the map[time.Duration]int shape
// ratelimit.New expects.
func (c *Config) RateMap() (map[time.Duration]int, error) {
	out := make(map[time.Duration]int, len(c.RateLimits))
	for _, r := range c.RateLimits {
		d, err := time.ParseDuration(r.Window)
		if err != nil {
			return nil, err
		}
		out[d] = r.Count
	}
	return out, nil
}
