// If you are AI: This file defines the per-binary configuration structs for videotools.

// Package config loads each binary's optional YAML tuning file: strict
// decoding, explicit defaults, and a separate validation pass, the same
// three-step shape as the teacher's single-process config. Every binary
// also accepts CLI flags for its required, per-invocation settings (the
// channel name, the base directory, the bind address); the YAML file
// only carries knobs that are reasonable to leave at a default and share
// across invocations, following cmd/nonchalant/main.go's
// flag.String("config", ...) -> config.Load -> cfg.Validate() shape.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RecorderConfig tunes a recorder process, per original_source's
// documented --fast/--timeout/--cache-size/--tz/--name options.
type RecorderConfig struct {
	FastOnStart  bool   `yaml:"fast_on_start"`
	FastTimeoutS int    `yaml:"fast_timeout_s"` // 0 takes the default of 10
	CacheSize    int    `yaml:"cache_size"`
	TZOffsetH    int    `yaml:"tz_offset_hours"`
	NamePrefix   string `yaml:"name_prefix"`
	CommandAddr  string `yaml:"command_addr"` // "" disables the CommandBus endpoint
}

// setDefaults fills in RecorderConfig's zero-value fields.
func (c *RecorderConfig) setDefaults() {
	if c.FastTimeoutS == 0 {
		c.FastTimeoutS = 10
	}
	if c.CacheSize == 0 {
		c.CacheSize = 100
	}
	if c.NamePrefix == "" {
		c.NamePrefix = "img"
	}
}

// Validate checks RecorderConfig's ranges.
func (c *RecorderConfig) Validate() error {
	if c.FastTimeoutS < 0 {
		return fmt.Errorf("fast_timeout_s must be >= 0, got %d", c.FastTimeoutS)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be >= 0, got %d", c.CacheSize)
	}
	return nil
}

// WatcherConfig tunes a watcher (MotionCore) process.
type WatcherConfig struct {
	IntervalMs      int    `yaml:"interval_ms"`
	Scale           int    `yaml:"scale"`
	Squelch         int    `yaml:"squelch"`
	Threshold       int    `yaml:"threshold"`
	LogThreshold    int    `yaml:"log_threshold"`
	RepeatTimeoutMs int    `yaml:"repeat_timeout_ms"` // 0 disables the repeat keepalive
	Equalise        bool   `yaml:"equalise"`
	MaskPath        string `yaml:"mask_path"`
	CommandAddr     string `yaml:"command_addr"`
	TriggerAddr     string `yaml:"trigger_addr"` // recorder's CommandBus address, for "fast"
}

// setDefaults fills in WatcherConfig's zero-value fields. RepeatTimeoutMs
// is deliberately left at 0 (disabled) to match the original's default.
func (c *WatcherConfig) setDefaults() {
	if c.IntervalMs == 0 {
		c.IntervalMs = 250
	}
	if c.Scale == 0 {
		c.Scale = 1
	}
	if c.Squelch == 0 {
		c.Squelch = 10
	}
	if c.Threshold == 0 {
		c.Threshold = 50
	}
}

// Validate checks WatcherConfig's ranges.
func (c *WatcherConfig) Validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be >= 1, got %d", c.Scale)
	}
	if c.Squelch < 0 || c.Squelch > 255 {
		return fmt.Errorf("squelch must be between 0 and 255, got %d", c.Squelch)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %d", c.Threshold)
	}
	if c.RepeatTimeoutMs < 0 {
		return fmt.Errorf("repeat_timeout_ms must be >= 0, got %d", c.RepeatTimeoutMs)
	}
	return nil
}

// HTTPServerConfig tunes an httpserver process.
type HTTPServerConfig struct {
	StaticDir          string `yaml:"static_dir"`
	DefaultChannel     string `yaml:"default_channel"`
	GatewayAddr        string `yaml:"gateway_addr"`
	IdleTimeoutS       int    `yaml:"idle_timeout_s"`
	InitialDataTimeoutS int   `yaml:"initial_data_timeout_s"`
	RepeatTimeoutMs    int    `yaml:"repeat_timeout_ms"`
	JPEGQuality        int    `yaml:"jpeg_quality"`
}

// setDefaults fills in HTTPServerConfig's zero-value fields.
func (c *HTTPServerConfig) setDefaults() {
	if c.IdleTimeoutS == 0 {
		c.IdleTimeoutS = 60
	}
	if c.InitialDataTimeoutS == 0 {
		c.InitialDataTimeoutS = 5
	}
	if c.RepeatTimeoutMs == 0 {
		c.RepeatTimeoutMs = 15000
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 80
	}
}

// Validate checks HTTPServerConfig's ranges.
func (c *HTTPServerConfig) Validate() error {
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.IdleTimeoutS < 0 || c.InitialDataTimeoutS < 0 || c.RepeatTimeoutMs < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

// RTPServerConfig tunes an rtpserver (RtpDepacketiser) process.
type RTPServerConfig struct {
	MulticastGroup      string `yaml:"multicast_group"` // "" for unicast
	SourceStaleTimeoutS int    `yaml:"source_stale_timeout_s"`
	KeyFrameSanityLimit int    `yaml:"key_frame_sanity_limit"`
	JPEGFudgeFactor     int    `yaml:"jpeg_fudge_factor"` // 0, 1 or 2
	PacketType          int    `yaml:"packet_type"`       // 0 = accept any
}

// setDefaults fills in RTPServerConfig's zero-value fields.
func (c *RTPServerConfig) setDefaults() {
	if c.SourceStaleTimeoutS == 0 {
		c.SourceStaleTimeoutS = 10
	}
	if c.KeyFrameSanityLimit == 0 {
		c.KeyFrameSanityLimit = 100
	}
}

// Validate checks RTPServerConfig's ranges.
func (c *RTPServerConfig) Validate() error {
	if c.JPEGFudgeFactor < 0 || c.JPEGFudgeFactor > 2 {
		return fmt.Errorf("jpeg_fudge_factor must be 0, 1 or 2, got %d", c.JPEGFudgeFactor)
	}
	if c.SourceStaleTimeoutS <= 0 {
		return fmt.Errorf("source_stale_timeout_s must be >= 1, got %d", c.SourceStaleTimeoutS)
	}
	return nil
}

// loadYAML decodes path strictly into dst. A missing path is not an
// error: dst is left at its zero value and the caller's setDefaults
// fills it in, matching the original binaries' "every tuning knob has a
// sane built-in default" behaviour.
func loadYAML(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadRecorder loads and defaults a RecorderConfig from an optional YAML
// file.
func LoadRecorder(path string) (*RecorderConfig, error) {
	cfg := &RecorderConfig{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// LoadWatcher loads and defaults a WatcherConfig from an optional YAML
// file.
func LoadWatcher(path string) (*WatcherConfig, error) {
	cfg := &WatcherConfig{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// LoadHTTPServer loads and defaults an HTTPServerConfig from an optional
// YAML file.
func LoadHTTPServer(path string) (*HTTPServerConfig, error) {
	cfg := &HTTPServerConfig{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// LoadRTPServer loads and defaults an RTPServerConfig from an optional
// YAML file.
func LoadRTPServer(path string) (*RTPServerConfig, error) {
	cfg := &RTPServerConfig{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}
