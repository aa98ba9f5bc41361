// Package config loads and validates the daemon's configuration:
// cache/flush timeouts, the RRD file-creation defaults passed through
// to the creation collaborator, and the ambient backpressure/audit/
// poller sections this daemon adds on top of the core cache contract.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete daemon configuration.
type Config struct {
	// DataDir is the root directory prepended to every RRD filename.
	// Trailing slashes are stripped by Load/DefaultConfig, matching
	// the write path's own filename construction rule.
	DataDir string `yaml:"data_dir"`

	// Cache configures the accumulator cache's timeouts.
	Cache CacheConfig `yaml:"cache"`

	// Create configures the parameters passed through verbatim to the
	// file-creation collaborator the first time a filename is seen.
	Create CreateConfig `yaml:"create"`

	// Backpressure configures dispatch-queue-depth classification.
	Backpressure BackpressureConfig `yaml:"backpressure"`

	// Audit configures the durable audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Poller configures the optional reference SNMP poller.
	Poller PollerConfig `yaml:"poller"`

	// ControlSocket is the path of the local UNIX domain socket
	// cmd/rrdcachectl connects to for flush/list commands. Empty
	// disables the control listener entirely.
	ControlSocket string `yaml:"control_socket"`
}

// CacheConfig mirrors the CacheTimeout/CacheFlush config keys.
type CacheConfig struct {
	// TimeoutSec is the maximum age in seconds a sample may sit in the
	// cache before its file is enqueued. Values below 2 disable all
	// time-based queueing.
	TimeoutSec int64 `yaml:"timeout_sec"`

	// FlushTimeoutSec is the period of the in-line sweep. Values
	// smaller than TimeoutSec are replaced with 10x TimeoutSec.
	FlushTimeoutSec int64 `yaml:"flush_timeout_sec"`
}

// CreateConfig mirrors StepSize/HeartBeat/RRARows/RRATimespan/XFF,
// passed through untouched to the file-creation collaborator.
type CreateConfig struct {
	StepSize    int     `yaml:"step_size"`
	HeartBeat   int     `yaml:"heartbeat"`
	RRARows     int     `yaml:"rra_rows"`
	RRATimespan []int   `yaml:"rra_timespans"`
	XFF         float64 `yaml:"xff"`
}

// BackpressureConfig configures the dispatch-queue-depth controller.
type BackpressureConfig struct {
	Enabled    bool                   `yaml:"enabled"`
	Thresholds BackpressureThresholds `yaml:"thresholds"`
	Recovery   BackpressureRecovery   `yaml:"recovery"`
}

// BackpressureThresholds are dispatch queue depths, not ratios.
type BackpressureThresholds struct {
	Warning   int `yaml:"warning"`
	Critical  int `yaml:"critical"`
	Emergency int `yaml:"emergency"`
}

// BackpressureRecovery configures hysteresis and check cadence.
type BackpressureRecovery struct {
	Hysteresis int           `yaml:"hysteresis"`
	Cooldown   time.Duration `yaml:"cooldown"`
}

// AuditConfig configures the durable, queryable audit trail.
type AuditConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Dir           string        `yaml:"dir"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	RingCapacity  int           `yaml:"ring_capacity"`
}

// PollerConfig configures the optional reference SNMP poller.
type PollerConfig struct {
	Enabled bool           `yaml:"enabled"`
	Targets []PollerTarget `yaml:"targets"`
}

// PollerTarget names one SNMP OID to poll into a named RRD series.
type PollerTarget struct {
	Host           string `yaml:"host"`
	Community      string `yaml:"community"`
	OID            string `yaml:"oid"`
	Plugin         string `yaml:"plugin"`
	PluginInstance string `yaml:"plugin_instance"`
	Type           string `yaml:"type"`
	TypeInstance   string `yaml:"type_instance"`
	IntervalSec    int    `yaml:"interval_sec"`
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.DataDir = strings.TrimRight(cfg.DataDir, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "/var/lib/rrdcached",
		Cache: CacheConfig{
			TimeoutSec:      120,
			FlushTimeoutSec: 0, // auto-derived to 10x TimeoutSec
		},
		Create: CreateConfig{
			StepSize:    10,
			HeartBeat:   20,
			RRARows:     1200,
			RRATimespan: []int{3600, 86400, 604800, 2678400, 31622400},
			XFF:         0.1,
		},
		Backpressure: BackpressureConfig{
			Enabled: true,
			Thresholds: BackpressureThresholds{
				Warning:   25,
				Critical:  100,
				Emergency: 500,
			},
			Recovery: BackpressureRecovery{
				Hysteresis: 5,
				Cooldown:   time.Second,
			},
		},
		Audit: AuditConfig{
			Enabled:       true,
			FlushInterval: time.Minute,
			RingCapacity:  4096,
		},
		Poller: PollerConfig{
			Enabled: false,
		},
		ControlSocket: "/var/run/rrdcached.sock",
	}
}

// AuditDir returns the directory audit Parquet files are written to.
func (c *Config) AuditDir() string {
	if c.Audit.Dir != "" {
		return c.Audit.Dir
	}
	return c.DataDir + "/audit"
}
