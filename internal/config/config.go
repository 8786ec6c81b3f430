// Package config defines the persisted host configuration and its loader.
package config

import (
	"fmt"
	"net"
	"strconv"
)

// Config represents the complete desktop shell configuration
type Config struct {
	// Server launch settings
	ServeOnLocalNetwork bool `json:"serve_on_local_network" mapstructure:"serve-on-local-network"`
	Port                *int `json:"port,omitempty" mapstructure:"port"`
	AutoUpdate          bool `json:"auto_update" mapstructure:"auto-update"`
	StartOnLaunch       bool `json:"start_on_launch" mapstructure:"start-on-launch"`

	// Shell settings
	DataDir       string `json:"data_dir,omitempty" mapstructure:"data-dir"`
	Listen        string `json:"listen" mapstructure:"listen"`                 // control bridge TCP address
	GatewayListen string `json:"gateway_listen" mapstructure:"gateway-listen"` // UI gateway address
	EnableTray    bool   `json:"enable_tray" mapstructure:"tray"`
	Notifications bool   `json:"notifications" mapstructure:"notifications"` // desktop notifications

	// Managed Python environment
	PackageName   string   `json:"package_name" mapstructure:"package-name"`
	PackagePin    string   `json:"package_pin,omitempty" mapstructure:"package-pin"` // exact version to install, empty = latest
	UVPath        string   `json:"uv_path,omitempty" mapstructure:"uv-path"`
	ServerCommand []string `json:"server_command,omitempty" mapstructure:"server-command"` // overrides the launch argv entirely

	// Supervision bounds
	StopGraceSeconds int          `json:"stop_grace_seconds" mapstructure:"stop-grace-seconds"`
	Probe            *ProbeConfig `json:"probe,omitempty" mapstructure:"probe"`

	Logging *LogConfig     `json:"logging,omitempty" mapstructure:"logging"`
	Tracing *TracingConfig `json:"tracing,omitempty" mapstructure:"tracing"`
}

// ProbeConfig bounds the reachability prober
type ProbeConfig struct {
	IntervalSeconds    int `json:"interval_seconds" mapstructure:"interval-seconds"`         // seconds between attempts
	MaxDurationSeconds int `json:"max_duration_seconds" mapstructure:"max-duration-seconds"` // total probing bound
	AttemptTimeoutSecs int `json:"attempt_timeout_seconds" mapstructure:"attempt-timeout-seconds"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`         // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"`   // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`           // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// TracingConfig enables span export for control operations
type TracingConfig struct {
	Enabled      bool    `json:"enabled" mapstructure:"enabled"`
	OTLPEndpoint string  `json:"otlp_endpoint,omitempty" mapstructure:"otlp-endpoint"`
	SampleRate   float64 `json:"sample_rate" mapstructure:"sample-rate"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ServeOnLocalNetwork: false,
		Port:                nil, // OS-assigned free port
		AutoUpdate:          true,
		StartOnLaunch:       true,

		DataDir:       "", // Will be set to ~/.open-webui-desktop by loader
		Listen:        "127.0.0.1:8790",
		GatewayListen: "127.0.0.1:8791",
		EnableTray:    true,
		Notifications: true,

		PackageName: "open-webui",

		StopGraceSeconds: 10,
		Probe: &ProbeConfig{
			IntervalSeconds:    1,
			MaxDurationSeconds: 120,
			AttemptTimeoutSecs: 2,
		},

		Logging: &LogConfig{
			Level:         "info",
			EnableFile:    true,
			EnableConsole: true,
			Filename:      "main.log",
			MaxSize:       10, // 10MB
			MaxBackups:    5,  // 5 backup files
			MaxAge:        30, // 30 days
			Compress:      true,
			JSONFormat:    false, // Use console format for readability
		},

		Tracing: &TracingConfig{
			Enabled:    false,
			SampleRate: 0.1,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.GatewayListen != "" {
		if _, _, err := net.SplitHostPort(c.GatewayListen); err != nil {
			return fmt.Errorf("invalid gateway listen address %q: %w", c.GatewayListen, err)
		}
	}
	if c.Port != nil && (*c.Port < 1 || *c.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", *c.Port)
	}
	if c.PackageName == "" && len(c.ServerCommand) == 0 {
		return fmt.Errorf("package name cannot be empty without a server command override")
	}
	if c.StopGraceSeconds <= 0 {
		return fmt.Errorf("stop grace must be positive, got %d", c.StopGraceSeconds)
	}
	if c.Probe != nil {
		if c.Probe.IntervalSeconds <= 0 {
			return fmt.Errorf("probe interval must be positive, got %d", c.Probe.IntervalSeconds)
		}
		if c.Probe.MaxDurationSeconds <= 0 {
			return fmt.Errorf("probe max duration must be positive, got %d", c.Probe.MaxDurationSeconds)
		}
	}
	if c.Logging != nil {
		switch c.Logging.Level {
		case "trace", "debug", "info", "warn", "error", "fatal", "":
		default:
			return fmt.Errorf("invalid log level %q", c.Logging.Level)
		}
	}
	return nil
}

// PortString returns the preferred port as a string, or "" when unset
func (c *Config) PortString() string {
	if c.Port == nil {
		return ""
	}
	return strconv.Itoa(*c.Port)
}

// Clone returns a deep copy so callers can mutate without racing the owner
func (c *Config) Clone() *Config {
	clone := *c
	if c.Port != nil {
		p := *c.Port
		clone.Port = &p
	}
	if c.ServerCommand != nil {
		clone.ServerCommand = append([]string(nil), c.ServerCommand...)
	}
	if c.Probe != nil {
		probe := *c.Probe
		clone.Probe = &probe
	}
	if c.Logging != nil {
		logging := *c.Logging
		clone.Logging = &logging
	}
	if c.Tracing != nil {
		tracing := *c.Tracing
		clone.Tracing = &tracing
	}
	return &clone
}
