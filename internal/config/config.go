// Package config loads ClientConfig from a YAML file, with pflag-driven
// command line overrides, the way cmd/direwolf/main.go layers CLI flags on
// top of direwolf.conf.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/doismellburning/samoyed/internal/snaperr"
)

// ClientConfig is the complete runtime configuration for the client.
type ClientConfig struct {
	// Host/Port are used when MDNS is false.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	MDNS bool   `yaml:"mdns"`

	ClientName string `yaml:"client_name"`
	InstanceID int    `yaml:"instance_id"`

	BufferCapacityChunks int `yaml:"buffer_capacity_chunks"`

	ClockSyncWindow int `yaml:"clock_sync_window"`

	AudioDevice string `yaml:"audio_device"`

	GPIOChip       string `yaml:"gpio_chip"`
	GPIOMuteLine   int    `yaml:"gpio_mute_line"`
	GPIOMuteInvert bool   `yaml:"gpio_mute_invert"`

	LogLevel string `yaml:"log_level"`

	// TimestampFormat is an optional strftime format prefixed onto periodic
	// buffer-occupancy stats lines, mirroring the teacher's -T option.
	TimestampFormat string `yaml:"timestamp_format"`

	// StatsIntervalSeconds is how often the stats line is logged; 0 disables it.
	StatsIntervalSeconds int `yaml:"stats_interval_seconds"`
}

// Default returns the baseline configuration before a file or flags are
// applied.
func Default() ClientConfig {
	return ClientConfig{
		Host:                 "",
		Port:                 1704,
		MDNS:                 true,
		ClientName:           "samoyed-snapclient",
		InstanceID:           1,
		BufferCapacityChunks: 50,
		ClockSyncWindow:      199,
		AudioDevice:          "",
		GPIOChip:             "",
		GPIOMuteLine:         -1,
		GPIOMuteInvert:       false,
		LogLevel:             "info",
		TimestampFormat:      "",
		StatsIntervalSeconds: 0,
	}
}

// LoadFile reads a YAML config file over the defaults. A missing path is not
// an error: the caller may be relying entirely on flags.
func LoadFile(path string) (ClientConfig, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return ClientConfig{}, snaperr.New(snaperr.ConfigRejected, "config:load_file", err) //nolint:exhaustruct
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClientConfig{}, snaperr.New(snaperr.ConfigRejected, "config:unmarshal", err) //nolint:exhaustruct
	}

	return cfg, nil
}

// Flags holds the pflag bindings used to override a loaded ClientConfig.
// Mirrors cmd/direwolf/main.go's pattern of one pflag.*P() call per override
// with *string/*int/*bool "changed" detection done by comparing against the
// zero value, rather than pflag.Changed tracking — Apply never touches a
// *pflag.FlagSet (only RegisterFlags does) so tests can call Apply without
// pflag.Parse() ever running.
type Flags struct {
	Host       *string
	Port       *int
	MDNS       *bool
	ClientName *string
	InstanceID *int
	LogLevel   *string
}

// RegisterFlags binds override flags onto fs and returns the bindings.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		Host:       fs.StringP("host", "H", "", "Snapcast server host (disables mDNS discovery)."),
		Port:       fs.IntP("port", "P", 0, "Snapcast server port."),
		MDNS:       fs.BoolP("mdns", "m", false, "Discover the server via mDNS."),
		ClientName: fs.StringP("client-name", "n", "", "Client display name reported in HELLO."),
		InstanceID: fs.IntP("instance", "i", 0, "Client instance id."),
		LogLevel:   fs.StringP("log-level", "l", "", "Log level: debug, info, warn, error."),
	}
}

// Apply layers any non-zero flag values from f onto cfg and returns the
// result.
func Apply(cfg ClientConfig, f *Flags) ClientConfig {
	if f == nil {
		return cfg
	}

	if f.Host != nil && *f.Host != "" {
		cfg.Host = *f.Host
		cfg.MDNS = false
	}

	if f.Port != nil && *f.Port != 0 {
		cfg.Port = *f.Port
	}

	if f.MDNS != nil && *f.MDNS {
		cfg.MDNS = true
	}

	if f.ClientName != nil && *f.ClientName != "" {
		cfg.ClientName = *f.ClientName
	}

	if f.InstanceID != nil && *f.InstanceID != 0 {
		cfg.InstanceID = *f.InstanceID
	}

	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.LogLevel = *f.LogLevel
	}

	return cfg
}

// Validate enforces spec.md's configuration invariants.
func Validate(cfg ClientConfig) error {
	if cfg.BufferCapacityChunks < 1 || cfg.BufferCapacityChunks > 1000 {
		return snaperr.New(snaperr.ConfigRejected, "config:validate:buffer_capacity_chunks", nil) //nolint:exhaustruct
	}

	if !cfg.MDNS {
		if cfg.Host == "" {
			return snaperr.New(snaperr.ConfigRejected, "config:validate:host_required", nil) //nolint:exhaustruct
		}

		if cfg.Port < 1 || cfg.Port > 65535 {
			return snaperr.New(snaperr.ConfigRejected, "config:validate:port", nil) //nolint:exhaustruct
		}
	}

	if cfg.ClockSyncWindow < 3 {
		return snaperr.New(snaperr.ConfigRejected, "config:validate:clock_sync_window", nil) //nolint:exhaustruct
	}

	return nil
}
