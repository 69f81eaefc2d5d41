// Package config loads settings for the inkboard commands from defaults, an
// optional YAML file and INKBOARD_ prefixed environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Relay    RelayConfig   `mapstructure:"relay"`
	Storage  StorageConfig `mapstructure:"storage"`
	Board    BoardConfig   `mapstructure:"board"`
	Undo     UndoConfig    `mapstructure:"undo"`
}

type RelayConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	// SendBuffer is the number of frames queued per peer before new ones are
	// dropped.
	SendBuffer     int     `mapstructure:"send_buffer"`
	ReadLimit      int64   `mapstructure:"read_limit"`
	AwarenessRate  float64 `mapstructure:"awareness_rate"`
	AwarenessBurst int     `mapstructure:"awareness_burst"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type BoardConfig struct {
	RelayURL          string        `mapstructure:"relay_url"`
	Room              string        `mapstructure:"room"`
	UserName          string        `mapstructure:"user_name"`
	UserColor         string        `mapstructure:"user_color"`
	AutoSaveInterval  time.Duration `mapstructure:"autosave_interval"`
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
}

type UndoConfig struct {
	MaxSteps      int           `mapstructure:"max_steps"`
	MergeInterval time.Duration `mapstructure:"merge_interval"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("relay.listen_address", "localhost:8080")
	v.SetDefault("relay.send_buffer", 256)
	v.SetDefault("relay.read_limit", 16<<20)
	v.SetDefault("relay.awareness_rate", 30.0)
	v.SetDefault("relay.awareness_burst", 10)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dsn", "data")

	v.SetDefault("board.relay_url", "ws://localhost:8080/ws")
	v.SetDefault("board.room", "default")
	v.SetDefault("board.user_name", "anonymous")
	v.SetDefault("board.user_color", "#1e88e5")
	v.SetDefault("board.autosave_interval", 30*time.Second)
	v.SetDefault("board.broadcast_interval", time.Second)

	v.SetDefault("undo.max_steps", 100)
	v.SetDefault("undo.merge_interval", 300*time.Millisecond)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
