// Package config loads tracker settings from a file and TRACKER_* env vars.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TRACKER"

// Config holds every setting the server and the client commands read.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Remote RemoteConfig `mapstructure:"remote"`
	Local  LocalConfig  `mapstructure:"local"`
	Sweep  SweepConfig  `mapstructure:"sweep"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	DBPath string `mapstructure:"db_path"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	Required bool          `mapstructure:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RemoteConfig points the client at a tracker server. An empty URL keeps the
// client in local mode.
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "./data/tracker.db")
	v.SetDefault("auth.secret", "change-me")
	v.SetDefault("auth.required", false)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", "10s")
	v.SetDefault("remote.retries", 0)
	v.SetDefault("local.path", "./data/local.db")
	v.SetDefault("sweep.interval", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)
}

// Load reads the config file at path, or tracker.yaml from the working
// directory and ~/.config/tracker when path is empty. A missing file is not
// an error; environment variables such as TRACKER_REMOTE_URL, and the same
// names in a .env file, override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tracker")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tracker")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := applyDotenv(v, ".env"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDotenv reads TRACKER_* entries from a .env file. They rank like real
// environment variables, which still win when both are set.
func applyDotenv(v *viper.Viper, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	for name, value := range vars {
		key, ok := strings.CutPrefix(name, envPrefix+"_")
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		v.Set(strings.ToLower(strings.Replace(key, "_", ".", 1)), value)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Sweep.Interval < time.Second {
		return fmt.Errorf("sweep.interval must be at least 1s, got %s", c.Sweep.Interval)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Remote.Retries < 0 {
		return fmt.Errorf("remote.retries must not be negative")
	}
	return nil
}
