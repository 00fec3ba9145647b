package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultAddress = "ws://wiki-update-sockets.herokuapp.com/"

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Address          string        `mapstructure:"address"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	DecodeErrors     string        `mapstructure:"decode_errors"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	Feed             FeedConfig    `mapstructure:"feed"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-"`
}

// FeedConfig is read by the local feed server only.
type FeedConfig struct {
	Port   int    `mapstructure:"port"`
	Script string `mapstructure:"script"`
}

// Flags declares the command line surface shared by both binaries.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("address", "", "websocket address to connect to")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("decode-errors", "", "drop or report undecodable frames")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.Int("feed-port", 0, "feed server port")
	fs.String("feed-script", "", "YAML script replayed by the feed server")
	return fs
}

var flagKeys = map[string]string{
	"address":       "address",
	"log-level":     "log_level",
	"decode-errors": "decode_errors",
	"metrics-addr":  "metrics_addr",
	"feed-port":     "feed.port",
	"feed-script":   "feed.script",
}

// Load resolves configuration from defaults, an optional YAML file,
// WIKISTREAM_* environment variables and flags, in increasing priority.
// fs may be nil. A missing default config file is not an error; a missing
// file named with --config is.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("mode", "release")
	v.SetDefault("address", DefaultAddress)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("handshake_timeout", "0s")
	v.SetDefault("decode_errors", "drop")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("feed.port", 8090)
	v.SetDefault("feed.script", "")

	v.SetEnvPrefix("wikistream")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	fileName, explicit := configFile(fs)
	v.SetConfigFile(fileName)

	read := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		read = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if read {
		cfg.File = fileName
	}
	return &cfg, nil
}

func configFile(fs *pflag.FlagSet) (string, bool) {
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String(), true
		}
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("config/config.%s.yaml", env), false
}
