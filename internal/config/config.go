// Package config loads application configuration from, in order of increasing
// precedence: an optional YAML file, MEMORIA_* environment variables, and
// command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "MEMORIA_"

// Config is the application configuration.
type Config struct {
	// DB is the path to the sqlite database file.
	DB string `koanf:"db" validate:"required"`
	// Listen is the address the web UI binds to.
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	// Repos is the directory git sources are checked out into.
	Repos string `koanf:"repos" validate:"required"`
	// Debounce is the quiet period for coalescing editor autosaves.
	Debounce time.Duration `koanf:"debounce" validate:"gte=0"`
}

// Flags returns the flag set Load consumes, with defaults applied.
func Flags(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ExitOnError)
	f.String("config", "", "Path to an optional YAML config file")
	f.String("db", "memoria.db", "Path to the sqlite database file")
	f.String("listen", "127.0.0.1:8484", "Address for the web UI")
	f.String("repos", "repos", "Directory for git source checkouts")
	f.Duration("debounce", 1200*time.Millisecond, "Autosave debounce quiet period")
	return f
}

// Load merges file, environment and flag configuration and validates the
// result.
func Load(f *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env config: %w", err)
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flag config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for main: it prints the error and exits non-zero.
func MustLoad(f *pflag.FlagSet) Config {
	cfg, err := Load(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
