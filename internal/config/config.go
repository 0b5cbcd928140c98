// Package config loads the application configuration. Values are layered in
// increasing precedence: built-in defaults, a YAML config file, FUKUSHU_*
// environment variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all runtime settings.
type Config struct {
	Listen         string `koanf:"listen" validate:"required"`
	DBPath         string `koanf:"db" validate:"required"`
	ReposDir       string `koanf:"repos_dir" validate:"required"`
	Timezone       string `koanf:"timezone"`
	StagnationDays int    `koanf:"stagnation_days" validate:"gte=1"`
}

func defaults() map[string]any {
	return map[string]any{
		"listen":          ":8977",
		"db":              "fukushu.db",
		"repos_dir":       "repos",
		"timezone":        "",
		"stagnation_days": 30,
	}
}

// Load builds the configuration from the given file (optional) and flag set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("FUKUSHU_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FUKUSHU_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
