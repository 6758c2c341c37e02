package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment key without a legacy name.
	EnvPrefix = "CODESTATS_BOX_"
	// EnvConfigFile names the YAML config file when no path is passed.
	EnvConfigFile = EnvPrefix + "CONFIG"
	// DefaultEnvFile is loaded when present and no other .env path is given.
	DefaultEnvFile = ".env"
)

// legacyEnv maps the unprefixed variable names used by existing
// scheduled workflows to config keys.
var legacyEnv = map[string]string{
	"CODE_STATS_USERNAME": "username",
	"STATS_TYPE":          "mode",
	"GIST_ID":             "gist_id",
	"GH_TOKEN":            "github_token",
	"GIST_FILENAME":       "gist_filename",
}

type loadOptions struct {
	file      string
	envFile   string
	overrides map[string]interface{}
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFile loads a YAML file. It takes precedence over CODESTATS_BOX_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.file = path
		}
	}
}

// WithEnvFile loads variables from a dotenv file; a missing file is an error.
// Without it, ./.env is loaded only if it exists.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.envFile = path
		}
	}
}

// WithOverride sets key last, above every other source.
func WithOverride(key string, value interface{}) LoadOption {
	return func(o *loadOptions) {
		o.overrides[key] = value
	}
}

// Load builds a Config by layering defaults, optional file, env vars and overrides.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{overrides: map[string]interface{}{}}
	for _, opt := range opts {
		opt(&o)
	}

	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	path := o.file
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// godotenv never overrides variables that are already set.
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, o.envFile, err)
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, DefaultEnvFile, err)
	}

	// Unprefixed names: CODE_STATS_USERNAME, GH_TOKEN, ...
	// Empty values count as unset.
	legacyProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		name, ok := legacyEnv[key]
		if !ok || value == "" {
			return "", nil
		}
		return name, value
	})
	if err := k.Load(legacyProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Prefixed names: CODESTATS_BOX_ROWS -> rows.
	prefixedProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if key == EnvConfigFile || value == "" {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
	})
	if err := k.Load(prefixedProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	for key, value := range o.overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("%w: override %s: %v", ErrLoadConfig, key, err)
		}
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	return &cfg, nil
}
