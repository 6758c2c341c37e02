// Package config defines the tool configuration and how it is layered.
//
// Precedence (low -> high): defaults, YAML file, .env file, environment,
// explicit overrides (command-line flags and arguments).
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/naka-gawa/codestats-box/internal/gateway"
	"github.com/naka-gawa/codestats-box/internal/usecase"
)

// Config contains process configuration.
type Config struct {
	// Username is the Code::Stats user whose stats are shown.
	Username string `koanf:"username"`

	// Mode is the raw display mode; empty means domain.DefaultMode.
	Mode string `koanf:"mode"`

	// GistID and GitHubToken enable the gist update. Without both the run is a dry run.
	GistID      string `koanf:"gist_id"`
	GitHubToken string `koanf:"github_token"`

	// GistFilename pins the file to replace. Empty uses the gist's first file.
	GistFilename string `koanf:"gist_filename"`

	// Rows caps the number of language rows.
	Rows int `koanf:"rows"`

	// Width is the display width of every line.
	Width int `koanf:"width"`

	// Fill is the single glyph padding label and value.
	Fill string `koanf:"fill"`

	// TotalLabel labels the first row.
	TotalLabel string `koanf:"total_label"`

	// CodeStatsURL points at the Code::Stats instance.
	CodeStatsURL string `koanf:"codestats_url"`

	// MetricsFile, when set, receives run metrics in Prometheus text format.
	MetricsFile string `koanf:"metrics_file"`

	// Force writes the gist even if its content is unchanged.
	Force bool `koanf:"force"`

	// RateLimitSleep caps one secondary rate limit wait on GitHub.
	RateLimitSleep time.Duration `koanf:"rate_limit_sleep"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		Mode:           string(domain.DefaultMode),
		Rows:           usecase.DefaultMaxRows,
		Width:          usecase.DefaultWidth,
		Fill:           string(usecase.DefaultFill),
		TotalLabel:     usecase.DefaultTotalLabel,
		CodeStatsURL:   gateway.DefaultCodeStatsURL,
		RateLimitSleep: gateway.DefaultSingleSleepLimit,
	}
}

// Validate checks the configuration and returns the parsed mode.
func (c *Config) Validate() (domain.Mode, error) {
	if c.Username == "" {
		return "", fmt.Errorf("%w: Code::Stats username is required (CODE_STATS_USERNAME)", ErrInvalidConfig)
	}
	mode, err := domain.ParseMode(c.Mode)
	if err != nil {
		return "", err
	}
	if c.Rows < 0 {
		return "", fmt.Errorf("%w: rows must not be negative, got %d", ErrInvalidConfig, c.Rows)
	}
	if c.Width < usecase.MinWidth {
		return "", fmt.Errorf("%w: width must be at least %d, got %d", ErrInvalidConfig, usecase.MinWidth, c.Width)
	}
	if utf8.RuneCountInString(c.Fill) != 1 || usecase.StringWidth(c.Fill) != 1 {
		return "", fmt.Errorf("%w: fill must be a single one-column character, got %q", ErrInvalidConfig, c.Fill)
	}
	return mode, nil
}

// RequireGist fails unless both the gist id and the GitHub token are set,
// naming the variables that are missing.
func (c *Config) RequireGist() error {
	var missing []string
	if c.GistID == "" {
		missing = append(missing, "GIST_ID")
	}
	if c.GitHubToken == "" {
		missing = append(missing, "GH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// DryRun reports whether the gist update is disabled.
func (c *Config) DryRun() bool {
	return c.GistID == "" || c.GitHubToken == ""
}

// FormatConfig returns the formatter layout described by c.
func (c *Config) FormatConfig() usecase.FormatConfig {
	fill, _ := utf8.DecodeRuneInString(c.Fill)
	return usecase.FormatConfig{
		Width:      c.Width,
		MaxRows:    c.Rows,
		Fill:       fill,
		TotalLabel: c.TotalLabel,
	}
}
