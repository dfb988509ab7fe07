// Package config loads Siren's settings from an optional YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justestif/siren/internal/auth"
	"github.com/justestif/siren/internal/mood"
	"github.com/justestif/siren/internal/playlist"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// Environment variables that override the file.
const (
	EnvClientID      = "SPOTIFY_ID"
	EnvClientSecret  = "SPOTIFY_SECRET"
	EnvRedirectURL   = "SPOTIFY_REDIRECT_URI"
	EnvAddr          = "SIREN_ADDR"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvFallbackURL   = "SIREN_FALLBACK_URL"
	EnvSearchTimeout = "SIREN_SEARCH_TIMEOUT"
	EnvLogLevel      = "SIREN_LOG_LEVEL"
)

// Config holds all runtime settings.
type Config struct {
	Addr        string              `yaml:"addr"`
	LogLevel    string              `yaml:"log_level"`    // debug, info, warn, error
	DatabaseURL string              `yaml:"database_url"` // empty keeps history in memory
	Spotify     SpotifyConfig       `yaml:"spotify"`
	Playlist    PlaylistConfig      `yaml:"playlist"`
	Moods       map[string][]string `yaml:"moods"` // per-phase overrides
}

// SpotifyConfig holds Spotify application credentials.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// PlaylistConfig tunes playlist resolution.
type PlaylistConfig struct {
	FallbackURL   string        `yaml:"fallback_url"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:     DefaultAddr,
		LogLevel: "info",
		Spotify: SpotifyConfig{
			RedirectURL: auth.DefaultRedirectURL,
		},
		Playlist: PlaylistConfig{
			FallbackURL:   playlist.DefaultFallbackURL,
			SearchTimeout: playlist.DefaultTimeout,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode strictly unmarshals YAML, rejecting unknown keys.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overwrites fields whose environment variable is set.
func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(EnvClientID, &c.Spotify.ClientID)
	setString(EnvClientSecret, &c.Spotify.ClientSecret)
	setString(EnvRedirectURL, &c.Spotify.RedirectURL)
	setString(EnvAddr, &c.Addr)
	setString(EnvDatabaseURL, &c.DatabaseURL)
	setString(EnvFallbackURL, &c.Playlist.FallbackURL)
	setString(EnvLogLevel, &c.LogLevel)

	if v := os.Getenv(EnvSearchTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvSearchTimeout, err)
		}
		c.Playlist.SearchTimeout = d
	}
	return nil
}

// Validate checks settings that do not depend on which command runs.
// Spotify credentials are checked by RequireSpotify.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	u, err := url.Parse(c.Playlist.FallbackURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("playlist.fallback_url %q is not an absolute URL", c.Playlist.FallbackURL)
	}
	if c.Playlist.SearchTimeout < 0 {
		return errors.New("playlist.search_timeout must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if _, err := mood.TableFrom(c.Moods); err != nil {
		return err
	}
	return nil
}

// RequireSpotify returns auth.ErrMissingCredentials unless both the client
// ID and secret are set.
func (c *Config) RequireSpotify() error {
	if err := c.Auth().Validate(); err != nil {
		return fmt.Errorf("%w: set %s and %s", err, EnvClientID, EnvClientSecret)
	}
	return nil
}

// Auth returns the Spotify credentials for the auth package.
func (c *Config) Auth() auth.Config {
	return auth.Config{
		ClientID:     c.Spotify.ClientID,
		ClientSecret: c.Spotify.ClientSecret,
		RedirectURL:  c.Spotify.RedirectURL,
	}
}

// PlaylistConfig returns the resolver settings.
func (c *Config) PlaylistConfig() playlist.Config {
	return playlist.Config{
		FallbackURL: c.Playlist.FallbackURL,
		Timeout:     c.Playlist.SearchTimeout,
	}
}

// MoodTable returns the default moods with configured overrides applied.
func (c *Config) MoodTable() (mood.Table, error) {
	return mood.TableFrom(c.Moods)
}
