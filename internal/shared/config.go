package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Player      PlayerConfig      `toml:"player"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API application credentials.
//
// Per-user tokens are stored in the database, not here.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the shape expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	BaseURL string `toml:"base_url"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig contains settings for signed session tokens.
type SessionConfig struct {
	Secret string   `toml:"secret"`
	TTL    Duration `toml:"ttl"`
}

// CatalogConfig selects where song listings come from.
type CatalogConfig struct {
	Source      string `toml:"source"`
	SearchLimit int    `toml:"search_limit"`
}

// UpstreamConfig tunes calls to the Spotify Web API.
type UpstreamConfig struct {
	MaxAttempts   int      `toml:"max_attempts"`
	BaseDelay     Duration `toml:"base_delay"`
	RefreshBuffer Duration `toml:"refresh_buffer"`
}

// PlayerConfig contains playback engine settings.
type PlayerConfig struct {
	PreviewCommand string   `toml:"preview_command"`
	DeviceName     string   `toml:"device_name"`
	PollInterval   Duration `toml:"poll_interval"`
}

const (
	CatalogSpotify  = "spotify"
	CatalogDatabase = "database"
)

// Duration wraps [time.Duration] so it can be written as a string ("5m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, and MUSIVE_* environment variables override secrets.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogSpotify, CatalogDatabase:
	default:
		return fmt.Errorf("%w: catalog.source must be %q or %q, got %q", ErrInvalidConfig, CatalogSpotify, CatalogDatabase, c.Catalog.Source)
	}
	if c.Upstream.MaxAttempts < 1 {
		return fmt.Errorf("%w: upstream.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("%w: session.secret is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MUSIVE_SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("MUSIVE_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("MUSIVE_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("MUSIVE_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
}

// HasSpotify reports whether Spotify application credentials look configured.
func (c *Config) HasSpotify() bool {
	id := c.Credentials.Spotify.ClientID
	return id != "" && c.Credentials.Spotify.ClientSecret != "" && !strings.HasPrefix(id, "your_")
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
