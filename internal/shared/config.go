package shared

import (
	_ "embed"
	"fmt"
	"os"
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
	Dashboard   DashboardConfig   `toml:"dashboard"`
	Tasks       TasksConfig       `toml:"tasks"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	LastFM LastFMConfig `toml:"lastfm"`
}

// LastFMConfig contains Last.fm API credentials and client limits.
type LastFMConfig struct {
	APIKey            string  `toml:"api_key"`
	SharedSecret      string  `toml:"shared_secret"`
	BaseURL           string  `toml:"base_url"`
	AuthURL           string  `toml:"auth_url"`
	SessionKey        string  `toml:"session_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PageSize          int     `toml:"page_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// DashboardConfig contains the defaults and transition timings of the dashboard.
type DashboardConfig struct {
	DefaultTab        string `toml:"default_tab"`
	Theme             string `toml:"theme"`
	Period            string `toml:"period"`
	TopLimit          int    `toml:"top_limit"`
	CacheTTLMinutes   int    `toml:"cache_ttl_minutes"`
	FadeDelayMS       int    `toml:"fade_delay_ms"`
	RevealDelayMS     int    `toml:"reveal_delay_ms"`
	LoaderIntervalMS  int    `toml:"loader_interval_ms"`
	LoaderStart       int    `toml:"loader_start"`
	LoaderHideDelayMS int    `toml:"loader_hide_delay_ms"`
	LoaderFadeDelayMS int    `toml:"loader_fade_delay_ms"`
}

// TasksConfig contains aggregation settings.
type TasksConfig struct {
	Workers      int `toml:"workers"`
	RecentLimit  int `toml:"recent_limit"`
	HeatmapLimit int `toml:"heatmap_limit"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionTTL returns the idle lifetime of a dashboard session.
func (s ServerConfig) SessionTTL() time.Duration {
	return ms(s.SessionTTLMinutes*60*1000, 30*time.Minute)
}

func (d DashboardConfig) FadeDelay() time.Duration   { return ms(d.FadeDelayMS, 300*time.Millisecond) }
func (d DashboardConfig) RevealDelay() time.Duration { return ms(d.RevealDelayMS, 10*time.Millisecond) }
func (d DashboardConfig) LoaderInterval() time.Duration {
	return ms(d.LoaderIntervalMS, 150*time.Millisecond)
}
func (d DashboardConfig) LoaderHideDelay() time.Duration {
	return ms(d.LoaderHideDelayMS, 400*time.Millisecond)
}
func (d DashboardConfig) LoaderFadeDelay() time.Duration {
	return ms(d.LoaderFadeDelayMS, 300*time.Millisecond)
}
func (d DashboardConfig) CacheTTL() time.Duration {
	return ms(d.CacheTTLMinutes*60*1000, 15*time.Minute)
}

// ms converts a millisecond setting, using fallback for zero or negative values.
func ms(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
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
