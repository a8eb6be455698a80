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
	Content  ContentConfig  `toml:"content"`
	AI       AIConfig       `toml:"ai"`
	Database DatabaseConfig `toml:"database"`
	Queue    QueueConfig    `toml:"queue"`
}

// ContentConfig contains the content service endpoint and credentials.
type ContentConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
}

// AIConfig contains the OpenAI-compatible endpoint settings used for
// embeddings and icon arbitration.
type AIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	EmbeddingModel string `toml:"embedding_model"`
	ChatModel      string `toml:"chat_model"`
	BatchSize      int    `toml:"batch_size"`
}

// Configured reports whether the endpoint and key needed for icon mapping are present.
func (c AIConfig) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// QueueConfig contains job queue tuning knobs.
//
// Intervals and timeouts are expressed in seconds/milliseconds to keep the
// TOML surface simple.
type QueueConfig struct {
	TranscodePollSeconds   int `toml:"transcode_poll_seconds"`
	TranscodeTimeoutSecs   int `toml:"transcode_timeout_seconds"`
	ProbeTimeoutSeconds    int `toml:"probe_timeout_seconds"`
	ArbitrationThrottleMS  int `toml:"arbitration_throttle_ms"`
	CacheExpiryHours       int `toml:"cache_expiry_hours"`
	TopCandidates          int `toml:"top_candidates"`
}

// TranscodePoll returns the transcode polling interval as a [time.Duration].
func (q QueueConfig) TranscodePoll() time.Duration {
	return time.Duration(q.TranscodePollSeconds) * time.Second
}

// TranscodeTimeout returns the transcode wall-clock timeout as a [time.Duration].
func (q QueueConfig) TranscodeTimeout() time.Duration {
	return time.Duration(q.TranscodeTimeoutSecs) * time.Second
}

// ProbeTimeout returns the AI connectivity probe timeout as a [time.Duration].
func (q QueueConfig) ProbeTimeout() time.Duration {
	return time.Duration(q.ProbeTimeoutSeconds) * time.Second
}

// ArbitrationThrottle returns the delay between successive LLM calls.
func (q QueueConfig) ArbitrationThrottle() time.Duration {
	return time.Duration(q.ArbitrationThrottleMS) * time.Millisecond
}

// CacheExpiry returns the icon cache TTL.
func (q QueueConfig) CacheExpiry() time.Duration {
	return time.Duration(q.CacheExpiryHours) * time.Hour
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
