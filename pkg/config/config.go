// Package config loads the kortex service's configuration from file and
// environment, covering every key the Episode Queue, LLM Client, Embedding
// Client, and Graph Store driver need at process start.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the kortex service.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	GraphStore GraphStoreConfig `mapstructure:"graph_store"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Ontology   OntologyConfig   `mapstructure:"ontology"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig controls the structured logger (pkg/logger).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls the HTTP edge (pkg/server).
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// GraphStoreConfig selects and connects to the graph store driver
// (spec §4.1); Driver is "badger" (embedded, default) or "neo4j".
type GraphStoreConfig struct {
	Driver   string `mapstructure:"driver"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// VectorDim is the fixed embedding dimensionality the store indexes
	// against (spec §6's vector_dim key).
	VectorDim int `mapstructure:"vector_dim"`
}

// LLMConfig configures the LLM Client (spec §4.2) including its retry
// policy (spec §4.5).
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	RetryBaseMS     int `mapstructure:"retry_base_ms"`
	RetryCapMS      int `mapstructure:"retry_cap_ms"`
	RetryMaxAttempt int `mapstructure:"retry_max_attempts"`

	Semaphore int `mapstructure:"semaphore"`
}

// EmbeddingConfig configures the Embedding Client.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// QueueConfig configures the Episode Queue's concurrency model (spec §4.5,
// §5).
type QueueConfig struct {
	MaxInflightEpisodes int    `mapstructure:"max_inflight_episodes"`
	EpisodeSpacingMS    int    `mapstructure:"episode_spacing_ms"`
	DefaultGroupID      string `mapstructure:"default_group_id"`
}

// OntologyConfig names the ontology labels active for a deployment.
type OntologyConfig struct {
	Labels []string `mapstructure:"labels"`
}

// CircuitBreakerConfig configures the breaker layered under the LLM
// Client's retry policy.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	IntervalSeconds  int     `mapstructure:"interval_seconds"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load reads configuration from viper (file + env) applying the documented
// defaults first.
func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode: %w", err)
	}
	overrideWithEnv(cfg)
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("graph_store.driver", "badger")
	viper.SetDefault("graph_store.uri", "./kortex_data")
	viper.SetDefault("graph_store.vector_dim", 1536)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.max_tokens", 2048)
	viper.SetDefault("llm.retry_base_ms", 2000)
	viper.SetDefault("llm.retry_cap_ms", 120000)
	viper.SetDefault("llm.retry_max_attempts", 5)
	viper.SetDefault("llm.semaphore", 4)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")

	viper.SetDefault("queue.max_inflight_episodes", 10)
	viper.SetDefault("queue.episode_spacing_ms", 0)
	viper.SetDefault("queue.default_group_id", "default")

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval_seconds", 60)
	viper.SetDefault("circuit_breaker.timeout_seconds", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

func overrideWithEnv(cfg *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
		cfg.Embedding.APIKey = apiKey
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.GraphStore.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.GraphStore.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.GraphStore.Password = pass
	}
	if path := os.Getenv("KORTEX_DATA_DIR"); path != "" {
		cfg.GraphStore.URI = path
	}
}
