// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.ragline/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - OpenAI: embedding model, chat model, temperature
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: collection name, similarity metric, top-k
//   - LINE: channel credentials for the messaging webhook
//
// Security: secrets (API keys, channel tokens, passwords) are only bound from
// the environment and never logged.
//
// Error handling uses sentinel errors for errors.Is() checks, wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingChannelSecret indicates the LINE channel secret is not set.
	ErrMissingChannelSecret = errors.New("missing LINE channel secret")

	// ErrMissingChannelToken indicates the LINE channel access token is not set.
	ErrMissingChannelToken = errors.New("missing LINE channel access token")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedModel indicates the embedding model is invalid.
	ErrInvalidEmbedModel = errors.New("invalid embedding model")

	// ErrInvalidDimension indicates the embedding dimension is invalid.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidCollection indicates the collection name is invalid.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidMetric indicates the similarity metric is not supported.
	ErrInvalidMetric = errors.New("invalid similarity metric")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Embedding model identifiers and their output dimensions.
// text-embedding-3-large produces 3072-dimensional vectors,
// text-embedding-3-small produces 1536-dimensional vectors.
const (
	EmbedModelLarge = "text-embedding-3-large"
	EmbedModelSmall = "text-embedding-3-small"

	DimensionLarge = 3072
	DimensionSmall = 1536
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 4

// Config stores application configuration.
// Secrets (OpenAIAPIKey, LineChannelToken, LineChannelSecret, PostgresPassword)
// are bound only from the environment.
type Config struct {
	// OpenAI configuration
	OpenAIAPIKey string  `mapstructure:"openai_api_key"`
	EmbedModel   string  `mapstructure:"embed_model"`
	ChatModel    string  `mapstructure:"chat_model"`
	Temperature  float64 `mapstructure:"temperature"`
	SystemPrompt string  `mapstructure:"system_prompt"`

	// Retrieval configuration
	Collection string `mapstructure:"collection"`
	Metric     string `mapstructure:"metric"`    // "l2" or "ip"
	Dimension  int    `mapstructure:"dimension"` // 0 = derive from embed_model
	TopK       int    `mapstructure:"top_k"`
	SeedFile   string `mapstructure:"seed_file"` // optional, one text per line

	// LINE Messaging API configuration
	LineChannelToken  string `mapstructure:"line_channel_token"`
	LineChannelSecret string `mapstructure:"line_channel_secret"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Server configuration
	ListenAddr string `mapstructure:"listen_addr"`
	TrustProxy bool   `mapstructure:"trust_proxy"`
	RateBurst  int    `mapstructure:"rate_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".ragline")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has the highest priority for PostgreSQL settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if cfg.Dimension == 0 {
		cfg.Dimension = DimensionForModel(cfg.EmbedModel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// DimensionForModel returns the embedding dimension for a known OpenAI
// embedding model. Unknown models default to the small-model dimension.
func DimensionForModel(model string) int {
	if model == EmbedModelLarge {
		return DimensionLarge
	}
	return DimensionSmall
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// OpenAI defaults
	v.SetDefault("embed_model", EmbedModelLarge)
	v.SetDefault("chat_model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("system_prompt",
		"You are a staff member of T.T. Software Solution Co., Ltd. "+
			"Answer questions about the company using the reference material when it is relevant.")

	// Retrieval defaults
	v.SetDefault("collection", "text_embeddings")
	v.SetDefault("metric", "l2")
	v.SetDefault("top_k", DefaultTopK)

	// PostgreSQL defaults for local development
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "ragline")
	v.SetDefault("postgres_password", "ragline_dev_password")
	v.SetDefault("postgres_db_name", "ragline")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds sensitive environment variables explicitly.
// Secrets are never read from the config file search path by accident;
// the explicit bindings below are the only environment lookups.
func bindEnvVariables(v *viper.Viper) {
	bindings := map[string]string{
		"openai_api_key":      "OPENAI_API_KEY",
		"line_channel_token":  "LINE_CHANNEL_ACCESS_TOKEN",
		"line_channel_secret": "LINE_CHANNEL_SECRET",
		"postgres_password":   "RAGLINE_POSTGRES_PASSWORD",
		"listen_addr":         "RAGLINE_LISTEN_ADDR",
	}

	for key, envVar := range bindings {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable", "key", key, "env", envVar, "error", err)
		}
	}
}
