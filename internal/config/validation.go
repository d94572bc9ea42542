package config

import (
	"fmt"
	"regexp"
	"slices"
)

// collectionNamePattern restricts collection names to safe SQL identifiers.
// The collection name becomes a table name, so it must never carry quoting
// or injection characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// OpenAI configuration
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	if c.ChatModel == "" {
		return fmt.Errorf("%w: chat_model cannot be empty", ErrInvalidModelName)
	}

	if c.EmbedModel == "" {
		return fmt.Errorf("%w: embed_model cannot be empty", ErrInvalidEmbedModel)
	}

	// Temperature range follows the OpenAI chat completion API: 0.0-2.0.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// Retrieval configuration
	if !collectionNamePattern.MatchString(c.Collection) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidCollection, c.Collection, collectionNamePattern)
	}

	if c.Metric != "l2" && c.Metric != "ip" {
		return fmt.Errorf("%w: %q (supported: l2, ip)", ErrInvalidMetric, c.Metric)
	}

	if c.Dimension < 1 || c.Dimension > 16000 {
		return fmt.Errorf("%w: must be between 1 and 16000, got %d", ErrInvalidDimension, c.Dimension)
	}

	if c.TopK <= 0 || c.TopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.TopK)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only - the deprecated allow/prefer modes are excluded.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// ValidateServe performs the additional checks required to run the webhook
// server. The seed and ask commands do not need LINE credentials, so these
// checks live outside Validate().
func (c *Config) ValidateServe() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.LineChannelToken == "" {
		return fmt.Errorf("%w: LINE_CHANNEL_ACCESS_TOKEN environment variable is required", ErrMissingChannelToken)
	}

	if c.LineChannelSecret == "" {
		return fmt.Errorf("%w: LINE_CHANNEL_SECRET environment variable is required", ErrMissingChannelSecret)
	}

	return nil
}
