package config

import (
	"fmt"
	"strings"

	env "github.com/netflix/go-env"
)

// Config holds the relay settings sourced from environment variables.
// Requirements differ per transport, so required-ness is enforced by the
// Validate* functions rather than by struct tags.
type Config struct {
	// Bot user OAuth token (xoxb-)
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	// App-level token for Socket Mode (xapp-)
	SlackAppToken string `env:"SLACK_APP_TOKEN"`
	// Signing secret for Events API request verification
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET"`
	RAGEndpoint        string `env:"RAG_API_ENDPOINT"`
	// Health probe URL; falls back to RAGEndpoint when unset
	RAGHealthURL string `env:"RAG_API_HEALTH_URL"`
	Port         int    `env:"PORT,default=3000"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if config.RAGHealthURL == "" {
		config.RAGHealthURL = config.RAGEndpoint
	}

	if config.Port < 1 || config.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", config.Port)
	}

	return &config, nil
}

// ValidateEvents checks the variables the Events API transport needs.
func (c *Config) ValidateEvents() error {
	return requireSet([]envVar{
		{"SLACK_BOT_TOKEN", c.SlackBotToken},
		{"SLACK_SIGNING_SECRET", c.SlackSigningSecret},
		{"RAG_API_ENDPOINT", c.RAGEndpoint},
	})
}

// ValidateSocket checks the variables the Socket Mode transport needs.
func (c *Config) ValidateSocket() error {
	return requireSet([]envVar{
		{"SLACK_BOT_TOKEN", c.SlackBotToken},
		{"SLACK_APP_TOKEN", c.SlackAppToken},
		{"RAG_API_ENDPOINT", c.RAGEndpoint},
	})
}

type envVar struct {
	name  string
	value string
}

func requireSet(vars []envVar) error {
	var missing []string
	for _, v := range vars {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
