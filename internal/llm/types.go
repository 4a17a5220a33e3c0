package llm

import (
	"context"
	"time"

	"github.com/meetinsight/service/internal/models"
)

// CompletionRequest is the provider-neutral request shape. Clients translate
// it into whatever wire format their provider expects.
type CompletionRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	Model        string  `json:"model,omitempty"`
}

// CompletionResponse is the provider-neutral response shape.
type CompletionResponse struct {
	Content    string           `json:"content"`
	TokensUsed int              `json:"tokens_used"`
	Model      string           `json:"model"`
	Provider   models.ModelType `json:"provider"`
	Duration   time.Duration    `json:"duration"`
}

// Client is the capability every model backend implements: submit a prompt,
// get raw text back. Implementations must bound every outbound call with
// the configured timeout.
type Client interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	HealthCheck(ctx context.Context) error
	Provider() models.ModelType
	Model() string
	Close() error
}

// Config holds per-backend connection settings. Credentials come from the
// environment; everything else has defaults.
type Config struct {
	Provider    models.ModelType `yaml:"provider"`
	APIKey      string           `yaml:"-"`
	BaseURL     string           `yaml:"base_url"`
	Model       string           `yaml:"model"`
	Timeout     time.Duration    `yaml:"timeout"`
	RateLimit   int              `yaml:"rate_limit"` // requests per minute
	MaxFailures int              `yaml:"max_failures"`
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 60
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
}
