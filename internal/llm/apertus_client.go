package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetinsight/service/internal/models"
)

const (
	defaultApertusEndpoint = "https://api.swisscom.ch/llm/inference/v1/chat/completions"
	defaultApertusModel    = "apertus-1.0"
)

// ApertusClient talks to the Swisscom Apertus chat API using a Bearer token.
type ApertusClient struct {
	*baseAdapter
	apiKey   string
	endpoint string
	model    string
}

type apertusChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type apertusChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewApertusClient builds the Apertus-backed client. The API key is required;
// endpoint and model fall back to the hosted defaults.
func NewApertusClient(config *Config) (Client, error) {
	if config.APIKey == "" {
		return nil, NewConfigurationError(models.ModelApertus, "APERTUS_API_KEY is not set")
	}

	endpoint := config.BaseURL
	if endpoint == "" {
		endpoint = defaultApertusEndpoint
	}
	model := config.Model
	if model == "" {
		model = defaultApertusModel
	}

	return &ApertusClient{
		baseAdapter: newBaseAdapter(models.ModelApertus, config),
		apiKey:      config.APIKey,
		endpoint:    endpoint,
		model:       model,
	}, nil
}

func (c *ApertusClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if err := c.checkRateLimit(ctx); err != nil {
		return nil, err
	}
	if err := c.checkCircuitBreaker(); err != nil {
		return nil, err
	}

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(&apertusChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Provider: c.provider, Code: CodeTimeout, Message: err.Error(), Retryable: true}
		}
		return nil, NewTransientError(c.provider, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "read response: "+err.Error())
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		c.recordFailure()
		return nil, NewQuotaError(c.provider, "provider rate limit: "+string(respBody))
	}
	if httpResp.StatusCode != http.StatusOK {
		c.recordFailure()
		return nil, NewTransientError(c.provider,
			fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, truncate(string(respBody), 200)))
	}

	var resp apertusChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "unmarshal response: "+err.Error())
	}
	if len(resp.Choices) == 0 {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "response contained no choices")
	}

	c.recordSuccess()
	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}
	return &CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      respModel,
		Provider:   c.provider,
		Duration:   time.Since(start),
	}, nil
}

func (c *ApertusClient) HealthCheck(ctx context.Context) error {
	_, err := c.Complete(ctx, &CompletionRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

func (c *ApertusClient) Model() string {
	return c.model
}
