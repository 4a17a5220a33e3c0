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

const azureAPIVersion = "2025-01-01-preview"

// AzureOpenAIClient talks to an Azure OpenAI chat-completions deployment.
type AzureOpenAIClient struct {
	*baseAdapter
	apiKey     string
	endpoint   string
	deployment string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type azureChatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type azureChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewAzureOpenAIClient builds the Azure-backed client. Both the API key and
// the resource endpoint are required; absence is a configuration error and
// the backend is treated as unavailable.
func NewAzureOpenAIClient(config *Config) (Client, error) {
	if config.APIKey == "" {
		return nil, NewConfigurationError(models.ModelAzureOpenAI, "AZURE_OPENAI_API_KEY is not set")
	}
	if config.BaseURL == "" {
		return nil, NewConfigurationError(models.ModelAzureOpenAI, "AZURE_OPENAI_API_ENDPOINT is not set")
	}

	deployment := config.Model
	if deployment == "" {
		deployment = "gpt-4o"
	}

	return &AzureOpenAIClient{
		baseAdapter: newBaseAdapter(models.ModelAzureOpenAI, config),
		apiKey:      config.APIKey,
		endpoint:    config.BaseURL,
		deployment:  deployment,
	}, nil
}

// Complete submits a role-separated chat completion.
func (c *AzureOpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
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

	body, err := json.Marshal(&azureChatRequest{
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.deployment, azureAPIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

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

	var resp azureChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "unmarshal response: "+err.Error())
	}
	if len(resp.Choices) == 0 {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "response contained no choices")
	}

	c.recordSuccess()
	return &CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      resp.Model,
		Provider:   c.provider,
		Duration:   time.Since(start),
	}, nil
}

// HealthCheck issues a minimal one-token completion.
func (c *AzureOpenAIClient) HealthCheck(ctx context.Context) error {
	_, err := c.Complete(ctx, &CompletionRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

func (c *AzureOpenAIClient) Model() string {
	return c.deployment
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
