package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meetinsight/service/internal/models"
)

// HuggingFaceClient talks to a Hugging Face inference endpoint. It prefers
// the chat-completion API; when that call fails for any reason it retries
// exactly once as plain text generation.
type HuggingFaceClient struct {
	*baseAdapter
	token    string
	endpoint string
	model    string
}

type hfChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type hfChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type hfTextGenRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens int     `json:"max_new_tokens,omitempty"`
		Temperature  float64 `json:"temperature,omitempty"`
		ReturnFull   bool    `json:"return_full_text"`
	} `json:"parameters"`
}

type hfTextGenResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFaceClient builds the Hugging Face-backed client. Both the access
// token and the endpoint URL are required.
func NewHuggingFaceClient(config *Config) (Client, error) {
	if config.APIKey == "" {
		return nil, NewConfigurationError(models.ModelHuggingFace, "HF_TOKEN is not set")
	}
	if config.BaseURL == "" {
		return nil, NewConfigurationError(models.ModelHuggingFace, "HF_ENDPOINT_URL is not set")
	}

	model := config.Model
	if model == "" {
		model = "tgi"
	}

	return &HuggingFaceClient{
		baseAdapter: newBaseAdapter(models.ModelHuggingFace, config),
		token:       config.APIKey,
		endpoint:    strings.TrimRight(config.BaseURL, "/"),
		model:       model,
	}, nil
}

func (c *HuggingFaceClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if err := c.checkRateLimit(ctx); err != nil {
		return nil, err
	}
	if err := c.checkCircuitBreaker(); err != nil {
		return nil, err
	}

	content, tokens, err := c.chatCompletion(ctx, req)
	if err != nil {
		// Any chat failure gets exactly one retry as plain text
		// generation, then we give up.
		content, err = c.textGeneration(ctx, req)
		if err != nil {
			c.recordFailure()
			return nil, err
		}
		tokens = 0
	}

	c.recordSuccess()
	return &CompletionResponse{
		Content:    content,
		TokensUsed: tokens,
		Model:      c.model,
		Provider:   c.provider,
		Duration:   time.Since(start),
	}, nil
}

func (c *HuggingFaceClient) chatCompletion(ctx context.Context, req *CompletionRequest) (string, int, error) {
	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(&hfChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.endpoint+"/v1/chat/completions", body)
	if err != nil {
		return "", 0, err
	}

	var resp hfChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", 0, NewTransientError(c.provider, "unmarshal chat response: "+err.Error())
	}
	if len(resp.Choices) == 0 {
		return "", 0, NewTransientError(c.provider, "chat response contained no choices")
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

func (c *HuggingFaceClient) textGeneration(ctx context.Context, req *CompletionRequest) (string, error) {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	tgReq := &hfTextGenRequest{Inputs: prompt}
	tgReq.Parameters.MaxNewTokens = req.MaxTokens
	tgReq.Parameters.Temperature = req.Temperature
	tgReq.Parameters.ReturnFull = false

	body, err := json.Marshal(tgReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.endpoint, body)
	if err != nil {
		return "", err
	}

	var resp hfTextGenResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", NewTransientError(c.provider, "unmarshal text-generation response: "+err.Error())
	}
	if len(resp) == 0 {
		return "", NewTransientError(c.provider, "text-generation response was empty")
	}
	return resp[0].GeneratedText, nil
}

func (c *HuggingFaceClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Provider: c.provider, Code: CodeTimeout, Message: err.Error(), Retryable: true}
		}
		return nil, NewTransientError(c.provider, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewTransientError(c.provider, "read response: "+err.Error())
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
		return respBody, nil
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, NewQuotaError(c.provider, "provider rate limit: "+string(respBody))
	default:
		return nil, NewTransientError(c.provider,
			fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, truncate(string(respBody), 200)))
	}
}

func (c *HuggingFaceClient) HealthCheck(ctx context.Context) error {
	_, err := c.Complete(ctx, &CompletionRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

func (c *HuggingFaceClient) Model() string {
	return c.model
}
