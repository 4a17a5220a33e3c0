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

const (
	defaultLocalBaseURL = "http://localhost:11434"
	defaultLocalModel   = "llama3.2"
)

// LocalClient talks to an Ollama-compatible runtime on the local machine.
// No credentials are needed; the runtime just has to be up.
type LocalClient struct {
	*baseAdapter
	baseURL string
	model   string
}

type localGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system,omitempty"`
	Stream  bool   `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type localGenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// NewLocalClient builds the on-device client.
func NewLocalClient(config *Config) (Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultLocalModel
	}

	return &LocalClient{
		baseAdapter: newBaseAdapter(models.ModelLocal, config),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
	}, nil
}

func (c *LocalClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if err := c.checkRateLimit(ctx); err != nil {
		return nil, err
	}
	if err := c.checkCircuitBreaker(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	genReq := &localGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: false,
	}
	genReq.Options.Temperature = req.Temperature
	genReq.Options.NumPredict = req.MaxTokens

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Provider: c.provider, Code: CodeTimeout, Message: err.Error(), Retryable: true}
		}
		return nil, NewTransientError(c.provider, "local runtime unreachable: "+err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "read response: "+err.Error())
	}

	if httpResp.StatusCode != http.StatusOK {
		c.recordFailure()
		return nil, NewTransientError(c.provider,
			fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, truncate(string(respBody), 200)))
	}

	var resp localGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.recordFailure()
		return nil, NewTransientError(c.provider, "unmarshal response: "+err.Error())
	}

	c.recordSuccess()
	return &CompletionResponse{
		Content:    resp.Response,
		TokensUsed: resp.EvalCount,
		Model:      resp.Model,
		Provider:   c.provider,
		Duration:   time.Since(start),
	}, nil
}

// HealthCheck probes the runtime's version endpoint instead of generating,
// so it stays cheap even with a large model loaded.
func (c *LocalClient) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return NewTransientError(c.provider, "local runtime unreachable: "+err.Error())
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return NewTransientError(c.provider, fmt.Sprintf("HTTP %d from version probe", httpResp.StatusCode))
	}
	return nil
}

func (c *LocalClient) Model() string {
	return c.model
}
