package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/ai"
)

const (
	defaultAPIVersion = "2024-08-01-preview"
	defaultTimeout    = 60 * time.Second
	defaultMaxTokens  = 6000
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds the chat completion provider settings. When Endpoint points to an
// Azure resource the Azure flavour of the API is used, otherwise BaseURL selects
// any OpenAI-compatible server.
type Config struct {
	APIKey      string
	Endpoint    string
	Deployment  string
	APIVersion  string
	BaseURL     string
	Model       string
	Azure       bool
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// Client is a chat completion provider backed by Azure OpenAI or an OpenAI-compatible API.
type Client struct {
	chat        chatClient
	model       string
	timeout     time.Duration
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

var _ ai.Completer = (*Client)(nil)

// New creates a chat completion provider.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	var clientCfg openai.ClientConfig
	model := strings.TrimSpace(cfg.Model)

	if cfg.Azure {
		endpoint := strings.TrimSpace(cfg.Endpoint)
		if endpoint == "" {
			return nil, errors.New("azure openai endpoint is required")
		}
		deployment := strings.TrimSpace(cfg.Deployment)
		if deployment == "" {
			return nil, errors.New("azure openai deployment is required")
		}

		clientCfg = openai.DefaultAzureConfig(apiKey, endpoint)
		clientCfg.APIVersion = defaultAPIVersion
		if v := strings.TrimSpace(cfg.APIVersion); v != "" {
			clientCfg.APIVersion = v
		}
		clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
		if model == "" {
			model = deployment
		}
	} else {
		clientCfg = openai.DefaultConfig(apiKey)
		if base := strings.TrimSpace(cfg.BaseURL); base != "" {
			clientCfg.BaseURL = base
		}
		if model == "" {
			model = openai.GPT4oMini
		}
	}

	return newClient(openai.NewClientWithConfig(clientCfg), model, cfg, logger), nil
}

func newClient(chat chatClient, model string, cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		chat:        chat,
		model:       model,
		timeout:     timeout,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Complete sends a system and a user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("chat completion returned empty content")
	}

	c.logger.Debug("chat completion usage",
		zap.String("stage", req.Stage),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return output, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("chat completion error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("chat completion error %d: %w", reqErr.HTTPStatusCode, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("chat completion request failed: %w", err)
}

// extractDetail extracts the error message from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error.Message
}
