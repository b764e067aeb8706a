package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-query/internal/ai"
)

const (
	defaultModel      = "gemini-2.0-flash"
	defaultTimeout    = 60 * time.Second
	defaultRetryDelay = 2 * time.Second
	// Quota errors asking to wait longer than this are returned immediately.
	maxQuotaWait = 10 * time.Second
)

var quotaDelayRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

type modelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini provider settings.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float32
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models      modelClient
	model       string
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	temperature float32
	logger      *zap.Logger
}

var _ ai.Completer = (*Generator)(nil)

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, logger), nil
}

func newGenerator(models modelClient, cfg Config, logger *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:      models,
		model:       model,
		timeout:     timeout,
		maxRetries:  maxRetries,
		retryDelay:  defaultRetryDelay,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Complete sends the request to Gemini and returns the textual response.
// Temporary API errors are retried up to the configured number of times.
func (g *Generator) Complete(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{Temperature: &g.temperature}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	var output string
	err := retry.Do(
		func() error {
			text, err := g.generate(ctx, prompt, config)
			if err != nil {
				return err
			}
			output = text
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.maxRetries)+1),
		retry.Delay(g.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTemporary),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("retrying gemini request",
				zap.Uint("attempt", n+1),
				zap.String("stage", req.Stage),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return "", err
	}

	return output, nil
}

func (g *Generator) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// isTemporary reports whether a failed call is worth repeating.
func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case http.StatusTooManyRequests:
		return quotaDelay(apiErr.Message) <= maxQuotaWait
	default:
		return false
	}
}

// quotaDelay extracts the wait hint from a quota error message. Zero means no hint.
func quotaDelay(message string) time.Duration {
	match := quotaDelayRe.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
