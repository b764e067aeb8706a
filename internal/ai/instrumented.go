package ai

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/logger"
	"github.com/spigell/resume-query/internal/metrics"
	"github.com/spigell/resume-query/internal/utils"
)

const defaultMaxLogLength = 200

// Instrumented wraps a Completer with request logging and Prometheus metrics.
type Instrumented struct {
	inner     Completer
	provider  string
	model     string
	maxLogLen int
	logger    *zap.Logger
}

// NewInstrumented wraps inner. maxLogLength bounds prompt and response previews in debug logs.
func NewInstrumented(inner Completer, provider, model string, maxLogLength int, log *zap.Logger) *Instrumented {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Instrumented{
		inner:     inner,
		provider:  provider,
		model:     model,
		maxLogLen: maxLogLength,
		logger:    logger.WithCommonFields(log, provider, model),
	}
}

func (c *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	stage := req.Stage
	if stage == "" {
		stage = "unknown"
	}

	c.logger.Debug("llm request",
		zap.String("stage", stage),
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, c.maxLogLen)),
	)

	start := time.Now()
	raw, err := c.inner.Complete(ctx, req)
	duration := time.Since(start)

	metrics.LLMRequestDuration.WithLabelValues(c.provider, c.model, stage).Observe(duration.Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, stage, "error").Inc()
		c.logger.Warn("llm request failed",
			zap.String("stage", stage),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", err
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, stage, "success").Inc()
	c.logger.Debug("llm response",
		zap.String("stage", stage),
		zap.Duration("duration", duration),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return raw, nil
}
