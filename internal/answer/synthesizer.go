package answer

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/ai"
	"github.com/spigell/resume-query/internal/resume"
)

const (
	Stage = "answer"

	systemInstruction = "You are a helpful assistant that summarizes relevant candidate information based on a natural language query. You only state what the provided resumes say."

	// FailurePrefix starts every diagnostic answer produced when generation fails.
	FailurePrefix = "Answer generation failed"
)

//go:embed answer.md
var promptTemplate string

// Result is the outcome of a synthesis call.
type Result struct {
	Text string
	// Err is set when Text is a diagnostic instead of a generated answer.
	Err error
}

// Synthesizer writes the final answer grounded in the given resumes.
type Synthesizer struct {
	completer ai.Completer
	logger    *zap.Logger
}

func New(completer ai.Completer, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{completer: completer, logger: logger}
}

// Run always returns text: the answer, or a diagnostic describing the failure.
func (s *Synthesizer) Run(ctx context.Context, query string, candidates []resume.Record) Result {
	text, err := s.generate(ctx, query, candidates)
	if err != nil {
		s.logger.Warn("answer generation failed", zap.Error(err))
		return Result{Text: fmt.Sprintf("%s: %v", FailurePrefix, err), Err: err}
	}

	answer := resume.Redact(text, candidates)
	if answer != text {
		s.logger.Warn("contact details removed from the answer")
	}

	s.logger.Info("answer generated", zap.Int("candidates", len(candidates)))

	return Result{Text: answer}
}

func (s *Synthesizer) generate(ctx context.Context, query string, candidates []resume.Record) (string, error) {
	serialized, err := resume.Serialize(candidates)
	if err != nil {
		return "", err
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{QUERY}}", strings.TrimSpace(query))
	prompt = strings.ReplaceAll(prompt, "{{RESUMES}}", serialized)

	text, err := s.completer.Complete(ctx, ai.Request{Stage: Stage, System: systemInstruction, Prompt: prompt})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty answer")
	}

	return text, nil
}
