package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/pipeline"
)

func TestNewCompleterRejectsUnknownProvider(t *testing.T) {
	_, err := newCompleter(context.Background(), &LLMConfig{Provider: "claude"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ai provider")
}

func TestNewCompleterRequiresKey(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "")

	_, err := newCompleter(context.Background(), &LLMConfig{Provider: "azure"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_OPENAI_API_KEY")
}

func TestNewCompleterOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	completer, err := newCompleter(context.Background(), &LLMConfig{
		Provider: "OpenAI",
		OpenAI:   &OpenAIConfig{BaseURL: "http://localhost:11434/v1", Model: "llama3"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, completer)
}

func TestPrintResult(t *testing.T) {
	res := &pipeline.Result{
		State:     pipeline.StateDone,
		Keywords:  []string{"Python", "Kubernetes"},
		Retrieved: []string{"Ann Lee", "Bob Stone"},
		Relevant:  []string{"Ann Lee"},
		Answer:    "Ann Lee fits.",
		Degraded:  []error{errors.New("keyword expansion failed: timeout")},
	}

	var plain bytes.Buffer
	printResult(&plain, res, false)
	assert.Equal(t, "Ann Lee fits.\n", plain.String())

	var traced bytes.Buffer
	printResult(&traced, res, true)
	out := traced.String()
	assert.True(t, strings.HasPrefix(out, "Ann Lee fits.\n"))
	assert.Contains(t, out, "keywords: Python, Kubernetes")
	assert.Contains(t, out, "relevant: Ann Lee")
	assert.Contains(t, out, "degraded: keyword expansion failed: timeout")
}
