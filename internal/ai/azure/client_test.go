package azure

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/ai"
)

type stubChat struct {
	resp openai.ChatCompletionResponse
	err  error
	last openai.ChatCompletionRequest
}

func (s *stubChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.last = req
	return s.resp, s.err
}

func TestClientComplete(t *testing.T) {
	chat := &stubChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: " answer "}}},
	}}
	client := newClient(chat, "deployment-x", Config{Temperature: 0.2}, zap.NewNop())

	out, err := client.Complete(context.Background(), ai.Request{System: "be brief", Prompt: "question"})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, chat.last.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, chat.last.Messages[0].Role)
	assert.Equal(t, "be brief", chat.last.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, chat.last.Messages[1].Role)
	assert.Equal(t, "deployment-x", chat.last.Model)
	assert.Equal(t, defaultMaxTokens, chat.last.MaxTokens)
}

func TestClientCompleteWithoutSystem(t *testing.T) {
	chat := &stubChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	}}
	client := newClient(chat, "m", Config{}, nil)

	_, err := client.Complete(context.Background(), ai.Request{Prompt: "question"})
	require.NoError(t, err)
	require.Len(t, chat.last.Messages, 1)
}

func TestClientCompleteErrors(t *testing.T) {
	client := newClient(&stubChat{}, "m", Config{}, zap.NewNop())

	_, err := client.Complete(context.Background(), ai.Request{Prompt: ""})
	require.Error(t, err)

	_, err = client.Complete(context.Background(), ai.Request{Prompt: "q"})
	require.ErrorContains(t, err, "no choices")

	failing := newClient(&stubChat{err: &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}}, "m", Config{}, zap.NewNop())
	_, err = failing.Complete(context.Background(), ai.Request{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "429"), err.Error())

	plain := newClient(&stubChat{err: errors.New("dial tcp: refused")}, "m", Config{}, zap.NewNop())
	_, err = plain.Complete(context.Background(), ai.Request{Prompt: "q"})
	require.ErrorContains(t, err, "refused")
}

func TestNewValidatesAzureSettings(t *testing.T) {
	_, err := New(Config{APIKey: "k", Azure: true}, zap.NewNop())
	require.ErrorContains(t, err, "endpoint")

	_, err = New(Config{APIKey: "k", Azure: true, Endpoint: "https://x.openai.azure.com"}, zap.NewNop())
	require.ErrorContains(t, err, "deployment")

	client, err := New(Config{APIKey: "k", Azure: true, Endpoint: "https://x.openai.azure.com", Deployment: "gpt-4o"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.Model())

	_, err = New(Config{}, zap.NewNop())
	require.Error(t, err)
}
